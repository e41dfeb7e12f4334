package cmd

import (
	"github.com/spf13/cobra"
)

var toolchainCmd = &cobra.Command{
	Use:   "toolchain",
	Short: "Toolchain resolution commands",
	Long:  "Detect the Java version an Ant project targets and choose matching JDK and Ant releases.",
}

func init() {
	rootCmd.AddCommand(toolchainCmd)
}
