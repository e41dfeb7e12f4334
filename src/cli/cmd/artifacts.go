package cmd

import (
	"github.com/spf13/cobra"
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Inspect and manage artifact builds",
	Long:  "List artifact builds from the status file and request rebuilds.",
}

func init() {
	rootCmd.AddCommand(artifactsCmd)
}
