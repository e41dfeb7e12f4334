package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sofmeright/rebuildkit/src/output"
	"github.com/sofmeright/rebuildkit/src/toolchain"
)

var trOutput string

var toolchainResolveCmd = &cobra.Command{
	Use:   "resolve [build.xml | dir]",
	Short: "Resolve the JDK range and Ant release for an Ant project",
	Long: `Resolve reads the Ant descriptor and reports the detected Java version,
the acceptable JDK range and the Ant release to use.

With --output env the result is printed as shell assignments:
JAVA_VERSION, JDK_MIN, JDK_MAX, JDK_PREFERRED, ANT_VERSION, ANT_ARGS.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runToolchainResolve,
}

func init() {
	toolchainResolveCmd.Flags().StringVarP(&trOutput, "output", "o", "text", "output format: text or env")

	toolchainCmd.AddCommand(toolchainResolveCmd)
}

func runToolchainResolve(cmd *cobra.Command, args []string) error {
	path := cfg.Toolchain.Descriptor
	if len(args) > 0 {
		path = args[0]
	}

	resolver := toolchain.NewResolver(logger)
	sel := resolver.Resolve(path)
	w := cmd.OutOrStdout()

	switch trOutput {
	case "env":
		fmt.Fprintf(w, "JAVA_VERSION=%s\n", sel.Java.String())
		fmt.Fprintf(w, "JDK_MIN=%s\n", sel.Range.Min)
		fmt.Fprintf(w, "JDK_MAX=%s\n", sel.Range.Max)
		fmt.Fprintf(w, "JDK_PREFERRED=%s\n", sel.Range.Preferred)
		fmt.Fprintf(w, "ANT_VERSION=%s\n", sel.Ant)
		fmt.Fprintf(w, "ANT_ARGS=%q\n", strings.Join(toolchain.DefaultAntArgs(), " "))
	case "text":
		color := output.UseColor()
		sec := output.NewSection(w, "Toolchain", 0, color)
		sec.KV("descriptor", path)
		output.SectionSelection(sec, sel, color)
		sec.Close()
	default:
		return fmt.Errorf("unknown output format %q (valid: text, env)", trOutput)
	}
	return nil
}
