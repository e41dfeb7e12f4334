package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofmeright/rebuildkit/src/output"
)

var (
	dhBaseImage  string
	dhArtifacts  string
	dhRepository string
	dhDest       string
	dhTag        string
)

var deployHermeticCmd = &cobra.Command{
	Use:   "hermetic",
	Short: "Push the downloaded dependencies needed for an offline rebuild",
	Long: `Hermetic adds the files of the local dependency repository that the build did
not produce itself, so the build can later run without network access.
Repository bookkeeping files are left out.`,
	Args: cobra.NoArgs,
	RunE: runDeployHermetic,
}

func init() {
	f := deployHermeticCmd.Flags()
	f.StringVar(&dhBaseImage, "base-image", "", "builder image reference")
	f.StringVar(&dhArtifacts, "artifacts", "", "directory of artifacts the build produced")
	f.StringVar(&dhRepository, "repository", "", "local dependency repository")
	f.StringVar(&dhDest, "dest", "", "absolute path in the image")
	f.StringVar(&dhTag, "tag", "", "tag to push")
	for _, name := range []string{"base-image", "artifacts", "repository", "dest", "tag"} {
		_ = deployHermeticCmd.MarkFlagRequired(name)
	}

	deployCmd.AddCommand(deployHermeticCmd)
}

func runDeployHermetic(cmd *cobra.Command, args []string) error {
	p, err := newPackager(cmd)
	if err != nil {
		return err
	}

	elapsed, err := runPhase(cmd, "deploy_hermetic", "Pushing hermetic image", func() error {
		return p.DeployHermeticPreBuiltImage(cmd.Context(), dhBaseImage, dhArtifacts, dhRepository, dhDest, dhTag)
	})
	if err != nil {
		return fmt.Errorf("deploy hermetic: %w", err)
	}

	color := output.UseColor()
	sec := output.NewSection(cmd.OutOrStdout(), "Hermetic Image", elapsed, color)
	sec.KV("base", dhBaseImage)
	sec.KV("tag", dhTag)
	sec.Close()
	return nil
}
