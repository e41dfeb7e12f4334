package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofmeright/rebuildkit/src/output"
)

var (
	dpbBaseImage string
	dpbSource    string
	dpbDest      string
	dpbTag       string
)

var deployPreBuildCmd = &cobra.Command{
	Use:   "pre-build",
	Short: "Push a workspace snapshot on top of a builder image",
	Long: `Pre-build adds every entry of --source under --dest in a new layer on top of
--base-image, keeping file permissions, and pushes the result. The image is
labelled to expire after 24h.`,
	Args: cobra.NoArgs,
	RunE: runDeployPreBuild,
}

func init() {
	f := deployPreBuildCmd.Flags()
	f.StringVar(&dpbBaseImage, "base-image", "", "builder image reference")
	f.StringVar(&dpbSource, "source", "", "workspace directory")
	f.StringVar(&dpbDest, "dest", "", "absolute path in the image")
	f.StringVar(&dpbTag, "tag", "", "tag to push")
	for _, name := range []string{"base-image", "source", "dest", "tag"} {
		_ = deployPreBuildCmd.MarkFlagRequired(name)
	}

	deployCmd.AddCommand(deployPreBuildCmd)
}

func runDeployPreBuild(cmd *cobra.Command, args []string) error {
	p, err := newPackager(cmd)
	if err != nil {
		return err
	}

	elapsed, err := runPhase(cmd, "deploy_prebuild", "Pushing pre-build image", func() error {
		return p.DeployPreBuiltImage(cmd.Context(), dpbBaseImage, dpbSource, dpbDest, dpbTag)
	})
	if err != nil {
		return fmt.Errorf("deploy pre-build: %w", err)
	}

	color := output.UseColor()
	sec := output.NewSection(cmd.OutOrStdout(), "Pre-build Image", elapsed, color)
	sec.KV("base", dpbBaseImage)
	sec.KV("tag", dpbTag)
	sec.Close()
	return nil
}
