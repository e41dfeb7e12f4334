package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofmeright/rebuildkit/src/gav"
	"github.com/sofmeright/rebuildkit/src/output"
)

var dtBaseTag string

var deployTagCmd = &cobra.Command{
	Use:   "tag <group:artifact:version>...",
	Short: "Tag the base image once per artifact coordinate",
	Long: `Tag pulls the base image, records the coordinates in its labels and pushes it
under one tag per coordinate. All tags share a single manifest digest.

Tags are derived from the coordinate unless it carries an explicit fourth
segment, group:artifact:version:tag.`,
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeGAVs(false),
	RunE:              runDeployTag,
}

func init() {
	deployTagCmd.Flags().StringVar(&dtBaseTag, "base-tag", "", "tag of the base image (default: --image-id)")

	deployCmd.AddCommand(deployTagCmd)
}

func runDeployTag(cmd *cobra.Command, args []string) error {
	p, err := newPackager(cmd)
	if err != nil {
		return err
	}

	elapsed, err := runPhase(cmd, "deploy_tag", "Tagging coordinates", func() error {
		return p.RetagImage(cmd.Context(), args, dpPrependTag, dtBaseTag)
	})
	if err != nil {
		return fmt.Errorf("deploy tag: %w", err)
	}

	prepend := dpPrependTag
	if prepend == "" {
		prepend = cfg.Registry.PrependTag
	}
	color := output.UseColor()
	sec := output.NewSection(cmd.OutOrStdout(), "Tags", elapsed, color)
	for _, a := range args {
		g, err := gav.Parse(a, prepend)
		if err != nil {
			return err
		}
		output.RowStatus(sec, g.Key(), output.Dimmed(g.Tag, color), "success", color)
	}
	sec.Close()
	return nil
}
