package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofmeright/rebuildkit/src/output"
	"github.com/sofmeright/rebuildkit/src/status"
)

var alMissing bool

var artifactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List artifact builds",
	Args:  cobra.NoArgs,
	RunE:  runArtifactsList,
}

func init() {
	artifactsListCmd.Flags().BoolVar(&alMissing, "missing", false, "only artifacts that could not be found")

	artifactsCmd.AddCommand(artifactsListCmd)
}

func runArtifactsList(cmd *cobra.Command, args []string) error {
	doc, err := status.NewStore(cfg.Deploy.StatusFile).Load()
	if err != nil {
		return err
	}

	index := doc.ByGAV()
	var artifacts []status.ArtifactBuild
	for _, g := range doc.GAVs(alMissing) {
		artifacts = append(artifacts, index[g])
	}

	color := output.UseColor()
	w := cmd.OutOrStdout()
	sec := output.NewSection(w, fmt.Sprintf("Artifacts (%d)", len(artifacts)), 0, color)
	output.SectionArtifacts(sec, artifacts, color)
	sec.Close()

	if contaminated := doc.Contaminated(); len(contaminated) > 0 && !alMissing {
		sec := output.NewSection(w, "Contaminated Builds", 0, color)
		output.SectionContaminants(sec, contaminated, color)
		sec.Close()
	}
	return nil
}
