package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofmeright/rebuildkit/src/status"
)

var arClearCache bool

var artifactsRebuildCmd = &cobra.Command{
	Use:               "rebuild <group:artifact:version>...",
	Short:             "Request a rebuild of artifact builds",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeGAVs(false),
	RunE:              runArtifactsRebuild,
}

func init() {
	artifactsRebuildCmd.Flags().BoolVar(&arClearCache, "clear-cache", false, "also clear the dependency cache before rebuilding")

	artifactsCmd.AddCommand(artifactsRebuildCmd)
}

func runArtifactsRebuild(cmd *cobra.Command, args []string) error {
	store := status.NewStore(cfg.Deploy.StatusFile)
	doc, err := store.Load()
	if err != nil {
		return err
	}
	for _, g := range args {
		if err := doc.RequestRebuild(g, arClearCache); err != nil {
			return err
		}
	}
	if err := store.Save(doc); err != nil {
		return err
	}
	logger.Info().Strs("gavs", args).Str("file", store.Path()).Msg("Rebuild requested")
	fmt.Fprintf(cmd.OutOrStdout(), "requested rebuild of %d artifact(s)\n", len(args))
	return nil
}
