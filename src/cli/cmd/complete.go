package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sofmeright/rebuildkit/src/status"
)

// completeGAVs completes artifact coordinates from the status file. With
// missingOnly, only artifacts the pipeline could not find are offered.
func completeGAVs(missingOnly bool) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if err := loadConfig(); err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		doc, err := status.NewStore(cfg.Deploy.StatusFile).Load()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		given := make(map[string]bool, len(args))
		for _, a := range args {
			given[a] = true
		}
		var out []string
		for _, g := range doc.GAVs(missingOnly) {
			if !given[g] && strings.HasPrefix(g, toComplete) {
				out = append(out, g)
			}
		}
		// Coordinates contain ':', which some shells split on.
		return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	}
}
