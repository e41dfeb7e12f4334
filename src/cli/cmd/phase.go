package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/rebuildkit/src/output"
)

// runPhase runs fn inside a collapsible CI section and prints a one-line
// result for it. Log lines emitted by fn land inside the section.
func runPhase(cmd *cobra.Command, id, title string, fn func() error) (time.Duration, error) {
	w := cmd.OutOrStdout()
	start := time.Now()
	output.SectionStart(w, id, title)
	err := fn()
	output.SectionEnd(w, id)

	elapsed := time.Since(start)
	status, detail := "success", title
	if err != nil {
		status, detail = "failed", err.Error()
	}
	output.PhaseResult(w, id, status, detail, elapsed, output.UseColor())
	return elapsed, err
}
