package output

import (
	"sort"
	"strings"

	"github.com/sofmeright/rebuildkit/src/logscan"
	"github.com/sofmeright/rebuildkit/src/status"
	"github.com/sofmeright/rebuildkit/src/toolchain"
)

// SectionSelection renders a resolved toolchain.
func SectionSelection(sec *Section, sel toolchain.Selection, color bool) {
	java := sel.Java.String()
	if !sel.Java.Known() {
		java = Dimmed("unknown", color)
	}
	sec.KV("java", java)
	sec.KV("jdk range", sel.Range.String())
	sec.KV("ant", sel.Ant)
}

// SectionFindings renders suspected secrets grouped by file.
func SectionFindings(sec *Section, findings []logscan.Finding, color bool) {
	if len(findings) == 0 {
		RowStatus(sec, "logs", "no secrets found", "success", color)
		return
	}

	byFile := map[string][]logscan.Finding{}
	for _, f := range findings {
		byFile[f.File] = append(byFile[f.File], f)
	}
	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		sec.Row("%s", colorize(file, colorBold, color))
		for _, f := range byFile[file] {
			sec.Row("  %-6d %-28s %s", f.Line, colorize(f.RuleID, colorCyan, color), f.Description)
		}
	}
}

// SectionArtifacts renders artifact builds sorted by coordinate.
func SectionArtifacts(sec *Section, artifacts []status.ArtifactBuild, color bool) {
	sorted := append([]status.ArtifactBuild(nil), artifacts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].GAV < sorted[j].GAV })

	for _, a := range sorted {
		st := "skipped"
		switch a.State {
		case status.ArtifactBuildComplete:
			st = "success"
		case status.ArtifactBuildFailed, status.ArtifactBuildMissing:
			st = "failed"
		}
		state := strings.TrimPrefix(a.State, "ArtifactBuild")
		sec.Row("%s %-48s %s", StatusIcon(st, color), a.GAV, Dimmed(state, color))
	}
}

// SectionContaminants renders contaminated dependency builds and what they
// contaminate.
func SectionContaminants(sec *Section, builds []status.DependencyBuild, color bool) {
	for _, b := range builds {
		sec.Row("%s %s", StatusIcon("failed", color), colorize(b.Name, colorBold, color))
		for _, c := range b.Status.Contaminants {
			sec.Row("  %s", c.GAV)
			for _, a := range c.ContaminatedArtifacts {
				sec.Row("    %s", Dimmed(a, color))
			}
		}
	}
}
