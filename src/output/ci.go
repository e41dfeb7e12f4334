package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CI environment detection.

func IsCI() bool {
	return os.Getenv("CI") == "true" || IsTekton()
}

func IsGitLabCI() bool {
	return os.Getenv("GITLAB_CI") == "true"
}

// IsTekton reports whether we run inside a Tekton task step.
func IsTekton() bool {
	_, err := os.Stat("/tekton/results")
	return err == nil
}

// GitLab collapsible section helpers.

func SectionStart(w io.Writer, id, name string) {
	if !IsGitLabCI() {
		return
	}
	fmt.Fprintf(w, "\033[0Ksection_start:%d:%s\r\033[0K%s\n", time.Now().Unix(), id, name)
}

func SectionEnd(w io.Writer, id string) {
	if !IsGitLabCI() {
		return
	}
	fmt.Fprintf(w, "\033[0Ksection_end:%d:%s\r\033[0K\n", time.Now().Unix(), id)
}

// WriteResult writes a pipeline result file, such as a Tekton task result.
// The value is written without a trailing newline. An empty path is a no-op.
func WriteResult(path, value string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating result dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimRight(value, "\n")), 0o644); err != nil {
		return fmt.Errorf("writing result %s: %w", path, err)
	}
	return nil
}

// PhaseResult prints a compact single-line phase summary.
func PhaseResult(w io.Writer, name, status, detail string, elapsed time.Duration, color bool) {
	fmt.Fprintf(w, "  %-10s %s  %-50s (%s)\n", name, StatusIcon(status, color), detail, elapsed.Round(time.Millisecond))
}
