// Package logscan checks build logs for leaked credentials before they are
// published inside an image.
package logscan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/zricethezav/gitleaks/v8/detect"
	"golang.org/x/sync/semaphore"

	"github.com/sofmeright/rebuildkit/src/logging"
)

// DefaultMaxFileSize bounds how much of a single log is read into memory.
const DefaultMaxFileSize = 64 << 20

// Policy decides what a finding means for the deploy.
type Policy string

const (
	PolicyOff  Policy = "off"
	PolicyWarn Policy = "warn"
	PolicyFail Policy = "fail"
)

// ParsePolicy accepts off, warn and fail; empty means warn.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyWarn, nil
	case PolicyOff, PolicyWarn, PolicyFail:
		return p, nil
	default:
		return "", fmt.Errorf("logscan: unknown policy %q (valid: off, warn, fail)", s)
	}
}

// Finding is one suspected secret. The secret itself is never kept.
type Finding struct {
	File        string
	Line        int
	RuleID      string
	Description string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", f.File, f.Line, f.Description, f.RuleID)
}

// Scanner runs gitleaks' default rule set over every regular file in a tree.
type Scanner struct {
	Workers     int
	MaxFileSize int64

	logger zerolog.Logger
}

// NewScanner creates a scanner with one worker per CPU.
func NewScanner(logger zerolog.Logger) *Scanner {
	return &Scanner{
		Workers:     runtime.NumCPU(),
		MaxFileSize: DefaultMaxFileSize,
		logger:      logging.Component(logger, "logscan"),
	}
}

// Scan returns findings sorted by file and line. Unreadable files do not stop
// the scan; they are reported together in the returned error.
func (s *Scanner) Scan(ctx context.Context, root string) ([]Finding, error) {
	files, err := collectFiles(root)
	if err != nil {
		return nil, fmt.Errorf("logscan: walking %s: %w", root, err)
	}

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	pool := make(chan *detect.Detector, workers)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		findings []Finding
		errs     *multierror.Error
	)

	for _, rel := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			errs = multierror.Append(errs, err)
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(rel string) {
			defer wg.Done()
			defer sem.Release(1)

			hits, err := s.scanFile(pool, root, rel)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierror.Append(errs, err)
				return
			}
			findings = append(findings, hits...)
		}(rel)
	}
	wg.Wait()

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].File != findings[j].File {
			return findings[i].File < findings[j].File
		}
		return findings[i].Line < findings[j].Line
	})
	s.logger.Debug().Int("files", len(files)).Int("findings", len(findings)).Msg("log scan finished")
	return findings, errs.ErrorOrNil()
}

func (s *Scanner) scanFile(pool chan *detect.Detector, root, rel string) ([]Finding, error) {
	path := filepath.Join(root, rel)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("logscan: %s: %w", rel, err)
	}
	if s.MaxFileSize > 0 && info.Size() > s.MaxFileSize {
		s.logger.Warn().Str("file", rel).Int64("size", info.Size()).Msg("log too large to scan, skipping")
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("logscan: %s: %w", rel, err)
	}

	var d *detect.Detector
	select {
	case d = <-pool:
	default:
		// Detectors are not shared between goroutines; build one per worker.
		d, err = detect.NewDetectorDefaultConfig()
		if err != nil {
			return nil, fmt.Errorf("logscan: creating detector: %w", err)
		}
	}
	hits := d.DetectBytes(data)
	select {
	case pool <- d:
	default:
	}

	out := make([]Finding, 0, len(hits))
	for _, h := range hits {
		out = append(out, Finding{
			File:        filepath.ToSlash(rel),
			Line:        h.StartLine + 1, // gitleaks is 0-indexed
			RuleID:      h.RuleID,
			Description: h.Description,
		})
	}
	return out, nil
}

func collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	return files, err
}
