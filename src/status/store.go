package status

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no artifact build matches a coordinate.
var ErrNotFound = errors.New("status: artifact build not found")

// Document is the on-disk status file.
type Document struct {
	Artifacts    []ArtifactBuild   `yaml:"artifacts" toml:"artifacts"`
	Dependencies []DependencyBuild `yaml:"dependencies,omitempty" toml:"dependencies,omitempty"`
}

// Store reads and writes a status document at a fixed path, as YAML, or
// TOML when the path ends in .toml.
type Store struct {
	path string
}

// NewStore returns a store for path. Nothing is read until Load.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) isTOML() bool {
	return strings.EqualFold(filepath.Ext(s.path), ".toml")
}

// Load reads the document. A missing file is an empty document.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("status: reading %s: %w", s.path, err)
	}

	doc := &Document{}
	if s.isTOML() {
		err = toml.Unmarshal(data, doc)
	} else {
		err = yaml.Unmarshal(data, doc)
	}
	if err != nil {
		return nil, fmt.Errorf("status: parsing %s: %w", s.path, err)
	}
	return doc, nil
}

// Save writes the document, replacing the file atomically.
func (s *Store) Save(doc *Document) error {
	var (
		data []byte
		err  error
	)
	if s.isTOML() {
		data, err = toml.Marshal(doc)
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("status: encoding: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".status-*")
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("status: writing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("status: writing: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("status: replacing %s: %w", s.path, err)
	}
	return nil
}

// ByGAV indexes artifact builds by coordinate. When a coordinate appears more
// than once the first entry wins.
func (d *Document) ByGAV() map[string]ArtifactBuild {
	out := make(map[string]ArtifactBuild, len(d.Artifacts))
	for _, a := range d.Artifacts {
		if _, ok := out[a.GAV]; !ok {
			out[a.GAV] = a
		}
	}
	return out
}

// GAVs returns the distinct coordinates, sorted. With missingOnly, only
// artifacts in the missing state are returned.
func (d *Document) GAVs(missingOnly bool) []string {
	var out []string
	for g, a := range d.ByGAV() {
		if missingOnly && a.State != ArtifactBuildMissing {
			continue
		}
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Artifact returns the artifact build for gav.
func (d *Document) Artifact(gav string) (*ArtifactBuild, error) {
	for i := range d.Artifacts {
		if d.Artifacts[i].GAV == gav {
			return &d.Artifacts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, gav)
}

// RequestRebuild annotates the artifact build for gav so the pipeline
// rebuilds it, optionally clearing its cache first.
func (d *Document) RequestRebuild(gav string, clearCache bool) error {
	a, err := d.Artifact(gav)
	if err != nil {
		return err
	}
	if a.Annotations == nil {
		a.Annotations = make(map[string]string)
	}
	a.Annotations[Rebuild] = "true"
	if clearCache {
		a.Annotations[ClearCache] = "true"
	}
	return nil
}

// Contaminated returns dependency builds in the contaminated state, sorted
// by name.
func (d *Document) Contaminated() []DependencyBuild {
	var out []DependencyBuild
	for _, b := range d.Dependencies {
		if b.Status.State == DependencyBuildContaminated {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
