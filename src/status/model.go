// Package status reads and writes the dependency build status document: the
// artifacts a rebuild pipeline knows about and the state of the builds that
// produce them.
package status

import "time"

// Model constants shared with the build service resources.
const (
	Group          = "jvmbuildservice.io"
	Version        = "v1alpha1"
	ClearCache     = Group + "/clear-cache"
	LastClearCache = Group + "/last-clear-cache"
	Rebuild        = Group + "/rebuild"
)

// Artifact build states.
const (
	ArtifactBuildNew         = "ArtifactBuildNew"
	ArtifactBuildDiscovering = "ArtifactBuildDiscovering"
	ArtifactBuildMissing     = "ArtifactBuildMissing"
	ArtifactBuildBuilding    = "ArtifactBuildBuilding"
	ArtifactBuildComplete    = "ArtifactBuildComplete"
	ArtifactBuildFailed      = "ArtifactBuildFailed"
)

// Dependency build states.
const (
	DependencyBuildNew          = "DependencyBuildStateNew"
	DependencyBuildBuilding     = "DependencyBuildStateBuilding"
	DependencyBuildComplete     = "DependencyBuildStateComplete"
	DependencyBuildFailed       = "DependencyBuildStateFailed"
	DependencyBuildContaminated = "DependencyBuildStateContaminated"
)

// ArtifactBuild tracks one requested coordinate.
type ArtifactBuild struct {
	Name        string            `yaml:"name" toml:"name"`
	GAV         string            `yaml:"gav" toml:"gav"`
	State       string            `yaml:"state" toml:"state"`
	Annotations map[string]string `yaml:"annotations,omitempty" toml:"annotations,omitempty"`
}

// BuildRecipe is one way of building a dependency.
type BuildRecipe struct {
	Image          string   `yaml:"image" toml:"image"`
	CommandLine    []string `yaml:"commandLine,omitempty" toml:"commandLine,omitempty"`
	Tool           string   `yaml:"tool,omitempty" toml:"tool,omitempty"`
	ToolVersion    string   `yaml:"toolVersion,omitempty" toml:"toolVersion,omitempty"`
	JavaVersion    string   `yaml:"javaVersion,omitempty" toml:"javaVersion,omitempty"`
	EnforceVersion string   `yaml:"enforceVersion,omitempty" toml:"enforceVersion,omitempty"`
	PreBuildScript string   `yaml:"preBuildScript,omitempty" toml:"preBuildScript,omitempty"`
}

// Contaminant is an upstream coordinate whose shipped binary did not match
// the rebuilt one, with the artifacts it contaminates.
type Contaminant struct {
	GAV                   string   `yaml:"gav" toml:"gav"`
	ContaminatedArtifacts []string `yaml:"contaminatedArtifacts,omitempty" toml:"contaminatedArtifacts,omitempty"`
}

// DependencyBuildStatus is the observed state of one dependency build.
type DependencyBuildStatus struct {
	State                         string        `yaml:"state" toml:"state"`
	Contaminants                  []Contaminant `yaml:"contaminates,omitempty" toml:"contaminates,omitempty"`
	CurrentBuildRecipe            *BuildRecipe  `yaml:"currentBuildRecipe,omitempty" toml:"currentBuildRecipe,omitempty"`
	FailedBuildRecipes            []BuildRecipe `yaml:"failedBuildRecipes,omitempty" toml:"failedBuildRecipes,omitempty"`
	PotentialBuildRecipes         []BuildRecipe `yaml:"potentialBuildRecipes,omitempty" toml:"potentialBuildRecipes,omitempty"`
	LastCompletedBuildPipelineRun string        `yaml:"lastCompletedBuildPipelineRun,omitempty" toml:"lastCompletedBuildPipelineRun,omitempty"`
	DiagnosticDockerFiles         []string      `yaml:"diagnosticDockerFiles,omitempty" toml:"diagnosticDockerFiles,omitempty"`
	// CommitTime is Unix milliseconds.
	CommitTime int64 `yaml:"commitTime,omitempty" toml:"commitTime,omitempty"`
}

// Committed returns CommitTime as a time, zero when unset.
func (s DependencyBuildStatus) Committed() time.Time {
	if s.CommitTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.CommitTime).UTC()
}

// DependencyBuild is one source checkout being rebuilt.
type DependencyBuild struct {
	Name    string                `yaml:"name" toml:"name"`
	ScmURL  string                `yaml:"scmURL,omitempty" toml:"scmURL,omitempty"`
	Tag     string                `yaml:"tag,omitempty" toml:"tag,omitempty"`
	Version string                `yaml:"version,omitempty" toml:"version,omitempty"`
	Status  DependencyBuildStatus `yaml:"status" toml:"status"`
}
