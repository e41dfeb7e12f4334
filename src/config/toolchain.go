package config

import "github.com/sofmeright/rebuildkit/src/toolchain"

// ToolchainConfig holds settings for toolchain resolution.
type ToolchainConfig struct {
	// Descriptor is the Ant build file or the directory containing it.
	Descriptor string `yaml:"descriptor" toml:"descriptor"`
}

// DefaultToolchainConfig returns sensible defaults for toolchain settings.
func DefaultToolchainConfig() ToolchainConfig {
	return ToolchainConfig{Descriptor: toolchain.BuildFile}
}
