package config

import (
	"time"

	"github.com/sofmeright/rebuildkit/src/registry"
)

// RegistryConfig locates the repository images are published to.
type RegistryConfig struct {
	Host       string `yaml:"host" toml:"host"`
	Port       int    `yaml:"port" toml:"port"`
	Owner      string `yaml:"owner" toml:"owner"`
	Repository string `yaml:"repository" toml:"repository"`
	Insecure   bool   `yaml:"insecure" toml:"insecure"`

	// TokenEnv names the environment variable holding the registry token,
	// either base64 user:password or a docker config JSON document.
	TokenEnv string `yaml:"token_env" toml:"token_env"`
	// TokenFile is read when TokenEnv is unset or empty.
	TokenFile string `yaml:"token_file,omitempty" toml:"token_file,omitempty"`

	PrependTag string `yaml:"prepend_tag,omitempty" toml:"prepend_tag,omitempty"`
	ImageID    string `yaml:"image_id,omitempty" toml:"image_id,omitempty"`

	// HTTPTimeout is a Go duration string, e.g. "5m".
	HTTPTimeout string `yaml:"http_timeout" toml:"http_timeout"`
}

// DefaultRegistryConfig returns sensible defaults for registry settings.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Host:        "quay.io",
		Port:        registry.DefaultPort,
		Repository:  "artifact-deployments",
		TokenEnv:    "REGISTRY_TOKEN",
		HTTPTimeout: "5m",
	}
}

// Timeout parses HTTPTimeout. Empty means zero, which callers treat as the
// packager default.
func (r RegistryConfig) Timeout() (time.Duration, error) {
	if r.HTTPTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(r.HTTPTimeout)
}

// Target converts the settings into a registry target without credentials.
func (r RegistryConfig) Target() registry.Target {
	return registry.Target{
		Host:       r.Host,
		Port:       r.Port,
		Owner:      r.Owner,
		Repository: r.Repository,
		Insecure:   r.Insecure,
	}
}

// TokenSource returns where the registry token is read from.
func (r RegistryConfig) TokenSource() registry.TokenSource {
	return registry.TokenSource{Env: r.TokenEnv, File: r.TokenFile}
}
