package config

// DeployConfig holds settings for image deployment.
type DeployConfig struct {
	// LogSecrets is the secret scan policy for build logs: off, warn or fail.
	LogSecrets string `yaml:"log_secrets" toml:"log_secrets"`
	// ScratchDir stages layer archives; the system temp dir when empty.
	ScratchDir string `yaml:"scratch_dir,omitempty" toml:"scratch_dir,omitempty"`
	// StatusFile is the dependency build status document.
	StatusFile string `yaml:"status_file" toml:"status_file"`
}

// DefaultDeployConfig returns sensible defaults for deploy settings.
func DefaultDeployConfig() DeployConfig {
	return DeployConfig{
		LogSecrets: "warn",
		StatusFile: "rebuild-status.yml",
	}
}
