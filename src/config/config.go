package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".rebuildkit.yml"

// Config is the top-level rebuildkit configuration.
type Config struct {
	Version   int             `yaml:"version" toml:"version"`
	Registry  RegistryConfig  `yaml:"registry" toml:"registry"`
	Deploy    DeployConfig    `yaml:"deploy" toml:"deploy"`
	Toolchain ToolchainConfig `yaml:"toolchain" toml:"toolchain"`
}

// Load reads configuration from a YAML file, or TOML when the file name ends
// in .toml. If path is empty, it tries the default file.
// Returns defaults if the file doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaults(), nil
		}
		return nil, err
	}

	cfg := defaults()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Version:   1,
		Registry:  DefaultRegistryConfig(),
		Deploy:    DefaultDeployConfig(),
		Toolchain: DefaultToolchainConfig(),
	}
}
