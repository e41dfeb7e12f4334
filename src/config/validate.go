package config

import (
	"fmt"
	"strings"

	"github.com/sofmeright/rebuildkit/src/logscan"
)

// Validate checks structural invariants of a loaded Config.
// Returns warnings (soft issues) and a hard error if the config is invalid.
func Validate(cfg *Config) (warnings []string, err error) {
	var errs []string

	// ── Version ───────────────────────────────────────────────────────────

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("version: must be 1, got %d", cfg.Version))
	}

	// ── Registry ──────────────────────────────────────────────────────────

	r := cfg.Registry
	if r.Host == "" {
		errs = append(errs, "registry.host: required")
	}
	if r.Repository == "" {
		errs = append(errs, "registry.repository: required")
	}
	if r.Owner == "" {
		warnings = append(warnings, "registry.owner: not set; deploy commands need --owner")
	}
	if r.Port < 0 || r.Port > 65535 {
		errs = append(errs, fmt.Sprintf("registry.port: %d out of range", r.Port))
	}
	if d, perr := r.Timeout(); perr != nil {
		errs = append(errs, fmt.Sprintf("registry.http_timeout: %v", perr))
	} else if d < 0 {
		errs = append(errs, "registry.http_timeout: must not be negative")
	}
	if r.Insecure {
		warnings = append(warnings, "registry.insecure: TLS verification disabled and credentials may be sent over HTTP")
	}
	if r.TokenEnv == "" && r.TokenFile == "" {
		warnings = append(warnings, "registry: no token_env or token_file; pushes will be anonymous")
	}

	// ── Deploy ────────────────────────────────────────────────────────────

	if _, perr := logscan.ParsePolicy(cfg.Deploy.LogSecrets); perr != nil {
		errs = append(errs, fmt.Sprintf("deploy.log_secrets: %v", perr))
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return warnings, nil
}
