// Package registry describes where rebuilt artifact images are published and
// resolves the credentials used to publish them. Image references are built
// here so every deploy operation names images identically.
package registry

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultPort is the HTTPS port; it is left out of image names.
const DefaultPort = 443

// Target is a repository in an OCI registry.
type Target struct {
	Host       string
	Port       int
	Owner      string
	Repository string
	// Insecure allows plain HTTP and self-signed certificates, and with them
	// sending credentials over HTTP.
	Insecure bool

	// Credentials is nil for anonymous access.
	Credentials *Credentials
}

// Validate checks that the target can form an image name.
func (t Target) Validate() error {
	var missing []string
	if t.Host == "" {
		missing = append(missing, "host")
	}
	if t.Owner == "" {
		missing = append(missing, "owner")
	}
	if t.Repository == "" {
		missing = append(missing, "repository")
	}
	if len(missing) > 0 {
		return fmt.Errorf("registry: target is missing %s", strings.Join(missing, ", "))
	}
	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("registry: invalid port %d", t.Port)
	}
	return nil
}

// Registry returns host[:port], omitting the port when it is 443 or unset.
func (t Target) Registry() string {
	if t.Port == DefaultPort || t.Port == 0 {
		return t.Host
	}
	return t.Host + ":" + strconv.Itoa(t.Port)
}

// FullName returns the fully qualified repository, host[:port]/owner/repo.
// Credential documents are matched against this string.
func (t Target) FullName() string {
	return t.Registry() + "/" + t.Owner + "/" + t.Repository
}

// ImageName returns the reference of tag within the target repository.
func (t Target) ImageName(tag string) string {
	return t.FullName() + ":" + tag
}

// String is the target without credentials, for logs.
func (t Target) String() string {
	return t.FullName()
}

// TokenSource lists the places a registry token may come from, in priority
// order: an explicit value, an environment variable, then a file (typically
// a mounted .dockerconfigjson secret).
type TokenSource struct {
	Value string
	Env   string
	File  string
}

// Token returns the first non-blank token. An empty result means anonymous
// access. A configured file that cannot be read is an error.
func (s TokenSource) Token() (string, error) {
	if strings.TrimSpace(s.Value) != "" {
		return s.Value, nil
	}
	if s.Env != "" {
		if v := os.Getenv(s.Env); strings.TrimSpace(v) != "" {
			return v, nil
		}
	}
	if s.File != "" {
		data, err := os.ReadFile(s.File)
		if err != nil {
			return "", fmt.Errorf("registry: reading token file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return "", nil
}
