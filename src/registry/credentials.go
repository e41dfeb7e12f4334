package registry

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrAuthConfigNotFound means a credential document had no entry for the
// target repository. It is a configuration error, retrying will not help.
var ErrAuthConfigNotFound = errors.New("registry: no matching auth config")

// Credentials is a username/password pair for basic auth.
type Credentials struct {
	Username string
	Password string
}

// String hides the password.
func (c Credentials) String() string {
	return c.Username + ":***"
}

// authDocument is a docker config.json / .dockerconfigjson document.
type authDocument struct {
	Auths map[string]authEntry `json:"auths"`
}

type authEntry struct {
	Auth     string `json:"auth,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// ResolveCredentials turns a raw token into credentials for fullName
// (host[:port]/owner/repo). The token is either a credential document (JSON
// starting with "{") or a base64 encoded "user:password" pair. A blank token
// yields nil credentials.
//
// Document keys are prefixes of fullName; when several match, the longest
// wins so "quay.io/org/repo" beats "quay.io".
func ResolveCredentials(token, fullName string) (*Credentials, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	if strings.HasPrefix(token, "{") {
		return credentialsFromDocument(token, fullName)
	}
	return decodeBasicAuth(token)
}

func credentialsFromDocument(doc, fullName string) (*Credentials, error) {
	auths, err := parseAuthDocument(doc)
	if err != nil {
		return nil, err
	}

	var (
		bestKey string
		found   bool
	)
	for key := range auths {
		if !strings.HasPrefix(fullName, key) {
			continue
		}
		if !found || len(key) > len(bestKey) || (len(key) == len(bestKey) && key < bestKey) {
			bestKey = key
			found = true
		}
	}
	if !found {
		hosts := make([]string, 0, len(auths))
		for key := range auths {
			hosts = append(hosts, key)
		}
		sort.Strings(hosts)
		return nil, fmt.Errorf("%w: unable to find a host matching %s, hosts provided: %v",
			ErrAuthConfigNotFound, fullName, hosts)
	}

	entry := auths[bestKey]
	if entry.Auth == "" && entry.Username != "" {
		return &Credentials{Username: entry.Username, Password: entry.Password}, nil
	}
	creds, err := decodeBasicAuth(entry.Auth)
	if err != nil {
		return nil, fmt.Errorf("registry: auth for %s: %w", bestKey, err)
	}
	return creds, nil
}

// parseAuthDocument accepts {"auths": {...}} as well as a bare map of
// prefix to entry.
func parseAuthDocument(doc string) (map[string]authEntry, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return nil, fmt.Errorf("registry: parsing credential document: %w", err)
	}
	if _, ok := raw["auths"]; ok {
		var d authDocument
		if err := json.Unmarshal([]byte(doc), &d); err != nil {
			return nil, fmt.Errorf("registry: parsing credential document: %w", err)
		}
		return d.Auths, nil
	}

	auths := make(map[string]authEntry, len(raw))
	for key, value := range raw {
		var e authEntry
		if err := json.Unmarshal(value, &e); err != nil {
			return nil, fmt.Errorf("registry: parsing credential document entry %q: %w", key, err)
		}
		auths[key] = e
	}
	return auths, nil
}

func decodeBasicAuth(encoded string) (*Credentials, error) {
	encoded = strings.TrimSpace(encoded)
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, fmt.Errorf("registry: decoding token: %w", err)
		}
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return nil, fmt.Errorf("registry: decoded token is not user:password")
	}
	return &Credentials{Username: user, Password: pass}, nil
}
