package registry

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basic(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

func TestImageNameOmitsDefaultPort(t *testing.T) {
	target := Target{Host: "reg.io", Port: 443, Owner: "org", Repository: "artifacts"}
	assert.Equal(t, "reg.io/org/artifacts:v1", target.ImageName("v1"))

	target.Port = 5000
	assert.Equal(t, "reg.io:5000/org/artifacts:v1", target.ImageName("v1"))
	assert.Equal(t, "reg.io:5000", target.Registry())

	target.Port = 0
	assert.Equal(t, "reg.io/org/artifacts", target.FullName())
}

func TestTargetValidate(t *testing.T) {
	assert.NoError(t, Target{Host: "h", Owner: "o", Repository: "r", Port: 443}.Validate())

	err := Target{Host: "h"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner, repository")

	assert.Error(t, Target{Host: "h", Owner: "o", Repository: "r", Port: 70000}.Validate())
}

func TestResolveCredentialsFromDocument(t *testing.T) {
	doc := `{"registry.example.com/org": {"auth": "` + basic("bob", "secret") + `"}}`

	creds, err := ResolveCredentials(doc, "registry.example.com/org/repo")
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "bob", creds.Username)
	assert.Equal(t, "secret", creds.Password)
}

func TestResolveCredentialsAuthsWrapper(t *testing.T) {
	doc := `{"auths": {"quay.io": {"auth": "` + basic("robot", "pw:with:colons") + `"}}}`

	creds, err := ResolveCredentials(doc, "quay.io/org/repo")
	require.NoError(t, err)
	assert.Equal(t, &Credentials{Username: "robot", Password: "pw:with:colons"}, creds)
}

func TestResolveCredentialsLongestPrefixWins(t *testing.T) {
	doc := `{"auths": {
		"quay.io": {"auth": "` + basic("generic", "a") + `"},
		"quay.io/org/repo": {"auth": "` + basic("specific", "b") + `"},
		"quay.io/org": {"auth": "` + basic("owner", "c") + `"}
	}}`

	for i := 0; i < 20; i++ {
		creds, err := ResolveCredentials(doc, "quay.io/org/repo")
		require.NoError(t, err)
		assert.Equal(t, "specific", creds.Username)
	}
}

func TestResolveCredentialsNoMatch(t *testing.T) {
	doc := `{"auths": {"other.example.com/org": {"auth": "` + basic("bob", "secret") + `"}}}`

	_, err := ResolveCredentials(doc, "registry.example.com/org/repo")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthConfigNotFound)
	assert.Contains(t, err.Error(), "other.example.com/org")
}

func TestResolveCredentialsUsernamePasswordFields(t *testing.T) {
	doc := `{"auths": {"reg.io": {"username": "u", "password": "p"}}}`

	creds, err := ResolveCredentials(doc, "reg.io/o/r")
	require.NoError(t, err)
	assert.Equal(t, &Credentials{Username: "u", Password: "p"}, creds)
}

func TestResolveCredentialsRawToken(t *testing.T) {
	creds, err := ResolveCredentials(basic("alice", "hunter2"), "reg.io/o/r")
	require.NoError(t, err)
	assert.Equal(t, &Credentials{Username: "alice", Password: "hunter2"}, creds)

	unpadded := base64.RawStdEncoding.EncodeToString([]byte("al:x"))
	creds, err = ResolveCredentials(unpadded, "reg.io/o/r")
	require.NoError(t, err)
	assert.Equal(t, "al", creds.Username)
}

func TestResolveCredentialsBlankIsAnonymous(t *testing.T) {
	creds, err := ResolveCredentials("   ", "reg.io/o/r")
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestResolveCredentialsErrors(t *testing.T) {
	_, err := ResolveCredentials("{not json", "reg.io/o/r")
	assert.Error(t, err)

	_, err = ResolveCredentials(base64.StdEncoding.EncodeToString([]byte("nocolon")), "reg.io/o/r")
	assert.Error(t, err)

	_, err = ResolveCredentials("%%%", "reg.io/o/r")
	assert.Error(t, err)
}

func TestCredentialsStringHidesPassword(t *testing.T) {
	assert.Equal(t, "bob:***", Credentials{Username: "bob", Password: "secret"}.String())
}

func TestTokenSourcePriority(t *testing.T) {
	t.Setenv("REBUILDKIT_TEST_TOKEN", "from-env")
	file := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(file, []byte("from-file\n"), 0o600))

	tok, err := TokenSource{Value: "explicit", Env: "REBUILDKIT_TEST_TOKEN", File: file}.Token()
	require.NoError(t, err)
	assert.Equal(t, "explicit", tok)

	tok, err = TokenSource{Env: "REBUILDKIT_TEST_TOKEN", File: file}.Token()
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)

	tok, err = TokenSource{Env: "REBUILDKIT_UNSET_TOKEN", File: file}.Token()
	require.NoError(t, err)
	assert.Equal(t, "from-file", tok)

	tok, err = TokenSource{}.Token()
	require.NoError(t, err)
	assert.Empty(t, tok)

	_, err = TokenSource{File: filepath.Join(t.TempDir(), "missing")}.Token()
	assert.Error(t, err)
}
