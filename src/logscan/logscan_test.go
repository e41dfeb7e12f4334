package logscan

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Split so the fixture itself does not trip secret scanners.
var leakedKey = "AKIA" + "QZ3MSJV4WWNKWT5X"

func writeLog(t *testing.T, dir, name, content string) {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": PolicyWarn, "WARN": PolicyWarn, "fail": PolicyFail, " off ": PolicyOff} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParsePolicy("panic")
	assert.Error(t, err)
}

func TestScanCleanLogs(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "build.log", "[javac] Compiling 12 source files\nBUILD SUCCESSFUL\n")

	findings, err := NewScanner(zerolog.Nop()).Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestScanFindsLeakedKey(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.log", "ok\n")
	writeLog(t, dir, "nested/ant.log", "line one\nexport AWS_ACCESS_KEY_ID="+leakedKey+"\n")

	var logs bytes.Buffer
	s := NewScanner(zerolog.New(&logs))
	s.Workers = 2
	findings, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)
	require.NotEmpty(t, findings)
	assert.Equal(t, "nested/ant.log", findings[0].File)
	assert.NotContains(t, findings[0].String(), leakedKey)
}

func TestScanSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "huge.log", "AWS_ACCESS_KEY_ID="+leakedKey+"\n")

	var logs bytes.Buffer
	s := NewScanner(zerolog.New(&logs))
	s.MaxFileSize = 8
	findings, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, findings)
	assert.Contains(t, logs.String(), "too large")
}

func TestScanMissingRoot(t *testing.T) {
	_, err := NewScanner(zerolog.Nop()).Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
