package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/rebuildkit/src/status"
)

// run executes the root command with a fresh config and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	cfg = nil
	t.Cleanup(func() { cfg = nil })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "rebuildkit dev")
}

func TestToolchainResolveEnv(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "build.xml"), `<project name="legacy" default="jar">
  <property name="ant.build.javac.source" value="1.6"/>
</project>`)

	out, err := run(t, "--config", filepath.Join(dir, "none.yml"), "toolchain", "resolve", "--output", "env", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "JAVA_VERSION=6\n")
	assert.Contains(t, out, "JDK_MIN=7\n")
	assert.Contains(t, out, "JDK_MAX=11\n")
	assert.Contains(t, out, "JDK_PREFERRED=8\n")
	assert.Contains(t, out, "ANT_VERSION=1.9.16\n")
	assert.Contains(t, out, `ANT_ARGS="-v"`)
}

func TestToolchainResolveUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "--config", filepath.Join(dir, "none.yml"), "toolchain", "resolve", "--output", "xml", dir)
	assert.ErrorContains(t, err, "unknown output format")
	trOutput = "text"
}

func TestArtifactsListAndRebuild(t *testing.T) {
	dir := t.TempDir()
	statusFile := filepath.Join(dir, "status.yml")
	writeTestFile(t, statusFile, `
artifacts:
  - {name: a, gav: "org.a:a:1", state: ArtifactBuildComplete}
  - {name: b, gav: "org.b:b:2", state: ArtifactBuildMissing}
`)
	configFile := filepath.Join(dir, "rebuildkit.yml")
	writeTestFile(t, configFile, "deploy:\n  status_file: "+statusFile+"\n")

	out, err := run(t, "--config", configFile, "artifacts", "list", "--missing")
	require.NoError(t, err)
	assert.Contains(t, out, "Artifacts (1)")
	assert.Contains(t, out, "org.b:b:2")
	assert.NotContains(t, out, "org.a:a:1")
	alMissing = false

	_, err = run(t, "--config", configFile, "artifacts", "rebuild", "org.a:a:1")
	require.NoError(t, err)

	doc, err := status.NewStore(statusFile).Load()
	require.NoError(t, err)
	a, err := doc.Artifact("org.a:a:1")
	require.NoError(t, err)
	assert.Equal(t, "true", a.Annotations[status.Rebuild])
}

func TestLogsScanInCollapsibleSection(t *testing.T) {
	t.Setenv("GITLAB_CI", "true")
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "logs", "deploy.log"), "export AWS_ACCESS_KEY_ID=AKIA"+"QZ3MSJV4WWNKWT5X\n")
	t.Cleanup(func() { lsPolicy = "" })

	out, err := run(t, "--config", filepath.Join(dir, "none.yml"), "logs", "scan", "--policy", "warn", filepath.Join(dir, "logs"))
	require.NoError(t, err)
	start := strings.Index(out, "section_start:")
	end := strings.Index(out, "section_end:")
	require.GreaterOrEqual(t, start, 0)
	require.Greater(t, end, start)
	assert.Contains(t, out[start:], "logs_scan")
	assert.Contains(t, out[end:], "✓")
	assert.Contains(t, out[end:], "Log Secrets")

	_, err = run(t, "--config", filepath.Join(dir, "none.yml"), "logs", "scan", "--policy", "fail", filepath.Join(dir, "logs"))
	assert.ErrorContains(t, err, "possible secret")
}

func TestCompleteGAVs(t *testing.T) {
	dir := t.TempDir()
	statusFile := filepath.Join(dir, "status.yml")
	writeTestFile(t, statusFile, `
artifacts:
  - {name: a, gav: "org.a:a:1", state: ArtifactBuildComplete}
  - {name: b, gav: "org.b:b:2", state: ArtifactBuildMissing}
  - {name: c, gav: "com.c:c:3", state: ArtifactBuildMissing}
`)
	cfgFile = filepath.Join(dir, "rebuildkit.yml")
	writeTestFile(t, cfgFile, "deploy:\n  status_file: "+statusFile+"\n")
	cfg = nil
	t.Cleanup(func() { cfg, cfgFile = nil, "" })

	got, _ := completeGAVs(false)(deployTagCmd, []string{"org.a:a:1"}, "org.")
	assert.Equal(t, []string{"org.b:b:2"}, got)

	got, _ = completeGAVs(true)(deployTagCmd, nil, "")
	assert.Equal(t, []string{"com.c:c:3", "org.b:b:2"}, got)
}

func TestDeployTagRequiresArgs(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "none.yml"), "deploy", "tag")
	assert.Error(t, err)
}
