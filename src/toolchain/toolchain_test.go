package toolchain

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBuildFile(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, BuildFile)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestResolver(buf *bytes.Buffer) *Resolver {
	return NewResolver(zerolog.New(buf))
}

func TestRangeForPinnedVersions(t *testing.T) {
	for v := 7; v <= 21; v++ {
		s := strconv.Itoa(v)
		got := RangeFor(JavaVersion(v))
		assert.Equal(t, VersionRange{Min: s, Max: s, Preferred: s}, got, "java %d", v)
		assert.True(t, got.Valid())
	}
}

func TestRangeForLegacyAndUnknown(t *testing.T) {
	tests := []struct {
		name string
		in   JavaVersion
		want VersionRange
	}{
		{"unknown", Unknown, VersionRange{"7", "17", "8"}},
		{"java 6", 6, VersionRange{"7", "11", "8"}},
		{"java 5", 5, VersionRange{"7", "8", "8"}},
		{"java 3", 3, VersionRange{"7", "8", "8"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RangeFor(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestVersionRangeValid(t *testing.T) {
	assert.False(t, VersionRange{Min: "11", Max: "8", Preferred: "9"}.Valid())
	assert.False(t, VersionRange{Min: "7", Max: "8", Preferred: "11"}.Valid())
	assert.False(t, VersionRange{Min: "x", Max: "8", Preferred: "8"}.Valid())
	assert.True(t, VersionRange{Min: "8", Max: "17", Preferred: "11"}.Valid())
}

func TestAntVersionFor(t *testing.T) {
	assert.Equal(t, AntVersionJava8, AntVersionFor(""))
	for v := 8; v <= 21; v++ {
		assert.Equal(t, AntVersionJava8, AntVersionFor(strconv.Itoa(v)), "java %d", v)
	}
	assert.Equal(t, AntVersionJava5, AntVersionFor("7"))
	assert.Equal(t, AntVersionJava5, AntVersionFor("5"))
	assert.Equal(t, AntVersionJava8, AntVersionFor("bogus"))
}

func TestParseJavaVersion(t *testing.T) {
	tests := map[string]JavaVersion{
		"1.5":       5,
		"1.6":       6,
		"1.8":       8,
		"8":         8,
		"11":        11,
		"11.0.2":    11,
		"1.8.0_181": 8,
		" 17 ":      17,
	}
	for in, want := range tests {
		got, err := ParseJavaVersion(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "java8", "${java.level}", "0"} {
		_, err := ParseJavaVersion(bad)
		assert.Error(t, err, bad)
	}
}

func TestJavaVersionTargetWinsOverSource(t *testing.T) {
	dir := t.TempDir()
	writeBuildFile(t, dir, `<project name="demo" default="jar">
  <property name="ant.build.javac.source" value="1.5"/>
  <property name="ant.build.javac.target" value="1.8"/>
</project>`)

	var logs bytes.Buffer
	r := newTestResolver(&logs)
	assert.Equal(t, JavaVersion(8), r.JavaVersion(dir))
	assert.Equal(t, VersionRange{"8", "8", "8"}, r.VersionRange(dir))
}

func TestJavaVersionFallsBackToSource(t *testing.T) {
	dir := t.TempDir()
	path := writeBuildFile(t, dir, `<project name="demo">
  <property name="ant.build.javac.target" value=""/>
  <property name="ant.build.javac.source" value="1.6"/>
</project>`)

	var logs bytes.Buffer
	r := newTestResolver(&logs)
	assert.Equal(t, JavaVersion(6), r.JavaVersion(path))
	assert.Equal(t, VersionRange{"7", "11", "8"}, r.VersionRange(path))
}

func TestJavaVersionMissingDescriptor(t *testing.T) {
	var logs bytes.Buffer
	r := newTestResolver(&logs)

	dir := t.TempDir()
	assert.Equal(t, Unknown, r.JavaVersion(dir))
	assert.Equal(t, VersionRange{"7", "17", "8"}, r.VersionRange(dir))
	assert.Equal(t, Unknown, r.JavaVersion(filepath.Join(dir, "nope.xml")))
}

func TestJavaVersionBrokenDescriptorIsLogged(t *testing.T) {
	dir := t.TempDir()
	writeBuildFile(t, dir, `<project><property name="ant.build.javac.target" value="1.7"`)

	var logs bytes.Buffer
	r := newTestResolver(&logs)
	assert.Equal(t, Unknown, r.JavaVersion(dir))
	assert.Equal(t, VersionRange{"7", "17", "8"}, r.VersionRange(dir))
	assert.Contains(t, logs.String(), "Failed to determine Java version for ant project")
}

func TestJavaVersionUnparseableValue(t *testing.T) {
	dir := t.TempDir()
	writeBuildFile(t, dir, `<project>
  <property name="ant.build.javac.target" value="${javac.level}"/>
</project>`)

	var logs bytes.Buffer
	r := newTestResolver(&logs)
	assert.Equal(t, Unknown, r.JavaVersion(dir))
	assert.Contains(t, logs.String(), "Failed to determine Java version")
}

func TestResolveSelection(t *testing.T) {
	dir := t.TempDir()
	writeBuildFile(t, dir, `<project>
  <property name="ant.build.javac.target" value="1.7"/>
</project>`)

	var logs bytes.Buffer
	sel := newTestResolver(&logs).Resolve(dir)
	assert.Equal(t, JavaVersion(7), sel.Java)
	assert.Equal(t, VersionRange{"7", "7", "7"}, sel.Range)
	assert.Equal(t, AntVersionJava5, sel.Ant)

	sel = newTestResolver(&logs).Resolve(t.TempDir())
	assert.Equal(t, Unknown, sel.Java)
	assert.Equal(t, AntVersionJava8, sel.Ant)
}

func TestIsAntBuild(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsAntBuild(dir))
	path := writeBuildFile(t, dir, `<project/>`)
	assert.True(t, IsAntBuild(dir))
	assert.True(t, IsAntBuild(path))
}

func TestDefaultAntArgsIsACopy(t *testing.T) {
	args := DefaultAntArgs()
	args[0] = "-q"
	assert.Equal(t, []string{"-v"}, DefaultAntArgs())
}
