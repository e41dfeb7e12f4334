package status

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `
artifacts:
  - name: commons-io.2.11.0-a1b2
    gav: commons-io:commons-io:2.11.0
    state: ArtifactBuildComplete
  - name: log4j.1.2.17-c3d4
    gav: log4j:log4j:1.2.17
    state: ArtifactBuildMissing
  - name: ant.1.10.13-e5f6
    gav: org.apache.ant:ant:1.10.13
    state: ArtifactBuildMissing
  - name: log4j.1.2.17-dup
    gav: log4j:log4j:1.2.17
    state: ArtifactBuildComplete
dependencies:
  - name: ant-9a8b
    scmURL: https://github.com/apache/ant.git
    tag: rel/1.10.13
    status:
      state: DependencyBuildStateContaminated
      commitTime: 1665000000000
      contaminates:
        - gav: org.apache.ivy:ivy:2.5.0
          contaminatedArtifacts: [org.apache.ant:ant:1.10.13]
      currentBuildRecipe:
        image: quay.io/redhat-appstudio/hacbs-jdk8-builder:latest
        tool: ant
        toolVersion: 1.10.13
        javaVersion: "8"
  - name: commons-io-7c6d
    status:
      state: DependencyBuildStateComplete
`

func writeStatus(t *testing.T, name, content string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return NewStore(path)
}

func TestLoadMissingFile(t *testing.T) {
	doc, err := NewStore(filepath.Join(t.TempDir(), "none.yml")).Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Artifacts)
	assert.Empty(t, doc.GAVs(false))
}

func TestGAVs(t *testing.T) {
	doc, err := writeStatus(t, "status.yml", sampleDocument).Load()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"commons-io:commons-io:2.11.0",
		"log4j:log4j:1.2.17",
		"org.apache.ant:ant:1.10.13",
	}, doc.GAVs(false))
	assert.Equal(t, []string{
		"log4j:log4j:1.2.17",
		"org.apache.ant:ant:1.10.13",
	}, doc.GAVs(true), "first entry for a duplicated coordinate wins")
}

func TestContaminated(t *testing.T) {
	doc, err := writeStatus(t, "status.yml", sampleDocument).Load()
	require.NoError(t, err)

	builds := doc.Contaminated()
	require.Len(t, builds, 1)
	b := builds[0]
	assert.Equal(t, "ant-9a8b", b.Name)
	require.Len(t, b.Status.Contaminants, 1)
	assert.Equal(t, "org.apache.ivy:ivy:2.5.0", b.Status.Contaminants[0].GAV)
	require.NotNil(t, b.Status.CurrentBuildRecipe)
	assert.Equal(t, "8", b.Status.CurrentBuildRecipe.JavaVersion)
	assert.Equal(t, time.Date(2022, 10, 5, 20, 0, 0, 0, time.UTC), b.Status.Committed())
}

func TestRequestRebuildRoundTrip(t *testing.T) {
	store := writeStatus(t, "status.yml", sampleDocument)
	doc, err := store.Load()
	require.NoError(t, err)

	require.NoError(t, doc.RequestRebuild("log4j:log4j:1.2.17", true))
	assert.ErrorIs(t, doc.RequestRebuild("no:such:gav", false), ErrNotFound)
	require.NoError(t, store.Save(doc))

	reloaded, err := store.Load()
	require.NoError(t, err)
	a, err := reloaded.Artifact("log4j:log4j:1.2.17")
	require.NoError(t, err)
	assert.Equal(t, "true", a.Annotations[Rebuild])
	assert.Equal(t, "true", a.Annotations[ClearCache])
	assert.Len(t, reloaded.Dependencies, 2)
}

func TestTOMLStore(t *testing.T) {
	store := writeStatus(t, "status.toml", `
[[artifacts]]
name = "a"
gav = "g:a:1"
state = "ArtifactBuildMissing"
`)
	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"g:a:1"}, doc.GAVs(true))

	require.NoError(t, doc.RequestRebuild("g:a:1", false))
	require.NoError(t, store.Save(doc))
	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "true", reloaded.Artifacts[0].Annotations[Rebuild])
}

func TestLoadMalformed(t *testing.T) {
	_, err := writeStatus(t, "status.yml", "artifacts: {").Load()
	assert.ErrorContains(t, err, "status: parsing")
}
