package gav

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	g, err := Parse("org.apache.commons:commons-lang3:3.12.0", "")
	require.NoError(t, err)
	assert.Equal(t, "org.apache.commons", g.Group)
	assert.Equal(t, "commons-lang3", g.Artifact)
	assert.Equal(t, "3.12.0", g.Version)
	assert.Len(t, g.Tag, 64)
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "a:b", "a:b:c:d:e", "a::c", "a:b:c:bad/tag", "a:b:c:-lead"} {
		_, err := Parse(in, "")
		assert.ErrorIs(t, err, ErrMalformed, in)
	}
}

func TestTagRoundTripIsIdempotent(t *testing.T) {
	inputs := []string{
		"io.quarkus:quarkus-core:3.2.0.Final",
		"commons-io:commons-io:2.11.0",
		"com.example:lib:1.0:custom-tag",
	}
	for _, in := range inputs {
		for _, prefix := range []string{"", "attempt-2", strings.Repeat("x", 200)} {
			first, err := Parse(in, prefix)
			require.NoError(t, err)

			again, err := Parse(first.String(), "something-else")
			require.NoError(t, err)
			assert.Equal(t, first.Tag, again.Tag, "%s prefix %q", in, prefix)
			assert.True(t, first.Equal(again))
		}
	}
}

func TestPrependTagDisambiguates(t *testing.T) {
	a, err := Parse("g:a:1", "")
	require.NoError(t, err)
	b, err := Parse("g:a:1", "run 7/retry")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.NotEqual(t, a.Tag, b.Tag)
	assert.True(t, strings.HasPrefix(b.Tag, "run_7_retry_"))
	assert.Regexp(t, tagRe, b.Tag)
}

func TestDeriveTagLengthLimit(t *testing.T) {
	tag := DeriveTag("g:a:1", strings.Repeat("p", 500))
	assert.Len(t, tag, maxTagLength)
	assert.Regexp(t, tagRe, tag)
}

func TestEqualIgnoresTag(t *testing.T) {
	a := GAV{Group: "g", Artifact: "a", Version: "1", Tag: "x"}
	b := GAV{Group: "g", Artifact: "a", Version: "1", Tag: "y"}
	c := GAV{Group: "g", Artifact: "a", Version: "2", Tag: "x"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestSetLabels(t *testing.T) {
	s, err := NewSet([]string{
		"org.b:lib:2.0",
		"org.a:lib:1.0",
		"org.a:core:1.0",
		"org.a:core:1.0",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "org.a,org.b", s.GroupIDs())
	assert.Equal(t, "core,lib", s.ArtifactIDs())
	assert.Equal(t, "1.0,2.0", s.Versions())
	assert.Equal(t, "org.a:core:1.0,org.a:lib:1.0,org.b:lib:2.0", s.Keys())

	sorted := s.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, "org.a:core:1.0", sorted[0].Key())
}

func TestEmptySet(t *testing.T) {
	s, err := NewSet(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "", s.Keys())
}

func TestDeriveTagLeadingSeparator(t *testing.T) {
	for _, prefix := range []string{"-nightly", ".hidden", "-", strings.Repeat("-", 200)} {
		first, err := Parse("org.foo:foo:1.0", prefix)
		require.NoError(t, err)
		assert.Regexp(t, tagRe, first.Tag, "prefix %q", prefix)
		assert.LessOrEqual(t, len(first.Tag), maxTagLength)

		again, err := Parse(first.String(), "")
		require.NoError(t, err, "prefix %q", prefix)
		assert.Equal(t, first.Tag, again.Tag)
	}

	g, err := Parse("org.foo:foo:1.0", "-nightly")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(g.Tag, "_nightly_"))
}
