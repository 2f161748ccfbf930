package fsx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePathValid(t *testing.T) {
	cases := []string{"/", "/a", "/a/b/c", "/a.txt", "/with space", "/.hidden"}
	for _, s := range cases {
		p, err := ParsePath(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, p.String())
	}
}

func TestParsePathRejectsEmpty(t *testing.T) {
	_, err := ParsePath("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestParsePathRejectsRelative(t *testing.T) {
	_, err := ParsePath("a/b")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestParsePathRejectsDotDot(t *testing.T) {
	cases := []string{"/..", "/a/../b", "/a/b/..", "/..hidden"}
	for _, s := range cases {
		_, err := ParsePath(s)
		require.Error(t, err, s)
		assert.ErrorIs(t, err, ErrInvalidPath)
	}
}

func TestParsePathRejectsNulByte(t *testing.T) {
	_, err := ParsePath("/a\x00b")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestParsePathPerformsNoNormalization(t *testing.T) {
	p, err := ParsePath("/a//b/")
	require.NoError(t, err)
	assert.Equal(t, "/a//b/", p.String())
}

func TestPathIsRoot(t *testing.T) {
	root, err := ParsePath("/")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())

	nonRoot, err := ParsePath("/a")
	require.NoError(t, err)
	assert.False(t, nonRoot.IsRoot())
}

func TestPathBase(t *testing.T) {
	assert.Equal(t, "", Root.Base())

	p, err := ParsePath("/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "c", p.Base())
}

func TestPathParent(t *testing.T) {
	p, err := ParsePath("/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "/a/b", p.Parent().String())

	top, err := ParsePath("/a")
	require.NoError(t, err)
	assert.True(t, top.Parent().IsRoot())

	assert.True(t, Root.Parent().IsRoot(), "Parent on root returns Root rather than panicking")
}

func TestPathEqual(t *testing.T) {
	a, _ := ParsePath("/a/b")
	b, _ := ParsePath("/a/b")
	c, _ := ParsePath("/a/c")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
