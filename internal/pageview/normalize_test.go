package pageview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePathStripsQueryFragmentAndTrailingSlash(t *testing.T) {
	require.Equal(t, "/foo/bar", NormalizePath("/foo/bar/?x=1#y"))
	require.Equal(t, "/foo/bar", NormalizePath("/foo/bar#section"))
	require.Equal(t, "/foo/bar", NormalizePath("/foo/bar/"))
	require.Equal(t, "/", NormalizePath("/"))
	require.Equal(t, "", NormalizePath("?only=query"))
}

func TestNormalizePathIsIdempotent(t *testing.T) {
	inputs := []string{
		"/foo/bar/?x=1#y",
		"/standard/abc",
		"/",
		"",
		"/a/b/c/",
		"no-leading-slash?q=1",
	}
	for _, input := range inputs {
		once := NormalizePath(input)
		require.Equal(t, once, NormalizePath(once), "input %q", input)
	}
}

func TestIsAllowedPathBlocksOperationalPaths(t *testing.T) {
	require.False(t, IsAllowedPath("/admin"))
	require.False(t, IsAllowedPath("/admin/x"))
	require.False(t, IsAllowedPath("/login"))
	require.False(t, IsAllowedPath("/api/x"))
	require.False(t, IsAllowedPath("/uploads/file.pdf"))
	require.False(t, IsAllowedPath("/favicon.ico"))
	require.False(t, IsAllowedPath("/robots.txt"))
}

func TestIsAllowedPathRequiresSegmentBoundary(t *testing.T) {
	require.True(t, IsAllowedPath("/administration"))
	require.True(t, IsAllowedPath("/apiary"))
	require.True(t, IsAllowedPath("/loginhelp"))
}

func TestIsAllowedPathAcceptsContentPaths(t *testing.T) {
	require.True(t, IsAllowedPath("/"))
	require.True(t, IsAllowedPath("/standard/abc"))
	require.True(t, IsAllowedPath("/subject/s1"))
	require.True(t, IsAllowedPath("/chapter/c1"))
}

func TestIsAllowedPathRejectsMalformedPaths(t *testing.T) {
	require.False(t, IsAllowedPath(""))
	require.False(t, IsAllowedPath("standard/abc"))
	require.False(t, IsAllowedPath("/"+strings.Repeat("a", 501)))
}
