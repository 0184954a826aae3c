package fetch

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marwanelaks/optimize"
)

func writeFiles(t *testing.T, bfs billy.Filesystem, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, util.WriteFile(bfs, name, []byte(content), 0o644))
	}
}

func TestTreeFiles(t *testing.T) {
	bfs := memfs.New()
	writeFiles(t, bfs, map[string]string{
		"index.html":     "<html></html>",
		"css/site.css":   "a{}",
		".git/config":    "[core]",
		".git/HEAD":      "ref: refs/heads/main",
		"assets/logo.js": "x",
	})

	files, err := treeFiles(bfs, optimize.DefaultReadOptions)
	require.NoError(t, err)
	require.Len(t, files, 3)

	// Lexical order, .git excluded.
	assert.Equal(t, "assets/logo.js", files[0].Path)
	assert.Equal(t, "css/site.css", files[1].Path)
	assert.Equal(t, "index.html", files[2].Path)
	assert.Equal(t, []byte("a{}"), files[1].Data)
}

func TestTreeFiles_Empty(t *testing.T) {
	_, err := treeFiles(memfs.New(), optimize.DefaultReadOptions)
	assert.Error(t, err)
}

func TestTreeFiles_SizeCeiling(t *testing.T) {
	bfs := memfs.New()
	writeFiles(t, bfs, map[string]string{
		"big.bin": string(make([]byte, 128)),
	})

	read := optimize.DefaultReadOptions
	read.MaxFileSize = 64

	_, err := treeFiles(bfs, read)
	assert.Error(t, err)
}

func TestStripArchiveRoot(t *testing.T) {
	files := []optimize.SourceFile{
		{Path: "owner-repo-abc123/index.html"},
		{Path: "owner-repo-abc123/css/site.css"},
	}

	stripped := stripArchiveRoot(files)
	require.Len(t, stripped, 2)
	assert.Equal(t, "index.html", stripped[0].Path)
	assert.Equal(t, "css/site.css", stripped[1].Path)
}

func TestStripArchiveRoot_NoSharedRoot(t *testing.T) {
	files := []optimize.SourceFile{
		{Path: "a/index.html"},
		{Path: "b/site.css"},
	}

	// Without a single shared root the paths stay untouched.
	assert.Equal(t, files, stripArchiveRoot(files))
}

func TestStripArchiveRoot_TopLevelFile(t *testing.T) {
	files := []optimize.SourceFile{{Path: "index.html"}}
	assert.Equal(t, files, stripArchiveRoot(files))
}

func TestStripArchiveRoot_Empty(t *testing.T) {
	assert.Empty(t, stripArchiveRoot(nil))
}

func TestCloneTree_EmptyURL(t *testing.T) {
	_, err := CloneTree(context.Background(), "", CloneOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, optimize.ErrSourceFetchFailed)
}

func TestReadOptions_ZeroValueDefaults(t *testing.T) {
	assert.Equal(t, optimize.DefaultReadOptions, readOptions(optimize.ReadOptions{}))

	custom := optimize.ReadOptions{MaxFiles: 5, MaxTotalSize: 10, MaxFileSize: 10}
	assert.Equal(t, custom, readOptions(custom))
}
