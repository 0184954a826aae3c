package optimize

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTree_LexicalOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"z.txt":       {Data: []byte("z")},
		"a/nested.js": {Data: []byte("nested")},
		"m.css":       {Data: []byte("m")},
	}

	files, err := ReadTree(fsys, DefaultReadOptions)
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, "a/nested.js", files[0].Path)
	assert.Equal(t, "m.css", files[1].Path)
	assert.Equal(t, "z.txt", files[2].Path)
	assert.Equal(t, []byte("nested"), files[0].Data)
}

func TestReadTree_Empty(t *testing.T) {
	_, err := ReadTree(fstest.MapFS{}, DefaultReadOptions)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyArchive)
}

func TestReadTree_TotalTooLarge(t *testing.T) {
	fsys := fstest.MapFS{
		"a.bin": {Data: make([]byte, 40)},
		"b.bin": {Data: make([]byte, 40)},
	}

	opts := DefaultReadOptions
	opts.MaxTotalSize = 64

	_, err := ReadTree(fsys, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArchiveTooLarge)
}

func TestReadTree_TooManyFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"a.txt": {Data: []byte("a")},
		"b.txt": {Data: []byte("b")},
	}

	opts := DefaultReadOptions
	opts.MaxFiles = 1

	_, err := ReadTree(fsys, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArchiveTooLarge)
}
