// Package testutil provides archive builders for pipeline tests,
// including deliberately malicious archives for security testing.
package testutil

import (
	"archive/zip"
	"bytes"
	"io/fs"
)

// Entry is one file to place in a generated archive.
type Entry struct {
	Name string
	Data []byte
}

// BuildZip assembles a zip archive from the given entries, in order.
func BuildZip(entries ...Entry) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			panic(err) // bytes.Buffer writes cannot fail
		}
		if _, err := w.Write(e.Data); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// TraversalZip builds an archive with an entry whose path escapes the
// archive root.
func TraversalZip() []byte {
	return BuildZip(
		Entry{Name: "index.html", Data: []byte("<html></html>")},
		Entry{Name: "../../etc/passwd", Data: []byte("root:x:0:0")},
	)
}

// AbsolutePathZip builds an archive containing an absolute entry path.
func AbsolutePathZip() []byte {
	return BuildZip(Entry{Name: "/etc/passwd", Data: []byte("root:x:0:0")})
}

// SymlinkZip builds an archive containing a symbolic link entry pointing
// outside the archive.
func SymlinkZip() []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	hdr := &zip.FileHeader{Name: "link.html"}
	hdr.SetMode(fs.ModeSymlink | 0o777)
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write([]byte("/etc/passwd")); err != nil {
		panic(err)
	}

	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// LyingHeaderZip builds an archive whose single entry declares a smaller
// uncompressed size than it actually inflates to. Requires patching the
// central directory, which archive/zip refuses to do, so the declared
// size is forged by rewriting the raw bytes: the entry is stored
// (uncompressed) so the size fields are plain little-endian counts.
func LyingHeaderZip() []byte {
	payload := []byte("this payload is longer than the header admits")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	hdr := &zip.FileHeader{Name: "liar.txt", Method: zip.Store}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(payload); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}

	// Both the local header and the central directory record the
	// uncompressed size as uint32 little-endian; halve every occurrence.
	raw := buf.Bytes()
	actual := uint32(len(payload))
	forged := actual / 2
	old := []byte{byte(actual), byte(actual >> 8), byte(actual >> 16), byte(actual >> 24)}
	fake := []byte{byte(forged), byte(forged >> 8), byte(forged >> 16), byte(forged >> 24)}
	return bytes.ReplaceAll(raw, old, fake)
}

// EmptyZip builds a structurally valid archive with zero entries.
func EmptyZip() []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// DirectoryOnlyZip builds an archive that contains directory entries but
// no regular files.
func DirectoryOnlyZip() []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("assets/"); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
