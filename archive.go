// Package optimize implements a website archive optimization pipeline.
// This file contains the archive reader: zip stream in, SourceFiles out.
package optimize

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// ReadOptions controls archive reading behavior and security constraints.
// The limits bound memory use and defend against zip bombs: every entry's
// declared size is checked up front, and the actual inflated byte count is
// checked again while reading so a lying header cannot bypass the ceiling.
type ReadOptions struct {
	// MaxFiles is the maximum number of regular files allowed in the
	// archive. Set to 0 for unlimited (not recommended).
	MaxFiles int

	// MaxTotalSize is the maximum cumulative uncompressed size of all
	// entries combined.
	MaxTotalSize int64

	// MaxFileSize is the maximum uncompressed size allowed for any single
	// entry.
	MaxFileSize int64
}

// DefaultReadOptions provides safe defaults for archive reading:
// at most 10000 files, 512MB total, 100MB per entry.
var DefaultReadOptions = ReadOptions{
	MaxFiles:     10000,
	MaxTotalSize: 512 * 1024 * 1024,
	MaxFileSize:  100 * 1024 * 1024,
}

// validators builds the validator chain implied by the options.
func (o ReadOptions) validators() *ValidatorChain {
	return NewValidatorChain(
		&PathValidator{},
		&SizeValidator{MaxFileSize: o.MaxFileSize, MaxTotalSize: o.MaxTotalSize},
		&FileCountValidator{MaxFiles: o.MaxFiles},
	)
}

// ReadArchive unpacks a zip archive into an ordered sequence of SourceFiles.
// Entries appear in central-directory order, which later defines the output
// archive's entry order.
//
// Failure taxonomy (all batch-level, checked with errors.Is):
//   - ErrCorruptArchive: unreadable header/central directory, or an entry
//     whose inflated size disagrees with its declared size
//   - ErrArchiveTooLarge: cumulative or per-entry size over the ceiling
//   - ErrEmptyArchive: zero regular files
//   - ErrUnsafePath: a path escaping the archive root, an absolute path,
//     or a symbolic link entry
//
// Directory entries are skipped. Symbolic links are rejected rather than
// materialized; they are never followed.
func ReadArchive(r io.ReaderAt, size int64, opts ReadOptions) ([]SourceFile, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, NewPipelineError("read", "", fmt.Errorf("%w: %v", ErrCorruptArchive, err))
	}

	validators := opts.validators()

	var (
		files []SourceFile
		stats ArchiveStats
	)

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.Mode()&fs.ModeSymlink != 0 {
			return nil, NewPipelineError("read", f.Name, ErrUnsafePath)
		}
		if f.Mode()&fs.ModeType != 0 {
			// Device nodes, sockets, and other irregular entries.
			continue
		}

		if verr := validators.ValidatePath(f.Name); verr != nil {
			return nil, NewPipelineError("read", f.Name, fmt.Errorf("%w: %v", ErrUnsafePath, verr))
		}

		declared := int64(f.UncompressedSize64)
		if verr := validators.ValidateEntry(EntryInfo{Path: f.Name, Size: declared}); verr != nil {
			return nil, NewPipelineError("read", f.Name, fmt.Errorf("%w: %v", ErrArchiveTooLarge, verr))
		}

		stats.TotalFiles++
		stats.TotalSize += declared
		if verr := validators.ValidateArchive(stats); verr != nil {
			return nil, NewPipelineError("read", f.Name, fmt.Errorf("%w: %v", ErrArchiveTooLarge, verr))
		}

		data, err := readEntry(f, declared)
		if err != nil {
			return nil, err
		}

		files = append(files, SourceFile{Path: normalizeEntryPath(f.Name), Data: data})
	}

	if len(files) == 0 {
		return nil, NewPipelineError("read", "", ErrEmptyArchive)
	}

	return files, nil
}

// ReadArchiveBytes is a convenience wrapper over ReadArchive for callers
// that already hold the whole archive in memory.
func ReadArchiveBytes(b []byte, opts ReadOptions) ([]SourceFile, error) {
	return ReadArchive(bytes.NewReader(b), int64(len(b)), opts)
}

// readEntry inflates a single entry, verifying the declared size against
// the actual byte count. A mismatch marks the archive corrupt: headers are
// attacker-controlled and the size checks above relied on them.
func readEntry(f *zip.File, declared int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, NewPipelineError("read", f.Name, fmt.Errorf("%w: %v", ErrCorruptArchive, err))
	}
	defer rc.Close()

	// Read one byte past the declared size to detect oversized entries
	// without inflating unbounded data.
	data, err := io.ReadAll(io.LimitReader(rc, declared+1))
	if err != nil {
		return nil, NewPipelineError("read", f.Name, fmt.Errorf("%w: %v", ErrCorruptArchive, err))
	}
	if int64(len(data)) != declared {
		return nil, NewPipelineError("read", f.Name,
			fmt.Errorf("%w: entry size mismatch (declared %d)", ErrCorruptArchive, declared))
	}
	return data, nil
}

// normalizeEntryPath converts an already-validated entry name to a clean,
// slash-separated relative path.
func normalizeEntryPath(name string) string {
	return path.Clean(strings.ReplaceAll(name, "\\", "/"))
}
