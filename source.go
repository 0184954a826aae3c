// Package optimize implements a website archive optimization pipeline.
// This file contains the SourceFile type and file tree ingestion.
package optimize

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
)

// SourceFile is a single file lifted out of an input archive or a
// materialized file tree. The byte buffer is immutable once the file is
// handed to the pipeline; workers read it concurrently without copying.
type SourceFile struct {
	// Path is the archive-relative, slash-separated path of the file.
	Path string

	// Data holds the raw file contents.
	Data []byte

	// DeclaredType is the MIME type declared by the source, if any.
	// It is empty for zip archives, which carry no type metadata.
	DeclaredType string
}

// ReadTree walks a materialized file tree (for example the output of the
// remote-repository collaborator, or a local directory via os.DirFS) and
// returns its regular files as SourceFiles in deterministic lexical order.
//
// The same security and size validation applied to archive entries applies
// here, so a hostile tree cannot bypass the ceilings enforced on uploads.
// Returns ErrEmptyArchive if the tree contains no regular files.
func ReadTree(fsys fs.FS, opts ReadOptions) ([]SourceFile, error) {
	validators := opts.validators()

	var (
		files []SourceFile
		stats ArchiveStats
	)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk failed at %s: %w", p, err)
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			// Symlinks and other irregular entries are never followed.
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", p, err)
		}

		rel := path.Clean(p)
		if verr := validators.ValidatePath(rel); verr != nil {
			return NewPipelineError("read", p, ErrUnsafePath)
		}
		if verr := validators.ValidateEntry(EntryInfo{Path: rel, Size: info.Size()}); verr != nil {
			return NewPipelineError("read", p, ErrArchiveTooLarge)
		}

		stats.TotalFiles++
		stats.TotalSize += info.Size()
		if verr := validators.ValidateArchive(stats); verr != nil {
			return NewPipelineError("read", p, ErrArchiveTooLarge)
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		files = append(files, SourceFile{Path: rel, Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, NewPipelineError("read", "", ErrEmptyArchive)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
