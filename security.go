// Package optimize implements a website archive optimization pipeline.
// This file contains security validators for safe archive reading.
package optimize

import (
	"fmt"
	"path"
	"strings"
)

// Validator checks for security issues while reading an archive.
// Implementations validate different aspects of entries and archives to
// prevent path traversal attacks, zip bombs, and resource exhaustion.
type Validator interface {
	// ValidatePath checks if an entry path is safe. It rejects paths that
	// could escape the archive root, such as ".." components or absolute
	// paths.
	ValidatePath(p string) error

	// ValidateEntry checks if a single entry's properties are acceptable,
	// such as its uncompressed size.
	ValidateEntry(info EntryInfo) error

	// ValidateArchive checks if the running archive statistics are within
	// acceptable limits. This prevents zip bombs by bounding total file
	// count and cumulative uncompressed size.
	ValidateArchive(stats ArchiveStats) error
}

// EntryInfo describes a single archive entry for validation purposes.
type EntryInfo struct {
	// Path is the entry path within the archive.
	Path string

	// Size is the uncompressed size of the entry in bytes.
	Size int64
}

// ArchiveStats holds running totals over the entries read so far.
type ArchiveStats struct {
	// TotalFiles is the number of regular files seen so far.
	TotalFiles int

	// TotalSize is the cumulative uncompressed size in bytes.
	TotalSize int64
}

// PathValidator validates entry paths to prevent path traversal attacks.
// It detects direct, encoded, and backslash-separated traversal sequences
// as well as absolute paths and control characters.
type PathValidator struct{}

// ValidatePath reports whether the path is safe to use as an
// archive-relative path. Returns nil if safe, or an error describing the
// violation.
func (v *PathValidator) ValidatePath(p string) error {
	if p == "" || strings.TrimSpace(p) == "" {
		return fmt.Errorf("empty path")
	}

	if isAbsoluteEntryPath(p) {
		return fmt.Errorf("absolute path not allowed: %s", p)
	}

	if hasEncodedTraversal(p) {
		return fmt.Errorf("encoded path traversal detected: %s", p)
	}

	if containsTraversal(p) {
		return fmt.Errorf("path traversal detected: %s", p)
	}

	// A cleaned path that still starts with ".." escapes the root even if
	// no single component equals "..".
	if strings.HasPrefix(path.Clean(p), "..") {
		return fmt.Errorf("path traversal detected: %s", p)
	}

	for _, r := range p {
		if r == 0 {
			return fmt.Errorf("NUL byte detected in path: %q", p)
		}
		if r < 0x20 && r != '\t' {
			return fmt.Errorf("control character detected in path: %q", p)
		}
	}

	return nil
}

// ValidateEntry is a no-op for PathValidator.
func (v *PathValidator) ValidateEntry(EntryInfo) error { return nil }

// ValidateArchive is a no-op for PathValidator.
func (v *PathValidator) ValidateArchive(ArchiveStats) error { return nil }

// isAbsoluteEntryPath detects Unix, Windows drive, and UNC absolute paths.
func isAbsoluteEntryPath(p string) bool {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return true
	}
	// Windows drive letter (C:\ or C:/).
	if len(p) >= 3 && p[1] == ':' &&
		(p[2] == '\\' || p[2] == '/') &&
		((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z')) {
		return true
	}
	return false
}

// hasEncodedTraversal checks for URL-encoded path traversal attempts.
func hasEncodedTraversal(p string) bool {
	lower := strings.ToLower(p)
	variants := []string{
		"..%2f", "..%5c",
		"%2e%2e%2f", "%2e%2e%5c",
		"%2e%2e/", "%2e%2e\\",
		"..%c0%af", "..%c1%9c",
	}
	for _, variant := range variants {
		if strings.Contains(lower, variant) {
			return true
		}
	}
	return false
}

// containsTraversal checks for ".." components in slash or backslash paths.
func containsTraversal(p string) bool {
	if !strings.Contains(p, "..") {
		return false
	}
	for _, sep := range []string{"/", "\\"} {
		for _, part := range strings.Split(p, sep) {
			if part == ".." {
				return true
			}
		}
	}
	return false
}

// SizeValidator enforces per-entry and cumulative size limits.
type SizeValidator struct {
	// MaxFileSize is the maximum uncompressed size for any single entry.
	// Zero disables the per-entry limit.
	MaxFileSize int64

	// MaxTotalSize is the maximum cumulative uncompressed size.
	// Zero disables the cumulative limit.
	MaxTotalSize int64
}

// ValidatePath is a no-op for SizeValidator.
func (v *SizeValidator) ValidatePath(string) error { return nil }

// ValidateEntry checks a single entry against the per-entry limit.
func (v *SizeValidator) ValidateEntry(info EntryInfo) error {
	if v.MaxFileSize > 0 && info.Size > v.MaxFileSize {
		return fmt.Errorf("entry %s exceeds file size limit (%d > %d)", info.Path, info.Size, v.MaxFileSize)
	}
	return nil
}

// ValidateArchive checks the cumulative size against the ceiling.
func (v *SizeValidator) ValidateArchive(stats ArchiveStats) error {
	if v.MaxTotalSize > 0 && stats.TotalSize > v.MaxTotalSize {
		return fmt.Errorf("archive exceeds total size limit (%d > %d)", stats.TotalSize, v.MaxTotalSize)
	}
	return nil
}

// FileCountValidator bounds the number of entries in an archive.
type FileCountValidator struct {
	// MaxFiles is the maximum number of regular files allowed.
	// Zero disables the limit.
	MaxFiles int
}

// ValidatePath is a no-op for FileCountValidator.
func (v *FileCountValidator) ValidatePath(string) error { return nil }

// ValidateEntry is a no-op for FileCountValidator.
func (v *FileCountValidator) ValidateEntry(EntryInfo) error { return nil }

// ValidateArchive checks the running file count against the limit.
func (v *FileCountValidator) ValidateArchive(stats ArchiveStats) error {
	if v.MaxFiles > 0 && stats.TotalFiles > v.MaxFiles {
		return fmt.Errorf("archive exceeds file count limit (%d > %d)", stats.TotalFiles, v.MaxFiles)
	}
	return nil
}

// ValidatorChain runs multiple validators in order, returning the first
// error encountered.
type ValidatorChain struct {
	validators []Validator
}

// NewValidatorChain creates a chain from the given validators.
func NewValidatorChain(validators ...Validator) *ValidatorChain {
	return &ValidatorChain{validators: validators}
}

// ValidatePath runs every validator's path check.
func (c *ValidatorChain) ValidatePath(p string) error {
	for _, v := range c.validators {
		if err := v.ValidatePath(p); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEntry runs every validator's entry check.
func (c *ValidatorChain) ValidateEntry(info EntryInfo) error {
	for _, v := range c.validators {
		if err := v.ValidateEntry(info); err != nil {
			return err
		}
	}
	return nil
}

// ValidateArchive runs every validator's archive check.
func (c *ValidatorChain) ValidateArchive(stats ArchiveStats) error {
	for _, v := range c.validators {
		if err := v.ValidateArchive(stats); err != nil {
			return err
		}
	}
	return nil
}
