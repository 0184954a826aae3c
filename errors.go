// Package optimize implements a website archive optimization pipeline.
// This file contains domain-specific error types for pipeline operations.
package optimize

import (
	"errors"
	"fmt"
)

// Sentinel errors for batch-level failure modes.
// These abort the whole operation: no output archive is produced and the
// caller receives exactly one of them (possibly wrapped in a PipelineError).
// They can be checked using errors.Is() for error handling and testing.
var (
	// ErrCorruptArchive indicates that the input archive's header or central
	// directory is unreadable, or that an entry's declared size disagrees
	// with its actual inflated size.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrArchiveTooLarge indicates that the cumulative uncompressed size of
	// the archive exceeds the configured ceiling, or that a single entry
	// exceeds the per-file limit.
	ErrArchiveTooLarge = errors.New("archive exceeds size ceiling")

	// ErrEmptyArchive indicates that the archive contains zero regular files.
	ErrEmptyArchive = errors.New("archive contains no files")

	// ErrUnsafePath indicates that an archive entry's path escapes the
	// archive root, is absolute, or is a symbolic link. This is a security
	// boundary: unsafe paths are rejected, never silently normalized.
	ErrUnsafePath = errors.New("unsafe path in archive")

	// ErrSourceFetchFailed indicates that the remote-repository collaborator
	// could not materialize a file tree. It is distinct from pipeline errors
	// so callers can tell fetch problems from optimization problems.
	ErrSourceFetchFailed = errors.New("source fetch failed")

	// ErrBatchTimeout indicates that the batch exceeded its wall-clock
	// budget and was aborted.
	ErrBatchTimeout = errors.New("batch wall-clock budget exceeded")

	// ErrBatchAborted indicates that the batch was canceled before
	// completing. In-flight transforms are abandoned and no output archive
	// is produced.
	ErrBatchAborted = errors.New("batch aborted")
)

// ErrSkipTransform is returned by a Transformer to indicate that it declines
// to modify its input. The orchestrator records the outcome as Skipped and
// the original bytes pass through to the output archive unchanged.
//
// This is not a failure: transforms return it for categories they do not
// handle (unsupported image formats, passthrough content) or when their
// output would be larger than their input.
var ErrSkipTransform = errors.New("transform skipped")

// PipelineError provides detailed context about batch-level failures.
// It wraps one of the sentinel errors above with the operation that failed
// and the archive path involved, when one exists.
//
// PipelineError implements the error interface and supports error wrapping,
// allowing it to be used with errors.Is() and errors.As().
type PipelineError struct {
	// Op describes the operation that failed (e.g., "read", "run", "write", "fetch").
	Op string

	// Path is the archive-relative path involved in the failure, if any.
	Path string

	// Err is the underlying error, typically one of the sentinel errors.
	Err error
}

// Error returns a human-readable description of the failure.
func (e *PipelineError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("optimize %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("optimize %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/errors.As compatibility.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a PipelineError with the given operation, path,
// and underlying error.
func NewPipelineError(op, path string, err error) *PipelineError {
	return &PipelineError{Op: op, Path: path, Err: err}
}
