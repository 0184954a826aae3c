// Package optimize implements a website archive optimization pipeline.
// This file contains the per-file transform outcome record.
package optimize

import (
	"github.com/opencontainers/go-digest"
)

// TransformStatus describes what happened when a transform was applied.
type TransformStatus string

// Transform statuses.
const (
	// StatusSuccess means the transform replaced the original bytes.
	StatusSuccess TransformStatus = "success"

	// StatusSkipped means the file passed through unchanged: its category
	// has no transform, the format is unsupported, or the transform could
	// not shrink it.
	StatusSkipped TransformStatus = "skipped"

	// StatusFailed means the transform errored (parse error, compile error,
	// timeout). The original bytes pass through and the error is recorded
	// in the report.
	StatusFailed TransformStatus = "failed"
)

// TransformOutcome is the immutable per-file record of a transform
// invocation. Exactly one outcome exists per input SourceFile; the
// aggregator and the archive writer both read it without mutation.
type TransformOutcome struct {
	// Path is the archive-relative path of the file.
	Path string

	// Category is the classifier's verdict for the file.
	Category FileCategory

	// OriginalSize is the input size in bytes.
	OriginalSize uint64

	// OptimizedSize is the size of the bytes actually emitted to the
	// output archive, which is the original size for Skipped and Failed
	// outcomes.
	OptimizedSize uint64

	// Status records how the transform concluded.
	Status TransformStatus

	// ErrorDetail holds the failure description for Failed outcomes.
	ErrorDetail string

	// Output holds the bytes emitted to the output archive. For Skipped
	// and Failed outcomes this aliases the original input buffer.
	Output []byte

	// OriginalDigest and OptimizedDigest are content digests of the input
	// and emitted bytes, usable for caching and change detection.
	OriginalDigest  digest.Digest
	OptimizedDigest digest.Digest
}

// Optimized reports whether the transform actually replaced the content.
func (o TransformOutcome) Optimized() bool {
	return o.Status == StatusSuccess
}
