// Package optimize implements a website archive optimization pipeline.
// This file contains functional options for pipeline configuration.
package optimize

import (
	"time"

	"go.uber.org/zap"
)

// PipelineOptions contains configuration for a Pipeline.
type PipelineOptions struct {
	// Concurrency bounds the worker pool. Defaults to runtime.NumCPU().
	Concurrency int

	// FileTimeout is the per-file transform time budget. A transform
	// exceeding it yields a Failed outcome with a timeout detail; the
	// original bytes pass through. Zero disables the per-file budget.
	FileTimeout time.Duration

	// BatchTimeout is the wall-clock budget for a whole batch. Exceeding
	// it aborts the batch with ErrBatchTimeout and no output is produced.
	// Zero disables the batch budget.
	BatchTimeout time.Duration

	// Read controls archive ingestion limits.
	Read ReadOptions

	// Transform carries per-batch transform tuning.
	Transform TransformOptions

	// Registry supplies the per-category transforms. If nil, the default
	// registry is used.
	Registry *Registry

	// Logger receives pipeline progress events. If nil, logging is disabled.
	Logger *zap.Logger
}

// Option is a functional option for configuring a Pipeline.
type Option func(*PipelineOptions)

// WithConcurrency bounds the worker pool to n workers.
func WithConcurrency(n int) Option {
	return func(o *PipelineOptions) {
		o.Concurrency = n
	}
}

// WithFileTimeout sets the per-file transform time budget.
func WithFileTimeout(d time.Duration) Option {
	return func(o *PipelineOptions) {
		o.FileTimeout = d
	}
}

// WithBatchTimeout sets the whole-batch wall-clock budget.
func WithBatchTimeout(d time.Duration) Option {
	return func(o *PipelineOptions) {
		o.BatchTimeout = d
	}
}

// WithReadOptions overrides the archive ingestion limits.
func WithReadOptions(ro ReadOptions) Option {
	return func(o *PipelineOptions) {
		o.Read = ro
	}
}

// WithJPEGQuality sets the JPEG re-encode quality (1-100).
func WithJPEGQuality(q int) Option {
	return func(o *PipelineOptions) {
		o.Transform.JPEGQuality = q
	}
}

// WithAggressive enables rewrites beyond pure minification, such as
// lazy-loading hints in HTML.
func WithAggressive(enabled bool) Option {
	return func(o *PipelineOptions) {
		o.Transform.Aggressive = enabled
	}
}

// WithRegistry installs a custom transform registry. This is how callers
// substitute or extend per-category transforms.
func WithRegistry(r *Registry) Option {
	return func(o *PipelineOptions) {
		o.Registry = r
	}
}

// WithLogger attaches a zap logger for pipeline progress events.
func WithLogger(l *zap.Logger) Option {
	return func(o *PipelineOptions) {
		o.Logger = l
	}
}
