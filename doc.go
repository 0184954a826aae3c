// Package optimize implements a website archive optimization pipeline.
//
// The pipeline ingests a zip archive (or a materialized file tree) holding
// an arbitrary website source tree and produces a size-optimized copy of
// that tree plus a structured report of what changed. Key features:
//   - Security-validated archive reading (path traversal, zip bombs, size limits)
//   - Per-category transforms (HTML, CSS, SCSS, JavaScript, images) behind a
//     pluggable registry
//   - Bounded-concurrency dispatch with per-file failure isolation
//   - Deterministic, reproducible output archives
//   - A single-pass, replayable statistics aggregator
//
// Basic usage:
//
//	p := optimize.New(
//	    optimize.WithConcurrency(8),
//	    optimize.WithJPEGQuality(85),
//	)
//
//	out, report, err := p.OptimizeArchive(ctx, archiveBytes)
//	if err != nil {
//	    return err
//	}
//
// Per-file transform failures never fail the batch: the original bytes pass
// through to the output archive and the failure is recorded in the report.
// Only batch-level conditions (corrupt input, size ceiling, wall-clock
// budget) return an error, in which case no output archive is produced.
package optimize
