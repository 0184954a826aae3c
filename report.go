// Package optimize implements a website archive optimization pipeline.
// This file contains the statistics aggregator and the report types.
package optimize

// CategoryStats accumulates byte and file counts for one category.
type CategoryStats struct {
	Count          uint64 `json:"count"`
	OriginalBytes  uint64 `json:"originalBytes"`
	OptimizedBytes uint64 `json:"optimizedBytes"`
}

// Failure records one per-file transform failure, in input order.
type Failure struct {
	Path        string `json:"path"`
	ErrorDetail string `json:"errorDetail"`
}

// Report is the caller-facing summary of a batch. Its JSON field names are
// the stable contract consumers rely on; do not rename them.
type Report struct {
	BatchID              string                         `json:"batchId"`
	TotalFiles           uint64                         `json:"totalFiles"`
	FilesOptimized       uint64                         `json:"filesOptimized"`
	FilesFailed          uint64                         `json:"filesFailed"`
	FilesSkipped         uint64                         `json:"filesSkipped"`
	TotalOriginalBytes   uint64                         `json:"totalOriginalBytes"`
	TotalOptimizedBytes  uint64                         `json:"totalOptimizedBytes"`
	SizeReductionPercent float64                        `json:"sizeReductionPercent"`
	PerCategoryStats     map[FileCategory]CategoryStats `json:"perCategoryStats"`
	Failures             []Failure                      `json:"failures"`
}

// Aggregate folds an outcome sequence into a Report in a single pass.
//
// It is pure: re-running it over the same outcomes reproduces the same
// report without re-running any transform, which supports replay in tests.
// TotalOptimizedBytes reflects the bytes actually emitted per outcome,
// never an estimate. SizeReductionPercent is defined as 0 for an empty
// input and may be negative when transforms grew files; it is never
// clamped.
func Aggregate(batchID string, outcomes []TransformOutcome) Report {
	r := Report{
		BatchID:          batchID,
		PerCategoryStats: make(map[FileCategory]CategoryStats),
		Failures:         []Failure{},
	}

	for _, o := range outcomes {
		r.TotalFiles++
		r.TotalOriginalBytes += o.OriginalSize
		r.TotalOptimizedBytes += o.OptimizedSize

		switch o.Status {
		case StatusSuccess:
			r.FilesOptimized++
		case StatusFailed:
			r.FilesFailed++
			r.Failures = append(r.Failures, Failure{Path: o.Path, ErrorDetail: o.ErrorDetail})
		default:
			r.FilesSkipped++
		}

		stats := r.PerCategoryStats[o.Category]
		stats.Count++
		stats.OriginalBytes += o.OriginalSize
		stats.OptimizedBytes += o.OptimizedSize
		r.PerCategoryStats[o.Category] = stats
	}

	if r.TotalOriginalBytes > 0 {
		saved := float64(r.TotalOriginalBytes) - float64(r.TotalOptimizedBytes)
		r.SizeReductionPercent = saved / float64(r.TotalOriginalBytes) * 100
	}

	return r
}
