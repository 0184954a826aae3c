// Package optimize implements a website archive optimization pipeline.
// This file contains the batch orchestrator: state machine and worker pool.
package optimize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
	"go.uber.org/zap"
)

// BatchState is the lifecycle state of a single batch.
type BatchState int32

// Batch lifecycle states. Valid transitions are
// Pending → Running → Completed | Aborted; everything else is a bug.
const (
	BatchPending BatchState = iota
	BatchRunning
	BatchCompleted
	BatchAborted
)

// String returns the state name.
func (s BatchState) String() string {
	switch s {
	case BatchPending:
		return "pending"
	case BatchRunning:
		return "running"
	case BatchCompleted:
		return "completed"
	case BatchAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// batchStateMachine tracks a batch's state with validated transitions.
// The caller supplies the expected prior state to make races observable.
type batchStateMachine struct {
	state atomic.Int32
}

func (m *batchStateMachine) transition(from, to BatchState) error {
	if !isAllowedBatchTransition(from, to) {
		return fmt.Errorf("disallowed batch transition: %s -> %s", from, to)
	}
	if !m.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("invalid batch transition: expected %s, got %s", from, BatchState(m.state.Load()))
	}
	return nil
}

func (m *batchStateMachine) current() BatchState {
	return BatchState(m.state.Load())
}

func isAllowedBatchTransition(from, to BatchState) bool {
	switch from {
	case BatchPending:
		return to == BatchRunning
	case BatchRunning:
		return to == BatchCompleted || to == BatchAborted
	default:
		return false
	}
}

// errFileTimeout is the cancellation cause attached to per-file deadlines.
var errFileTimeout = errors.New("transform exceeded per-file time budget")

// Pipeline coordinates a batch: it classifies every SourceFile, dispatches
// each to its transform through a bounded worker pool, and folds the
// outcomes through a single collector into the final report.
//
// A Pipeline is stateless between runs and safe for concurrent use.
type Pipeline struct {
	opts     PipelineOptions
	registry *Registry
	logger   *zap.Logger
}

// New creates a Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	cfg := PipelineOptions{
		Concurrency: runtime.NumCPU(),
		Read:        DefaultReadOptions,
		Transform:   TransformOptions{JPEGQuality: DefaultJPEGQuality},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pipeline{opts: cfg, registry: cfg.Registry, logger: cfg.Logger}
}

// Result carries everything a completed batch produced. Outcomes are in
// input order regardless of worker scheduling.
type Result struct {
	// State is the batch's terminal state (always BatchCompleted: aborted
	// batches return an error and no Result).
	State BatchState

	// Outcomes holds one record per input file, in input order.
	Outcomes []TransformOutcome

	// Report is the aggregated summary of the outcomes.
	Report Report
}

// Run executes one batch over the given files.
//
// One transform task is fanned out per file, bounded by the configured
// concurrency. A single file's failure never aborts the batch; only the
// batch wall-clock budget or context cancellation does, in which case Run
// returns an error and no partial result. Outcome order always matches
// input order, so output archives are reproducible regardless of
// scheduling.
func (p *Pipeline) Run(ctx context.Context, files []SourceFile) (*Result, error) {
	var sm batchStateMachine
	if err := sm.transition(BatchPending, BatchRunning); err != nil {
		return nil, NewPipelineError("run", "", err)
	}

	if p.opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, p.opts.BatchTimeout, ErrBatchTimeout)
		defer cancel()
	}

	batchID := batchIdentifier(files)
	p.logger.Info("batch started",
		zap.String("batch_id", batchID),
		zap.Int("files", len(files)),
		zap.Int("concurrency", p.opts.Concurrency),
	)

	outcomes := p.dispatch(ctx, files)

	if err := context.Cause(ctx); err != nil {
		if terr := sm.transition(BatchRunning, BatchAborted); terr != nil {
			return nil, NewPipelineError("run", "", terr)
		}
		p.logger.Warn("batch aborted", zap.String("batch_id", batchID), zap.Error(err))
		if errors.Is(err, ErrBatchTimeout) {
			return nil, NewPipelineError("run", "", ErrBatchTimeout)
		}
		return nil, NewPipelineError("run", "", fmt.Errorf("%w: %v", ErrBatchAborted, err))
	}

	if err := sm.transition(BatchRunning, BatchCompleted); err != nil {
		return nil, NewPipelineError("run", "", err)
	}

	report := Aggregate(batchID, outcomes)
	p.logger.Info("batch completed",
		zap.String("batch_id", batchID),
		zap.Uint64("optimized", report.FilesOptimized),
		zap.Uint64("failed", report.FilesFailed),
		zap.Uint64("skipped", report.FilesSkipped),
		zap.Float64("reduction_percent", report.SizeReductionPercent),
	)

	return &Result{State: sm.current(), Outcomes: outcomes, Report: report}, nil
}

// OptimizeArchive runs the whole pipeline end to end: read the input zip,
// optimize every file, and serialize the deterministic output zip. The
// report accompanies the archive bytes as a separate structured value.
func (p *Pipeline) OptimizeArchive(ctx context.Context, archive []byte) ([]byte, Report, error) {
	files, err := ReadArchiveBytes(archive, p.opts.Read)
	if err != nil {
		return nil, Report{}, err
	}
	return p.optimize(ctx, files)
}

// OptimizeTree runs the pipeline over a materialized file tree, such as the
// output of the remote-repository collaborator or a local directory.
func (p *Pipeline) OptimizeTree(ctx context.Context, fsys fs.FS) ([]byte, Report, error) {
	files, err := ReadTree(fsys, p.opts.Read)
	if err != nil {
		return nil, Report{}, err
	}
	return p.optimize(ctx, files)
}

func (p *Pipeline) optimize(ctx context.Context, files []SourceFile) ([]byte, Report, error) {
	res, err := p.Run(ctx, files)
	if err != nil {
		return nil, Report{}, err
	}

	var buf bytes.Buffer
	if err := WriteArchive(&buf, res.Outcomes); err != nil {
		return nil, Report{}, err
	}
	return buf.Bytes(), res.Report, nil
}

// job and jobResult coordinate the worker pool. The index ties a result
// back to its input slot so collection order never depends on scheduling.
type job struct {
	idx  int
	file SourceFile
}

type jobResult struct {
	idx     int
	outcome TransformOutcome
}

// dispatch fans the files out to the worker pool and collects one outcome
// per file. The receive loop below is the single writer over the outcome
// slice and any derived totals; workers never touch shared state.
func (p *Pipeline) dispatch(ctx context.Context, files []SourceFile) []TransformOutcome {
	workers := p.opts.Concurrency
	if workers > len(files) && len(files) > 0 {
		workers = len(files)
	}

	jobs := make(chan job)
	results := make(chan jobResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jb := range jobs {
				results <- jobResult{idx: jb.idx, outcome: p.processFile(ctx, jb.file)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, f := range files {
			select {
			case jobs <- job{idx: i, file: f}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]TransformOutcome, len(files))
	for res := range results {
		outcomes[res.idx] = res.outcome
	}
	return outcomes
}

// processFile classifies one file, runs its transform under the per-file
// time budget, and builds the immutable outcome record.
func (p *Pipeline) processFile(ctx context.Context, f SourceFile) TransformOutcome {
	category := Classify(f.Path, f.Data)
	transformer := p.registry.Lookup(category)

	fctx := ctx
	if p.opts.FileTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeoutCause(ctx, p.opts.FileTimeout, errFileTimeout)
		defer cancel()
	}

	out, err := runBounded(fctx, transformer, f.Data, p.opts.Transform)

	outcome := TransformOutcome{
		Path:           f.Path,
		Category:       category,
		OriginalSize:   uint64(len(f.Data)),
		OriginalDigest: digest.FromBytes(f.Data),
	}

	switch {
	case err == nil:
		outcome.Status = StatusSuccess
		outcome.Output = out
	case errors.Is(err, ErrSkipTransform):
		outcome.Status = StatusSkipped
		outcome.Output = f.Data
	default:
		outcome.Status = StatusFailed
		outcome.Output = f.Data
		if errors.Is(err, errFileTimeout) {
			outcome.ErrorDetail = fmt.Sprintf("timeout: %v", err)
		} else {
			outcome.ErrorDetail = err.Error()
		}
		p.logger.Debug("transform failed",
			zap.String("path", f.Path),
			zap.String("category", string(category)),
			zap.Error(err),
		)
	}

	outcome.OptimizedSize = uint64(len(outcome.Output))
	outcome.OptimizedDigest = digest.FromBytes(outcome.Output)
	return outcome
}

// transformResult carries a transform's return values across the
// bounding goroutine.
type transformResult struct {
	out []byte
	err error
}

// runBounded invokes the transform in its own goroutine so the per-file
// time budget can be enforced. On expiry the in-flight transform is
// abandoned; the buffered channel lets it finish and be collected without
// leaking.
func runBounded(ctx context.Context, t Transformer, src []byte, opts TransformOptions) ([]byte, error) {
	ch := make(chan transformResult, 1)
	go func() {
		out, err := t.Transform(ctx, src, opts)
		ch <- transformResult{out: out, err: err}
	}()

	select {
	case res := <-ch:
		return res.out, res.err
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// batchIdentifier derives a stable batch ID from the input files: identical
// inputs yield identical IDs, which keeps reports reproducible and lets
// callers use the ID as a cache key.
func batchIdentifier(files []SourceFile) string {
	h := digest.SHA256.Digester()
	for _, f := range files {
		fmt.Fprintf(h.Hash(), "%s\x00%d\x00", f.Path, len(f.Data))
		h.Hash().Write(f.Data)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(h.Digest())).String()
}
