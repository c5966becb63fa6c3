package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaderdex/shaderdex/internal/corpus"
	sderrors "github.com/shaderdex/shaderdex/internal/errors"
	"github.com/shaderdex/shaderdex/internal/ui"
)

// RunnerConfig configures one index run.
type RunnerConfig struct {
	// JSONDir is the corpus directory of per-shader JSON documents.
	JSONDir string

	// Workers is the parse worker count (0 = NumCPU).
	Workers int

	// MaxFileSize skips documents larger than this many bytes
	// (0 = corpus.DefaultMaxFileSize).
	MaxFileSize int64

	// ForceRebuild bypasses the cache and rebuilds from disk.
	ForceRebuild bool
}

// RunnerDependencies carries the collaborators a Runner drives. The
// caller owns the renderer's lifecycle; the runner only emits events.
type RunnerDependencies struct {
	// Renderer receives progress, warning, and completion events.
	// Required.
	Renderer ui.Renderer

	// Loader reads shader documents. Defaults to corpus.New().
	Loader *corpus.Loader

	// Builder assembles snapshots. Defaults to NewBuilder(nil).
	Builder *Builder

	// Cache persists snapshots between runs. Required.
	Cache *Cache
}

// RunnerResult reports what an index run produced.
type RunnerResult struct {
	// Snapshot is the built or cache-loaded index.
	Snapshot *Snapshot

	// Files is the number of JSON documents in the corpus.
	Files int

	// Records is the number of indexed shaders after dedupe.
	Records int

	// FromCache is true when the snapshot was loaded rather than built.
	FromCache bool

	// Persisted is true when the snapshot is on disk, either freshly
	// written or loaded from a valid blob.
	Persisted bool

	// Duration is the wall-clock time for the whole run.
	Duration time.Duration

	// Stages breaks the duration down per pipeline stage.
	Stages ui.StageTimings

	// ParseWarnings counts documents skipped for parse failures.
	ParseWarnings int

	// DuplicateWarnings counts duplicate-id resolutions.
	DuplicateWarnings int

	// CacheWarnings counts cache read and write failures.
	CacheWarnings int
}

// Runner drives the load-or-build pipeline: fingerprint the corpus,
// try the cache, otherwise parse, detect, build, and persist.
type Runner struct {
	cfg  RunnerConfig
	deps RunnerDependencies
}

// NewRunner creates a Runner, applying defaults for the optional
// dependencies.
func NewRunner(cfg RunnerConfig, deps RunnerDependencies) (*Runner, error) {
	if cfg.JSONDir == "" {
		return nil, fmt.Errorf("json dir is required")
	}
	if deps.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if deps.Loader == nil {
		deps.Loader = corpus.New()
	}
	if deps.Builder == nil {
		deps.Builder = NewBuilder(nil)
	}
	return &Runner{cfg: cfg, deps: deps}, nil
}

// Run executes the pipeline and reports the outcome. The returned
// error is fatal (missing corpus directory, canceled context);
// per-document and cache failures surface as renderer warnings and
// result counters instead.
func (r *Runner) Run(ctx context.Context) (*RunnerResult, error) {
	start := time.Now()
	res := &RunnerResult{}

	r.deps.Renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageScanning, Message: "fingerprinting corpus"})

	scanStart := time.Now()
	fp, err := corpus.ComputeFingerprint(r.cfg.JSONDir)
	if err != nil {
		return nil, sderrors.Wrap(sderrors.ErrCodeDirNotFound, err).
			WithDetail("path", r.cfg.JSONDir).
			WithSuggestion("pass --json-dir or set corpus.json_dir in .shaderdex.yaml")
	}
	res.Stages.Scan = time.Since(scanStart)
	res.Files = fp.Count

	if !r.cfg.ForceRebuild {
		snap, err := r.deps.Cache.Load()
		if err != nil {
			res.CacheWarnings++
			r.deps.Renderer.AddError(ui.ErrorEvent{File: r.deps.Cache.Path(), Err: err, IsWarn: true})
		}
		if snap != nil && snap.Fingerprint().Equal(fp) {
			res.Snapshot = snap
			res.Records = snap.Len()
			res.FromCache = true
			res.Persisted = true
			res.Duration = time.Since(start)
			r.complete(res)
			return res, nil
		}
	}

	parseStart := time.Now()
	loaded, err := r.deps.Loader.Load(ctx, corpus.LoadOptions{
		Dir:         r.cfg.JSONDir,
		Workers:     r.cfg.Workers,
		MaxFileSize: r.cfg.MaxFileSize,
		ProgressFunc: func(done, total int) {
			r.deps.Renderer.UpdateProgress(ui.ProgressEvent{
				Stage:   ui.StageParsing,
				Current: done,
				Total:   total,
			})
		},
	})
	if err != nil {
		return nil, err
	}
	res.Stages.Parse = time.Since(parseStart)
	res.Files = loaded.Files

	for _, sk := range loaded.Skipped {
		res.ParseWarnings++
		r.deps.Renderer.AddError(ui.ErrorEvent{File: sk.Path, Err: sk.Err, IsWarn: true})
	}
	for _, dup := range loaded.Duplicates {
		res.DuplicateWarnings++
		r.deps.Renderer.AddError(ui.ErrorEvent{
			File:   dup.Dropped,
			Err:    sderrors.Newf(sderrors.ErrCodeDuplicateID, "duplicate id %s, kept %s", dup.ID, dup.Kept),
			IsWarn: true,
		})
	}

	indexStart := time.Now()
	snap, err := r.deps.Builder.Build(ctx, loaded.Records, fp, func(done, total int) {
		r.deps.Renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageIndexing,
			Current: done,
			Total:   total,
		})
	})
	if err != nil {
		return nil, err
	}
	res.Stages.Index = time.Since(indexStart)
	res.Snapshot = snap
	res.Records = snap.Len()

	persistStart := time.Now()
	r.deps.Renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StagePersisting, Message: "writing cache"})
	if err := r.deps.Cache.Save(snap); err != nil {
		res.CacheWarnings++
		r.deps.Renderer.AddError(ui.ErrorEvent{File: r.deps.Cache.Path(), Err: err, IsWarn: true})
	} else {
		res.Persisted = true
	}
	res.Stages.Persist = time.Since(persistStart)

	res.Duration = time.Since(start)
	r.complete(res)
	return res, nil
}

func (r *Runner) complete(res *RunnerResult) {
	r.deps.Renderer.Complete(ui.CompletionStats{
		Files:     res.Files,
		Records:   res.Records,
		Duration:  res.Duration,
		Warnings:  res.ParseWarnings + res.DuplicateWarnings + res.CacheWarnings,
		Stages:    res.Stages,
		FromCache: res.FromCache,
	})

	slog.Info("index_complete",
		"json_dir", r.cfg.JSONDir,
		"files", res.Files,
		"records", res.Records,
		"from_cache", res.FromCache,
		"persisted", res.Persisted,
		"parse_warnings", res.ParseWarnings,
		"duplicate_warnings", res.DuplicateWarnings,
		"cache_warnings", res.CacheWarnings,
		"duration_ms", res.Duration.Milliseconds(),
	)
}
