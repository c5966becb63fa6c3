package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer outputs plain text progress (for CI/pipes).
type PlainRenderer struct {
	mu          sync.Mutex
	out         io.Writer
	noColor     bool
	stage       Stage
	lastPercent int
	errors      []ErrorEvent
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{
		out:     cfg.Output,
		noColor: cfg.NoColor,
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer. Counted updates are coalesced
// to five-percent steps so piped output stays readable on large
// corpora.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stageChanged := event.Stage != r.stage
	if stageChanged {
		r.stage = event.Stage
		r.lastPercent = 0
	}

	// Format: [STAGE] current/total - message or file
	var msg string
	if event.Message != "" {
		msg = event.Message
	} else if event.CurrentFile != "" {
		msg = event.CurrentFile
	}

	if event.Total > 0 {
		percent := event.Current * 100 / event.Total
		if !stageChanged && event.Current != event.Total && percent < r.lastPercent+5 {
			return
		}
		r.lastPercent = percent
		if msg == "" {
			_, _ = fmt.Fprintf(r.out, "[%s] %d/%d\n", event.Stage.Icon(), event.Current, event.Total)
		} else {
			_, _ = fmt.Fprintf(r.out, "[%s] %d/%d - %s\n", event.Stage.Icon(), event.Current, event.Total, msg)
		}
	} else if msg != "" {
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), msg)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}

	if event.File != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.File, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Complete: %d shaders from %d files in %s",
		stats.Records, stats.Files, stats.Duration.Round(100*time.Millisecond))

	if stats.FromCache {
		_, _ = fmt.Fprint(r.out, " (loaded from cache)")
	}

	if stats.Errors > 0 || stats.Warnings > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d errors, %d warnings)", stats.Errors, stats.Warnings)
	}

	_, _ = fmt.Fprintln(r.out)

	// Show detailed stage breakdown if available
	if stats.Stages.Scan > 0 || stats.Stages.Parse > 0 {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintln(r.out, "Stage Breakdown:")
		_, _ = fmt.Fprintf(r.out, "  Scan:    %s (documents listed)\n", stats.Stages.Scan.Round(100*time.Millisecond))
		if stats.Stages.Parse > 0 && stats.Files > 0 {
			filesPerSec := float64(stats.Files) / stats.Stages.Parse.Seconds()
			_, _ = fmt.Fprintf(r.out, "  Parse:   %s (%d documents @ %.1f/sec)\n",
				stats.Stages.Parse.Round(100*time.Millisecond), stats.Files, filesPerSec)
		}
		_, _ = fmt.Fprintf(r.out, "  Index:   %s (requirements detected)\n", stats.Stages.Index.Round(100*time.Millisecond))
		if stats.Stages.Persist > 0 {
			_, _ = fmt.Fprintf(r.out, "  Persist: %s (cache written)\n", stats.Stages.Persist.Round(100*time.Millisecond))
		}
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}
