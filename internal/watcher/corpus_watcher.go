package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CorpusWatcher watches a shader corpus directory, using fsnotify as
// the primary mechanism with polling as a fallback. Raw events are
// filtered to top-level *.json documents, debounced, and emitted as
// batches.
type CorpusWatcher struct {
	fsWatcher      *fsnotify.Watcher
	pollWatcher    *PollingWatcher
	useFsnotify    bool
	debouncer      *Debouncer
	events         chan []FileEvent
	errors         chan error
	stopCh         chan struct{}
	dir            string
	opts           Options
	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

var _ Watcher = (*CorpusWatcher)(nil)

// NewCorpusWatcher creates a watcher with the given options. When
// fsnotify cannot be initialized the watcher runs in polling mode.
func NewCorpusWatcher(opts Options) (*CorpusWatcher, error) {
	opts = opts.WithDefaults()

	w := &CorpusWatcher{
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		w.fsWatcher = fsw
		w.useFsnotify = true
	} else {
		w.pollWatcher = NewPollingWatcher(opts.PollInterval)
	}

	return w, nil
}

// Start begins watching dir. It blocks until Stop is called or ctx is
// canceled.
func (w *CorpusWatcher) Start(ctx context.Context, dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve corpus dir: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return fmt.Errorf("stat corpus dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", absDir)
	}
	w.dir = absDir

	go w.forwardBatches(ctx)

	if w.useFsnotify {
		return w.startFsnotify(ctx)
	}
	return w.startPolling(ctx)
}

// startFsnotify runs the fsnotify event loop. The corpus is flat, so
// only the directory itself is registered.
func (w *CorpusWatcher) startFsnotify(ctx context.Context) error {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch corpus dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// startPolling pumps polling events into the debouncer and runs the
// scan loop.
func (w *CorpusWatcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case event, ok := <-w.pollWatcher.Events():
				if !ok {
					return
				}
				w.debouncer.Add(event)
			case err, ok := <-w.pollWatcher.Errors():
				if !ok {
					return
				}
				w.emitError(err)
			}
		}
	}()

	return w.pollWatcher.Start(ctx, w.dir)
}

// handleFsnotifyEvent converts and filters raw fsnotify events. Only
// top-level *.json documents pass; chmod noise is dropped.
func (w *CorpusWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	if !isDocument(event.Name) {
		return
	}
	// A directory named like a document can slip through on create.
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return
	}

	var op Op
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		// The document is gone from its old name; a move into the
		// corpus arrives separately as a create.
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(FileEvent{Path: event.Name, Op: op, Time: time.Now()})
}

// isDocument reports whether path names a corpus document. Derived
// artifacts (the .shaderdex directory, temp files, lock files) never
// match.
func isDocument(path string) bool {
	return strings.HasSuffix(strings.ToLower(filepath.Base(path)), ".json")
}

// forwardBatches moves debounced batches to the output channel.
func (w *CorpusWatcher) forwardBatches(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			if len(batch) == 0 {
				continue
			}
			w.emitBatch(batch)
		}
	}
}

// emitBatch sends a batch without blocking. Holding the read lock
// across the send keeps Stop from closing the channel mid-send.
func (w *CorpusWatcher) emitBatch(batch []FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.events <- batch:
	default:
		count := w.droppedBatches.Add(1)
		slog.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count),
		)
	}
}

// emitError sends an error without blocking.
func (w *CorpusWatcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources. Safe to call
// multiple times.
func (w *CorpusWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}

	w.stopped = true
	close(w.stopCh)

	w.debouncer.Stop()

	if w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	if w.pollWatcher != nil {
		_ = w.pollWatcher.Stop()
	}

	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of debounced event batches.
func (w *CorpusWatcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns the channel of non-fatal watcher errors.
func (w *CorpusWatcher) Errors() <-chan error {
	return w.errors
}

// DroppedBatches returns how many batches were dropped because the
// event buffer was full.
func (w *CorpusWatcher) DroppedBatches() uint64 {
	return w.droppedBatches.Load()
}

// WatcherType reports which mechanism is active, "fsnotify" or
// "polling".
func (w *CorpusWatcher) WatcherType() string {
	if w.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}
