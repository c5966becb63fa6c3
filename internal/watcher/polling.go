package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// PollingWatcher detects corpus changes by periodically rescanning the
// directory. Used as a fallback when fsnotify is unavailable. It emits
// raw single events; the CorpusWatcher debounces them.
type PollingWatcher struct {
	interval time.Duration
	state    map[string]docState
	events   chan FileEvent
	errors   chan error
	stopCh   chan struct{}
	mu       sync.Mutex
	stopped  bool
	dir      string
}

type docState struct {
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a polling watcher scanning at the given
// interval.
func NewPollingWatcher(interval time.Duration) *PollingWatcher {
	return &PollingWatcher{
		interval: interval,
		state:    make(map[string]docState),
		events:   make(chan FileEvent, 100),
		errors:   make(chan error, 10),
		stopCh:   make(chan struct{}),
	}
}

// Start polls the corpus directory until Stop is called or ctx is
// canceled. The first scan establishes the baseline and emits nothing.
func (p *PollingWatcher) Start(ctx context.Context, dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve corpus dir: %w", err)
	}
	p.dir = absDir

	baseline, err := p.scan()
	if err != nil {
		return fmt.Errorf("initial corpus scan: %w", err)
	}
	p.mu.Lock()
	p.state = baseline
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				select {
				case p.errors <- err:
				default:
				}
			}
		}
	}
}

// Stop stops the polling watcher. Safe to call multiple times.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of raw file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the channel of scan errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}

// scan records the name, size, and mtime of every top-level JSON
// document in the corpus.
func (p *PollingWatcher) scan() (map[string]docState, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, err
	}

	state := make(map[string]docState, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // raced with a delete
		}
		state[name] = docState{modTime: info.ModTime(), size: info.Size()}
	}
	return state, nil
}

// detectChanges diffs the current scan against the previous one and
// emits create, modify, and delete events.
func (p *PollingWatcher) detectChanges() error {
	current, err := p.scan()
	if err != nil {
		return fmt.Errorf("scan corpus for changes: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for name, cur := range current {
		prev, exists := p.state[name]
		switch {
		case !exists:
			p.emitEvent(FileEvent{Path: filepath.Join(p.dir, name), Op: OpCreate, Time: now})
		case prev.modTime != cur.modTime || prev.size != cur.size:
			p.emitEvent(FileEvent{Path: filepath.Join(p.dir, name), Op: OpModify, Time: now})
		}
	}

	for name := range p.state {
		if _, exists := current[name]; !exists {
			p.emitEvent(FileEvent{Path: filepath.Join(p.dir, name), Op: OpDelete, Time: now})
		}
	}

	p.state = current
	return nil
}

// emitEvent sends an event without blocking. Must be called with the
// lock held.
func (p *PollingWatcher) emitEvent(event FileEvent) {
	if p.stopped {
		return
	}

	select {
	case p.events <- event:
	default:
		slog.Warn("polling watcher buffer full, dropping event",
			slog.String("path", event.Path),
			slog.String("op", event.Op.String()),
		)
	}
}
