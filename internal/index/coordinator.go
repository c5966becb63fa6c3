package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shaderdex/shaderdex/internal/corpus"
	sderrors "github.com/shaderdex/shaderdex/internal/errors"
	"github.com/shaderdex/shaderdex/internal/shader"
)

// ChangeType classifies an observed corpus document change.
type ChangeType int

const (
	// ChangeUpsert re-parses the document and replaces its entry.
	ChangeUpsert ChangeType = iota
	// ChangeDelete drops the entry loaded from the document.
	ChangeDelete
)

// String returns the change type name for logging.
func (t ChangeType) String() string {
	switch t {
	case ChangeUpsert:
		return "UPSERT"
	case ChangeDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileChange is one observed change to a corpus document.
type FileChange struct {
	Path string
	Type ChangeType
}

// CoordinatorConfig configures watch-mode index maintenance.
type CoordinatorConfig struct {
	// JSONDir is the corpus directory being watched.
	JSONDir string

	// MaxFileSize skips documents larger than this many bytes
	// (0 = corpus.DefaultMaxFileSize).
	MaxFileSize int64
}

// Coordinator folds file changes into the published snapshot. Each
// batch derives a replacement snapshot off to the side and swaps it
// into the Handle, so readers never observe a partial update.
type Coordinator struct {
	cfg     CoordinatorConfig
	handle  *Handle
	builder *Builder
	cache   *Cache
}

// NewCoordinator creates a Coordinator publishing through handle and
// persisting through cache. A nil builder selects the default
// detection policy.
func NewCoordinator(cfg CoordinatorConfig, handle *Handle, builder *Builder, cache *Cache) (*Coordinator, error) {
	if cfg.JSONDir == "" {
		return nil, fmt.Errorf("json dir is required")
	}
	if handle == nil {
		return nil, fmt.Errorf("handle is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if builder == nil {
		builder = NewBuilder(nil)
	}
	return &Coordinator{cfg: cfg, handle: handle, builder: builder, cache: cache}, nil
}

// Run consumes change batches until ctx is canceled or the channel
// closes. Per-batch failures are logged and skipped; only cancellation
// stops the loop.
func (c *Coordinator) Run(ctx context.Context, batches <-chan []FileChange) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			if err := c.Apply(ctx, batch); err != nil {
				slog.Warn("watch_apply_failed", "changes", len(batch), "error", err)
			}
		}
	}
}

// Apply folds one batch of changes into a derived snapshot and
// publishes it. A document that fails to parse keeps its previous
// entry and logs a warning; a vanished corpus directory fails the
// whole batch.
func (c *Coordinator) Apply(ctx context.Context, changes []FileChange) error {
	if len(changes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := c.handle.Load()

	var upserts []*Entry
	var deletes []string
	for _, ch := range changes {
		base := filepath.Base(ch.Path)
		switch ch.Type {
		case ChangeDelete:
			if id, ok := snap.IDForPath(base); ok {
				deletes = append(deletes, id)
			}
		case ChangeUpsert:
			entry, err := c.loadEntry(ch.Path)
			if err != nil {
				slog.Warn("watch_reload_failed", "path", ch.Path, "error", err)
				continue
			}
			// A rewrite can change the document's declared id; drop
			// the entry indexed under the old one.
			if oldID, ok := snap.IDForPath(base); ok && oldID != entry.Record.ID {
				deletes = append(deletes, oldID)
			}
			upserts = append(upserts, entry)
		}
	}

	if len(upserts) == 0 && len(deletes) == 0 {
		return nil
	}

	fp, err := corpus.ComputeFingerprint(c.cfg.JSONDir)
	if err != nil {
		return sderrors.Wrap(sderrors.ErrCodeDirNotFound, err).WithDetail("path", c.cfg.JSONDir)
	}

	next := snap.Derive(upserts, deletes, fp, time.Now())
	c.handle.Swap(next)

	if err := c.cache.Save(next); err != nil {
		slog.Warn("watch_cache_save_failed", "error", err)
	}

	slog.Info("index_updated",
		"upserts", len(upserts),
		"deletes", len(deletes),
		"records", next.Len(),
		"files", fp.Count,
	)
	return nil
}

// loadEntry parses and detects a single changed document.
func (c *Coordinator) loadEntry(path string) (*Entry, error) {
	maxSize := c.cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = corpus.DefaultMaxFileSize
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("document is %d bytes, over the %d byte limit", info.Size(), maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec, err := shader.ParseRecord(data, path)
	if err != nil {
		return nil, err
	}
	return c.builder.BuildEntry(rec), nil
}
