package index

import (
	"context"
	"sort"
	"time"

	"github.com/shaderdex/shaderdex/internal/corpus"
	"github.com/shaderdex/shaderdex/internal/detect"
	"github.com/shaderdex/shaderdex/internal/shader"
)

// buildCheckInterval is how many records are processed between
// context-cancellation checks during a build.
const buildCheckInterval = 256

// Builder assembles index snapshots, resolving each record's resource
// requirements through a detector.
type Builder struct {
	detector *detect.Detector
}

// NewBuilder creates a Builder. A nil detector selects the default
// detection policy.
func NewBuilder(d *detect.Detector) *Builder {
	if d == nil {
		d = detect.New()
	}
	return &Builder{detector: d}
}

// Build detects requirements for every record and assembles the
// results into a snapshot. Records are processed in ascending id
// order; progress, if non-nil, is called after each record. An empty
// records map yields a valid empty snapshot.
func (b *Builder) Build(ctx context.Context, records map[string]*shader.Record, fp corpus.Fingerprint, progress func(done, total int)) (*Snapshot, error) {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make(map[string]*Entry, len(records))
	for i, id := range ids {
		if i%buildCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		entries[id] = b.BuildEntry(records[id])
		if progress != nil {
			progress(i+1, len(ids))
		}
	}

	return newSnapshot(entries, fp, time.Now()), nil
}

// BuildEntry detects requirements for a single record. The Coordinator
// uses it to fold watch-mode changes into a derived snapshot.
func (b *Builder) BuildEntry(rec *shader.Record) *Entry {
	return &Entry{Record: rec, Requires: b.detector.Detect(rec)}
}
