// Package index builds, persists, and publishes the in-memory search
// index over a shader corpus. A build produces an immutable Snapshot;
// concurrent readers observe rebuilds through a Handle swap, never
// through mutation.
package index

import (
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shaderdex/shaderdex/internal/corpus"
	"github.com/shaderdex/shaderdex/internal/shader"
)

// Entry pairs a shader record with its resolved resource requirements,
// the union of what the document declared and what detection inferred.
type Entry struct {
	Record   *shader.Record
	Requires shader.KindSet
}

// Snapshot is one immutable build of the search index: the primary
// id mapping plus inverted tag and kind mappings. All posting lists
// hold ids in ascending order.
type Snapshot struct {
	entries map[string]*Entry
	byTag   map[string][]string
	byKind  map[shader.Kind][]string
	ids     []string
	byPath  map[string]string
	fp      corpus.Fingerprint
	builtAt time.Time
}

// newSnapshot indexes entries into a snapshot. Walking ids in ascending
// order keeps every posting list sorted, so queries return ordered
// results without re-sorting.
func newSnapshot(entries map[string]*Entry, fp corpus.Fingerprint, builtAt time.Time) *Snapshot {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	s := &Snapshot{
		entries: entries,
		byTag:   make(map[string][]string),
		byKind:  make(map[shader.Kind][]string),
		ids:     ids,
		byPath:  make(map[string]string, len(entries)),
		fp:      fp,
		builtAt: builtAt,
	}

	for _, id := range ids {
		e := entries[id]

		seen := make(map[string]struct{}, len(e.Record.Tags))
		for _, tag := range e.Record.Tags {
			lower := strings.ToLower(tag)
			if _, dup := seen[lower]; dup {
				continue
			}
			seen[lower] = struct{}{}
			s.byTag[lower] = append(s.byTag[lower], id)
		}

		for _, k := range e.Requires.Kinds() {
			s.byKind[k] = append(s.byKind[k], id)
		}

		if e.Record.SourcePath != "" {
			s.byPath[filepath.Base(e.Record.SourcePath)] = id
		}
	}
	return s
}

// Len returns the number of indexed shaders.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// IDs returns every indexed id in ascending order. The returned slice
// is shared; callers must not modify it.
func (s *Snapshot) IDs() []string {
	return s.ids
}

// Entry returns the indexed entry for id.
func (s *Snapshot) Entry(id string) (*Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// IDsByTag returns the ids carrying tag, matched case-insensitively,
// in ascending order. The returned slice is shared; callers must not
// modify it.
func (s *Snapshot) IDsByTag(tag string) []string {
	return s.byTag[strings.ToLower(tag)]
}

// IDsByKind returns the ids requiring kind, in ascending order. The
// returned slice is shared; callers must not modify it.
func (s *Snapshot) IDsByKind(k shader.Kind) []string {
	return s.byKind[k]
}

// IDForPath returns the id of the record loaded from the document with
// the given base filename.
func (s *Snapshot) IDForPath(base string) (string, bool) {
	id, ok := s.byPath[base]
	return id, ok
}

// Files returns the number of JSON documents the corpus held when the
// snapshot was built.
func (s *Snapshot) Files() int {
	return s.fp.Count
}

// Fingerprint returns the corpus state the snapshot was built from.
func (s *Snapshot) Fingerprint() corpus.Fingerprint {
	return s.fp
}

// BuiltAt returns when the snapshot was built.
func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

// TagCounts returns the number of shaders per lowercased tag.
func (s *Snapshot) TagCounts() map[string]int {
	counts := make(map[string]int, len(s.byTag))
	for tag, ids := range s.byTag {
		counts[tag] = len(ids)
	}
	return counts
}

// KindCounts returns the number of shaders per required kind.
func (s *Snapshot) KindCounts() map[shader.Kind]int {
	counts := make(map[shader.Kind]int, len(s.byKind))
	for k, ids := range s.byKind {
		counts[k] = len(ids)
	}
	return counts
}

// Derive builds a replacement snapshot with deletes removed and upserts
// applied, in that order, so a document rewrite that changes its id
// lands as delete-then-insert. The receiver is not modified; readers
// holding it keep a consistent view.
func (s *Snapshot) Derive(upserts []*Entry, deletes []string, fp corpus.Fingerprint, builtAt time.Time) *Snapshot {
	next := make(map[string]*Entry, len(s.entries)+len(upserts))
	for id, e := range s.entries {
		next[id] = e
	}
	for _, id := range deletes {
		delete(next, id)
	}
	for _, e := range upserts {
		next[e.Record.ID] = e
	}
	return newSnapshot(next, fp, builtAt)
}

// Handle publishes the current snapshot to concurrent readers. Writers
// build a replacement off to the side and swap it in; readers never
// block and never see a partial update.
type Handle struct {
	ptr atomic.Pointer[Snapshot]
}

// NewHandle creates a Handle seeded with s.
func NewHandle(s *Snapshot) *Handle {
	h := &Handle{}
	h.ptr.Store(s)
	return h
}

// Load returns the current snapshot.
func (h *Handle) Load() *Snapshot {
	return h.ptr.Load()
}

// Swap publishes s and returns the snapshot it replaced.
func (h *Handle) Swap(s *Snapshot) *Snapshot {
	return h.ptr.Swap(s)
}
