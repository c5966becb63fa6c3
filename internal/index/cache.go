package index

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/golang/snappy"

	"github.com/shaderdex/shaderdex/internal/corpus"
	sderrors "github.com/shaderdex/shaderdex/internal/errors"
	"github.com/shaderdex/shaderdex/internal/shader"
)

// cacheFormatVersion is bumped whenever the envelope layout changes.
// A mismatch forces a rebuild.
const cacheFormatVersion = 1

// DataDirName is the directory under the corpus dir holding derived
// artifacts: the cache blob, its lock file, and the telemetry database.
const DataDirName = ".shaderdex"

const (
	cacheFileName = "index.bin"
	lockFileName  = "index.lock"
)

// cacheEnvelope is the persisted form of a snapshot: the primary and
// inverted mappings plus the fingerprint they were built from. The
// derived id slice and path map are rebuilt on load.
type cacheEnvelope struct {
	FormatVersion int
	Fingerprint   corpus.Fingerprint
	BuiltAt       time.Time
	Entries       map[string]*Entry
	ByTag         map[string][]string
	ByKind        map[shader.Kind][]string
}

// Cache persists snapshots as a single snappy-compressed gob blob
// under the corpus directory.
type Cache struct {
	dir string
}

// NewCache creates a Cache for the corpus at jsonDir.
func NewCache(jsonDir string) *Cache {
	return &Cache{dir: filepath.Join(jsonDir, DataDirName)}
}

// Path returns the cache blob location.
func (c *Cache) Path() string {
	return filepath.Join(c.dir, cacheFileName)
}

func (c *Cache) lockPath() string {
	return filepath.Join(c.dir, lockFileName)
}

// Size returns the cache blob size in bytes, or 0 when absent.
func (c *Cache) Size() int64 {
	info, err := os.Stat(c.Path())
	if err != nil {
		return 0
	}
	return info.Size()
}

// Load reads the persisted snapshot. A missing blob returns (nil, nil):
// first runs have nothing to load. A blob that cannot be decoded, was
// written by a different format version, or violates index invariants
// returns a cache-read error; callers warn and rebuild.
func (c *Cache) Load() (*Snapshot, error) {
	if _, err := os.Stat(c.Path()); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sderrors.Wrap(sderrors.ErrCodeCacheRead, err)
	}

	lock := flock.New(c.lockPath())
	locked, err := lock.TryRLock()
	if err != nil {
		return nil, sderrors.Wrap(sderrors.ErrCodeCacheRead, err)
	}
	if !locked {
		return nil, sderrors.New(sderrors.ErrCodeCacheRead, "cache blob is locked by another process", nil)
	}
	defer lock.Unlock()

	f, err := os.Open(c.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sderrors.Wrap(sderrors.ErrCodeCacheRead, err)
	}
	defer f.Close()

	var env cacheEnvelope
	if err := gob.NewDecoder(snappy.NewReader(f)).Decode(&env); err != nil {
		return nil, sderrors.Wrap(sderrors.ErrCodeCacheRead, err).WithDetail("path", c.Path())
	}

	if env.FormatVersion != cacheFormatVersion {
		return nil, sderrors.Newf(sderrors.ErrCodeCacheRead,
			"cache blob has format version %d, want %d", env.FormatVersion, cacheFormatVersion)
	}
	if err := validateEnvelope(&env); err != nil {
		return nil, err
	}

	return snapshotFromEnvelope(&env), nil
}

// Save writes the snapshot as a compressed blob, atomically replacing
// any previous one. Losing the lock to another process skips the
// write; queries keep serving from the in-memory snapshot either way.
func (c *Cache) Save(snap *Snapshot) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return sderrors.Wrap(sderrors.ErrCodeCacheWrite, err)
	}

	lock := flock.New(c.lockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return sderrors.Wrap(sderrors.ErrCodeCacheWrite, err)
	}
	if !locked {
		return sderrors.New(sderrors.ErrCodeCacheWrite, "cache blob is locked by another process", nil)
	}
	defer lock.Unlock()

	env := &cacheEnvelope{
		FormatVersion: cacheFormatVersion,
		Fingerprint:   snap.fp,
		BuiltAt:       snap.builtAt,
		Entries:       snap.entries,
		ByTag:         snap.byTag,
		ByKind:        snap.byKind,
	}

	tmpPath := c.Path() + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return sderrors.Wrap(sderrors.ErrCodeCacheWrite, err)
	}

	w := snappy.NewBufferedWriter(f)
	if err := gob.NewEncoder(w).Encode(env); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return sderrors.Wrap(sderrors.ErrCodeCacheWrite, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return sderrors.Wrap(sderrors.ErrCodeCacheWrite, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return sderrors.Wrap(sderrors.ErrCodeCacheWrite, err)
	}

	if err := os.Rename(tmpPath, c.Path()); err != nil {
		os.Remove(tmpPath)
		return sderrors.Wrap(sderrors.ErrCodeCacheWrite, err)
	}
	return nil
}

// validateEnvelope rejects blobs whose inverted maps reference ids
// missing from the primary map. A truncated or hand-edited blob can
// decode cleanly and still be structurally broken.
func validateEnvelope(env *cacheEnvelope) error {
	for tag, ids := range env.ByTag {
		for _, id := range ids {
			if _, ok := env.Entries[id]; !ok {
				return sderrors.Newf(sderrors.ErrCodeCacheRead,
					"cache blob references unknown id %s under tag %q", id, tag)
			}
		}
	}
	for kind, ids := range env.ByKind {
		for _, id := range ids {
			if _, ok := env.Entries[id]; !ok {
				return sderrors.Newf(sderrors.ErrCodeCacheRead,
					"cache blob references unknown id %s under kind %s", id, kind)
			}
		}
	}
	return nil
}

// snapshotFromEnvelope restores a snapshot, rebuilding the derived id
// slice and path map that are not persisted. Gob decodes empty maps as
// nil, so an empty corpus round-trips through the nil guards.
func snapshotFromEnvelope(env *cacheEnvelope) *Snapshot {
	entries := env.Entries
	if entries == nil {
		entries = map[string]*Entry{}
	}
	byTag := env.ByTag
	if byTag == nil {
		byTag = map[string][]string{}
	}
	byKind := env.ByKind
	if byKind == nil {
		byKind = map[shader.Kind][]string{}
	}

	ids := make([]string, 0, len(entries))
	byPath := make(map[string]string, len(entries))
	for id, e := range entries {
		ids = append(ids, id)
		if e.Record.SourcePath != "" {
			byPath[filepath.Base(e.Record.SourcePath)] = id
		}
	}
	sort.Strings(ids)

	return &Snapshot{
		entries: entries,
		byTag:   byTag,
		byKind:  byKind,
		ids:     ids,
		byPath:  byPath,
		fp:      env.Fingerprint,
		builtAt: env.BuiltAt,
	}
}
