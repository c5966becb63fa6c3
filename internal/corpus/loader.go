// Package corpus loads shader JSON documents from a directory into
// memory. Documents are parsed in parallel but resolved in a stable
// order so repeated loads of the same directory produce the same
// result.
package corpus

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	sderrors "github.com/shaderdex/shaderdex/internal/errors"
	"github.com/shaderdex/shaderdex/internal/shader"
)

// DefaultMaxFileSize is the default maximum document size (4MB).
const DefaultMaxFileSize = 4 * 1024 * 1024

// LoadOptions configures a corpus load.
type LoadOptions struct {
	// Dir is the directory containing per-shader JSON documents.
	Dir string

	// Workers is the number of parallel parsers (0 = NumCPU).
	Workers int

	// MaxFileSize skips documents larger than this many bytes
	// (0 = DefaultMaxFileSize).
	MaxFileSize int64

	// ProgressFunc is called after each document is processed.
	ProgressFunc func(done, total int)
}

// FileResult is one parsed document streamed from the loader. Seq is
// the document's position in the sorted directory listing; when two
// documents declare the same id the higher Seq wins.
type FileResult struct {
	Record *shader.Record
	Path   string
	Seq    int
	Err    error
}

// SkippedFile records a document that failed to parse.
type SkippedFile struct {
	Path string
	Err  error
}

// Duplicate records an id collision between two documents.
type Duplicate struct {
	ID      string
	Kept    string
	Dropped string
}

// LoadResult is the resolved outcome of a corpus load.
type LoadResult struct {
	// Records maps shader id to its record after dedupe.
	Records map[string]*shader.Record

	// Files is the number of JSON documents considered.
	Files int

	// Skipped lists documents dropped for parse failures.
	Skipped []SkippedFile

	// Duplicates lists id collisions, resolved last-wins.
	Duplicates []Duplicate
}

// Loader reads shader documents from disk.
type Loader struct{}

// New creates a Loader.
func New() *Loader {
	return &Loader{}
}

// Load reads every JSON document under opts.Dir and resolves them into
// a LoadResult. It is Stream followed by Resolve.
func (l *Loader) Load(ctx context.Context, opts LoadOptions) (*LoadResult, error) {
	results, total, err := l.Stream(ctx, opts)
	if err != nil {
		return nil, err
	}

	res := Resolve(results, opts.ProgressFunc, total)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Files = total
	return res, nil
}

// Stream lists the JSON documents under opts.Dir and parses them on a
// worker pool, streaming FileResults as they complete. The returned
// int is the number of documents that will be streamed. The channel is
// closed when all documents have been processed or ctx is canceled.
//
// Only top-level *.json files are considered; subdirectories (including
// the derived-artifact directory) are not descended into.
func (l *Loader) Stream(ctx context.Context, opts LoadOptions) (<-chan FileResult, int, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, 0, sderrors.Wrap(sderrors.ErrCodeDirNotFound, err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		return nil, 0, sderrors.Newf(sderrors.ErrCodeDirNotFound, "shader directory %s does not exist", absDir).
			WithSuggestion("pass --json-dir or set corpus.json_dir in .shaderdex.yaml")
	}
	if !info.IsDir() {
		return nil, 0, sderrors.Newf(sderrors.ErrCodeDirNotFound, "%s is not a directory", absDir)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	paths, err := listDocuments(absDir)
	if err != nil {
		return nil, 0, sderrors.Wrap(sderrors.ErrCodeDirNotFound, err)
	}

	results := make(chan FileResult, workers*4)

	type job struct {
		path string
		seq  int
	}
	jobs := make(chan job)

	go func() {
		defer close(results)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer close(jobs)
			for i, p := range paths {
				select {
				case jobs <- job{path: p, seq: i}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})

		for w := 0; w < workers; w++ {
			g.Go(func() error {
				for j := range jobs {
					res := parseDocument(j.path, j.seq, maxSize)
					select {
					case results <- res:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
				return nil
			})
		}

		_ = g.Wait()
	}()

	return results, len(paths), nil
}

// listDocuments returns the sorted absolute paths of the JSON documents
// directly under dir. ReadDir sorts by filename, which fixes the Seq
// ordering for duplicate resolution.
func listDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

func parseDocument(path string, seq int, maxSize int64) FileResult {
	info, err := os.Stat(path)
	if err != nil {
		return FileResult{Path: path, Seq: seq, Err: sderrors.Wrap(sderrors.ErrCodeRecordParse, err)}
	}
	if info.Size() > maxSize {
		return FileResult{Path: path, Seq: seq, Err: sderrors.Newf(sderrors.ErrCodeRecordParse,
			"document is %d bytes, over the %d byte limit", info.Size(), maxSize).
			WithDetail("path", path)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Seq: seq, Err: sderrors.Wrap(sderrors.ErrCodeRecordParse, err)}
	}
	rec, err := shader.ParseRecord(data, path)
	if err != nil {
		return FileResult{Path: path, Seq: seq, Err: sderrors.Wrap(sderrors.ErrCodeRecordParse, err).
			WithDetail("path", path)}
	}
	return FileResult{Record: rec, Path: path, Seq: seq}
}

// Resolve drains the result channel into a LoadResult, dropping parse
// failures and resolving duplicate ids last-wins by Seq. progress may
// be nil.
func Resolve(results <-chan FileResult, progress func(done, total int), total int) *LoadResult {
	type winner struct {
		rec  *shader.Record
		path string
		seq  int
	}

	byID := make(map[string]winner)
	res := &LoadResult{}
	done := 0

	for fr := range results {
		done++
		if progress != nil {
			progress(done, total)
		}

		if fr.Err != nil {
			res.Skipped = append(res.Skipped, SkippedFile{Path: fr.Path, Err: fr.Err})
			continue
		}

		id := fr.Record.ID
		prev, exists := byID[id]
		if !exists {
			byID[id] = winner{rec: fr.Record, path: fr.Path, seq: fr.Seq}
			continue
		}

		if fr.Seq > prev.seq {
			res.Duplicates = append(res.Duplicates, Duplicate{ID: id, Kept: fr.Path, Dropped: prev.path})
			byID[id] = winner{rec: fr.Record, path: fr.Path, seq: fr.Seq}
		} else {
			res.Duplicates = append(res.Duplicates, Duplicate{ID: id, Kept: prev.path, Dropped: fr.Path})
		}
	}

	res.Records = make(map[string]*shader.Record, len(byID))
	for id, w := range byID {
		res.Records[id] = w.rec
	}
	return res
}
