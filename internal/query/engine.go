package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sderrors "github.com/shaderdex/shaderdex/internal/errors"
	"github.com/shaderdex/shaderdex/internal/index"
	"github.com/shaderdex/shaderdex/internal/shader"
	"github.com/shaderdex/shaderdex/internal/telemetry"
)

// evalCheckInterval is how many candidates are filtered between
// context checks.
const evalCheckInterval = 1024

// Engine evaluates queries against the snapshot published through an
// index handle. It never mutates the snapshot, so any number of
// evaluations can run concurrently with watch-mode swaps.
type Engine struct {
	handle  *index.Handle
	metrics *telemetry.Store
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithMetrics sets an optional telemetry store. When set, every
// evaluation is recorded best-effort; recording failures are logged
// and never surface to the caller.
func WithMetrics(s *telemetry.Store) EngineOption {
	return func(e *Engine) {
		e.metrics = s
	}
}

// NewEngine creates a query engine over the given handle.
func NewEngine(handle *index.Handle, opts ...EngineOption) (*Engine, error) {
	if handle == nil {
		return nil, fmt.Errorf("index handle is required")
	}
	e := &Engine{handle: handle}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Snapshot returns the currently published snapshot.
func (e *Engine) Snapshot() *index.Snapshot {
	return e.handle.Load()
}

// Lookup returns the indexed entry for id.
func (e *Engine) Lookup(id string) (*index.Entry, bool) {
	snap := e.handle.Load()
	if snap == nil {
		return nil, false
	}
	return snap.Entry(id)
}

// Evaluate runs the query and returns matching shader ids in ascending
// order. A query with no clauses is a usage error; zero matches is a
// successful empty result.
func (e *Engine) Evaluate(ctx context.Context, q Query) ([]string, error) {
	start := time.Now()

	if q.Empty() {
		return nil, sderrors.New(sderrors.ErrCodeEmptyQuery,
			"query has no clauses", nil).
			WithSuggestion("pass at least one of --tags, --name, --author, --description, or a resource kind flag")
	}

	snap := e.handle.Load()
	if snap == nil {
		return nil, sderrors.New(sderrors.ErrCodeInternal,
			"no index snapshot is loaded", nil)
	}

	candidates, done := e.seed(snap, q)
	if done {
		e.record(ctx, q, 0, time.Since(start))
		return []string{}, nil
	}

	matches := make([]string, 0, len(candidates))
	needName := strings.ToLower(q.Name)
	needAuthor := strings.ToLower(q.Author)
	needDescription := strings.ToLower(q.Description)

	for i, id := range candidates {
		if i%evalCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		entry, ok := snap.Entry(id)
		if !ok {
			continue
		}
		rec := entry.Record

		if !entry.Requires.ContainsAll(q.Requires) {
			continue
		}
		if !hasAllTags(rec, q.Tags) {
			continue
		}
		if needName != "" && !strings.Contains(strings.ToLower(rec.Name), needName) {
			continue
		}
		if needAuthor != "" && !strings.Contains(strings.ToLower(rec.Author), needAuthor) {
			continue
		}
		if needDescription != "" && !strings.Contains(strings.ToLower(rec.Description), needDescription) {
			continue
		}

		matches = append(matches, id)
	}

	e.record(ctx, q, len(matches), time.Since(start))
	return matches, nil
}

// seed picks the candidate id list: the smallest posting list among
// the tag and kind clauses, or every id when the query is text-only.
// Posting lists are ascending, so filtering preserves result order.
// done is true when some clause has an empty posting list, which
// decides the whole conjunction.
func (e *Engine) seed(snap *index.Snapshot, q Query) (candidates []string, done bool) {
	candidates = snap.IDs()

	for _, tag := range q.Tags {
		ids := snap.IDsByTag(tag)
		if len(ids) == 0 {
			return nil, true
		}
		if len(ids) < len(candidates) {
			candidates = ids
		}
	}
	for _, kind := range q.Requires.Kinds() {
		ids := snap.IDsByKind(kind)
		if len(ids) == 0 {
			return nil, true
		}
		if len(ids) < len(candidates) {
			candidates = ids
		}
	}

	return candidates, false
}

// hasAllTags reports whether the record carries every queried tag,
// compared case-insensitively.
func hasAllTags(rec *shader.Record, tags []string) bool {
	for _, want := range tags {
		want = strings.ToLower(want)
		found := false
		for _, have := range rec.Tags {
			if strings.ToLower(have) == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// record sends the evaluation to the telemetry store, best-effort.
func (e *Engine) record(ctx context.Context, q Query, results int, latency time.Duration) {
	if e.metrics == nil {
		return
	}

	rec := telemetry.QueryRecord{
		Shape:       q.Shape(),
		Terms:       queryTerms(q),
		Text:        q.String(),
		ResultCount: results,
		Latency:     latency,
		Timestamp:   time.Now(),
	}
	if err := e.metrics.RecordQuery(ctx, rec); err != nil {
		slog.Warn("query_telemetry_failed", slog.String("error", err.Error()))
	}
}

// queryTerms collects recordable terms: tags, requirement kind names,
// and words from the text clauses.
func queryTerms(q Query) []string {
	var terms []string
	for _, tag := range q.Tags {
		terms = append(terms, strings.ToLower(tag))
	}
	terms = append(terms, q.Requires.Names()...)
	terms = append(terms, telemetry.ExtractTerms(q.Name)...)
	terms = append(terms, telemetry.ExtractTerms(q.Author)...)
	terms = append(terms, telemetry.ExtractTerms(q.Description)...)
	return terms
}
