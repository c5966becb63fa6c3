package server

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	sderrors "github.com/shaderdex/shaderdex/internal/errors"
	"github.com/shaderdex/shaderdex/internal/index"
	"github.com/shaderdex/shaderdex/internal/query"
	"github.com/shaderdex/shaderdex/internal/shader"
)

// routes assembles the chi router. Logging wraps metrics wraps
// recovery, so a recovered panic is still counted and logged as a 500.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	r.Use(s.observeRequests)
	r.Use(s.recoverPanics)

	r.Get("/api/shaders", s.handleBrowse)
	r.Get("/api/shaders/{id}", s.handleShader)
	r.Get("/api/search", s.handleSearch)
	r.Get("/api/tags", s.handleTags)
	r.Get("/api/kinds", s.handleKinds)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	return r
}

// shaderSummary is the list-view projection of an indexed shader.
type shaderSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Author   string   `json:"author"`
	Tags     []string `json:"tags"`
	Requires []string `json:"requires"`
}

// shaderDetail is the full document view.
type shaderDetail struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Author      string       `json:"author"`
	Description string       `json:"description"`
	Tags        []string     `json:"tags"`
	Requires    []string     `json:"requires"`
	Passes      []passDetail `json:"passes"`
}

type passDetail struct {
	Type   string        `json:"type"`
	Name   string        `json:"name"`
	Code   string        `json:"code"`
	Inputs []inputDetail `json:"inputs"`
}

type inputDetail struct {
	Type     string `json:"type"`
	Channel  int    `json:"channel"`
	FilePath string `json:"filepath"`
}

// pageEnvelope is the pagination wrapper shared by browse and search.
type pageEnvelope struct {
	Shaders []shaderSummary `json:"shaders"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Pages   int             `json:"pages"`
	HasNext bool            `json:"has_next"`
	HasPrev bool            `json:"has_prev"`
}

type tagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type tagsResponse struct {
	Tags  []tagCount `json:"tags"`
	Total int        `json:"total"`
}

type kindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

type kindsResponse struct {
	Kinds []kindCount `json:"kinds"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Records   int       `json:"records"`
	BuiltAt   time.Time `json:"built_at"`
	FromCache bool      `json:"from_cache"`
}

// snapshot loads the published snapshot, answering 503 when the index
// has not been seeded yet.
func (s *Server) snapshot(w http.ResponseWriter) (*index.Snapshot, bool) {
	snap := s.engine.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, sderrors.ErrCodeInternal, "index not ready")
		return nil, false
	}
	return snap, true
}

// pageParams reads and validates the pagination parameters. page_size
// is clamped to the configured maximum rather than rejected.
func (s *Server) pageParams(r *http.Request) (int, int, error) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, 0, sderrors.Newf(sderrors.ErrCodeBadPage,
				"page must be a positive integer, got %q", raw)
		}
		page = n
	}

	size := s.cfg.PageSize
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, 0, sderrors.Newf(sderrors.ErrCodeBadPage,
				"page_size must be a positive integer, got %q", raw)
		}
		if n > s.cfg.MaxPageSize {
			n = s.cfg.MaxPageSize
		}
		size = n
	}

	return page, size, nil
}

// envelope pages ids and projects them through the snapshot. has_next
// and has_prev are taken before clamping, so an out-of-range page
// still reports the neighbors it would have.
func envelope(snap *index.Snapshot, ids []string, page, size int) pageEnvelope {
	total := len(ids)
	start := (page - 1) * size
	end := start + size

	env := pageEnvelope{
		Shaders: make([]shaderSummary, 0, size),
		Total:   total,
		Page:    page,
		Pages:   (total + size - 1) / size,
		HasNext: end < total,
		HasPrev: start > 0,
	}

	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	for _, id := range ids[start:end] {
		if e, ok := snap.Entry(id); ok {
			env.Shaders = append(env.Shaders, summarize(e))
		}
	}
	return env
}

func summarize(e *index.Entry) shaderSummary {
	rec := e.Record
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return shaderSummary{
		ID:       rec.ID,
		Name:     rec.Name,
		Author:   rec.Author,
		Tags:     tags,
		Requires: e.Requires.Names(),
	}
}

func detail(e *index.Entry) shaderDetail {
	rec := e.Record
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	d := shaderDetail{
		ID:          rec.ID,
		Name:        rec.Name,
		Author:      rec.Author,
		Description: rec.Description,
		Tags:        tags,
		Requires:    e.Requires.Names(),
		Passes:      make([]passDetail, 0, len(rec.Passes)),
	}
	for _, p := range rec.Passes {
		pd := passDetail{
			Type:   p.Type,
			Name:   p.Name,
			Code:   p.Code,
			Inputs: make([]inputDetail, 0, len(p.Inputs)),
		}
		for _, in := range p.Inputs {
			pd.Inputs = append(pd.Inputs, inputDetail{
				Type:     in.Type,
				Channel:  in.Channel,
				FilePath: in.FilePath,
			})
		}
		d.Passes = append(d.Passes, pd)
	}
	return d
}

// handleBrowse lists shaders in ascending id order, optionally
// filtered by a free-text substring over name, author, and
// description.
func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	page, size, err := s.pageParams(r)
	if err != nil {
		writeDexError(w, http.StatusBadRequest, err)
		return
	}
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}

	ids := snap.IDs()
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		needle := strings.ToLower(q)
		filtered := make([]string, 0, len(ids))
		for _, id := range ids {
			e, ok := snap.Entry(id)
			if !ok {
				continue
			}
			rec := e.Record
			if strings.Contains(strings.ToLower(rec.Name), needle) ||
				strings.Contains(strings.ToLower(rec.Author), needle) ||
				strings.Contains(strings.ToLower(rec.Description), needle) {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}

	writeJSON(w, http.StatusOK, envelope(snap, ids, page, size))
}

// handleShader returns the full document for one id.
func (s *Server) handleShader(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := s.engine.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "", fmt.Sprintf("shader %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, detail(e))
}

// handleSearch evaluates a structured conjunctive query. Full result
// id lists are memoized per snapshot generation; pagination is applied
// per request on top.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	page, size, err := s.pageParams(r)
	if err != nil {
		writeDexError(w, http.StatusBadRequest, err)
		return
	}

	q, err := parseQuery(r)
	if err != nil {
		writeDexError(w, http.StatusBadRequest, err)
		return
	}
	if q.Empty() {
		writeError(w, http.StatusBadRequest, sderrors.ErrCodeEmptyQuery, "query has no clauses")
		return
	}

	snap, ok := s.snapshot(w)
	if !ok {
		return
	}

	key := cacheKey(generation(snap), q.String())
	ids, hit := s.cache.get(key)
	if hit {
		s.metrics.cacheHits.Inc()
	} else {
		s.metrics.cacheMisses.Inc()
		// Evaluate loads its own snapshot; a swap between the two
		// loads only drops a just-deleted id from the page.
		ids, err = s.engine.Evaluate(r.Context(), q)
		if err != nil {
			status := http.StatusInternalServerError
			if sderrors.IsCode(err, sderrors.ErrCodeEmptyQuery) {
				status = http.StatusBadRequest
			}
			writeDexError(w, status, err)
			return
		}
		s.cache.add(key, ids)
	}
	s.metrics.queryResults.Observe(float64(len(ids)))

	writeJSON(w, http.StatusOK, envelope(snap, ids, page, size))
}

// handleTags enumerates indexed tags with shader counts, most common
// first.
func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, sderrors.ErrCodeBadPage,
				fmt.Sprintf("limit must be a non-negative integer, got %q", raw))
			return
		}
		limit = n
	}

	snap, ok := s.snapshot(w)
	if !ok {
		return
	}

	counts := snap.TagCounts()
	tags := make([]tagCount, 0, len(counts))
	for tag, n := range counts {
		tags = append(tags, tagCount{Tag: tag, Count: n})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})

	total := len(tags)
	if limit > 0 && limit < len(tags) {
		tags = tags[:limit]
	}
	writeJSON(w, http.StatusOK, tagsResponse{Tags: tags, Total: total})
}

// handleKinds enumerates the closed kind set with per-kind shader
// counts, zeros included.
func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	counts := snap.KindCounts()
	all := shader.Kinds()
	kinds := make([]kindCount, 0, len(all))
	for _, k := range all {
		kinds = append(kinds, kindCount{Kind: k.String(), Count: counts[k]})
	}
	writeJSON(w, http.StatusOK, kindsResponse{Kinds: kinds})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "starting"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Records:   snap.Len(),
		BuiltAt:   snap.BuiltAt(),
		FromCache: s.fromCache,
	})
}

// parseQuery builds the engine query from request parameters. Comma
// lists and repeated parameters are both accepted for tags and
// requires.
func parseQuery(r *http.Request) (query.Query, error) {
	params := r.URL.Query()

	q := query.Query{
		Tags:        splitList(params["tags"]),
		Name:        strings.TrimSpace(params.Get("name")),
		Author:      strings.TrimSpace(params.Get("author")),
		Description: strings.TrimSpace(params.Get("description")),
	}

	for _, tok := range splitList(params["requires"]) {
		k, ok := shader.ParseKind(tok)
		if !ok {
			return query.Query{}, sderrors.Newf(sderrors.ErrCodeUnknownKind,
				"unknown resource kind %q", tok)
		}
		q.Requires = q.Requires.Add(k)
	}
	return q, nil
}

// splitList flattens repeated and comma-separated parameter values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// generation identifies one published snapshot for cache scoping.
func generation(snap *index.Snapshot) string {
	return fmt.Sprintf("%s:%d", snap.Fingerprint().Digest, snap.BuiltAt().UnixNano())
}
