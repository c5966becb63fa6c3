// Package enrich rewrites corpus documents in place: external tag
// sources are folded into info.tags and detected resource
// requirements replace info.requires with canonical kind names. The
// pass is idempotent; a second run over an enriched corpus changes
// nothing.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shaderdex/shaderdex/internal/corpus"
	"github.com/shaderdex/shaderdex/internal/detect"
	sderrors "github.com/shaderdex/shaderdex/internal/errors"
	"github.com/shaderdex/shaderdex/internal/shader"
)

// Warning is a non-fatal problem with one file.
type Warning struct {
	Path string
	Err  error
}

// Report summarizes one enrichment run.
type Report struct {
	// Scanned is the number of documents examined.
	Scanned int

	// Updated is the number of documents rewritten.
	Updated int

	// Skipped is the number of documents left unchanged.
	Skipped int

	// TagsAdded counts tag additions across all documents.
	TagsAdded int

	// RequiresAdded counts requirement additions across all documents.
	RequiresAdded int

	// Warnings holds per-file problems. None of them abort the run.
	Warnings []Warning
}

// Enricher runs the tag and requirement write-back pass.
type Enricher struct {
	detector    *detect.Detector
	maxFileSize int64
}

// New creates an enricher. A nil detector gets the default policy.
func New(d *detect.Detector) *Enricher {
	if d == nil {
		d = detect.New()
	}
	return &Enricher{detector: d, maxFileSize: corpus.DefaultMaxFileSize}
}

// Run enriches every document under jsonDir. Tag sources are read
// from tagDirs; a missing source directory is a warning. The returned
// error is fatal (bad corpus dir or canceled context); everything
// else lands in the report.
func (e *Enricher) Run(ctx context.Context, jsonDir string, tagDirs []string) (*Report, error) {
	absDir, err := filepath.Abs(jsonDir)
	if err != nil {
		return nil, sderrors.Wrap(sderrors.ErrCodeDirNotFound, err).WithDetail("path", jsonDir)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, sderrors.Wrap(sderrors.ErrCodeDirNotFound, err).WithDetail("path", absDir)
	}
	if !info.IsDir() {
		return nil, sderrors.Newf(sderrors.ErrCodeDirNotFound, "%s is not a directory", absDir)
	}

	sources, warnings := loadTagSources(tagDirs)
	report := &Report{Warnings: warnings}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, sderrors.Wrap(sderrors.ErrCodeDirNotFound, err).WithDetail("path", absDir)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".json") {
			continue
		}

		report.Scanned++
		// Tag sources address documents by file stem, the id the
		// corpus layout promises.
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		res := e.enrichDocument(filepath.Join(absDir, name), sources[stem])

		if res.warn != nil {
			report.Warnings = append(report.Warnings, Warning{Path: filepath.Join(absDir, name), Err: res.warn})
		}
		if res.updated {
			report.Updated++
		} else {
			report.Skipped++
		}
		report.TagsAdded += res.tagsAdded
		report.RequiresAdded += res.requiresAdded
	}

	slog.Info("enrich_complete",
		slog.String("json_dir", absDir),
		slog.Int("scanned", report.Scanned),
		slog.Int("updated", report.Updated),
		slog.Int("tags_added", report.TagsAdded),
		slog.Int("requires_added", report.RequiresAdded),
		slog.Int("warnings", len(report.Warnings)),
	)

	return report, nil
}

type docResult struct {
	updated       bool
	tagsAdded     int
	requiresAdded int
	warn          error
}

// enrichDocument folds sourced tags and detected requirements into one
// document, rewriting it atomically when anything changed.
func (e *Enricher) enrichDocument(path string, sourcedTags []string) docResult {
	stat, err := os.Stat(path)
	if err != nil {
		return docResult{warn: err}
	}
	if stat.Size() > e.maxFileSize {
		return docResult{warn: sderrors.Newf(sderrors.ErrCodeRecordParse,
			"document is %d bytes, over the %d byte limit", stat.Size(), e.maxFileSize)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return docResult{warn: err}
	}

	rec, err := shader.ParseRecord(data, path)
	if err != nil {
		return docResult{warn: err}
	}
	newRequires := e.detector.Detect(rec).Names()

	// Decode generically so unknown fields survive the rewrite.
	// UseNumber keeps numeric literals byte-for-byte.
	root := make(map[string]any)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		return docResult{warn: sderrors.Wrap(sderrors.ErrCodeRecordParse, err)}
	}

	doc := root
	if _, ok := root["info"]; !ok {
		if wrapped, ok := root["data"].(map[string]any); ok {
			doc = wrapped
		}
	}
	docInfo, ok := doc["info"].(map[string]any)
	if !ok {
		return docResult{warn: sderrors.Newf(sderrors.ErrCodeRecordParse, "document has no info object")}
	}

	var res docResult

	tags := stringSlice(docInfo["tags"])
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		seen[strings.ToLower(tag)] = true
	}
	for _, tag := range sourcedTags {
		if !seen[tag] {
			tags = append(tags, tag)
			seen[tag] = true
			res.tagsAdded++
		}
	}
	if res.tagsAdded > 0 {
		docInfo["tags"] = tags
	}

	oldRequires := stringSlice(docInfo["requires"])
	requiresChanged := !equalStrings(oldRequires, newRequires)
	if requiresChanged {
		old := make(map[string]bool, len(oldRequires))
		for _, r := range oldRequires {
			old[r] = true
		}
		for _, r := range newRequires {
			if !old[r] {
				res.requiresAdded++
			}
		}
		// An absent key stays absent when there is nothing to record.
		if len(newRequires) > 0 || docInfo["requires"] != nil {
			docInfo["requires"] = newRequires
		} else {
			requiresChanged = false
		}
	}

	if res.tagsAdded == 0 && !requiresChanged {
		return res
	}

	if err := writeDocument(path, root, stat.Mode()); err != nil {
		res.warn = err
		res.tagsAdded = 0
		res.requiresAdded = 0
		return res
	}

	res.updated = true
	return res
}

// writeDocument marshals and replaces the file atomically, keeping
// its permissions.
func writeDocument(path string, root map[string]any, mode os.FileMode) error {
	out, err := json.Marshal(root)
	if err != nil {
		return sderrors.Wrap(sderrors.ErrCodeEnrichWrite, err).WithDetail("path", path)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, out, mode.Perm()); err != nil {
		return sderrors.Wrap(sderrors.ErrCodeEnrichWrite, err).WithDetail("path", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return sderrors.Wrap(sderrors.ErrCodeEnrichWrite, err).WithDetail("path", path)
	}
	return nil
}

// stringSlice extracts the string members of a decoded JSON array.
func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
