package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaderdex/shaderdex/internal/config"
	sderrors "github.com/shaderdex/shaderdex/internal/errors"
	"github.com/shaderdex/shaderdex/internal/index"
	"github.com/shaderdex/shaderdex/internal/output"
	"github.com/shaderdex/shaderdex/internal/query"
	"github.com/shaderdex/shaderdex/internal/shader"
	"github.com/shaderdex/shaderdex/internal/telemetry"
	"github.com/shaderdex/shaderdex/internal/ui"
)

// descriptionClip caps how much of a description the text format
// prints per match.
const descriptionClip = 100

// queryOptions holds the root command's flags.
type queryOptions struct {
	tags        []string
	name        string
	author      string
	description string
	kinds       map[shader.Kind]*bool

	jsonDir string
	reindex bool
	addTags bool
	format  string
	limit   int
}

// registerQueryFlags wires the root query surface. Kind flags come
// from the closed enum, so a new resource kind shows up here without
// touching flag code.
func registerQueryFlags(cmd *cobra.Command, opts *queryOptions) {
	f := cmd.Flags()

	f.StringSliceVar(&opts.tags, "tags", nil, "Require tags (repeatable or comma-separated)")
	f.StringVar(&opts.name, "name", "", "Require a name substring")
	f.StringVar(&opts.author, "author", "", "Require an author substring")
	f.StringVar(&opts.description, "description", "", "Require a description substring")

	opts.kinds = make(map[shader.Kind]*bool, len(shader.Kinds()))
	for _, k := range shader.Kinds() {
		opts.kinds[k] = f.Bool(k.String(), false, fmt.Sprintf("Require the %s resource kind", k))
	}

	f.StringVar(&opts.jsonDir, "json-dir", "", "Corpus directory of shader JSON documents")
	f.BoolVar(&opts.reindex, "reindex", false, "Force cache invalidation and a full rebuild")
	f.BoolVar(&opts.addTags, "add-tags", false, "Run the enrichment pass instead of a query")
	f.StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	f.IntVarP(&opts.limit, "limit", "n", 0, "Maximum results to print (0 = all)")
}

// buildQuery assembles the engine query from the parsed flags.
func (o *queryOptions) buildQuery() query.Query {
	q := query.Query{
		Tags:        o.tags,
		Name:        strings.TrimSpace(o.name),
		Author:      strings.TrimSpace(o.author),
		Description: strings.TrimSpace(o.description),
	}
	for _, k := range shader.Kinds() {
		if set := o.kinds[k]; set != nil && *set {
			q.Requires = q.Requires.Add(k)
		}
	}
	return q
}

func runQuery(ctx context.Context, cmd *cobra.Command, opts *queryOptions) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	jsonDir := resolveJSONDir(cfg, opts.jsonDir)

	if opts.addTags {
		return runEnrich(ctx, cmd, jsonDir, resolveTagDirs(jsonDir, cfg.Corpus.TagSources))
	}

	q := opts.buildQuery()
	if q.Empty() {
		_ = cmd.Usage()
		return sderrors.New(sderrors.ErrCodeEmptyQuery, "no query clauses given", nil).
			WithSuggestion("pass at least one of --tags, --name, --author, --description, or a resource kind flag")
	}
	if opts.format != "text" && opts.format != "json" {
		return sderrors.Newf(sderrors.ErrCodeConfigInvalid, "unknown format %q", opts.format)
	}

	res, err := loadIndex(ctx, cmd, cfg, jsonDir, opts.reindex)
	if err != nil {
		return err
	}

	var engineOpts []query.EngineOption
	if cfg.Telemetry.Enabled {
		if ts, terr := telemetry.Open(config.TelemetryPath(jsonDir)); terr != nil {
			slog.Warn("telemetry_open_failed", "error", terr)
		} else {
			defer func() { _ = ts.Close() }()
			engineOpts = append(engineOpts, query.WithMetrics(ts))
		}
	}

	engine, err := query.NewEngine(index.NewHandle(res.Snapshot), engineOpts...)
	if err != nil {
		return err
	}
	ids, err := engine.Evaluate(ctx, q)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return printMatchesJSON(cmd, res.Snapshot, ids, opts.limit)
	}
	return printMatchesText(output.New(cmd.OutOrStdout()), res.Snapshot, q, ids, opts.limit)
}

// loadIndex builds or cache-loads the snapshot with plain progress on
// stderr, so stdout carries only results.
func loadIndex(ctx context.Context, cmd *cobra.Command, cfg *config.Config, jsonDir string, force bool) (*index.RunnerResult, error) {
	progress := io.Writer(cmd.ErrOrStderr())
	if quiet {
		progress = io.Discard
	}
	renderer := ui.NewPlainRenderer(ui.NewConfig(progress, ui.WithNoColor(noColor)))

	runner, err := index.NewRunner(index.RunnerConfig{
		JSONDir:      jsonDir,
		Workers:      cfg.Corpus.Workers,
		MaxFileSize:  int64(cfg.Corpus.MaxFileSizeKB) * 1024,
		ForceRebuild: force,
	}, index.RunnerDependencies{
		Renderer: renderer,
		Cache:    index.NewCache(jsonDir),
	})
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx)
}

func printMatchesText(out *output.Writer, snap *index.Snapshot, q query.Query, ids []string, limit int) error {
	if len(ids) == 0 {
		out.Statusf("", "no shaders matched (%s)", q)
		return nil
	}

	out.Statusf("🔍", "Found %d matching shaders:", len(ids))
	out.Newline()

	shown := ids
	if limit > 0 && limit < len(shown) {
		shown = shown[:limit]
	}
	for i, id := range shown {
		e, ok := snap.Entry(id)
		if !ok {
			continue
		}
		rec := e.Record

		out.Statusf("", "%d. %s - %s by %s", i+1, rec.ID, rec.Name, rec.Author)
		if len(rec.Tags) > 0 {
			out.Status("", "   tags: "+strings.Join(rec.Tags, ", "))
		}
		if names := e.Requires.Names(); len(names) > 0 {
			out.Status("", "   requires: "+strings.Join(names, ", "))
		}
		if rec.Description != "" {
			out.Status("", "   "+clip(rec.Description, descriptionClip))
		}
		out.Newline()
	}

	if len(shown) < len(ids) {
		out.Statusf("", "... %d more not shown (raise --limit or use --limit 0)", len(ids)-len(shown))
	}
	return nil
}

func printMatchesJSON(cmd *cobra.Command, snap *index.Snapshot, ids []string, limit int) error {
	type jsonMatch struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Author      string   `json:"author"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
		Requires    []string `json:"requires"`
		File        string   `json:"file,omitempty"`
	}

	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	matches := make([]jsonMatch, 0, len(ids))
	for _, id := range ids {
		e, ok := snap.Entry(id)
		if !ok {
			continue
		}
		rec := e.Record
		tags := rec.Tags
		if tags == nil {
			tags = []string{}
		}
		matches = append(matches, jsonMatch{
			ID:          rec.ID,
			Name:        rec.Name,
			Author:      rec.Author,
			Description: rec.Description,
			Tags:        tags,
			Requires:    e.Requires.Names(),
			File:        rec.SourcePath,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(matches)
}

// clip truncates s to at most n runes, marking the cut.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
