package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shaderdex/shaderdex/internal/config"
	sderrors "github.com/shaderdex/shaderdex/internal/errors"
	"github.com/shaderdex/shaderdex/internal/index"
	"github.com/shaderdex/shaderdex/internal/shader"
	"github.com/shaderdex/shaderdex/internal/telemetry"
	"github.com/shaderdex/shaderdex/internal/ui"
)

const topTagCount = 10

func newStatsCmd() *cobra.Command {
	var (
		jsonDir    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long: `Display the state of the persisted index: record and file counts,
requirement and tag breakdowns, cache size, and build time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, jsonDir, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&jsonDir, "json-dir", "", "Corpus directory of shader JSON documents")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(newStatsQueriesCmd())
	return cmd
}

func runStats(cmd *cobra.Command, jsonDirFlag string, jsonOutput bool) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	jsonDir := resolveJSONDir(cfg, jsonDirFlag)

	cache := index.NewCache(jsonDir)
	snap, err := cache.Load()
	if err != nil {
		return err
	}
	if snap == nil {
		return sderrors.Newf(sderrors.ErrCodeCacheRead, "no index found for %s", jsonDir).
			WithSuggestion("run 'shaderdex index' to create one")
	}

	info := ui.StatusInfo{
		CorpusDir:     jsonDir,
		Records:       snap.Len(),
		Files:         snap.Files(),
		Tags:          len(snap.TagCounts()),
		LastIndexed:   snap.BuiltAt(),
		CacheSize:     cache.Size(),
		Fingerprint:   snap.Fingerprint().Digest,
		KindCounts:    kindBreakdown(snap),
		TopTags:       topTags(snap, topTagCount),
		WatcherStatus: "n/a",
	}

	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor)
	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

// kindBreakdown lists requirement kinds with at least one shader,
// most common first. Ties stay in kind order so output is stable.
func kindBreakdown(snap *index.Snapshot) []ui.KindCount {
	counts := snap.KindCounts()
	out := make([]ui.KindCount, 0, len(counts))
	for _, k := range shader.Kinds() {
		if n := counts[k]; n > 0 {
			out = append(out, ui.KindCount{Name: k.String(), Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func topTags(snap *index.Snapshot, n int) []ui.TagCount {
	counts := snap.TagCounts()
	out := make([]ui.TagCount, 0, len(counts))
	for tag, count := range counts {
		out = append(out, ui.TagCount{Name: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func newStatsQueriesCmd() *cobra.Command {
	var (
		jsonDir    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Show query pattern telemetry",
		Long: `Display query telemetry recorded by past searches:
  - Query shape distribution (which clauses get combined)
  - Top free-text terms
  - Recent zero-result queries
  - Latency distribution`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatsQueries(cmd.Context(), cmd, jsonDir, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&jsonDir, "json-dir", "", "Corpus directory of shader JSON documents")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatsQueries(ctx context.Context, cmd *cobra.Command, jsonDirFlag string, jsonOutput bool) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	jsonDir := resolveJSONDir(cfg, jsonDirFlag)

	path := config.TelemetryPath(jsonDir)
	if _, err := os.Stat(path); err != nil {
		return sderrors.Newf(sderrors.ErrCodeTelemetry, "no telemetry found for %s", jsonDir).
			WithSuggestion("run a few queries to record some")
	}

	store, err := telemetry.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summary, err := store.Summarize(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	return printQueriesFormatted(cmd, summary)
}

func printQueriesFormatted(cmd *cobra.Command, summary *telemetry.Summary) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, "Query Statistics")
	fmt.Fprintln(w, "================")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total Queries: %d\n", summary.TotalQueries)
	fmt.Fprintln(w)

	if len(summary.ShapeCounts) > 0 {
		fmt.Fprintln(w, "Query Shape Distribution:")
		shapes := make([]string, 0, len(summary.ShapeCounts))
		for shape := range summary.ShapeCounts {
			shapes = append(shapes, shape)
		}
		sort.Strings(shapes)
		for _, shape := range shapes {
			fmt.Fprintf(w, "  %s: %d\n", shape, summary.ShapeCounts[shape])
		}
		fmt.Fprintln(w)
	}

	if len(summary.TopTerms) > 0 {
		fmt.Fprintln(w, "Top Query Terms:")
		for i, tc := range summary.TopTerms {
			fmt.Fprintf(w, "  %d. %s (%d)\n", i+1, tc.Term, tc.Count)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "Top Query Terms: (none recorded yet)")
		fmt.Fprintln(w)
	}

	if len(summary.ZeroResultQueries) > 0 {
		fmt.Fprintln(w, "Recent Zero-Result Queries:")
		for _, q := range summary.ZeroResultQueries {
			fmt.Fprintf(w, "  - %q\n", q)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "Recent Zero-Result Queries: (none)")
		fmt.Fprintln(w)
	}

	if len(summary.LatencyBuckets) > 0 {
		fmt.Fprintln(w, "Latency Distribution:")
		buckets := []telemetry.LatencyBucket{
			telemetry.BucketP10,
			telemetry.BucketP50,
			telemetry.BucketP100,
			telemetry.BucketP500,
			telemetry.BucketP1000,
		}
		labels := map[telemetry.LatencyBucket]string{
			telemetry.BucketP10:   "<10ms",
			telemetry.BucketP50:   "10-50ms",
			telemetry.BucketP100:  "50-100ms",
			telemetry.BucketP500:  "100-500ms",
			telemetry.BucketP1000: ">=500ms",
		}
		for _, b := range buckets {
			if count, ok := summary.LatencyBuckets[b]; ok {
				fmt.Fprintf(w, "  %s: %d\n", labels[b], count)
			}
		}
	}

	return nil
}
