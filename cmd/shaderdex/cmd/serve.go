package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shaderdex/shaderdex/internal/config"
	sderrors "github.com/shaderdex/shaderdex/internal/errors"
	"github.com/shaderdex/shaderdex/internal/index"
	"github.com/shaderdex/shaderdex/internal/output"
	"github.com/shaderdex/shaderdex/internal/query"
	"github.com/shaderdex/shaderdex/internal/server"
	"github.com/shaderdex/shaderdex/internal/telemetry"
	"github.com/shaderdex/shaderdex/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var (
		jsonDir string
		addr    string
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the corpus over an HTTP JSON API",
		Long: `Serve loads (or builds) the index and exposes it over HTTP:
browse, search, per-shader detail, tag and kind listings, and
Prometheus metrics. With watching enabled, changes to the corpus
directory fold into the live index without a restart.

Examples:
  shaderdex serve
  shaderdex serve --addr :9090 --watch=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, jsonDir, addr, watch)
		},
	}

	cmd.Flags().StringVar(&jsonDir, "json-dir", "", "Corpus directory of shader JSON documents")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (host:port)")
	cmd.Flags().BoolVar(&watch, "watch", true, "Watch the corpus directory and update the index live")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, jsonDirFlag, addrFlag string, watchFlag bool) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	jsonDir := resolveJSONDir(cfg, jsonDirFlag)
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = addrFlag
	}
	if cmd.Flags().Changed("watch") {
		cfg.Server.Watch = watchFlag
	}

	res, err := loadIndex(ctx, cmd, cfg, jsonDir, false)
	if err != nil {
		return err
	}
	handle := index.NewHandle(res.Snapshot)

	var engineOpts []query.EngineOption
	if cfg.Telemetry.Enabled {
		if store, terr := telemetry.Open(config.TelemetryPath(jsonDir)); terr != nil {
			slog.Warn("telemetry_open_failed", "error", terr)
		} else {
			defer func() { _ = store.Close() }()
			engineOpts = append(engineOpts, query.WithMetrics(store))
		}
	}
	eng, err := query.NewEngine(handle, engineOpts...)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Config:    cfg.Server,
		Engine:    eng,
		FromCache: res.FromCache,
	})
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	if !quiet {
		out := output.New(cmd.OutOrStdout())
		source := "fresh build"
		if res.FromCache {
			source = "cache"
		}
		out.Successf("Index ready: %d shaders (%s)", res.Snapshot.Len(), source)
		out.Statusf("🌐", "Serving HTTP API on http://%s", srv.Addr())
		if cfg.Server.Watch {
			out.Statusf("👀", "Watching %s for changes", jsonDir)
		}
		out.Statusf("", "Press Ctrl+C to stop")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })

	if cfg.Server.Watch {
		w, werr := watcher.NewCorpusWatcher(watcher.Options{
			DebounceWindow: time.Duration(cfg.Server.DebounceMS) * time.Millisecond,
		})
		if werr != nil {
			return werr
		}
		defer func() { _ = w.Stop() }()

		coord, cerr := index.NewCoordinator(index.CoordinatorConfig{
			JSONDir:     jsonDir,
			MaxFileSize: int64(cfg.Corpus.MaxFileSizeKB) * 1024,
		}, handle, nil, index.NewCache(jsonDir))
		if cerr != nil {
			return cerr
		}

		g.Go(func() error {
			// Start blocks for the life of the watch; cancellation is
			// the normal way out, not a failure.
			if err := w.Start(ctx, jsonDir); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			return applyWatchEvents(ctx, w, coord, srv.Metrics(), handle)
		})
	}

	return g.Wait()
}

// applyWatchEvents folds debounced watcher batches into the published
// snapshot. Per-batch failures are logged and skipped so one bad
// document cannot stall the watch.
func applyWatchEvents(ctx context.Context, w *watcher.CorpusWatcher, coord *index.Coordinator, metrics *server.Metrics, handle *index.Handle) error {
	events := w.Events()
	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-events:
			if !ok {
				return nil
			}
			changes := toFileChanges(batch)
			if len(changes) == 0 {
				continue
			}
			start := time.Now()
			if err := coord.Apply(ctx, changes); err != nil {
				slog.Warn("watch_apply_failed", "changes", len(changes),
					slog.Any("error", sderrors.FormatForLog(err)))
				continue
			}
			metrics.RecordRebuild(time.Since(start))
			slog.Info("index_updated", "changes", len(changes), "records", handle.Load().Len())
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watcher_error", "error", err)
		}
	}
}

func toFileChanges(batch []watcher.FileEvent) []index.FileChange {
	changes := make([]index.FileChange, 0, len(batch))
	for _, ev := range batch {
		typ := index.ChangeUpsert
		if ev.Op == watcher.OpDelete {
			typ = index.ChangeDelete
		}
		changes = append(changes, index.FileChange{Path: ev.Path, Type: typ})
	}
	return changes
}
