package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaderdex/shaderdex/internal/index"
	"github.com/shaderdex/shaderdex/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var (
		jsonDir string
		force   bool
		noTUI   bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the corpus index",
		Long: `Index parses every shader document under the corpus directory,
detects resource requirements, and persists the result under
<json-dir>/.shaderdex/. When the corpus is unchanged the persisted
index is reused; --force rebuilds from scratch.

Examples:
  shaderdex index
  shaderdex index --json-dir ./json --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, jsonDir, force, noTUI)
		},
	}

	cmd.Flags().StringVar(&jsonDir, "json-dir", "", "Corpus directory of shader JSON documents")
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even when the persisted index is current")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable the progress TUI, use plain text output")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, jsonDirFlag string, force, noTUI bool) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	jsonDir := resolveJSONDir(cfg, jsonDirFlag)

	var renderer ui.Renderer
	if quiet {
		renderer = ui.NewPlainRenderer(ui.NewConfig(io.Discard))
	} else {
		renderer = ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
			ui.WithForcePlain(noTUI),
			ui.WithNoColor(noColor),
			ui.WithCorpusDir(jsonDir),
		))
	}

	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = renderer.Stop() }()

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
		return err
	}

	_, err = runner.Run(ctx)
	return err
}
