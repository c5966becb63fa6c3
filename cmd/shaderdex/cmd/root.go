// Package cmd provides the CLI commands for shaderdex.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shaderdex/shaderdex/internal/config"
	sderrors "github.com/shaderdex/shaderdex/internal/errors"
	"github.com/shaderdex/shaderdex/internal/logging"
	"github.com/shaderdex/shaderdex/internal/profiling"
	"github.com/shaderdex/shaderdex/pkg/version"
)

// Persistent flags shared by all commands.
var (
	configPath string
	logLevel   string
	quiet      bool
	noColor    bool

	profileCPU   string
	profileMem   string
	profileTrace string

	loggingCleanup func()
	profiler       = profiling.New()
	cpuStop        func()
	traceStop      func()
)

// NewRootCmd creates the root command. The root command itself
// evaluates a query against the corpus; everything else is a
// subcommand.
func NewRootCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "shaderdex",
		Short: "Index and query a corpus of shader documents",
		Long: `Shaderdex builds an in-memory index over a directory of per-shader
JSON documents and answers conjunctive queries over tags, names,
authors, descriptions, and inferred resource requirements.

The first run parses the corpus and persists the index under
<json-dir>/.shaderdex/; later runs load it back from there.

Examples:
  shaderdex --tags ocean,raymarching
  shaderdex --author iq --texture --cubemap
  shaderdex --name seascape --format json
  shaderdex --add-tags --json-dir ./json`,
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd.Context(), cmd, &opts)
		},
	}

	cmd.SetVersionTemplate("shaderdex version {{.Version}}\n")

	registerQueryFlags(cmd, &opts)

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: discovered .shaderdex.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress progress and status output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write a CPU profile to the given file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write a heap profile to the given file on exit")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write an execution trace to the given file")

	cmd.PersistentPreRunE = setupRun
	cmd.PersistentPostRunE = teardownRun

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newEnrichCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command. Errors are rendered here instead of
// by cobra so that codes and suggestions reach the user.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, sderrors.FormatForCLI(err))
	}
	return err
}

// resolveConfig loads configuration, honoring the --config override.
func resolveConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(config.FindProjectRoot("."))
}

// resolveJSONDir applies the flag override to the configured corpus
// directory and makes the result absolute.
func resolveJSONDir(cfg *config.Config, flag string) string {
	dir := cfg.Corpus.JSONDir
	if flag != "" {
		dir = flag
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// setupRun configures logging and starts any requested profiles
// before the command body runs.
func setupRun(cmd *cobra.Command, args []string) error {
	if err := setupLogging(cmd, args); err != nil {
		return err
	}
	return startProfiling()
}

// teardownRun stops profiling, writes the heap profile if one was
// requested, and flushes the log file. cobra runs it only after a
// successful command.
func teardownRun(*cobra.Command, []string) error {
	err := stopProfiling()
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

func startProfiling() error {
	if profileCPU != "" {
		stop, err := profiler.StartCPU(profileCPU)
		if err != nil {
			return err
		}
		cpuStop = stop
	}
	if profileTrace != "" {
		stop, err := profiler.StartTrace(profileTrace)
		if err != nil {
			stopProfileFunc(&cpuStop)
			return err
		}
		traceStop = stop
	}
	return nil
}

func stopProfiling() error {
	stopProfileFunc(&cpuStop)
	stopProfileFunc(&traceStop)
	if profileMem != "" {
		return profiler.WriteHeap(profileMem)
	}
	return nil
}

func stopProfileFunc(stop *func()) {
	if *stop != nil {
		(*stop)()
		*stop = nil
	}
}

// setupLogging routes slog to the rotating log file so stdout stays
// clean for results. serve additionally mirrors records to stderr.
// A failed log setup keeps the default logger rather than failing the
// command.
func setupLogging(cmd *cobra.Command, _ []string) error {
	if logLevel != "" && !logging.ValidLevel(logLevel) {
		return sderrors.Newf(sderrors.ErrCodeConfigInvalid, "unknown log level %q", logLevel).
			WithSuggestion("use debug, info, warn, or error")
	}

	logCfg := logging.DefaultConfig()
	if cfg, err := resolveConfig(); err == nil {
		logCfg.Level = cfg.Logging.Level
		if cfg.Logging.File != "" {
			logCfg.FilePath = cfg.Logging.File
		}
		logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		logCfg.MaxFiles = cfg.Logging.MaxFiles
	}
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	logCfg.WriteToStderr = cmd.Name() == "serve" && !quiet

	if logger, cleanup, err := logging.Setup(logCfg); err == nil {
		loggingCleanup = cleanup
		slog.SetDefault(logger)
	}
	return nil
}

