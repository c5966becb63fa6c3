package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shaderdex/shaderdex/internal/enrich"
	"github.com/shaderdex/shaderdex/internal/output"
)

func newEnrichCmd() *cobra.Command {
	var (
		jsonDir string
		tagDirs []string
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Write sourced tags and detected requirements back into the corpus",
		Long: `Enrich rewrites corpus documents in place: tags collected from tag
source directories are merged into each document's info.tags, and
info.requires is replaced with the canonical detected requirement
names. A second run over an unchanged corpus changes nothing.

A tag source is a directory of files where each file's name is a tag
and its contents are whitespace-separated shader ids.

Examples:
  shaderdex enrich
  shaderdex enrich --json-dir ./json --tag-dir ./search_results`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			dir := resolveJSONDir(cfg, jsonDir)
			dirs := tagDirs
			if len(dirs) == 0 {
				dirs = resolveTagDirs(dir, cfg.Corpus.TagSources)
			}
			return runEnrich(cmd.Context(), cmd, dir, dirs)
		},
	}

	cmd.Flags().StringVar(&jsonDir, "json-dir", "", "Corpus directory of shader JSON documents")
	cmd.Flags().StringArrayVar(&tagDirs, "tag-dir", nil, "Tag source directory (repeatable; default from config)")

	return cmd
}

func runEnrich(ctx context.Context, cmd *cobra.Command, jsonDir string, tagDirs []string) error {
	out := output.New(cmd.OutOrStdout())
	out.Statusf("🏷️", "Enriching %s from %d tag sources", jsonDir, len(tagDirs))

	report, err := enrich.New(nil).Run(ctx, jsonDir, tagDirs)
	if err != nil {
		return err
	}

	for _, w := range report.Warnings {
		if w.Path != "" {
			out.Warningf("%s: %v", w.Path, w.Err)
		} else {
			out.Warningf("%v", w.Err)
		}
	}

	out.Successf("Scanned %d documents: %d updated, %d unchanged",
		report.Scanned, report.Updated, report.Skipped)
	out.Statusf("", "tags added: %d, requirements added: %d",
		report.TagsAdded, report.RequiresAdded)
	return nil
}

// resolveTagDirs anchors relative tag-source entries beside the corpus
// directory, the layout the corpus ships with (search_results next to
// json). Absolute entries pass through.
func resolveTagDirs(jsonDir string, sources []string) []string {
	parent := filepath.Dir(jsonDir)
	dirs := make([]string, 0, len(sources))
	for _, src := range sources {
		if filepath.IsAbs(src) {
			dirs = append(dirs, src)
			continue
		}
		dirs = append(dirs, filepath.Join(parent, src))
	}
	return dirs
}
