package enrich

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// loadTagSources reads every regular file in the given directories.
// Each file contributes one tag (the file name without extension,
// lowercased) to every shader id listed in its contents, whitespace
// separated. Returns sourced tags keyed by shader id, sorted per id.
// Unreadable files and missing directories are warnings, never fatal.
func loadTagSources(dirs []string) (map[string][]string, []Warning) {
	byID := make(map[string]map[string]struct{})
	var warnings []Warning

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			warnings = append(warnings, Warning{
				Path: dir,
				Err:  fmt.Errorf("read tag source dir: %w", err),
			})
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			tag := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
			if tag == "" {
				continue
			}

			path := filepath.Join(dir, name)
			data, err := os.ReadFile(path)
			if err != nil {
				warnings = append(warnings, Warning{Path: path, Err: err})
				continue
			}

			for _, id := range strings.Fields(string(data)) {
				tags, ok := byID[id]
				if !ok {
					tags = make(map[string]struct{})
					byID[id] = tags
				}
				tags[tag] = struct{}{}
			}
		}
	}

	sources := make(map[string][]string, len(byID))
	for id, tags := range byID {
		sorted := make([]string, 0, len(tags))
		for tag := range tags {
			sorted = append(sorted, tag)
		}
		sort.Strings(sorted)
		sources[id] = sorted
	}

	return sources, warnings
}
