package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// KindCount pairs a resource kind name with its shader count.
type KindCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TagCount pairs a tag with its shader count.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// StatusInfo contains corpus and index health information.
type StatusInfo struct {
	// Corpus stats
	CorpusDir   string    `json:"corpus_dir"`
	Records     int       `json:"records"`
	Files       int       `json:"files"`
	Tags        int       `json:"tags"`
	LastIndexed time.Time `json:"last_indexed"`

	// Cache state
	CacheSize   int64  `json:"cache_size"`
	Fingerprint string `json:"fingerprint,omitempty"`

	// Breakdown by requirement and tag
	KindCounts []KindCount `json:"kind_counts,omitempty"`
	TopTags    []TagCount  `json:"top_tags,omitempty"`

	// Component status
	WatcherStatus string `json:"watcher_status"` // "running", "stopped", "n/a"
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out     io.Writer
	styles  Styles
	noColor bool
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:     out,
		styles:  GetStyles(noColor),
		noColor: noColor,
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	// Header
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Corpus Status: "+info.CorpusDir))

	// Corpus stats
	_, _ = fmt.Fprintf(r.out, "  Shaders:      %d\n", info.Records)
	_, _ = fmt.Fprintf(r.out, "  Files:        %d\n", info.Files)
	_, _ = fmt.Fprintf(r.out, "  Tags:         %d\n", info.Tags)
	if !info.LastIndexed.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Last indexed: %s\n", formatTime(info.LastIndexed))
	}
	_, _ = fmt.Fprintln(r.out)

	// Requirement breakdown
	if len(info.KindCounts) > 0 {
		_, _ = fmt.Fprintln(r.out, "  Requirements:")
		for _, kc := range info.KindCounts {
			_, _ = fmt.Fprintf(r.out, "    %-12s %d\n", kc.Name+":", kc.Count)
		}
		_, _ = fmt.Fprintln(r.out)
	}

	// Most common tags
	if len(info.TopTags) > 0 {
		_, _ = fmt.Fprintln(r.out, "  Top tags:")
		for _, tc := range info.TopTags {
			_, _ = fmt.Fprintf(r.out, "    %-12s %d\n", tc.Name+":", tc.Count)
		}
		_, _ = fmt.Fprintln(r.out)
	}

	// Cache state
	_, _ = fmt.Fprintln(r.out, "  Cache:")
	_, _ = fmt.Fprintf(r.out, "    Size:        %s\n", FormatBytes(info.CacheSize))
	if info.Fingerprint != "" {
		fp := info.Fingerprint
		if len(fp) > 16 {
			fp = fp[:16]
		}
		_, _ = fmt.Fprintf(r.out, "    Fingerprint: %s\n", fp)
	}
	_, _ = fmt.Fprintln(r.out)

	// Watcher status
	if info.WatcherStatus != "" && info.WatcherStatus != "n/a" {
		_, _ = fmt.Fprintf(r.out, "  Watcher: %s\n", r.renderStatus(info.WatcherStatus))
	}

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

// renderStatus formats a status string with color.
func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready", "running":
		return r.styles.Success.Render(status)
	case "offline", "stopped":
		return r.styles.Warning.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
