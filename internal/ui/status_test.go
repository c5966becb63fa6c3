package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRenderer_Render(t *testing.T) {
	// Given: status info for a corpus
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	info := StatusInfo{
		CorpusDir:   "/shaders/json",
		Records:     24503,
		Files:       24510,
		Tags:        1874,
		LastIndexed: time.Now().Add(-2 * time.Hour),
		CacheSize:   18 * 1024 * 1024,
		Fingerprint: "9f2c4a1b8d3e5f60aabbccddeeff0011",
		KindCounts: []KindCount{
			{Name: "Texture", Count: 6034},
			{Name: "Buffer", Count: 4120},
		},
		TopTags: []TagCount{
			{Name: "raymarching", Count: 3012},
			{Name: "fractal", Count: 1540},
		},
		WatcherStatus: "running",
	}

	// When: rendering
	err := r.Render(info)
	require.NoError(t, err)

	// Then: all sections appear
	output := buf.String()
	assert.Contains(t, output, "Corpus Status: /shaders/json")
	assert.Contains(t, output, "24503")
	assert.Contains(t, output, "1874")
	assert.Contains(t, output, "2 hours ago")
	assert.Contains(t, output, "Texture:")
	assert.Contains(t, output, "6034")
	assert.Contains(t, output, "raymarching:")
	assert.Contains(t, output, "18.0 MB")
	assert.Contains(t, output, "9f2c4a1b8d3e5f60") // fingerprint shortened
	assert.Contains(t, output, "running")
}

func TestStatusRenderer_Render_MinimalInfo(t *testing.T) {
	// Given: sparse status info
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	info := StatusInfo{
		CorpusDir:     "json",
		WatcherStatus: "n/a",
	}

	// When: rendering
	err := r.Render(info)
	require.NoError(t, err)

	// Then: optional sections are omitted
	output := buf.String()
	assert.NotContains(t, output, "Requirements:")
	assert.NotContains(t, output, "Top tags:")
	assert.NotContains(t, output, "Watcher:")
	assert.NotContains(t, output, "Last indexed:")
}

func TestStatusRenderer_RenderJSON(t *testing.T) {
	// Given: status info
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	info := StatusInfo{
		CorpusDir: "/shaders/json",
		Records:   100,
		Files:     102,
		KindCounts: []KindCount{
			{Name: "Sound", Count: 12},
		},
	}

	// When: rendering as JSON
	err := r.RenderJSON(info)
	require.NoError(t, err)

	// Then: output round-trips
	var decoded StatusInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, info.CorpusDir, decoded.CorpusDir)
	assert.Equal(t, info.Records, decoded.Records)
	require.Len(t, decoded.KindCounts, 1)
	assert.Equal(t, "Sound", decoded.KindCounts[0].Name)
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"just now", time.Now().Add(-10 * time.Second), "just now"},
		{"minutes", time.Now().Add(-5 * time.Minute), "5 minutes ago"},
		{"one minute", time.Now().Add(-1 * time.Minute), "1 minute ago"},
		{"hours", time.Now().Add(-3 * time.Hour), "3 hours ago"},
		{"days", time.Now().Add(-48 * time.Hour), "2 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatTime(tt.t))
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.bytes))
		})
	}
}
