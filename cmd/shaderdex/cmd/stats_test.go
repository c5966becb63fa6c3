package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCmd_NoIndexFails(t *testing.T) {
	dir := writeTestCorpus(t)

	_, _, err := execute(t, "stats", "--json-dir", dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no index found")
}

func TestStatsCmd_ShowsIndexState(t *testing.T) {
	dir := writeTestCorpus(t)
	_, _, err := execute(t, "index", "--json-dir", dir, "--no-tui")
	require.NoError(t, err)

	stdout, _, err := execute(t, "stats", "--json-dir", dir)

	require.NoError(t, err)
	assert.Contains(t, stdout, "Corpus Status:")
	assert.Contains(t, stdout, "Shaders:      3")
	assert.Contains(t, stdout, "Requirements:")
	assert.Contains(t, stdout, "texture:")
	assert.Contains(t, stdout, "Top tags:")
	assert.Contains(t, stdout, "ocean:")
}

func TestStatsCmd_JSON(t *testing.T) {
	dir := writeTestCorpus(t)
	_, _, err := execute(t, "index", "--json-dir", dir, "--no-tui")
	require.NoError(t, err)

	stdout, _, err := execute(t, "stats", "--json", "--json-dir", dir)

	require.NoError(t, err)

	var info struct {
		Records     int    `json:"records"`
		Files       int    `json:"files"`
		Tags        int    `json:"tags"`
		Fingerprint string `json:"fingerprint"`
		KindCounts  []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"kind_counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Equal(t, 3, info.Records)
	assert.Equal(t, 3, info.Files)
	assert.Equal(t, 3, info.Tags, "distinct tags: ocean, 3d, 2d")
	assert.NotEmpty(t, info.Fingerprint)

	// image, music, texture each back one shader.
	require.Len(t, info.KindCounts, 3)
	for _, kc := range info.KindCounts {
		assert.Equal(t, 1, kc.Count, kc.Name)
	}
}

func TestStatsQueriesCmd_NoTelemetryFails(t *testing.T) {
	dir := writeTestCorpus(t)

	_, _, err := execute(t, "stats", "queries", "--json-dir", dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no telemetry")
}

func TestStatsQueriesCmd_SummarizesRecordedQueries(t *testing.T) {
	dir := writeTestCorpus(t)

	// Queries record telemetry as a side effect.
	_, _, err := execute(t, "--tags", "ocean", "--json-dir", dir)
	require.NoError(t, err)
	_, _, err = execute(t, "--tags", "nosuchtag", "--json-dir", dir)
	require.NoError(t, err)

	stdout, _, err := execute(t, "stats", "queries", "--json-dir", dir)

	require.NoError(t, err)
	assert.Contains(t, stdout, "Query Statistics")
	assert.Contains(t, stdout, "Total Queries: 2")
	assert.Contains(t, stdout, "ocean", "queried tags show up as top terms")
	assert.Contains(t, stdout, "Recent Zero-Result Queries:")
	assert.Contains(t, stdout, "nosuchtag")
}

func TestStatsQueriesCmd_JSON(t *testing.T) {
	dir := writeTestCorpus(t)

	_, _, err := execute(t, "--tags", "ocean", "--json-dir", dir)
	require.NoError(t, err)

	stdout, _, err := execute(t, "stats", "queries", "--json", "--json-dir", dir)

	require.NoError(t, err)

	var summary struct {
		TotalQueries int64            `json:"total_queries"`
		ShapeCounts  map[string]int64 `json:"shape_counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, int64(1), summary.TotalQueries)
	assert.NotEmpty(t, summary.ShapeCounts)
}
