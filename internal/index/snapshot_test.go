package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaderdex/shaderdex/internal/corpus"
	"github.com/shaderdex/shaderdex/internal/shader"
)

func testEntry(id, name string, tags []string, kinds ...shader.Kind) *Entry {
	return &Entry{
		Record: &shader.Record{
			ID:         id,
			Name:       name,
			Author:     "iq",
			Tags:       tags,
			SourcePath: "/shaders/json/" + id + ".json",
		},
		Requires: shader.NewKindSet(kinds...),
	}
}

func buildSnapshot(t *testing.T, entries ...*Entry) *Snapshot {
	t.Helper()
	m := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		m[e.Record.ID] = e
	}
	fp := corpus.Fingerprint{Count: len(entries), Digest: "9f2c4a1b"}
	return newSnapshot(m, fp, time.Now())
}

func TestSnapshot_IDsAscending(t *testing.T) {
	snap := buildSnapshot(t,
		testEntry("XlsSzN", "Rainforest", nil),
		testEntry("4ddXWS", "Seascape", nil),
		testEntry("Ms2SD1", "Clouds", nil),
	)

	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, []string{"4ddXWS", "Ms2SD1", "XlsSzN"}, snap.IDs())
}

func TestSnapshot_TagLookupCaseInsensitive(t *testing.T) {
	snap := buildSnapshot(t,
		testEntry("4ddXWS", "Seascape", []string{"Ocean", "raymarching"}),
	)

	assert.Equal(t, []string{"4ddXWS"}, snap.IDsByTag("ocean"))
	assert.Equal(t, []string{"4ddXWS"}, snap.IDsByTag("OCEAN"))
	assert.Equal(t, []string{"4ddXWS"}, snap.IDsByTag("Raymarching"))
	assert.Empty(t, snap.IDsByTag("volumetric"))
}

func TestSnapshot_PostingListsAscending(t *testing.T) {
	snap := buildSnapshot(t,
		testEntry("XlsSzN", "Rainforest", []string{"3d"}, shader.KindTexture),
		testEntry("4ddXWS", "Seascape", []string{"3d"}, shader.KindTexture),
		testEntry("Ms2SD1", "Clouds", []string{"3d"}, shader.KindTexture),
	)

	want := []string{"4ddXWS", "Ms2SD1", "XlsSzN"}
	assert.Equal(t, want, snap.IDsByTag("3d"))
	assert.Equal(t, want, snap.IDsByKind(shader.KindTexture))
}

func TestSnapshot_DuplicateTagCasingsIndexOnce(t *testing.T) {
	snap := buildSnapshot(t,
		testEntry("4ddXWS", "Seascape", []string{"Noise", "noise", "NOISE"}),
	)

	assert.Equal(t, []string{"4ddXWS"}, snap.IDsByTag("noise"))
	assert.Equal(t, map[string]int{"noise": 1}, snap.TagCounts())
}

func TestSnapshot_EntryAndPathLookup(t *testing.T) {
	snap := buildSnapshot(t,
		testEntry("4ddXWS", "Seascape", nil, shader.KindBuffer),
	)

	e, ok := snap.Entry("4ddXWS")
	require.True(t, ok)
	assert.Equal(t, "Seascape", e.Record.Name)
	assert.True(t, e.Requires.Has(shader.KindBuffer))

	_, ok = snap.Entry("missing")
	assert.False(t, ok)

	id, ok := snap.IDForPath("4ddXWS.json")
	require.True(t, ok)
	assert.Equal(t, "4ddXWS", id)

	_, ok = snap.IDForPath("unknown.json")
	assert.False(t, ok)
}

func TestSnapshot_Counts(t *testing.T) {
	snap := buildSnapshot(t,
		testEntry("4ddXWS", "Seascape", []string{"ocean", "3d"}, shader.KindTexture),
		testEntry("Ms2SD1", "Clouds", []string{"3d"}, shader.KindTexture, shader.KindBuffer),
	)

	assert.Equal(t, map[string]int{"ocean": 1, "3d": 2}, snap.TagCounts())
	assert.Equal(t, map[shader.Kind]int{
		shader.KindTexture: 2,
		shader.KindBuffer:  1,
	}, snap.KindCounts())
}

func TestSnapshot_FingerprintAndFiles(t *testing.T) {
	fp := corpus.Fingerprint{Count: 7, Digest: "abc123"}
	builtAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	snap := newSnapshot(map[string]*Entry{}, fp, builtAt)

	assert.Equal(t, 7, snap.Files())
	assert.True(t, fp.Equal(snap.Fingerprint()))
	assert.Equal(t, builtAt, snap.BuiltAt())
}

func TestSnapshot_EmptyCorpus(t *testing.T) {
	snap := buildSnapshot(t)

	assert.Equal(t, 0, snap.Len())
	assert.Empty(t, snap.IDs())
	assert.Empty(t, snap.IDsByTag("anything"))
	assert.Empty(t, snap.TagCounts())
}

func TestSnapshot_Derive_UpsertAndDelete(t *testing.T) {
	snap := buildSnapshot(t,
		testEntry("4ddXWS", "Seascape", []string{"ocean"}),
		testEntry("Ms2SD1", "Clouds", []string{"clouds"}),
	)

	fp := corpus.Fingerprint{Count: 2, Digest: "next"}
	next := snap.Derive(
		[]*Entry{testEntry("XlsSzN", "Rainforest", []string{"rain"})},
		[]string{"Ms2SD1"},
		fp, time.Now(),
	)

	assert.Equal(t, []string{"4ddXWS", "XlsSzN"}, next.IDs())
	assert.Empty(t, next.IDsByTag("clouds"))
	assert.Equal(t, []string{"XlsSzN"}, next.IDsByTag("rain"))
	assert.True(t, fp.Equal(next.Fingerprint()))

	// The receiver is untouched.
	assert.Equal(t, []string{"4ddXWS", "Ms2SD1"}, snap.IDs())
	assert.Equal(t, []string{"Ms2SD1"}, snap.IDsByTag("clouds"))
}

func TestSnapshot_Derive_DeleteThenUpsertSameID(t *testing.T) {
	snap := buildSnapshot(t,
		testEntry("4ddXWS", "Seascape", []string{"ocean"}),
	)

	next := snap.Derive(
		[]*Entry{testEntry("4ddXWS", "Seascape v2", []string{"water"})},
		[]string{"4ddXWS"},
		corpus.Fingerprint{Count: 1, Digest: "next"}, time.Now(),
	)

	require.Equal(t, 1, next.Len())
	e, ok := next.Entry("4ddXWS")
	require.True(t, ok)
	assert.Equal(t, "Seascape v2", e.Record.Name)
	assert.Empty(t, next.IDsByTag("ocean"))
	assert.Equal(t, []string{"4ddXWS"}, next.IDsByTag("water"))
}

func TestHandle_SwapPublishes(t *testing.T) {
	first := buildSnapshot(t, testEntry("4ddXWS", "Seascape", nil))
	second := buildSnapshot(t, testEntry("Ms2SD1", "Clouds", nil))

	h := NewHandle(first)
	assert.Same(t, first, h.Load())

	old := h.Swap(second)
	assert.Same(t, first, old)
	assert.Same(t, second, h.Load())
}
