package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startCorpusWatcher(t *testing.T, dir string) *CorpusWatcher {
	t.Helper()

	opts := Options{
		DebounceWindow:  50 * time.Millisecond,
		EventBufferSize: 100,
	}.WithDefaults()

	w, err := NewCorpusWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(func() { _ = w.Stop() })

	go func() {
		_ = w.Start(ctx, dir)
	}()

	// Wait for the watcher to initialize
	time.Sleep(100 * time.Millisecond)
	return w
}

func TestCorpusWatcher_New(t *testing.T) {
	// Given: default options
	opts := DefaultOptions()

	// When: creating a corpus watcher
	w, err := NewCorpusWatcher(opts)

	// Then: no error and a mechanism is selected
	require.NoError(t, err)
	require.NotNil(t, w)
	defer func() { _ = w.Stop() }()

	assert.Contains(t, []string{"fsnotify", "polling"}, w.WatcherType())
}

func TestCorpusWatcher_StartRejectsMissingDirectory(t *testing.T) {
	// Given: a corpus watcher
	w, err := NewCorpusWatcher(DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	// When: started on a directory that does not exist
	err = w.Start(context.Background(), filepath.Join(t.TempDir(), "missing"))

	// Then: Start fails
	require.Error(t, err)
}

func TestCorpusWatcher_StartRejectsFile(t *testing.T) {
	// Given: a path that names a file, not a directory
	tempDir := t.TempDir()
	file := filepath.Join(tempDir, "doc.json")
	require.NoError(t, os.WriteFile(file, []byte(`{}`), 0o644))

	w, err := NewCorpusWatcher(DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	// When: started on the file
	err = w.Start(context.Background(), file)

	// Then: Start fails
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestCorpusWatcher_DetectsDocumentCreation(t *testing.T) {
	// Given: a temp corpus and running watcher
	tempDir := t.TempDir()
	w := startCorpusWatcher(t, tempDir)

	// When: a new document is created
	testFile := filepath.Join(tempDir, "4ddXWS.json")
	require.NoError(t, os.WriteFile(testFile, []byte(`{"info":{"id":"4ddXWS"}}`), 0o644))

	// Then: a CREATE event arrives in a batch
	select {
	case events := <-w.Events():
		require.NotEmpty(t, events)
		var found bool
		for _, e := range events {
			if e.Op == OpCreate && filepath.Base(e.Path) == "4ddXWS.json" {
				found = true
				break
			}
		}
		assert.True(t, found, "expected CREATE event for 4ddXWS.json")
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for create event")
	}
}

func TestCorpusWatcher_DetectsDocumentModification(t *testing.T) {
	// Given: a temp corpus with an existing document
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "Ms2SD1.json")
	require.NoError(t, os.WriteFile(testFile, []byte(`{"info":{"id":"Ms2SD1"}}`), 0o644))

	w := startCorpusWatcher(t, tempDir)

	// When: the document is modified
	require.NoError(t, os.WriteFile(testFile, []byte(`{"info":{"id":"Ms2SD1","name":"Seascape"}}`), 0o644))

	// Then: a MODIFY or CREATE event arrives (fsnotify may report either)
	select {
	case events := <-w.Events():
		require.NotEmpty(t, events)
		var found bool
		for _, e := range events {
			if (e.Op == OpModify || e.Op == OpCreate) &&
				filepath.Base(e.Path) == "Ms2SD1.json" {
				found = true
				break
			}
		}
		assert.True(t, found, "expected modify event for Ms2SD1.json")
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for modify event")
	}
}

func TestCorpusWatcher_DetectsDocumentDeletion(t *testing.T) {
	// Given: a temp corpus with an existing document
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "todelete.json")
	require.NoError(t, os.WriteFile(testFile, []byte(`{"info":{"id":"x"}}`), 0o644))

	w := startCorpusWatcher(t, tempDir)

	// When: the document is deleted
	require.NoError(t, os.Remove(testFile))

	// Then: a DELETE event arrives
	select {
	case events := <-w.Events():
		require.NotEmpty(t, events)
		var found bool
		for _, e := range events {
			if e.Op == OpDelete && filepath.Base(e.Path) == "todelete.json" {
				found = true
				break
			}
		}
		assert.True(t, found, "expected DELETE event for todelete.json")
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for delete event")
	}
}

func TestCorpusWatcher_IgnoresNonDocuments(t *testing.T) {
	// Given: a temp corpus and running watcher
	tempDir := t.TempDir()
	w := startCorpusWatcher(t, tempDir)

	// When: a non-document file is created
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("notes"), 0o644))

	// And: a document is created
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "wave.json"), []byte(`{}`), 0o644))

	// Then: only the document event is received
	var gotDocument bool
	timeout := time.After(2 * time.Second)
loop:
	for {
		select {
		case events := <-w.Events():
			for _, e := range events {
				if filepath.Base(e.Path) == "wave.json" {
					gotDocument = true
				}
				assert.NotEqual(t, ".txt", filepath.Ext(e.Path),
					"should not receive events for non-document files")
			}
			if gotDocument {
				break loop
			}
		case <-timeout:
			break loop
		}
	}

	assert.True(t, gotDocument, "should have received event for wave.json")
}

func TestCorpusWatcher_IgnoresCacheArtifacts(t *testing.T) {
	// Given: a corpus with its cache directory
	tempDir := t.TempDir()
	cacheDir := filepath.Join(tempDir, ".shaderdex")
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))

	w := startCorpusWatcher(t, tempDir)

	// When: cache artifacts are written
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "index.bin"), []byte("blob"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "doc.json.tmp"), []byte(`{}`), 0o644))

	// And: a document is created
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "ocean.json"), []byte(`{}`), 0o644))

	// Then: only the document event is received
	var gotDocument bool
	timeout := time.After(2 * time.Second)
loop:
	for {
		select {
		case events := <-w.Events():
			for _, e := range events {
				if filepath.Base(e.Path) == "ocean.json" {
					gotDocument = true
				}
				assert.NotContains(t, e.Path, ".shaderdex",
					"should not receive events for the cache directory")
				assert.NotContains(t, e.Path, ".tmp",
					"should not receive events for temp files")
			}
			if gotDocument {
				break loop
			}
		case <-timeout:
			break loop
		}
	}

	assert.True(t, gotDocument, "should have received event for ocean.json")
}

func TestCorpusWatcher_BulkCopyArrivesBatched(t *testing.T) {
	// Given: a temp corpus and running watcher
	tempDir := t.TempDir()
	w := startCorpusWatcher(t, tempDir)

	// When: several documents land in quick succession
	names := []string{"a.json", "b.json", "c.json", "d.json", "e.json"}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, name), []byte(`{}`), 0o644))
	}

	// Then: every document shows up, coalesced into few batches
	seen := make(map[string]bool)
	timeout := time.After(2 * time.Second)
loop:
	for len(seen) < len(names) {
		select {
		case events, ok := <-w.Events():
			if !ok {
				break loop
			}
			for _, e := range events {
				seen[filepath.Base(e.Path)] = true
			}
		case <-timeout:
			break loop
		}
	}

	for _, name := range names {
		assert.True(t, seen[name], "expected event for %s", name)
	}
}

func TestCorpusWatcher_Stop_ClosesChannels(t *testing.T) {
	// Given: a corpus watcher
	w, err := NewCorpusWatcher(DefaultOptions())
	require.NoError(t, err)

	// When: stopped
	require.NoError(t, w.Stop())

	// Then: events channel is closed
	select {
	case _, ok := <-w.Events():
		assert.False(t, ok, "events channel should be closed")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for channel close")
	}

	// And: stopping again is a no-op
	require.NoError(t, w.Stop())
}

func TestCorpusWatcher_DroppedBatches_InitiallyZero(t *testing.T) {
	// Given: a new corpus watcher
	w, err := NewCorpusWatcher(DefaultOptions())
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	// Then: dropped batches count is zero
	assert.Equal(t, uint64(0), w.DroppedBatches())
}

func TestCorpusWatcher_DroppedBatches_IncrementsOnOverflow(t *testing.T) {
	// Given: a corpus watcher with a tiny buffer
	opts := Options{
		EventBufferSize: 1,
	}.WithDefaults()

	w, err := NewCorpusWatcher(opts)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	// When: more batches are emitted than the buffer can hold
	w.emitBatch([]FileEvent{{Path: "/corpus/a.json", Op: OpCreate}})
	w.emitBatch([]FileEvent{{Path: "/corpus/b.json", Op: OpCreate}})
	w.emitBatch([]FileEvent{{Path: "/corpus/c.json", Op: OpCreate}})

	// Then: dropped batches count reflects the drops
	assert.Equal(t, uint64(2), w.DroppedBatches())
}
