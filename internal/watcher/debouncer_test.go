package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_SingleEvent_PassesThrough(t *testing.T) {
	// Given: a debouncer with short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: a single event is added
	d.Add(FileEvent{
		Path: "/corpus/4ddXWS.json",
		Op:   OpCreate,
		Time: time.Now(),
	})

	// Then: the event passes through after the debounce window
	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, "/corpus/4ddXWS.json", events[0].Path)
		assert.Equal(t, OpCreate, events[0].Op)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_MultipleEventsForSameDocument_Coalesces(t *testing.T) {
	// Given: a debouncer with short window
	d := NewDebouncer(100 * time.Millisecond)
	defer d.Stop()

	// When: multiple events for the same document are added rapidly
	for i := 0; i < 5; i++ {
		d.Add(FileEvent{
			Path: "/corpus/4ddXWS.json",
			Op:   OpModify,
			Time: time.Now(),
		})
		time.Sleep(10 * time.Millisecond)
	}

	// Then: only one event comes out
	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, "/corpus/4ddXWS.json", events[0].Path)
		assert.Equal(t, OpModify, events[0].Op)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for debounced events")
	}
}

func TestDebouncer_CreateThenDelete_NoEvent(t *testing.T) {
	// Given: a debouncer with short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: CREATE followed by DELETE for the same document
	d.Add(FileEvent{
		Path: "/corpus/temp.json",
		Op:   OpCreate,
		Time: time.Now(),
	})
	d.Add(FileEvent{
		Path: "/corpus/temp.json",
		Op:   OpDelete,
		Time: time.Now(),
	})

	// Then: no event is emitted (the document never really existed)
	select {
	case events := <-d.Output():
		assert.Empty(t, events)
	case <-time.After(200 * time.Millisecond):
		// No event is also acceptable
	}
}

func TestDebouncer_ModifyThenDelete_DeleteOnly(t *testing.T) {
	// Given: a debouncer with short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: MODIFY followed by DELETE
	d.Add(FileEvent{
		Path: "/corpus/Ms2SD1.json",
		Op:   OpModify,
		Time: time.Now(),
	})
	d.Add(FileEvent{
		Path: "/corpus/Ms2SD1.json",
		Op:   OpDelete,
		Time: time.Now(),
	})

	// Then: only DELETE is emitted
	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, OpDelete, events[0].Op)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_DeleteThenCreate_ModifyEvent(t *testing.T) {
	// Given: a debouncer with short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: DELETE followed by CREATE (the document was replaced)
	d.Add(FileEvent{
		Path: "/corpus/Ms2SD1.json",
		Op:   OpDelete,
		Time: time.Now(),
	})
	d.Add(FileEvent{
		Path: "/corpus/Ms2SD1.json",
		Op:   OpCreate,
		Time: time.Now(),
	})

	// Then: MODIFY is emitted
	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, OpModify, events[0].Op)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_CreateThenModify_CreateOnly(t *testing.T) {
	// Given: a debouncer with short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: CREATE followed by MODIFY
	d.Add(FileEvent{
		Path: "/corpus/new.json",
		Op:   OpCreate,
		Time: time.Now(),
	})
	d.Add(FileEvent{
		Path: "/corpus/new.json",
		Op:   OpModify,
		Time: time.Now(),
	})

	// Then: only CREATE is emitted (the document is still new)
	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, OpCreate, events[0].Op)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_DifferentDocuments_IndependentEvents(t *testing.T) {
	// Given: a debouncer with short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: events for different documents are added
	d.Add(FileEvent{Path: "/corpus/a.json", Op: OpCreate, Time: time.Now()})
	d.Add(FileEvent{Path: "/corpus/b.json", Op: OpModify, Time: time.Now()})
	d.Add(FileEvent{Path: "/corpus/c.json", Op: OpDelete, Time: time.Now()})

	// Then: all events are emitted in one batch
	select {
	case events := <-d.Output():
		require.Len(t, events, 3)

		// Check all paths are present (order may vary)
		paths := make(map[string]Op)
		for _, e := range events {
			paths[e.Path] = e.Op
		}
		assert.Equal(t, OpCreate, paths["/corpus/a.json"])
		assert.Equal(t, OpModify, paths["/corpus/b.json"])
		assert.Equal(t, OpDelete, paths["/corpus/c.json"])
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for debounced events")
	}
}

func TestDebouncer_Stop_ClosesOutput(t *testing.T) {
	// Given: a debouncer
	d := NewDebouncer(50 * time.Millisecond)

	// When: stopped
	d.Stop()

	// Then: output channel is closed
	select {
	case _, ok := <-d.Output():
		assert.False(t, ok, "channel should be closed")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for channel close")
	}
}
