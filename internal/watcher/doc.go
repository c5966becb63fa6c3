// Package watcher provides change notification for a shader corpus
// directory with automatic debouncing.
//
// The package implements a hybrid watching strategy:
//   - Primary: fsnotify for event-based watching
//   - Fallback: polling for environments where fsnotify fails
//     (network mounts, some container volumes)
//
// Only top-level *.json documents are watched. Rapid events for the
// same document are coalesced and flushed as batches after a quiet
// window, so a bulk copy into the corpus produces one reindex pass
// instead of thousands.
//
// Usage:
//
//	w, err := watcher.NewCorpusWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go w.Start(ctx, "/shaders/json")
//
//	for batch := range w.Events() {
//	    // Fold the batch into the index.
//	}
package watcher
