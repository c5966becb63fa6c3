package watcher

import (
	"context"
	"time"
)

// Op classifies a corpus document change.
type Op int

const (
	// OpCreate indicates a new document appeared.
	OpCreate Op = iota
	// OpModify indicates an existing document changed.
	OpModify
	// OpDelete indicates a document was removed. A rename away from
	// the corpus surfaces as a delete of the old name.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one observed change to a corpus document.
type FileEvent struct {
	// Path is the absolute path of the document.
	Path string

	// Op is the kind of change.
	Op Op

	// Time is when the change was detected.
	Time time.Time
}

// Watcher is the contract the serve loop consumes: batched document
// events, debounced over a quiet window.
type Watcher interface {
	// Start begins watching the corpus directory. It blocks until
	// Stop is called or ctx is canceled.
	Start(ctx context.Context, dir string) error

	// Stop stops the watcher and releases resources. Safe to call
	// multiple times.
	Stop() error

	// Events returns the channel of debounced event batches. It is
	// closed when the watcher stops.
	Events() <-chan []FileEvent

	// Errors returns the channel of non-fatal watcher errors. It is
	// closed when the watcher stops.
	Errors() <-chan error
}

// Options configures watching behavior.
type Options struct {
	// DebounceWindow is the quiet period before a batch is flushed.
	// Default: 500ms.
	DebounceWindow time.Duration

	// PollInterval is the scan interval for polling fallback mode.
	// Default: 5s.
	PollInterval time.Duration

	// EventBufferSize is the capacity of the batch channel. Default:
	// 256.
	EventBufferSize int
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 256,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
