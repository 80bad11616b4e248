package watcher

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// Debouncer coalesces rapid pointer changes so one publish triggers one
// reload. Within the window only the latest event per language is kept.
type Debouncer struct {
	window  time.Duration
	pending map[hymn.Language]Event
	mu      sync.Mutex
	output  chan []Event
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a new debouncer with the given window duration.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[hymn.Language]Event),
		output:  make(chan []Event, 10),
	}
}

// Add records an event and restarts the window.
func (d *Debouncer) Add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[event.Language] = event
	d.scheduleFlush()
}

// scheduleFlush must be called with the lock held.
func (d *Debouncer) scheduleFlush() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush emits all pending events ordered by language.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	events := make([]Event, 0, len(d.pending))
	for _, ev := range d.pending {
		events = append(events, ev)
	}
	slices.SortFunc(events, func(a, b Event) int { return int(a.Language) - int(b.Language) })
	d.pending = make(map[hymn.Language]Event)

	select {
	case d.output <- events:
	default:
		slog.Warn("debouncer_output_full", slog.Int("batch_size", len(events)))
	}
}

// Output returns the channel of debounced batches.
func (d *Debouncer) Output() <-chan []Event {
	return d.output
}

// Stop stops the debouncer and closes the output channel.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
