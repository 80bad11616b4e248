package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/index"
)

// IndexWatcher watches each language's CURRENT pointer using fsnotify,
// falling back to polling when fsnotify cannot be initialised.
type IndexWatcher struct {
	dataDir     string
	languages   []hymn.Language
	fsWatcher   *fsnotify.Watcher
	pollWatcher *PollingWatcher
	debouncer   *Debouncer
	events      chan []Event
	stopCh      chan struct{}
	opts        Options

	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

// New creates a watcher for the given languages under dataDir.
func New(dataDir string, langs []hymn.Language, opts Options) (*IndexWatcher, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if len(langs) == 0 {
		return nil, fmt.Errorf("at least one language is required")
	}
	opts = opts.WithDefaults()

	w := &IndexWatcher{
		dataDir:   dataDir,
		languages: langs,
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []Event, opts.EventBufferSize),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			w.fsWatcher = fsw
		} else {
			slog.Warn("fsnotify_unavailable", slog.String("error", err.Error()))
		}
	}
	if w.fsWatcher == nil {
		w.pollWatcher = NewPollingWatcher(dataDir, langs, opts.PollInterval)
	}
	return w, nil
}

// Start watches until Stop is called or ctx is cancelled. It blocks.
func (w *IndexWatcher) Start(ctx context.Context) error {
	go w.forwardDebouncedEvents(ctx)

	if w.fsWatcher != nil {
		return w.startFsnotify(ctx)
	}
	return w.startPolling(ctx)
}

func (w *IndexWatcher) startFsnotify(ctx context.Context) error {
	for _, lang := range w.languages {
		dir := filepath.Join(w.dataDir, lang.String())
		// The directory may not exist before the first ingest.
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	slog.Debug("index_watcher_started",
		slog.String("type", "fsnotify"),
		slog.String("data_dir", w.dataDir))

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("index_watcher_error", slog.String("error", err.Error()))
		}
	}
}

func (w *IndexWatcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case ev, ok := <-w.pollWatcher.Events():
				if !ok {
					return
				}
				w.debouncer.Add(ev)
			}
		}
	}()

	slog.Debug("index_watcher_started",
		slog.String("type", "polling"),
		slog.Duration("interval", w.opts.PollInterval))
	err := w.pollWatcher.Start(ctx)
	if ctx.Err() != nil {
		_ = w.Stop()
	}
	return err
}

// handleFsnotifyEvent keeps only changes to a CURRENT pointer. The rename
// that publishes a generation arrives as a Create on the target name.
func (w *IndexWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != index.CurrentFile {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) {
		return
	}

	lang, err := hymn.ParseLanguage(filepath.Base(filepath.Dir(event.Name)))
	if err != nil {
		return
	}
	w.debouncer.Add(Event{
		Language:   lang,
		Generation: readPointer(w.dataDir, lang),
		Timestamp:  time.Now(),
	})
}

func (w *IndexWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case events, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			w.emitEvents(events)
		}
	}
}

func (w *IndexWatcher) emitEvents(events []Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped || len(events) == 0 {
		return
	}
	select {
	case w.events <- events:
	default:
		count := w.droppedBatches.Add(1)
		slog.Warn("index_watcher_buffer_full",
			slog.Int("batch_size", len(events)),
			slog.Uint64("total_dropped_batches", count))
	}
}

// Events returns the channel of debounced pointer changes.
func (w *IndexWatcher) Events() <-chan []Event {
	return w.events
}

// DroppedBatches returns the number of batches dropped due to buffer overflow.
func (w *IndexWatcher) DroppedBatches() uint64 {
	return w.droppedBatches.Load()
}

// WatcherType returns "fsnotify" or "polling".
func (w *IndexWatcher) WatcherType() string {
	if w.fsWatcher != nil {
		return "fsnotify"
	}
	return "polling"
}

// Stop stops the watcher and closes Events. Safe to call multiple times.
func (w *IndexWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()

	if w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	if w.pollWatcher != nil {
		_ = w.pollWatcher.Stop()
	}
	close(w.events)
	return nil
}
