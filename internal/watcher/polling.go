package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/index"
)

// PollingWatcher detects pointer changes by re-reading every CURRENT file
// on an interval. Used when fsnotify is not available.
type PollingWatcher struct {
	dataDir   string
	languages []hymn.Language
	interval  time.Duration
	state     map[hymn.Language]string
	events    chan Event
	stopCh    chan struct{}
	mu        sync.Mutex
	stopped   bool
}

// NewPollingWatcher creates a new polling watcher with the given interval.
func NewPollingWatcher(dataDir string, langs []hymn.Language, interval time.Duration) *PollingWatcher {
	return &PollingWatcher{
		dataDir:   dataDir,
		languages: langs,
		interval:  interval,
		state:     make(map[hymn.Language]string),
		events:    make(chan Event, 16),
		stopCh:    make(chan struct{}),
	}
}

// Start records the current pointers and then polls until Stop is called
// or ctx is cancelled. It blocks.
func (p *PollingWatcher) Start(ctx context.Context) error {
	for _, lang := range p.languages {
		p.state[lang] = readPointer(p.dataDir, lang)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			p.detectChanges()
		}
	}
}

func (p *PollingWatcher) detectChanges() {
	for _, lang := range p.languages {
		gen := readPointer(p.dataDir, lang)
		if gen == p.state[lang] {
			continue
		}
		p.state[lang] = gen
		p.emit(Event{Language: lang, Generation: gen, Timestamp: time.Now()})
	}
}

func (p *PollingWatcher) emit(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	select {
	case p.events <- ev:
	default:
	}
}

// Events returns the channel of pointer changes.
func (p *PollingWatcher) Events() <-chan Event {
	return p.events
}

// Stop stops polling. Safe to call multiple times.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	return nil
}

// readPointer returns the generation CURRENT names, or "" if unreadable.
func readPointer(dataDir string, lang hymn.Language) string {
	data, err := os.ReadFile(filepath.Join(dataDir, lang.String(), index.CurrentFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
