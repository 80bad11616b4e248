package ui

import (
	"sync"
	"time"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// etaSmoothingFactor weights a new ETA sample against the previous one.
const etaSmoothingFactor = 0.3

// ProgressTracker keeps per-language stage progress for the TUI.
// It is safe for concurrent use.
type ProgressTracker struct {
	mu        sync.Mutex
	langs     map[hymn.Language]*langProgress
	order     []hymn.Language
	warnings  int
	errors    int
	startTime time.Time
	now       func() time.Time
}

type langProgress struct {
	stage      Stage
	current    int
	total      int
	message    string
	stageStart time.Time
	lastETA    time.Duration
	failed     bool
}

// LanguageProgress is a snapshot of one language's progress.
type LanguageProgress struct {
	Language hymn.Language
	Stage    Stage
	Current  int
	Total    int
	Progress float64
	ETA      time.Duration
	Message  string
	Failed   bool
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		langs:     make(map[hymn.Language]*langProgress),
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Update records event. A stage change resets the counters.
func (p *ProgressTracker) Update(event ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	lp, ok := p.langs[event.Language]
	if !ok {
		lp = &langProgress{stage: event.Stage, stageStart: p.now()}
		p.langs[event.Language] = lp
		p.order = append(p.order, event.Language)
	}
	if event.Stage != lp.stage {
		lp.stage = event.Stage
		lp.stageStart = p.now()
		lp.lastETA = 0
	}
	lp.current = event.Current
	lp.total = event.Total
	if event.Message != "" {
		lp.message = event.Message
	}
}

// AddError records an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.IsWarn {
		p.warnings++
		return
	}
	p.errors++
	if lp, ok := p.langs[event.Language]; ok {
		lp.failed = true
	}
}

// Counts returns the recorded error and warning counts.
func (p *ProgressTracker) Counts() (errors, warnings int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errors, p.warnings
}

// Elapsed returns time since tracker creation.
func (p *ProgressTracker) Elapsed() time.Duration {
	return p.now().Sub(p.startTime)
}

// Snapshot returns every language's progress in first-seen order.
func (p *ProgressTracker) Snapshot() []LanguageProgress {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]LanguageProgress, 0, len(p.order))
	for _, lang := range p.order {
		lp := p.langs[lang]
		frac := 0.0
		if lp.total > 0 {
			frac = min(float64(lp.current)/float64(lp.total), 1.0)
		}
		out = append(out, LanguageProgress{
			Language: lang,
			Stage:    lp.stage,
			Current:  lp.current,
			Total:    lp.total,
			Progress: frac,
			ETA:      p.eta(lp),
			Message:  lp.message,
			Failed:   lp.failed,
		})
	}
	return out
}

// eta estimates the remaining stage time with exponential smoothing.
// Must be called with the lock held.
func (p *ProgressTracker) eta(lp *langProgress) time.Duration {
	if lp.current == 0 || lp.total == 0 {
		return 0
	}
	frac := float64(lp.current) / float64(lp.total)
	if frac >= 1.0 {
		return 0
	}

	elapsed := p.now().Sub(lp.stageStart)
	raw := time.Duration(float64(elapsed)/frac) - elapsed
	if raw < 0 {
		return 0
	}
	if lp.lastETA == 0 {
		lp.lastETA = raw
		return raw
	}
	lp.lastETA = time.Duration(etaSmoothingFactor*float64(raw) + (1-etaSmoothingFactor)*float64(lp.lastETA))
	return lp.lastETA
}
