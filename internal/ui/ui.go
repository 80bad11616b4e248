// Package ui provides terminal UI components: ingestion progress, the
// status report and the interactive hymn search.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// Stage represents an ingestion stage.
type Stage int

const (
	// StageLoading reads the source documents.
	StageLoading Stage = iota
	// StageSegmenting splits document text into hymns.
	StageSegmenting
	// StageChunking splits hymns into chunks.
	StageChunking
	// StageEmbedding embeds chunks.
	StageEmbedding
	// StageIndexing writes and publishes the index.
	StageIndexing
	// StageComplete indicates ingestion is complete.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageLoading:
		return "Loading"
	case StageSegmenting:
		return "Segmenting"
	case StageChunking:
		return "Chunking"
	case StageEmbedding:
		return "Embedding"
	case StageIndexing:
		return "Indexing"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage tag for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageLoading:
		return "LOAD"
	case StageSegmenting:
		return "SEGMENT"
	case StageChunking:
		return "CHUNK"
	case StageEmbedding:
		return "EMBED"
	case StageIndexing:
		return "INDEX"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent represents a progress update for one language.
type ProgressEvent struct {
	Stage    Stage
	Language hymn.Language
	Current  int
	Total    int
	Message  string
}

// ErrorEvent represents an error or warning during ingestion.
type ErrorEvent struct {
	Language hymn.Language
	Err      error
	IsWarn   bool
}

// EmbedderInfo contains embedder backend details.
type EmbedderInfo struct {
	Provider   string
	Model      string
	Dimensions int
}

// LanguageStats summarises one language's build.
type LanguageStats struct {
	Language   hymn.Language
	Generation string
	Hymns      int
	Chunks     int
	Excluded   int
	Duration   time.Duration
}

// CompletionStats contains final ingestion statistics.
type CompletionStats struct {
	Languages []LanguageStats
	Duration  time.Duration
	Errors    int
	Warnings  int
	Embedder  EmbedderInfo
}

// Hymns returns the hymn total across languages.
func (c CompletionStats) Hymns() int {
	n := 0
	for _, l := range c.Languages {
		n += l.Hymns
	}
	return n
}

// Chunks returns the chunk total across languages.
func (c CompletionStats) Chunks() int {
	n := 0
	for _, l := range c.Languages {
		n += l.Chunks
	}
	return n
}

// Renderer defines the interface for progress display.
// Implementations must be safe for concurrent use, since languages may
// be ingested in parallel.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates progress display.
	UpdateProgress(event ProgressEvent)

	// AddError adds an error to display.
	AddError(event ErrorEvent)

	// Complete marks rendering as complete with summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	// Title is shown in the TUI header.
	Title string
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithTitle sets the header title.
func WithTitle(title string) ConfigOption {
	return func(c *Config) {
		c.Title = title
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output, Title: "ChoralMind Ingest"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns a TUI renderer for interactive terminals and a
// plain text renderer for CI, pipes, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// Discard is a Renderer that drops every event.
type Discard struct{}

var _ Renderer = Discard{}

func (Discard) Start(context.Context) error { return nil }

func (Discard) UpdateProgress(ProgressEvent) {}

func (Discard) AddError(ErrorEvent) {}

func (Discard) Complete(CompletionStats) {}

func (Discard) Stop() error { return nil }

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
