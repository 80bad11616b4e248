package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer shows ingestion progress with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *ingestModel
	tracker *ProgressTracker
	started bool
	done    chan struct{}
}

var _ Renderer = (*TUIRenderer)(nil)

// NewTUIRenderer creates a TUI renderer.
// Returns an error if the output is not a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newIngestModel(tracker, cfg.Title)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	opts = append(opts, tea.WithContext(ctx))

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.tracker.Update(event)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(refreshMsg{})
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.tracker.AddError(event)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(refreshMsg{})
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Quit()
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
		}
	}
	return nil
}

type refreshMsg struct{}
type completeMsg CompletionStats

// ingestModel is the bubbletea model for ingestion progress.
type ingestModel struct {
	tracker  *ProgressTracker
	title    string
	width    int
	complete bool
	quitting bool
	stats    CompletionStats
	spinner  spinner.Model
	bar      progress.Model
	styles   Styles
}

func newIngestModel(tracker *ProgressTracker, title string) *ingestModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	return &ingestModel{
		tracker: tracker,
		title:   title,
		width:   80,
		spinner: s,
		bar: progress.New(
			progress.WithSolidFill(ColorAccent),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		styles: DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m *ingestModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *ingestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-40, 20)
	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *ingestModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	width := max(m.width-4, 40)
	var lines []string
	for _, lp := range m.tracker.Snapshot() {
		lines = append(lines, m.renderLanguage(lp))
	}
	if len(lines) == 0 {
		lines = append(lines, m.spinner.View()+" Starting...")
	}

	panel := m.styles.Panel.Width(width).Render(strings.Join(lines, "\n"))
	return m.styles.Header.Render(m.title) + "\n" + panel + "\n" + m.renderStatusBar() + "\n"
}

// renderLanguage renders one language row: name, stage, bar and counts.
func (m *ingestModel) renderLanguage(lp LanguageProgress) string {
	name := m.styles.Label.Render(fmt.Sprintf("%-8s", lp.Language.DisplayName()))

	icon := m.spinner.View()
	switch {
	case lp.Failed:
		icon = m.styles.Error.Render("✗")
	case lp.Stage == StageComplete:
		icon = m.styles.Success.Render("●")
	}
	stage := m.styles.Active.Render(fmt.Sprintf("%-10s", lp.Stage))

	detail := lp.Message
	if lp.Total > 0 {
		detail = m.bar.ViewAs(lp.Progress) + " " +
			m.styles.Label.Render(fmt.Sprintf("%d/%d", lp.Current, lp.Total))
		if lp.ETA > 0 {
			detail += m.styles.Dim.Render("  ETA " + FormatDuration(lp.ETA))
		}
	}
	return fmt.Sprintf("%s %s %s %s", icon, name, stage, detail)
}

func (m *ingestModel) renderStatusBar() string {
	errs, warns := m.tracker.Counts()
	var parts []string
	if warns > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", warns)))
	}
	if errs > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", errs)))
	}
	parts = append(parts, m.styles.Dim.Render("q to quit"))
	return strings.Join(parts, m.styles.Dim.Render("  │  "))
}

func (m *ingestModel) renderComplete() string {
	var lines []string
	lines = append(lines, m.styles.Success.Render("✓ Ingestion Complete"), "")
	for _, l := range m.stats.Languages {
		lines = append(lines, fmt.Sprintf("%s %s hymns, %s chunks",
			m.styles.Label.Render(fmt.Sprintf("%-8s", l.Language.DisplayName())),
			m.styles.Active.Render(fmt.Sprintf("%d", l.Hymns)),
			m.styles.Active.Render(fmt.Sprintf("%d", l.Chunks))))
	}
	lines = append(lines, fmt.Sprintf("%s %s",
		m.styles.Label.Render("Duration:"),
		m.styles.Active.Render(FormatDuration(m.stats.Duration))))
	if m.stats.Errors > 0 {
		lines = append(lines, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", m.stats.Errors)))
	}
	if m.stats.Warnings > 0 {
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", m.stats.Warnings)))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccent)).
		Padding(1, 2).
		Width(max(m.width-4, 40)).
		Render(strings.Join(lines, "\n")) + "\n"
}

// FormatDuration formats a duration in a human-friendly way.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
