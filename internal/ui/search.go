package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// DefaultDebounce is the pause after the last keystroke before searching.
const DefaultDebounce = 300 * time.Millisecond

// AskFunc answers a query in a language.
type AskFunc func(ctx context.Context, query string, lang hymn.Language) (string, error)

// SearchConfig configures the interactive search model.
type SearchConfig struct {
	Ask       AskFunc
	Languages []hymn.Language
	Language  hymn.Language
	Debounce  time.Duration
	// Timeout bounds each search (0 = none).
	Timeout time.Duration
	NoColor bool
	// Intro is shown before the first search.
	Intro string
}

// debounceMsg fires after the debounce delay; only the latest seq searches.
type debounceMsg struct{ seq int }

// answerMsg carries a finished search tagged with the seq that started it.
type answerMsg struct {
	seq    int
	answer string
	err    error
}

// SearchModel is the bubbletea model for search-as-you-type.
// Keystrokes are debounced inside the model with sequence-tagged ticks,
// so a slow answer for an older query never replaces a newer one.
type SearchModel struct {
	cfg      SearchConfig
	input    textinput.Model
	view     viewport.Model
	spinner  spinner.Model
	styles   Styles
	langIdx  int
	seq      int
	pending  bool
	answer   string
	errText  string
	width    int
	quitting bool
}

// NewSearchModel creates the search model.
func NewSearchModel(cfg SearchConfig) *SearchModel {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = hymn.Languages()
	}

	in := textinput.New()
	in.Placeholder = "Type a line from the hymn..."
	in.CharLimit = 500
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &SearchModel{
		cfg:     cfg,
		input:   in,
		view:    viewport.New(80, 16),
		spinner: sp,
		styles:  GetStyles(cfg.NoColor || DetectNoColor()),
		width:   80,
	}
	for i, l := range cfg.Languages {
		if l == cfg.Language {
			m.langIdx = i
		}
	}
	m.view.SetContent(cfg.Intro)
	return m
}

// Language returns the selected language.
func (m *SearchModel) Language() hymn.Language {
	return m.cfg.Languages[m.langIdx]
}

// Query returns the current input text.
func (m *SearchModel) Query() string {
	return m.input.Value()
}

// Answer returns the last displayed answer.
func (m *SearchModel) Answer() string {
	return m.answer
}

// Init implements tea.Model.
func (m *SearchModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update implements tea.Model.
func (m *SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyTab:
			m.langIdx = (m.langIdx + 1) % len(m.cfg.Languages)
			return m, m.schedule()
		case tea.KeyEnter:
			m.seq++
			return m, m.search(m.seq)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.view, cmd = m.view.Update(msg)
			return m, cmd
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() == before {
			return m, cmd
		}
		return m, tea.Batch(cmd, m.schedule())

	case debounceMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		return m, m.search(msg.seq)

	case answerMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.pending = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			m.answer = ""
		} else {
			m.errText = ""
			m.answer = msg.answer
		}
		m.view.SetContent(m.answer)
		m.view.GotoTop()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.view.Width = max(msg.Width-4, 20)
		m.view.Height = max(msg.Height-9, 5)
		m.input.Width = max(msg.Width-6, 20)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// schedule starts a new debounce window and invalidates older ones.
func (m *SearchModel) schedule() tea.Cmd {
	m.seq++
	seq := m.seq
	return tea.Tick(m.cfg.Debounce, func(time.Time) tea.Msg {
		return debounceMsg{seq: seq}
	})
}

// search runs the query for seq off the UI goroutine.
func (m *SearchModel) search(seq int) tea.Cmd {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		m.pending = false
		m.answer = ""
		m.errText = ""
		m.view.SetContent(m.cfg.Intro)
		return nil
	}

	m.pending = true
	ask, lang, timeout := m.cfg.Ask, m.Language(), m.cfg.Timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		answer, err := ask(ctx, query, lang)
		return answerMsg{seq: seq, answer: answer, err: err}
	}
}

// View implements tea.Model.
func (m *SearchModel) View() string {
	if m.quitting {
		return ""
	}

	var tabs []string
	for i, l := range m.cfg.Languages {
		style := m.styles.Tab
		if i == m.langIdx {
			style = m.styles.TabSelected
		}
		tabs = append(tabs, style.Render(l.DisplayName()))
	}

	status := ""
	switch {
	case m.pending:
		status = m.spinner.View() + " Searching..."
	case m.errText != "":
		status = m.styles.Error.Render(m.errText)
	}

	width := max(m.width-4, 20)
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render("ChoralMind")+"  "+lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		m.input.View(),
		status,
		m.styles.Panel.Width(width).Render(m.styles.Answer.Render(m.view.View())),
		m.styles.Dim.Render("tab switch language • enter search now • pgup/pgdn scroll • esc quit"),
	) + "\n"
}
