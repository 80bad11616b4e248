// Package output provides consistent CLI output for search results,
// answers and status lines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// Format selects how results are printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (supported: text, json)", s)
	}
}

// Writer provides formatted output for the CLI.
type Writer struct {
	out      io.Writer
	useColor bool
	heading  lipgloss.Style
	dim      lipgloss.Style
}

// New creates a Writer. Color is enabled only for terminals without NO_COLOR.
func New(out io.Writer) *Writer {
	w := &Writer{out: out, useColor: colorEnabled(out)}
	if w.useColor {
		w.heading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("178"))
		w.dim = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	}
	return w
}

func colorEnabled(out io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := out.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Code prints a block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Results prints ranked excerpts, best first.
func (w *Writer) Results(lang hymn.Language, results []hymn.RetrievalResult) {
	if len(results) == 0 {
		w.Status("", fmt.Sprintf("No %s excerpts found.", lang.DisplayName()))
		return
	}
	for i, r := range results {
		head := fmt.Sprintf("%d. Hymn %d, chunk %d", i+1, r.HymnID, r.ChunkID)
		score := fmt.Sprintf("(score %.3f)", r.Score)
		if w.useColor {
			head = w.heading.Render(head)
			score = w.dim.Render(score)
		}
		_, _ = fmt.Fprintf(w.out, "%s %s\n", head, score)
		w.Code(strings.TrimSpace(r.Text))
	}
}

// Answer prints a synthesized answer.
func (w *Writer) Answer(text string) {
	_, _ = fmt.Fprintln(w.out, strings.TrimSpace(text))
}

// JSON prints v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
