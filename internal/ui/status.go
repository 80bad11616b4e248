package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// LanguageStatus describes one language's published index.
type LanguageStatus struct {
	Language   string    `json:"language"`
	Indexed    bool      `json:"indexed"`
	Generation string    `json:"generation,omitempty"`
	Backend    string    `json:"backend,omitempty"`
	Model      string    `json:"model,omitempty"`
	Dimensions int       `json:"dimensions,omitempty"`
	Hymns      int       `json:"hymns"`
	Chunks     int       `json:"chunks"`
	BuiltAt    time.Time `json:"built_at,omitempty"`
	SizeBytes  int64     `json:"size_bytes"`
	Error      string    `json:"error,omitempty"`
}

// StatusInfo is the report printed by the status command.
type StatusInfo struct {
	DataDir         string           `json:"data_dir"`
	Languages       []LanguageStatus `json:"languages"`
	EmbedderType    string           `json:"embedder_type"`
	EmbedderModel   string           `json:"embedder_model,omitempty"`
	EmbedderStatus  string           `json:"embedder_status"` // "ready", "offline"
	CompleterModel  string           `json:"completer_model,omitempty"`
	CompleterStatus string           `json:"completer_status"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
	now    func() time.Time
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor), now: time.Now}
}

// Render displays status info to the terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("ChoralMind Status"))
	_, _ = fmt.Fprintf(r.out, "  Data dir: %s\n\n", info.DataDir)

	for _, l := range info.Languages {
		_, _ = fmt.Fprintf(r.out, "  %s:\n", l.Language)
		switch {
		case l.Error != "":
			_, _ = fmt.Fprintf(r.out, "    Status:     %s (%s)\n", r.renderStatus("error"), l.Error)
		case !l.Indexed:
			_, _ = fmt.Fprintf(r.out, "    Status:     %s\n", r.renderStatus("missing"))
		default:
			_, _ = fmt.Fprintf(r.out, "    Status:     %s\n", r.renderStatus("ready"))
			_, _ = fmt.Fprintf(r.out, "    Generation: %s\n", l.Generation)
			_, _ = fmt.Fprintf(r.out, "    Hymns:      %d\n", l.Hymns)
			_, _ = fmt.Fprintf(r.out, "    Chunks:     %d\n", l.Chunks)
			_, _ = fmt.Fprintf(r.out, "    Backend:    %s\n", l.Backend)
			_, _ = fmt.Fprintf(r.out, "    Model:      %s (%d dims)\n", l.Model, l.Dimensions)
			_, _ = fmt.Fprintf(r.out, "    Size:       %s\n", FormatBytes(l.SizeBytes))
			if !l.BuiltAt.IsZero() {
				_, _ = fmt.Fprintf(r.out, "    Built:      %s\n", r.formatTime(l.BuiltAt))
			}
		}
		_, _ = fmt.Fprintln(r.out)
	}

	_, _ = fmt.Fprintln(r.out, "  Embedder:")
	_, _ = fmt.Fprintf(r.out, "    Type:   %s\n", info.EmbedderType)
	if info.EmbedderModel != "" {
		_, _ = fmt.Fprintf(r.out, "    Model:  %s\n", info.EmbedderModel)
	}
	_, _ = fmt.Fprintf(r.out, "    Status: %s\n", r.renderStatus(info.EmbedderStatus))

	if info.CompleterModel != "" {
		_, _ = fmt.Fprintln(r.out, "  Completion:")
		_, _ = fmt.Fprintf(r.out, "    Model:  %s\n", info.CompleterModel)
		_, _ = fmt.Fprintf(r.out, "    Status: %s\n", r.renderStatus(info.CompleterStatus))
	}
	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready":
		return r.styles.Success.Render(status)
	case "offline", "missing", "disabled":
		return r.styles.Warning.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

func (r *StatusRenderer) formatTime(t time.Time) string {
	diff := r.now().Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
