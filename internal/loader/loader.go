// Package loader extracts page text from hymnal source documents.
//
// PDFs are validated with pdfcpu and read with positioned text so that
// two-column pages can be split at their horizontal midpoint. Plain text
// files are accepted too, with form feeds separating pages.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// Loader reads a document set into a single Document.
type Loader struct {
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads path, a directory of .pdf/.txt files or a single file, and
// returns the pages of every file in name order.
func (l *Loader) Load(ctx context.Context, path string, layout hymn.Layout) (*hymn.Document, error) {
	if layout == "" {
		layout = hymn.LayoutSingle
	}
	if !layout.Valid() {
		return nil, errors.ValidationError(fmt.Sprintf("unknown layout %q", layout), nil)
	}

	files, err := Sources(path)
	if err != nil {
		return nil, err
	}
	l.logger.Info("load_started",
		slog.String("path", path),
		slog.Int("files", len(files)),
		slog.String("layout", string(layout)))

	doc := &hymn.Document{Source: path}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var pages []string
		switch strings.ToLower(filepath.Ext(file)) {
		case ".pdf":
			pages, err = readPDF(ctx, file, layout)
		default:
			pages, err = readText(file)
		}
		if err != nil {
			return nil, err
		}

		l.logger.Debug("load_file",
			slog.String("file", file),
			slog.Int("pages", len(pages)))
		doc.Pages = append(doc.Pages, pages...)
	}

	l.logger.Info("load_complete",
		slog.String("path", path),
		slog.Int("pages", len(doc.Pages)))
	return doc, nil
}

// Sources lists the readable source files under path, sorted by name.
// It fails with ErrCodeDocumentNotFound when there are none.
func Sources(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.DocumentNotFound(path)
		}
		if os.IsPermission(err) {
			return nil, errors.New(errors.ErrCodeFilePermission,
				fmt.Sprintf("cannot read %s", path), err)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}

	if !info.IsDir() {
		if !isSource(path) {
			return nil, errors.DocumentNotFound(path).
				WithSuggestion("Source files must be .pdf or .txt")
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeFilePermission,
			fmt.Sprintf("cannot list %s", path), err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && isSource(e.Name()) {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, errors.DocumentNotFound(path)
	}
	sort.Strings(files)
	return files, nil
}

func isSource(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".txt":
		return true
	default:
		return false
	}
}

// readText splits a plain text file into pages on form feeds.
func readText(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeFilePermission,
			fmt.Sprintf("cannot read %s", path), err)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.Split(text, "\f"), nil
}
