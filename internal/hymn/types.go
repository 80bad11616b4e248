// Package hymn defines the core data model shared by ingestion and retrieval.
package hymn

import (
	"fmt"
	"strings"
)

// Language identifies a supported hymnal language.
// Each case owns its segmentation strategy and its own index.
type Language int

const (
	// English hymnals use two-column layout and anchor-based segmentation.
	English Language = iota + 1
	// Yoruba hymnals use single-column layout and numbered headers.
	Yoruba
)

// Languages returns every supported language in a stable order.
func Languages() []Language {
	return []Language{English, Yoruba}
}

// ParseLanguage parses a language name (case-insensitive).
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "english", "en":
		return English, nil
	case "yoruba", "yo":
		return Yoruba, nil
	default:
		return 0, fmt.Errorf("unknown language %q (supported: english, yoruba)", s)
	}
}

// String returns the lower-case identifier used in paths and config keys.
func (l Language) String() string {
	switch l {
	case English:
		return "english"
	case Yoruba:
		return "yoruba"
	default:
		return "unknown"
	}
}

// DisplayName returns the capitalised name shown to users.
func (l Language) DisplayName() string {
	switch l {
	case English:
		return "English"
	case Yoruba:
		return "Yoruba"
	default:
		return "Unknown"
	}
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == English || l == Yoruba
}

// MarshalText implements encoding.TextMarshaler.
func (l Language) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid language %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Language) UnmarshalText(b []byte) error {
	parsed, err := ParseLanguage(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Layout selects how page text is extracted.
type Layout string

const (
	// LayoutColumns splits each page at its horizontal midpoint and reads
	// the left half before the right half.
	LayoutColumns Layout = "columns"
	// LayoutSingle reads each page as one column.
	LayoutSingle Layout = "single"
)

// Valid reports whether the layout is known.
func (l Layout) Valid() bool {
	return l == LayoutColumns || l == LayoutSingle
}

// Document is the raw text of one document set, page by page.
type Document struct {
	Source   string
	Language Language
	Pages    []string
}

// Text joins all pages in document order.
func (d *Document) Text() string {
	return strings.Join(d.Pages, "\n")
}

// Record is one hymn extracted from a source document.
// Number is 0 when the source carries no ordinal.
type Record struct {
	ID       int      `json:"-"`
	Number   int      `json:"number,omitempty"`
	Title    string   `json:"title,omitempty"`
	Text     string   `json:"text"`
	Language Language `json:"-"`
}

// Chunk is a bounded slice of a hymn's text.
// Start and End are rune offsets into the hymn text.
type Chunk struct {
	HymnID int
	Index  int
	Text   string
	Start  int
	End    int
}

// VectorID returns the index key for the chunk.
func (c Chunk) VectorID() string {
	return VectorID(c.HymnID, c.Index)
}

// VectorID formats the index key for a hymn/chunk pair.
func VectorID(hymnID, chunkID int) string {
	return fmt.Sprintf("%d:%d", hymnID, chunkID)
}

// ParseVectorID is the inverse of VectorID.
func ParseVectorID(id string) (hymnID, chunkID int, err error) {
	if _, err := fmt.Sscanf(id, "%d:%d", &hymnID, &chunkID); err != nil {
		return 0, 0, fmt.Errorf("invalid vector id %q: %w", id, err)
	}
	return hymnID, chunkID, nil
}

// RetrievalResult is one ranked neighbour returned for a query.
// Distance is the cosine distance (0 = identical); Score is 1 - Distance/2.
type RetrievalResult struct {
	Text     string  `json:"text"`
	HymnID   int     `json:"hymn_id"`
	ChunkID  int     `json:"chunk_id"`
	Distance float32 `json:"distance"`
	Score    float32 `json:"score"`
}
