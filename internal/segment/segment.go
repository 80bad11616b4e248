// Package segment turns a document's raw text into hymn records.
//
// Each language registers its own strategy; callers obtain one through For
// and never branch on the language themselves.
package segment

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// Segmenter splits text into hymn records. Implementations are pure and
// safe for concurrent use.
type Segmenter interface {
	Segment(text string) Result
}

// Result is the outcome of one segmentation pass.
type Result struct {
	Records []hymn.Record
	// Excluded lists header-shaped lines that did not open a hymn.
	Excluded []ExcludedHeader
}

// Ambiguous reports whether non-empty input produced no hymns.
func (r Result) Ambiguous(input string) bool {
	return len(r.Records) == 0 && strings.TrimSpace(input) != ""
}

// ExcludedHeader is a line that looks like a hymn header but whose title
// word is outside the vocabulary. Its text is not captured by any record
// unless it falls inside the body of a preceding hymn.
type ExcludedHeader struct {
	Offset int    `json:"offset"`
	Number int    `json:"number"`
	Word   string `json:"word"`
	Line   string `json:"line"`
}

// Options carries the tunable vocabularies. Zero values select defaults.
type Options struct {
	Anchors    []string
	MinWords   int
	TitleWords []string
}

// DefaultAnchors are the English hymn anchors: tune markers, book
// abbreviations, meter abbreviations and numeric meter codes.
var DefaultAnchors = []string{
	`Tune\s+-`,
	`B\.H\.B\.`,
	`S\.S\.`,
	`R\.S\.`,
	`R\.H\.`,
	`P\.M\.`,
	`C\.M\.`,
	`L\.M\.`,
	`\d{1,2}(?:-\d{1,2})+`,
}

// DefaultTitleWords are the words that may open a Yoruba hymn title.
var DefaultTitleWords = []string{
	"ORIN", "OJO", "OLORUN", "OLUWA", "IBI", "AFERI", "NIGBA", "JESU",
	"BABA", "MO", "EMI", "EGBE", "IGBALA", "IYIN", "INU", "O",
}

// DefaultMinWords is the shortest English segment kept as a hymn.
const DefaultMinWords = 10

// DefaultOptions returns the built-in vocabularies.
func DefaultOptions() Options {
	return Options{
		Anchors:    DefaultAnchors,
		MinWords:   DefaultMinWords,
		TitleWords: DefaultTitleWords,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if len(o.Anchors) == 0 {
		o.Anchors = d.Anchors
	}
	if o.MinWords <= 0 {
		o.MinWords = d.MinWords
	}
	if len(o.TitleWords) == 0 {
		o.TitleWords = d.TitleWords
	}
	return o
}

type factory func(lang hymn.Language, opts Options) (Segmenter, error)

var registry = map[hymn.Language]factory{
	hymn.English: func(lang hymn.Language, opts Options) (Segmenter, error) {
		return NewAnchorSegmenter(lang, opts.Anchors, opts.MinWords)
	},
	hymn.Yoruba: func(lang hymn.Language, opts Options) (Segmenter, error) {
		return NewHeaderSegmenter(lang, opts.TitleWords)
	},
}

// For returns the segmentation strategy registered for lang.
func For(lang hymn.Language, opts Options) (Segmenter, error) {
	f, ok := registry[lang]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownLanguage,
			fmt.Sprintf("no segmenter registered for %s", lang), nil)
	}
	return f(lang, opts.withDefaults())
}
