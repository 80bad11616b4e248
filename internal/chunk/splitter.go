package chunk

import (
	"iter"
	"strings"
	"unicode"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// Splitter cuts text into chunks of at most Size runes, preferring to end a
// chunk on a paragraph break, then a sentence end, then a word boundary.
// It holds no state between calls and is safe for concurrent use.
type Splitter struct {
	size    int
	overlap int
}

// New creates a Splitter. Overlap must be smaller than size.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{size: DefaultSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Size returns the maximum chunk length in runes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the number of runes shared by consecutive chunks.
func (s *Splitter) Overlap() int { return s.overlap }

// Chunks yields the chunks of one hymn in order.
// Empty text yields nothing.
func (s *Splitter) Chunks(hymnID int, text string) iter.Seq[hymn.Chunk] {
	return func(yield func(hymn.Chunk) bool) {
		r := []rune(text)
		n := len(r)
		pos, idx := 0, 0

		for pos < n {
			end := n
			if n-pos > s.size {
				end = s.breakPoint(r, pos)
			}

			c := hymn.Chunk{
				HymnID: hymnID,
				Index:  idx,
				Text:   string(r[pos:end]),
				Start:  pos,
				End:    end,
			}
			if !yield(c) || end == n {
				return
			}

			pos = end - s.overlap
			idx++
		}
	}
}

// Records yields the chunks of every record, hymn by hymn.
func (s *Splitter) Records(records []hymn.Record) iter.Seq[hymn.Chunk] {
	return func(yield func(hymn.Chunk) bool) {
		for _, rec := range records {
			for c := range s.Chunks(rec.ID, rec.Text) {
				if !yield(c) {
					return
				}
			}
		}
	}
}

// breakPoint picks the end of the chunk starting at pos.
// The result lies in (pos+overlap, pos+size] so the next chunk always starts
// after the current one.
func (s *Splitter) breakPoint(r []rune, pos int) int {
	limit := pos + s.size
	lo := pos + s.overlap + 1

	for _, accept := range []func(r []rune, b, pos int) bool{
		isParagraphEnd,
		isSentenceEnd,
		isWordEnd,
	} {
		for b := limit; b >= lo; b-- {
			if accept(r, b, pos) {
				return b
			}
		}
	}
	return limit
}

// isParagraphEnd reports whether a chunk ending at b closes on a blank line.
func isParagraphEnd(r []rune, b, pos int) bool {
	return b-2 >= pos && r[b-1] == '\n' && r[b-2] == '\n'
}

// isSentenceEnd reports whether a chunk ending at b closes on a line break
// or on sentence punctuation followed by whitespace.
func isSentenceEnd(r []rune, b, pos int) bool {
	if r[b-1] == '\n' {
		return true
	}
	return b-2 >= pos && unicode.IsSpace(r[b-1]) && strings.ContainsRune(".!?;", r[b-2])
}

func isWordEnd(r []rune, b, _ int) bool {
	return unicode.IsSpace(r[b-1])
}

// Reassemble rebuilds the original text from chunks produced with the given
// overlap, in order.
func Reassemble(chunks []hymn.Chunk, overlap int) string {
	var sb strings.Builder
	for i, c := range chunks {
		if i == 0 {
			sb.WriteString(c.Text)
			continue
		}
		r := []rune(c.Text)
		if overlap < len(r) {
			sb.WriteString(string(r[overlap:]))
		}
	}
	return sb.String()
}
