package segment

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// AnchorSegmenter splits text immediately before every anchor occurrence
// and keeps segments with at least MinWords words. Splits never consume
// input: the untrimmed segments concatenate back to the original text.
type AnchorSegmenter struct {
	lang     hymn.Language
	anchor   *regexp.Regexp
	minWords int
}

// NewAnchorSegmenter compiles the anchor vocabulary into one alternation.
func NewAnchorSegmenter(lang hymn.Language, anchors []string, minWords int) (*AnchorSegmenter, error) {
	if len(anchors) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "anchor vocabulary is empty", nil)
	}
	re, err := regexp.Compile(`(?:` + strings.Join(anchors, `|`) + `)`)
	if err != nil {
		return nil, errors.New(errors.ErrCodeSegmentationFail,
			fmt.Sprintf("invalid anchor pattern: %v", err), err)
	}
	return &AnchorSegmenter{lang: lang, anchor: re, minWords: minWords}, nil
}

// Segment implements Segmenter.
func (s *AnchorSegmenter) Segment(text string) Result {
	var res Result
	for _, seg := range s.Split(text) {
		cleaned := strings.TrimSpace(seg)
		if len(strings.Fields(cleaned)) < s.minWords {
			continue
		}
		res.Records = append(res.Records, hymn.Record{
			ID:       len(res.Records),
			Text:     cleaned,
			Language: s.lang,
		})
	}
	return res
}

// Split returns the raw segments, including ones too short to keep.
func (s *AnchorSegmenter) Split(text string) []string {
	var cuts []int
	for _, m := range s.anchor.FindAllStringIndex(text, -1) {
		if m[0] == 0 || !startsMidWord(text, m[0]) {
			cuts = append(cuts, m[0])
		}
	}

	segments := make([]string, 0, len(cuts)+1)
	prev := 0
	for _, c := range cuts {
		if c > prev {
			segments = append(segments, text[prev:c])
		}
		prev = c
	}
	if prev < len(text) {
		segments = append(segments, text[prev:])
	}
	return segments
}

// startsMidWord reports whether the byte offset i continues a word, so
// that "2023-10" does not anchor at "23-10".
func startsMidWord(text string, i int) bool {
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
