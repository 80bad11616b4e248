package segment

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// headerShape matches any line that starts like a hymn header: a number
// followed by an all-capitals word.
var headerShape = regexp.MustCompile(`(?m)^(\d{1,3})[ \t]+(\p{Lu}[\p{Lu}\p{Mn}]*)(?:[^\p{L}\p{Mn}\n][^\n]*)?$`)

// HeaderSegmenter opens a hymn at every line of the form
// "<number> <TITLE WORD> ..." where the title word comes from a closed
// vocabulary. The hymn body runs to the next header or end of text.
type HeaderSegmenter struct {
	lang   hymn.Language
	header *regexp.Regexp
}

// NewHeaderSegmenter builds the header pattern from the title vocabulary.
func NewHeaderSegmenter(lang hymn.Language, titleWords []string) (*HeaderSegmenter, error) {
	if len(titleWords) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "title vocabulary is empty", nil)
	}
	quoted := make([]string, len(titleWords))
	for i, w := range titleWords {
		quoted[i] = regexp.QuoteMeta(w)
	}
	re, err := regexp.Compile(`(?m)^(\d{1,3})[ \t]+((?:` + strings.Join(quoted, `|`) + `)\b[^\n]*)`)
	if err != nil {
		return nil, errors.New(errors.ErrCodeSegmentationFail, "invalid title vocabulary", err)
	}
	return &HeaderSegmenter{lang: lang, header: re}, nil
}

// Segment implements Segmenter.
func (s *HeaderSegmenter) Segment(text string) Result {
	text = strings.ReplaceAll(text, "\r", "")

	var res Result
	matches := s.header.FindAllStringSubmatchIndex(text, -1)
	starts := make(map[int]bool, len(matches))

	for i, m := range matches {
		starts[m[0]] = true
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		number, _ := strconv.Atoi(text[m[2]:m[3]])
		res.Records = append(res.Records, hymn.Record{
			ID:       len(res.Records),
			Number:   number,
			Title:    strings.TrimSpace(text[m[4]:m[5]]),
			Text:     strings.TrimSpace(text[m[0]:end]),
			Language: s.lang,
		})
	}

	for _, m := range headerShape.FindAllStringSubmatchIndex(text, -1) {
		if starts[m[0]] {
			continue
		}
		number, _ := strconv.Atoi(text[m[2]:m[3]])
		res.Excluded = append(res.Excluded, ExcludedHeader{
			Offset: m[0],
			Number: number,
			Word:   text[m[4]:m[5]],
			Line:   strings.TrimSpace(text[m[0]:m[1]]),
		})
	}
	return res
}
