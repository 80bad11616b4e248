package synth

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

const promptTemplate = `You are a hymn search assistant. The user asked for a %s hymn containing the line: "%s".

Below are hymn excerpts retrieved from a hymnal. Some may contain the full hymn, others may be partial.

Your task:
- Use only text present in the excerpts below. Do not add stanzas or lines that are not in the excerpts.
- If the excerpts do not contain the whole hymn, output only the parts they contain.
- Start a new stanza with a new line (blank space between stanzas).
- Number each stanza sequentially (1., 2., 3., etc.).
- If the hymn appears fragmented, stitch together all matching chunks.
- Output ONLY the hymn text.
- Do NOT include a "Retrieved hymn excerpts" section or any reference to hymn numbers or scores unless it's part of the hymn itself.
- Preserve original punctuation and wording exactly as in the excerpts.

Hymn excerpts:
%s
`

// FormatExcerpt renders one retrieved chunk for the prompt.
func FormatExcerpt(r hymn.RetrievalResult) string {
	return fmt.Sprintf("Hymn #%d\n%s", r.HymnID, r.Text)
}

// BuildPrompt renders the synthesis prompt. Excerpts appear in retrieval
// order separated by blank lines. The output depends only on its inputs.
func BuildPrompt(results []hymn.RetrievalResult, query string, lang hymn.Language) string {
	excerpts := make([]string, len(results))
	for i, r := range results {
		excerpts[i] = FormatExcerpt(r)
	}
	return fmt.Sprintf(promptTemplate,
		strings.ToUpper(lang.String()),
		strings.TrimSpace(query),
		strings.Join(excerpts, "\n\n"))
}
