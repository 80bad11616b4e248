package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// MaxK caps the number of excerpts a tool call may request.
const MaxK = 20

// FormatSearchResults formats ranked excerpts as markdown.
func FormatSearchResults(query string, lang hymn.Language, results []hymn.RetrievalResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No %s hymn excerpts found for \"%s\"", lang.DisplayName(), query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s Hymn Results for \"%s\"\n\n", lang.DisplayName(), query)
	fmt.Fprintf(&sb, "Found %d excerpt", len(results))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		fmt.Fprintf(&sb, "### %d. Hymn %d, chunk %d (score: %.2f)\n\n", i+1, r.HymnID, r.ChunkID, r.Score)
		for _, line := range strings.Split(strings.TrimSpace(r.Text), "\n") {
			sb.WriteString("> ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// clampK bounds k to [0, MaxK]; 0 selects the retriever default.
func clampK(k int) int {
	switch {
	case k < 0:
		return 0
	case k > MaxK:
		return MaxK
	default:
		return k
	}
}

func toResultOutputs(results []hymn.RetrievalResult) []SearchResultOutput {
	out := make([]SearchResultOutput, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResultOutput{
			HymnID:  r.HymnID,
			ChunkID: r.ChunkID,
			Text:    r.Text,
			Score:   float64(r.Score),
		})
	}
	return out
}
