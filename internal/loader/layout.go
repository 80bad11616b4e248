package loader

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// fragment is a run of text at a page position. Y grows upwards.
type fragment struct {
	X, Y, W float64
	Size    float64
	S       string
}

// layoutPage renders a page. In column mode fragments starting left of
// split are rendered before the rest, joined by a newline.
func layoutPage(frags []fragment, layout hymn.Layout, split float64) string {
	if layout != hymn.LayoutColumns {
		return layoutText(frags)
	}

	var left, right []fragment
	for _, f := range frags {
		if f.X < split {
			left = append(left, f)
		} else {
			right = append(right, f)
		}
	}
	return layoutText(left) + "\n" + layoutText(right)
}

// layoutText groups fragments into lines by baseline, top to bottom, and
// orders each line left to right. A space is inserted where fragments are
// visibly apart.
func layoutText(frags []fragment) string {
	if len(frags) == 0 {
		return ""
	}

	sorted := make([]fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var lines [][]fragment
	for _, f := range sorted {
		n := len(lines)
		if n > 0 && sameLine(lines[n-1][0], f) {
			lines[n-1] = append(lines[n-1], f)
			continue
		}
		lines = append(lines, []fragment{f})
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].X < line[j].X
		})
		out = append(out, strings.TrimRightFunc(joinLine(line), unicode.IsSpace))
	}
	return strings.Join(out, "\n")
}

func sameLine(a, b fragment) bool {
	tol := math.Max(a.Size, b.Size) * 0.3
	if tol <= 0 {
		tol = 1
	}
	return math.Abs(a.Y-b.Y) <= tol
}

func joinLine(line []fragment) string {
	var sb strings.Builder
	for i, f := range line {
		if i > 0 {
			prev := line[i-1]
			gap := f.X - (prev.X + prev.W)
			if gap > spaceWidth(prev, f) && !endsSpace(sb.String()) && !startsSpace(f.S) {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(f.S)
	}
	return sb.String()
}

func spaceWidth(a, b fragment) float64 {
	size := math.Max(a.Size, b.Size)
	if size <= 0 {
		return 1
	}
	return size * 0.15
}

func endsSpace(s string) bool {
	return s != "" && unicode.IsSpace(rune(s[len(s)-1]))
}

func startsSpace(s string) bool {
	return s != "" && unicode.IsSpace(rune(s[0]))
}
