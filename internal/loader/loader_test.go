package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingPath_DocumentNotFound(t *testing.T) {
	_, err := New().Load(context.Background(), filepath.Join(t.TempDir(), "nope"), hymn.LayoutSingle)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDocumentNotFound))
	assert.True(t, errors.IsIngestionError(err))
}

func TestLoad_EmptyDirectory_DocumentNotFound(t *testing.T) {
	// Given: a directory with no .pdf or .txt files
	dir := t.TempDir()
	write(t, dir, "notes.md", "# not a hymnal")

	// When: loading it
	_, err := New().Load(context.Background(), dir, hymn.LayoutColumns)

	// Then: nothing to ingest is an ingestion error
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDocumentNotFound))
}

func TestLoad_TextFiles_InNameOrder(t *testing.T) {
	// Given: two text files, the second with two pages
	dir := t.TempDir()
	write(t, dir, "b.txt", "page two\fpage three")
	write(t, dir, "a.txt", "page one\r\n")

	// When: loading the directory
	doc, err := New().Load(context.Background(), dir, hymn.LayoutSingle)

	// Then: pages follow file name order
	require.NoError(t, err)
	assert.Equal(t, []string{"page one\n", "page two", "page three"}, doc.Pages)
	assert.Equal(t, dir, doc.Source)
}

func TestLoad_SingleFile(t *testing.T) {
	path := write(t, t.TempDir(), "hymns.txt", "1 OLORUN wa nibe")

	doc, err := New().Load(context.Background(), path, "")

	require.NoError(t, err)
	assert.Equal(t, "1 OLORUN wa nibe", doc.Text())
}

func TestLoad_CorruptPDF_FileCorrupt(t *testing.T) {
	path := write(t, t.TempDir(), "broken.pdf", "this is not a pdf")

	_, err := New().Load(context.Background(), path, hymn.LayoutColumns)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileCorrupt))
}

func TestLoad_InvalidLayout(t *testing.T) {
	path := write(t, t.TempDir(), "hymns.txt", "x")

	_, err := New().Load(context.Background(), path, "diagonal")

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
}

func TestLoad_CancelledContext(t *testing.T) {
	path := write(t, t.TempDir(), "hymns.txt", "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Load(ctx, path, hymn.LayoutSingle)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestLayoutText_LinesTopToBottomLeftToRight(t *testing.T) {
	// Given: fragments out of order, two on the same baseline
	frags := []fragment{
		{X: 60, Y: 700, W: 30, Size: 10, S: "world"},
		{X: 10, Y: 680, W: 30, Size: 10, S: "second"},
		{X: 10, Y: 700.5, W: 30, Size: 10, S: "hello"},
	}

	// When: laying out
	text := layoutText(frags)

	// Then: baselines group into lines and gaps become spaces
	assert.Equal(t, "hello world\nsecond", text)
}

func TestLayoutText_AdjacentGlyphsNotSpaced(t *testing.T) {
	frags := []fragment{
		{X: 10, Y: 100, W: 5, Size: 10, S: "J"},
		{X: 15, Y: 100, W: 5, Size: 10, S: "e"},
		{X: 20, Y: 100, W: 5, Size: 10, S: "su"},
	}

	assert.Equal(t, "Jesu", layoutText(frags))
}

func TestLayoutPage_ColumnsSplitAtMidpoint(t *testing.T) {
	// Given: a 600pt page with a hymn in each column, interleaved by height
	frags := []fragment{
		{X: 320, Y: 700, W: 40, Size: 10, S: "Right1"},
		{X: 20, Y: 700, W: 40, Size: 10, S: "Left1"},
		{X: 320, Y: 680, W: 40, Size: 10, S: "Right2"},
		{X: 20, Y: 680, W: 40, Size: 10, S: "Left2"},
	}

	// When: using column layout
	columns := layoutPage(frags, hymn.LayoutColumns, 300)
	single := layoutPage(frags, hymn.LayoutSingle, 300)

	// Then: the left column is read in full before the right
	assert.Equal(t, "Left1\nLeft2\nRight1\nRight2", columns)
	assert.Equal(t, "Left1 Right1\nLeft2 Right2", single)
}

func TestColumnSplit(t *testing.T) {
	frags := []fragment{
		{X: 120, W: 40, S: "left"},
		{X: 420, W: 80, S: "right"},
	}
	tests := []struct {
		name   string
		box    [4]float64
		hasBox bool
		frags  []fragment
		want   float64
	}{
		{"letter page at origin", [4]float64{0, 0, 612, 792}, true, frags, 306},
		{"offset media box", [4]float64{100, 0, 700, 792}, true, frags, 400},
		{"no media box uses text extent", [4]float64{}, false, frags, 310},
		{"degenerate box uses text extent", [4]float64{50, 0, 50, 792}, true, frags, 310},
		{"no box and no text", [4]float64{}, false, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, columnSplit(tt.box, tt.hasBox, tt.frags), 1e-9)
		})
	}
}

func TestLayoutPage_OffsetPageSplitsAtBoxMiddle(t *testing.T) {
	// Given: a page whose MediaBox spans x 100..700, text in each column
	frags := []fragment{
		{X: 150, Y: 700, W: 40, Size: 10, S: "Left"},
		{X: 350, Y: 700, W: 40, Size: 10, S: "StillLeft"},
		{X: 450, Y: 700, W: 40, Size: 10, S: "Right"},
	}

	// When: splitting at the box middle
	out := layoutPage(frags, hymn.LayoutColumns, columnSplit([4]float64{100, 0, 700, 792}, true, frags))

	// Then: text left of x=400 forms the first column
	assert.Equal(t, "Left StillLeft\nRight", out)
}

func TestLayoutText_Empty(t *testing.T) {
	assert.Equal(t, "", layoutText(nil))
	assert.Equal(t, "\n", layoutPage(nil, hymn.LayoutColumns, 300))
}
