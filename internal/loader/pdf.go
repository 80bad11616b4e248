package loader

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
)

var disableConfigDir sync.Once

// validatePDF rejects files pdfcpu cannot parse before the text reader,
// which panics on some malformed inputs, ever sees them.
func validatePDF(path string) error {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return errors.New(errors.ErrCodeFileCorrupt,
			fmt.Sprintf("invalid PDF %s", path), err).
			WithDetail("path", path)
	}
	return nil
}

// readPDF returns one string per page.
func readPDF(ctx context.Context, path string, layout hymn.Layout) (pages []string, err error) {
	if err := validatePDF(path); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = errors.New(errors.ErrCodeFileCorrupt,
				fmt.Sprintf("failed to read PDF %s: %v", path, r), nil).
				WithDetail("path", path)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeFileCorrupt,
			fmt.Sprintf("failed to open PDF %s", path), err)
	}
	defer func() { _ = f.Close() }()

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		content := page.Content()
		frags := make([]fragment, 0, len(content.Text))
		for _, t := range content.Text {
			frags = append(frags, fragment{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
		}

		box, hasBox := mediaBox(page.V)
		pages = append(pages, layoutPage(frags, layout, columnSplit(box, hasBox, frags)))
	}
	return pages, nil
}

// maxPageTreeDepth bounds the /Parent walk on malformed files.
const maxPageTreeDepth = 32

// mediaBox returns the page's MediaBox, inherited from the page tree
// when the page itself has none.
func mediaBox(page pdf.Value) (box [4]float64, ok bool) {
	for v, depth := page, 0; !v.IsNull() && depth < maxPageTreeDepth; v, depth = v.Key("Parent"), depth+1 {
		b := v.Key("MediaBox")
		if b.Len() != 4 {
			continue
		}
		for i := range box {
			box[i] = b.Index(i).Float64()
		}
		return box, true
	}
	return box, false
}

// columnSplit returns the x coordinate dividing a two-column page: the
// middle of the MediaBox, or of the text extent when there is no usable
// box.
func columnSplit(box [4]float64, hasBox bool, frags []fragment) float64 {
	if hasBox && box[2] > box[0] {
		return box[0] + (box[2]-box[0])/2
	}
	if len(frags) == 0 {
		return 0
	}
	left, right := math.Inf(1), math.Inf(-1)
	for _, f := range frags {
		left = min(left, f.X)
		right = max(right, f.X+f.W)
	}
	return left + (right-left)/2
}
