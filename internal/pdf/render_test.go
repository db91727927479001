package pdf_test

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/shiplabel/internal/barcode"
	"github.com/MeKo-Tech/shiplabel/internal/pdf"
	"github.com/MeKo-Tech/shiplabel/internal/recognize"
	"github.com/MeKo-Tech/shiplabel/internal/testutil"
)

func boxIDs(t *testing.T, images []image.Image) []string {
	t.Helper()

	rec, err := recognize.New(recognize.DefaultConfig(),
		&recognize.BarcodeStrategy{Decoder: barcode.NewDecoder(nil, barcode.Options{})},
	)
	require.NoError(t, err)

	ids := make([]string, len(images))
	for i, img := range images {
		ids[i] = rec.Recognize(context.Background(), i+1, img, recognize.FieldBoxID).BoxID
	}
	return ids
}

func TestExtractRenderer_ScannedDocument(t *testing.T) {
	pages := []image.Image{
		testutil.LabelPage(t, testutil.Label{BoxBarcode: "FBA123ABC456"}),
		testutil.LabelPage(t, testutil.Label{BoxBarcode: "FBA999XYZ111"}),
	}

	// Extracted image names are derived from the document name; none of
	// these may confuse page assignment.
	for _, name := range []string{"FBA15ABC-boxes.pdf", "page.pdf", "page_scan.pdf", "scan_7_1.pdf"} {
		t.Run(name, func(t *testing.T) {
			path := testutil.ScannedPDF(t, t.TempDir(), name, pages...)

			var got []image.Image
			var order []int
			r := &pdf.ExtractRenderer{}
			n, err := r.Render(context.Background(), path, pdf.DefaultDPI, func(page int, img image.Image) error {
				order = append(order, page)
				got = append(got, img)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assert.Equal(t, []int{1, 2}, order)
			for i, img := range got {
				require.NotNil(t, img, "page %d", i+1)
			}
			assert.Equal(t, []string{"FBA1 23AB C456", "FBA9 99XY Z111"}, boxIDs(t, got))
		})
	}
}

func TestExtractRenderer_StopsOnCallbackError(t *testing.T) {
	path := testutil.ScannedPDF(t, t.TempDir(), "FBA1.pdf",
		testutil.BlankPage(), testutil.BlankPage(), testutil.BlankPage())

	stop := assert.AnError
	r := &pdf.ExtractRenderer{}
	n, err := r.Render(context.Background(), path, pdf.DefaultDPI, func(page int, _ image.Image) error {
		if page == 2 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestPageCount_ScannedDocument(t *testing.T) {
	path := testutil.ScannedPDF(t, t.TempDir(), "Labels.pdf",
		testutil.BlankPage(), testutil.BlankPage(), testutil.BlankPage())

	n, err := pdf.PageCount(path, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestExtractTextLayer_GeneratedDocument(t *testing.T) {
	path := testutil.TextPDF(t, t.TempDir(), "FBA15ABC-boxes.pdf",
		[]testutil.TextRun{
			{Text: "SHIP FROM", X: 60, Y: 750},
			{Text: "FBA15ABCDE12", X: 100, Y: 600},
			{Text: "1Z999AA10123456784", X: 100, Y: 300},
		},
		[]testutil.TextRun{
			{Text: "FBA15ABCDE13", X: 100, Y: 600},
		},
	)

	layer, err := pdf.ExtractTextLayer(path)
	require.NoError(t, err)
	require.Len(t, layer, 2)

	// y=600 of 792 points sits at 24% from the top, y=300 at 62%.
	assert.Equal(t, "FBA15ABCDE12", layer.Within(1, 0.2, 0.45, 0.05, 0.95))
	assert.Equal(t, "1Z999AA10123456784", layer.Within(1, 0.5, 0.8, 0.05, 0.95))
	assert.Equal(t, "FBA15ABCDE13", layer.Within(2, 0.2, 0.45, 0.05, 0.95))
	assert.Empty(t, layer.Within(2, 0.5, 0.8, 0, 1))

	first := layer[1][1]
	assert.InDelta(t, 100.0/612, first.X, 0.001)
	assert.InDelta(t, 1-600.0/792, first.Y, 0.001)
}
