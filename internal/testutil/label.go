package testutil

import (
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Page geometry used for synthetic labels. Barcodes are placed inside the
// default box-id band (20-45% of height) and tracking band (50-80%).
const (
	PageWidth  = 1000
	PageHeight = 1400

	barcodeWidth  = 700
	barcodeHeight = 150
	barcodeX      = 150
	boxBarcodeY   = 380
	trackBarcodeY = 830
)

// Label describes the content of one synthetic label page.
// Empty barcode values leave the band blank.
type Label struct {
	BoxBarcode      string
	TrackingBarcode string
	Text            []string
}

// BarcodeImage renders content as a Code128 symbol.
func BarcodeImage(content string, width, height int) (image.Image, error) {
	matrix, err := oned.NewCode128Writer().Encode(content, gozxing.BarcodeFormat_CODE_128, width, height, nil)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", content, err)
	}
	return matrix, nil
}

// BlankPage returns a white page.
func BlankPage() *image.NRGBA {
	return imaging.New(PageWidth, PageHeight, color.White)
}

// LabelPage renders a label page with the requested barcodes and text lines.
func LabelPage(t *testing.T, l Label) image.Image {
	t.Helper()

	page, err := RenderLabel(l)
	require.NoError(t, err)
	return page
}

// RenderLabel is LabelPage for callers without a *testing.T.
func RenderLabel(l Label) (image.Image, error) {
	page := BlankPage()
	var err error
	if l.BoxBarcode != "" {
		if page, err = pasteBarcode(page, l.BoxBarcode, boxBarcodeY); err != nil {
			return nil, err
		}
	}
	if l.TrackingBarcode != "" {
		if page, err = pasteBarcode(page, l.TrackingBarcode, trackBarcodeY); err != nil {
			return nil, err
		}
	}
	for i, line := range l.Text {
		DrawText(page, line, 80, 100+i*20)
	}
	return page, nil
}

// NoisePage returns a page of seeded random speckle with no decodable symbol.
func NoisePage(seed int64) image.Image {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic test noise
	page := BlankPage()
	for i := 0; i < PageWidth*PageHeight/50; i++ {
		x, y := rng.Intn(PageWidth), rng.Intn(PageHeight)
		page.Set(x, y, color.Black)
	}
	return page
}

// DrawText writes a line of text with its baseline at (x, y).
func DrawText(dst *image.NRGBA, text string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func pasteBarcode(page *image.NRGBA, content string, y int) (*image.NRGBA, error) {
	symbol, err := BarcodeImage(content, barcodeWidth, barcodeHeight)
	if err != nil {
		return nil, err
	}
	return imaging.Paste(page, symbol, image.Pt(barcodeX, y)), nil
}
