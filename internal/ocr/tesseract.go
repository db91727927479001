//go:build tesseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

const engineAvailable = true

// TesseractReader runs recognition through libtesseract.
// A fresh client is created per call since clients are not safe for concurrent use.
type TesseractReader struct {
	clientFactory func() *gosseract.Client
	language      string
}

// NewReader returns the tesseract-backed reader.
func NewReader() Reader {
	return &TesseractReader{clientFactory: gosseract.NewClient, language: "eng"}
}

// Read implements Reader.
func (r *TesseractReader) Read(ctx context.Context, img image.Image, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Prepare(img, opts)); err != nil {
		return "", fmt.Errorf("ocr: encode region: %w", err)
	}

	client := r.clientFactory()
	defer func() { _ = client.Close() }()

	if err := client.SetLanguage(r.language); err != nil {
		return "", fmt.Errorf("ocr: set language: %w", err)
	}
	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			return "", fmt.Errorf("ocr: set whitelist: %w", err)
		}
	}
	psm := gosseract.PSM_SINGLE_BLOCK
	if opts.Mode == ModeLine {
		psm = gosseract.PSM_SINGLE_LINE
	}
	if err := client.SetPageSegMode(psm); err != nil {
		return "", fmt.Errorf("ocr: set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("ocr: set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: recognize: %w", err)
	}
	return text, nil
}
