//go:build !tesseract

package ocr

import (
	"context"
	"image"
)

const engineAvailable = false

type noEngine struct{}

// NewReader returns a reader that always fails with ErrNoBackend.
// Build with -tags=tesseract to link the tesseract engine.
func NewReader() Reader { return noEngine{} }

func (noEngine) Read(context.Context, image.Image, Options) (string, error) {
	return "", ErrNoBackend
}
