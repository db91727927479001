// Package ocr runs constrained text recognition on label regions: a fixed
// character whitelist, a block or single-line layout, and optional Otsu
// binarization of the region before recognition.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrNoBackend is returned by the reader when no OCR engine is linked.
var ErrNoBackend = errors.New("ocr: no engine linked; build with -tags=tesseract")

// Mode is the expected layout of the text in a region.
type Mode int

const (
	// ModeBlock treats the region as a single uniform block of text.
	ModeBlock Mode = iota
	// ModeLine treats the region as a single text line.
	ModeLine
)

func (m Mode) String() string {
	if m == ModeLine {
		return "line"
	}
	return "block"
}

// ParseMode maps a configuration name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "block":
		return ModeBlock, nil
	case "line":
		return ModeLine, nil
	default:
		return ModeBlock, fmt.Errorf("unknown OCR mode %q (want block or line)", s)
	}
}

// Whitelists used for label codes.
const (
	WhitelistAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	WhitelistLine  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ- "
)

// Options configures one recognition call.
type Options struct {
	Whitelist string
	Mode      Mode
	Binarize  bool
}

// Reader recognizes text in an image. Implementations return an empty string,
// not an error, when the image simply contains no text.
type Reader interface {
	Read(ctx context.Context, img image.Image, opts Options) (string, error)
}

// Available reports whether a real OCR engine is linked into this build.
func Available() bool { return engineAvailable }
