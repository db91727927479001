// Package barcode decodes linear and 2D barcodes from label regions.
//
// The Backend interface keeps the decode library swappable; the default
// backend is the pure-Go gozxing port.
package barcode

import (
	"context"
	"image"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatCode128
	FormatCode39
	FormatCode93
	FormatEAN13
	FormatITF
	FormatCodabar
)

var formatNames = map[Format]string{
	FormatUnknown:    "unknown",
	FormatQR:         "qr",
	FormatDataMatrix: "datamatrix",
	FormatCode128:    "code128",
	FormatCode39:     "code39",
	FormatCode93:     "code93",
	FormatEAN13:      "ean13",
	FormatITF:        "itf",
	FormatCodabar:    "codabar",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return "unknown"
}

// ParseFormat maps a configuration name to a Format.
func ParseFormat(name string) (Format, bool) {
	for f, n := range formatNames {
		if n == name && f != FormatUnknown {
			return f, true
		}
	}
	return FormatUnknown, false
}

// DefaultFormats is the search order used when Options.Formats is empty.
// Shipping labels are dominated by Code128, so linear symbologies come first.
var DefaultFormats = []Format{
	FormatCode128,
	FormatCode39,
	FormatCode93,
	FormatITF,
	FormatEAN13,
	FormatCodabar,
	FormatQR,
	FormatDataMatrix,
}

// Options controls backend decoding behavior.
type Options struct {
	// Formats constrains and orders the symbologies to search.
	Formats []Format

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool
}

// Result represents a decoded barcode.
type Result struct {
	Type  Format
	Value string
}

// Backend is a pluggable barcode decoder implementation.
// A backend returns an empty slice and nil error when nothing decodes.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}

// NewBackend returns the default backend implementation.
func NewBackend() Backend { return &gozxingBackend{} }
