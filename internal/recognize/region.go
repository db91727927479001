package recognize

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/shiplabel/internal/codes"
	"github.com/MeKo-Tech/shiplabel/internal/ocr"
)

// Field identifies which page record field a region fills.
type Field string

const (
	FieldBoxID    Field = "box_id"
	FieldTracking Field = "tracking"
)

// Bounds is a region of interest given as fractions of page height and width.
type Bounds struct {
	Top    float64 `mapstructure:"top" yaml:"top" json:"top"`
	Bottom float64 `mapstructure:"bottom" yaml:"bottom" json:"bottom"`
	Left   float64 `mapstructure:"left" yaml:"left" json:"left"`
	Right  float64 `mapstructure:"right" yaml:"right" json:"right"`
}

// Validate checks the bounds lie within the unit square and are non-empty.
func (b Bounds) Validate() error {
	for _, v := range []float64{b.Top, b.Bottom, b.Left, b.Right} {
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("bounds %+v: values must be within [0,1]", b)
		}
	}
	if b.Bottom <= b.Top {
		return fmt.Errorf("bounds %+v: bottom must be greater than top", b)
	}
	if b.Right <= b.Left {
		return fmt.Errorf("bounds %+v: right must be greater than left", b)
	}
	return nil
}

// Rect converts the bounds to pixels within r, truncating like integer scaling.
func (b Bounds) Rect(r image.Rectangle) image.Rectangle {
	w, h := float64(r.Dx()), float64(r.Dy())
	return image.Rect(
		r.Min.X+int(w*b.Left),
		r.Min.Y+int(h*b.Top),
		r.Min.X+int(w*b.Right),
		r.Min.Y+int(h*b.Bottom),
	)
}

// Crop returns the region of img covered by b as a zero-origin image.
func Crop(img image.Image, b Bounds) image.Image {
	return imaging.Crop(img, b.Rect(img.Bounds()))
}

// RegionSpec configures recognition of one field.
type RegionSpec struct {
	Field     Field
	Bounds    Bounds
	Extractor *codes.Extractor
	OCR       ocr.Options

	// OCRFullPage runs OCR over the whole page instead of the crop. The
	// pattern extractor still restricts what is accepted.
	OCRFullPage bool

	// RequireMatch rejects barcode payloads that do not contain the family pattern.
	RequireMatch bool
}

// Validate checks the region is usable.
func (s RegionSpec) Validate() error {
	if s.Field == "" {
		return errors.New("region field is required")
	}
	if s.Extractor == nil {
		return fmt.Errorf("region %s: pattern extractor is required", s.Field)
	}
	if s.OCR.Whitelist == "" {
		return fmt.Errorf("region %s: OCR whitelist must not be empty", s.Field)
	}
	if err := s.Bounds.Validate(); err != nil {
		return fmt.Errorf("region %s: %w", s.Field, err)
	}
	return nil
}

// DefaultRegions returns the standard label layout: box id barcode in the
// upper band, carrier tracking barcode in the lower band.
func DefaultRegions() []RegionSpec {
	return []RegionSpec{
		{
			Field:       FieldBoxID,
			Bounds:      Bounds{Top: 0.2, Bottom: 0.45, Left: 0.05, Right: 0.95},
			Extractor:   codes.MustExtractor(codes.BoxIDFamily),
			OCR:         ocr.Options{Whitelist: ocr.WhitelistAlnum, Mode: ocr.ModeBlock},
			OCRFullPage: true,
		},
		{
			Field:     FieldTracking,
			Bounds:    Bounds{Top: 0.5, Bottom: 0.8, Left: 0.05, Right: 0.95},
			Extractor: codes.MustExtractor(codes.TrackingFamily),
			OCR:       ocr.Options{Whitelist: ocr.WhitelistLine, Mode: ocr.ModeLine, Binarize: true},
		},
	}
}
