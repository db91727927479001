package recognize

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/shiplabel/internal/barcode"
	"github.com/MeKo-Tech/shiplabel/internal/codes"
	"github.com/MeKo-Tech/shiplabel/internal/ocr"
	"github.com/MeKo-Tech/shiplabel/internal/records"
)

// Input is what a strategy sees for one region.
type Input struct {
	Page int
	// Image is the full page, Crop the region of interest.
	Image image.Image
	Crop  image.Image
	// Text is vector text found inside the region, if the document has any.
	Text string
}

// Strategy is one way of turning a region into a code. Strategies never fail;
// anything short of a decode is Unrecognized.
type Strategy interface {
	Name() records.Source
	TryDecode(ctx context.Context, in Input, spec RegionSpec) codes.Result
}

// BarcodeStrategy decodes a barcode inside the crop.
type BarcodeStrategy struct {
	Decoder *barcode.Decoder
}

func (s *BarcodeStrategy) Name() records.Source { return records.SourceBarcode }

func (s *BarcodeStrategy) TryDecode(ctx context.Context, in Input, spec RegionSpec) codes.Result {
	if in.Crop == nil {
		return codes.Unrecognized("")
	}
	res := s.Decoder.Decode(ctx, in.Crop)
	if v, ok := res.Value(); ok && spec.RequireMatch && !spec.Extractor.Matches(v) {
		return codes.Unrecognized(v)
	}
	return res
}

// TextLayerStrategy matches the region's vector text, present in digitally
// generated labels, against the field pattern.
type TextLayerStrategy struct{}

func (TextLayerStrategy) Name() records.Source { return records.SourceText }

func (TextLayerStrategy) TryDecode(_ context.Context, in Input, spec RegionSpec) codes.Result {
	if in.Text == "" {
		return codes.Unrecognized("")
	}
	return spec.Extractor.Extract(in.Text)
}

// OCRStrategy recognizes text with the region's OCR options and extracts the
// first match of the field pattern.
type OCRStrategy struct {
	Reader ocr.Reader
	Logger *slog.Logger

	warnOnce sync.Once
}

func (s *OCRStrategy) Name() records.Source { return records.SourceOCR }

func (s *OCRStrategy) TryDecode(ctx context.Context, in Input, spec RegionSpec) codes.Result {
	target := in.Crop
	if spec.OCRFullPage {
		target = in.Image
	}
	if target == nil || s.Reader == nil {
		return codes.Unrecognized("")
	}

	text, err := s.Reader.Read(ctx, target, spec.OCR)
	if err != nil {
		if errors.Is(err, ocr.ErrNoBackend) {
			s.warnOnce.Do(func() {
				s.logger().Warn("OCR fallback disabled", "error", err)
			})
		} else {
			s.logger().Debug("OCR failed", "page", in.Page, "field", spec.Field, "error", err)
		}
		return codes.Unrecognized("")
	}
	return spec.Extractor.Extract(text)
}

func (s *OCRStrategy) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
