package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

type gozxingBackend struct{}

// Decode runs the readers for opts.Formats in order and returns the first symbol
// found. Reader misses (not found, checksum, format) are not errors; any other
// reader failure is reported only if no later reader succeeds.
func (b *gozxingBackend) Decode(ctx context.Context, img image.Image, opts Options) (results []Result, err error) {
	if img == nil || img.Bounds().Empty() {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			results, err = nil, fmt.Errorf("barcode: decoder panic: %v", r)
		}
	}()

	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("barcode: prepare bitmap: %w", err)
	}

	var hints map[gozxing.DecodeHintType]interface{}
	if opts.TryHarder {
		hints = map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		}
	}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = DefaultFormats
	}

	var readerErr error
	for _, f := range formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reader := readerFor(f)
		if reader == nil {
			continue
		}
		r, decErr := reader.Decode(bitmap, hints)
		if decErr != nil {
			if !isMiss(decErr) && readerErr == nil {
				readerErr = fmt.Errorf("barcode: %s reader: %w", f, decErr)
			}
			continue
		}
		if r == nil || r.GetText() == "" {
			continue
		}
		return []Result{toResult(r)}, nil
	}
	return nil, readerErr
}

func readerFor(f Format) gozxing.Reader {
	switch f {
	case FormatCode128:
		return oned.NewCode128Reader()
	case FormatCode39:
		return oned.NewCode39Reader()
	case FormatCode93:
		return oned.NewCode93Reader()
	case FormatITF:
		return oned.NewITFReader()
	case FormatEAN13:
		return oned.NewEAN13Reader()
	case FormatCodabar:
		return oned.NewCodaBarReader()
	case FormatQR:
		return qrcode.NewQRCodeReader()
	case FormatDataMatrix:
		return datamatrix.NewDataMatrixReader()
	default:
		return nil
	}
}

// isMiss reports whether err is one of the ordinary "no symbol here" outcomes.
func isMiss(err error) bool {
	var notFound gozxing.NotFoundException
	var checksum gozxing.ChecksumException
	var format gozxing.FormatException
	return errors.As(err, &notFound) || errors.As(err, &checksum) || errors.As(err, &format)
}

func toResult(r *gozxing.Result) Result {
	return Result{
		Type:  mapFormatFromZXing(r.GetBarcodeFormat()),
		Value: r.GetText(),
	}
}

func mapFormatFromZXing(bf gozxing.BarcodeFormat) Format {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return FormatQR
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return FormatDataMatrix
	case gozxing.BarcodeFormat_CODE_128:
		return FormatCode128
	case gozxing.BarcodeFormat_CODE_39:
		return FormatCode39
	case gozxing.BarcodeFormat_CODE_93:
		return FormatCode93
	case gozxing.BarcodeFormat_EAN_13:
		return FormatEAN13
	case gozxing.BarcodeFormat_ITF:
		return FormatITF
	case gozxing.BarcodeFormat_CODABAR:
		return FormatCodabar
	default:
		return FormatUnknown
	}
}
