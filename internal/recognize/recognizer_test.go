package recognize

import (
	"context"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/shiplabel/internal/barcode"
	"github.com/MeKo-Tech/shiplabel/internal/codes"
	"github.com/MeKo-Tech/shiplabel/internal/ocr"
	"github.com/MeKo-Tech/shiplabel/internal/pdf"
	"github.com/MeKo-Tech/shiplabel/internal/records"
	"github.com/MeKo-Tech/shiplabel/internal/testutil"
)

// countingStrategy returns a fixed result per field and counts invocations.
type countingStrategy struct {
	name    records.Source
	results map[Field]codes.Result
	calls   atomic.Int32
}

func (s *countingStrategy) Name() records.Source { return s.name }

func (s *countingStrategy) TryDecode(_ context.Context, _ Input, spec RegionSpec) codes.Result {
	s.calls.Add(1)
	if r, ok := s.results[spec.Field]; ok {
		return r
	}
	return codes.Unrecognized("")
}

// fakeReader returns canned OCR text and counts calls.
type fakeReader struct {
	text  string
	calls atomic.Int32
	last  ocr.Options
}

func (f *fakeReader) Read(_ context.Context, _ image.Image, opts ocr.Options) (string, error) {
	f.calls.Add(1)
	f.last = opts
	return f.text, nil
}

func newRecognizer(t *testing.T, strategies ...Strategy) *Recognizer {
	t.Helper()
	r, err := New(DefaultConfig(), strategies...)
	require.NoError(t, err)
	return r
}

func TestRecognize_BarcodeSkipsOCR(t *testing.T) {
	bc := &countingStrategy{name: records.SourceBarcode, results: map[Field]codes.Result{
		FieldBoxID:    codes.Decoded("FBA123ABC456"),
		FieldTracking: codes.Decoded("1Z999AA10123456784"),
	}}
	ocrFake := &countingStrategy{name: records.SourceOCR}

	rec := newRecognizer(t, bc, ocrFake).Recognize(context.Background(), 1, testutil.BlankPage())

	assert.Equal(t, "FBA1 23AB C456", rec.BoxID)
	assert.Equal(t, "1Z99 9AA1 0123 4567 84", rec.Tracking)
	assert.Equal(t, records.SourceBarcode, rec.BoxIDSource)
	assert.Equal(t, int32(2), bc.calls.Load())
	assert.Equal(t, int32(0), ocrFake.calls.Load())
}

func TestRecognize_FallsBackToOCR(t *testing.T) {
	reader := &fakeReader{text: "TRACKING #: 1Z 999\n1Z999AA10123456784\n"}
	bc := &countingStrategy{name: records.SourceBarcode}

	rec := newRecognizer(t, bc, &OCRStrategy{Reader: reader}).
		Recognize(context.Background(), 4, testutil.BlankPage(), FieldTracking)

	assert.Equal(t, 4, rec.Page)
	assert.Empty(t, rec.BoxID)
	assert.Equal(t, "1Z99 9AA1 0123 4567 84", rec.Tracking)
	assert.Equal(t, records.SourceOCR, rec.TrackingSource)
	assert.Equal(t, int32(1), reader.calls.Load())
	assert.Equal(t, ocr.ModeLine, reader.last.Mode)
	assert.True(t, reader.last.Binarize)
}

func TestRecognize_BothMissYieldsEmpty(t *testing.T) {
	reader := &fakeReader{text: "RANDOM WORDS 12345"}
	rec := newRecognizer(t, &countingStrategy{name: records.SourceBarcode}, &OCRStrategy{Reader: reader}).
		Recognize(context.Background(), 1, testutil.NoisePage(1))

	assert.Equal(t, records.PageRecord{Page: 1}, rec)
	assert.Equal(t, int32(2), reader.calls.Load())
}

func TestRecognize_NoOCREngine(t *testing.T) {
	rec := newRecognizer(t, &countingStrategy{name: records.SourceBarcode}, &OCRStrategy{Reader: errReader{}}).
		Recognize(context.Background(), 1, testutil.BlankPage())
	assert.Equal(t, records.PageRecord{Page: 1}, rec)
}

type errReader struct{}

func (errReader) Read(context.Context, image.Image, ocr.Options) (string, error) {
	return "", ocr.ErrNoBackend
}

func TestRecognize_RealBarcodes(t *testing.T) {
	page := testutil.LabelPage(t, testutil.Label{
		BoxBarcode:      "FBA15ABCDE12",
		TrackingBarcode: "1Z999AA10123456784",
	})
	reader := &fakeReader{}
	dec := barcode.NewDecoder(nil, barcode.Options{TryHarder: true})

	rec := newRecognizer(t, &BarcodeStrategy{Decoder: dec}, &OCRStrategy{Reader: reader}).
		Recognize(context.Background(), 1, page)

	assert.Equal(t, "FBA1 5ABC DE12", rec.BoxID)
	assert.Equal(t, "1Z99 9AA1 0123 4567 84", rec.Tracking)
	assert.Equal(t, int32(0), reader.calls.Load())
}

func TestRecognize_RegionsAreIndependent(t *testing.T) {
	// Only the tracking band carries a barcode; the box band must not see it.
	page := testutil.LabelPage(t, testutil.Label{TrackingBarcode: "1Z999AA10123456784"})
	dec := barcode.NewDecoder(nil, barcode.Options{TryHarder: true})

	rec := newRecognizer(t, &BarcodeStrategy{Decoder: dec}).Recognize(context.Background(), 1, page)
	assert.Empty(t, rec.BoxID)
	assert.Equal(t, "1Z99 9AA1 0123 4567 84", rec.Tracking)
}

func TestRecognize_TextLayer(t *testing.T) {
	p := Page{
		Number: 2,
		Image:  testutil.BlankPage(),
		Text: []pdf.TextRun{
			{Text: "FBA15ABCDE12", X: 0.3, Y: 0.3},
			{Text: "TRACKING #: 1Z999AA10123456784", X: 0.1, Y: 0.6},
		},
	}
	reader := &fakeReader{}

	rec := newRecognizer(t, TextLayerStrategy{}, &OCRStrategy{Reader: reader}).RecognizePage(context.Background(), p)
	assert.Equal(t, "FBA1 5ABC DE12", rec.BoxID)
	assert.Equal(t, "1Z99 9AA1 0123 4567 84", rec.Tracking)
	assert.Equal(t, records.SourceText, rec.TrackingSource)
	assert.Equal(t, int32(0), reader.calls.Load())
}

func TestRecognize_RequireMatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Regions[1].RequireMatch = true
	bc := &countingStrategy{name: records.SourceBarcode, results: map[Field]codes.Result{
		FieldTracking: codes.Decoded("420902101234"),
	}}
	r, err := New(cfg, &BarcodeStrategy{Decoder: barcode.NewDecoder(stubBackend{"420902101234"}, barcode.Options{})}, bc)
	require.NoError(t, err)

	rec := r.Recognize(context.Background(), 1, testutil.BlankPage(), FieldTracking)
	assert.Equal(t, "4209 0210 1234", rec.Tracking)
	assert.Equal(t, records.SourceBarcode, rec.TrackingSource, "second strategy decodes without the pattern check")
	assert.Equal(t, int32(1), bc.calls.Load())
}

type stubBackend struct{ value string }

func (s stubBackend) Decode(context.Context, image.Image, barcode.Options) ([]barcode.Result, error) {
	return []barcode.Result{{Value: s.value}}, nil
}

type blockingStrategy struct{}

func (blockingStrategy) Name() records.Source { return records.SourceOCR }

func (blockingStrategy) TryDecode(ctx context.Context, _ Input, _ RegionSpec) codes.Result {
	<-ctx.Done()
	time.Sleep(10 * time.Millisecond)
	return codes.Decoded("FBA999")
}

type panickingStrategy struct{}

func (panickingStrategy) Name() records.Source { return records.SourceBarcode }

func (panickingStrategy) TryDecode(context.Context, Input, RegionSpec) codes.Result {
	panic("decoder crashed")
}

func TestRecognize_Hardening(t *testing.T) {
	t.Run("timeout is a miss", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RegionTimeout = 20 * time.Millisecond
		r, err := New(cfg, blockingStrategy{})
		require.NoError(t, err)

		start := time.Now()
		rec := r.Recognize(context.Background(), 1, testutil.BlankPage())
		assert.Equal(t, records.PageRecord{Page: 1}, rec)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("panic is a miss", func(t *testing.T) {
		fallback := &countingStrategy{name: records.SourceOCR, results: map[Field]codes.Result{
			FieldBoxID: codes.Decoded("FBA1"),
		}}
		rec := newRecognizer(t, panickingStrategy{}, fallback).Recognize(context.Background(), 1, testutil.BlankPage())
		assert.Equal(t, "FBA1", rec.BoxID)
	})

	t.Run("nil page image", func(t *testing.T) {
		dec := barcode.NewDecoder(nil, barcode.Options{})
		rec := newRecognizer(t, &BarcodeStrategy{Decoder: dec}, &OCRStrategy{Reader: &fakeReader{}}).
			Recognize(context.Background(), 3, nil)
		assert.Equal(t, records.PageRecord{Page: 3}, rec)
	})

	t.Run("decoded value normalizing to empty falls through", func(t *testing.T) {
		bc := &countingStrategy{name: records.SourceBarcode, results: map[Field]codes.Result{
			FieldBoxID: codes.Decoded("---"),
		}}
		next := &countingStrategy{name: records.SourceOCR, results: map[Field]codes.Result{
			FieldBoxID: codes.Decoded("FBA77"),
		}}
		rec := newRecognizer(t, bc, next).Recognize(context.Background(), 1, testutil.BlankPage(), FieldBoxID)
		assert.Equal(t, "FBA7 7", rec.BoxID)
	})
}

func TestOCRStrategy_FullPage(t *testing.T) {
	reader := &sizeReader{}
	page := testutil.BlankPage()
	spec := DefaultRegions()[0]

	s := &OCRStrategy{Reader: reader}
	s.TryDecode(context.Background(), Input{Image: page, Crop: Crop(page, spec.Bounds)}, spec)
	assert.Equal(t, page.Bounds(), reader.seen)

	spec.OCRFullPage = false
	s.TryDecode(context.Background(), Input{Image: page, Crop: Crop(page, spec.Bounds)}, spec)
	assert.Equal(t, spec.Bounds.Rect(page.Bounds()).Size(), reader.seen.Size())
}

type sizeReader struct{ seen image.Rectangle }

func (s *sizeReader) Read(_ context.Context, img image.Image, _ ocr.Options) (string, error) {
	s.seen = img.Bounds()
	return "", nil
}

func TestNew_Validation(t *testing.T) {
	_, err := New(DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Regions = append(cfg.Regions, cfg.Regions[0])
	_, err = New(cfg, TextLayerStrategy{})
	assert.ErrorContains(t, err, "twice")

	cfg = DefaultConfig()
	cfg.Regions[0].Bounds.Bottom = 0.1
	_, err = New(cfg, TextLayerStrategy{})
	assert.Error(t, err)

	_, err = New(Config{}, TextLayerStrategy{})
	assert.Error(t, err)
}
