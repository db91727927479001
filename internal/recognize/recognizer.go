// Package recognize turns one rendered label page into a page record. Each
// region of interest is cropped and handed to a fixed list of strategies,
// barcode first; the first decode wins and is normalized.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/shiplabel/internal/codes"
	"github.com/MeKo-Tech/shiplabel/internal/pdf"
	"github.com/MeKo-Tech/shiplabel/internal/records"
)

// Config configures a Recognizer.
type Config struct {
	Regions []RegionSpec
	// RegionTimeout bounds each strategy call; zero disables the guard.
	RegionTimeout time.Duration
}

// DefaultConfig returns the standard regions with a 30s per-strategy guard.
func DefaultConfig() Config {
	return Config{Regions: DefaultRegions(), RegionTimeout: 30 * time.Second}
}

// Validate checks every region and rejects duplicate fields.
func (c Config) Validate() error {
	if len(c.Regions) == 0 {
		return errors.New("at least one region is required")
	}
	seen := map[Field]bool{}
	for _, r := range c.Regions {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.Field] {
			return fmt.Errorf("region %s configured twice", r.Field)
		}
		seen[r.Field] = true
	}
	if c.RegionTimeout < 0 {
		return errors.New("region timeout must not be negative")
	}
	return nil
}

// Page is one rendered page plus any vector text it carries.
type Page struct {
	Number int
	Image  image.Image
	Text   []pdf.TextRun
}

// Recognizer runs the strategy chain over the configured regions of a page.
type Recognizer struct {
	cfg        Config
	strategies []Strategy
	logger     *slog.Logger
}

// New creates a Recognizer. Strategies are tried in the order given.
func New(cfg Config, strategies ...Strategy) (*Recognizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recognition config: %w", err)
	}
	if len(strategies) == 0 {
		return nil, errors.New("at least one recognition strategy is required")
	}
	return &Recognizer{cfg: cfg, strategies: strategies, logger: slog.Default()}, nil
}

// WithLogger sets the logger for per-region diagnostics.
func (r *Recognizer) WithLogger(l *slog.Logger) *Recognizer {
	if l != nil {
		r.logger = l
	}
	return r
}

// Fields returns the configured fields in order.
func (r *Recognizer) Fields() []Field {
	out := make([]Field, len(r.cfg.Regions))
	for i, spec := range r.cfg.Regions {
		out[i] = spec.Field
	}
	return out
}

// Recognize fills a page record from img. Only the listed fields are
// attempted; with none listed every configured region is.
func (r *Recognizer) Recognize(ctx context.Context, page int, img image.Image, fields ...Field) records.PageRecord {
	return r.RecognizePage(ctx, Page{Number: page, Image: img}, fields...)
}

// RecognizePage is Recognize with an optional text layer. A missed region
// leaves its field empty; nothing here returns an error.
func (r *Recognizer) RecognizePage(ctx context.Context, p Page, fields ...Field) records.PageRecord {
	rec := records.PageRecord{Page: p.Number}
	layer := pdf.TextLayer{p.Number: p.Text}

	for _, spec := range r.cfg.Regions {
		if !wanted(spec.Field, fields) {
			continue
		}

		in := Input{Page: p.Number, Image: p.Image, Text: layer.Within(p.Number,
			spec.Bounds.Top, spec.Bounds.Bottom, spec.Bounds.Left, spec.Bounds.Right)}
		if p.Image != nil && !p.Image.Bounds().Empty() {
			in.Crop = Crop(p.Image, spec.Bounds)
		}

		value, source, trace := r.recognizeRegion(ctx, in, spec)
		if value == "" {
			r.logger.Debug("region not recognized", "page", p.Number, "field", spec.Field, "trace", trace)
		}

		switch spec.Field {
		case FieldBoxID:
			rec.BoxID, rec.BoxIDSource = value, source
		case FieldTracking:
			rec.Tracking, rec.TrackingSource = value, source
		}
	}
	return rec
}

func (r *Recognizer) recognizeRegion(ctx context.Context, in Input, spec RegionSpec) (string, records.Source, string) {
	var trace string
	for _, s := range r.strategies {
		if ctx.Err() != nil {
			break
		}
		res := r.try(ctx, s, in, spec).Map(codes.Normalize)
		if v, ok := res.Value(); ok {
			return v, s.Name(), ""
		}
		if t := res.Trace(); t != "" {
			trace = t
		}
	}
	return "", records.SourceNone, trace
}

// try runs one strategy under the region timeout and recovers panics from
// the underlying decode or OCR library. A timeout is a miss.
func (r *Recognizer) try(ctx context.Context, s Strategy, in Input, spec RegionSpec) codes.Result {
	if r.cfg.RegionTimeout <= 0 {
		return r.safeTry(ctx, s, in, spec)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RegionTimeout)
	defer cancel()

	done := make(chan codes.Result, 1)
	go func() { done <- r.safeTry(ctx, s, in, spec) }()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		r.logger.Warn("recognition strategy timed out",
			"page", in.Page, "field", spec.Field, "strategy", s.Name(), "timeout", r.cfg.RegionTimeout)
		return codes.Unrecognized("")
	}
}

func (r *Recognizer) safeTry(ctx context.Context, s Strategy, in Input, spec RegionSpec) (res codes.Result) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("recognition strategy panicked",
				"page", in.Page, "field", spec.Field, "strategy", s.Name(), "panic", p)
			res = codes.Unrecognized("")
		}
	}()
	return s.TryDecode(ctx, in, spec)
}

func wanted(f Field, fields []Field) bool {
	if len(fields) == 0 {
		return true
	}
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}
