package barcode

import (
	"context"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/shiplabel/internal/codes"
)

// Decoder adapts a Backend to the recognition result contract: the payload of
// the first symbol found, or Unrecognized. It never returns an error.
type Decoder struct {
	backend Backend
	opts    Options
	logger  *slog.Logger
}

// NewDecoder wraps backend. A nil backend selects the default one.
func NewDecoder(backend Backend, opts Options) *Decoder {
	if backend == nil {
		backend = NewBackend()
	}
	return &Decoder{backend: backend, opts: opts, logger: slog.Default()}
}

// WithLogger sets the logger used for backend failures.
func (d *Decoder) WithLogger(l *slog.Logger) *Decoder {
	if l != nil {
		d.logger = l
	}
	return d
}

// Decode attempts a barcode decode on img.
func (d *Decoder) Decode(ctx context.Context, img image.Image) codes.Result {
	results, err := d.backend.Decode(ctx, img, d.opts)
	if err != nil {
		d.logger.Debug("barcode decode failed", "error", err)
		return codes.Unrecognized("")
	}
	for _, r := range results {
		if r.Value != "" {
			d.logger.Debug("barcode decoded", "format", r.Type.String(), "value", r.Value)
			return codes.Decoded(r.Value)
		}
	}
	return codes.Unrecognized("")
}
