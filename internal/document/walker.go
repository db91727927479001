// Package document drives page recognition over every page of one PDF.
package document

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/shiplabel/internal/pdf"
	"github.com/MeKo-Tech/shiplabel/internal/recognize"
	"github.com/MeKo-Tech/shiplabel/internal/records"
)

// Role names which input a document plays in a run.
type Role string

const (
	RoleBoxes  Role = "boxes"
	RoleLabels Role = "labels"
)

// Error is a document-level failure: the document could not be rendered at
// all. Per-page recognition misses are never reported as errors.
type Error struct {
	Role Role
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s document %s: %v", e.Role, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// PageObserver is notified after each page is recognized.
type PageObserver func(role Role, rec records.PageRecord)

// Walker renders a document and recognizes each page in order.
type Walker struct {
	Renderer   pdf.Renderer
	Recognizer *recognize.Recognizer
	DPI        int

	// TextLayer enables reading vector text alongside the raster.
	TextLayer bool
	// DumpDir, when set, receives a PNG of every rendered page.
	DumpDir string

	Logger   *slog.Logger
	Observer PageObserver
}

// Walk returns one record per page, numbered from 1 in document order.
// Only the listed fields are recognized.
func (w *Walker) Walk(ctx context.Context, role Role, path string, fields ...recognize.Field) ([]records.PageRecord, error) {
	logger := w.logger().With("role", role, "path", path)

	var layer pdf.TextLayer
	if w.TextLayer {
		l, err := pdf.ExtractTextLayer(path)
		if err != nil {
			logger.Debug("no usable text layer", "error", err)
		}
		layer = l
	}

	var recs []records.PageRecord
	n, err := w.Renderer.Render(ctx, path, w.DPI, func(page int, img image.Image) error {
		if page != len(recs)+1 {
			return fmt.Errorf("renderer produced page %d after %d pages", page, len(recs))
		}
		if w.DumpDir != "" {
			w.dump(logger, role, page, img)
		}

		rec := w.Recognizer.RecognizePage(ctx, recognize.Page{Number: page, Image: img, Text: layer[page]}, fields...)
		recs = append(recs, rec)
		logger.Debug("page recognized", "page", page, "box_id", rec.BoxID, "tracking", rec.Tracking)
		if w.Observer != nil {
			w.Observer(role, rec)
		}
		return ctx.Err()
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &Error{Role: role, Path: path, Err: err}
	}
	if n == 0 || len(recs) == 0 {
		return nil, &Error{Role: role, Path: path, Err: pdf.ErrNoPages}
	}

	logger.Info("document processed", "pages", len(recs))
	return recs, nil
}

func (w *Walker) dump(logger *slog.Logger, role Role, page int, img image.Image) {
	if img == nil {
		return
	}
	if err := os.MkdirAll(w.DumpDir, 0o750); err != nil {
		logger.Warn("failed to create dump directory", "dir", w.DumpDir, "error", err)
		return
	}
	path := filepath.Join(w.DumpDir, fmt.Sprintf("%s_page_%d.png", role, page))
	if err := imaging.Save(img, path); err != nil {
		logger.Warn("failed to dump page", "path", path, "error", err)
	}
}

func (w *Walker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
