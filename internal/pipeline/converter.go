// Package pipeline runs a complete conversion: both documents are walked,
// their records merged by page and the rows written into the template.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/shiplabel/internal/common"
	"github.com/MeKo-Tech/shiplabel/internal/document"
	"github.com/MeKo-Tech/shiplabel/internal/inputs"
	"github.com/MeKo-Tech/shiplabel/internal/recognize"
	"github.com/MeKo-Tech/shiplabel/internal/records"
	"github.com/MeKo-Tech/shiplabel/internal/workbook"
)

// Options controls a conversion run.
type Options struct {
	// Strict turns a page-count mismatch into an error.
	Strict bool
	// OutputDir receives the written workbook.
	OutputDir string
	// ShipmentSeparator splits the boxes file name to derive the shipment id.
	ShipmentSeparator string
	// ShipmentID overrides the derived shipment id.
	ShipmentID string
}

// Result summarizes a conversion run.
type Result struct {
	ShipmentID    string              `json:"shipment_id"`
	Inputs        inputs.Pair         `json:"inputs"`
	OutputPath    string              `json:"output_path,omitempty"`
	Rows          []records.MergedRow `json:"rows"`
	Merge         records.MergeReport `json:"merge"`
	RowsWritten   int                 `json:"rows_written"`
	EmptyBoxIDs   int                 `json:"empty_box_ids"`
	EmptyTracking int                 `json:"empty_tracking"`
	Phases        []common.Lap        `json:"phases,omitempty"`
	Duration      time.Duration       `json:"duration_ns"`
}

// EmptyFields is the number of blank cells written.
func (r *Result) EmptyFields() int { return r.EmptyBoxIDs + r.EmptyTracking }

// Converter ties the walker, merger and template writer together.
type Converter struct {
	Walker   *document.Walker
	Writer   *workbook.Writer
	Options  Options
	Logger   *slog.Logger
	Progress ProgressCallback
}

// Run converts pair and saves the workbook as <shipment id><suffix> in the
// output directory.
func (c *Converter) Run(ctx context.Context, pair inputs.Pair) (*Result, error) {
	res, err := c.Collect(ctx, pair)
	if err != nil {
		return nil, c.fail(err)
	}

	out := filepath.Join(c.Options.OutputDir, c.Writer.Layout.OutputFilename(res.ShipmentID))
	summary, err := c.Writer.Write(res.ShipmentID, res.Rows, out)
	if err != nil {
		return nil, c.fail(err)
	}
	return c.complete(res, summary), nil
}

// RunTo converts pair and streams the workbook to w.
func (c *Converter) RunTo(ctx context.Context, pair inputs.Pair, w io.Writer) (*Result, error) {
	res, err := c.Collect(ctx, pair)
	if err != nil {
		return nil, c.fail(err)
	}

	summary, err := c.Writer.WriteTo(res.ShipmentID, res.Rows, w)
	if err != nil {
		return nil, c.fail(err)
	}
	return c.complete(res, summary), nil
}

// Collect does everything except writing: it validates the inputs and the
// template, walks both documents and merges their records. Any returned
// error means nothing should be written.
func (c *Converter) Collect(ctx context.Context, pair inputs.Pair) (*Result, error) {
	timer := common.NewNamedTimer("convert")
	logger := c.logger()

	if err := pair.Check(); err != nil {
		return nil, err
	}
	if err := c.Writer.CheckTemplate(); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}

	shipmentID := c.Options.ShipmentID
	if shipmentID == "" {
		shipmentID = inputs.ShipmentID(pair.Boxes, c.Options.ShipmentSeparator)
	}
	if shipmentID == "" {
		return nil, fmt.Errorf("cannot derive a shipment id from %s", pair.Boxes)
	}
	logger = logger.With("shipment_id", shipmentID)

	boxes, err := c.walk(ctx, document.RoleBoxes, pair.Boxes, recognize.FieldBoxID)
	if err != nil {
		return nil, err
	}
	timer.Lap(string(document.RoleBoxes))
	tracking, err := c.walk(ctx, document.RoleLabels, pair.Labels, recognize.FieldTracking)
	if err != nil {
		return nil, err
	}
	timer.Lap(string(document.RoleLabels))

	rows, report := records.Merge(boxes, tracking)
	timer.Lap("merge")
	if report.Mismatch() {
		if c.Options.Strict {
			return nil, report.Err()
		}
		logger.Warn("page counts differ, unmatched pages dropped",
			"box_pages", report.BoxPages, "tracking_pages", report.TrackingPages,
			"only_boxes", report.OnlyBoxes, "only_tracking", report.OnlyTracking)
	}

	timer.Stop()
	logger.Debug("documents collected", "timing", timer.String())
	return &Result{
		ShipmentID: shipmentID,
		Inputs:     pair,
		Rows:       rows,
		Merge:      report,
		Phases:     timer.Laps(),
		Duration:   timer.Duration(),
	}, nil
}

// Extract walks a single document and returns its page records with every
// configured field recognized.
func (c *Converter) Extract(ctx context.Context, role document.Role, path string) ([]records.PageRecord, error) {
	return c.walk(ctx, role, path)
}

func (c *Converter) walk(ctx context.Context, role document.Role, path string, fields ...recognize.Field) ([]records.PageRecord, error) {
	progress := c.progress()
	progress.OnStart(role, path)

	// Copy so concurrent runs sharing a walker keep their own observer.
	w := *c.Walker
	if w.Logger == nil {
		w.Logger = c.logger()
	}
	w.Observer = func(role document.Role, rec records.PageRecord) {
		if c.Walker.Observer != nil {
			c.Walker.Observer(role, rec)
		}
		progress.OnPage(role, rec)
	}
	return w.Walk(ctx, role, path, fields...)
}

func (c *Converter) complete(res *Result, s workbook.Summary) *Result {
	res.OutputPath = s.Path
	res.RowsWritten = s.RowsWritten
	res.EmptyBoxIDs = s.EmptyBoxIDs
	res.EmptyTracking = s.EmptyTracking

	c.logger().Info("workbook written",
		"shipment_id", res.ShipmentID, "path", res.OutputPath, "rows", res.RowsWritten,
		"empty_box_ids", res.EmptyBoxIDs, "empty_tracking", res.EmptyTracking)
	c.progress().OnComplete(res)
	return res
}

func (c *Converter) fail(err error) error {
	if !errors.Is(err, context.Canceled) {
		c.progress().OnError(err)
	}
	return err
}

func (c *Converter) progress() ProgressCallback {
	if c.Progress != nil {
		return c.Progress
	}
	return NoOpProgressCallback{}
}

func (c *Converter) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
