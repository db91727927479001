// Package workbook fills the tracking upload spreadsheet template.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/MeKo-Tech/shiplabel/internal/codes"
	"github.com/MeKo-Tech/shiplabel/internal/records"
)

// ErrMissingTemplate reports that the template workbook could not be opened.
var ErrMissingTemplate = errors.New("missing output template")

// Layout fixes where values land on the active sheet. Rows and columns are 1-based.
type Layout struct {
	ShipmentRow    int    `mapstructure:"shipment_row" yaml:"shipment_row" json:"shipment_row"`
	ShipmentColumn int    `mapstructure:"shipment_column" yaml:"shipment_column" json:"shipment_column"`
	StartRow       int    `mapstructure:"start_row" yaml:"start_row" json:"start_row"`
	BoxColumn      int    `mapstructure:"box_column" yaml:"box_column" json:"box_column"`
	TrackingColumn int    `mapstructure:"tracking_column" yaml:"tracking_column" json:"tracking_column"`
	OutputSuffix   string `mapstructure:"output_suffix" yaml:"output_suffix" json:"output_suffix"`
}

// DefaultLayout matches the carrier tracking upload template.
func DefaultLayout() Layout {
	return Layout{
		ShipmentRow:    4,
		ShipmentColumn: 2,
		StartRow:       8,
		BoxColumn:      1,
		TrackingColumn: 2,
		OutputSuffix:   "_tracking_upload.xlsx",
	}
}

// Validate checks that all positions are usable.
func (l Layout) Validate() error {
	for name, v := range map[string]int{
		"shipment_row":    l.ShipmentRow,
		"shipment_column": l.ShipmentColumn,
		"start_row":       l.StartRow,
		"box_column":      l.BoxColumn,
		"tracking_column": l.TrackingColumn,
	} {
		if v < 1 {
			return fmt.Errorf("template layout %s must be >= 1, got %d", name, v)
		}
	}
	if l.BoxColumn == l.TrackingColumn {
		return errors.New("template layout box_column and tracking_column must differ")
	}
	if l.StartRow <= l.ShipmentRow {
		return errors.New("template layout start_row must be below the shipment cell")
	}
	if l.OutputSuffix == "" {
		return errors.New("template layout output_suffix must not be empty")
	}
	return nil
}

// OutputFilename returns the file name for a shipment's filled workbook.
func (l Layout) OutputFilename(shipmentID string) string {
	return shipmentID + l.OutputSuffix
}

// Summary describes a written workbook.
type Summary struct {
	Path          string `json:"path"`
	ShipmentID    string `json:"shipment_id"`
	RowsWritten   int    `json:"rows_written"`
	EmptyBoxIDs   int    `json:"empty_box_ids"`
	EmptyTracking int    `json:"empty_tracking"`
}

// EmptyFields is the total number of blank cells written.
func (s Summary) EmptyFields() int { return s.EmptyBoxIDs + s.EmptyTracking }

// Writer fills a template workbook.
type Writer struct {
	Template string
	Layout   Layout
}

// CheckTemplate verifies the template exists and opens as a workbook.
func (w *Writer) CheckTemplate() error {
	f, err := w.open()
	if err != nil {
		return err
	}
	return f.Close()
}

func (w *Writer) open() (*excelize.File, error) {
	if w.Template == "" {
		return nil, fmt.Errorf("%w: no template configured", ErrMissingTemplate)
	}
	if _, err := os.Stat(w.Template); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMissingTemplate, w.Template, err)
	}
	f, err := excelize.OpenFile(w.Template)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMissingTemplate, w.Template, err)
	}
	return f, nil
}

// Write fills the active sheet and saves it to outPath. Values are written
// with their grouping spaces removed.
func (w *Writer) Write(shipmentID string, rows []records.MergedRow, outPath string) (Summary, error) {
	f, err := w.open()
	if err != nil {
		return Summary{}, err
	}
	defer func() { _ = f.Close() }()

	if err := w.fill(f, shipmentID, rows); err != nil {
		return Summary{}, err
	}

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return Summary{}, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := f.SaveAs(outPath); err != nil {
		return Summary{}, fmt.Errorf("failed to save workbook %s: %w", outPath, err)
	}

	s := summarize(shipmentID, rows)
	s.Path = outPath
	return s, nil
}

// WriteTo fills the template and streams the workbook to out.
func (w *Writer) WriteTo(shipmentID string, rows []records.MergedRow, out io.Writer) (Summary, error) {
	f, err := w.open()
	if err != nil {
		return Summary{}, err
	}
	defer func() { _ = f.Close() }()

	if err := w.fill(f, shipmentID, rows); err != nil {
		return Summary{}, err
	}
	if _, err := f.WriteTo(out); err != nil {
		return Summary{}, fmt.Errorf("failed to write workbook: %w", err)
	}
	return summarize(shipmentID, rows), nil
}

func (w *Writer) fill(f *excelize.File, shipmentID string, rows []records.MergedRow) error {
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		return fmt.Errorf("%w: %s has no active sheet", ErrMissingTemplate, w.Template)
	}

	if err := setCell(f, sheet, w.Layout.ShipmentColumn, w.Layout.ShipmentRow, shipmentID); err != nil {
		return err
	}
	for i, row := range rows {
		r := w.Layout.StartRow + i
		if err := setCell(f, sheet, w.Layout.BoxColumn, r, codes.StripSpaces(row.BoxID)); err != nil {
			return err
		}
		if err := setCell(f, sheet, w.Layout.TrackingColumn, r, codes.StripSpaces(row.Tracking)); err != nil {
			return err
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("invalid cell (%d,%d): %w", row, col, err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func summarize(shipmentID string, rows []records.MergedRow) Summary {
	boxes, tracking := records.EmptyCounts(rows)
	return Summary{
		ShipmentID:    shipmentID,
		RowsWritten:   len(rows),
		EmptyBoxIDs:   boxes,
		EmptyTracking: tracking,
	}
}
