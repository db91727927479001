package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// TemplateSheet is the sheet name used by CreateTemplate.
const TemplateSheet = "Tracking"

// CreateTemplate writes a minimal upload template with header cells filled
// and returns its path.
func CreateTemplate(t *testing.T, dir string) string {
	t.Helper()

	path, err := WriteTemplate(dir)
	require.NoError(t, err)
	return path
}

// WriteTemplate is CreateTemplate for callers without a *testing.T.
func WriteTemplate(dir string) (string, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", TemplateSheet); err != nil {
		return "", err
	}
	for cell, v := range map[string]string{"A4": "Shipment ID", "A7": "Box ID", "B7": "Tracking ID"} {
		if err := f.SetCellValue(TemplateSheet, cell, v); err != nil {
			return "", err
		}
	}

	path := filepath.Join(dir, "Amazon_Tracking_Uploads_Template.xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", err
	}
	return path, nil
}

// ReadCell returns the value of a cell on the active sheet of the workbook at path.
func ReadCell(t *testing.T, path, cell string) string {
	t.Helper()

	v, err := CellValue(path, cell)
	require.NoError(t, err)
	return v
}

// CellValue is ReadCell for callers without a *testing.T.
func CellValue(path, cell string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	return f.GetCellValue(f.GetSheetName(f.GetActiveSheetIndex()), cell)
}
