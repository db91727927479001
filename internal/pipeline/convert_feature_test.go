package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/shiplabel/internal/barcode"
	"github.com/MeKo-Tech/shiplabel/internal/document"
	"github.com/MeKo-Tech/shiplabel/internal/inputs"
	"github.com/MeKo-Tech/shiplabel/internal/pdf"
	"github.com/MeKo-Tech/shiplabel/internal/recognize"
	"github.com/MeKo-Tech/shiplabel/internal/records"
	"github.com/MeKo-Tech/shiplabel/internal/testutil"
	"github.com/MeKo-Tech/shiplabel/internal/workbook"
)

// convertFeature holds the state of one scenario.
type convertFeature struct {
	dir      string
	template string
	renderer *testutil.MemoryRenderer
	ocr      *fakeOCR
	strict   bool
	pair     inputs.Pair

	result *Result
	err    error
}

func (f *convertFeature) reset(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
	dir, err := os.MkdirTemp("", "shiplabel-feature-")
	if err != nil {
		return ctx, err
	}
	*f = convertFeature{dir: dir, renderer: testutil.NewMemoryRenderer(), ocr: &fakeOCR{}}
	return ctx, nil
}

func (f *convertFeature) cleanup(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
	return ctx, os.RemoveAll(f.dir)
}

func (f *convertFeature) anUploadTemplate() error {
	path, err := testutil.WriteTemplate(f.dir)
	f.template = path
	return err
}

func (f *convertFeature) theUploadTemplateIsRemoved() error {
	return os.Remove(f.template)
}

func (f *convertFeature) theOCREngineReads(text string) error {
	f.ocr.text = text
	return nil
}

func (f *convertFeature) strictPageMatching() error {
	f.strict = true
	return nil
}

func (f *convertFeature) touch(name string) (string, error) {
	path := filepath.Join(f.dir, name)
	return path, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o600)
}

func (f *convertFeature) document(name string, tbl *godog.Table, label func(string) testutil.Label) (string, error) {
	path, err := f.touch(name)
	if err != nil {
		return "", err
	}
	var pages []image.Image
	for _, row := range tbl.Rows[1:] {
		page, err := testutil.RenderLabel(label(strings.TrimSpace(row.Cells[0].Value)))
		if err != nil {
			return "", err
		}
		pages = append(pages, page)
	}
	f.renderer.Add(name, pages...)
	return path, nil
}

func (f *convertFeature) aBoxesDocumentWithBarcodes(name string, tbl *godog.Table) error {
	path, err := f.document(name, tbl, func(v string) testutil.Label { return testutil.Label{BoxBarcode: v} })
	f.pair.Boxes = path
	return err
}

func (f *convertFeature) aLabelsDocumentWithBarcodes(name string, tbl *godog.Table) error {
	path, err := f.document(name, tbl, func(v string) testutil.Label { return testutil.Label{TrackingBarcode: v} })
	f.pair.Labels = path
	return err
}

func (f *convertFeature) anUnreadableLabelsDocument(name string) error {
	path, err := f.touch(name)
	f.pair.Labels = path
	return err
}

func (f *convertFeature) theDocumentsAreConverted() error {
	rec, err := recognize.New(recognize.DefaultConfig(),
		&recognize.BarcodeStrategy{Decoder: barcode.NewDecoder(nil, barcode.Options{})},
		&recognize.OCRStrategy{Reader: f.ocr},
	)
	if err != nil {
		return err
	}

	conv := &Converter{
		Walker:  &document.Walker{Renderer: f.renderer, Recognizer: rec, DPI: pdf.DefaultDPI},
		Writer:  &workbook.Writer{Template: f.template, Layout: workbook.DefaultLayout()},
		Options: Options{Strict: f.strict, OutputDir: f.outDir(), ShipmentSeparator: "-"},
	}
	f.result, f.err = conv.Run(context.Background(), f.pair)
	return nil
}

func (f *convertFeature) outDir() string { return filepath.Join(f.dir, "out") }

func (f *convertFeature) theConversionSucceedsWithRows(n int) error {
	if f.err != nil {
		return fmt.Errorf("conversion failed: %w", f.err)
	}
	if len(f.result.Rows) != n || f.result.RowsWritten != n {
		return fmt.Errorf("expected %d rows, got %d (%d written)", n, len(f.result.Rows), f.result.RowsWritten)
	}
	return nil
}

func (f *convertFeature) rowHasBoxIDAndTracking(n int, box, tracking string) error {
	if n < 1 || n > len(f.result.Rows) {
		return fmt.Errorf("no row %d in %d rows", n, len(f.result.Rows))
	}
	row := f.result.Rows[n-1]
	if row.BoxID != box || row.Tracking != tracking {
		return fmt.Errorf("row %d is {%q, %q}, want {%q, %q}", n, row.BoxID, row.Tracking, box, tracking)
	}
	return nil
}

func (f *convertFeature) cellOfTheWorkbookIs(cell, want string) error {
	got, err := testutil.CellValue(f.result.OutputPath, cell)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("cell %s is %q, want %q", cell, got, want)
	}
	return nil
}

func (f *convertFeature) fieldsAreReportedEmpty(n int) error {
	if got := f.result.EmptyFields(); got != n {
		return fmt.Errorf("expected %d empty fields, got %d", n, got)
	}
	return nil
}

func (f *convertFeature) pageIsReportedOnlyInTheBoxesDocument(page int) error {
	only := f.result.Merge.OnlyBoxes
	if len(only) != 1 || only[0] != page {
		return fmt.Errorf("pages only in boxes document: %v", only)
	}
	return nil
}

func (f *convertFeature) theConversionFailsWithAPageMismatch() error {
	if !errors.Is(f.err, records.ErrPageMismatch) {
		return fmt.Errorf("expected page mismatch, got %v", f.err)
	}
	return nil
}

func (f *convertFeature) theConversionFailsNamingTheDocument(role string) error {
	if f.err == nil {
		return errors.New("conversion unexpectedly succeeded")
	}
	if !strings.Contains(f.err.Error(), role) {
		return fmt.Errorf("error %q does not name %q", f.err, role)
	}
	return nil
}

func (f *convertFeature) noWorkbookIsWritten() error {
	if _, err := os.Stat(f.outDir()); !os.IsNotExist(err) {
		return fmt.Errorf("output directory %s exists", f.outDir())
	}
	return nil
}

func initializeConvertScenario(sc *godog.ScenarioContext) {
	f := &convertFeature{}
	sc.Before(f.reset)
	sc.After(f.cleanup)

	sc.Step(`^an upload template$`, f.anUploadTemplate)
	sc.Step(`^the upload template is removed$`, f.theUploadTemplateIsRemoved)
	sc.Step(`^the OCR engine reads "([^"]*)"$`, f.theOCREngineReads)
	sc.Step(`^strict page matching$`, f.strictPageMatching)
	sc.Step(`^a boxes document "([^"]*)" with barcodes:$`, f.aBoxesDocumentWithBarcodes)
	sc.Step(`^a labels document "([^"]*)" with barcodes:$`, f.aLabelsDocumentWithBarcodes)
	sc.Step(`^an unreadable labels document "([^"]*)"$`, f.anUnreadableLabelsDocument)
	sc.Step(`^the documents are converted$`, f.theDocumentsAreConverted)
	sc.Step(`^the conversion succeeds with (\d+) rows?$`, f.theConversionSucceedsWithRows)
	sc.Step(`^row (\d+) has box id "([^"]*)" and tracking "([^"]*)"$`, f.rowHasBoxIDAndTracking)
	sc.Step(`^cell "([^"]*)" of the workbook is "([^"]*)"$`, f.cellOfTheWorkbookIs)
	sc.Step(`^(\d+) fields are reported empty$`, f.fieldsAreReportedEmpty)
	sc.Step(`^page (\d+) is reported only in the boxes document$`, f.pageIsReportedOnlyInTheBoxesDocument)
	sc.Step(`^the conversion fails with a page mismatch$`, f.theConversionFailsWithAPageMismatch)
	sc.Step(`^the conversion fails naming the "([^"]*)" document$`, f.theConversionFailsNamingTheDocument)
	sc.Step(`^no workbook is written$`, f.noWorkbookIsWritten)
}

// TestConvertFeatures runs the conversion feature files.
func TestConvertFeatures(t *testing.T) {
	format := os.Getenv("GODOG_FORMAT")
	if format == "" {
		format = "pretty"
	}

	suite := godog.TestSuite{
		Name:                "convert",
		ScenarioInitializer: initializeConvertScenario,
		Options: &godog.Options{
			Format:   format,
			Paths:    []string{"features"},
			Tags:     os.Getenv("GODOG_TAGS"),
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
