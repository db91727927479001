package server

import (
	"bytes"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/shiplabel/internal/barcode"
	"github.com/MeKo-Tech/shiplabel/internal/document"
	"github.com/MeKo-Tech/shiplabel/internal/pdf"
	"github.com/MeKo-Tech/shiplabel/internal/pipeline"
	"github.com/MeKo-Tech/shiplabel/internal/recognize"
	"github.com/MeKo-Tech/shiplabel/internal/testutil"
	"github.com/MeKo-Tech/shiplabel/internal/workbook"
)

const (
	boxesFile  = "FBA15XYZ-boxes.pdf"
	labelsFile = "Labels-ups.pdf"
)

// testServer bundles a server with the in-memory renderer feeding it.
type testServer struct {
	*Server
	renderer *testutil.MemoryRenderer
	conv     *pipeline.Converter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	rec, err := recognize.New(recognize.DefaultConfig(),
		&recognize.BarcodeStrategy{Decoder: barcode.NewDecoder(nil, barcode.Options{})},
	)
	require.NoError(t, err)

	renderer := testutil.NewMemoryRenderer()
	conv := &pipeline.Converter{
		Walker: &document.Walker{Renderer: renderer, Recognizer: rec, DPI: pdf.DefaultDPI},
		Writer: &workbook.Writer{
			Template: testutil.CreateTemplate(t, t.TempDir()),
			Layout:   workbook.DefaultLayout(),
		},
		Options: pipeline.Options{ShipmentSeparator: "-"},
	}

	srv, err := NewServer(Config{CORSOrigin: "*", MaxUploadMB: 5, Converter: conv})
	require.NoError(t, err)
	return &testServer{Server: srv, renderer: renderer, conv: conv}
}

// addBoxes registers box label pages with the given barcode payloads.
func (ts *testServer) addBoxes(t *testing.T, values ...string) {
	t.Helper()
	pages := make([]image.Image, len(values))
	for i, v := range values {
		pages[i] = testutil.LabelPage(t, testutil.Label{BoxBarcode: v})
	}
	ts.renderer.Add(boxesFile, pages...)
}

// addLabels registers shipping label pages with the given barcode payloads.
func (ts *testServer) addLabels(t *testing.T, values ...string) {
	t.Helper()
	pages := make([]image.Image, len(values))
	for i, v := range values {
		pages[i] = testutil.LabelPage(t, testutil.Label{TrackingBarcode: v})
	}
	ts.renderer.Add(labelsFile, pages...)
}

// upload is one multipart file part.
type upload struct {
	field    string
	filename string
	data     []byte
}

// newConvertRequest builds a POST /convert multipart request.
func newConvertRequest(t *testing.T, files []upload, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/convert", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// bothDocuments returns uploads for the two standard file names.
func bothDocuments() []upload {
	return []upload{
		{field: "boxes", filename: boxesFile, data: []byte("%PDF-1.4\n")},
		{field: "labels", filename: labelsFile, data: []byte("%PDF-1.4\n")},
	}
}
