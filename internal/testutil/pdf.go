package testutil

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/require"
)

// ScannedPDF writes a PDF at dir/name with one embedded image per page, the
// way a scanner produces documents, and returns its path.
func ScannedPDF(t *testing.T, dir, name string, pages ...image.Image) string {
	t.Helper()

	imgDir := t.TempDir()
	files := make([]string, len(pages))
	for i, page := range pages {
		files[i] = filepath.Join(imgDir, fmt.Sprintf("scan-%d.png", i+1))
		require.NoError(t, imaging.Save(page, files[i]))
	}

	path := filepath.Join(dir, name)
	require.NoError(t, api.ImportImagesFile(files, path, nil, nil))
	return path
}

// TextRun is a piece of vector text placed at X/Y points from the bottom-left
// corner of a US Letter page.
type TextRun struct {
	Text string
	X, Y float64
}

// TextPDF writes a digitally generated PDF whose pages carry the given text
// runs in Helvetica and returns its path.
func TextPDF(t *testing.T, dir, name string, pages ...[]TextRun) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buildTextPDF(pages), 0o600))
	return path
}

// buildTextPDF lays out catalog (1), page tree (2), font (3) and then a page
// object and its content stream for every page.
func buildTextPDF(pages [][]TextRun) []byte {
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, runs := range pages {
		var content strings.Builder
		for _, r := range runs {
			fmt.Fprintf(&content, "BT /F1 18 Tf 1 0 0 1 %.2f %.2f Tm (%s) Tj ET\n", r.X, r.Y, r.Text)
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
