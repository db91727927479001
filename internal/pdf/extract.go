package pdf

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ExtractRenderer uses the scanned image embedded in each page instead of
// rasterizing. It suits scanner output, where every page is one image, and
// needs no external tools. The DPI argument is ignored; images keep their
// native resolution. Pages without an embedded image are reported with a nil image.
type ExtractRenderer struct {
	Password string
}

// Render implements Renderer.
func (r *ExtractRenderer) Render(ctx context.Context, path string, _ int, fn PageFunc) (int, error) {
	pages, err := PageCount(path, r.Password)
	if err != nil {
		return 0, err
	}

	src, cleanup, err := Decrypt(path, r.Password)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	images, err := largestImagePerPage(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: failed to extract images: %w", ErrUnreadable, path, err)
	}

	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return page - 1, err
		}
		if err := fn(page, images[page]); err != nil {
			return page - 1, err
		}
	}
	return pages, nil
}

// largestImagePerPage decodes the embedded images of every page and keeps
// the biggest one, which for scans is the page itself. Pages are taken from
// the image metadata, so the document's file name plays no part.
func largestImagePerPage(path string) (map[int]image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // G304: caller-supplied input document
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	result := make(map[int]image.Image)
	keep := func(img image.Image, page int) {
		if cur, ok := result[page]; !ok || area(img) > area(cur) {
			result[page] = img
		}
	}

	err = api.ExtractImages(f, nil, func(mi model.Image, _ bool, _ int) error {
		return collectImage(mi, keep)
	}, nil)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// collectImage decodes one extracted image. Thumbnails and formats without a
// registered decoder are skipped.
func collectImage(mi model.Image, keep func(image.Image, int)) error {
	if mi.Reader == nil || mi.Thumb || mi.PageNr < 1 {
		return nil
	}
	img, _, err := image.Decode(mi.Reader)
	if err != nil || img == nil {
		return nil
	}
	keep(img, mi.PageNr)
	return nil
}

func area(img image.Image) int {
	b := img.Bounds()
	return b.Dx() * b.Dy()
}
