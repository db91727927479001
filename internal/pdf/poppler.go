package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PopplerRenderer rasterizes pages with poppler's pdftoppm at the requested DPI.
type PopplerRenderer struct {
	// Binary is the pdftoppm executable; empty means "pdftoppm" on PATH.
	Binary string
	// Password unlocks encrypted documents.
	Password string
}

// Render implements Renderer. All pages are rasterized into a temporary
// directory which is removed before Render returns.
func (r *PopplerRenderer) Render(ctx context.Context, path string, dpi int, fn PageFunc) (int, error) {
	expected, err := PageCount(path, r.Password)
	if err != nil {
		return 0, err
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	tempDir, err := os.MkdirTemp("", "shiplabel-render-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	binary := r.Binary
	if binary == "" {
		binary = "pdftoppm"
	}
	prefix := filepath.Join(tempDir, "page")
	args := []string{"-r", strconv.Itoa(dpi), "-png"}
	if r.Password != "" {
		args = append(args, "-upw", r.Password)
	}
	args = append(args, path, prefix)

	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec // G204: binary comes from operator config
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return 0, fmt.Errorf("pdftoppm not available (%s): %w", binary, err)
		}
		return 0, fmt.Errorf("%w: %s: pdftoppm: %s", ErrUnreadable, path, strings.TrimSpace(string(out)))
	}

	files, err := renderedPages(tempDir)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoPages, path)
	}
	if len(files) != expected {
		return 0, fmt.Errorf("%w: %s: rendered %d of %d pages", ErrUnreadable, path, len(files), expected)
	}

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		img, err := loadImageFile(f.path)
		if err != nil {
			return i, fmt.Errorf("%w: %s: page %d: %w", ErrUnreadable, path, f.page, err)
		}
		if err := fn(f.page, img); err != nil {
			return i, err
		}
	}
	return len(files), nil
}

type pageFile struct {
	page int
	path string
}

// renderedPages lists pdftoppm output sorted by page number.
func renderedPages(dir string) ([]pageFile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	files := make([]pageFile, 0, len(matches))
	for _, m := range matches {
		n, err := parsePopplerPage(filepath.Base(m))
		if err != nil {
			continue
		}
		files = append(files, pageFile{page: n, path: m})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].page < files[j].page })
	return files, nil
}

// parsePopplerPage extracts the page number from names like page-7.png or page-007.png.
func parsePopplerPage(name string) (int, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	idx := strings.LastIndex(base, "-")
	if idx < 0 || idx == len(base)-1 {
		return 0, fmt.Errorf("not a rendered page: %s", name)
	}
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page number in %s", name)
	}
	return n, nil
}

func loadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: reading our own rendered page
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	return img, err
}
