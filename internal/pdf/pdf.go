// Package pdf turns label PDFs into page images and, where the document
// carries one, a positioned vector text layer.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Document-level failures. Callers match them with errors.Is.
var (
	ErrUnreadable = errors.New("unreadable PDF")
	ErrNoPages    = errors.New("PDF has no pages")
	ErrEncrypted  = errors.New("PDF is password protected")
)

// DefaultDPI is the resolution pages are rasterized at.
const DefaultDPI = 300

// PageFunc receives each rendered page in document order, 1-indexed.
// A nil image means the page produced no raster. Returning an error stops rendering.
type PageFunc func(page int, img image.Image) error

// Renderer rasterizes every page of a PDF and returns the number of pages rendered.
type Renderer interface {
	Render(ctx context.Context, path string, dpi int, fn PageFunc) (int, error)
}

// PageCount validates the document and returns its page count.
// A password is only needed for encrypted documents.
func PageCount(path, password string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: %s is a directory", ErrUnreadable, path)
	}

	n, err := pageCount(path, password)
	if err != nil {
		if IsPasswordError(err) {
			return 0, fmt.Errorf("%w: %s", ErrEncrypted, path)
		}
		return 0, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoPages, path)
	}
	return n, nil
}

func pageCount(path, password string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("pdfcpu: %v", r)
		}
	}()
	if password == "" {
		return api.PageCountFile(path)
	}
	f, err := os.Open(path) //nolint:gosec // G304: reading an operator-supplied PDF is expected
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	return api.PageCount(f, passwordConfig(password))
}

func passwordConfig(password string) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	return conf
}

// IsPasswordError checks if an error is related to password/encryption issues.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEncrypted) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt"} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}
