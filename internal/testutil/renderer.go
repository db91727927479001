package testutil

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/MeKo-Tech/shiplabel/internal/pdf"
)

// MemoryRenderer serves pre-built page images keyed by file base name.
// Unknown names fail like an unreadable PDF.
type MemoryRenderer struct {
	mu    sync.Mutex
	docs  map[string][]image.Image
	calls map[string]int
}

// NewMemoryRenderer creates an empty renderer.
func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{docs: map[string][]image.Image{}, calls: map[string]int{}}
}

// Add registers the pages for a document base name.
func (m *MemoryRenderer) Add(name string, pages ...image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = pages
}

// Calls returns how many times the named document was rendered.
func (m *MemoryRenderer) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// Render implements pdf.Renderer.
func (m *MemoryRenderer) Render(ctx context.Context, path string, _ int, fn pdf.PageFunc) (int, error) {
	name := filepath.Base(path)

	m.mu.Lock()
	pages, ok := m.docs[name]
	m.calls[name]++
	m.mu.Unlock()

	if !ok {
		return 0, fmt.Errorf("%w: %s", pdf.ErrUnreadable, path)
	}
	if len(pages) == 0 {
		return 0, fmt.Errorf("%w: %s", pdf.ErrNoPages, path)
	}
	for i, img := range pages {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := fn(i+1, img); err != nil {
			return i, err
		}
	}
	return len(pages), nil
}
