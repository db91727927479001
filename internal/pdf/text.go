package pdf

import (
	"fmt"
	"strings"

	dpdf "github.com/dslipak/pdf"
)

// TextRun is one positioned piece of vector text. X and Y are fractions of
// the page width and height measured from the top-left corner, matching
// image coordinates.
type TextRun struct {
	Text string
	X    float64
	Y    float64
}

// TextLayer maps page numbers to their positioned text runs.
type TextLayer map[int][]TextRun

// Within returns the runs whose origin lies inside the fractional rectangle,
// joined in reading order.
func (l TextLayer) Within(page int, top, bottom, left, right float64) string {
	var parts []string
	for _, r := range l[page] {
		if r.Y >= top && r.Y <= bottom && r.X >= left && r.X <= right {
			parts = append(parts, r.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Letter size in points, used when a page has no readable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// ExtractTextLayer reads the vector text of every page. Scanned documents
// yield an empty layer. Errors from the text parser are returned, but callers
// treat the layer as optional.
func ExtractTextLayer(path string) (layer TextLayer, err error) {
	defer func() {
		if r := recover(); r != nil {
			layer, err = nil, fmt.Errorf("text layer %s: %v", path, r)
		}
	}()

	reader, err := dpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %q: %w", path, err)
	}

	layer = make(TextLayer)
	for n := 1; n <= reader.NumPage(); n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		if runs := pageRuns(page); len(runs) > 0 {
			layer[n] = runs
		}
	}
	return layer, nil
}

func pageRuns(page dpdf.Page) []TextRun {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil
	}
	width, height := pageSize(page)

	var runs []TextRun
	for _, row := range rows {
		var line strings.Builder
		x, y := -1.0, 0.0
		for _, t := range row.Content {
			if x < 0 {
				x, y = t.X, t.Y
			}
			line.WriteString(t.S)
		}
		text := strings.TrimSpace(line.String())
		if text == "" {
			continue
		}
		runs = append(runs, TextRun{
			Text: text,
			X:    clamp01(x / width),
			Y:    clamp01(1 - y/height),
		})
	}
	return runs
}

func pageSize(page dpdf.Page) (float64, float64) {
	box := page.V.Key("MediaBox")
	if box.IsNull() {
		box = page.V.Key("Parent").Key("MediaBox")
	}
	if box.Len() == 4 {
		w := box.Index(2).Float64() - box.Index(0).Float64()
		h := box.Index(3).Float64() - box.Index(1).Float64()
		if w > 0 && h > 0 {
			return w, h
		}
	}
	return defaultPageWidth, defaultPageHeight
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
