// Package inputs locates the two label PDFs of a run and derives the shipment id.
package inputs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MeKo-Tech/shiplabel/internal/document"
)

// ErrMissingInput reports that a required input document was not found.
var ErrMissingInput = errors.New("missing input document")

// Prefixes are the case-insensitive filename prefixes used for discovery.
type Prefixes struct {
	Boxes  string
	Labels string
}

// DefaultPrefixes matches FBA*.pdf box label exports and Labels*.pdf carrier labels.
var DefaultPrefixes = Prefixes{Boxes: "FBA", Labels: "LABELS"}

// Pair holds the resolved paths of the two documents.
type Pair struct {
	Boxes  string `json:"boxes"`
	Labels string `json:"labels"`
}

// MissingError names the input that could not be found.
type MissingError struct {
	Role document.Role
	Path string
	Hint string
}

func (e *MissingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s document %s: %v", e.Role, e.Path, ErrMissingInput)
	}
	return fmt.Sprintf("%s document: %v (%s)", e.Role, ErrMissingInput, e.Hint)
}

func (e *MissingError) Unwrap() error { return ErrMissingInput }

// Discover finds the first PDF in dir for each prefix, in name order.
func Discover(dir string, p Prefixes) (Pair, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Pair{}, fmt.Errorf("cannot access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Pair{}, fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Pair{}, fmt.Errorf("cannot read %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var pair Pair
	for _, name := range names {
		upper := strings.ToUpper(name)
		if pair.Boxes == "" && hasPrefix(upper, p.Boxes) {
			pair.Boxes = filepath.Join(dir, name)
			continue
		}
		if pair.Labels == "" && hasPrefix(upper, p.Labels) {
			pair.Labels = filepath.Join(dir, name)
		}
	}

	if pair.Boxes == "" {
		return pair, &MissingError{Role: document.RoleBoxes, Hint: fmt.Sprintf("need a '%s*.pdf' in %s", p.Boxes, dir)}
	}
	if pair.Labels == "" {
		return pair, &MissingError{Role: document.RoleLabels, Hint: fmt.Sprintf("need a '%s*.pdf' in %s", p.Labels, dir)}
	}
	return pair, nil
}

// Check verifies both documents exist and are regular files.
func (p Pair) Check() error {
	for _, in := range []struct {
		role document.Role
		path string
	}{{document.RoleBoxes, p.Boxes}, {document.RoleLabels, p.Labels}} {
		if in.path == "" {
			return &MissingError{Role: in.role, Hint: "no path given"}
		}
		info, err := os.Stat(in.path)
		if err != nil || info.IsDir() {
			return &MissingError{Role: in.role, Path: in.path}
		}
	}
	return nil
}

// ShipmentID derives the shipment identifier from a document's base name:
// the extension is dropped and the part before the first separator kept.
func ShipmentID(path, separator string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if separator == "" {
		return base
	}
	id, _, _ := strings.Cut(base, separator)
	return id
}

func hasPrefix(upperName, prefix string) bool {
	return prefix != "" && strings.HasPrefix(upperName, strings.ToUpper(prefix))
}
