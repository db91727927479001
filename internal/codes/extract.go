package codes

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Family names a code shape searched for in OCR text.
type Family struct {
	Name    string
	Pattern string
}

// Default pattern families.
var (
	BoxIDFamily    = Family{Name: "box_id", Pattern: `FBA[0-9A-Z]+`}
	TrackingFamily = Family{Name: "tracking", Pattern: `1Z[0-9A-Z]{8,}`}
)

// Extractor finds the first substring of a family's shape in raw text.
// Matching is exact; there is no fuzzy or approximate fallback.
type Extractor struct {
	family Family
	re     *regexp.Regexp
}

// NewExtractor compiles the family pattern.
func NewExtractor(f Family) (*Extractor, error) {
	if strings.TrimSpace(f.Pattern) == "" {
		return nil, fmt.Errorf("pattern family %q: empty pattern", f.Name)
	}
	re, err := regexp.Compile(f.Pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern family %q: %w", f.Name, err)
	}
	return &Extractor{family: f, re: re}, nil
}

// MustExtractor is like NewExtractor but panics on an invalid pattern.
func MustExtractor(f Family) *Extractor {
	e, err := NewExtractor(f)
	if err != nil {
		panic(err)
	}
	return e
}

// Family returns the family this extractor searches for.
func (e *Extractor) Family() Family { return e.family }

// Extract upper-cases the text and returns the first match verbatim.
// Text without a match yields Unrecognized carrying the folded text as trace.
func (e *Extractor) Extract(text string) Result {
	folded := Fold(text)
	if m := e.re.FindString(folded); m != "" {
		return Decoded(m)
	}
	return Unrecognized(strings.TrimSpace(folded))
}

// Matches reports whether value, with spaces removed, contains the family shape.
func (e *Extractor) Matches(value string) bool {
	return e.re.MatchString(Fold(StripSpaces(value)))
}

// Fold applies NFKC compatibility normalization and upper-cases the result,
// so full-width and ligature forms produced by OCR compare as plain ASCII.
func Fold(text string) string {
	return cases.Upper(language.Und).String(norm.NFKC.String(text))
}
