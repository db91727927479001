// Package codes holds the recognition result type together with the pattern
// extraction and normalization rules shared by both decode paths.
package codes

import "fmt"

// Result is the outcome of one recognition attempt on a region.
// It is either Decoded with a non-empty value or Unrecognized with an
// optional raw-text trace kept for debugging.
type Result struct {
	value   string
	trace   string
	decoded bool
}

// Decoded returns a successful result. An empty value is never a valid
// decode, so Decoded("") yields Unrecognized.
func Decoded(value string) Result {
	if value == "" {
		return Unrecognized("")
	}
	return Result{value: value, decoded: true}
}

// Unrecognized returns a miss carrying the raw text seen, if any.
func Unrecognized(trace string) Result {
	return Result{trace: trace}
}

// Value returns the decoded value and whether the result is Decoded.
func (r Result) Value() (string, bool) {
	return r.value, r.decoded
}

// OK reports whether the result is Decoded.
func (r Result) OK() bool { return r.decoded }

// Trace returns the raw text attached to an Unrecognized result.
func (r Result) Trace() string { return r.trace }

// Map applies fn to a decoded value. Unrecognized results pass through.
func (r Result) Map(fn func(string) string) Result {
	if !r.decoded {
		return r
	}
	return Decoded(fn(r.value))
}

func (r Result) String() string {
	if r.decoded {
		return fmt.Sprintf("Decoded(%q)", r.value)
	}
	if r.trace != "" {
		return fmt.Sprintf("Unrecognized(trace=%q)", r.trace)
	}
	return "Unrecognized"
}
