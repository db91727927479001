package codes

import "strings"

// GroupSize is the chunk width used for display grouping.
const GroupSize = 4

// Normalize removes every character outside [0-9A-Za-z] and regroups the rest
// into chunks of GroupSize joined by single spaces. The final chunk may be shorter.
func Normalize(raw string) string {
	var clean strings.Builder
	clean.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if isAlnum(raw[i]) {
			clean.WriteByte(raw[i])
		}
	}

	s := clean.String()
	if len(s) <= GroupSize {
		return s
	}

	var out strings.Builder
	out.Grow(len(s) + len(s)/GroupSize)
	for i := 0; i < len(s); i += GroupSize {
		if i > 0 {
			out.WriteByte(' ')
		}
		end := min(i+GroupSize, len(s))
		out.WriteString(s[i:end])
	}
	return out.String()
}

// StripSpaces recovers the unspaced form of a normalized value.
func StripSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

func isAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
