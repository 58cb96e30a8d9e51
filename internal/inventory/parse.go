package inventory

import (
	"regexp"
	"strconv"
	"strings"
)

// Spreadsheet cells are parsed leniently: the longest numeric prefix counts
// and trailing text such as units is ignored.
var (
	floatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
	whitespace  = regexp.MustCompile(`[\s\p{Zs}]+`)
	separators  = regexp.MustCompile(`[\s\p{Zs},.]+`)
)

// leadingFloat parses the numeric prefix of s after leading whitespace.
func leadingFloat(s string) (float64, bool) {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// leadingInt parses the integer prefix of s after leading whitespace.
func leadingInt(s string) (int, bool) {
	m := intPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

// cleanAmount strips whitespace and turns the first decimal comma into a point.
func cleanAmount(s string) string {
	s = whitespace.ReplaceAllString(s, "")
	return strings.Replace(s, ",", ".", 1)
}
