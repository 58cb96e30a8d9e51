package fetcher

import (
	"strings"
)

const utf8BOM = "\uFEFF"

// SplitLines breaks an export body into lines, dropping lines that are blank
// after trimming. A leading byte-order mark is removed.
func SplitLines(body string) []string {
	body = strings.TrimPrefix(body, utf8BOM)

	raw := strings.Split(body, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// SplitLine tokenizes one comma-separated line. Quotes toggle quoted mode and
// are consumed; a doubled quote inside quotes is a literal quote. An
// unterminated quote runs to end of line. Each field is trimmed, then a
// leading and a trailing quote are each removed once.
func SplitLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; {
		case c == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			fields = append(fields, cleanField(current.String()))
			current.Reset()
		default:
			current.WriteRune(c)
		}
	}
	return append(fields, cleanField(current.String()))
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}
