// Package inventory turns a published spreadsheet export into vehicle records.
package inventory

import (
	"strings"
)

// Field is a logical column the normalizer reads.
type Field string

const (
	FieldMark          Field = "mark"
	FieldModel         Field = "model"
	FieldPrice         Field = "price"
	FieldPriceWon      Field = "price_won"
	FieldYear          Field = "year"
	FieldMileage       Field = "km_age"
	FieldFuel          Field = "engine_type"
	FieldTransmission  Field = "transmission_type"
	FieldBody          Field = "body_type"
	FieldConfiguration Field = "configuration"
	FieldComplectation Field = "complectation"
	FieldDescription   Field = "description"
	FieldURL           Field = "url"
	FieldColor         Field = "color"
	FieldDisplacement  Field = "displacement"
	FieldImages        Field = "images"
)

var allFields = []Field{
	FieldMark, FieldModel, FieldPrice, FieldPriceWon, FieldYear, FieldMileage,
	FieldFuel, FieldTransmission, FieldBody, FieldConfiguration, FieldComplectation,
	FieldDescription, FieldURL, FieldColor, FieldDisplacement, FieldImages,
}

// ResolveColumn finds the header for name: a case-insensitive exact match
// first, then a substring match in either direction. Empty headers never
// match and the first hit in header order wins. Returns -1 when nothing matches.
func ResolveColumn(headers []string, name string) int {
	want := strings.ToLower(name)

	for i, h := range headers {
		if h != "" && strings.ToLower(h) == want {
			return i
		}
	}
	for i, h := range headers {
		if h == "" {
			continue
		}
		lh := strings.ToLower(h)
		if strings.Contains(lh, want) || strings.Contains(want, lh) {
			return i
		}
	}
	return -1
}

// Schema maps every logical field to a column of one batch's header row.
type Schema struct {
	headers []string
	index   map[Field]int
}

// NewSchema resolves all fields against headers once.
func NewSchema(headers []string) *Schema {
	s := &Schema{
		headers: make([]string, len(headers)),
		index:   make(map[Field]int, len(allFields)),
	}
	for i, h := range headers {
		s.headers[i] = unquote(h)
	}
	for _, f := range allFields {
		s.index[f] = ResolveColumn(s.headers, string(f))
	}
	return s
}

// Headers returns the cleaned header row.
func (s *Schema) Headers() []string {
	return s.headers
}

// Index returns the column for f, or -1.
func (s *Schema) Index(f Field) int {
	if i, ok := s.index[f]; ok {
		return i
	}
	return ResolveColumn(s.headers, string(f))
}

// Value returns the cleaned cell for f, or "" when the column is unresolved
// or the row is too short.
func (s *Schema) Value(row []string, f Field) string {
	i := s.Index(f)
	if i < 0 || i >= len(row) {
		return ""
	}
	return unquote(row[i])
}

// Missing lists the fields no header resolved to.
func (s *Schema) Missing() []Field {
	var out []Field
	for _, f := range allFields {
		if s.index[f] < 0 {
			out = append(out, f)
		}
	}
	return out
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}
