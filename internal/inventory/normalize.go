package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/carlot/internal/model"
)

// ErrSkipRow marks a row that names neither brand nor model.
var ErrSkipRow = eris.New("inventory: row has no brand or model")

// IDPrefix prefixes the 1-based row position to form a vehicle id.
const IDPrefix = "car_"

const (
	minYear = 1900
	maxYear = 2100
)

var photoURL = regexp.MustCompile(`https?://[^\s"\[\]]+`)

// Normalizer converts tokenized rows into vehicles.
type Normalizer struct {
	// MinorCurrencyRate converts price_won into the reference currency.
	MinorCurrencyRate float64
	// DescriptionLimit caps descriptions, counted in characters.
	DescriptionLimit int
	// DefaultTrim labels listings without a configuration.
	DefaultTrim string
}

// DefaultNormalizer returns the storefront's production settings.
func DefaultNormalizer() Normalizer {
	return Normalizer{
		MinorCurrencyRate: 0.07,
		DescriptionLimit:  500,
		DefaultTrim:       model.DefaultTrim,
	}
}

func (n Normalizer) withDefaults() Normalizer {
	d := DefaultNormalizer()
	if n.MinorCurrencyRate <= 0 {
		n.MinorCurrencyRate = d.MinorCurrencyRate
	}
	if n.DescriptionLimit <= 0 {
		n.DescriptionLimit = d.DescriptionLimit
	}
	if n.DefaultTrim == "" {
		n.DefaultTrim = d.DefaultTrim
	}
	return n
}

// Normalize builds the vehicle for one data row; row is the 1-based line
// position after the header. Returns ErrSkipRow when brand and model are
// both empty.
func (n Normalizer) Normalize(values []string, schema *Schema, row int) (model.Vehicle, error) {
	n = n.withDefaults()
	get := func(f Field) string { return schema.Value(values, f) }

	brand, mdl := get(FieldMark), get(FieldModel)
	if brand == "" && mdl == "" {
		return model.Vehicle{}, ErrSkipRow
	}

	v := model.Vehicle{
		ID:                 fmt.Sprintf("%s%d", IDPrefix, row),
		Brand:              brand,
		Model:              mdl,
		Price:              n.price(get(FieldPrice), get(FieldPriceWon)),
		Mileage:            parseMileage(get(FieldMileage)),
		Year:               parseYear(get(FieldYear)),
		FuelType:           get(FieldFuel),
		Transmission:       get(FieldTransmission),
		BodyType:           get(FieldBody),
		Color:              get(FieldColor),
		EngineDisplacement: get(FieldDisplacement),
		ListingURL:         get(FieldURL),
		Description:        truncateRunes(get(FieldDescription), n.DescriptionLimit),
	}

	v.Trim = get(FieldConfiguration)
	if v.Trim == "" {
		v.Trim = get(FieldComplectation)
	}
	if v.Trim == "" {
		v.Trim = n.DefaultTrim
	}

	v.PhotoURLs = parsePhotos(get(FieldImages))
	if len(v.PhotoURLs) > 0 {
		v.PrimaryPhotoURL = v.PhotoURLs[0]
	}
	return v, nil
}

// RowStats counts rows that did not become vehicles.
type RowStats struct {
	// Dropped rows named neither brand nor model.
	Dropped int
	// Failed rows errored or panicked during normalization.
	Failed int
}

// NormalizeRows normalizes data rows in order. A failing row is logged and
// counted; it never aborts the batch.
func (n Normalizer) NormalizeRows(rows [][]string, schema *Schema) ([]model.Vehicle, RowStats) {
	var stats RowStats
	vehicles := make([]model.Vehicle, 0, len(rows))

	for i, values := range rows {
		v, err := n.safeNormalize(values, schema, i+1)
		switch {
		case err == nil:
			vehicles = append(vehicles, v)
		case errors.Is(err, ErrSkipRow):
			stats.Dropped++
		default:
			stats.Failed++
			zap.L().Warn("inventory: skipping row",
				zap.Int("row", i+2),
				zap.Error(err),
			)
		}
	}
	return vehicles, stats
}

func (n Normalizer) safeNormalize(values []string, schema *Schema, row int) (v model.Vehicle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("inventory: normalize row %d: %v", row, r)
		}
	}()
	return n.Normalize(values, schema, row)
}

func (n Normalizer) price(primary, minor string) *float64 {
	if p, ok := positiveAmount(primary); ok {
		p = math.Round(p)
		return &p
	}
	if p, ok := positiveAmount(minor); ok {
		p = math.Round(p * n.MinorCurrencyRate)
		if p > 0 {
			return &p
		}
	}
	return nil
}

func positiveAmount(raw string) (float64, bool) {
	if strings.TrimSpace(raw) == "" {
		return 0, false
	}
	v, ok := leadingFloat(cleanAmount(raw))
	if !ok || v <= 0 || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseMileage(raw string) *int {
	if raw == "" {
		return nil
	}
	km, ok := leadingInt(separators.ReplaceAllString(raw, ""))
	if !ok || km <= 0 {
		return nil
	}
	return &km
}

func parseYear(raw string) *int {
	if raw == "" {
		return nil
	}
	y, ok := leadingInt(raw)
	if !ok || y < minYear || y > maxYear {
		return nil
	}
	return &y
}

// parsePhotos reads the images cell: a JSON array of URLs, possibly wrapped
// in an extra quoted layer. Text that is not a JSON array yields at most the
// first URL found in it.
func parsePhotos(raw string) []string {
	urls := []string{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return urls
	}

	doc := raw
	switch {
	case strings.HasPrefix(doc, `"[`) && len(doc) >= 2:
		doc = strings.ReplaceAll(doc[1:len(doc)-1], `\"`, `"`)
	case strings.HasPrefix(doc, `[\"`):
		doc = strings.ReplaceAll(doc, `\"`, `"`)
	}

	var items []any
	if strings.HasPrefix(doc, "[") && json.Unmarshal([]byte(doc), &items) == nil {
		for _, item := range items {
			if s, ok := item.(string); ok && strings.HasPrefix(s, "http") {
				urls = append(urls, s)
			}
		}
		return urls
	}

	if m := photoURL.FindString(raw); m != "" {
		urls = append(urls, m)
	}
	return urls
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
