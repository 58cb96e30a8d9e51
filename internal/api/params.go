package api

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/carlot/internal/catalog"
	"github.com/sells-group/carlot/internal/model"
	"github.com/sells-group/carlot/internal/money"
)

// criteriaFromQuery reads filter parameters. Blank values mean "any".
func criteriaFromQuery(q url.Values, fallback money.Currency) (catalog.Criteria, error) {
	c := catalog.Criteria{
		Brand:        strings.TrimSpace(q.Get("brand")),
		Fuel:         strings.TrimSpace(q.Get("fuel")),
		Transmission: strings.TrimSpace(q.Get("transmission")),
	}

	if s := strings.TrimSpace(q.Get("category")); s != "" && s != "all" {
		cat, ok := model.ParseCategory(s)
		if !ok {
			return c, eris.Errorf("api: unknown category %q", s)
		}
		c.Category = cat
	}

	cur, err := currencyFromQuery(q, fallback)
	if err != nil {
		return c, err
	}
	c.Currency = cur

	for _, p := range []struct {
		name string
		dst  **int
	}{
		{"year_from", &c.YearFrom},
		{"year_to", &c.YearTo},
		{"mileage_from", &c.MileageFrom},
		{"mileage_to", &c.MileageTo},
	} {
		v, err := optionalInt(q, p.name)
		if err != nil {
			return c, err
		}
		*p.dst = v
	}

	if c.PriceFrom, err = optionalFloat(q, "price_from"); err != nil {
		return c, err
	}
	if c.PriceTo, err = optionalFloat(q, "price_to"); err != nil {
		return c, err
	}
	return c, nil
}

func currencyFromQuery(q url.Values, fallback money.Currency) (money.Currency, error) {
	s := strings.TrimSpace(q.Get("currency"))
	if s == "" {
		return fallback, nil
	}
	cur, ok := money.ParseCurrency(s)
	if !ok {
		return "", eris.Errorf("api: unknown currency %q", s)
	}
	return cur, nil
}

func optionalInt(q url.Values, name string) (*int, error) {
	s := strings.TrimSpace(q.Get(name))
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, eris.Errorf("api: %s must be a whole number", name)
	}
	return &n, nil
}

func optionalFloat(q url.Values, name string) (*float64, error) {
	s := strings.TrimSpace(q.Get(name))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, eris.Errorf("api: %s must be a number", name)
	}
	return &f, nil
}

func pageFromQuery(q url.Values) (int, error) {
	p, err := optionalInt(q, "page")
	if err != nil {
		return 0, err
	}
	if p == nil || *p < 1 {
		return 1, nil
	}
	return *p, nil
}
