package catalog

import (
	"github.com/sells-group/carlot/internal/model"
	"github.com/sells-group/carlot/internal/money"
)

// Criteria is a conjunctive vehicle filter. Zero values mean "any"; nil
// bounds are open. Price bounds are expressed in Currency.
type Criteria struct {
	Category     model.Category `json:"category,omitempty"`
	Brand        string         `json:"brand,omitempty"`
	Fuel         string         `json:"fuel,omitempty"`
	Transmission string         `json:"transmission,omitempty"`

	YearFrom *int `json:"year_from,omitempty"`
	YearTo   *int `json:"year_to,omitempty"`

	PriceFrom *float64       `json:"price_from,omitempty"`
	PriceTo   *float64       `json:"price_to,omitempty"`
	Currency  money.Currency `json:"currency,omitempty"`

	MileageFrom *int `json:"mileage_from,omitempty"`
	MileageTo   *int `json:"mileage_to,omitempty"`
}

// Matches reports whether v satisfies every criterion. A bound on a field
// the listing lacks excludes it.
func (c Criteria) Matches(v model.Vehicle, rates money.Table) bool {
	if c.Category != "" && Classify(v) != c.Category {
		return false
	}
	if c.Brand != "" && v.Brand != c.Brand {
		return false
	}
	if c.Fuel != "" && v.FuelType != c.Fuel {
		return false
	}
	if c.Transmission != "" && v.Transmission != c.Transmission {
		return false
	}
	if !intInRange(v.Year, c.YearFrom, c.YearTo) {
		return false
	}
	if !intInRange(v.Mileage, c.MileageFrom, c.MileageTo) {
		return false
	}
	return c.priceInRange(v.Price, rates)
}

func (c Criteria) priceInRange(price *float64, rates money.Table) bool {
	if c.PriceFrom == nil && c.PriceTo == nil {
		return true
	}
	if price == nil {
		return false
	}
	cur := c.Currency
	if cur == "" {
		cur = money.Reference
	}
	if c.PriceFrom != nil && *price < rates.ToReference(*c.PriceFrom, cur) {
		return false
	}
	if c.PriceTo != nil && *price > rates.ToReference(*c.PriceTo, cur) {
		return false
	}
	return true
}

func intInRange(v, from, to *int) bool {
	if from == nil && to == nil {
		return true
	}
	if v == nil {
		return false
	}
	if from != nil && *v < *from {
		return false
	}
	return to == nil || *v <= *to
}

// Filter returns the vehicles matching c in their original order.
func Filter(vs []model.Vehicle, c Criteria, rates money.Table) []model.Vehicle {
	out := make([]model.Vehicle, 0, len(vs))
	for _, v := range vs {
		if c.Matches(v, rates) {
			out = append(out, v)
		}
	}
	return out
}
