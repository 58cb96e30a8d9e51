// Package money converts reference-currency prices into display currencies
// and formats them for the buyer's locale.
package money

import (
	"maps"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is an ISO 4217 code the storefront can display.
type Currency string

const (
	USD Currency = "USD"
	RUB Currency = "RUB"
	EUR Currency = "EUR"
	KRW Currency = "KRW"
)

// Reference is the currency inventory prices are stored in.
const Reference = USD

// NoPriceLabel is shown for listings without a usable price.
const NoPriceLabel = "Price not specified"

type display struct {
	symbol string
	locale language.Tag
}

var displays = map[Currency]display{
	USD: {symbol: "$", locale: language.AmericanEnglish},
	RUB: {symbol: "₽", locale: language.Russian},
	EUR: {symbol: "€", locale: language.German},
	KRW: {symbol: "₩", locale: language.Korean},
}

// AllCurrencies returns the supported currencies in selector order.
func AllCurrencies() []Currency {
	return []Currency{USD, RUB, EUR, KRW}
}

// ParseCurrency accepts a case-insensitive currency code.
func ParseCurrency(s string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := displays[c]
	return c, ok
}

// Symbol returns the display symbol, or the code itself for unknown currencies.
func (c Currency) Symbol() string {
	if d, ok := displays[c]; ok {
		return d.symbol
	}
	return string(c)
}

// Table holds units of each currency per one unit of Reference.
type Table map[Currency]float64

// DefaultTable returns the rates used until a live table has been fetched.
func DefaultTable() Table {
	return Table{
		USD: 1,
		RUB: 95,
		EUR: 0.92,
		KRW: 1320,
	}
}

// Clone returns an independent copy.
func (t Table) Clone() Table {
	return maps.Clone(t)
}

// Rate returns the multiplier for c, falling back to the default table and
// then to 1.
func (t Table) Rate(c Currency) float64 {
	if r, ok := t[c]; ok && r > 0 {
		return r
	}
	if r, ok := DefaultTable()[c]; ok {
		return r
	}
	return 1
}

// Convert turns a reference amount into c. Non-positive amounts convert to 0.
func (t Table) Convert(amount float64, c Currency) float64 {
	if amount <= 0 {
		return 0
	}
	return amount * t.Rate(c)
}

// ToReference turns an amount expressed in c back into the reference currency.
func (t Table) ToReference(amount float64, c Currency) float64 {
	return amount / t.Rate(c)
}

// Format renders a reference amount in c as symbol plus locale-grouped
// whole number, e.g. "$12,500" or "€1.234".
func (t Table) Format(amount float64, c Currency) string {
	if amount <= 0 {
		return NoPriceLabel
	}
	rounded := int64(math.Round(t.Convert(amount, c)))

	d, ok := displays[c]
	if !ok {
		d = displays[Reference]
	}
	return d.symbol + message.NewPrinter(d.locale).Sprintf("%d", rounded)
}

// FormatPtr is Format for optional prices.
func (t Table) FormatPtr(amount *float64, c Currency) string {
	if amount == nil {
		return NoPriceLabel
	}
	return t.Format(*amount, c)
}
