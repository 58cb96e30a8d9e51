package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCurrency(t *testing.T) {
	t.Parallel()

	c, ok := ParseCurrency(" rub ")
	assert.True(t, ok)
	assert.Equal(t, RUB, c)

	_, ok = ParseCurrency("GBP")
	assert.False(t, ok)
}

func TestTable_Convert(t *testing.T) {
	t.Parallel()

	tbl := DefaultTable()
	assert.InDelta(t, 950.0, tbl.Convert(10, RUB), 1e-9)
	assert.InDelta(t, 13200.0, tbl.Convert(10, KRW), 1e-9)
	assert.Zero(t, tbl.Convert(0, RUB))
	assert.Zero(t, tbl.Convert(-5, RUB))
}

func TestTable_ToReference(t *testing.T) {
	t.Parallel()

	tbl := Table{USD: 1, RUB: 100}
	assert.InDelta(t, 150_000.0, tbl.ToReference(15_000_000, RUB), 1e-9)
	assert.InDelta(t, 42.0, tbl.ToReference(42, USD), 1e-9)
}

func TestTable_RateFallback(t *testing.T) {
	t.Parallel()

	tbl := Table{RUB: 0}
	assert.InDelta(t, 95.0, tbl.Rate(RUB), 1e-9)
	assert.InDelta(t, 1.0, tbl.Rate(Currency("XXX")), 1e-9)
}

func TestTable_Format(t *testing.T) {
	t.Parallel()

	tbl := DefaultTable()
	assert.Equal(t, "$12,500", tbl.Format(12500, USD))
	assert.Equal(t, "$12,501", tbl.Format(12500.6, USD))
	assert.Equal(t, "€1.150", tbl.Format(1250, EUR))
	assert.Equal(t, "₩1,320,000", tbl.Format(1000, KRW))
	assert.Equal(t, NoPriceLabel, tbl.Format(0, USD))
	assert.Equal(t, NoPriceLabel, tbl.FormatPtr(nil, RUB))

	rub := tbl.Format(100, RUB)
	assert.Equal(t, "₽", rub[:len("₽")])
	assert.Contains(t, rub, "500")
}

func TestTable_Clone(t *testing.T) {
	t.Parallel()

	orig := DefaultTable()
	cp := orig.Clone()
	cp[RUB] = 1

	assert.InDelta(t, 95.0, orig[RUB], 1e-9)
}

func TestCurrency_Symbol(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$", USD.Symbol())
	assert.Equal(t, "₩", KRW.Symbol())
	assert.Equal(t, "GBP", Currency("GBP").Symbol())
}
