package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"premium", CategoryPremium, true},
		{" Deal ", CategoryDeal, true},
		{"BUSINESS", CategoryBusiness, true},
		{"family", CategoryFamily, true},
		{"sport", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseCategory(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoryLabel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Premium", CategoryPremium.Label())
	assert.Equal(t, "Deal", CategoryDeal.Label())
	assert.Equal(t, "All cars", Category("").Label())
}

func TestParseContactMethod(t *testing.T) {
	t.Parallel()

	m, ok := ParseContactMethod("")
	assert.True(t, ok)
	assert.Equal(t, ContactWhatsApp, m)

	m, ok = ParseContactMethod("telegram")
	assert.True(t, ok)
	assert.Equal(t, ContactTelegram, m)

	_, ok = ParseContactMethod("pigeon")
	assert.False(t, ok)
}

func TestVehicleHelpers(t *testing.T) {
	t.Parallel()

	price := 12000.0
	v := Vehicle{Brand: "Kia", Model: "Rio", Price: &price}
	assert.Equal(t, "Kia Rio", v.Title())
	assert.True(t, v.HasPrice())
	assert.Equal(t, 12000.0, v.PriceOrZero())

	bare := Vehicle{Model: "Sonata"}
	assert.Equal(t, "Sonata", bare.Title())
	assert.False(t, bare.HasPrice())
	assert.Zero(t, bare.PriceOrZero())
}

func TestIngestRunDuration(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := IngestRun{StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond)}
	assert.Equal(t, 1500*time.Millisecond, r.Duration())
}

func TestVehicle_ListingKey(t *testing.T) {
	t.Parallel()

	year, mileage := 2021, 45_000
	sonata := Vehicle{ID: "car_1", Brand: "Hyundai", Model: "Sonata", Year: &year, Mileage: &mileage}

	shifted := sonata
	shifted.ID = "car_7"
	shifted.Brand = " hyundai "
	assert.Equal(t, sonata.ListingKey(), shifted.ListingKey(), "row id and brand case do not matter")
	assert.Len(t, sonata.ListingKey(), 64)

	other := sonata
	other.Model = "Elantra"
	assert.NotEqual(t, sonata.ListingKey(), other.ListingKey())

	noYear := sonata
	noYear.Year = nil
	assert.NotEqual(t, sonata.ListingKey(), noYear.ListingKey())

	linked := sonata
	linked.ListingURL = " https://dealer.example/sonata "
	assert.Equal(t, "https://dealer.example/sonata", linked.ListingKey())
}
