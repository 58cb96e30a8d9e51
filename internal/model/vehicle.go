package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// DefaultTrim is the trim label used when a listing names no configuration.
const DefaultTrim = "Standard"

// Vehicle is one parsed inventory listing.
type Vehicle struct {
	ID                 string   `json:"id"`
	Brand              string   `json:"brand"`
	Model              string   `json:"model"`
	Year               *int     `json:"year"`
	Price              *float64 `json:"price"`
	Mileage            *int     `json:"mileage"`
	Transmission       string   `json:"transmission"`
	FuelType           string   `json:"fuel"`
	BodyType           string   `json:"type"`
	Color              string   `json:"color"`
	EngineDisplacement string   `json:"displacement"`
	Trim               string   `json:"configuration"`
	Description        string   `json:"description"`
	PrimaryPhotoURL    string   `json:"photo_url,omitempty"`
	PhotoURLs          []string `json:"photo_urls"`
	ListingURL         string   `json:"link,omitempty"`
}

// ListingKey identifies the listing across ingestions. The row-based ID
// shifts whenever rows above are added or removed, so the key is the
// listing link when present and otherwise a hash of the brand, model, year
// and mileage.
func (v Vehicle) ListingKey() string {
	if u := strings.TrimSpace(v.ListingURL); u != "" {
		return u
	}
	parts := []string{
		strings.ToLower(strings.TrimSpace(v.Brand)),
		strings.ToLower(strings.TrimSpace(v.Model)),
		optionalInt(v.Year),
		optionalInt(v.Mileage),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func optionalInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

// Title returns "Brand Model" for display.
func (v Vehicle) Title() string {
	return strings.TrimSpace(v.Brand + " " + v.Model)
}

// HasPrice reports whether the listing carries a positive price.
func (v Vehicle) HasPrice() bool {
	return v.Price != nil && *v.Price > 0
}

// PriceOrZero returns the price, treating an absent price as zero.
func (v Vehicle) PriceOrZero() float64 {
	if v.Price == nil {
		return 0
	}
	return *v.Price
}
