package model

import "strings"

// Category is the coarse market segment a vehicle is shown under.
type Category string

const (
	CategoryPremium  Category = "premium"
	CategoryDeal     Category = "deal"
	CategoryBusiness Category = "business"
	CategoryFamily   Category = "family"
)

// AllCategories returns the segments in storefront display order.
func AllCategories() []Category {
	return []Category{
		CategoryPremium,
		CategoryFamily,
		CategoryBusiness,
		CategoryDeal,
	}
}

// ParseCategory converts a user-supplied name into a Category.
// Returns false for unknown names.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllCategories() {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Label returns the display name for the category.
func (c Category) Label() string {
	switch c {
	case CategoryPremium:
		return "Premium"
	case CategoryFamily:
		return "Family"
	case CategoryBusiness:
		return "Business"
	case CategoryDeal:
		return "Deal"
	default:
		return "All cars"
	}
}
