// Package catalog classifies, filters and pages the vehicle inventory.
package catalog

import (
	"strings"

	"github.com/sells-group/carlot/internal/model"
)

// Price thresholds in the reference currency.
const (
	PremiumPriceFloor = 30_000_000
	DealPriceCeiling  = 15_000_000
)

var (
	premiumBrands  = []string{"genesis", "mercedes", "bmw", "audi", "lexus", "porsche", "bentley", "rolls-royce", "maserati", "jaguar"}
	budgetModels   = []string{"rio", "picanto", "i10", "i20", "getz", "accent", "solaris", "elantra"}
	businessModels = []string{"g90", "g80", "s-class", "7 series", "a8", "ls", "e-class", "5 series", "sonata", "k5", "camry", "accord"}
	minivanBodies  = []string{"минивэн", "minivan"}
	suvBodies      = []string{"внедорожник", "suv"}
	midRangeBodies = []string{"седан", "sedan", "кроссовер", "crossover"}
	familyBodies   = []string{"минивэн", "minivan", "внедорожник", "suv", "кроссовер", "crossover"}
	valueBrands    = []string{"kia", "hyundai"}
)

// Classify assigns the market segment. Rules are checked in order and the
// first match wins; a listing without a price is classified as priced at 0.
func Classify(v model.Vehicle) model.Category {
	brand := strings.ToLower(v.Brand)
	mdl := strings.ToLower(v.Model)
	body := strings.ToLower(v.BodyType)
	price := v.PriceOrZero()

	switch {
	case containsAny(brand, premiumBrands) || price > PremiumPriceFloor:
		return model.CategoryPremium
	case price < DealPriceCeiling || containsAny(mdl, budgetModels):
		return model.CategoryDeal
	case containsAny(mdl, businessModels),
		containsAny(body, minivanBodies),
		containsAny(body, suvBodies) && price > DealPriceCeiling,
		price >= DealPriceCeiling && price <= PremiumPriceFloor && containsAny(body, midRangeBodies):
		return model.CategoryBusiness
	case containsAny(body, familyBodies),
		containsAny(brand, valueBrands) && price < PremiumPriceFloor:
		return model.CategoryFamily
	default:
		return model.CategoryBusiness
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
