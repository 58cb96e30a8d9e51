package catalog

import (
	"slices"
	"sort"
	"strings"

	"github.com/sells-group/carlot/internal/model"
)

// Facets lists the values the filter controls can offer.
type Facets struct {
	Brands        []string               `json:"brands"`
	Years         []int                  `json:"years"`
	FuelTypes     []string               `json:"fuel_types"`
	Transmissions []string               `json:"transmissions"`
	BodyTypes     []string               `json:"body_types"`
	MinPrice      *float64               `json:"min_price"`
	MaxPrice      *float64               `json:"max_price"`
	Categories    map[model.Category]int `json:"categories"`
}

// BuildFacets collects distinct non-empty values across vs. Strings sort
// ascending, years descending.
func BuildFacets(vs []model.Vehicle) Facets {
	brands := map[string]struct{}{}
	fuels := map[string]struct{}{}
	trans := map[string]struct{}{}
	bodies := map[string]struct{}{}
	years := map[int]struct{}{}

	f := Facets{Categories: make(map[model.Category]int, 4)}
	for _, c := range model.AllCategories() {
		f.Categories[c] = 0
	}

	for _, v := range vs {
		addNonBlank(brands, v.Brand)
		addNonBlank(fuels, v.FuelType)
		addNonBlank(trans, v.Transmission)
		addNonBlank(bodies, v.BodyType)
		if v.Year != nil && *v.Year > minFacetYear && *v.Year < maxFacetYear {
			years[*v.Year] = struct{}{}
		}
		if v.HasPrice() {
			p := *v.Price
			if f.MinPrice == nil || p < *f.MinPrice {
				f.MinPrice = &p
			}
			if f.MaxPrice == nil || p > *f.MaxPrice {
				pc := p
				f.MaxPrice = &pc
			}
		}
		f.Categories[Classify(v)]++
	}

	f.Brands = sortedKeys(brands)
	f.FuelTypes = sortedKeys(fuels)
	f.Transmissions = sortedKeys(trans)
	f.BodyTypes = sortedKeys(bodies)

	f.Years = make([]int, 0, len(years))
	for y := range years {
		f.Years = append(f.Years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(f.Years)))
	return f
}

const (
	minFacetYear = 1900
	maxFacetYear = 2100
)

func addNonBlank(set map[string]struct{}, s string) {
	if strings.TrimSpace(s) != "" {
		set[s] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
