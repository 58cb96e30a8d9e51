package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/carlot/internal/catalog"
	"github.com/sells-group/carlot/internal/model"
	"github.com/sells-group/carlot/internal/money"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the filtered catalog page by page",
	Long:  "Applies catalog filters and pages through the matches the way the mini-app does when the buyer scrolls.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		criteria, err := criteriaFromFlags(cmd.Flags(), defaultCurrency(cfg.Rates))
		if err != nil {
			return err
		}
		pages, _ := cmd.Flags().GetInt("pages")
		format, _ := cmd.Flags().GetString("format")
		showFacets, _ := cmd.Flags().GetBool("facets")

		rates := newRates(cfg.Rates)
		browser := catalog.NewBrowser(newLoader(cfg.Feed, nil), rates, cfg.Catalog.PageSize)

		view, err := browser.Reset(ctx, criteria)
		if err != nil {
			return eris.Wrap(err, "browse")
		}
		for i := 1; i < pages && view.HasMore; i++ {
			if view, err = browser.LoadMore(ctx); err != nil {
				return eris.Wrap(err, "browse: load more")
			}
		}

		if showFacets {
			return writeStructured(os.Stdout, formatYAML, browser.Facets())
		}

		if len(view.Vehicles) == 0 {
			fmt.Fprintln(os.Stderr, "No cars match the filters.")
			return nil
		}
		if err := writeVehicles(os.Stdout, format, toRows(view.Vehicles, rates.Table(ctx), criteria.Currency)); err != nil {
			return err
		}
		if format == formatTable {
			fmt.Fprintf(os.Stderr, "Showing %d of %d (page %d, more: %t)\n",
				len(view.Vehicles), view.Total, view.Page, view.HasMore)
		}
		return nil
	},
}

// criteriaFromFlags reads the catalog filter flags. Unset flags leave the
// criterion open.
func criteriaFromFlags(fs *pflag.FlagSet, fallback money.Currency) (catalog.Criteria, error) {
	c := catalog.Criteria{Currency: fallback}

	c.Brand, _ = fs.GetString("brand")
	c.Fuel, _ = fs.GetString("fuel")
	c.Transmission, _ = fs.GetString("transmission")

	if s, _ := fs.GetString("category"); s != "" && s != "all" {
		cat, ok := model.ParseCategory(s)
		if !ok {
			return c, eris.Errorf("unknown category %q", s)
		}
		c.Category = cat
	}
	if s, _ := fs.GetString("currency"); s != "" {
		cur, ok := money.ParseCurrency(s)
		if !ok {
			return c, eris.Errorf("unknown currency %q", s)
		}
		c.Currency = cur
	}

	for _, p := range []struct {
		name string
		dst  **int
	}{
		{"year-from", &c.YearFrom},
		{"year-to", &c.YearTo},
		{"mileage-from", &c.MileageFrom},
		{"mileage-to", &c.MileageTo},
	} {
		if fs.Changed(p.name) {
			n, _ := fs.GetInt(p.name)
			*p.dst = &n
		}
	}
	for _, p := range []struct {
		name string
		dst  **float64
	}{
		{"price-from", &c.PriceFrom},
		{"price-to", &c.PriceTo},
	} {
		if fs.Changed(p.name) {
			f, _ := fs.GetFloat64(p.name)
			*p.dst = &f
		}
	}
	return c, nil
}

// addCriteriaFlags registers the catalog filter flags on fs.
func addCriteriaFlags(fs *pflag.FlagSet) {
	fs.String("category", "", "segment (premium, business, family, deal, all)")
	fs.String("brand", "", "exact brand")
	fs.String("fuel", "", "exact fuel type")
	fs.String("transmission", "", "exact transmission")
	fs.String("currency", "", "display and price-bound currency (USD, RUB, EUR, KRW)")
	fs.Int("year-from", 0, "minimum year")
	fs.Int("year-to", 0, "maximum year")
	fs.Int("mileage-from", 0, "minimum mileage, km")
	fs.Int("mileage-to", 0, "maximum mileage, km")
	fs.Float64("price-from", 0, "minimum price in --currency")
	fs.Float64("price-to", 0, "maximum price in --currency")
}

func init() {
	addCriteriaFlags(browseCmd.Flags())
	browseCmd.Flags().Int("pages", 1, "number of pages to load")
	browseCmd.Flags().String("format", formatTable, "output format (table, json, yaml)")
	browseCmd.Flags().Bool("facets", false, "print the available filter values instead of listings")
	rootCmd.AddCommand(browseCmd)
}
