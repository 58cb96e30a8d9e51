package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/carlot/internal/catalog"
	"github.com/sells-group/carlot/internal/fetcher"
	"github.com/sells-group/carlot/internal/model"
	"github.com/sells-group/carlot/internal/money"
)

var exportHeader = []string{"id", "brand", "model", "year", "price", "price_formatted", "mileage", "fuel", "transmission", "body", "category", "photos"}

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Export the filtered catalog to an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		criteria, err := criteriaFromFlags(cmd.Flags(), defaultCurrency(cfg.Rates))
		if err != nil {
			return err
		}

		batch, err := newLoader(cfg.Feed, nil).Load(ctx)
		if err != nil {
			return eris.Wrap(err, "export")
		}
		table := newRates(cfg.Rates).Table(ctx)
		vs := catalog.Filter(batch.Vehicles, criteria, table)

		f, err := os.Create(args[0])
		if err != nil {
			return eris.Wrap(err, "export: create file")
		}
		defer f.Close() //nolint:errcheck

		if err := writeWorkbook(f, vs, table, criteria.Currency); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d cars to %s\n", len(vs), args[0])
		return nil
	},
}

func writeWorkbook(w io.Writer, vs []model.Vehicle, table money.Table, cur money.Currency) error {
	rows := make([][]string, len(vs))
	for i, v := range vs {
		rows[i] = exportRow(v, table, cur)
	}
	return eris.Wrap(fetcher.WriteXLSX(w, "Cars", exportHeader, rows), "export: write workbook")
}

func exportRow(v model.Vehicle, table money.Table, cur money.Currency) []string {
	price := ""
	if v.Price != nil {
		price = strconv.FormatFloat(*v.Price, 'f', -1, 64)
	}
	return []string{
		v.ID,
		v.Brand,
		v.Model,
		optIntCell(v.Year),
		price,
		table.FormatPtr(v.Price, cur),
		optIntCell(v.Mileage),
		v.FuelType,
		v.Transmission,
		v.BodyType,
		string(catalog.Classify(v)),
		strconv.Itoa(len(v.PhotoURLs)),
	}
}

func optIntCell(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func init() {
	addCriteriaFlags(exportCmd.Flags())
	rootCmd.AddCommand(exportCmd)
}
