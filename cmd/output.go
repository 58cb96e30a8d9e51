package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/carlot/internal/catalog"
	"github.com/sells-group/carlot/internal/model"
	"github.com/sells-group/carlot/internal/money"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// vehicleRow is the flattened listing printed by the CLI.
type vehicleRow struct {
	ID           string         `json:"id" yaml:"id"`
	Title        string         `json:"title" yaml:"title"`
	Year         *int           `json:"year,omitempty" yaml:"year,omitempty"`
	Price        string         `json:"price" yaml:"price"`
	Mileage      *int           `json:"mileage,omitempty" yaml:"mileage,omitempty"`
	Fuel         string         `json:"fuel,omitempty" yaml:"fuel,omitempty"`
	Transmission string         `json:"transmission,omitempty" yaml:"transmission,omitempty"`
	Category     model.Category `json:"category" yaml:"category"`
	Photos       int            `json:"photos" yaml:"photos"`
}

func toRows(vs []model.Vehicle, table money.Table, cur money.Currency) []vehicleRow {
	rows := make([]vehicleRow, len(vs))
	for i, v := range vs {
		rows[i] = vehicleRow{
			ID:           v.ID,
			Title:        v.Title(),
			Year:         v.Year,
			Price:        table.FormatPtr(v.Price, cur),
			Mileage:      v.Mileage,
			Fuel:         v.FuelType,
			Transmission: v.Transmission,
			Category:     catalog.Classify(v),
			Photos:       len(v.PhotoURLs),
		}
	}
	return rows
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(out io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "flush yaml")
	default:
		return eris.Errorf("unknown output format %q", format)
	}
}

// writeVehicles prints listings in the requested format.
func writeVehicles(out io.Writer, format string, rows []vehicleRow) error {
	if format != formatTable {
		return writeStructured(out, format, rows)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tVEHICLE\tYEAR\tPRICE\tMILEAGE\tFUEL\tCATEGORY")
	_, _ = fmt.Fprintln(w, "--\t-------\t----\t-----\t-------\t----\t--------")
	for _, r := range rows {
		title := r.Title
		if len([]rune(title)) > 30 {
			title = string([]rune(title)[:27]) + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, title, optInt(r.Year), r.Price, optInt(r.Mileage), r.Fuel, r.Category)
	}
	return eris.Wrap(w.Flush(), "flush table")
}

func optInt(n *int) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *n)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
