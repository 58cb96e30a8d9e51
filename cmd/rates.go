package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/carlot/internal/money"
)

// ratesReport is the printable exchange table.
type ratesReport struct {
	Base      money.Currency `json:"base" yaml:"base"`
	Rates     money.Table    `json:"rates" yaml:"rates"`
	Live      bool           `json:"live" yaml:"live"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show the current exchange rates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")

		cache := newRates(cfg.Rates)
		report := ratesReport{Base: money.Reference}
		if err := cache.Refresh(ctx); err != nil {
			zap.L().Warn("exchange rates unavailable, showing fallback table", zap.Error(err))
		} else {
			report.Live = true
			t := cache.UpdatedAt()
			report.UpdatedAt = &t
		}
		report.Rates = cache.Table(ctx)

		if format != formatTable {
			return writeStructured(os.Stdout, format, report)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "CURRENCY\tPER 1 %s\tSAMPLE\n", report.Base)
		for _, c := range money.AllCurrencies() {
			_, _ = fmt.Fprintf(w, "%s\t%.4f\t%s\n", c, report.Rates.Rate(c), report.Rates.Format(10_000, c))
		}
		return w.Flush()
	},
}

func init() {
	ratesCmd.Flags().String("format", formatYAML, "output format (table, json, yaml)")
	rootCmd.AddCommand(ratesCmd)
}
