package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/carlot/internal/inventory"
	"github.com/sells-group/carlot/internal/money"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the inventory spreadsheet once and print the listings",
	Long:  "Fetches the published spreadsheet, normalizes every row, records the ingest run and vehicle snapshot, and prints the result.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		currency, _ := cmd.Flags().GetString("currency")
		noRecord, _ := cmd.Flags().GetBool("no-record")

		cur := defaultCurrency(cfg.Rates)
		if currency != "" {
			c, ok := money.ParseCurrency(currency)
			if !ok {
				return eris.Errorf("ingest: unknown currency %q", currency)
			}
			cur = c
		}

		var rec inventory.Recorder
		if !noRecord {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			rec = st
		}

		batch, err := newLoader(cfg.Feed, rec).Load(ctx)
		if err != nil {
			return eris.Wrap(err, "ingest")
		}

		zap.L().Info("inventory loaded",
			zap.String("source", batch.Source),
			zap.Int("vehicles", len(batch.Vehicles)),
			zap.Int("skipped", batch.Skipped),
			zap.Int("dropped", batch.Dropped),
		)
		if len(batch.Missing) > 0 {
			zap.L().Warn("spreadsheet is missing columns", zap.Any("fields", batch.Missing))
		}

		table := newRates(cfg.Rates).Table(ctx)
		return writeVehicles(os.Stdout, format, toRows(batch.Vehicles, table, cur))
	},
}

func init() {
	ingestCmd.Flags().String("format", formatTable, "output format (table, json, yaml)")
	ingestCmd.Flags().String("currency", "", "display currency (default from config)")
	ingestCmd.Flags().Bool("no-record", false, "skip writing the ingest run to the store")
	rootCmd.AddCommand(ingestCmd)
}
