package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/carlot/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "carlot",
	Short: "Car storefront backend for the Telegram mini-app",
	Long:  "Loads the published vehicle spreadsheet, serves the filtered catalog with live currency conversion, and relays buyer inquiries to the sales managers.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
