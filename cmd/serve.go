package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/carlot/internal/api"
	"github.com/sells-group/carlot/internal/inventory"
	"github.com/sells-group/carlot/internal/monitoring"
	"github.com/sells-group/carlot/pkg/exrate"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the storefront API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		loader := newLoader(cfg.Feed, st)
		rates := newRates(cfg.Rates)
		verifier := newVerifier(cfg.Telegram)
		if !verifier.Enforcing() {
			zap.L().Warn("telegram bot token not set, init data is accepted unverified")
		}

		warmup(ctx, loader, rates)

		if cfg.Monitoring.Enabled {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(st),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		srv := api.New(api.Deps{
			Inventory:      loader,
			Rates:          rates,
			Relay:          newRelay(cfg.Relay),
			Identity:       verifier,
			Translator:     newTranslator(cfg.Translate),
			Store:          st,
			PageSize:       cfg.Catalog.PageSize,
			Currency:       defaultCurrency(cfg.Rates),
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// warmup primes the inventory and rate caches in parallel. Failures are
// logged only; handlers retry on demand.
func warmup(ctx context.Context, loader *inventory.Loader, rates *exrate.Cache) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		batch, err := loader.Load(gctx)
		if err != nil {
			zap.L().Warn("inventory warmup failed", zap.Error(err))
			return nil
		}
		zap.L().Info("inventory warmed up",
			zap.Int("vehicles", len(batch.Vehicles)),
			zap.String("source", batch.Source),
		)
		return nil
	})
	g.Go(func() error {
		if err := rates.Refresh(gctx); err != nil {
			zap.L().Warn("exchange rate warmup failed", zap.Error(err))
		}
		return nil
	})
	_ = g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
