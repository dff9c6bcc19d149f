package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/facturaIA/invoice-stock-service/api"
	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/facturaIA/invoice-stock-service/internal/stock"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the periodic stock repair job",
	Example: `  # Serve with config.yaml in the working directory
  invoice-stock serve

  # Serve with another config file
  invoice-stock serve --config /etc/invoice-stock/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("server")

	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var locker stock.Locker
	if a.redis != nil {
		locker = stock.NewRedisLocker(a.redis)
	}
	scheduler := stock.NewRepairScheduler(a.ledger, locker, cfg.Stock.RepairInterval)
	go scheduler.Run(ctx)

	deps := api.Deps{
		Config:   cfg,
		DB:       a.db,
		Invoices: a.invoices,
		Catalog:  a.resolver,
		Ledger:   a.ledger,
		Auth:     a.auth,
		Redis:    a.redis,
	}
	if a.archive != nil {
		deps.Archive = a.archive
	}
	handler := api.NewHandler(deps)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", api.Version).
			Str("ocr_engine", cfg.OCR.Engine).
			Str("database", a.db.Dialector.Name()).
			Bool("redis", a.redis != nil).
			Bool("storage", a.archive != nil).
			Bool("auth", a.auth != nil).
			Msg("Starting invoice stock service")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
