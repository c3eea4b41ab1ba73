package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"covcall/config"
	"covcall/internal/dashboard"
	"covcall/internal/growth"
	"covcall/internal/marketdata"
	"covcall/internal/positions"
	"covcall/internal/risk"
	"covcall/internal/scanner"
	"covcall/internal/whale"
	"covcall/pkg/storage/postgres"

	"go.uber.org/zap"
)

// Start wires the engine together and serves the dashboard until SIGINT or
// SIGTERM.
func Start(cfg *config.Config, log *zap.Logger) error {
	fetcher := marketdata.NewFetcher(cfg.Market, log)
	analyzer := growth.NewAnalyzer(log)
	sc := scanner.NewScanner(cfg.Scanner, fetcher, analyzer, log)
	monitor := risk.NewMonitor(cfg.Risk, fetcher, log)
	tracker := whale.NewTracker(fetcher, 0, log)

	pos, err := positions.NewManager(cfg.Positions.File, log)
	if err != nil {
		return err
	}

	// The trade decision log is optional; the rest of the dashboard works
	// without it.
	var trades *postgres.PostgresClient
	if cfg.Dashboard.EnableTradeDB {
		trades, err = postgres.InitializeAndMigrateTradeRecord(cfg.Postgres, true)
		if err != nil {
			log.Warn("trade log unavailable, continuing without it", zap.Error(err))
			trades = nil
		} else {
			defer trades.Close()
			log.Info("trade log connected", zap.String("dbname", cfg.Postgres.DBName))
		}
	}

	srv := dashboard.NewServer(cfg.Dashboard, fetcher, sc, monitor, tracker, pos, trades, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
