// Command ledger-worker mirrors every changed ledger into its own tab of the
// configured Google Sheet. It listens for change events on the AMQP exchange
// the server publishes to and reads the records from the shared database.
package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/export"
	"ledger/internal/log"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ValidateSheets(); err != nil {
		return err
	}
	if err := cfg.ValidateWorker(); err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	be, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()
	if be.Relay == nil {
		return errors.New("AMQP broker unreachable: the worker cannot run without change events")
	}

	svc, err := export.NewSheetsService(ctx, cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		return err
	}
	sink := export.NewSheetsSink(svc, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)

	w := worker.NewSyncWorker(be.Load, sink, worker.Config{
		FlushInterval: cfg.MirrorFlushInterval,
		MaxRetries:    cfg.MirrorMaxRetries,
	}, logger)

	logger.Info("Starting ledger worker",
		"backend", cfg.DataBackend,
		"exchange", cfg.AMQPExchange,
		"spreadsheet_id", cfg.GoogleSpreadsheetID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return be.Relay.Relay(gctx, w)
	})
	g.Go(func() error {
		return w.Run(gctx)
	})
	return g.Wait()
}
