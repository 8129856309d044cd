package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetadvisor/internal/amqp"
	"budgetadvisor/internal/cli"
	"budgetadvisor/internal/log"
	"budgetadvisor/internal/services"
	gsheet "budgetadvisor/internal/sheets/google"
	"budgetadvisor/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "advisor-worker:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := cli.LoadEnvFile(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateWorker(); err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting advisor-worker")

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return fmt.Errorf("init google sheets: %w", err)
	}
	if err := sheetsClient.EnsureHeader(ctx); err != nil {
		logger.Error("Failed to write sheet header", "error", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("init amqp: %w", err)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(repo, sheetsClient, cfg.ExportBatchSize)

	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupExportCheck(ctx); err != nil {
		logger.Error("Failed startup export check", "error", err)
	}

	processor := services.NewExportProcessor(exportWorker, services.ExportProcessorConfig{
		PollInterval: cfg.ExportInterval,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeAdviceRecorded(gctx, exportWorker.HandleAdviceRecorded)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("consume messages: %w", err)
	})
	g.Go(func() error {
		if err := processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return processor.Stop(stopCtx)
	})

	err = g.Wait()
	if err != nil {
		logger.Error("Worker stopped with error", "error", err)
		return err
	}
	logger.Info("Worker shutdown complete")
	return nil
}
