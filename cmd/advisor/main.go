package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"budgetadvisor/internal/backend"
	"budgetadvisor/internal/cli"
	apphttp "budgetadvisor/internal/http"
	"budgetadvisor/internal/log"
	"budgetadvisor/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "advisor:", err)
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
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.Logger).Create(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	sessions, err := apphttp.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies)
	if err != nil {
		res.Cleanup()
		return err
	}
	if cfg.SessionSecret == "" {
		logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		HistoryLimit:       cfg.HistoryLimit,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, apphttp.Dependencies{
		Credentials: services.NewCredentialService(res.Store),
		Advice:      services.NewAdviceService(nil, res.Store, res.Publisher),
		Sessions:    sessions,
		Store:       res.Store,
		Logger:      logger.WithComponent(log.ComponentHTTP),
	})
	if err != nil {
		res.Cleanup()
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting advisor server", "port", cfg.Port, "backend", cfg.DataBackend,
			"amqp", res.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", "error", err, "port", cfg.Port)
			res.Cleanup()
			srv.Close()
			return err
		}
	}

	return cli.GracefulShutdown(logger, 30*time.Second,
		srv.Shutdown,
		func(context.Context) error { return res.Cleanup() },
	)
}
