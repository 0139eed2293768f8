// Package cli provides common CLI initialization utilities shared by
// cmd/ledger, cmd/ledger-export and cmd/ledger-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/config"
	"ledger/internal/connections"
	"ledger/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at the configured level and installs
// it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), Component: log.ComponentApp})
	log.SetDefault(logger)
	return logger
}

// OpenBackend creates the configured record and profile stores.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.Backend, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	be, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", cfg.DataBackend, err)
	}
	return be, nil
}

// NewDirectory wires the connection directory over be's profile store with
// the configured cache. The cache is returned so a janitor can sweep it; it
// is nil when caching is disabled.
func NewDirectory(cfg *config.Config, be *backend.Backend, logger *log.Logger) (*connections.Directory, *cache.LRU[string, []string]) {
	profileCache := cache.NewLRU[string, []string](cfg.ProfileCacheSize, cfg.ProfileCacheTTL)
	d := connections.NewDirectory(be.Profiles,
		connections.WithCache(profileCache),
		connections.WithLogger(logger))
	return d, profileCache
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The
// received signal is logged. Call stop to release the signal handler.
func SignalContext(parent context.Context, logger *log.Logger) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
