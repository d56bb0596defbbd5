// Package cli provides common start-up helpers for the kakebo commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"kakebo/internal/backend"
	"kakebo/internal/config"
	"kakebo/internal/log"
	"kakebo/internal/ports"
	"kakebo/internal/services"
)

// LoadEnvFile loads .env for local development. A missing file is ignored.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from configuration and installs
// it as the slog default.
func SetupLogger(cfg *config.Config, out io.Writer) *log.Logger {
	if out == nil {
		out = os.Stdout
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig reads the configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Runtime is the wired ledger: store, event publisher and services.
type Runtime struct {
	Backend backend.Config
	Factory backend.Factory
	Store   ports.Store
	Ledger  *services.LedgerService
	Reports *services.ReportService

	cleanup backend.CleanupFunc
}

// NewRuntime opens the configured store and publisher. Close releases both.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Runtime, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}
	factory := backend.NewFactory(logger)

	result, err := factory.CreateStore(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	publisher := factory.CreatePublisher(bcfg)

	return &Runtime{
		Backend: bcfg,
		Factory: factory,
		Store:   result.Store,
		Ledger:  services.NewLedgerService(result.Store, publisher, logger),
		Reports: services.NewReportService(result.Store, logger),
		cleanup: result.Cleanup,
	}, nil
}

func (r *Runtime) Close() error {
	var errs []error
	if err := r.Ledger.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if r.cleanup != nil {
		if err := r.cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
