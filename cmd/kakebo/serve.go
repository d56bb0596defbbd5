package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kakebo/internal/cli"
	apphttp "kakebo/internal/http"
	"kakebo/internal/log"
	"kakebo/web"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API and web UI",
		RunE:  runServe,
	}
	cmd.Flags().String("port", "", "HTTP port")
	_ = viper.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, nil)

	ctx, cancel := cli.SignalContext(cmd.Context(), logger)
	defer cancel()

	rt, err := cli.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize ledger: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("Failed to close ledger", log.FieldError, err)
		}
	}()

	assets, err := web.Assets()
	if err != nil {
		logger.Warn("Failed to mount embedded assets, serving API only", log.FieldError, err)
		assets = nil
	}

	srv := apphttp.NewServer(":"+cfg.Port, rt.Ledger, rt.Reports, rt.Store, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ReportCacheTTL:     cfg.ReportCacheTTL,
		TrustedProxies:     cfg.TrustedProxies,
		Assets:             assets,
		Logger:             logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 20

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			"addr", srv.Addr,
			"backend", cfg.DataBackend,
			"events", cfg.EventsBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
