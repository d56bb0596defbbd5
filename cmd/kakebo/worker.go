package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kakebo/internal/cli"
	"kakebo/internal/log"
	"kakebo/internal/worker"
)

func workerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Export yearly reports on ledger events and on a schedule",
		Long: `worker consumes ledger events from AMQP or Kafka and re-exports the yearly
report of the affected year. EXPORT_SCHEDULE additionally exports the current
year on a cron schedule. With --once it exports a single year and exits.`,
		RunE: runWorker,
	}
	cmd.Flags().Bool("once", false, "export one year and exit")
	cmd.Flags().Int("year", 0, "year to export with --once (default: current year)")
	return cmd
}

func runWorker(cmd *cobra.Command, _ []string) error {
	once, _ := cmd.Flags().GetBool("once")
	year, _ := cmd.Flags().GetInt("year")

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

	exporter, err := rt.Factory.CreateExporter(ctx, rt.Backend)
	if err != nil {
		return err
	}
	w := worker.NewExportWorker(rt.Reports, exporter, logger)

	if once {
		if year == 0 {
			year = time.Now().Year()
		}
		return w.ExportYear(ctx, year)
	}

	sub, err := rt.Factory.CreateSubscriber(rt.Backend)
	if err != nil {
		return err
	}
	if sub != nil {
		defer func() {
			if err := sub.Close(); err != nil {
				logger.Warn("Failed to close subscriber", log.FieldError, err)
			}
		}()
	}

	logger.Info("Starting export worker", "events", cfg.EventsBackend, "schedule", cfg.ExportSchedule)
	return w.Run(ctx, sub, cfg.ExportSchedule)
}
