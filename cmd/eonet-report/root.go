package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/eonet-report/internal/adapter/eonet"
	kafkaadapter "github.com/couchcryptid/eonet-report/internal/adapter/kafka"
	"github.com/couchcryptid/eonet-report/internal/adapter/mail"
	"github.com/couchcryptid/eonet-report/internal/adapter/postgres"
	"github.com/couchcryptid/eonet-report/internal/adapter/xlsx"
	"github.com/couchcryptid/eonet-report/internal/config"
	"github.com/couchcryptid/eonet-report/internal/domain"
	"github.com/couchcryptid/eonet-report/internal/observability"
	"github.com/couchcryptid/eonet-report/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var o config.Overrides

	cmd := &cobra.Command{
		Use:   "eonet-report",
		Short: "Email a monthly spreadsheet of EONET wildfires, storms and landslides",
		Long: `eonet-report fetches recently closed events from NASA's EONET API,
stores the events of the target month in PostgreSQL, exports them to
EONET_data_<month>.xlsx and emails the workbook to the report recipient.

Settings are read from the environment; flags override them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithOverrides(o)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&o.Recipient, "recipient", "", "report recipient address (overrides REPORT_RECIPIENT)")
	cmd.Flags().StringVar(&o.TargetMonth, "month", "", "target month as YYYY-MM (overrides TARGET_MONTH, default previous month)")
	cmd.Flags().BoolVar(&o.DryRun, "dry-run", false, "build the report without sending email (overrides DRY_RUN)")
	cmd.Flags().StringVar(&o.OutputDir, "output-dir", "", "also save the workbook to this directory (overrides OUTPUT_DIR)")

	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	if err := postgres.Migrate(cfg.DatabaseURL, logger); err != nil {
		return err
	}
	store, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	stages := pipeline.Stages{
		Fetcher:  eonet.NewClient(cfg, metrics, logger),
		Store:    store,
		Exporter: xlsx.NewExporter(cfg.OutputDir, logger),
	}

	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		stages.Publisher = writer
		logger.Info("row publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	if !cfg.DryRun {
		notifier, err := mail.NewNotifier(cfg, logger)
		if err != nil {
			return err
		}
		stages.Notifier = notifier
	}

	runner := pipeline.New(stages, pipeline.Options{
		Categories:  cfg.EONETCategories,
		TargetMonth: cfg.TargetMonth,
		Normalize: domain.NormalizeOptions{
			Filter:   cfg.FilterMode.Filter(),
			Strategy: cfg.Strategy,
			Policy:   cfg.RecordErrorPolicy,
		},
		DryRun: cfg.DryRun,
	}, logger, metrics)

	sum, runErr := runner.Run(ctx)

	if cfg.PushgatewayURL != "" {
		pushCtx, pushCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer pushCancel()
		if err := observability.Push(pushCtx, cfg.PushgatewayURL, prometheus.DefaultGatherer); err != nil {
			logger.Error("metrics push failed", "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	logger.Info("report complete",
		"run_id", sum.RunID.String(),
		"attachment", sum.Attachment,
		"rows", sum.RowsStored,
		"delivered", sum.Delivered,
	)
	return nil
}
