package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/climate-impact-metrics/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/climate-impact-metrics/internal/adapter/kafka"
	"github.com/couchcryptid/climate-impact-metrics/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-impact-metrics/internal/config"
	"github.com/couchcryptid/climate-impact-metrics/internal/metric"
	"github.com/couchcryptid/climate-impact-metrics/internal/observability"
	"github.com/couchcryptid/climate-impact-metrics/internal/output"
	"github.com/couchcryptid/climate-impact-metrics/internal/pipeline"
	"github.com/couchcryptid/climate-impact-metrics/internal/resolver"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const defaultInterfaceFile = "cimt_interface.ini"

func newRunCmd() *cobra.Command {
	var spatialMean bool
	cmd := &cobra.Command{
		Use:   "run [interface-file]",
		Short: "Compute the metric configured in an interface file",
		Long: "Loads every job of the baseline and future runs, reduces them to maps and ensemble means, " +
			"differences future against baseline and writes the selected artifacts. " +
			"The interface file defaults to " + defaultInterfaceFile + "; .yaml and .yml files are read as YAML.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultInterfaceFile
			if len(args) == 1 {
				path = args[0]
			}
			return runPipeline(cmd.Context(), path, spatialMean)
		},
	}
	cmd.Flags().BoolVar(&spatialMean, "spatial-mean", false, "also reduce each job to an area-weighted time series and log it")
	return cmd
}

func runPipeline(ctx context.Context, path string, spatialMean bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	settings, err := config.LoadSettings(path)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	src := netcdf.NewCachedReader(netcdf.NewReader(logger), cfg.SourceCacheSize, metrics.SourceCache)
	entry, err := metric.NewDefaultRegistry(src).Lookup(settings.ImpactMetric)
	if err != nil {
		return err
	}

	store, err := newStore(ctx, cfg, settings, logger)
	if err != nil {
		return err
	}

	var notifier output.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		notifier = writer
		logger.Info("artifact notifications enabled", "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(entry, resolver.New(settings.DataDir, settings.SourceSuffix), pipeline.Options{
		MapType:         settings.MapType,
		SubtractionType: settings.SubtractionType,
		LoadWorkers:     settings.LoadWorkers,
		RunID:           runID,
	}, logger, metrics)
	runner := pipeline.NewRunner(settings, p, output.NewSink(store, notifier, logger, metrics), logger, metrics, spatialMean)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, runner, runner, prometheus.DefaultGatherer, logger)
		srv.StartBackground()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	runErr := runner.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		logger.Info("run cancelled")
	}

	if cfg.PushgatewayURL != "" {
		if err := observability.Push(cfg.PushgatewayURL, runID, prometheus.DefaultGatherer); err != nil {
			logger.Error("metrics push failed", "error", err)
		}
	}
	return runErr
}

func newStore(ctx context.Context, cfg *config.Config, settings *config.Settings, logger *slog.Logger) (output.Store, error) {
	if cfg.Store != config.StoreS3 {
		return output.NewLocalStore(settings.SaveDir)
	}
	client, err := output.NewS3Client(cfg.S3)
	if err != nil {
		return nil, err
	}
	logger.Info("using s3 artifact store", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)
	return output.NewS3Store(ctx, client, cfg.S3.Bucket, cfg.S3.Region, strings.Trim(settings.SaveDir, "/"))
}
