// Command cimt computes climate impact metrics from Unified Model output.
//
// Usage:
//
//	cimt run [--spatial-mean] [cimt_interface.ini]
//	cimt metrics
//	cimt info NPP
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/climate-impact-metrics/internal/config"
	"github.com/couchcryptid/climate-impact-metrics/internal/observability"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	slog.SetDefault(logger)

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Error("cimt failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cimt",
		Short:         "Climate Impacts Metrics Tool",
		Long:          "Derives impact metrics from UM simulation ensembles and compares future runs against a baseline.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newMetricsCmd(), newInfoCmd())
	return root
}

// newLogger builds the logger configured by the environment, falling back to
// the default logger when the configuration does not load. runPipeline
// reports configuration errors itself.
func newLogger() *slog.Logger {
	cfg, err := config.Load()
	if err != nil {
		return slog.Default()
	}
	return observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
}
