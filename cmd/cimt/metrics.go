package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/climate-impact-metrics/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-impact-metrics/internal/metric"
	"github.com/spf13/cobra"
)

func defaultRegistry() *metric.Registry {
	return metric.NewDefaultRegistry(netcdf.NewReader(slog.Default()))
}

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the available impact metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available metrics:")
			for _, name := range defaultRegistry().Names() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <metric>",
		Short: "Describe an impact metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := defaultRegistry().Lookup(args[0])
			if err != nil {
				return err
			}
			d := entry.Definition
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Metric:       %s\n", d.Key)
			fmt.Fprintf(out, "Name:         %s\n", d.Name)
			fmt.Fprintf(out, "STASH codes:  %s\n", strings.Join(d.Codes, ", "))
			fmt.Fprintf(out, "Units:        %s\n", d.Units)
			fmt.Fprintf(out, "Unit factor:  %g\n", d.UnitFactor)
			if len(d.Levels) > 0 {
				fmt.Fprintf(out, "Levels:       %v\n", d.Levels)
			}
			return nil
		},
	}
}
