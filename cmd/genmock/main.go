// Command genmock writes synthetic UM source files for every simulation named
// in an interface file, so a run can be exercised without model output. Each
// simulation gets one file per year covering every run and period it is used
// in, under the interface file's DATADIR.
//
// Usage:
//
//	go run ./cmd/genmock -interface cimt_interface.ini -nlat 18 -nlon 36
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/couchcryptid/climate-impact-metrics/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-impact-metrics/internal/config"
	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/couchcryptid/climate-impact-metrics/internal/metric"
	"github.com/couchcryptid/climate-impact-metrics/internal/synth"
)

// span is the inclusive year range a simulation must cover.
type span struct{ start, end int }

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	iface := flag.String("interface", "cimt_interface.ini", "interface file naming DATADIR, the metric and the jobs")
	nlat := flag.Int("nlat", 18, "latitude cells")
	nlon := flag.Int("nlon", 36, "longitude cells")
	base := flag.Float64("base", 1e-8, "value of the first simulation in its first year, before unit scaling")
	step := flag.Float64("step", 0.1, "fractional offset added per simulation, in sorted simulation order")
	trend := flag.Float64("trend", 1e-10, "change per year")
	amplitude := flag.Float64("amplitude", 5e-9, "cos(latitude) amplitude")
	flag.Parse()

	settings, err := config.LoadSettings(*iface)
	if err != nil {
		return err
	}
	entry, err := metric.NewDefaultRegistry(netcdf.NewReader(slog.Default())).Lookup(settings.ImpactMetric)
	if err != nil {
		return err
	}

	spans := simulationSpans(settings)
	sims := slices.Sorted(maps.Keys(spans))
	suffix := settings.SourceSuffix
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}

	var total int
	for i, sim := range sims {
		s := spans[sim]
		for _, period := range settings.Periods {
			paths, err := synth.Generate(settings.DataDir, entry.Definition, synth.Spec{
				Simulation: sim,
				Period:     period,
				StartYear:  s.start,
				Years:      s.end - s.start + 1,
				NLat:       *nlat,
				NLon:       *nlon,
				Suffix:     suffix,
				Base:       *base * (1 + *step*float64(i)),
				Trend:      *trend,
				Amplitude:  *amplitude,
			})
			if err != nil {
				return fmt.Errorf("generating %s %s: %w", sim, period, err)
			}
			total += len(paths)
			log.Printf("%s %s: %d files (%d-%d)", sim, period, len(paths), s.start, s.end)
		}
	}
	log.Printf("total: %d files for %s under %s", total, entry.Definition.Key, settings.DataDir)
	return nil
}

// simulationSpans merges the year ranges of every run a simulation appears
// in. Runs without a year range get a single year.
func simulationSpans(settings *config.Settings) map[string]span {
	spans := make(map[string]span)
	runs := append([]domain.RunSpec{settings.Base}, settings.Futures...)
	for _, r := range runs {
		rs := span{start: r.Start, end: r.End}
		if rs.start == 0 {
			rs = span{start: 2000, end: 2000}
		}
		for _, sim := range r.Jobs {
			cur, ok := spans[sim]
			if !ok {
				spans[sim] = rs
				continue
			}
			spans[sim] = span{start: min(cur.start, rs.start), end: max(cur.end, rs.end)}
		}
	}
	return spans
}
