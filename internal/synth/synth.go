// Package synth writes synthetic UM-like NetCDF source files laid out the
// way the resolver expects them: one file per year under {dir}/{simulation}.
package synth

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/climate-impact-metrics/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
)

// TimeUnits and Calendar match UM PP-derived NetCDF output.
const (
	TimeUnits = "days since 1859-12-01 00:00:00"
	Calendar  = domain.Calendar360Day
)

// unitsYear is the year of TimeUnits' reference date; the reference day is
// day 330 of that year in a 360-day calendar.
const (
	unitsYear = 1859
	unitsDay  = 330
)

// day of year at the centre of each period.
var periodCentre = map[string]int{
	domain.PeriodAnnualName: 180,
	"djf":                   15,
	"mam":                   105,
	"jja":                   195,
	"son":                   285,
}

// Spec describes one simulation's synthetic output.
type Spec struct {
	Simulation string
	Period     string // "ann" or a season
	StartYear  int
	Years      int
	NLat, NLon int
	Suffix     string // default ".nc"

	// Value at a cell is Base + Trend*(year-StartYear) + Amplitude*cos(lat),
	// scaled by the level number on layered quantities and by 1+0.5*i for
	// the i-th code of the metric.
	Base, Trend, Amplitude float64
}

func (s Spec) validate() error {
	if s.Simulation == "" || strings.ContainsAny(s.Simulation, `/\`) {
		return fmt.Errorf("synth: invalid simulation id %q", s.Simulation)
	}
	if _, ok := periodCentre[s.Period]; !ok {
		return fmt.Errorf("synth: unsupported period %q", s.Period)
	}
	if s.Years < 1 || s.NLat < 2 || s.NLon < 2 {
		return fmt.Errorf("synth: need at least 1 year and a 2x2 grid, got %d years %dx%d", s.Years, s.NLat, s.NLon)
	}
	return nil
}

// FileName is the source file name of one simulation year.
func FileName(simulation, period string, year int, suffix string) string {
	if suffix == "" {
		suffix = ".nc"
	}
	if period == domain.PeriodAnnualName {
		return fmt.Sprintf("%sa.py%d%s", simulation, year, suffix)
	}
	return fmt.Sprintf("%sa.ps%d%s%s", simulation, year, period, suffix)
}

// Grid returns evenly spaced cell centres for a global nlat x nlon grid.
func Grid(nlat, nlon int) (lat, lon []float64) {
	dlat, dlon := 180/float64(nlat), 360/float64(nlon)
	for j := 0; j < nlat; j++ {
		lat = append(lat, -90+dlat/2+float64(j)*dlat)
	}
	for i := 0; i < nlon; i++ {
		lon = append(lon, dlon/2+float64(i)*dlon)
	}
	return lat, lon
}

// TimeValue is the time coordinate at the centre of period in year.
func TimeValue(period string, year int) float64 {
	return float64((year-unitsYear)*360 - unitsDay + periodCentre[period])
}

// Generate writes Years files for the quantities of def and returns their
// paths in ascending order.
func Generate(dataDir string, def domain.MetricDefinition, s Spec) ([]string, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if len(def.Codes) == 0 {
		return nil, fmt.Errorf("synth: metric %s has no codes", def.Key)
	}
	dir := filepath.Join(dataDir, s.Simulation)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("synth: %w", err)
	}

	paths := make([]string, 0, s.Years)
	for y := s.StartYear; y < s.StartYear+s.Years; y++ {
		fields := make([]domain.Field, len(def.Codes))
		for i, code := range def.Codes {
			fields[i] = quantity(def, s, code, i, y)
		}
		path := filepath.Join(dir, FileName(s.Simulation, s.Period, y, s.Suffix))
		if err := netcdf.WriteDataset(path, fields); err != nil {
			return nil, fmt.Errorf("synth: %w", err)
		}
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths, nil
}

func quantity(def domain.MetricDefinition, s Spec, code string, index, year int) domain.Field {
	lat, lon := Grid(s.NLat, s.NLon)
	levels := []int{1}
	dims := []string{domain.DimTime, domain.DimLatitude, domain.DimLongitude}
	shape := []int{1, s.NLat, s.NLon}
	if len(def.Levels) > 0 {
		levels = make([]int, slices.Max(def.Levels))
		for i := range levels {
			levels[i] = i + 1
		}
		dims = []string{domain.DimTime, domain.DimSoilLevel, domain.DimLatitude, domain.DimLongitude}
		shape = []int{1, len(levels), s.NLat, s.NLon}
	}

	f := domain.NewField("stash_"+code, "", dims, shape)
	f.Attributes = map[string]string{"um_stash_source": code, "source": "synthetic"}
	f.Time = []float64{TimeValue(s.Period, year)}
	f.TimeUnits = TimeUnits
	f.Calendar = Calendar
	f.Lat, f.Lon = lat, lon
	if len(def.Levels) > 0 {
		f.LevelName, f.Levels = domain.DimSoilLevel, levels
	}

	codeScale := 1 + 0.5*float64(index)
	pos := 0
	for _, level := range levels {
		for _, la := range lat {
			v := s.Base + s.Trend*float64(year-s.StartYear) + s.Amplitude*math.Cos(la*math.Pi/180)
			for range lon {
				f.Data.Elements[pos] = v * float64(level) * codeScale
				pos++
			}
		}
	}
	return f
}
