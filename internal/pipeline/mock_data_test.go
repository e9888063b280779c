package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/climate-impact-metrics/internal/config"
	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/couchcryptid/climate-impact-metrics/internal/metric"
	"github.com/couchcryptid/climate-impact-metrics/internal/observability"
	"github.com/couchcryptid/climate-impact-metrics/internal/pipeline"
)

// --- mocks ---

// simulation describes the synthetic source of one simulation: every cell
// of year index i holds base + i, starting at firstYear.
type simulation struct {
	base      float64
	firstYear int
	years     int
}

var simulations = map[string]simulation{
	"simA": {base: 1, firstYear: 1990, years: 3},
	"simB": {base: 3, firstYear: 1990, years: 3},
	"simC": {base: 10, firstYear: 2090, years: 3},
	"simD": {base: 20, firstYear: 2090, years: 3},
}

func sourcePath(sim string) string {
	return fmt.Sprintf("/data/%s/%sa.py%d.nc", sim, sim, simulations[sim].firstYear)
}

type mockResolver struct {
	missing map[string]bool
	err     error
}

func (m *mockResolver) Resolve(sim, _ string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.missing[sim] {
		return nil, nil
	}
	return []string{sourcePath(sim)}, nil
}

type mockLoader struct {
	err error

	delay    time.Duration
	active   atomic.Int32
	mu       sync.Mutex
	peak     int32
	loadedBy []string
}

func (m *mockLoader) Load(ctx context.Context, _ domain.MetricDefinition, files []string) (domain.Field, error) {
	n := m.active.Add(1)
	defer m.active.Add(-1)
	m.mu.Lock()
	m.peak = max(m.peak, n)
	m.loadedBy = append(m.loadedBy, files[0])
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.Field{}, ctx.Err()
		}
	}
	if m.err != nil {
		return domain.Field{}, m.err
	}
	for name, sim := range simulations {
		if sourcePath(name) == files[0] {
			return sim.field(), nil
		}
	}
	return domain.Field{}, errors.New("unknown source " + files[0])
}

func (s simulation) field() domain.Field {
	dims := []string{domain.DimTime, domain.DimLatitude, domain.DimLongitude}
	f := domain.NewField("net_primary_productivity", "kg m-2 s-1", dims, []int{s.years, 2, 2})
	f.TimeUnits = fmt.Sprintf("days since %d-01-01 00:00:00", s.firstYear)
	f.Calendar = domain.Calendar360Day
	f.Lat = []float64{-45, 45}
	f.Lon = []float64{0, 180}
	for i := 0; i < s.years; i++ {
		f.Time = append(f.Time, float64(i*360+180))
		for c := 0; c < 4; c++ {
			f.Data.Elements[i*4+c] = s.base + float64(i)
		}
	}
	return f
}

type recordingSink struct {
	calls []string
	err   error
}

func (s *recordingSink) RenderImage(_ context.Context, name string, _ domain.Field) error {
	s.calls = append(s.calls, "map:"+name)
	return s.err
}

func (s *recordingSink) Serialize(_ context.Context, name string, _ domain.Field) error {
	s.calls = append(s.calls, "map_data:"+name)
	return s.err
}

// --- fixtures ---

var nppDefinition = domain.MetricDefinition{
	Key:        "NPP",
	Name:       "Net_Primary_Productivity",
	Codes:      []string{"m01s03i262"},
	UnitFactor: 2,
	Units:      "kg m-2 yr-1",
}

func baseRun() domain.RunSpec {
	return domain.RunSpec{
		Description: "Historical", Start: 1990, End: 1991,
		Jobs: map[string]string{"job1": "simB", "job2": "simA"},
	}
}

func futureRun() domain.RunSpec {
	return domain.RunSpec{
		Description: "RCP85", Start: 2090, End: 2091,
		Jobs: map[string]string{"job1": "simC", "job2": "simD"},
	}
}

func allOptions() pipeline.Options {
	return pipeline.Options{
		MapType:         config.MapBoth,
		SubtractionType: config.SubtractBoth,
		LoadWorkers:     1,
		RunID:           "run-1",
	}
}

func newTestPipeline(t *testing.T, loader metric.Loader, res pipeline.FileResolver, opts pipeline.Options) (*pipeline.Pipeline, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	entry := metric.Entry{Definition: nppDefinition, Loader: loader}
	return pipeline.New(entry, res, opts, slog.Default(), metrics), metrics
}

func names(fields []domain.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}
