package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/climate-impact-metrics/internal/config"
	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/couchcryptid/climate-impact-metrics/internal/observability"
)

// ArtifactSink persists selected Fields. Implementations skip, with a
// warning, artifacts that already exist.
type ArtifactSink interface {
	RenderImage(ctx context.Context, name string, f domain.Field) error
	Serialize(ctx context.Context, name string, f domain.Field) error
}

// Runner drives a Pipeline over every configured period: baseline first,
// then each future run instance in order.
type Runner struct {
	settings    *config.Settings
	pipeline    *Pipeline
	sink        ArtifactSink
	logger      *slog.Logger
	metrics     *observability.Metrics
	spatialMean bool
	ready       atomic.Bool

	mu     sync.Mutex
	status domain.RunStatus
}

// NewRunner creates a Runner. With spatialMean set, each instance is also
// reduced to area-weighted time series, which are logged per job.
func NewRunner(s *config.Settings, p *Pipeline, sink ArtifactSink, logger *slog.Logger, metrics *observability.Metrics, spatialMean bool) *Runner {
	return &Runner{
		settings:    s,
		pipeline:    p,
		sink:        sink,
		logger:      logger,
		metrics:     metrics,
		spatialMean: spatialMean,
		status: domain.RunStatus{
			RunID:     p.opts.RunID,
			Metric:    p.def.Key,
			Periods:   slices.Clone(s.Periods),
			Completed: []string{},
		},
	}
}

// CheckReadiness returns nil once the first instance has been loaded.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("runner has not loaded any instance yet")
	}
	return nil
}

// Status returns a snapshot of the run's progress.
func (r *Runner) Status() domain.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.status
	st.Periods = slices.Clone(st.Periods)
	st.Completed = slices.Clone(st.Completed)
	return st
}

func (r *Runner) updateStatus(fn func(*domain.RunStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.status)
}

// Run processes every period and stops at the first error.
func (r *Runner) Run(ctx context.Context) (err error) {
	r.logger.Info("run started",
		"metric", r.pipeline.def.Key,
		"comparison", string(r.settings.Comparison),
		"periods", r.settings.Periods,
		"futures", len(r.settings.Futures),
	)
	r.metrics.PipelineRunning.Set(1)
	defer r.metrics.PipelineRunning.Set(0)
	r.updateStatus(func(st *domain.RunStatus) { st.StartedAt = domain.Clock().Now().UTC() })
	defer func() {
		r.updateStatus(func(st *domain.RunStatus) {
			st.Current, st.Done = "", true
			if err != nil {
				st.Error = err.Error()
			}
		})
	}()

	for _, period := range r.settings.Periods {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.updateStatus(func(st *domain.RunStatus) { st.Current = period })
		if err := r.runPeriod(ctx, period); err != nil {
			r.metrics.RunFailures.Inc()
			return err
		}
		r.updateStatus(func(st *domain.RunStatus) { st.Completed = append(st.Completed, period) })
	}
	r.logger.Info("run complete", "metric", r.pipeline.def.Key)
	return nil
}

func (r *Runner) runPeriod(ctx context.Context, period string) error {
	base, err := r.reduce(ctx, r.settings.Base, domain.BaselineRole(), period)
	if err != nil {
		return err
	}

	if r.settings.Comparison == config.ComparisonBaseOnly {
		return r.save(ctx, base, nil)
	}

	for i, run := range r.settings.Futures {
		if err := ctx.Err(); err != nil {
			return err
		}
		future, err := r.reduce(ctx, run, domain.FutureRole(i), period)
		if err != nil {
			return err
		}
		if future, err = r.pipeline.Subtract(future, base); err != nil {
			return err
		}
		if err := r.save(ctx, future, &base); err != nil {
			return err
		}
	}
	return nil
}

// reduce loads one instance and runs the temporal, optional spatial and
// ensemble reductions.
func (r *Runner) reduce(ctx context.Context, run domain.RunSpec, role domain.Role, period string) (Instance, error) {
	inst, err := r.pipeline.LoadModify(ctx, run, role, period)
	if err != nil {
		return Instance{}, err
	}
	r.ready.Store(true)

	if inst, err = r.pipeline.TemporalMean(inst); err != nil {
		return Instance{}, err
	}
	if r.spatialMean {
		if inst, err = r.pipeline.SpatialMean(inst); err != nil {
			return Instance{}, err
		}
		r.logSeries(inst)
	}
	if inst, err = r.pipeline.EnsembleMean(inst); err != nil {
		return Instance{}, err
	}
	return inst, nil
}

func (r *Runner) logSeries(inst Instance) {
	for i, s := range inst.TimeSeries {
		r.logger.Info("spatial mean",
			"metric", inst.Metric.Key,
			"role", inst.Role.String(),
			"period", inst.Period,
			"job", inst.Jobs[i].Job,
			"simulation", inst.Jobs[i].Simulation,
			"years", s.Year,
			"values", s.Values(),
			"units", s.Units,
		)
	}
}

// save writes the instance outputs and then, for comparisons, the base
// outputs, once per enabled format.
func (r *Runner) save(ctx context.Context, inst Instance, base *Instance) error {
	defer r.pipeline.observe("save", domain.Clock().Now())

	fields := inst.Outputs
	if base != nil {
		fields = append(fields[:len(fields):len(fields)], base.Outputs...)
	}

	if r.settings.OutputType.Map() {
		for _, f := range fields {
			if err := r.sink.RenderImage(ctx, f.Name, f); err != nil {
				return fmt.Errorf("render %s: %w", f.Name, err)
			}
		}
	}
	if r.settings.OutputType.MapData() {
		for _, f := range fields {
			if err := r.sink.Serialize(ctx, f.Name, f); err != nil {
				return fmt.Errorf("serialize %s: %w", f.Name, err)
			}
		}
	}
	r.logger.Info("outputs saved",
		"metric", inst.Metric.Key,
		"role", inst.Role.String(),
		"period", inst.Period,
		"artifacts", len(fields),
	)
	return nil
}
