package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/climate-impact-metrics/internal/config"
	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/couchcryptid/climate-impact-metrics/internal/metric"
	"github.com/couchcryptid/climate-impact-metrics/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Provenance attribute values stamped on every loaded Field.
const (
	SourceAttribute    = "Data from Met Office Unified Model"
	CreatedByAttribute = "Climate Impacts Metrics Tool"
)

// FileResolver lists the source files of a simulation for a period.
type FileResolver interface {
	Resolve(simulation, period string) ([]string, error)
}

// Options controls output selection and load parallelism.
type Options struct {
	MapType         config.MapType
	SubtractionType config.SubtractionType
	LoadWorkers     int
	RunID           string
}

// JobID identifies one ensemble member.
type JobID struct {
	Job        string
	Simulation string
}

// Instance holds the state of one metric for one run and period as it moves
// through the stages. Stages return a new Instance and leave their input
// untouched.
type Instance struct {
	Metric domain.MetricDefinition
	Run    domain.RunSpec
	Role   domain.Role
	Period string

	Jobs   []JobID        // pairing order
	Fields []domain.Field // raw per-job Fields, in pairing order

	Maps            []domain.Field
	EnsembleMean    *domain.Field
	MemberAnomalies []domain.Field
	EnsembleAnomaly *domain.Field
	TimeSeries      []domain.Field

	Outputs []domain.Field // selected for persistence, in insertion order
}

// Simulations returns the simulation ids in pairing order.
func (inst Instance) Simulations() []string {
	out := make([]string, len(inst.Jobs))
	for i, j := range inst.Jobs {
		out[i] = j.Simulation
	}
	return out
}

func (inst Instance) withOutputs(fields ...domain.Field) Instance {
	inst.Outputs = append(slices.Clone(inst.Outputs), fields...)
	return inst
}

// Pipeline runs the stages of one metric.
type Pipeline struct {
	def      domain.MetricDefinition
	loader   metric.Loader
	resolver FileResolver
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Pipeline for the metric entry.
func New(entry metric.Entry, resolver FileResolver, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.LoadWorkers < 1 {
		opts.LoadWorkers = 1
	}
	return &Pipeline{
		def:      entry.Definition,
		loader:   entry.Loader,
		resolver: resolver,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
}

// jobFiles is a job with its resolved source files.
type jobFiles struct {
	id    JobID
	files []string
}

// LoadModify resolves and loads every job of run for period, derives the
// year coordinate, converts units, renames, stamps provenance and restricts
// each Field to the run's years. Jobs are ordered by their resolved file
// lists. Any failure aborts the whole instance.
func (p *Pipeline) LoadModify(ctx context.Context, run domain.RunSpec, role domain.Role, period string) (Instance, error) {
	start := domain.Clock().Now()
	defer p.observe("load_modify", start)

	log := p.logger.With("metric", p.def.Key, "role", role.String(), "period", period)
	log.Info("loading fields", "description", run.Description, "jobs", len(run.Jobs))

	jobs := make([]jobFiles, 0, len(run.Jobs))
	for job, sim := range run.Jobs {
		files, err := p.resolver.Resolve(sim, period)
		if err != nil {
			return Instance{}, fmt.Errorf("resolve job %s (%s): %w", job, sim, err)
		}
		jobs = append(jobs, jobFiles{id: JobID{Job: job, Simulation: sim}, files: files})
	}
	slices.SortFunc(jobs, func(a, b jobFiles) int {
		if c := slices.Compare(a.files, b.files); c != 0 {
			return c
		}
		return strings.Compare(a.id.Job, b.id.Job)
	})

	for _, j := range jobs {
		if len(j.files) == 0 {
			return Instance{}, &domain.DataAvailabilityError{
				Metric:     p.def.Key,
				Role:       role,
				Period:     period,
				Job:        j.id.Job,
				Simulation: j.id.Simulation,
				Reason:     "no source files found; check that the period matches the files under DATADIR",
			}
		}
		p.metrics.FilesResolved.Add(float64(len(j.files)))
	}

	createdAt := domain.Clock().Now().UTC().Format(time.RFC3339)
	fields := make([]domain.Field, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.LoadWorkers)
	for i, j := range jobs {
		g.Go(func() error {
			f, err := p.loadJob(gctx, run, period, j, createdAt)
			if err != nil {
				return fmt.Errorf("load job %s (%s): %w", j.id.Job, j.id.Simulation, err)
			}
			fields[i] = f
			log.Info("field loaded", "job", j.id.Job, "simulation", j.id.Simulation, "name", f.Name, "files", len(j.files))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Instance{}, err
	}

	inst := Instance{
		Metric: p.def,
		Run:    run,
		Role:   role,
		Period: period,
		Jobs:   make([]JobID, len(jobs)),
		Fields: fields,
	}
	for i, j := range jobs {
		inst.Jobs[i] = j.id
	}
	p.metrics.FieldsLoaded.WithLabelValues(roleKind(role)).Add(float64(len(fields)))
	return inst, nil
}

func (p *Pipeline) loadJob(ctx context.Context, run domain.RunSpec, period string, j jobFiles, createdAt string) (domain.Field, error) {
	f, err := p.loader.Load(ctx, p.def, j.files)
	if err != nil {
		return domain.Field{}, err
	}
	if f, err = domain.AddYearCoord(f); err != nil {
		return domain.Field{}, err
	}

	f = domain.Scale(f, p.def.UnitFactor)
	f.Units = p.def.Units
	f.Name = domain.JobFieldName(p.def.Key, run, j.id.Simulation, period)
	f = f.WithAttributes(map[string]string{
		"Source":       SourceAttribute,
		"Created by":   CreatedByAttribute,
		"Stash Number": p.def.CodeLabel(),
		"Run ID":       p.opts.RunID,
		"Created at":   createdAt,
	})

	if run.Start != 0 {
		if f, err = domain.ExtractYears(f, run.Start, run.End); err != nil {
			return domain.Field{}, err
		}
	}
	return f, nil
}

func (p *Pipeline) observe(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(domain.Clock().Since(start).Seconds())
}

func roleKind(r domain.Role) string {
	if r.Future {
		return "future"
	}
	return "base"
}
