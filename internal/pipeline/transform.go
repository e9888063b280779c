package pipeline

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
)

// TemporalMean collapses each per-job Field over time into a map. Maps join
// the outputs when per-run maps and per-member results are both enabled.
func (p *Pipeline) TemporalMean(inst Instance) (Instance, error) {
	defer p.observe("temporal_mean", domain.Clock().Now())

	maps := make([]domain.Field, len(inst.Fields))
	for i, f := range inst.Fields {
		m, err := domain.CollapseTime(f)
		if err != nil {
			return Instance{}, fmt.Errorf("temporal mean (%s, %s): %w", inst.Role, inst.Period, err)
		}
		maps[i] = m
	}
	inst.Maps = maps
	if p.opts.MapType.PreSubtraction() && p.opts.SubtractionType.EachMember() {
		inst = inst.withOutputs(maps...)
	}
	return inst, nil
}

// SpatialMean reduces each per-job Field to an area-weighted time series.
// Repeated calls replace the previous series.
func (p *Pipeline) SpatialMean(inst Instance) (Instance, error) {
	defer p.observe("spatial_mean", domain.Clock().Now())

	series := make([]domain.Field, len(inst.Fields))
	for i, f := range inst.Fields {
		s, err := domain.AreaWeightedMean(f)
		if err != nil {
			return Instance{}, fmt.Errorf("spatial mean (%s, %s): %w", inst.Role, inst.Period, err)
		}
		series[i] = s
	}
	inst.TimeSeries = series
	return inst, nil
}

// EnsembleMean averages the instance maps. A single member is kept as is.
func (p *Pipeline) EnsembleMean(inst Instance) (Instance, error) {
	defer p.observe("ensemble_mean", domain.Clock().Now())

	if len(inst.Maps) == 0 {
		return Instance{}, fmt.Errorf("ensemble mean (%s, %s): no maps; run TemporalMean first", inst.Role, inst.Period)
	}

	mean := inst.Maps[0].Clone()
	if len(inst.Maps) > 1 {
		var err error
		if mean, err = domain.Mean(inst.Maps); err != nil {
			return Instance{}, fmt.Errorf("ensemble mean (%s, %s): %w", inst.Role, inst.Period, err)
		}
		mean.Units = inst.Metric.Units
		mean.Name = domain.EnsembleFieldName(inst.Metric.Key, inst.Run.Description, inst.Period)
	}
	inst.EnsembleMean = &mean
	if p.opts.MapType.PreSubtraction() && p.opts.SubtractionType.EnsembleMean() {
		inst = inst.withOutputs(mean)
	}
	return inst, nil
}

// Subtract differences future against the finished baseline instance. Members
// are paired by position in their pairing order.
func (p *Pipeline) Subtract(future, base Instance) (Instance, error) {
	defer p.observe("subtract", domain.Clock().Now())

	var anomalies []domain.Field
	if p.opts.SubtractionType.EachMember() {
		members, err := p.subtractMembers(future, base)
		if err != nil {
			return Instance{}, err
		}
		future.MemberAnomalies = members
		anomalies = append(anomalies, members...)
	}

	if p.opts.SubtractionType.EnsembleMean() {
		if future.EnsembleMean == nil || base.EnsembleMean == nil {
			return Instance{}, fmt.Errorf("subtract (%s, %s): ensemble means missing; run EnsembleMean on both instances first", future.Role, future.Period)
		}
		diff, err := domain.Subtract(*future.EnsembleMean, *base.EnsembleMean)
		if err != nil {
			return Instance{}, p.alignmentError(future, base, err.Error())
		}
		diff.Units = p.def.Units
		diff.Name = domain.AnomalyFieldName(p.def.Key, future.Run.Description, base.Run.Description, base.Run, future.Period)
		future.EnsembleAnomaly = &diff
		anomalies = append(anomalies, diff)
	}

	if p.opts.MapType.Anomaly() {
		future = future.withOutputs(anomalies...)
	}
	return future, nil
}

func (p *Pipeline) subtractMembers(future, base Instance) ([]domain.Field, error) {
	if len(future.Maps) != len(base.Maps) {
		return nil, p.alignmentError(future, base,
			fmt.Sprintf("future run has %d members but base run has %d", len(future.Maps), len(base.Maps)))
	}
	out := make([]domain.Field, len(future.Maps))
	for i := range future.Maps {
		diff, err := domain.Subtract(future.Maps[i], base.Maps[i])
		if err != nil {
			return nil, p.alignmentError(future, base, err.Error())
		}
		diff.Units = p.def.Units
		diff.Name = domain.AnomalyFieldName(p.def.Key,
			future.Jobs[i].Simulation, base.Jobs[i].Simulation, base.Run, future.Period)
		out[i] = diff
	}
	return out, nil
}

func (p *Pipeline) alignmentError(future, base Instance, reason string) error {
	return &domain.AlignmentError{
		Metric:     p.def.Key,
		Period:     future.Period,
		FutureJobs: slices.Clone(future.Simulations()),
		BaseJobs:   slices.Clone(base.Simulations()),
		Reason:     reason,
	}
}
