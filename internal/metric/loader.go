// Package metric binds metric definitions to the loaders that derive their
// raw Fields from source files.
package metric

import (
	"context"
	"fmt"

	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
)

// SourceReader reads one quantity, identified by its STASH code, from a
// sorted list of source files into a Field.
type SourceReader interface {
	ReadQuantity(ctx context.Context, code string, files []string) (domain.Field, error)
}

// Loader derives the raw Field of a metric from one job's source files.
type Loader interface {
	Load(ctx context.Context, def domain.MetricDefinition, files []string) (domain.Field, error)
}

// Direct loads a single quantity unchanged.
type Direct struct {
	Source SourceReader
}

func (l Direct) Load(ctx context.Context, def domain.MetricDefinition, files []string) (domain.Field, error) {
	if len(def.Codes) != 1 {
		return domain.Field{}, fmt.Errorf("load %s: direct loader needs exactly one code, got %d", def.Key, len(def.Codes))
	}
	f, err := l.Source.ReadQuantity(ctx, def.Codes[0], files)
	if err != nil {
		return domain.Field{}, fmt.Errorf("load %s: %w", def.Key, err)
	}
	return f, nil
}

// Sum loads every quantity of the definition and adds them element-wise.
type Sum struct {
	Source SourceReader
}

func (l Sum) Load(ctx context.Context, def domain.MetricDefinition, files []string) (domain.Field, error) {
	if len(def.Codes) == 0 {
		return domain.Field{}, fmt.Errorf("load %s: no codes", def.Key)
	}
	parts := make([]domain.Field, 0, len(def.Codes))
	for _, code := range def.Codes {
		f, err := l.Source.ReadQuantity(ctx, code, files)
		if err != nil {
			return domain.Field{}, fmt.Errorf("load %s: %w", def.Key, err)
		}
		parts = append(parts, f)
	}
	total, err := domain.Sum(parts)
	if err != nil {
		return domain.Field{}, fmt.Errorf("load %s: %w", def.Key, err)
	}
	return total, nil
}

// LayerSum loads a single layered quantity and sums the definition's levels,
// dropping the level dimension.
type LayerSum struct {
	Source SourceReader
}

func (l LayerSum) Load(ctx context.Context, def domain.MetricDefinition, files []string) (domain.Field, error) {
	if len(def.Codes) != 1 {
		return domain.Field{}, fmt.Errorf("load %s: layer loader needs exactly one code, got %d", def.Key, len(def.Codes))
	}
	if len(def.Levels) == 0 {
		return domain.Field{}, fmt.Errorf("load %s: no levels selected", def.Key)
	}
	f, err := l.Source.ReadQuantity(ctx, def.Codes[0], files)
	if err != nil {
		return domain.Field{}, fmt.Errorf("load %s: %w", def.Key, err)
	}

	layers := make([]domain.Field, 0, len(def.Levels))
	for _, level := range def.Levels {
		layer, err := domain.SelectLevel(f, level)
		if err != nil {
			return domain.Field{}, fmt.Errorf("load %s: %w", def.Key, err)
		}
		layers = append(layers, layer)
	}
	total, err := domain.Sum(layers)
	if err != nil {
		return domain.Field{}, fmt.Errorf("load %s: %w", def.Key, err)
	}
	return total, nil
}
