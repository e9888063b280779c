// Package resolver locates the source files of a simulation for a period.
package resolver

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
)

// DefaultSuffix is the source file extension used when none is configured.
const DefaultSuffix = ".nc"

// Resolver finds UM output files beneath a data directory laid out as
// {dir}/{simulation}/{files}.
type Resolver struct {
	dataDir string
	suffix  string
}

// New creates a Resolver for dataDir. An empty suffix selects DefaultSuffix.
func New(dataDir, suffix string) *Resolver {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	return &Resolver{dataDir: dataDir, suffix: suffix}
}

// Resolve returns the source files of simulation for period, sorted
// ascending. Annual periods match *a.py*{suffix}; seasons match
// *a.ps*{season}{suffix}. Monthly periods are not supported.
func (r *Resolver) Resolve(simulation, period string) ([]string, error) {
	pattern, err := r.Pattern(simulation, period)
	if err != nil {
		return nil, err
	}
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("resolve %s %s: %w", simulation, period, err)
	}
	slices.Sort(files)
	return files, nil
}

// Pattern returns the glob used to resolve simulation files for period.
func (r *Resolver) Pattern(simulation, period string) (string, error) {
	dir := filepath.Join(r.dataDir, simulation)
	switch domain.PeriodTypeOf(period) {
	case domain.PeriodAnnual:
		return filepath.Join(dir, "*a.py*"+r.suffix), nil
	case domain.PeriodSeasonal:
		return filepath.Join(dir, "*a.ps*"+period+r.suffix), nil
	case domain.PeriodMonthly:
		return "", domain.NewConfigurationError("period", "monthly periods are not implemented (%s)", period)
	default:
		return "", domain.NewConfigurationError("period", "unknown period %q", period)
	}
}
