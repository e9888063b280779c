package domain

import (
	"fmt"
	"strings"
)

// MetricDefinition is the static recipe for deriving one physical quantity
// from source data.
type MetricDefinition struct {
	Key        string   // registry key, e.g. "NPP"
	Name       string   // display name, e.g. "Net_Primary_Productivity"
	Codes      []string // UM STASH codes read from the source files
	UnitFactor float64  // multiplier from model units to Units
	Units      string
	Levels     []int // level selectors summed by layer loaders
}

// CodeLabel joins the definition's STASH codes for provenance metadata.
func (d MetricDefinition) CodeLabel() string {
	return strings.Join(d.Codes, ",")
}

// RunSpec describes the baseline run or one future run instance.
type RunSpec struct {
	Description string
	Start       int
	End         int
	Jobs        map[string]string // job id -> simulation id
}

// Validate checks the year range and job mapping.
func (r RunSpec) Validate() error {
	if r.End <= r.Start {
		return NewConfigurationError("years", "end year %d must be later than start year %d (%s)", r.End, r.Start, r.Description)
	}
	if len(r.Jobs) == 0 {
		return NewConfigurationError("jobs", "run %q defines no jobs", r.Description)
	}
	for job, sim := range r.Jobs {
		if strings.TrimSpace(sim) == "" {
			return NewConfigurationError("jobs", "job %q in run %q has no simulation id", job, r.Description)
		}
	}
	return nil
}

// Role identifies the baseline run or a future run instance.
type Role struct {
	Future   bool
	Instance int // 0-based future instance index
}

// BaselineRole is the role of the baseline run.
func BaselineRole() Role { return Role{} }

// FutureRole is the role of the i-th (0-based) future run instance.
func FutureRole(i int) Role { return Role{Future: true, Instance: i} }

func (r Role) String() string {
	if !r.Future {
		return "base"
	}
	return fmt.Sprintf("future_%d", r.Instance+1)
}
