package domain

import "time"

// Artifact kinds.
const (
	ArtifactMap     = "map"      // PNG image
	ArtifactMapData = "map_data" // NetCDF file
)

// ArtifactEvent announces a newly written output artifact.
type ArtifactEvent struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Location  string    `json:"location"`
	Units     string    `json:"units"`
	Shape     []int     `json:"shape"`
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RunStatus reports the progress of a run.
type RunStatus struct {
	RunID     string    `json:"run_id,omitempty"`
	Metric    string    `json:"metric"`
	Periods   []string  `json:"periods"`
	Completed []string  `json:"completed"`
	Current   string    `json:"current,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	Done      bool      `json:"done"`
}
