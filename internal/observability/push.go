package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name for batch runs.
const PushJob = "climate_impact_metrics"

// Push sends every metric gathered by g to the Pushgateway at url, grouped
// under the given run id.
func Push(url, runID string, g prometheus.Gatherer) error {
	p := push.New(url, PushJob).Gatherer(g)
	if runID != "" {
		p = p.Grouping("run_id", runID)
	}
	if err := p.Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
