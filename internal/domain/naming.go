package domain

import "fmt"

// JobFieldName names a per-job Field: {Metric}_({start}-{end})_{simulation}_{period}.
func JobFieldName(metric string, run RunSpec, simulation, period string) string {
	return fmt.Sprintf("%s_(%d-%d)_%s_%s", metric, run.Start, run.End, simulation, period)
}

// EnsembleFieldName names an ensemble mean: {Metric}_Ensemble_Mean_{description}_{period}.
func EnsembleFieldName(metric, description, period string) string {
	return fmt.Sprintf("%s_Ensemble_Mean_%s_%s", metric, description, period)
}

// AnomalyFieldName names a difference Field:
// {Metric}_[{future}-{base}]_({base start}-{base end})_{period}, where future
// and base are simulation ids for member anomalies and run descriptions for
// ensemble anomalies.
func AnomalyFieldName(metric, future, base string, baseRun RunSpec, period string) string {
	return fmt.Sprintf("%s_[%s-%s]_(%d-%d)_%s", metric, future, base, baseRun.Start, baseRun.End, period)
}
