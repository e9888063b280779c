// Package domain models gridded climate-model output and the metric
// quantities derived from it.
//
// # Data Source
//
// Fields originate from Met Office Unified Model (UM) simulations. Each
// simulation ("job") is identified by a five-letter run id such as "ajnjm"
// and writes one file per output period into its own directory. Files are
// read as NetCDF classic; each variable carries the UM STASH code it was
// produced from in a "um_stash_source" (or "STASH") attribute.
//
// # UM Conventions
//
// STASH codes:
//
//	"m01s03i262"  →  model 01, section 03, item 262 (net primary productivity).
//	Sections: 03 boundary layer, 08 hydrology. A metric may combine several
//	codes (total runoff = surface + sub-surface runoff).
//
// Vertical levels:
//
//	Soil variables carry a "soil_model_level_number" dimension numbered from 1
//	(topmost layer). Layers 1–3 span the top metre of soil in the standard
//	four-layer configuration.
//
// Time coordinate:
//
//	CF-style "<unit> since <reference date>" with a calendar attribute. UM
//	climate runs commonly use the "360_day" calendar (twelve 30-day months);
//	"gregorian", "standard", "proleptic_gregorian", "365_day" and "noleap" are
//	also understood. Only the year of each time step is ever derived.
//
// # Naming
//
// Every Field produced by the pipeline carries a deterministic name that is
// also used as its artifact file name:
//
//	per job:          {Metric}_({start}-{end})_{simulation}_{period}
//	ensemble mean:    {Metric}_Ensemble_Mean_{description}_{period}
//	member anomaly:   {Metric}_[{future simulation}-{base simulation}]_({base start}-{base end})_{period}
//	ensemble anomaly: {Metric}_[{future description}-{base description}]_({base start}-{base end})_{period}
//
// # Errors
//
// Failures are classified with the sentinels [ErrConfiguration],
// [ErrDataAvailability], [ErrAlignment] and [ErrMissingSelector]. None are
// retried; the run fails outright.
package domain
