package metric

import (
	"slices"
	"strings"
	"sync"

	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
)

// Entry pairs a metric definition with its loader.
type Entry struct {
	Definition domain.MetricDefinition
	Loader     Loader
}

// Registry maps metric keys to their entries.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// NewDefaultRegistry returns a registry holding the built-in metrics, all
// reading through src.
func NewDefaultRegistry(src SourceReader) *Registry {
	r := NewRegistry()
	for _, def := range Builtins() {
		r.Register(def, builtinLoader(def, src))
	}
	return r
}

// Register adds or replaces the entry for def.Key.
func (r *Registry) Register(def domain.MetricDefinition, loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[def.Key] = Entry{Definition: def, Loader: loader}
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Entry{}, domain.NewConfigurationError("impact_metric", "unknown metric %q (available: %s)", name, strings.Join(r.namesLocked(), ", "))
	}
	return e, nil
}

// Names returns the registered metric keys in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.entries))
	for k := range r.entries {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Builtins returns the definitions of the metrics shipped with the tool.
func Builtins() []domain.MetricDefinition {
	return []domain.MetricDefinition{
		{
			Key:        "NPP",
			Name:       "Net_Primary_Productivity",
			Codes:      []string{"m01s03i262"},
			UnitFactor: 31536000,
			Units:      "kg m^2 yr",
		},
		{
			Key:        "T_ROFF",
			Name:       "Total_Runoff",
			Codes:      []string{"m01s08i235", "m01s08i234"},
			UnitFactor: 86400,
			Units:      "mm day^-1",
		},
		{
			Key:        "SOILM_1m",
			Name:       "Soil_Moisture_1m",
			Codes:      []string{"m01s08i223"},
			UnitFactor: 1,
			Units:      "m^3 m^-3",
			Levels:     []int{1, 2, 3},
		},
		{
			Key:        "T1p5m",
			Name:       "Air_Temp_1.5m",
			Codes:      []string{"m01s03i236"},
			UnitFactor: 1,
			Units:      "K",
		},
	}
}

func builtinLoader(def domain.MetricDefinition, src SourceReader) Loader {
	switch {
	case len(def.Levels) > 0:
		return LayerSum{Source: src}
	case len(def.Codes) > 1:
		return Sum{Source: src}
	default:
		return Direct{Source: src}
	}
}
