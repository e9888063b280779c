package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/go-ini/ini"
	"gopkg.in/yaml.v3"
)

// ComparisonType selects a baseline-only run or a baseline/future comparison.
type ComparisonType string

const (
	ComparisonBaseOnly ComparisonType = "base_only"
	ComparisonCompare  ComparisonType = "compare"
)

// MapType selects which maps are emitted.
type MapType string

const (
	MapPreSubtraction MapType = "pre_subtraction"
	MapAnomaly        MapType = "anomaly_map"
	MapBoth           MapType = "both"
)

// PreSubtraction reports whether per-run maps are emitted.
func (t MapType) PreSubtraction() bool { return t == MapPreSubtraction || t == MapBoth }

// Anomaly reports whether difference maps are emitted.
func (t MapType) Anomaly() bool { return t == MapAnomaly || t == MapBoth }

// SubtractionType selects per-member and/or ensemble-mean processing.
type SubtractionType string

const (
	SubtractEachMember   SubtractionType = "each_member"
	SubtractEnsembleMean SubtractionType = "ensemble_mean"
	SubtractBoth         SubtractionType = "both"
)

// EachMember reports whether per-member results are produced.
func (t SubtractionType) EachMember() bool { return t == SubtractEachMember || t == SubtractBoth }

// EnsembleMean reports whether ensemble-mean results are produced.
func (t SubtractionType) EnsembleMean() bool { return t == SubtractEnsembleMean || t == SubtractBoth }

// OutputType selects the artifact formats written.
type OutputType string

const (
	OutputMap     OutputType = "map"
	OutputMapData OutputType = "map_data"
	OutputBoth    OutputType = "both"
)

// Map reports whether PNG images are written.
func (t OutputType) Map() bool { return t == OutputMap || t == OutputBoth }

// MapData reports whether NetCDF data files are written.
func (t OutputType) MapData() bool { return t == OutputMapData || t == OutputBoth }

// Settings is the validated content of an interface file.
type Settings struct {
	DataDir string
	SaveDir string

	ImpactMetric    string
	Comparison      ComparisonType
	Periods         []string
	PeriodType      domain.PeriodType
	MapType         MapType
	SubtractionType SubtractionType
	OutputType      OutputType

	LoadWorkers  int
	SourceSuffix string

	Base    domain.RunSpec
	Futures []domain.RunSpec
}

// Section and key names of the interface file.
const (
	sectionEnvironment = "environment"
	sectionSettings    = "settings"
	sectionBase        = "base_jobs"
	futurePrefix       = "future_jobs_"
)

// document is an interface file flattened to section -> key -> value.
type document map[string]map[string]string

// LoadSettings reads and validates the interface file at path. Files ending
// in .yaml or .yml are parsed as YAML; anything else as INI.
func LoadSettings(path string) (*Settings, error) {
	var (
		doc document
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err = readYAML(path)
	default:
		doc, err = readINI(path)
	}
	if err != nil {
		return nil, err
	}
	return parseDocument(doc)
}

func readINI(path string) (document, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("read interface file: %w", err)
	}
	doc := make(document)
	for _, s := range f.Sections() {
		if s.Name() == ini.DefaultSection && len(s.Keys()) == 0 {
			continue
		}
		keys := make(map[string]string, len(s.Keys()))
		for _, k := range s.Keys() {
			keys[k.Name()] = strings.TrimSpace(k.String())
		}
		doc[s.Name()] = keys
	}
	return doc, nil
}

func readYAML(path string) (document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read interface file: %w", err)
	}
	var sections map[string]map[string]any
	if err := yaml.Unmarshal(raw, &sections); err != nil {
		return nil, fmt.Errorf("read interface file: %w", err)
	}
	doc := make(document, len(sections))
	for name, keys := range sections {
		out := make(map[string]string, len(keys))
		for k, v := range keys {
			out[k] = yamlScalar(v)
		}
		doc[name] = out
	}
	return doc, nil
}

// yamlScalar renders a YAML value in interface-file syntax; sequences
// become comma-separated lists.
func yamlScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = yamlScalar(e)
		}
		return strings.Join(parts, ",")
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func parseDocument(doc document) (*Settings, error) {
	env, err := section(doc, sectionEnvironment)
	if err != nil {
		return nil, err
	}
	set, err := section(doc, sectionSettings)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		DataDir:      env["DATADIR"],
		SaveDir:      env["SAVEDIR"],
		ImpactMetric: set["impact_metric"],
		SourceSuffix: set["source_suffix"],
		LoadWorkers:  1,
	}
	if s.DataDir == "" {
		return nil, domain.NewConfigurationError("DATADIR", "required in [%s]", sectionEnvironment)
	}
	if s.SaveDir == "" {
		return nil, domain.NewConfigurationError("SAVEDIR", "required in [%s]", sectionEnvironment)
	}
	if s.ImpactMetric == "" {
		return nil, domain.NewConfigurationError("impact_metric", "required in [%s]", sectionSettings)
	}

	if s.Comparison, err = oneOf("comparison_type", set["comparison_type"], ComparisonBaseOnly, ComparisonCompare); err != nil {
		return nil, err
	}
	if s.MapType, err = oneOf("map_type", set["map_type"], MapPreSubtraction, MapAnomaly, MapBoth); err != nil {
		return nil, err
	}
	if s.SubtractionType, err = oneOf("subtraction_type", set["subtraction_type"], SubtractEachMember, SubtractEnsembleMean, SubtractBoth); err != nil {
		return nil, err
	}
	if s.OutputType, err = oneOf("output_type", set["output_type"], OutputMap, OutputMapData, OutputBoth); err != nil {
		return nil, err
	}

	s.Periods = ParsePeriodList(set["period"])
	if s.PeriodType, err = domain.ClassifyPeriods(s.Periods); err != nil {
		return nil, err
	}
	if s.PeriodType == domain.PeriodMonthly {
		return nil, domain.NewConfigurationError("period", "monthly periods are not implemented: [%s]", strings.Join(s.Periods, ", "))
	}

	if w := set["load_workers"]; w != "" {
		n, err := strconv.Atoi(w)
		if err != nil || n < 1 {
			return nil, domain.NewConfigurationError("load_workers", "must be a positive integer, got %q", w)
		}
		s.LoadWorkers = n
	}

	if s.Base, err = parseRun(doc, sectionBase, "base_"); err != nil {
		return nil, err
	}
	if s.Futures, err = parseFutures(doc); err != nil {
		return nil, err
	}
	if s.Comparison == ComparisonCompare && len(s.Futures) == 0 {
		return nil, domain.NewConfigurationError("comparison_type", "compare requires at least one [%s1] section", futurePrefix)
	}
	return s, nil
}

func section(doc document, name string) (map[string]string, error) {
	s, ok := doc[name]
	if !ok {
		return nil, domain.NewConfigurationError(name, "missing section [%s]", name)
	}
	return s, nil
}

func oneOf[T ~string](key, value string, allowed ...T) (T, error) {
	for _, a := range allowed {
		if string(a) == value {
			return a, nil
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return "", domain.NewConfigurationError(key, "%q is not one of %s", value, strings.Join(names, ", "))
}

// ParsePeriodList accepts "['ann']", "[djf, jja]" or "djf,jja".
func ParsePeriodList(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.Trim(strings.TrimSpace(p), `'"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseRun reads a run section: {prefix}description, {prefix}start and
// {prefix}end, with every other key mapping a job id to a simulation id.
func parseRun(doc document, name, prefix string) (domain.RunSpec, error) {
	sec, err := section(doc, name)
	if err != nil {
		return domain.RunSpec{}, err
	}
	run := domain.RunSpec{Description: sec[prefix+"description"]}
	if run.Description == "" {
		return domain.RunSpec{}, domain.NewConfigurationError(prefix+"description", "required in [%s]", name)
	}
	if run.Start, err = year(sec, name, prefix+"start"); err != nil {
		return domain.RunSpec{}, err
	}
	if run.End, err = year(sec, name, prefix+"end"); err != nil {
		return domain.RunSpec{}, err
	}

	reserved := []string{prefix + "description", prefix + "start", prefix + "end"}
	run.Jobs = make(map[string]string)
	for _, k := range slices.Sorted(maps.Keys(sec)) {
		if !slices.Contains(reserved, k) {
			run.Jobs[k] = sec[k]
		}
	}
	if err := run.Validate(); err != nil {
		return domain.RunSpec{}, fmt.Errorf("[%s]: %w", name, err)
	}
	return run, nil
}

func year(sec map[string]string, name, key string) (int, error) {
	v, ok := sec[key]
	if !ok || v == "" {
		return 0, domain.NewConfigurationError(key, "required in [%s]", name)
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.NewConfigurationError(key, "invalid year %q in [%s]", v, name)
	}
	return y, nil
}

// parseFutures reads future_jobs_1 .. future_jobs_N, which must be numbered
// without gaps.
func parseFutures(doc document) ([]domain.RunSpec, error) {
	count := 0
	for name := range doc {
		if strings.HasPrefix(name, futurePrefix) {
			count++
		}
	}
	futures := make([]domain.RunSpec, 0, count)
	for i := 1; i <= count; i++ {
		name := futurePrefix + strconv.Itoa(i)
		if _, ok := doc[name]; !ok {
			return nil, domain.NewConfigurationError(name, "future job sections must be numbered 1..%d without gaps", count)
		}
		run, err := parseRun(doc, name, "future_")
		if err != nil {
			return nil, err
		}
		futures = append(futures, run)
	}
	return futures, nil
}
