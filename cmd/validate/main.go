// Command validate checks the NetCDF artifacts of a run for integrity: every
// file reads back, carries units and a non-empty grid, holds finite values,
// is named after one of the output conventions, and every ensemble anomaly
// equals the difference of the ensemble means it was derived from.
//
// Usage:
//
//	go run ./cmd/validate -dir ./output -tolerance 1e-9
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/climate-impact-metrics/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
)

// Output naming conventions.
var (
	memberName   = regexp.MustCompile(`^(.+)_\((\d+)-(\d+)\)_([^_]+)_([a-z]+)$`)
	ensembleName = regexp.MustCompile(`^(.+)_Ensemble_Mean_(.+)_([a-z]+)$`)
	anomalyName  = regexp.MustCompile(`^(.+)_\[(.+)-(.+)\]_\((\d+)-(\d+)\)_([a-z]+)$`)
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// artifact is one NetCDF file read back from the output directory.
type artifact struct {
	path  string
	field domain.Field
}

func main() {
	dir := flag.String("dir", "", "directory holding the .nc artifacts of a run")
	tolerance := flag.Float64("tolerance", 1e-9, "relative tolerance for anomaly consistency")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dir, *tolerance); code != 0 {
		os.Exit(code)
	}
}

func run(dir string, tolerance float64) int {
	fmt.Println("=== Climate Impact Artifact Validation ===")
	fmt.Println()

	paths, err := filepath.Glob(filepath.Join(dir, "*.nc"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: list artifacts: %v\n", err)
		return 1
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no .nc artifacts under %s\n", dir)
		return 1
	}
	slices.Sort(paths)

	readable, artifacts := validateReadable(paths)
	phases := []*phase{
		readable,
		validateStructure(artifacts),
		validateFinite(artifacts),
		validateNaming(artifacts),
		validateAnomalies(artifacts, tolerance),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Artifacts: %d files, %d readable\n", len(paths), len(artifacts))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateReadable(paths []string) (*phase, []artifact) {
	p := &phase{name: "Phase 1: Artifacts read back"}
	var out []artifact
	for _, path := range paths {
		f, err := netcdf.ReadFile(path)
		if err != nil {
			p.errorf("%s: %v", filepath.Base(path), err)
			continue
		}
		out = append(out, artifact{path: path, field: f})
	}
	return p, out
}

func validateStructure(artifacts []artifact) *phase {
	p := &phase{name: "Phase 2: Units and grid"}
	for _, a := range artifacts {
		f := a.field
		if f.Units == "" {
			p.errorf("%s: no units", f.Name)
		}
		if !f.HasDim(domain.DimLatitude) || !f.HasDim(domain.DimLongitude) {
			p.errorf("%s: dims %v lack latitude/longitude", f.Name, f.Dims)
		}
		for i, n := range f.Shape() {
			if n == 0 {
				p.errorf("%s: dimension %s is empty", f.Name, f.Dims[i])
			}
		}
		if len(f.Lat) != f.Len(domain.DimLatitude) || len(f.Lon) != f.Len(domain.DimLongitude) {
			p.errorf("%s: coordinate lengths %d/%d do not match shape %v", f.Name, len(f.Lat), len(f.Lon), f.Shape())
		}
		if base := strings.TrimSuffix(filepath.Base(a.path), ".nc"); base != f.Name {
			p.errorf("%s: file name %q does not match variable long_name", f.Name, base)
		}
	}
	return p
}

func validateFinite(artifacts []artifact) *phase {
	p := &phase{name: "Phase 3: Finite values"}
	for _, a := range artifacts {
		values := a.field.Values()
		var nan, inf int
		for _, v := range values {
			switch {
			case math.IsNaN(v):
				nan++
			case math.IsInf(v, 0):
				inf++
			}
		}
		if inf > 0 {
			p.errorf("%s: %d infinite values", a.field.Name, inf)
		}
		if nan == len(values) {
			p.errorf("%s: every value is missing", a.field.Name)
		}
	}
	return p
}

func validateNaming(artifacts []artifact) *phase {
	p := &phase{name: "Phase 4: Naming conventions"}
	for _, a := range artifacts {
		name := a.field.Name
		switch {
		case anomalyName.MatchString(name):
			m := anomalyName.FindStringSubmatch(name)
			if reversed(m[4], m[5]) {
				p.errorf("%s: baseline years %s-%s are reversed", name, m[4], m[5])
			}
		case ensembleName.MatchString(name):
		case memberName.MatchString(name):
			m := memberName.FindStringSubmatch(name)
			if reversed(m[2], m[3]) {
				p.errorf("%s: years %s-%s are reversed", name, m[2], m[3])
			}
		default:
			p.errorf("%s: matches no output naming convention", name)
		}
	}
	return p
}

// validateAnomalies checks every anomaly whose bracketed labels name two
// ensemble means in the same directory. Member anomalies, labelled with
// simulation ids, have no ensemble counterpart and are skipped.
func validateAnomalies(artifacts []artifact, tolerance float64) *phase {
	p := &phase{name: "Phase 5: Anomaly consistency"}
	byName := make(map[string]domain.Field, len(artifacts))
	for _, a := range artifacts {
		byName[a.field.Name] = a.field
	}

	for _, a := range artifacts {
		m := anomalyName.FindStringSubmatch(a.field.Name)
		if m == nil {
			continue
		}
		key, future, base, period := m[1], m[2], m[3], m[6]
		fm, okF := byName[domain.EnsembleFieldName(key, future, period)]
		bm, okB := byName[domain.EnsembleFieldName(key, base, period)]
		if !okF || !okB {
			continue
		}
		want, err := domain.Subtract(fm, bm)
		if err != nil {
			p.errorf("%s: %v", a.field.Name, err)
			continue
		}
		if !slices.Equal(want.Shape(), a.field.Shape()) {
			p.errorf("%s: shape %v, ensemble difference has %v", a.field.Name, a.field.Shape(), want.Shape())
			continue
		}
		got, exp := a.field.Values(), want.Values()
		for i := range got {
			if !approxEqual(got[i], exp[i], tolerance) {
				p.errorf("%s: cell %d is %g, ensemble difference is %g", a.field.Name, i, got[i], exp[i])
				break
			}
		}
	}
	return p
}

// reversed reports whether the year range start-end runs backwards.
func reversed(start, end string) bool {
	s, _ := strconv.Atoi(start)
	e, _ := strconv.Atoi(end)
	return s > e
}

func approxEqual(a, b, tolerance float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= tolerance*scale
}
