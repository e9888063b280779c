package netcdf

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/ctessum/cdf"
)

const boundsDim = "bnds"

// WriteFile serializes f as a new NetCDF classic file at path. It fails if
// path already exists.
func WriteFile(path string, f domain.Field) error {
	return WriteDataset(path, []domain.Field{f})
}

// WriteDataset serializes fields sharing one grid into a new NetCDF classic
// file at path, one data variable per Field. Coordinates are taken from the
// first Field.
func WriteDataset(path string, fields []domain.Field) error {
	if len(fields) == 0 {
		return fmt.Errorf("write %s: no fields", path)
	}
	first := fields[0]
	for _, f := range fields {
		if f.Data == nil {
			return fmt.Errorf("write %s: no data", f.Name)
		}
		if !slices.Equal(f.Dims, first.Dims) || !slices.Equal(f.Data.Shape, first.Data.Shape) {
			return fmt.Errorf("write %s: grid %v %v does not match %v %v", f.Name, f.Dims, f.Data.Shape, first.Dims, first.Data.Shape)
		}
	}
	for i, n := range first.Data.Shape {
		if n == 0 {
			return fmt.Errorf("write %s: dimension %s is empty", first.Name, first.Dims[i])
		}
	}

	h, vars := buildHeader(fields)

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("write %s: %w", first.Name, err)
	}
	if err := writeVariables(file, h, vars); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", first.Name, err)
	}
	return file.Close()
}

// variable is one array queued for writing after the header is defined.
type variable struct {
	name   string
	values any
}

func buildHeader(fields []domain.Field) (*cdf.Header, []variable) {
	f := fields[0]
	dims := slices.Clone(f.Dims)
	lengths := f.Shape()
	hasBounds := (f.HasDim(domain.DimLatitude) && len(f.LatBounds) > 0) ||
		(f.HasDim(domain.DimLongitude) && len(f.LonBounds) > 0)
	if hasBounds {
		dims = append(dims, boundsDim)
		lengths = append(lengths, 2)
	}

	h := cdf.NewHeader(dims, lengths)
	h.AddAttribute("", "Conventions", "CF-1.5")

	var vars []variable
	for _, d := range f.Dims {
		switch d {
		case domain.DimTime:
			h.AddVariable(d, []string{d}, []float64{0})
			h.AddAttribute(d, "standard_name", "time")
			h.AddAttribute(d, "units", f.TimeUnits)
			if f.Calendar != "" {
				h.AddAttribute(d, "calendar", f.Calendar)
			}
			vars = append(vars, variable{d, slices.Clone(f.Time)})
		case domain.DimLatitude:
			vars = append(vars, addAxis(h, d, "degrees_north", f.Lat, f.LatBounds)...)
		case domain.DimLongitude:
			vars = append(vars, addAxis(h, d, "degrees_east", f.Lon, f.LonBounds)...)
		default:
			h.AddVariable(d, []string{d}, []int32{0})
			levels := make([]int32, len(f.Levels))
			for i, l := range f.Levels {
				levels[i] = int32(l)
			}
			vars = append(vars, variable{d, levels})
		}
	}

	used := make(map[string]bool, len(f.Dims)+len(fields))
	for _, v := range vars {
		used[v.name] = true
	}
	for _, df := range fields {
		name := variableName(df.Name)
		for base, n := name, 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[name] = true

		h.AddVariable(name, slices.Clone(df.Dims), []float64{0})
		h.AddAttribute(name, "long_name", df.Name)
		if df.Units != "" {
			h.AddAttribute(name, "units", df.Units)
		}
		for _, k := range slices.Sorted(maps.Keys(df.Attributes)) {
			if v := df.Attributes[k]; v != "" {
				h.AddAttribute(name, variableName(k), v)
			}
		}
		vars = append(vars, variable{name, slices.Clone(df.Values())})
	}

	h.Define()
	return h, vars
}

func addAxis(h *cdf.Header, dim, units string, centres []float64, bounds [][2]float64) []variable {
	h.AddVariable(dim, []string{dim}, []float64{0})
	h.AddAttribute(dim, "standard_name", dim)
	h.AddAttribute(dim, "units", units)
	vars := []variable{{dim, slices.Clone(centres)}}
	if len(bounds) == 0 {
		return vars
	}
	bname := dim + "_bnds"
	h.AddAttribute(dim, "bounds", bname)
	h.AddVariable(bname, []string{dim, boundsDim}, []float64{0})
	flat := make([]float64, 0, 2*len(bounds))
	for _, b := range bounds {
		flat = append(flat, b[0], b[1])
	}
	return append(vars, variable{bname, flat})
}

func writeVariables(file *os.File, h *cdf.Header, vars []variable) error {
	nc, err := cdf.Create(file, h)
	if err != nil {
		return err
	}
	for _, v := range vars {
		w := nc.Writer(v.name, nil, nil)
		// Writers report io.EOF once the variable is complete.
		if _, err := w.Write(v.values); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("variable %s: %w", v.name, err)
		}
	}
	return nil
}

// variableName maps an arbitrary label onto a NetCDF-safe identifier.
func variableName(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "field"
	}
	return b.String()
}
