// Package netcdf reads and writes Fields as NetCDF classic files.
package netcdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/ctessum/cdf"
)

// Variable attributes that carry a UM STASH code.
var stashAttributes = []string{"um_stash_source", "STASH"}

// Attributes consumed while decoding and not copied into Field.Attributes.
var reservedAttributes = []string{"units", "long_name", "_FillValue", "missing_value", "bounds", "calendar"}

// Reader reads quantities from UM-derived NetCDF files.
// It implements metric.SourceReader.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a Reader.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger}
}

// ReadQuantity reads the variable carrying the given STASH code from each
// file and concatenates the results along time, in file order.
func (r *Reader) ReadQuantity(ctx context.Context, code string, files []string) (domain.Field, error) {
	if len(files) == 0 {
		return domain.Field{}, fmt.Errorf("read %s: no files", code)
	}
	parts := make([]domain.Field, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return domain.Field{}, err
		}
		f, err := readQuantityFile(path, code)
		if err != nil {
			return domain.Field{}, fmt.Errorf("read %s: %w", code, err)
		}
		parts = append(parts, f)
	}
	out, err := concatTime(parts)
	if err != nil {
		return domain.Field{}, fmt.Errorf("read %s: %w", code, err)
	}
	r.logger.Debug("quantity read", "code", code, "files", len(files), "shape", out.Shape())
	return out, nil
}

// ReadFile reads the single data variable of a file written by WriteFile.
func ReadFile(path string) (domain.Field, error) {
	file, err := os.Open(path)
	if err != nil {
		return domain.Field{}, err
	}
	defer file.Close()

	nc, err := openDataset(file)
	if err != nil {
		return domain.Field{}, fmt.Errorf("%s: %w", path, err)
	}
	for _, v := range nc.Header.Variables() {
		if isCoordinate(nc.Header, v) {
			continue
		}
		f, err := readField(nc, v)
		if err != nil {
			return domain.Field{}, fmt.Errorf("%s: %w", path, err)
		}
		return f, nil
	}
	return domain.Field{}, fmt.Errorf("%s: no data variable", path)
}

func readQuantityFile(path, code string) (domain.Field, error) {
	file, err := os.Open(path)
	if err != nil {
		return domain.Field{}, err
	}
	defer file.Close()

	nc, err := openDataset(file)
	if err != nil {
		return domain.Field{}, fmt.Errorf("%s: %w", path, err)
	}
	name, ok := findVariable(nc.Header, code)
	if !ok {
		return domain.Field{}, fmt.Errorf("%s: no variable with STASH code %s", path, code)
	}
	f, err := readField(nc, name)
	if err != nil {
		return domain.Field{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// dataset is an open NetCDF file with the length of its record (UNLIMITED)
// dimension resolved from the file size.
type dataset struct {
	*cdf.File
	records int
}

func openDataset(file *os.File) (*dataset, error) {
	nc, err := cdf.Open(file)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	return &dataset{File: nc, records: int(nc.Header.NumRecs(info.Size()))}, nil
}

// lengths returns the dimension lengths of v with the record dimension
// sized to the records present in the file.
func (d *dataset) lengths(v string) []int {
	l := slices.Clone(d.Header.Lengths(v))
	if d.Header.IsRecordVariable(v) {
		l[0] = d.records
	}
	return l
}

// findVariable returns the variable tagged with code, or named code.
func findVariable(h *cdf.Header, code string) (string, bool) {
	for _, v := range h.Variables() {
		if v == code {
			return v, true
		}
		for _, a := range stashAttributes {
			if attrString(h, v, a) == code {
				return v, true
			}
		}
	}
	return "", false
}

// isCoordinate reports whether v is a dimension coordinate or a bounds variable.
func isCoordinate(h *cdf.Header, v string) bool {
	dims := h.Dimensions(v)
	if len(dims) == 1 && dims[0] == v {
		return true
	}
	for _, other := range h.Variables() {
		if attrString(h, other, "bounds") == v {
			return true
		}
	}
	return false
}

func readField(nc *dataset, name string) (domain.Field, error) {
	h := nc.Header
	dims := h.Dimensions(name)
	shape := nc.lengths(name)
	if h.IsRecordVariable(name) && nc.records == 0 {
		return domain.Field{}, fmt.Errorf("variable %s: record dimension %s holds no records", name, dims[0])
	}

	values, err := readFloats(nc, name)
	if err != nil {
		return domain.Field{}, fmt.Errorf("variable %s: %w", name, err)
	}
	for _, a := range []string{"_FillValue", "missing_value"} {
		if fill, ok := attrFloat(h, name, a); ok {
			for i, v := range values {
				if v == fill {
					values[i] = math.NaN()
				}
			}
		}
	}

	fieldName := attrString(h, name, "long_name")
	if fieldName == "" {
		fieldName = name
	}
	canonical := make([]string, len(dims))
	for i, d := range dims {
		canonical[i] = canonicalDim(d)
	}

	f := domain.NewField(fieldName, attrString(h, name, "units"), canonical, shape)
	copy(f.Data.Elements, values)
	f.Attributes = make(map[string]string)
	for _, a := range h.Attributes(name) {
		if slices.Contains(reservedAttributes, a) {
			continue
		}
		if s, ok := h.GetAttribute(name, a).(string); ok {
			f.Attributes[a] = s
		}
	}

	for i, d := range dims {
		if err := readCoordinate(nc, &f, d, canonical[i], shape[i]); err != nil {
			return domain.Field{}, fmt.Errorf("variable %s: %w", name, err)
		}
	}
	return f, nil
}

// readCoordinate fills the coordinate of dimension dim into f.
func readCoordinate(nc *dataset, f *domain.Field, dim, canonical string, n int) error {
	h := nc.Header
	hasVar := slices.Contains(h.Variables(), dim)

	switch canonical {
	case domain.DimTime:
		if !hasVar {
			return fmt.Errorf("missing time coordinate %q", dim)
		}
		t, err := readFloats(nc, dim)
		if err != nil {
			return fmt.Errorf("time coordinate: %w", err)
		}
		f.Time = t
		f.TimeUnits = attrString(h, dim, "units")
		f.Calendar = strings.ToLower(attrString(h, dim, "calendar"))
	case domain.DimLatitude, domain.DimLongitude:
		if !hasVar {
			return fmt.Errorf("missing %s coordinate %q", canonical, dim)
		}
		c, err := readFloats(nc, dim)
		if err != nil {
			return fmt.Errorf("%s coordinate: %w", canonical, err)
		}
		bounds, err := readBounds(nc, dim, n)
		if err != nil {
			return err
		}
		if canonical == domain.DimLatitude {
			f.Lat, f.LatBounds = c, bounds
		} else {
			f.Lon, f.LonBounds = c, bounds
		}
	default:
		f.LevelName = dim
		f.Levels = make([]int, n)
		if !hasVar {
			for i := range f.Levels {
				f.Levels[i] = i + 1
			}
			return nil
		}
		c, err := readFloats(nc, dim)
		if err != nil {
			return fmt.Errorf("level coordinate %s: %w", dim, err)
		}
		for i, v := range c {
			f.Levels[i] = int(math.Round(v))
		}
	}
	return nil
}

// readBounds reads the (n, 2) bounds variable named by dim's "bounds"
// attribute, returning nil when there is none.
func readBounds(nc *dataset, dim string, n int) ([][2]float64, error) {
	name := attrString(nc.Header, dim, "bounds")
	if name == "" || !slices.Contains(nc.Header.Variables(), name) {
		return nil, nil
	}
	flat, err := readFloats(nc, name)
	if err != nil {
		return nil, fmt.Errorf("bounds %s: %w", name, err)
	}
	if len(flat) != 2*n {
		return nil, fmt.Errorf("bounds %s: expected %d values, got %d", name, 2*n, len(flat))
	}
	out := make([][2]float64, n)
	for i := range out {
		out[i] = [2]float64{flat[2*i], flat[2*i+1]}
	}
	return out, nil
}

func canonicalDim(d string) string {
	switch strings.ToLower(d) {
	case "time", "t":
		return domain.DimTime
	case "latitude", "lat", "grid_latitude":
		return domain.DimLatitude
	case "longitude", "lon", "grid_longitude":
		return domain.DimLongitude
	default:
		return d
	}
}

// readFloats reads every value of variable name, across all records for
// record variables.
func readFloats(nc *dataset, name string) ([]float64, error) {
	lengths := nc.lengths(name)
	n := 1
	end := make([]int, len(lengths))
	for i, l := range lengths {
		n *= l
		end[i] = l - 1
	}
	if n == 0 {
		return []float64{}, nil
	}
	r := nc.Reader(name, nil, end)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return toFloat64(buf)
}

func toFloat64(v any) ([]float64, error) {
	switch vals := v.(type) {
	case []float64:
		return vals, nil
	case []float32:
		return convert(vals), nil
	case []int32:
		return convert(vals), nil
	case []int16:
		return convert(vals), nil
	case []int8:
		return convert(vals), nil
	case []uint8:
		return convert(vals), nil
	case nil:
		return nil, errors.New("no values")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func convert[T float32 | int32 | int16 | int8 | uint8](vals []T) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	return out
}

func attrString(h *cdf.Header, v, a string) string {
	s, _ := h.GetAttribute(v, a).(string)
	return strings.TrimRight(s, "\x00")
}

func attrFloat(h *cdf.Header, v, a string) (float64, bool) {
	vals, err := toFloat64(h.GetAttribute(v, a))
	if err != nil || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// concatTime joins per-file Fields along their leading time axis.
func concatTime(parts []domain.Field) (domain.Field, error) {
	if len(parts) == 1 {
		return parts[0], nil
	}
	first := parts[0]
	if first.Axis(domain.DimTime) != 0 {
		return domain.Field{}, fmt.Errorf("concatenate %s: time is not the leading dimension of %v", first.Name, first.Dims)
	}

	shape := first.Shape()
	total := 0
	for _, p := range parts {
		ps := p.Shape()
		switch {
		case !slices.Equal(p.Dims, first.Dims) || !slices.Equal(ps[1:], shape[1:]):
			return domain.Field{}, fmt.Errorf("concatenate %s: grid %v %v does not match %v %v", first.Name, p.Dims, ps, first.Dims, shape)
		case p.TimeUnits != first.TimeUnits || p.Calendar != first.Calendar:
			return domain.Field{}, fmt.Errorf("concatenate %s: time units %q (%s) do not match %q (%s)",
				first.Name, p.TimeUnits, p.Calendar, first.TimeUnits, first.Calendar)
		}
		total += ps[0]
	}
	shape[0] = total

	out := first.Clone()
	out.Data = domain.NewField(first.Name, first.Units, first.Dims, shape).Data
	out.Time = make([]float64, 0, total)
	pos := 0
	for _, p := range parts {
		pos += copy(out.Data.Elements[pos:], p.Values())
		out.Time = append(out.Time, p.Time...)
	}
	return out, nil
}
