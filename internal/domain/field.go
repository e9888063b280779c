package domain

import (
	"maps"
	"slices"

	"github.com/ctessum/sparse"
)

// Dimension names understood by Field operations.
const (
	DimTime      = "time"
	DimLatitude  = "latitude"
	DimLongitude = "longitude"

	// DimSoilLevel is the UM soil layer dimension.
	DimSoilLevel = "soil_model_level_number"
)

// Field is a labeled multi-dimensional array of one physical quantity.
//
// Dims lists the array axes in storage order. Recognised axes are DimTime, a
// level axis named by LevelName, DimLatitude and DimLongitude. Data is stored
// row-major with Data.Shape matching the lengths of Dims. A Field with no
// Dims is a scalar holding a single element.
//
// Fields are values: operations in this package never modify their inputs.
type Field struct {
	Name       string
	Units      string
	Attributes map[string]string

	Dims []string

	Time      []float64
	TimeUnits string // CF units, e.g. "days since 1859-12-01 00:00:00"
	Calendar  string
	Year      []int // derived from Time by AddYearCoord

	LevelName string
	Levels    []int

	Lat       []float64
	Lon       []float64
	LatBounds [][2]float64
	LonBounds [][2]float64

	Data *sparse.DenseArray
}

// Axis returns the index of dim in f.Dims, or -1.
func (f Field) Axis(dim string) int {
	return slices.Index(f.Dims, dim)
}

// HasDim reports whether f has the named dimension.
func (f Field) HasDim(dim string) bool {
	return f.Axis(dim) >= 0
}

// Len returns the length of the named dimension, or 0 if absent.
func (f Field) Len(dim string) int {
	i := f.Axis(dim)
	if i < 0 || f.Data == nil {
		return 0
	}
	return f.Data.Shape[i]
}

// Empty reports whether f holds no values.
func (f Field) Empty() bool {
	return f.Data == nil || len(f.Data.Elements) == 0
}

// Shape returns a copy of the data shape.
func (f Field) Shape() []int {
	if f.Data == nil {
		return nil
	}
	return slices.Clone(f.Data.Shape)
}

// Values returns the flat row-major data.
func (f Field) Values() []float64 {
	if f.Data == nil {
		return nil
	}
	return f.Data.Elements
}

// Clone returns a deep copy of f.
func (f Field) Clone() Field {
	out := f
	out.Attributes = maps.Clone(f.Attributes)
	out.Dims = slices.Clone(f.Dims)
	out.Time = slices.Clone(f.Time)
	out.Year = slices.Clone(f.Year)
	out.Levels = slices.Clone(f.Levels)
	out.Lat = slices.Clone(f.Lat)
	out.Lon = slices.Clone(f.Lon)
	out.LatBounds = slices.Clone(f.LatBounds)
	out.LonBounds = slices.Clone(f.LonBounds)
	out.Data = cloneDense(f.Data)
	return out
}

// Renamed returns a copy of f with a new name.
func (f Field) Renamed(name string) Field {
	out := f.Clone()
	out.Name = name
	return out
}

// WithUnits returns a copy of f with a new unit label.
func (f Field) WithUnits(units string) Field {
	out := f.Clone()
	out.Units = units
	return out
}

// WithAttributes returns a copy of f with attrs merged over its attributes.
func (f Field) WithAttributes(attrs map[string]string) Field {
	out := f.Clone()
	if out.Attributes == nil {
		out.Attributes = make(map[string]string, len(attrs))
	}
	maps.Copy(out.Attributes, attrs)
	return out
}

// withData returns a copy of f's metadata around new data.
func (f Field) withData(data *sparse.DenseArray) Field {
	f.Data = nil
	out := f.Clone()
	out.Data = data
	return out
}

func cloneDense(a *sparse.DenseArray) *sparse.DenseArray {
	if a == nil {
		return nil
	}
	out := newDense(a.Shape)
	copy(out.Elements, a.Elements)
	return out
}

// newDense allocates a zeroed array without aliasing the caller's shape slice.
func newDense(shape []int) *sparse.DenseArray {
	return sparse.ZerosDense(slices.Clone(shape)...)
}

// NewField allocates a zero-valued Field with the given dimensions and
// lengths. Coordinates are left for the caller to fill.
func NewField(name, units string, dims []string, shape []int) Field {
	return Field{
		Name:  name,
		Units: units,
		Dims:  slices.Clone(dims),
		Data:  newDense(shape),
	}
}
