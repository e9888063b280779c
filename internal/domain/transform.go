package domain

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ctessum/sparse"
)

// Scale multiplies every value of f by factor.
func Scale(f Field, factor float64) Field {
	out := f.Clone()
	if out.Data == nil {
		return out
	}
	for i := range out.Data.Elements {
		out.Data.Elements[i] *= factor
	}
	return out
}

// Add returns the element-wise sum a + b. Metadata is taken from a.
func Add(a, b Field) (Field, error) {
	return combine(a, b, "add", func(x, y float64) float64 { return x + y })
}

// Subtract returns the element-wise difference a - b. Metadata is taken from a.
func Subtract(a, b Field) (Field, error) {
	return combine(a, b, "subtract", func(x, y float64) float64 { return x - y })
}

// Sum adds fields element-wise. Metadata is taken from the first field.
func Sum(fields []Field) (Field, error) {
	if len(fields) == 0 {
		return Field{}, errors.New("sum: no fields")
	}
	acc := fields[0].Clone()
	for _, f := range fields[1:] {
		var err error
		if acc, err = Add(acc, f); err != nil {
			return Field{}, err
		}
	}
	return acc, nil
}

// Mean returns the unweighted element-wise mean of fields. Metadata is taken
// from the first field.
func Mean(fields []Field) (Field, error) {
	if len(fields) == 0 {
		return Field{}, errors.New("mean: no fields")
	}
	total, err := Sum(fields)
	if err != nil {
		return Field{}, fmt.Errorf("mean: %w", err)
	}
	return Scale(total, 1/float64(len(fields))), nil
}

func combine(a, b Field, op string, fn func(x, y float64) float64) (Field, error) {
	if a.Data == nil || b.Data == nil {
		return Field{}, fmt.Errorf("%s %s and %s: missing data", op, a.Name, b.Name)
	}
	if !slices.Equal(a.Data.Shape, b.Data.Shape) {
		return Field{}, fmt.Errorf("%s %s and %s: shape %v does not match %v", op, a.Name, b.Name, a.Data.Shape, b.Data.Shape)
	}
	out := a.Clone()
	for i, v := range b.Data.Elements {
		out.Data.Elements[i] = fn(out.Data.Elements[i], v)
	}
	return out, nil
}

// CollapseTime averages f over its time dimension, which must be the leading
// axis. Every time step contributes equally.
func CollapseTime(f Field) (Field, error) {
	if f.Axis(DimTime) != 0 || f.Data == nil {
		return Field{}, fmt.Errorf("collapse time of %s: time is not the leading dimension of %v", f.Name, f.Dims)
	}
	nt := f.Data.Shape[0]
	if nt == 0 {
		return Field{}, fmt.Errorf("collapse time of %s: no time steps", f.Name)
	}

	shape := f.Data.Shape[1:]
	data := newDense(shape)
	stride := len(data.Elements)
	for t := 0; t < nt; t++ {
		step := f.Data.Elements[t*stride : (t+1)*stride]
		for i, v := range step {
			data.Elements[i] += v
		}
	}
	for i := range data.Elements {
		data.Elements[i] /= float64(nt)
	}

	out := f.withData(data)
	out.Dims = slices.Clone(f.Dims[1:])
	out.Time, out.Year = nil, nil
	return out, nil
}

// SelectLevel extracts one level from f, dropping the level dimension.
func SelectLevel(f Field, level int) (Field, error) {
	axis := -1
	if f.LevelName != "" && f.Data != nil {
		axis = f.Axis(f.LevelName)
	}
	if axis < 0 {
		return Field{}, &MissingSelectorError{Field: f.Name, Level: level}
	}
	idx := slices.Index(f.Levels, level)
	if idx < 0 {
		return Field{}, &MissingSelectorError{Field: f.Name, Dimension: f.LevelName, Level: level, Available: slices.Clone(f.Levels)}
	}

	out := take(f, axis, []int{idx})
	out.Dims = slices.Delete(out.Dims, axis, axis+1)
	out.Data = reshape(out.Data, slices.Delete(slices.Clone(out.Data.Shape), axis, axis+1))
	out.LevelName, out.Levels = "", nil
	return out, nil
}

// ExtractYears restricts f to time steps whose year lies in [start, end].
// The result may hold zero time steps.
func ExtractYears(f Field, start, end int) (Field, error) {
	axis := f.Axis(DimTime)
	if axis < 0 || f.Data == nil {
		return Field{}, fmt.Errorf("extract years from %s: no time dimension", f.Name)
	}
	if len(f.Year) != f.Data.Shape[axis] {
		return Field{}, fmt.Errorf("extract years from %s: year coordinate not derived", f.Name)
	}
	var keep []int
	for i, y := range f.Year {
		if start <= y && y <= end {
			keep = append(keep, i)
		}
	}

	out := take(f, axis, keep)
	out.Time = pick(f.Time, keep)
	out.Year = pick(f.Year, keep)
	return out, nil
}

// take copies the given indices along axis into a new Field.
func take(f Field, axis int, indices []int) Field {
	shape := slices.Clone(f.Data.Shape)
	outer := 1
	for _, n := range shape[:axis] {
		outer *= n
	}
	inner := 1
	for _, n := range shape[axis+1:] {
		inner *= n
	}
	n := shape[axis]
	shape[axis] = len(indices)

	data := newDense(shape)
	pos := 0
	for o := 0; o < outer; o++ {
		for _, idx := range indices {
			src := (o*n + idx) * inner
			copy(data.Elements[pos:pos+inner], f.Data.Elements[src:src+inner])
			pos += inner
		}
	}
	return f.withData(data)
}

// reshape copies a's elements into an array of a new shape with the same size.
func reshape(a *sparse.DenseArray, shape []int) *sparse.DenseArray {
	out := newDense(shape)
	copy(out.Elements, a.Elements)
	return out
}

func pick[T any](values []T, indices []int) []T {
	if values == nil {
		return nil
	}
	out := make([]T, len(indices))
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}
