package domain

import (
	"fmt"
	"math"
	"slices"
)

// EarthRadius is the spherical Earth radius in metres used for cell areas.
const EarthRadius = 6367470.0

// GuessBounds infers cell bounds from cell centres: interior bounds lie
// midway between neighbouring centres and the outer bounds extend half a
// cell beyond the first and last centres.
func GuessBounds(centres []float64) ([][2]float64, error) {
	n := len(centres)
	if n < 2 {
		return nil, fmt.Errorf("guess bounds: need at least 2 points, got %d", n)
	}
	edges := make([]float64, n+1)
	for i := 1; i < n; i++ {
		edges[i] = (centres[i-1] + centres[i]) / 2
	}
	edges[0] = centres[0] - (edges[1] - centres[0])
	edges[n] = centres[n-1] + (centres[n-1] - edges[n-1])

	bounds := make([][2]float64, n)
	for i := range bounds {
		bounds[i] = [2]float64{edges[i], edges[i+1]}
	}
	return bounds, nil
}

// WithGuessedBounds returns f with latitude and longitude bounds filled in
// where they are missing. Latitude bounds are clamped to the poles.
func WithGuessedBounds(f Field) (Field, error) {
	out := f.Clone()
	if len(out.LatBounds) == 0 {
		b, err := GuessBounds(out.Lat)
		if err != nil {
			return Field{}, fmt.Errorf("latitude of %s: %w", f.Name, err)
		}
		for i := range b {
			b[i][0] = math.Max(-90, math.Min(90, b[i][0]))
			b[i][1] = math.Max(-90, math.Min(90, b[i][1]))
		}
		out.LatBounds = b
	}
	if len(out.LonBounds) == 0 {
		b, err := GuessBounds(out.Lon)
		if err != nil {
			return Field{}, fmt.Errorf("longitude of %s: %w", f.Name, err)
		}
		out.LonBounds = b
	}
	return out, nil
}

// AreaWeights returns the spherical area in m² of each latitude/longitude
// cell of f in row-major (lat, lon) order. Bounds must be present.
func AreaWeights(f Field) ([]float64, error) {
	if len(f.LatBounds) != len(f.Lat) || len(f.LonBounds) != len(f.Lon) {
		return nil, fmt.Errorf("area weights of %s: missing cell bounds", f.Name)
	}
	weights := make([]float64, len(f.Lat)*len(f.Lon))
	for j, lb := range f.LatBounds {
		band := math.Abs(math.Sin(lb[1]*math.Pi/180) - math.Sin(lb[0]*math.Pi/180))
		for i, xb := range f.LonBounds {
			width := math.Abs(xb[1]-xb[0]) * math.Pi / 180
			weights[j*len(f.Lon)+i] = EarthRadius * EarthRadius * width * band
		}
	}
	return weights, nil
}

// AreaWeightedMean collapses the latitude and longitude dimensions of f,
// which must be its trailing axes, into an area-weighted mean. Leading
// dimensions such as time are kept, so a multi-step input yields a time
// series. NaN cells are skipped.
func AreaWeightedMean(f Field) (Field, error) {
	nd := len(f.Dims)
	if f.Data == nil || nd < 2 || f.Dims[nd-2] != DimLatitude || f.Dims[nd-1] != DimLongitude {
		return Field{}, fmt.Errorf("spatial mean of %s: latitude and longitude must be the trailing dimensions of %v", f.Name, f.Dims)
	}
	bounded, err := WithGuessedBounds(f)
	if err != nil {
		return Field{}, fmt.Errorf("spatial mean: %w", err)
	}
	weights, err := AreaWeights(bounded)
	if err != nil {
		return Field{}, fmt.Errorf("spatial mean: %w", err)
	}

	cells := len(weights)
	shape := slices.Clone(f.Data.Shape[:nd-2])
	data := newDense(shape)
	for l := range data.Elements {
		var sum, wsum float64
		for c, w := range weights {
			v := f.Data.Elements[l*cells+c]
			if math.IsNaN(v) {
				continue
			}
			sum += v * w
			wsum += w
		}
		if wsum == 0 {
			data.Elements[l] = math.NaN()
			continue
		}
		data.Elements[l] = sum / wsum
	}

	out := bounded.withData(data)
	out.Dims = slices.Clone(f.Dims[:nd-2])
	out.Lat, out.Lon, out.LatBounds, out.LonBounds = nil, nil, nil, nil
	return out, nil
}
