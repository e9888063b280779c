package output

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	cellPixels = 4  // pixels per grid cell edge
	barHeight  = 10 // colour bar rows below the map
	barGap     = 4
)

// Colour ramps: sequential for single-signed data and diverging, centred on
// zero, for data with both signs.
var (
	sequentialRamp = mustRamp("#440154", "#3b528b", "#21918c", "#5ec962", "#fde725")
	divergingRamp  = mustRamp("#313695", "#74add1", "#f7f7f7", "#f46d43", "#a50026")
)

type ramp []colorful.Color

func mustRamp(hexes ...string) ramp {
	r := make(ramp, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(fmt.Sprintf("colour ramp: %v", err))
		}
		r[i] = c
	}
	return r
}

// at maps t in [0, 1] onto the ramp, blending in CIE L*a*b*.
func (r ramp) at(t float64) color.Color {
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(r)-1)
	i := int(pos)
	if i >= len(r)-1 {
		return r[len(r)-1].Clamped()
	}
	return r[i].BlendLab(r[i+1], pos-float64(i)).Clamped()
}

// RenderPNG draws a (latitude, longitude) Field as a colour-mapped raster
// with north at the top and a colour bar underneath. NaN cells are
// transparent.
func RenderPNG(w io.Writer, f domain.Field) error {
	img, err := rasterize(f)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode %s: %w", f.Name, err)
	}
	return nil
}

func rasterize(f domain.Field) (*image.NRGBA, error) {
	if len(f.Dims) != 2 || f.Dims[0] != domain.DimLatitude || f.Dims[1] != domain.DimLongitude || f.Empty() {
		return nil, fmt.Errorf("render %s: expected a non-empty (latitude, longitude) map, got dims %v", f.Name, f.Dims)
	}
	ny, nx := f.Data.Shape[0], f.Data.Shape[1]
	values := f.Values()

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !math.IsNaN(v) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 0
	}
	cmap, scale := colourScale(lo, hi)

	width, height := nx*cellPixels, ny*cellPixels
	img := image.NewNRGBA(image.Rect(0, 0, width, height+barGap+barHeight))

	northUp := len(f.Lat) < 2 || f.Lat[0] < f.Lat[len(f.Lat)-1]
	for j := 0; j < ny; j++ {
		row := j
		if northUp {
			row = ny - 1 - j
		}
		for i := 0; i < nx; i++ {
			v := values[j*nx+i]
			if math.IsNaN(v) {
				continue
			}
			c := cmap.at(scale(v))
			for dy := 0; dy < cellPixels; dy++ {
				for dx := 0; dx < cellPixels; dx++ {
					img.Set(i*cellPixels+dx, row*cellPixels+dy, c)
				}
			}
		}
	}

	for x := 0; x < width; x++ {
		c := cmap.at(float64(x) / float64(max(width-1, 1)))
		for y := height + barGap; y < height+barGap+barHeight; y++ {
			img.Set(x, y, c)
		}
	}
	return img, nil
}

// colourScale picks a ramp and a normalisation for the data range.
func colourScale(lo, hi float64) (ramp, func(float64) float64) {
	if lo < 0 && hi > 0 {
		m := math.Max(-lo, hi)
		return divergingRamp, func(v float64) float64 { return (v/m + 1) / 2 }
	}
	if hi == lo {
		return sequentialRamp, func(float64) float64 { return 0.5 }
	}
	return sequentialRamp, func(v float64) float64 { return (v - lo) / (hi - lo) }
}
