// Package diag produces the calibration-quality artefacts for panel
// photos: region statistics, a reflectance histogram, and false-colour
// plots of each radiometric correction step.
package diag

import(
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/abworrall/rededge-refl/pkg/emath"
)

// Colormap interpolates between evenly spaced colour stops in HCL space.
type Colormap struct {
	Stops []colorful.Color
}

// Magma-ish, dark to bright.
var defaultStops = []string{"#000004", "#3b0f70", "#8c2981", "#de4968", "#fe9f6d", "#fcfdbf"}

func DefaultColormap() Colormap {
	cm := Colormap{}
	for _, hex := range defaultStops {
		c, err := colorful.Hex(hex)
		if err != nil {
			panic(err) // the stops are constants
		}
		cm.Stops = append(cm.Stops, c)
	}
	return cm
}

// At maps f in [0,1] onto the colormap; out of range values are clamped.
func (cm Colormap)At(f float64) color.Color {
	if len(cm.Stops) == 0 {
		return color.Black
	} else if len(cm.Stops) == 1 || math.IsNaN(f) {
		return cm.Stops[0]
	}

	if f <= 0 {
		return cm.Stops[0]
	}
	f = emath.Clamp(f, 0, 1)
	pos := f * float64(len(cm.Stops)-1)
	i := int(pos)
	if i >= len(cm.Stops)-1 {
		return cm.Stops[len(cm.Stops)-1]
	}
	return cm.Stops[i].BlendHcl(cm.Stops[i+1], pos-float64(i)).Clamped()
}

// FalseColor stretches the grid's value range across the colormap.
func (cm Colormap)FalseColor(fg emath.FloatGrid) *image.RGBA {
	min, max := fg.MinMax()
	img := image.NewRGBA(fg.Bounds())
	for y:=0; y<fg.Dy(); y++ {
		for x:=0; x<fg.Dx(); x++ {
			f := 0.0
			if max > min {
				f = (fg.Get(x,y) - min) / (max - min)
			}
			img.Set(x, y, cm.At(f))
		}
	}
	return img
}
