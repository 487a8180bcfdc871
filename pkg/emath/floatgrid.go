package emath

import(
	"fmt"
	"image"
	"image/color"
	"math"
)

// A FloatGrid is a single-band raster of float64 values, stored row
// major. Raw DN counts, radiance and reflectance images are all
// FloatGrids; [x,y] uses image coords, origin top-left.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewFloatGridFrom wraps an existing row-major slice; len(values) must be a multiple of w.
func NewFloatGridFrom(w int, values []float64) FloatGrid {
	return FloatGrid{stride: w, values: values}
}

func (g1 *FloatGrid)NewFromThis() FloatGrid  { return NewFloatGrid(g1.Dx(), g1.Dy()) }
func (fg *FloatGrid)Set(x, y int, v float64) { fg.values[fg.stride*y + x] = v }
func (fg *FloatGrid)Get(x, y int) float64    { return fg.values[fg.stride*y + x] }
func (fg *FloatGrid)Dx() int                 { return fg.stride }
func (fg *FloatGrid)Bounds() image.Rectangle { return image.Rect(0, 0, fg.Dx(), fg.Dy()) }
func (fg *FloatGrid)Values() []float64       { return fg.values }

func (fg *FloatGrid)Dy() int {
	if fg.stride == 0 {
		return 0
	}
	return len(fg.values) / fg.stride
}

func (g1 *FloatGrid)Copy() *FloatGrid {
	g2 := FloatGrid{stride: g1.stride, values:make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

// Scaled returns a new grid with every value multiplied by f.
func (g1 FloatGrid)Scaled(f float64) FloatGrid {
	g2 := g1.NewFromThis()
	for i, v := range g1.values {
		g2.values[i] = v * f
	}
	return g2
}


// SubGrid copies out the pixels inside r, which is clipped to the grid.
func (g1 FloatGrid)SubGrid(r image.Rectangle) FloatGrid {
	r = r.Canon().Intersect(g1.Bounds())
	g2 := NewFloatGrid(r.Dx(), r.Dy())
	for y:=r.Min.Y; y<r.Max.Y; y++ {
		for x:=r.Min.X; x<r.Max.X; x++ {
			g2.Set(x-r.Min.X, y-r.Min.Y, g1.Get(x,y))
		}
	}
	return g2
}

// Bilinear samples the grid at a fractional position. ok is false if the
// position falls outside the grid.
func (fg *FloatGrid)Bilinear(x, y float64) (float64, bool) {
	if x < 0 || y < 0 || x > float64(fg.Dx()-1) || y > float64(fg.Dy()-1) {
		return 0, false
	}
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := x0+1, y0+1
	if x1 >= fg.Dx() { x1 = x0 }
	if y1 >= fg.Dy() { y1 = y0 }
	fx, fy := x - float64(x0), y - float64(y0)

	top := fg.Get(x0,y0)*(1-fx) + fg.Get(x1,y0)*fx
	bot := fg.Get(x0,y1)*(1-fx) + fg.Get(x1,y1)*fx
	return top*(1-fy) + bot*fy, true
}

// GaussianBlur is a cheap separable [1 2 1] blur; apply it repeatedly for
// a wider kernel.
func (g1 FloatGrid)GaussianBlur() FloatGrid {
	width := g1.Dx()
	height := g1.Dy()
	g2 := g1.NewFromThis()
	if width < 2 || height < 2 {
		copy(g2.values, g1.values)
		return g2
	}

	T  := g1.NewFromThis()

	//--- X blur, build up in T
	for y:=0; y<height; y++ {
		for x:=1; x<width-1; x++ {
			t := 2.0*g1.Get(x,y)
			t += g1.Get(x-1,y)
			t += g1.Get(x+1,y)
			T.Set(x, y, t/4.0)
		}
		T.Set(0, y,       (3.0*g1.Get(0,      y) + g1.Get(1,      y)) / 4.0)
		T.Set(width-1, y, (3.0*g1.Get(width-1,y) + g1.Get(width-2,y)) / 4.0)
	}

	//--- Y blur, read from T and generate output
	for x:=0; x<width; x++ {
		for y:=1; y<height-1; y++ {
			t := 2.0*T.Get(x,y)
			t += T.Get(x,y-1)
			t += T.Get(x,y+1)
			g2.Set(x, y, t/4.0)
		}
		g2.Set(x, 0,        (3.0*T.Get(x,       0) + T.Get(x,       1)) / 4.0)
		g2.Set(x, height-1, (3.0*T.Get(x,height-1) + T.Get(x,height-2)) / 4.0)
	}

	return g2
}

// MinMax ignores NaNs; returns (0,0) for an empty grid.
func (fg *FloatGrid)MinMax() (float64, float64) {
	min := math.MaxFloat64
	max := -1.0  * min
	for _, v := range fg.values {
		if math.IsNaN(v) { continue }
		if v > max { max = v }
		if v < min { min = v }
	}
	if max < min {
		return 0, 0
	}
	return min, max
}

func (fg *FloatGrid)Stats() string {
	min, max := fg.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}]", fg.Dx(), fg.Dy(), min, max)
}

// ToGray maps the grid's value range onto a gamma-expanded grayscale, so it looks
// sensible to a human.
func (fg *FloatGrid)ToGray() *image.Gray16 {
	min, max := fg.MinMax()
	img := image.NewGray16(fg.Bounds())
	for x:=0; x<fg.Dx(); x++ {
		for y:=0; y<fg.Dy(); y++ {
			gray := 0.0
			if max > min {
				gray = GammaExpand_F64((fg.Get(x,y) - min) / (max - min))
			}
			img.SetGray16(x, y, color.Gray16{uint16(Clamp(gray, 0, 1) * 65535.0)})
		}
	}
	return img
}
