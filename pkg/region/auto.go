package region

import(
	"context"
	"fmt"
	"image"

	"github.com/pkg/errors"

	"github.com/abworrall/rededge-refl/pkg/calerr"
	"github.com/abworrall/rededge-refl/pkg/emath"
)

// Auto finds the panel as the bright, uniform blob around the brightest
// point of a blurred copy of the image. This is a fairly dumb routine; it
// expects the panel to be the brightest thing in shot, which is how
// panel photos are taken.
type Auto struct {
	BlurPasses int     // repeated [1 2 1] blurs, to knock out noise and glints
	Tolerance  float64 // pixels within this fraction of the seed value are panel
	InsetFrac  float64 // shrink the bounding box by this fraction of its size, per side
	MinArea    int     // below this many pixels, give up
}

func NewAuto() Auto {
	return Auto{BlurPasses: 3, Tolerance: 0.1, InsetFrac: 0.1, MinArea: 100}
}

func (a Auto)String() string {
	return fmt.Sprintf("Auto{blur:%d, tol:%.2f, inset:%.2f, minarea:%d}", a.BlurPasses, a.Tolerance, a.InsetFrac, a.MinArea)
}

func (a Auto)Select(ctx context.Context, filename string, img emath.FloatGrid) (image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return image.Rectangle{}, errors.Wrapf(calerr.ErrAborted, "%s: %v", filename, err)
	}
	if img.Dx() == 0 || img.Dy() == 0 {
		return image.Rectangle{}, errors.Wrapf(calerr.ErrDivision, "auto region '%s': empty image", filename)
	}

	blurred := img
	for i:=0; i<a.BlurPasses; i++ {
		blurred = blurred.GaussianBlur()
	}

	seed, seedVal := brightest(blurred)
	if seedVal <= 0 {
		return image.Rectangle{}, errors.Wrapf(calerr.ErrDivision, "auto region '%s': no signal", filename)
	}
	thresh := seedVal * (1 - a.Tolerance)

	bounds := floodFill(blurred, seed, thresh)

	// bounds is inclusive of its Max point; make it a half-open Rectangle, then inset
	r := image.Rectangle{Min: bounds.Min, Max: bounds.Max.Add(image.Point{1, 1})}
	dx := int(float64(r.Dx()) * a.InsetFrac)
	dy := int(float64(r.Dy()) * a.InsetFrac)
	r.Min.X, r.Max.X = r.Min.X+dx, r.Max.X-dx
	r.Min.Y, r.Max.Y = r.Min.Y+dy, r.Max.Y-dy

	r = Clip(r, img)
	if r.Dx()*r.Dy() < a.MinArea {
		return image.Rectangle{}, errors.Wrapf(calerr.ErrDivision, "auto region '%s': found %s, smaller than %d pixels", filename, r, a.MinArea)
	}

	return r, nil
}

func brightest(fg emath.FloatGrid) (image.Point, float64) {
	p, max := image.Point{}, fg.Get(0,0)
	for y:=0; y<fg.Dy(); y++ {
		for x:=0; x<fg.Dx(); x++ {
			if v := fg.Get(x,y); v > max {
				p, max = image.Point{x, y}, v
			}
		}
	}
	return p, max
}

// floodFill returns the inclusive bounding box of the 4-connected pixels
// around seed whose value is at least thresh.
func floodFill(fg emath.FloatGrid, seed image.Point, thresh float64) image.Rectangle {
	w, h := fg.Dx(), fg.Dy()
	seen := make([]bool, w*h)
	bounds := image.Rectangle{Min: seed, Max: seed}

	toVisit := []image.Point{seed}
	var p image.Point
	for len(toVisit) > 0 {
		p, toVisit = toVisit[0], toVisit[1:]

		if seen[p.Y*w + p.X] {
			continue
		}
		seen[p.Y*w + p.X] = true

		if fg.Get(p.X, p.Y) < thresh {
			continue
		}
		bounds = growRectangle(bounds, p)

		for _, n := range []image.Point{{p.X-1, p.Y}, {p.X+1, p.Y}, {p.X, p.Y-1}, {p.X, p.Y+1}} {
			if n.X >= 0 && n.Y >= 0 && n.X < w && n.Y < h && !seen[n.Y*w + n.X] {
				toVisit = append(toVisit, n)
			}
		}
	}

	return bounds
}
