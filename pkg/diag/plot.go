package diag

import(
	"fmt"
	"image"

	"github.com/fogleman/gg"

	"github.com/abworrall/rededge-refl/pkg/emath"
)

// Plot renders the grid in false colour with a title and its value range
// burned in, and outlines region if it is non-empty.
func Plot(fg emath.FloatGrid, title string, region image.Rectangle, filename string) error {
	dc := gg.NewContextForImage(DefaultColormap().FalseColor(fg))

	if !region.Empty() {
		dc.SetRGB(0, 1, 0)
		dc.SetLineWidth(2)
		dc.DrawRectangle(float64(region.Min.X), float64(region.Min.Y), float64(region.Dx()), float64(region.Dy()))
		dc.Stroke()
	}

	min, max := fg.MinMax()
	dc.SetRGB(1, 1, 1)
	dc.DrawString(title, 10, 20)
	dc.DrawString(fmt.Sprintf("range [%.4g, %.4g]", min, max), 10, 40)

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("plot '%s': %v", filename, err)
	}
	return nil
}

// GridOverlay draws a labelled pixel grid every step pixels, to help an
// operator read off panel corners.
func GridOverlay(fg emath.FloatGrid, step int, filename string) error {
	if step <= 0 {
		step = 100
	}
	dc := gg.NewContextForImage(fg.ToGray())
	dc.SetRGBA(1, 1, 0, 0.6)
	dc.SetLineWidth(1)
	for x:=0; x<fg.Dx(); x+=step {
		dc.DrawLine(float64(x), 0, float64(x), float64(fg.Dy()))
		dc.Stroke()
		dc.DrawString(fmt.Sprintf("%d", x), float64(x)+2, 12)
	}
	for y:=0; y<fg.Dy(); y+=step {
		dc.DrawLine(0, float64(y), float64(fg.Dx()), float64(y))
		dc.Stroke()
		dc.DrawString(fmt.Sprintf("%d", y), 2, float64(y)-2)
	}
	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("grid overlay '%s': %v", filename, err)
	}
	return nil
}
