package imgio

import(
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
	"github.com/mdouchement/hdr/tmo"
	"golang.org/x/image/draw"

	"github.com/abworrall/rededge-refl/pkg/emath"
)

// ReflectanceImage presents a single-band grid as a gray HDR image, so
// the hdr codecs and tone mappers can work on it. Implements hdr.Image.
type ReflectanceImage struct {
	emath.FloatGrid
}

func (ri ReflectanceImage)ColorModel() color.Model { return hdrcolor.RGBModel }
func (ri ReflectanceImage)Bounds() image.Rectangle { return ri.FloatGrid.Bounds() }
func (ri ReflectanceImage)At(x, y int) color.Color { return ri.HDRAt(x,y) }
func (ri ReflectanceImage)Size() int               { return ri.Dx() * ri.Dy() }

func (ri ReflectanceImage)HDRAt(x, y int) hdrcolor.Color {
	v := ri.Get(x,y)
	if v < 0 {
		v = 0
	}
	return hdrcolor.RGB{R: v, G: v, B: v}
}

// WriteHDR keeps the full float range, in Radiance RGBE format.
func WriteHDR(fg emath.FloatGrid, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("WriteHDR, open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		if err := rgbe.Encode(writer, ReflectanceImage{fg}); err != nil {
			return fmt.Errorf("WriteHDR, encoding RGBE '%s': %v", filename, err)
		}
		return nil
	}
}

// Quicklook tonemaps the grid and shrinks it so its longest side is at
// most maxDim pixels (0 means full size).
func Quicklook(fg emath.FloatGrid, maxDim int) image.Image {
	ldr := tmo.NewLinear(ReflectanceImage{fg}).Perform()

	b := ldr.Bounds()
	long := b.Dx()
	if b.Dy() > long {
		long = b.Dy()
	}
	if maxDim <= 0 || long <= maxDim {
		return ldr
	}

	w := b.Dx() * maxDim / long
	h := b.Dy() * maxDim / long
	if w < 1 { w = 1 }
	if h < 1 { h = 1 }
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), ldr, b, draw.Src, nil)
	return dst
}

func WriteQuicklook(fg emath.FloatGrid, maxDim int, filename string) error {
	return WritePNG(Quicklook(fg, maxDim), filename)
}
