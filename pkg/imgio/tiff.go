// Package imgio reads raw camera frames into FloatGrids, and writes
// reflectance grids back out as 16-bit TIFF, Radiance HDR or PNG.
package imgio

import(
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/tiff"

	"github.com/abworrall/rededge-refl/pkg/emath"
)

// DefaultTIFFScale maps reflectance 1.0 to 32768, leaving headroom for
// specular pixels above 1.
const DefaultTIFFScale = 32768.0

// LoadRawTIFF decodes a single-band frame into raw DN counts. 16-bit
// grayscale frames are read directly; anything else goes through the
// Gray16 color model.
func LoadRawTIFF(filename string) (emath.FloatGrid, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return emath.FloatGrid{}, fmt.Errorf("open+r img '%s': %v", filename, err)
	}
	defer reader.Close()

	img, err := tiff.Decode(reader)
	if err != nil {
		return emath.FloatGrid{}, fmt.Errorf("tiff loading '%s': %v", filename, err)
	}

	return ToFloatGrid(img), nil
}

func ToFloatGrid(img image.Image) emath.FloatGrid {
	b := img.Bounds()
	fg := emath.NewFloatGrid(b.Dx(), b.Dy())

	if g16, ok := img.(*image.Gray16); ok {
		for y:=b.Min.Y; y<b.Max.Y; y++ {
			for x:=b.Min.X; x<b.Max.X; x++ {
				fg.Set(x-b.Min.X, y-b.Min.Y, float64(g16.Gray16At(x,y).Y))
			}
		}
		return fg
	}

	for y:=b.Min.Y; y<b.Max.Y; y++ {
		for x:=b.Min.X; x<b.Max.X; x++ {
			g := color.Gray16Model.Convert(img.At(x,y)).(color.Gray16)
			fg.Set(x-b.Min.X, y-b.Min.Y, float64(g.Y))
		}
	}
	return fg
}

// ToGray16 scales values and clips them into [0, 0xFFFF]. NaNs become 0.
func ToGray16(fg emath.FloatGrid, scale float64) *image.Gray16 {
	img := image.NewGray16(fg.Bounds())
	for y:=0; y<fg.Dy(); y++ {
		for x:=0; x<fg.Dx(); x++ {
			v := fg.Get(x,y) * scale
			if math.IsNaN(v) {
				v = 0
			}
			img.SetGray16(x, y, color.Gray16{uint16(math.Round(emath.Clamp(v, 0, 0xFFFF)))})
		}
	}
	return img
}

// WriteTIFF16 writes reflectance*scale as a deflated 16-bit grayscale TIFF.
func WriteTIFF16(fg emath.FloatGrid, scale float64, filename string) error {
	if scale <= 0 {
		scale = DefaultTIFFScale
	}
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		if err := tiff.Encode(writer, ToGray16(fg, scale), &tiff.Options{Compression: tiff.Deflate}); err != nil {
			return fmt.Errorf("tiff encoding '%s': %v", filename, err)
		}
		return nil
	}
}

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}
