package imgio

import(
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/rededge-refl/pkg/emath"
)

func rampGrid(w, h int) emath.FloatGrid {
	fg := emath.NewFloatGrid(w, h)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			fg.Set(x, y, float64(x+y*w)/float64(w*h))
		}
	}
	return fg
}

func TestTIFF16RoundTrip(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "IMG_0001_1.tif")
	fg := rampGrid(16, 8)
	require.NoError(t, WriteTIFF16(fg, DefaultTIFFScale, fn))

	back, err := LoadRawTIFF(fn)
	require.NoError(t, err)
	require.Equal(t, 16, back.Dx())
	require.Equal(t, 8, back.Dy())
	for y:=0; y<8; y++ {
		for x:=0; x<16; x++ {
			assert.Equal(t, math.Round(fg.Get(x,y)*DefaultTIFFScale), back.Get(x,y))
		}
	}
}

func TestToGray16Clips(t *testing.T) {
	fg := emath.NewFloatGridFrom(4, []float64{-0.5, 0.5, 2.5, math.NaN()})
	img := ToGray16(fg, DefaultTIFFScale)
	assert.Equal(t, uint16(0), img.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(16384), img.Gray16At(1, 0).Y)
	assert.Equal(t, uint16(0xFFFF), img.Gray16At(2, 0).Y)
	assert.Equal(t, uint16(0), img.Gray16At(3, 0).Y)
}

func TestToFloatGridOffsetBounds(t *testing.T) {
	img := image.NewGray(image.Rect(10, 20, 13, 22))
	img.SetGray(12, 21, color.Gray{0xFF})
	fg := ToFloatGrid(img)
	assert.Equal(t, 3, fg.Dx())
	assert.Equal(t, 2, fg.Dy())
	assert.Equal(t, 65535.0, fg.Get(2, 1))
	assert.Equal(t, 0.0, fg.Get(0, 0))
}

func TestLoadRawTIFFMissing(t *testing.T) {
	_, err := LoadRawTIFF(filepath.Join(t.TempDir(), "nope.tif"))
	assert.Error(t, err)
}

func TestReflectanceImage(t *testing.T) {
	ri := ReflectanceImage{emath.NewFloatGridFrom(2, []float64{0.25, -1, 3, 0})}
	assert.Equal(t, 4, ri.Size())
	assert.Equal(t, image.Rect(0, 0, 2, 2), ri.Bounds())
	r, g, b, _ := ri.HDRAt(0, 0).HDRRGBA()
	assert.Equal(t, []float64{0.25, 0.25, 0.25}, []float64{r, g, b})
	r, _, _, _ = ri.HDRAt(1, 0).HDRRGBA()
	assert.Equal(t, 0.0, r)
}

func TestWriteHDR(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "refl.hdr")
	require.NoError(t, WriteHDR(rampGrid(8, 8), fn))
	st, err := os.Stat(fn)
	require.NoError(t, err)
	assert.True(t, st.Size() > 0)
}

func TestQuicklook(t *testing.T) {
	ql := Quicklook(rampGrid(40, 20), 10)
	assert.Equal(t, image.Rect(0, 0, 10, 5), ql.Bounds())

	ql = Quicklook(rampGrid(8, 4), 0)
	assert.Equal(t, image.Rect(0, 0, 8, 4), ql.Bounds())

	fn := filepath.Join(t.TempDir(), "ql.png")
	require.NoError(t, WriteQuicklook(rampGrid(8, 4), 4, fn))
}
