package radiometry

import(
	"fmt"

	"github.com/pkg/errors"

	"github.com/abworrall/rededge-refl/pkg/calerr"
	"github.com/abworrall/rededge-refl/pkg/emath"
	"github.com/abworrall/rededge-refl/pkg/meta"
)

// DefaultPixelPitchMM is the RedEdge sensor's pixel size (3.75um).
const DefaultPixelPitchMM = 0.00375

// BrownConrady removes radial and tangential lens distortion, with the
// camera intrinsics taken from the XMP Perspective* tags. Pixels that map
// outside the source image come out as zero.
type BrownConrady struct {
	PixelPitchMM float64
}

type LensModel struct {
	Fx, Fy         float64 // focal length, pixels
	Cx, Cy         float64 // principal point, pixels
	K1, K2, K3     float64
	P1, P2         float64
}

func (lm LensModel)String() string {
	return fmt.Sprintf("f=%.1fpx c=(%.1f,%.1f) k=[%g %g %g] p=[%g %g]", lm.Fx, lm.Cx, lm.Cy, lm.K1, lm.K2, lm.K3, lm.P1, lm.P2)
}

func (bc BrownConrady)LensModel(md *meta.Metadata) (LensModel, error) {
	pitch := bc.PixelPitchMM
	if pitch <= 0 {
		pitch = DefaultPixelPitchMM
	}

	fl, err := md.CalibrationFloats("PerspectiveFocalLength")
	if err != nil {
		return LensModel{}, err
	}
	pp, err := md.CalibrationFloats("PrincipalPoint")
	if err != nil {
		return LensModel{}, err
	} else if len(pp) != 2 {
		return LensModel{}, errors.Wrapf(calerr.ErrParse, "%s: PrincipalPoint has %d values, want 2", md.Filename, len(pp))
	}
	// Tag order is k1,k2,k3,p1,p2
	dist, err := md.CalibrationFloats("PerspectiveDistortion")
	if err != nil {
		return LensModel{}, err
	} else if len(dist) != 5 {
		return LensModel{}, errors.Wrapf(calerr.ErrParse, "%s: PerspectiveDistortion has %d values, want 5", md.Filename, len(dist))
	}

	f := fl[0] / pitch
	return LensModel{
		Fx: f, Fy: f,
		Cx: pp[0] / pitch, Cy: pp[1] / pitch,
		K1: dist[0], K2: dist[1], K3: dist[2],
		P1: dist[3], P2: dist[4],
	}, nil
}

// Distort maps an ideal (undistorted) pixel position to where the lens
// actually put it.
func (lm LensModel)Distort(u, v float64) (float64, float64) {
	x := (u - lm.Cx) / lm.Fx
	y := (v - lm.Cy) / lm.Fy
	r2 := x*x + y*y
	radial := 1 + lm.K1*r2 + lm.K2*r2*r2 + lm.K3*r2*r2*r2
	xd := x*radial + 2*lm.P1*x*y + lm.P2*(r2+2*x*x)
	yd := y*radial + lm.P1*(r2+2*y*y) + 2*lm.P2*x*y
	return xd*lm.Fx + lm.Cx, yd*lm.Fy + lm.Cy
}

func (bc BrownConrady)Undistort(md *meta.Metadata, img emath.FloatGrid) (emath.FloatGrid, error) {
	lm, err := bc.LensModel(md)
	if err != nil {
		return emath.FloatGrid{}, err
	}
	return lm.Remap(img), nil
}

// Remap builds the undistorted image by sampling img at each output
// pixel's distorted position.
func (lm LensModel)Remap(img emath.FloatGrid) emath.FloatGrid {
	out := img.NewFromThis()
	for y:=0; y<img.Dy(); y++ {
		for x:=0; x<img.Dx(); x++ {
			sx, sy := lm.Distort(float64(x), float64(y))
			if v, ok := img.Bilinear(sx, sy); ok {
				out.Set(x, y, v)
			}
		}
	}
	return out
}
