// Package radiometry turns raw sensor counts into at-sensor radiance, and
// optionally undoes lens distortion. The pipeline only sees the Converter
// and Undistorter interfaces.
package radiometry

import(
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/abworrall/rededge-refl/pkg/calerr"
	"github.com/abworrall/rededge-refl/pkg/elog"
	"github.com/abworrall/rededge-refl/pkg/emath"
	"github.com/abworrall/rededge-refl/pkg/meta"
)

// Products are the intermediate grids of a radiance conversion, kept for
// diagnostic plots.
type Products struct {
	Vignette    emath.FloatGrid // V, per-pixel vignette correction
	RowGradient emath.FloatGrid // R, per-row readout correction
	Corrected   emath.FloatGrid // L = V*R*(DN-black), clipped at zero
}

type Converter interface {
	Radiance(md *meta.Metadata, raw emath.FloatGrid) (emath.FloatGrid, Products, error)
}

type Undistorter interface {
	Undistort(md *meta.Metadata, img emath.FloatGrid) (emath.FloatGrid, error)
}

// MicaSense is the RedEdge radiometric model. It reads
// RadiometricCalibration (a1,a2,a3), VignettingCenter and
// VignettingPolynomial through the calibration namespace, so an injected
// model overrides the in-camera values.
type MicaSense struct {
	Log elog.Logger
}

// Params are the per-image numbers the model needs; exported so that
// diagnostics can log them.
type Params struct {
	A1, A2, A3   float64
	CenterX      float64
	CenterY      float64
	VignettePoly []float64
	ExposureTime float64 // seconds
	Gain         float64 // ISO/100
	GainTag      string  // where Gain came from; "" if it defaulted to 1
	BlackLevel   float64
	Bits         int
}

func (p Params)String() string {
	return fmt.Sprintf("a=[%g %g %g] vc=(%.1f,%.1f) vp=%v te=%gs gain=%g black=%g bits=%d",
		p.A1, p.A2, p.A3, p.CenterX, p.CenterY, p.VignettePoly, p.ExposureTime, p.Gain, p.BlackLevel, p.Bits)
}

func ParamsFromMetadata(md *meta.Metadata) (Params, error) {
	p := Params{Gain: 1, Bits: 16}

	rc, err := md.CalibrationFloats("RadiometricCalibration")
	if err != nil {
		return p, err
	} else if len(rc) < 3 {
		return p, errors.Wrapf(calerr.ErrParse, "%s: RadiometricCalibration has %d values, want 3", md.Filename, len(rc))
	}
	p.A1, p.A2, p.A3 = rc[0], rc[1], rc[2]

	vc, err := md.CalibrationFloats("VignettingCenter")
	if err != nil {
		return p, err
	} else if len(vc) != 2 {
		return p, errors.Wrapf(calerr.ErrParse, "%s: VignettingCenter has %d values, want 2", md.Filename, len(vc))
	}
	p.CenterX, p.CenterY = vc[0], vc[1]

	if p.VignettePoly, err = md.CalibrationFloats("VignettingPolynomial"); err != nil {
		return p, err
	}

	if p.ExposureTime, err = md.Float(meta.TagExposureTime); err != nil {
		return p, err
	} else if p.ExposureTime <= 0 {
		return p, errors.Wrapf(calerr.ErrParse, "%s: exposure time %g", md.Filename, p.ExposureTime)
	}

	// Optional tags. ISOSpeed (0x8833) wins over the older ISOSpeedRatings.
	for _, tag := range []string{meta.TagISOSpeed, meta.TagISO} {
		if !md.Has(tag) {
			continue
		}
		iso, err := md.Float(tag)
		if err != nil {
			return p, err
		} else if !(iso > 0) {
			return p, errors.Wrapf(calerr.ErrParse, "%s: %s is %g", md.Filename, tag, iso)
		}
		p.Gain, p.GainTag = iso / 100.0, tag
		break
	}
	if md.Has(meta.TagBlackLevel) {
		bl, err := md.Floats(meta.TagBlackLevel)
		if err != nil {
			return p, err
		}
		for _, v := range bl {
			p.BlackLevel += v
		}
		p.BlackLevel /= float64(len(bl))
	}
	if md.Has(meta.TagBitsPerSample) {
		bits, err := md.Float(meta.TagBitsPerSample)
		if err != nil {
			return p, err
		}
		p.Bits = int(bits)
	}

	return p, nil
}

// Radiance returns W/m^2/sr/nm.
func (ms MicaSense)Radiance(md *meta.Metadata, raw emath.FloatGrid) (emath.FloatGrid, Products, error) {
	p, err := ParamsFromMetadata(md)
	if err != nil {
		return emath.FloatGrid{}, Products{}, err
	}
	if p.GainTag == "" {
		elog.OrNull(ms.Log).Infof("%s: no %s or %s tag, assuming gain 1", md.Filename, meta.TagISOSpeed, meta.TagISO)
	}

	w, h := raw.Dx(), raw.Dy()
	prod := Products{
		Vignette:    emath.NewFloatGrid(w, h),
		RowGradient: emath.NewFloatGrid(w, h),
		Corrected:   emath.NewFloatGrid(w, h),
	}
	rad := emath.NewFloatGrid(w, h)
	scale := p.A1 / (p.Gain * p.ExposureTime * math.Pow(2, float64(p.Bits)))

	for y:=0; y<h; y++ {
		r := 1.0 / (1.0 + p.A2*float64(y)/p.ExposureTime - p.A3*float64(y))
		for x:=0; x<w; x++ {
			v := 1.0 / p.vignettePoly(math.Hypot(float64(x)-p.CenterX, float64(y)-p.CenterY))
			l := v * r * (raw.Get(x,y) - p.BlackLevel)
			if l < 0 {
				l = 0
			}
			prod.Vignette.Set(x, y, v)
			prod.RowGradient.Set(x, y, r)
			prod.Corrected.Set(x, y, l)
			rad.Set(x, y, l*scale)
		}
	}

	return rad, prod, nil
}

// 1 + k0*r + k1*r^2 + ...
func (p Params)vignettePoly(r float64) float64 {
	sum, rn := 1.0, 1.0
	for _, k := range p.VignettePoly {
		rn *= r
		sum += k * rn
	}
	return sum
}
