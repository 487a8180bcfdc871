package refl

import(
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/abworrall/rededge-refl/pkg/calerr"
	"github.com/abworrall/rededge-refl/pkg/emath"
)

// DriftModel is the line factor(t) = M*t + C for one band, with t a
// Julian date. It passes exactly through the pre- and post-flight panel
// factors.
type DriftModel struct {
	Band        string
	Reflectance float64 // panel reference reflectance
	Pre         float64 // pre-flight factor
	Post        float64 // post-flight factor
	M           float64
	C           float64
}

func (dm DriftModel)String() string {
	return fmt.Sprintf("%s: factor(t) = %.9g*t + %.9g (pre %.6f, post %.6f, panel %.4f)", dm.Band, dm.M, dm.C, dm.Pre, dm.Post, dm.Reflectance)
}

func (dm DriftModel)FactorAtJD(jd float64) float64 { return dm.M*jd + dm.C }
func (dm DriftModel)FactorAt(t time.Time) float64  { return dm.FactorAtJD(emath.JulianDate(t)) }

// FitLine is the unique line through (t0,f0) and (t1,f1).
func FitLine(t0, f0, t1, f1 float64) (m, c float64, err error) {
	if t0 == t1 {
		return 0, 0, errors.Wrapf(calerr.ErrDegenerateFit, "both observations at t=%f", t0)
	}
	m = (f1 - f0) / (t1 - t0)
	c = f0 - m*t0
	return m, c, nil
}

// Fit builds the drift model for one band from its pre- and post-flight
// panel observations. Both must be of that band and carry timestamps.
func Fit(band string, pre, post PanelObservation) (DriftModel, error) {
	for _, po := range []PanelObservation{pre, post} {
		if po.Band != band {
			return DriftModel{}, errors.Wrapf(calerr.ErrLookup, "fit %s: observation %s is band %q", band, po.Filename, po.Band)
		} else if !po.HasTime {
			return DriftModel{}, errors.Wrapf(calerr.ErrDegenerateFit, "fit %s: observation %s has no timestamp", band, po.Filename)
		}
	}

	m, c, err := FitLine(pre.JulianDate(), pre.Factor, post.JulianDate(), post.Factor)
	if err != nil {
		return DriftModel{}, errors.Wrapf(err, "fit %s (%s, %s)", band, pre.Filename, post.Filename)
	}

	return DriftModel{
		Band:        band,
		Reflectance: pre.Reflectance,
		Pre:         pre.Factor,
		Post:        post.Factor,
		M:           m,
		C:           c,
	}, nil
}
