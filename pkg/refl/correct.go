package refl

import(
	"fmt"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/abworrall/rededge-refl/pkg/elog"
	"github.com/abworrall/rededge-refl/pkg/emath"
	"github.com/abworrall/rededge-refl/pkg/meta"
	"github.com/abworrall/rededge-refl/pkg/radiometry"
)

// Corrector converts flight images to reflectance using the drift table.
// The table and calibration model are shared read-only between workers.
type Corrector struct {
	Drift     DriftTable
	Model     *meta.CalibrationModel // optional; overrides in-camera calibration
	Converter radiometry.Converter
	Lens      radiometry.Undistorter // nil leaves lens distortion alone
	Log       elog.Logger
}

// Corrected is one flight image in reflectance units.
type Corrected struct {
	Filename    string
	Band        string
	Time        time.Time
	Factor      float64
	Reflectance emath.FloatGrid
	Metadata    *meta.Metadata
}

func (c Corrected)String() string {
	return fmt.Sprintf("%s [%s] at %s: factor %.6f", filepath.Base(c.Filename), c.Band, c.Time.Format(meta.TimestampLayout), c.Factor)
}

// Correct computes reflectance = radiance * (m*t + c) for the image's band
// and acquisition time. md is mutated if a calibration model is injected.
func (c Corrector)Correct(raw emath.FloatGrid, md *meta.Metadata) (Corrected, error) {
	log := elog.OrNull(c.Log)
	out := Corrected{Filename: md.Filename, Metadata: md}

	var err error
	if out.Band, err = md.Band(); err != nil {
		return out, err
	}
	if out.Time, err = md.AcquisitionTime(); err != nil {
		return out, err
	}
	dm, err := c.Drift.Lookup(out.Band)
	if err != nil {
		return out, errors.Wrap(err, md.Filename)
	}
	out.Factor = dm.FactorAt(out.Time)

	if err := PrepareMetadata(md, c.Model, log); err != nil {
		return out, err
	}
	rad, _, err := c.Converter.Radiance(md, raw)
	if err != nil {
		return out, errors.Wrapf(err, "radiance of '%s'", md.Filename)
	}
	out.Reflectance = rad.Scaled(out.Factor)

	if c.Lens != nil {
		if out.Reflectance, err = c.Lens.Undistort(md, out.Reflectance); err != nil {
			return out, errors.Wrapf(err, "undistort '%s'", md.Filename)
		}
	}

	log.Debugf("%s", out)
	return out, nil
}
