package refl

import(
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/abworrall/rededge-refl/pkg/calerr"
	"github.com/abworrall/rededge-refl/pkg/diag"
	"github.com/abworrall/rededge-refl/pkg/elog"
	"github.com/abworrall/rededge-refl/pkg/meta"
	"github.com/abworrall/rededge-refl/pkg/panel"
	"github.com/abworrall/rededge-refl/pkg/radiometry"
	"github.com/abworrall/rededge-refl/pkg/region"
)

// PrepareMetadata decides where the radiometric calibration comes from.
// A supplied model is always injected, whatever the firmware says.
// Without one, the firmware must be new enough to carry its own, else
// ErrCalibrationRequired.
func PrepareMetadata(md *meta.Metadata, model *meta.CalibrationModel, log elog.Logger) error {
	if model != nil {
		log.Debugf("%s: using calibration model from %s", md.Filename, model.Source)
		meta.Inject(md, model)
		return nil
	}

	ok, err := meta.IsCompatible(md)
	if err != nil {
		return err
	} else if !ok {
		fw, _ := md.Firmware()
		return errors.Wrapf(calerr.ErrCalibrationRequired, "%s: firmware %s is older than %s and no calibration model was given",
			md.Filename, fw, meta.MinCalibratedFirmware)
	}
	return nil
}

// Extractor turns a panel photo into a radiance to reflectance factor.
type Extractor struct {
	Panels    panel.Table
	Source    ImageSource
	Converter radiometry.Converter
	Selector  region.Selector
	Log       elog.Logger
	DiagDir   string // if set, plots of each correction step are written here
}

// Extract computes reflectance/mean(radiance) over the panel region. If
// wantTimestamp is set, the acquisition time is parsed too, and a bad one
// fails the extraction.
func (e Extractor)Extract(ctx context.Context, filename string, model *meta.CalibrationModel, wantTimestamp bool) (PanelObservation, error) {
	log := elog.OrNull(e.Log)
	po := PanelObservation{Filename: filename}

	raw, md, err := e.Source.Load(filename)
	if err != nil {
		return po, err
	}
	if po.Band, err = md.Band(); err != nil {
		return po, err
	}
	log.Debugf("panel %s", md)

	if err := PrepareMetadata(md, model, log); err != nil {
		return po, err
	}

	rad, prod, err := e.Converter.Radiance(md, raw)
	if err != nil {
		return po, errors.Wrapf(err, "radiance of '%s'", filename)
	}

	// Looked up before region selection, which may block on an operator
	if po.Reflectance, err = e.Panels.Reflectance(po.Band); err != nil {
		return po, errors.Wrap(err, filename)
	}

	r, err := e.Selector.Select(ctx, filename, rad)
	if err != nil {
		return po, err
	}
	po.Region = region.Clip(r, rad)
	if po.Region.Empty() {
		return po, errors.Wrapf(calerr.ErrDivision, "%s: panel region %s is empty", filename, r)
	}

	radStats := rad.StatsIn(po.Region)
	po.MeanRadiance = radStats.Mean
	if !(po.MeanRadiance > 0) || math.IsInf(po.MeanRadiance, 0) {
		return po, errors.Wrapf(calerr.ErrDivision, "%s: mean radiance over %s is %g", filename, po.Region, po.MeanRadiance)
	}
	po.Factor = po.Reflectance / po.MeanRadiance

	if wantTimestamp {
		if po.Time, err = md.AcquisitionTime(); err != nil {
			return po, err
		}
		po.HasTime = true
	}

	reflImg := rad.Scaled(po.Factor)
	report := diag.NewPanelReport(filename, po.Band, reflImg, po.Region)
	po.Stats = report.Stats
	log.Infof("%s", po)
	log.Infof("%s", report)
	log.Debugf("%s", report.Detail())

	if e.DiagDir != "" {
		if err := report.WritePlots(e.DiagDir, raw, rad, reflImg, prod); err != nil {
			log.Errorf("diagnostic plots for %s: %v", filename, err)
		}
	}

	return po, nil
}
