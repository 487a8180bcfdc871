package refl

import(
	"context"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/abworrall/rededge-refl/pkg/calerr"
	"github.com/abworrall/rededge-refl/pkg/elog"
	"github.com/abworrall/rededge-refl/pkg/meta"
)

// Derive runs the extractor over the pre- and post-flight panel photos
// (one per band in each set), pairs them up by band and fits a drift
// model per band. The first error aborts the run; no partial table is
// returned.
func Derive(ctx context.Context, ex Extractor, pre, post []string, model *meta.CalibrationModel) (DriftTable, error) {
	log := elog.OrNull(ex.Log)

	preObs, err := extractSet(ctx, ex, "pre-flight", pre, model)
	if err != nil {
		return nil, err
	}
	postObs, err := extractSet(ctx, ex, "post-flight", post, model)
	if err != nil {
		return nil, err
	}

	for band := range preObs {
		if _, exists := postObs[band]; !exists {
			return nil, errors.Wrapf(calerr.ErrLookup, "band %s has a pre-flight panel photo but no post-flight one", band)
		}
	}
	for band := range postObs {
		if _, exists := preObs[band]; !exists {
			return nil, errors.Wrapf(calerr.ErrLookup, "band %s has a post-flight panel photo but no pre-flight one", band)
		}
	}

	bands := maps.Keys(preObs)
	slices.Sort(bands)
	models := []DriftModel{}
	for _, band := range bands {
		dm, err := Fit(band, preObs[band], postObs[band])
		if err != nil {
			return nil, err
		}
		log.Infof("%s", dm)
		models = append(models, dm)
	}

	return NewDriftTable(models...)
}

func extractSet(ctx context.Context, ex Extractor, set string, files []string, model *meta.CalibrationModel) (map[string]PanelObservation, error) {
	if len(files) == 0 {
		return nil, errors.Wrapf(calerr.ErrConfig, "no %s panel photos", set)
	}

	obs := map[string]PanelObservation{}
	for _, filename := range files {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(calerr.ErrAborted, "%s: %v", set, err)
		}
		po, err := ex.Extract(ctx, filename, model, true)
		if err != nil {
			return nil, errors.Wrapf(err, "%s panel", set)
		}
		if prev, dup := obs[po.Band]; dup {
			return nil, errors.Wrapf(calerr.ErrConfig, "%s: band %s in both %s and %s", set, po.Band, prev.Filename, filename)
		}
		obs[po.Band] = po
	}
	return obs, nil
}
