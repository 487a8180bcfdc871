package diag

import(
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/skypies/util/histogram"

	"github.com/abworrall/rededge-refl/pkg/emath"
	"github.com/abworrall/rededge-refl/pkg/radiometry"
)

// Reflectance histogram covers [0, 1.28) in 1% buckets.
const(
	histBuckets = 128
	histScale   = 100.0
)

// PanelReport describes how uniform the panel looks once converted to
// reflectance. A good panel photo has a tight histogram around the
// panel's nominal reflectance.
type PanelReport struct {
	Filename string
	Band     string
	Region   image.Rectangle
	Stats    emath.RegionStats
	Hist     histogram.Histogram
}

func NewPanelReport(filename, band string, refl emath.FloatGrid, region image.Rectangle) PanelReport {
	pr := PanelReport{
		Filename: filename,
		Band:     band,
		Region:   region,
		Stats:    refl.StatsIn(region),
		Hist:     histogram.Histogram{NumBuckets: histBuckets, ValMin: 0, ValMax: histBuckets},
	}

	sub := refl.SubGrid(region)
	for _, v := range sub.Values() {
		pr.Hist.Add(histogram.ScalarVal(int(v * histScale)))
	}

	return pr
}

func (pr PanelReport)String() string {
	return fmt.Sprintf("panel %s [%s] region %s: reflectance %s", filepath.Base(pr.Filename), pr.Band, pr.Region, pr.Stats)
}

// Detail includes the histogram, for verbose logging.
func (pr PanelReport)Detail() string {
	return fmt.Sprintf("%s\nhistogram (x%.0f): %v", pr, histScale, pr.Hist)
}

// WritePlots dumps one PNG per correction step into dir, named after the
// source image. The blurred panel crop shows any trend across the panel.
func (pr PanelReport)WritePlots(dir string, raw, radiance, refl emath.FloatGrid, prod radiometry.Products) error {
	stem := strings.TrimSuffix(filepath.Base(pr.Filename), filepath.Ext(pr.Filename))

	panelBlur := refl.SubGrid(pr.Region)
	for i:=0; i<5; i++ {
		panelBlur = panelBlur.GaussianBlur()
	}

	plots := []struct{
		name  string
		title string
		fg    emath.FloatGrid
		r     image.Rectangle
	}{
		{"01-raw",         "Raw DN",                                raw,              image.Rectangle{}},
		{"02-vignette",    "Vignette factor",                       prod.Vignette,    image.Rectangle{}},
		{"03-rowgradient", "Row gradient factor",                   prod.RowGradient, image.Rectangle{}},
		{"04-corrected",   "Vignette and row gradient corrected",   prod.Corrected,   image.Rectangle{}},
		{"05-radiance",    "Radiance, panel region",                radiance,         pr.Region},
		{"06-panelblur",   "Smoothed panel region reflectance",     panelBlur,        image.Rectangle{}},
	}

	for _, p := range plots {
		if p.fg.Dx() == 0 {
			continue
		}
		fn := filepath.Join(dir, fmt.Sprintf("%s-%s.png", stem, p.name))
		if err := Plot(p.fg, fmt.Sprintf("%s: %s", stem, p.title), p.r, fn); err != nil {
			return err
		}
	}

	return nil
}
