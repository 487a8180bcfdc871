// Package refl is the radiance to reflectance pipeline: panel factor
// extraction, the per-band drift fit, and correction of flight images.
package refl

import(
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/abworrall/rededge-refl/pkg/emath"
	"github.com/abworrall/rededge-refl/pkg/meta"
)

// A PanelObservation is the result of processing one panel photo.
type PanelObservation struct {
	Filename     string
	Band         string
	Reflectance  float64   // the panel's reference reflectance for this band
	MeanRadiance float64   // over Region
	Factor       float64   // Reflectance / MeanRadiance
	Time         time.Time // acquisition time, if it was asked for
	HasTime      bool
	Region       image.Rectangle
	Stats        emath.RegionStats // reflectance within Region, for judging panel quality
}

func (po PanelObservation)String() string {
	str := fmt.Sprintf("%s [%s] factor=%.6f (refl %.4f / rad %.6f) region %s",
		filepath.Base(po.Filename), po.Band, po.Factor, po.Reflectance, po.MeanRadiance, po.Region)
	if po.HasTime {
		str += " at " + po.Time.Format(meta.TimestampLayout)
	}
	return str
}

// JulianDate of the acquisition time.
func (po PanelObservation)JulianDate() float64 { return emath.JulianDate(po.Time) }
