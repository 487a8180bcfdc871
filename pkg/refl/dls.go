package refl

import(
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/pkg/errors"

	"github.com/abworrall/rededge-refl/pkg/elog"
	"github.com/abworrall/rededge-refl/pkg/fileaccess"
	"github.com/abworrall/rededge-refl/pkg/meta"
)

// DLSRecord is one Downwelling Light Sensor reading, as stored in the
// XMP of every image the camera takes.
type DLSRecord struct {
	AcqTime    time.Time `csv:"-"`
	Timestamp  string    `csv:"acq_time"`
	Band       string    `csv:"band"`
	Irradiance float64   `csv:"irradiance"`
	Yaw        float64   `csv:"yaw"`
	Pitch      float64   `csv:"pitch"`
	Roll       float64   `csv:"roll"`
	Gain       float64   `csv:"gain"`
	Exposure   float64   `csv:"exposure"`
	Filename   string    `csv:"filename"`
}

var dlsTags = []string{
	meta.TagIrradiance, meta.TagIrradianceYaw, meta.TagIrradiancePitch,
	meta.TagIrradianceRoll, meta.TagIrradianceGain, meta.TagIrradianceExposureTime,
}

func ReadDLS(md *meta.Metadata) (DLSRecord, error) {
	rec := DLSRecord{Filename: md.Filename}
	var err error
	if rec.Band, err = md.Band(); err != nil {
		return rec, err
	}
	if rec.AcqTime, err = md.AcquisitionTime(); err != nil {
		return rec, err
	}
	rec.Timestamp = rec.AcqTime.Format(time.RFC3339)

	dst := []*float64{&rec.Irradiance, &rec.Yaw, &rec.Pitch, &rec.Roll, &rec.Gain, &rec.Exposure}
	for i, tag := range dlsTags {
		if *dst[i], err = md.Float(tag); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// ExtractDLS reads the DLS tags from each file. Files that fail are
// logged and reported, and don't stop the rest.
func ExtractDLS(reader meta.Reader, files []string, log elog.Logger) ([]DLSRecord, []Failure) {
	log = elog.OrNull(log)
	recs := []DLSRecord{}
	failures := []Failure{}

	for n, filename := range files {
		if (n+1) % 100 == 0 {
			log.Infof("%d / %d (%s)", n+1, len(files), filepath.Base(filename))
		}
		md, err := reader.Read(filename)
		if err == nil {
			var rec DLSRecord
			if rec, err = ReadDLS(md); err == nil {
				recs = append(recs, rec)
				continue
			}
		}
		log.Errorf("%s: %v", filename, err)
		failures = append(failures, Failure{Filename: filename, Err: err})
	}

	return recs, failures
}

// GroupDLSByBand splits records per band, each sorted by acquisition time.
func GroupDLSByBand(recs []DLSRecord) map[string][]DLSRecord {
	byBand := map[string][]DLSRecord{}
	for _, r := range recs {
		byBand[r.Band] = append(byBand[r.Band], r)
	}
	for _, rs := range byBand {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].AcqTime.Before(rs[j].AcqTime) })
	}
	return byBand
}

// DLSFilename is the per-band CSV name; spaces in band names ("Red edge")
// become underscores.
func DLSFilename(band string) string {
	return "dls_" + fileaccess.MakeValidObjectName(band) + ".csv"
}

// WriteDLS writes one CSV per band under dir, returning the paths written.
func WriteDLS(fa fileaccess.FileAccess, bucket, dir string, recs []DLSRecord) ([]string, error) {
	written := []string{}
	byBand := GroupDLSByBand(recs)
	bands := []string{}
	for b := range byBand {
		bands = append(bands, b)
	}
	sort.Strings(bands)

	for _, band := range bands {
		data, err := csvutil.Marshal(byBand[band])
		if err != nil {
			return written, errors.Wrapf(err, "dls csv for %s", band)
		}
		path := filepath.Join(dir, DLSFilename(band))
		if err := fa.WriteObject(bucket, path, data); err != nil {
			return written, fmt.Errorf("dls write '%s': %v", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
