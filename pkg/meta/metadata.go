// Package meta wraps the per-image tag lookup that the pipeline needs:
// camera make/model, band name, firmware, acquisition time, and the
// radiometric calibration model (in-camera, or injected from a file).
package meta

import(
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/abworrall/rededge-refl/pkg/calerr"
)

// Tag names, using exiftool's "Group:Tag" convention.
const(
	TagMake                    = "EXIF:Make"
	TagModel                   = "EXIF:Model"
	TagSoftware                = "EXIF:Software" // firmware version, e.g. "v2.1.2"
	TagCreateDate              = "EXIF:CreateDate"
	TagExposureTime            = "EXIF:ExposureTime"
	TagISO                     = "EXIF:ISO"      // 0x8827 ISOSpeedRatings
	TagISOSpeed                = "EXIF:ISOSpeed" // 0x8833
	TagBlackLevel              = "EXIF:BlackLevel"
	TagBitsPerSample           = "EXIF:BitsPerSample"
	TagBandName                = "XMP:BandName"
	TagRadiometricCalibration  = "XMP:RadiometricCalibration"
	TagVignettingCenter        = "XMP:VignettingCenter"
	TagVignettingPolynomial    = "XMP:VignettingPolynomial"
	TagPerspectiveFocalLength  = "XMP:PerspectiveFocalLength"
	TagPrincipalPoint          = "XMP:PrincipalPoint"
	TagPerspectiveDistortion   = "XMP:PerspectiveDistortion"
	TagIrradiance              = "XMP:Irradiance"
	TagIrradianceYaw           = "XMP:IrradianceYaw"
	TagIrradiancePitch         = "XMP:IrradiancePitch"
	TagIrradianceRoll          = "XMP:IrradianceRoll"
	TagIrradianceGain          = "XMP:IrradianceGain"
	TagIrradianceExposureTime  = "XMP:IrradianceExposureTime"
)

// TimestampLayout is the EXIF date format, "YYYY:MM:DD HH:MM:SS".
const TimestampLayout = "2006:01:02 15:04:05"

// Metadata is the tag set of one image file. Values are kept as the
// strings the reader produced; lists are comma separated. Calibration
// holds injected model parameters, which shadow the XMP tag of the same
// name.
type Metadata struct {
	Filename    string
	Tags        map[string]string
	Calibration map[string]CalibrationValue
}

func NewMetadata(filename string) *Metadata {
	return &Metadata{
		Filename:    filename,
		Tags:        map[string]string{},
		Calibration: map[string]CalibrationValue{},
	}
}

func (m *Metadata)String() string {
	return fmt.Sprintf("%s: %s %s band=%s fw=%s at %s", m.Filename,
		m.Tags[TagMake], m.Tags[TagModel], m.Tags[TagBandName], m.Tags[TagSoftware], m.Tags[TagCreateDate])
}

func (m *Metadata)Has(tag string) bool {
	_, ok := m.Tags[tag]
	return ok
}

// Get fails with ErrLookup if the tag is absent.
func (m *Metadata)Get(tag string) (string, error) {
	if v, ok := m.Tags[tag]; ok {
		return v, nil
	}
	return "", errors.Wrapf(calerr.ErrLookup, "%s: no tag %s", m.Filename, tag)
}

func (m *Metadata)Set(tag, val string) { m.Tags[tag] = val }

func (m *Metadata)Make() (string, error)     { return m.Get(TagMake) }
func (m *Metadata)Model() (string, error)    { return m.Get(TagModel) }
func (m *Metadata)Firmware() (string, error) { return m.Get(TagSoftware) }

func (m *Metadata)Band() (string, error) {
	b, err := m.Get(TagBandName)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(b), nil
}

// AcquisitionTime parses EXIF:CreateDate. A malformed value is ErrParse.
func (m *Metadata)AcquisitionTime() (time.Time, error) {
	s, err := m.Get(TagCreateDate)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(TimestampLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.Wrapf(calerr.ErrParse, "%s: timestamp %q", m.Filename, s)
	}
	return t, nil
}

// Float parses a numeric tag. Rationals like "1/2000" are accepted.
func (m *Metadata)Float(tag string) (float64, error) {
	s, err := m.Get(tag)
	if err != nil {
		return 0, err
	}
	f, err := parseNumber(s)
	if err != nil {
		return 0, errors.Wrapf(calerr.ErrParse, "%s: tag %s=%q", m.Filename, tag, s)
	}
	return f, nil
}

// Floats parses a list-valued tag (comma or space separated).
func (m *Metadata)Floats(tag string) ([]float64, error) {
	s, err := m.Get(tag)
	if err != nil {
		return nil, err
	}
	fs, err := parseNumberList(s)
	if err != nil {
		return nil, errors.Wrapf(calerr.ErrParse, "%s: tag %s=%q", m.Filename, tag, s)
	}
	return fs, nil
}

// CalibrationFloats finds a radiometric calibration parameter: an
// injected value wins, otherwise the XMP tag of the same name is used.
func (m *Metadata)CalibrationFloats(name string) ([]float64, error) {
	if cv, ok := m.Calibration[strings.ToLower(name)]; ok {
		if cv.IsSeq() {
			return cv.Seq, nil
		}
		fs, err := parseNumberList(cv.Scalar)
		if err != nil {
			return nil, errors.Wrapf(calerr.ErrParse, "%s: calibration %s=%q", m.Filename, name, cv.Scalar)
		}
		return fs, nil
	}
	return m.Floats("XMP:" + name)
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, err2 := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, fmt.Errorf("bad rational %q", s)
		}
		return n / d, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseNumberList(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	ret := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := parseNumber(f)
		if err != nil {
			return nil, err
		}
		ret = append(ret, v)
	}
	return ret, nil
}
