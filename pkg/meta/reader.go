package meta

import(
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// A Reader extracts metadata from an image file. Every call returns a new
// Metadata; nothing is cached.
type Reader interface {
	Read(filename string) (*Metadata, error)
}

// NativeReader reads EXIF and XMP directly from the TIFF, without any
// external tool.
type NativeReader struct{}

// Raw IFD0 tags that goexif's field map does not name
const(
	tiffTagBitsPerSample = 0x0102
	tiffTagXMP           = 0x02BC
	tiffTagBlackLevel    = 0xC61A
)

// Exif sub-IFD tags that goexif's field map does not name
var exifExtraFields = map[uint16]exif.FieldName{
	0x8833: "ISOSpeed",
}

var exifStringTags = map[exif.FieldName]string{
	exif.Make:              TagMake,
	exif.Model:             TagModel,
	exif.Software:          TagSoftware,
	exif.DateTimeDigitized: TagCreateDate,
}

func (NativeReader)Read(filename string) (*Metadata, error) {
	m := NewMetadata(filename)

	// First, the EXIF fields goexif knows about
	if reader, err := os.Open(filename); err != nil {
		return nil, errors.Wrapf(err, "open+r exif '%s'", filename)

	} else if ex, err := exif.Decode(reader); err != nil {
		reader.Close()
		return nil, errors.Wrapf(err, "exif parsing '%s'", filename)

	} else {
		reader.Close()
		for field, name := range exifStringTags {
			if tag, err := ex.Get(field); err == nil {
				if s, err := tag.StringVal(); err == nil {
					m.Set(name, strings.TrimRight(s, "\x00 "))
				}
			}
		}
		if tag, err := ex.Get(exif.ExposureTime); err == nil {
			if num, denom, err := tag.Rat2(0); err == nil && denom != 0 {
				m.Set(TagExposureTime, fmt.Sprintf("%d/%d", num, denom))
			}
		}
		if tag, err := ex.Get(exif.ISOSpeedRatings); err == nil {
			if iso, err := tag.Int(0); err == nil {
				m.Set(TagISO, fmt.Sprintf("%d", iso))
			}
		}
		if err := loadExifExtras(ex); err != nil {
			return nil, errors.Wrapf(err, "exif sub-IFD '%s'", filename)
		}
		if tag, err := ex.Get("ISOSpeed"); err == nil {
			if iso, err := tag.Int64(0); err == nil {
				m.Set(TagISOSpeed, fmt.Sprintf("%d", iso))
			}
		}
	}

	// Re-open the file, now for the raw IFD0 tags (black level, XMP packet)
	if reader, err := os.Open(filename); err != nil {
		return nil, errors.Wrapf(err, "open+r tiff '%s'", filename)

	} else if tif, err := tiff.Decode(reader); err != nil {
		reader.Close()
		return nil, errors.Wrapf(err, "tiff parsing '%s'", filename)

	} else {
		reader.Close()
		if len(tif.Dirs) > 0 {
			for _, tag := range tif.Dirs[0].Tags {
				switch tag.Id {
				case tiffTagBitsPerSample:
					if v, err := tag.Int(0); err == nil {
						m.Set(TagBitsPerSample, fmt.Sprintf("%d", v))
					}
				case tiffTagBlackLevel:
					if s := tagNumbers(tag); s != "" {
						m.Set(TagBlackLevel, s)
					}
				case tiffTagXMP:
					xmpTags, err := ParseXMP(tag.Val)
					if err != nil {
						return nil, errors.Wrapf(err, "xmp parsing '%s'", filename)
					}
					for k, v := range xmpTags {
						m.Set(k, v)
					}
				}
			}
		}
	}

	return m, nil
}

// loadExifExtras decodes the Exif sub-IFD a second time, picking up the
// tags in exifExtraFields. Offsets in a TIFF are file relative, and goexif
// keeps the whole file in Raw.
func loadExifExtras(ex *exif.Exif) error {
	ptr, err := ex.Get(exif.ExifIFDPointer)
	if err != nil {
		return nil
	}
	offset, err := ptr.Int64(0)
	if err != nil {
		return err
	}

	r := bytes.NewReader(ex.Raw)
	if _, err := r.Seek(offset, 0); err != nil {
		return err
	}
	sub, _, err := tiff.DecodeDir(r, ex.Tiff.Order)
	if err != nil {
		return err
	}
	ex.LoadTags(sub, exifExtraFields, false)
	return nil
}

// tagNumbers renders all values of a numeric tag as a comma separated list.
func tagNumbers(tag *tiff.Tag) string {
	strs := []string{}
	for i:=0; i<int(tag.Count); i++ {
		switch tag.Format() {
		case tiff.IntVal:
			if v, err := tag.Int64(i); err == nil {
				strs = append(strs, fmt.Sprintf("%d", v))
			}
		case tiff.RatVal:
			if num, den, err := tag.Rat2(i); err == nil && den != 0 {
				strs = append(strs, fmt.Sprintf("%g", float64(num)/float64(den)))
			}
		case tiff.FloatVal:
			if v, err := tag.Float(i); err == nil {
				strs = append(strs, fmt.Sprintf("%g", v))
			}
		}
	}
	return strings.Join(strs, ",")
}

// ExifToolReader shells out to exiftool. Path is the binary to run; it
// comes from configuration rather than being guessed from the OS.
type ExifToolReader struct {
	Path string
}

func (r ExifToolReader)Read(filename string) (*Metadata, error) {
	path := r.Path
	if path == "" {
		path = "exiftool"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(path, "-j", "-G", "-n", filename)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "exiftool '%s': %s", filename, strings.TrimSpace(stderr.String()))
	}

	return parseExifToolJSON(filename, stdout.Bytes())
}

func parseExifToolJSON(filename string, b []byte) (*Metadata, error) {
	docs := []map[string]interface{}{}
	if err := json.Unmarshal(b, &docs); err != nil {
		return nil, errors.Wrapf(err, "exiftool json '%s'", filename)
	}
	if len(docs) != 1 {
		return nil, fmt.Errorf("exiftool json '%s': expected 1 document, got %d", filename, len(docs))
	}

	m := NewMetadata(filename)
	for k, v := range docs[0] {
		m.Set(k, jsonValueString(v))
	}
	// exiftool -n prints CreateDate unchanged, but ExposureTime as a float; both parse fine.
	return m, nil
}

func jsonValueString(v interface{}) string {
	switch vv := v.(type) {
	case []interface{}:
		strs := make([]string, len(vv))
		for i := range vv {
			strs[i] = jsonValueString(vv[i])
		}
		return strings.Join(strs, ",")
	case float64:
		return fmt.Sprintf("%v", vv)
	case string:
		return vv
	default:
		return fmt.Sprintf("%v", vv)
	}
}
