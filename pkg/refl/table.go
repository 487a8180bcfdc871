package refl

import(
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/abworrall/rededge-refl/pkg/calerr"
	"github.com/abworrall/rededge-refl/pkg/fileaccess"
)

// DefaultParamsFilename is where a flight's drift table lives, relative to
// the flight directory.
const DefaultParamsFilename = "rad2refl_params.csv"

// DriftTable holds the drift model for each band. Once built it is only
// ever read, so workers share it without locking.
type DriftTable map[string]DriftModel

func NewDriftTable(models ...DriftModel) (DriftTable, error) {
	dt := DriftTable{}
	for _, dm := range models {
		if _, dup := dt[dm.Band]; dup {
			return nil, errors.Wrapf(calerr.ErrConfig, "drift table: band %s listed twice", dm.Band)
		}
		for _, v := range []float64{dm.M, dm.C} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Wrapf(calerr.ErrConfig, "drift table: band %s has m=%g c=%g", dm.Band, dm.M, dm.C)
			}
		}
		dt[dm.Band] = dm
	}
	return dt, nil
}

// Lookup fails with ErrLookup for a band with no model.
func (dt DriftTable)Lookup(band string) (DriftModel, error) {
	if dm, exists := dt[band]; exists {
		return dm, nil
	}
	return DriftModel{}, errors.Wrapf(calerr.ErrLookup, "no drift model for band %q (have %v)", band, dt.Bands())
}

func (dt DriftTable)Bands() []string {
	bands := maps.Keys(dt)
	sort.Strings(bands)
	return bands
}

func (dt DriftTable)String() string {
	strs := []string{}
	for _, b := range dt.Bands() {
		strs = append(strs, "  "+dt[b].String())
	}
	return "DriftTable [\n" + strings.Join(strs, "\n") + "\n]"
}

// exactFloat writes the shortest decimal that parses back to the same bits.
type exactFloat float64

func (f exactFloat)MarshalText() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(f), 'g', -1, 64), nil
}

func (f *exactFloat)UnmarshalText(b []byte) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return err
	}
	*f = exactFloat(v)
	return nil
}

type driftRow struct {
	Band   string     `csv:"band"`
	Factor exactFloat `csv:"factor"`
	P1     exactFloat `csv:"p1"`
	P2     exactFloat `csv:"p2"`
	M      exactFloat `csv:"m"`
	C      exactFloat `csv:"c"`
}

// Marshal writes the table as CSV, one row per band in band order.
func (dt DriftTable)Marshal() ([]byte, error) {
	rows := []driftRow{}
	for _, b := range dt.Bands() {
		dm := dt[b]
		rows = append(rows, driftRow{dm.Band, exactFloat(dm.Reflectance), exactFloat(dm.Pre), exactFloat(dm.Post), exactFloat(dm.M), exactFloat(dm.C)})
	}
	return csvutil.Marshal(rows)
}

// ParseDriftTable reads what Marshal wrote. Every column must be present.
func ParseDriftTable(data []byte, source string) (DriftTable, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.Wrapf(calerr.ErrConfig, "drift table '%s': %v", source, err)
	}
	dec.DisallowMissingColumns = true

	rows := []driftRow{}
	if err := dec.Decode(&rows); err != nil && err != io.EOF {
		return nil, errors.Wrapf(calerr.ErrConfig, "drift table '%s': %v", source, err)
	}

	models := []DriftModel{}
	for _, r := range rows {
		models = append(models, DriftModel{r.Band, float64(r.Factor), float64(r.P1), float64(r.P2), float64(r.M), float64(r.C)})
	}
	dt, err := NewDriftTable(models...)
	if err != nil {
		return nil, errors.Wrapf(err, "drift table '%s'", source)
	} else if len(dt) == 0 {
		return nil, errors.Wrapf(calerr.ErrConfig, "drift table '%s': no bands", source)
	}
	return dt, nil
}

func (dt DriftTable)Save(fa fileaccess.FileAccess, bucket, path string) error {
	data, err := dt.Marshal()
	if err != nil {
		return errors.Wrap(err, "drift table marshal")
	}
	if err := fa.WriteObject(bucket, path, data); err != nil {
		return errors.Wrapf(err, "drift table write '%s'", filepath.Join(bucket, path))
	}
	return nil
}

func LoadDriftTable(fa fileaccess.FileAccess, bucket, path string) (DriftTable, error) {
	data, err := fa.ReadObject(bucket, path)
	if err != nil {
		return nil, errors.Wrapf(calerr.ErrConfig, "drift table read '%s': %v", filepath.Join(bucket, path), err)
	}
	return ParseDriftTable(data, filepath.Join(bucket, path))
}

// SaveDriftTable and OpenDriftTable take a local path or s3://bucket/key.
func SaveDriftTable(dt DriftTable, location, awsRegion string) error {
	fa, loc, err := fileaccess.ForLocation(location, awsRegion)
	if err != nil {
		return errors.Wrap(calerr.ErrConfig, err.Error())
	}
	return dt.Save(fa, loc.Bucket, loc.Path)
}

func OpenDriftTable(location, awsRegion string) (DriftTable, error) {
	fa, loc, err := fileaccess.ForLocation(location, awsRegion)
	if err != nil {
		return nil, errors.Wrap(calerr.ErrConfig, err.Error())
	}
	return LoadDriftTable(fa, loc.Bucket, loc.Path)
}
