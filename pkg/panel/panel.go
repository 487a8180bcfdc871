// Package panel holds the reference reflectance of the calibration panel,
// per band. The table is loaded once and never modified afterwards.
package panel

import(
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/abworrall/rededge-refl/pkg/calerr"
)

// Header aliases; the reflectance column has been called both of these.
var columnAliases = map[string]string{
	"band":        "band",
	"factor":      "factor",
	"reflectance": "factor",
}

type row struct {
	Band   string  `csv:"band"`
	Factor float64 `csv:"factor"`
}

// Table maps band name (as written by the camera into XMP:BandName) to
// the panel's reference reflectance in [0,1].
type Table struct {
	Source  string
	factors map[string]float64
}

func New(source string, factors map[string]float64) Table {
	return Table{Source: source, factors: maps.Clone(factors)}
}

func Load(filename string) (Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Table{}, errors.Wrapf(calerr.ErrConfig, "open+r panel table '%s': %v", filename, err)
	}
	defer f.Close()
	return Parse(f, filename)
}

// Parse reads a CSV with a header row. The band column is required, as
// is one of factor/reflectance; other columns are ignored. A missing
// column, a duplicate band, or a reflectance outside (0,1] is ErrConfig.
func Parse(r io.Reader, source string) (Table, error) {
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = true

	hdr, err := csvReader.Read()
	if err != nil {
		return Table{}, errors.Wrapf(calerr.ErrConfig, "panel table '%s': no header: %v", source, err)
	}
	seen := map[string]bool{}
	for i, col := range hdr {
		col = strings.ToLower(strings.TrimSpace(col))
		if alias, exists := columnAliases[col]; exists {
			col = alias
		}
		hdr[i] = col
		seen[col] = true
	}
	for _, want := range []string{"band", "factor"} {
		if !seen[want] {
			return Table{}, errors.Wrapf(calerr.ErrConfig, "panel table '%s': no %q column in %v", source, want, hdr)
		}
	}

	dec, err := csvutil.NewDecoder(csvReader, hdr...)
	if err != nil {
		return Table{}, errors.Wrapf(calerr.ErrConfig, "panel table '%s': %v", source, err)
	}
	rows := []row{}
	if err := dec.Decode(&rows); err != nil && err != io.EOF {
		return Table{}, errors.Wrapf(calerr.ErrConfig, "panel table '%s': %v", source, err)
	}

	t := Table{Source: source, factors: map[string]float64{}}
	for _, r := range rows {
		band := strings.TrimSpace(r.Band)
		if band == "" {
			return Table{}, errors.Wrapf(calerr.ErrConfig, "panel table '%s': empty band name", source)
		} else if _, dup := t.factors[band]; dup {
			return Table{}, errors.Wrapf(calerr.ErrConfig, "panel table '%s': band %s listed twice", source, band)
		} else if !(r.Factor > 0 && r.Factor <= 1) {
			return Table{}, errors.Wrapf(calerr.ErrConfig, "panel table '%s': band %s reflectance %g not in (0,1]", source, band, r.Factor)
		}
		t.factors[band] = r.Factor
	}
	if len(t.factors) == 0 {
		return Table{}, errors.Wrapf(calerr.ErrConfig, "panel table '%s': no bands", source)
	}

	return t, nil
}

// Reflectance is an exact-match lookup; an unknown band is ErrLookup.
func (t Table)Reflectance(band string) (float64, error) {
	if f, exists := t.factors[band]; exists {
		return f, nil
	}
	return 0, errors.Wrapf(calerr.ErrLookup, "band %q not in panel table '%s'", band, t.Source)
}

func (t Table)Bands() []string {
	bands := maps.Keys(t.factors)
	sort.Strings(bands)
	return bands
}

func (t Table)Len() int { return len(t.factors) }

func (t Table)String() string {
	str := fmt.Sprintf("PanelTable[%s] {", t.Source)
	for _, b := range t.Bands() {
		str += fmt.Sprintf(" %s:%.4f", b, t.factors[b])
	}
	return str + " }"
}
