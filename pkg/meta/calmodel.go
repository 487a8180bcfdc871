package meta

import(
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/abworrall/rededge-refl/pkg/calerr"
)

// ModelSection is the INI section holding the camera's calibration parameters.
const ModelSection = "Model"

// A CalibrationValue is either a scalar (kept as its string) or an ordered
// sequence of floats.
type CalibrationValue struct {
	Scalar string
	Seq    []float64
}

func (cv CalibrationValue)IsSeq() bool { return cv.Seq != nil }

func (cv CalibrationValue)String() string {
	if !cv.IsSeq() {
		return cv.Scalar
	}
	strs := make([]string, len(cv.Seq))
	for i, f := range cv.Seq {
		strs[i] = fmt.Sprintf("%g", f)
	}
	return strings.Join(strs, ",")
}

// ParseCalibrationValue turns "a, b, c" into a sequence; a value without
// commas stays a scalar string.
func ParseCalibrationValue(s string) (CalibrationValue, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ",") {
		return CalibrationValue{Scalar: s}, nil
	}
	parts := strings.Split(s, ",")
	seq := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := parseNumber(p)
		if err != nil {
			return CalibrationValue{}, errors.Wrapf(calerr.ErrParse, "calibration value %q", s)
		}
		seq = append(seq, f)
	}
	return CalibrationValue{Seq: seq}, nil
}

// CalibrationModel is the externally supplied radiometric model for one
// camera. Parameter names are lower-cased. Once loaded it is read-only,
// and can be shared between goroutines.
type CalibrationModel struct {
	Source string
	Names  []string // file order
	Params map[string]CalibrationValue
}

func LoadCalibrationModel(filename string) (*CalibrationModel, error) {
	cfg, err := ini.Load(filename)
	if err != nil {
		return nil, errors.Wrapf(calerr.ErrConfig, "calmodel %s: %v", filename, err)
	}
	return calibrationModelFromINI(cfg, filename)
}

func ParseCalibrationModel(contents []byte, source string) (*CalibrationModel, error) {
	cfg, err := ini.Load(contents)
	if err != nil {
		return nil, errors.Wrapf(calerr.ErrConfig, "calmodel %s: %v", source, err)
	}
	return calibrationModelFromINI(cfg, source)
}

func calibrationModelFromINI(cfg *ini.File, source string) (*CalibrationModel, error) {
	sec, err := cfg.GetSection(ModelSection)
	if err != nil {
		return nil, errors.Wrapf(calerr.ErrConfig, "calmodel %s: no [%s] section", source, ModelSection)
	}

	cm := &CalibrationModel{Source: source, Params: map[string]CalibrationValue{}}
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		cv, err := ParseCalibrationValue(key.String())
		if err != nil {
			return nil, errors.Wrapf(err, "calmodel %s, key %s", source, key.Name())
		}
		if _, dup := cm.Params[name]; !dup {
			cm.Names = append(cm.Names, name)
		}
		cm.Params[name] = cv
	}
	if len(cm.Names) == 0 {
		return nil, errors.Wrapf(calerr.ErrConfig, "calmodel %s: [%s] is empty", source, ModelSection)
	}

	return cm, nil
}

// Inject writes every model parameter into the metadata's calibration
// namespace. It mutates m in place and returns it; Readers hand out a fresh
// Metadata per call, so the mutation never leaks across images. Sequences
// are copied, so the shared model is never aliased.
func Inject(m *Metadata, model *CalibrationModel) *Metadata {
	if m.Calibration == nil {
		m.Calibration = map[string]CalibrationValue{}
	}
	for _, name := range model.Names {
		cv := model.Params[name]
		if cv.IsSeq() {
			cv.Seq = append([]float64(nil), cv.Seq...)
		}
		m.Calibration[name] = cv
	}
	return m
}
