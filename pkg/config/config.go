// Package config holds the settings shared by the command line tools. They
// come from (in increasing priority) built-in defaults, a YAML file, a
// .env file and the environment, and finally command line flags.
package config

import(
	"image"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/rededge-refl/pkg/calerr"
	"github.com/abworrall/rededge-refl/pkg/flight"
	"github.com/abworrall/rededge-refl/pkg/imgio"
	"github.com/abworrall/rededge-refl/pkg/meta"
	"github.com/abworrall/rededge-refl/pkg/panel"
	"github.com/abworrall/rededge-refl/pkg/radiometry"
	"github.com/abworrall/rededge-refl/pkg/refl"
	"github.com/abworrall/rededge-refl/pkg/region"
)

/* Example config file ...

panelfile: /data/panels/RP02-1603157-SC.csv
calmodel: /data/cameras/rededge-1.config
exiftool: /usr/local/bin/exiftool

region:
  strategy: fixed
  rect:
    min: {x: 560, y: 400}
    max: {x: 680, y: 520}
  perfile:
    IMG_0003_4.tif:
      min: {x: 540, y: 410}
      max: {x: 660, y: 530}

correction:
  format: tiff16
  scale: 32768
  workers: 8
  copymetadata: true

*/

const(
	EnvExifTool = "RAD2REFL_EXIFTOOL"
	EnvWorkers  = "RAD2REFL_WORKERS"
	EnvParams   = "RAD2REFL_PARAMS"
)

type RegionConfig struct {
	Strategy   string // fixed, prompt or auto
	Rect       image.Rectangle
	PerFile    map[string]image.Rectangle
	PreviewDir string // defaults to DiagDir, then the system temp dir
	GridStep   int
	Auto       region.Auto
}

type CorrectionConfig struct {
	LensDistortion bool
	PixelPitchMM   float64
	Format         string
	Scale          float64
	Workers        int // 0 means size to the host
	Strict         bool
	CopyMetadata   bool
	Quicklooks     bool
	QuicklookSize  int
}

type Config struct {
	Verbosity   int

	PanelFile   string
	CalModel    string // only needed for firmware older than v2.1.0
	ExifTool    string // empty means read tags natively
	Params      string // drift table, local path or s3://bucket/key; empty means in the flight dir
	AWSRegion   string
	DiagDir     string
	MetricsFile string // Prometheus textfile, written after a batch

	Region      RegionConfig
	Correction  CorrectionConfig
}

func NewConfig() Config {
	return Config{
		AWSRegion: "us-east-1",
		Region: RegionConfig{
			Strategy: "prompt",
			PerFile:  map[string]image.Rectangle{},
			GridStep: 50,
			Auto:     region.NewAuto(),
		},
		Correction: CorrectionConfig{
			PixelPitchMM:  radiometry.DefaultPixelPitchMM,
			Format:        flight.FormatTIFF16,
			Scale:         imgio.DefaultTIFFScale,
			CopyMetadata:  true,
			QuicklookSize: 800,
		},
	}
}

func ParseConfig(b []byte) (Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, errors.Wrapf(calerr.ErrConfig, "yaml: %v", err)
	}
	return c, c.Validate()
}

func LoadConfig(filename string) (Config, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return NewConfig(), errors.Wrapf(calerr.ErrConfig, "config read '%s': %v", filename, err)
	}
	c, err := ParseConfig(contents)
	return c, errors.Wrapf(err, "config '%s'", filename)
}

// LoadEnv reads .env style files into the environment, without replacing
// variables that are already set. Missing files are ignored.
func LoadEnv(filenames ...string) error {
	for _, fn := range filenames {
		if _, err := os.Stat(fn); err != nil {
			continue
		}
		if err := godotenv.Load(fn); err != nil {
			return errors.Wrapf(calerr.ErrConfig, "env file '%s': %v", fn, err)
		}
	}
	return nil
}

// ApplyEnv overlays RAD2REFL_* environment variables.
func (c *Config)ApplyEnv() error {
	if v := os.Getenv(EnvExifTool); v != "" {
		c.ExifTool = v
	}
	if v := os.Getenv(EnvParams); v != "" {
		c.Params = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return errors.Wrapf(calerr.ErrConfig, "%s=%q is not a worker count", EnvWorkers, v)
		}
		c.Correction.Workers = n
	}
	return nil
}

func (c Config)Validate() error {
	switch c.Region.Strategy {
	case "fixed":
		if c.Region.Rect.Empty() {
			return errors.Wrap(calerr.ErrConfig, "region strategy 'fixed' needs a non-empty rect")
		}
	case "prompt", "auto":
	default:
		return errors.Wrapf(calerr.ErrConfig, "no region strategy named '%s'", c.Region.Strategy)
	}
	if _, err := flight.FormatExt(c.Correction.Format); err != nil {
		return err
	}
	if c.Correction.Workers < 0 {
		return errors.Wrapf(calerr.ErrConfig, "workers=%d", c.Correction.Workers)
	}
	return nil
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

func (c Config)GetReader() meta.Reader {
	if c.ExifTool != "" {
		return meta.ExifToolReader{Path: c.ExifTool}
	}
	return meta.NativeReader{}
}

// GetSelector builds the region strategy. in and out are only used by the
// interactive prompt.
func (c Config)GetSelector(in io.Reader, out io.Writer) (region.Selector, error) {
	switch c.Region.Strategy {
	case "fixed":
		return region.Fixed{Rect: c.Region.Rect, PerFile: c.Region.PerFile}, nil
	case "prompt":
		return &region.Prompt{In: in, Out: out, PreviewDir: c.GetPreviewDir(), GridStep: c.Region.GridStep}, nil
	case "auto":
		return c.Region.Auto, nil
	default:
		return nil, errors.Wrapf(calerr.ErrConfig, "no region strategy named '%s'", c.Region.Strategy)
	}
}

// GetPreviewDir is where the prompt writes its panel previews. It is never
// empty: an operator can't pick corners on a frame they never see.
func (c Config)GetPreviewDir() string {
	if c.Region.PreviewDir != "" {
		return c.Region.PreviewDir
	} else if c.DiagDir != "" {
		return c.DiagDir
	}
	return os.TempDir()
}

// GetUndistorter is nil unless lens distortion correction is switched on.
func (c Config)GetUndistorter() radiometry.Undistorter {
	if !c.Correction.LensDistortion {
		return nil
	}
	return radiometry.BrownConrady{PixelPitchMM: c.Correction.PixelPitchMM}
}

func (c Config)GetPanels() (panel.Table, error) {
	if c.PanelFile == "" {
		return panel.Table{}, errors.Wrap(calerr.ErrConfig, "no panel file configured")
	}
	return panel.Load(c.PanelFile)
}

// GetModel is nil (and no error) if no calibration model is configured.
func (c Config)GetModel() (*meta.CalibrationModel, error) {
	if c.CalModel == "" {
		return nil, nil
	}
	return meta.LoadCalibrationModel(c.CalModel)
}

func (c Config)GetWorkers() int {
	if c.Correction.Workers > 0 {
		return c.Correction.Workers
	}
	return refl.DefaultWorkers()
}

// ParamsLocation is where the drift table for the flight lives.
func (c Config)ParamsLocation(l flight.Layout) string {
	if c.Params != "" {
		return c.Params
	}
	return l.ParamsFile()
}

func (c Config)GetWriter(l flight.Layout) flight.Writer {
	w := flight.Writer{
		Format:        c.Correction.Format,
		Scale:         c.Correction.Scale,
		CopyMetadata:  c.Correction.CopyMetadata,
		ExifTool:      c.ExifTool,
		QuicklookSize: c.Correction.QuicklookSize,
	}
	if c.Correction.Quicklooks {
		w.QuicklookDir = filepath.Join(l.Root, "quicklook")
	}
	return w
}

// Load is the startup sequence for the tools: defaults, the YAML file (if
// any), then ./.env and the environment.
func Load(filename string) (Config, error) {
	c := NewConfig()
	if filename != "" {
		var err error
		if c, err = LoadConfig(filename); err != nil {
			return c, err
		}
	}
	if err := LoadEnv(".env"); err != nil {
		return c, err
	}
	if err := c.ApplyEnv(); err != nil {
		return c, err
	}
	return c, c.Validate()
}
