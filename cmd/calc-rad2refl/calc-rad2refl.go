package main

import(
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/abworrall/rededge-refl/pkg/config"
	"github.com/abworrall/rededge-refl/pkg/elog"
	"github.com/abworrall/rededge-refl/pkg/flight"
	"github.com/abworrall/rededge-refl/pkg/radiometry"
	"github.com/abworrall/rededge-refl/pkg/refl"
	"github.com/abworrall/rededge-refl/pkg/region"
)

var(
	fConfig string
	fVerbosity int
	fPanelFile string
	fCalModel string
	fRegion string
	fRect string
	fDiagDir string
	fParams string
)

func init() {
	flag.StringVar(&fConfig, "config", "", "YAML config file")
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fPanelFile, "panel", "", "CSV of panel reflectance per band (overrides config)")
	flag.StringVar(&fCalModel, "calmodel", "", "camera calibration model; only needed for firmware < v2.1.0")
	flag.StringVar(&fRegion, "region", "", "how to find the panel: fixed, prompt or auto")
	flag.StringVar(&fRect, "rect", "", "panel rectangle 'x0 y0 x1 y1', implies -region=fixed")
	flag.StringVar(&fDiagDir, "diag", "", "write diagnostic plots of each panel into this dir")
	flag.StringVar(&fParams, "params", "", "where to write the drift table (path or s3://bucket/key)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <pre-flight panels> <post-flight panels> <flight dir>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log.Printf("calc-rad2refl starting (%s)\n", refl.HostSummary())
}

func main() {
	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(2)
	}
	pre, post, layout := flag.Arg(0), flag.Arg(1), flight.Layout{Root: flag.Arg(2)}

	cfg, err := config.Load(fConfig)
	if err != nil {
		log.Fatal(err)
	}
	if fVerbosity > 0 { cfg.Verbosity = fVerbosity }
	if fPanelFile != "" { cfg.PanelFile = fPanelFile }
	if fCalModel != "" { cfg.CalModel = fCalModel }
	if fRegion != "" { cfg.Region.Strategy = fRegion }
	if fDiagDir != "" { cfg.DiagDir = fDiagDir }
	if fParams != "" { cfg.Params = fParams }
	if fRect != "" {
		if cfg.Region.Rect, err = region.ParseRect(fRect); err != nil {
			log.Fatal(err)
		}
		cfg.Region.Strategy = "fixed"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	logger := elog.New(cfg.Verbosity)
	panels, err := cfg.GetPanels()
	if err != nil {
		log.Fatal(err)
	}
	model, err := cfg.GetModel()
	if err != nil {
		log.Fatal(err)
	}
	sel, err := cfg.GetSelector(os.Stdin, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}

	preFiles, err := flight.FindImages(pre)
	if err != nil {
		log.Fatal(err)
	}
	postFiles, err := flight.FindImages(post)
	if err != nil {
		log.Fatal(err)
	}

	ex := refl.Extractor{
		Panels:    panels,
		Source:    refl.FileSource{Meta: cfg.GetReader()},
		Converter: radiometry.MicaSense{Log: logger},
		Selector:  sel,
		Log:       logger,
		DiagDir:   cfg.DiagDir,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dt, err := refl.Derive(ctx, ex, preFiles, postFiles, model)
	if err != nil {
		log.Fatal(err)
	}

	loc := cfg.ParamsLocation(layout)
	if err := refl.SaveDriftTable(dt, loc, cfg.AWSRegion); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote drift table for %d bands to %s\n%s", len(dt), loc, dt)
}
