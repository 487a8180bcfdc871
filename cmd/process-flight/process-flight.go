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
)

var(
	fConfig string
	fVerbosity int
	fCalModel string
	fParams string
	fFormat string
	fWorkers int
	fStrict bool
	fLensDistortion bool
	fQuicklooks bool
	fNoCopyMetadata bool
	fMetricsFile string
)

func init() {
	flag.StringVar(&fConfig, "config", "", "YAML config file")
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fCalModel, "calmodel", "", "camera calibration model; only needed for firmware < v2.1.0")
	flag.StringVar(&fParams, "params", "", "drift table from calc-rad2refl (default <flight>/rad2refl_params.csv)")
	flag.StringVar(&fFormat, "format", "", "output format: tiff16 or hdr")
	flag.IntVar(&fWorkers, "workers", 0, "images to process at once (default: size to this host)")
	flag.BoolVar(&fStrict, "strict", false, "stop at the first image that fails")
	flag.BoolVar(&fLensDistortion, "lens", false, "also remove lens distortion")
	flag.BoolVar(&fQuicklooks, "quicklooks", false, "write a PNG preview of each output")
	flag.BoolVar(&fNoCopyMetadata, "nocopymeta", false, "don't copy tags into the output with exiftool")
	flag.StringVar(&fMetricsFile, "metrics", "", "write Prometheus metrics to this textfile when done")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <flight dir>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log.Printf("process-flight starting (%s)\n", refl.HostSummary())
}

func main() {
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	layout := flight.Layout{Root: flag.Arg(0)}

	cfg, err := config.Load(fConfig)
	if err != nil {
		log.Fatal(err)
	}
	if fVerbosity > 0 { cfg.Verbosity = fVerbosity }
	if fCalModel != "" { cfg.CalModel = fCalModel }
	if fParams != "" { cfg.Params = fParams }
	if fFormat != "" { cfg.Correction.Format = fFormat }
	if fWorkers > 0 { cfg.Correction.Workers = fWorkers }
	if fStrict { cfg.Correction.Strict = true }
	if fLensDistortion { cfg.Correction.LensDistortion = true }
	if fQuicklooks { cfg.Correction.Quicklooks = true }
	if fNoCopyMetadata { cfg.Correction.CopyMetadata = false }
	if fMetricsFile != "" { cfg.MetricsFile = fMetricsFile }
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	logger := elog.New(cfg.Verbosity)
	logger.Infof("lens distortion correction: %v", cfg.Correction.LensDistortion)

	dt, err := refl.OpenDriftTable(cfg.ParamsLocation(layout), cfg.AWSRegion)
	if err != nil {
		log.Fatalf("%v (has calc-rad2refl been run?)", err)
	}
	logger.Infof("drift table:\n%s", dt)
	model, err := cfg.GetModel()
	if err != nil {
		log.Fatal(err)
	}

	jobs, err := layout.Plan(cfg.Correction.Format)
	if err != nil {
		log.Fatal(err)
	}

	writer := cfg.GetWriter(layout)
	writer.Log = logger
	if writer.CopyMetadata && !writer.CopiesMetadata() {
		logger.Infof("exiftool can't write %s files, tags will not be copied", writer.Format)
	}
	batch := refl.Batch{
		Workers: cfg.GetWorkers(),
		Strict:  cfg.Correction.Strict,
		Source:  refl.FileSource{Meta: cfg.GetReader()},
		Corrector: refl.Corrector{
			Drift:     dt,
			Model:     model,
			Converter: radiometry.MicaSense{Log: logger},
			Lens:      cfg.GetUndistorter(),
			Log:       logger,
		},
		Sink:    writer,
		Log:     logger,
		Metrics: refl.NewBatchMetrics(),
	}
	logger.Infof("%d images, %d workers", len(jobs), batch.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, runErr := batch.Run(ctx, jobs)
	log.Printf("%s\n", report)

	if cfg.MetricsFile != "" {
		if err := batch.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Errorf("metrics: %v", err)
		}
	}
	if runErr != nil {
		log.Fatal(runErr)
	} else if !report.OK() {
		os.Exit(1)
	}
}
