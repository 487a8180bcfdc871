package main

import(
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/abworrall/rededge-refl/pkg/config"
	"github.com/abworrall/rededge-refl/pkg/elog"
	"github.com/abworrall/rededge-refl/pkg/fileaccess"
	"github.com/abworrall/rededge-refl/pkg/flight"
	"github.com/abworrall/rededge-refl/pkg/refl"
)

var(
	fConfig string
	fVerbosity int
	fOutDir string
)

func init() {
	flag.StringVar(&fConfig, "config", "", "YAML config file")
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fOutDir, "out", ".", "where to write the dls_<band>.csv files (path or s3://bucket/prefix)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <images or dirs>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
}

func main() {
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(fConfig)
	if err != nil {
		log.Fatal(err)
	}
	if fVerbosity > 0 { cfg.Verbosity = fVerbosity }
	logger := elog.New(cfg.Verbosity)

	files, err := flight.FindImages(flag.Args()...)
	if err != nil {
		log.Fatal(err)
	}
	logger.Infof("reading DLS tags from %d images", len(files))

	recs, failures := refl.ExtractDLS(cfg.GetReader(), files, logger)

	fa, loc, err := fileaccess.ForLocation(fOutDir, cfg.AWSRegion)
	if err != nil {
		log.Fatal(err)
	}
	written, err := refl.WriteDLS(fa, loc.Bucket, loc.Path, recs)
	if err != nil {
		log.Fatal(err)
	}
	for _, w := range written {
		log.Printf("wrote %s\n", w)
	}

	if len(failures) > 0 {
		log.Printf("%d of %d images had no usable DLS tags\n", len(failures), len(files))
		os.Exit(1)
	}
}
