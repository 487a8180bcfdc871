package main

import(
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/abworrall/rededge-refl/pkg/elog"
	"github.com/abworrall/rededge-refl/pkg/flight"
)

var(
	fVerbosity int
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <flight dir>\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Run after process-flight; moves refl/ images into band<N>/ folders.\n")
		flag.PrintDefaults()
	}
	flag.Parse()
}

func main() {
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	sorted, err := flight.SortByBand(flag.Arg(0), elog.New(fVerbosity))
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("sorted %d images\n", len(sorted))
}
