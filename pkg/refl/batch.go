package refl

import(
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/abworrall/rededge-refl/pkg/calerr"
	"github.com/abworrall/rededge-refl/pkg/elog"
)

// A Job is one flight image to correct; Dst is where the sink should put
// the result.
type Job struct {
	Src string
	Dst string
}

// A Sink stores a corrected image (encode, copy tags, quicklook, ...).
// It is called from many workers at once.
type Sink interface {
	Write(job Job, c Corrected) error
}

type Failure struct {
	Filename string
	Err      error
}

func (f Failure)String() string { return fmt.Sprintf("%s: %v", f.Filename, f.Err) }

// Report summarises a batch run. Skipped counts jobs never started,
// because the run was cancelled or a strict run hit a failure.
type Report struct {
	Total     int
	Processed int
	Skipped   int
	Failures  []Failure
	Elapsed   time.Duration
	Latency   LatencySummary
}

func (r Report)OK() bool { return len(r.Failures) == 0 && r.Skipped == 0 }

func (r Report)String() string {
	str := fmt.Sprintf("%d images: %d corrected, %d failed, %d skipped, in %s (%s)",
		r.Total, r.Processed, len(r.Failures), r.Skipped, r.Elapsed.Round(time.Millisecond), r.Latency)
	if len(r.Failures) > 0 {
		strs := []string{}
		for _, f := range r.Failures {
			strs = append(strs, "  "+f.String())
		}
		str += "\nFailed images:\n" + strings.Join(strs, "\n")
	}
	return str
}

// Batch corrects many flight images concurrently. A failing image is
// logged and recorded, and the rest carry on; in Strict mode the first
// failure cancels everything not yet started.
type Batch struct {
	Workers   int
	Strict    bool
	Source    ImageSource
	Corrector Corrector
	Sink      Sink
	Log       elog.Logger
	Metrics   *BatchMetrics
}

func (b Batch)Run(ctx context.Context, jobs []Job) (Report, error) {
	log := elog.OrNull(b.Log)
	metrics := b.Metrics
	if metrics == nil {
		metrics = NewBatchMetrics()
	}
	workers := b.Workers
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	report := Report{Total: len(jobs)}
	skipped := 0
	var mu sync.Mutex

	sem := make(chan bool, workers)
	for i, job := range jobs {
		sem <- true
		if ctx.Err() != nil {
			<-sem
			skipped = len(jobs) - i
			break
		}
		go func(i int, job Job) {
			defer func() { <-sem }()

			t0 := time.Now()
			err := b.correctOne(job)
			metrics.Observe(time.Since(t0), err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Errorf("%s: %v", job.Src, err)
				report.Failures = append(report.Failures, Failure{Filename: job.Src, Err: err})
				if b.Strict {
					cancel()
				}
			} else {
				report.Processed++
			}
			if n := i+1; n%100 == 0 {
				log.Infof("%d / %d (%s)", n, len(jobs), filepath.Base(job.Src))
			}
		}(i, job)
	}
	for i:=0; i<cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}

	report.Skipped = skipped
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].Filename < report.Failures[j].Filename })
	report.Elapsed = time.Since(start)
	report.Latency = metrics.Summary()

	if b.Strict && len(report.Failures) > 0 {
		return report, errors.Wrapf(report.Failures[0].Err, "strict mode, stopped on %s", report.Failures[0].Filename)
	} else if report.Skipped > 0 {
		return report, errors.Wrapf(calerr.ErrAborted, "batch cancelled with %d images left", report.Skipped)
	}
	return report, nil
}

func (b Batch)correctOne(job Job) error {
	raw, md, err := b.Source.Load(job.Src)
	if err != nil {
		return err
	}
	corr, err := b.Corrector.Correct(raw, md)
	if err != nil {
		return err
	}
	if err := b.Sink.Write(job, corr); err != nil {
		return errors.Wrapf(err, "write '%s'", job.Dst)
	}
	return nil
}
