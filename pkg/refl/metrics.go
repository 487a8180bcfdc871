package refl

import(
	"fmt"
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/prometheus/client_golang/prometheus"
)

// BatchMetrics counts corrected and failed images and tracks per-image
// latency, both as Prometheus metrics (for a node-exporter textfile) and
// in an HDR histogram for the end-of-run percentiles.
type BatchMetrics struct {
	Registry  *prometheus.Registry
	Processed prometheus.Counter
	Failed    prometheus.Counter
	Seconds   prometheus.Histogram

	mu      sync.Mutex
	latency *hdrhistogram.Histogram // microseconds
}

// Latencies are tracked from 1us to 10 minutes.
const(
	minLatencyUS = 1
	maxLatencyUS = 10 * 60 * 1000 * 1000
)

func NewBatchMetrics() *BatchMetrics {
	bm := &BatchMetrics{
		Registry: prometheus.NewRegistry(),
		Processed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rad2refl_images_corrected_total",
			Help: "Flight images converted to reflectance.",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rad2refl_images_failed_total",
			Help: "Flight images that could not be converted.",
		}),
		Seconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rad2refl_image_seconds",
			Help:    "Time to load, correct and write one image.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		latency: hdrhistogram.New(minLatencyUS, maxLatencyUS, 3),
	}
	bm.Registry.MustRegister(bm.Processed, bm.Failed, bm.Seconds)
	return bm
}

func (bm *BatchMetrics)Observe(d time.Duration, err error) {
	if err != nil {
		bm.Failed.Inc()
	} else {
		bm.Processed.Inc()
	}
	bm.Seconds.Observe(d.Seconds())

	us := d.Microseconds()
	if us < minLatencyUS {
		us = minLatencyUS
	} else if us > maxLatencyUS {
		us = maxLatencyUS
	}
	bm.mu.Lock()
	bm.latency.RecordValue(us)
	bm.mu.Unlock()
}

type LatencySummary struct {
	N             int64
	Mean          time.Duration
	P50, P90, P99 time.Duration
}

func (ls LatencySummary)String() string {
	if ls.N == 0 {
		return "no latencies"
	}
	return fmt.Sprintf("per image: mean %s, p50 %s, p90 %s, p99 %s", ls.Mean, ls.P50, ls.P90, ls.P99)
}

func (bm *BatchMetrics)Summary() LatencySummary {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return LatencySummary{
		N:    bm.latency.TotalCount(),
		Mean: us(int64(bm.latency.Mean())),
		P50:  us(bm.latency.ValueAtQuantile(50)),
		P90:  us(bm.latency.ValueAtQuantile(90)),
		P99:  us(bm.latency.ValueAtQuantile(99)),
	}
}

// WriteTextfile dumps the metrics in Prometheus text format.
func (bm *BatchMetrics)WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, bm.Registry)
}
