package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects the metrics of one run. A one-shot process has nobody
// scraping it, so results go to a node_exporter textfile instead.
type Recorder struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
	pagesIn     prometheus.Counter
	pagesOut    prometheus.Counter
	pagesSplit  *prometheus.CounterVec
	outputBytes prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pdfsplit",
				Name:      "runs_total",
				Help:      "Runs by result (success or error kind)",
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "pdfsplit",
				Name:      "run_duration_seconds",
				Help:      "Duration of a run from fetch to write",
				Buckets:   prometheus.DefBuckets,
			},
		),
		pagesIn: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pdfsplit",
				Name:      "input_pages_total",
				Help:      "Pages read from input documents",
			},
		),
		pagesOut: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pdfsplit",
				Name:      "output_pages_total",
				Help:      "Pages written to output documents",
			},
		),
		pagesSplit: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pdfsplit",
				Name:      "split_pages_total",
				Help:      "Input pages split in two, by direction",
			},
			[]string{"direction"},
		),
		outputBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pdfsplit",
				Name:      "output_bytes",
				Help:      "Size of the last written output document",
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pdfsplit",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful run",
			},
		),
	}
	r.registry.MustRegister(r.runs, r.duration, r.pagesIn, r.pagesOut, r.pagesSplit, r.outputBytes, r.lastSuccess)
	return r
}

// ObserveSplit records the page accounting of a finished split.
func (r *Recorder) ObserveSplit(direction string, in, split, out int, size int64) {
	r.pagesIn.Add(float64(in))
	r.pagesOut.Add(float64(out))
	r.pagesSplit.WithLabelValues(direction).Add(float64(split))
	r.outputBytes.Set(float64(size))
}

// ObserveRun records the outcome of a run; result is "success" or an error kind.
func (r *Recorder) ObserveRun(result string, dur time.Duration) {
	r.runs.WithLabelValues(result).Inc()
	r.duration.Observe(dur.Seconds())
	if result == "success" {
		r.lastSuccess.SetToCurrentTime()
	}
}

// Gatherer exposes the registry, e.g. for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }

// WriteTextfile writes all metrics in text exposition format. The file is
// replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
