package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes service and run metrics to Prometheus.
type Recorder struct {
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	runs       *prometheus.CounterVec
	runSeconds *prometheus.HistogramVec
	origins    prometheus.Histogram
}

// New registers the collectors on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onlevel_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "status"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "onlevel_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onlevel_runs_total",
				Help: "Pipeline runs by kind and outcome; outcome is ok or an error kind",
			},
			[]string{"kind", "outcome"},
		),
		runSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "onlevel_run_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"kind"},
		),
		origins: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "onlevel_origins_per_run",
				Help:    "Number of origin periods fitted per run",
				Buckets: prometheus.LinearBuckets(5, 10, 6),
			},
		),
	}
}

func (r *Recorder) RecordRequest(method, route, status string, seconds float64) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, route, status).Inc()
	r.latency.WithLabelValues(method, route).Observe(seconds)
}

// RecordRun records one run. outcome is "ok" or the error kind.
func (r *Recorder) RecordRun(kind, outcome string, seconds float64, origins int) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(kind, outcome).Inc()
	r.runSeconds.WithLabelValues(kind).Observe(seconds)
	if origins > 0 {
		r.origins.Observe(float64(origins))
	}
}
