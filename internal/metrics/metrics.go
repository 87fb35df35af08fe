package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bill_extractor"

// Pipeline stages timed by ObserveStage.
const (
	StageFetch     = "fetch"
	StageExtract   = "extract_text"
	StageAnalyze   = "analyze"
	StageAggregate = "aggregate"
)

// Metrics owns a private registry so tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	extractions      *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	lineItems        prometheus.Histogram
	amountMismatches prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"method", "route"}),
		extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Finished extractions by outcome (success or error kind).",
		}, []string{"outcome"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		lineItems: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "line_items_per_bill",
			Help:      "Number of line items extracted per successful bill.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		amountMismatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "amount_mismatches_total",
			Help:      "Line items whose amount differs from rate times quantity.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordExtraction counts a finished extraction. outcome is "success" or
// the error kind.
func (m *Metrics) RecordExtraction(outcome string) {
	m.extractions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RecordLineItems(n int) {
	m.lineItems.Observe(float64(n))
}

func (m *Metrics) RecordAmountMismatches(n int) {
	m.amountMismatches.Add(float64(n))
}
