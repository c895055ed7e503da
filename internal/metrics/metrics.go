// Package metrics exposes Prometheus counters and histograms for HTTP requests and
// repository queries on a private registry.
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

const namespace = "climate"

type Collector struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	queries             *prometheus.CounterVec
	queryDuration       *prometheus.HistogramVec
}

// NewCollector registers all metrics plus the Go runtime and process collectors on a new
// registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auto := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"pattern", "method", "code"}),
		httpRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pattern"}),
		queries: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "queries_total",
			Help:      "Repository queries by statement name and outcome.",
		}, []string{"query", "outcome"}),
		queryDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_duration_seconds",
			Help:      "Repository query latency by statement name.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"query"}),
	}
}

// ObserveRequest records one served request. pattern is the matched ServeMux pattern, or
// "unmatched" when none matched.
func (c *Collector) ObserveRequest(pattern, method string, code int, d time.Duration) {
	if pattern == "" {
		pattern = "unmatched"
	}
	c.httpRequests.WithLabelValues(pattern, method, strconv.Itoa(code)).Inc()
	c.httpRequestDuration.WithLabelValues(pattern).Observe(d.Seconds())
}

func (c *Collector) ObserveQuery(name string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.queries.WithLabelValues(name, outcome).Inc()
	c.queryDuration.WithLabelValues(name).Observe(d.Seconds())
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
