// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services and middleware report to
type Recorder interface {
	RecordSample(accepted bool)
	RecordCrossing()
	RecordUnlock()
	RecordHTTPRequest(method, route string, status int, latency time.Duration)
}

// Collector is the Prometheus Recorder
type Collector struct {
	samples     *prometheus.CounterVec
	crossings   prometheus.Counter
	unlocks     prometheus.Counter
	httpTotal   *prometheus.CounterVec
	httpLatency prometheus.Histogram
}

// NewCollector registers all metrics on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nearu_location_samples_total",
			Help: "Location samples processed by result",
		}, []string{"result"}),
		crossings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nearu_crossings_recorded_total",
			Help: "Crossing events appended to pair histories",
		}),
		unlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nearu_chat_unlocks_total",
			Help: "Pairs whose chat became unlocked",
		}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nearu_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nearu_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(c.samples, c.crossings, c.unlocks, c.httpTotal, c.httpLatency)
	return c
}

func (c *Collector) RecordSample(accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	c.samples.WithLabelValues(result).Inc()
}

func (c *Collector) RecordCrossing() {
	c.crossings.Inc()
}

func (c *Collector) RecordUnlock() {
	c.unlocks.Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, latency time.Duration) {
	c.httpTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.Observe(latency.Seconds())
}

// Nop discards everything
type Nop struct{}

func (Nop) RecordSample(bool)                                    {}
func (Nop) RecordCrossing()                                      {}
func (Nop) RecordUnlock()                                        {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}

// Handler serves the scrape endpoint for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// GinHandler wraps Handler for gin routes
func GinHandler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(Handler(gatherer))
}
