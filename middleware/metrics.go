package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SanaAdeelKhan/geo-gap-compass/remote"
)

var slotDesc = prometheus.NewDesc(
	"geogap_result_present",
	"Whether the persisted slot of an analysis kind holds a result",
	[]string{"kind"},
	nil,
)

// SlotCollector reads slot occupancy on each scrape.
type SlotCollector struct {
	occupied func() map[string]bool
}

func (c *SlotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- slotDesc
}

func (c *SlotCollector) Collect(ch chan<- prometheus.Metric) {
	for kind, ok := range c.occupied() {
		v := 0.0
		if ok {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(slotDesc, prometheus.GaugeValue, v, kind)
	}
}

// Metrics owns the prometheus collectors of the process.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	remoteCalls     *prometheus.CounterVec
	remoteDuration  *prometheus.HistogramVec
	runs            *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geogap_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geogap_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geogap_backend_calls_total",
			Help: "Analytics backend calls by operation and outcome",
		}, []string{"op", "outcome"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geogap_backend_call_duration_seconds",
			Help:    "Analytics backend latency by operation",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"op"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geogap_analysis_runs_total",
			Help: "Analysis runs by kind and outcome",
		}, []string{"kind", "outcome"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.remoteCalls,
		m.remoteDuration,
		m.runs,
		collectors.NewGoCollector(),
	)
	return m
}

// WatchSlots exports slot occupancy read from occupied at scrape time.
func (m *Metrics) WatchSlots(occupied func() map[string]bool) {
	m.registry.MustRegister(&SlotCollector{occupied: occupied})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Middleware counts requests by matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(responseStatus(c))).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// ObserveRemote is a remote.Observer.
func (m *Metrics) ObserveRemote(op string, elapsed time.Duration, err error) {
	m.remoteCalls.WithLabelValues(op, outcome(err)).Inc()
	m.remoteDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// TrackRun counts a finished analysis.
func (m *Metrics) TrackRun(kind, _ string, _ time.Duration, failed bool) {
	o := "ok"
	if failed {
		o = "error"
	}
	m.runs.WithLabelValues(kind, o).Inc()
}

// responseStatus is the status the client will see. An attached error is
// rendered by ErrorHandler only after this middleware has returned.
func responseStatus(c *gin.Context) int {
	if !c.Writer.Written() && len(c.Errors) > 0 {
		return StatusFor(c.Errors.Last().Err)
	}
	return c.Writer.Status()
}

func outcome(err error) string {
	var remoteErr *remote.RemoteError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &remoteErr):
		return "remote_error"
	default:
		return "transport_error"
	}
}
