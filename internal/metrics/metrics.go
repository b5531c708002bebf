// Package metrics exposes build counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "geobuild_"

// Recorder implements core.BuildObserver.
type Recorder struct {
	registry *prometheus.Registry

	buildsTotal   *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	messagesTotal *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

// New constructs the build metrics and registers them with reg. A nil reg
// uses a fresh registry, which keeps tests independent of the global one.
func New(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Recorder{
		registry: reg,
		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "builds_total",
				Help: "Total builds by object type and outcome",
			},
			[]string{"object_type", "outcome"},
		),
		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "build_duration_seconds",
				Help:    "Build latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"object_type"},
		),
		messagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "validation_messages_total",
				Help: "Total validation findings by object type, severity and code",
			},
			[]string{"object_type", "severity", "code"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total API requests by route and status class",
			},
			[]string{"route", "status"},
		),
	}
	reg.MustRegister(
		r.buildsTotal,
		r.buildDuration,
		r.messagesTotal,
		r.httpRequests,
	)
	return r
}

// ObserveBuild records one finished build. report is nil for failed builds.
func (r *Recorder) ObserveBuild(t core.ObjectType, outcome core.Outcome, elapsed time.Duration, report *core.ValidationReport) {
	typ := string(t)
	if typ == "" {
		typ = "unknown"
	}
	r.buildsTotal.WithLabelValues(typ, string(outcome)).Inc()
	r.buildDuration.WithLabelValues(typ).Observe(elapsed.Seconds())

	if report == nil {
		return
	}
	for _, m := range report.Messages {
		r.messagesTotal.WithLabelValues(typ, string(m.Severity), m.Code).Inc()
	}
}

// ObserveRequest counts one API request. status is bucketed to its class
// ("2xx", "4xx", ...) to bound label cardinality.
func (r *Recorder) ObserveRequest(route string, status int) {
	r.httpRequests.WithLabelValues(route, statusClass(status)).Inc()
}

// RegisterLimiter exposes the build limiter's slot usage as gauges.
func (r *Recorder) RegisterLimiter(l *core.BuildLimiter) {
	r.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "builds_in_flight",
			Help: "Builds currently holding a limiter slot",
		}, func() float64 { return float64(l.ActiveCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "build_slots",
			Help: "Configured maximum of concurrent builds",
		}, func() float64 { return float64(l.MaxConcurrent()) }),
	)
}

// Handler serves the registered metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
