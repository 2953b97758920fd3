package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "ffe"

var _ core.MetricsRecorder = (*PrometheusRecorder)(nil)

// PrometheusRecorder counts service operations by outcome and records their
// latency in a histogram.
type PrometheusRecorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the operation collectors, plus the Go and
// process collectors, on a fresh registry.
func NewPrometheusRecorder() (*PrometheusRecorder, error) {
	reg := prometheus.NewRegistry()
	r := &PrometheusRecorder{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{
		r.operations,
		r.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Registry returns the registry the recorder writes to.
func (r *PrometheusRecorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Observe implements core.MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	outcome := "success"
	if !success {
		outcome = "error"
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.latency.WithLabelValues(operation).Observe(duration.Seconds())
}
