// Package telemetry names the metrics and spans emitted by the client and
// wires them to go-metrics, Prometheus and OpenTelemetry.
package telemetry

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-metrics"
	prometheussink "github.com/hashicorp/go-metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span the client starts.
const TracerName = "github.com/fivetwenty-io/cfops"

var (
	MetricFetchPageCount       = []string{"cfops", "fetch", "page", "count"}
	MetricFetchElementCount    = []string{"cfops", "fetch", "element", "count"}
	MetricFetchErrorCount      = []string{"cfops", "fetch", "error", "count"}
	MetricFetchDuration        = []string{"cfops", "fetch", "duration"}
	MetricRetryAttemptCount    = []string{"cfops", "retry", "attempt", "count"}
	MetricRetryIgnoredCount    = []string{"cfops", "retry", "ignored", "count"}
	MetricRetryExhaustedCount  = []string{"cfops", "retry", "exhausted", "count"}
	MetricRetryDegradedCount   = []string{"cfops", "retry", "degraded", "count"}
	MetricHTTPRequestCount     = []string{"cfops", "http", "request", "count"}
	MetricHTTPRevalidatedCount = []string{"cfops", "http", "cache", "revalidated", "count"}
)

type Label string

var (
	LabelKind      Label = "kind"
	LabelOperation Label = "operation"
	LabelStatus    Label = "status"
	LabelMethod    Label = "method"
	LabelError     Label = "error"
)

func (lab Label) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

// Metrics returns m, or the go-metrics global when m is nil.
func Metrics(m *metrics.Metrics) *metrics.Metrics {
	if m == nil {
		return metrics.Default()
	}

	return m
}

// Tracer returns the client tracer from tp, or from the otel global provider when tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return tp.Tracer(TracerName)
}

// NewMetrics builds a go-metrics instance over sink with no hostname or
// runtime metrics, so metric names are exactly the ones declared here.
func NewMetrics(sink metrics.MetricSink) (*metrics.Metrics, error) {
	cfg := metrics.DefaultConfig("")
	cfg.EnableHostname = false
	cfg.EnableHostnameLabel = false
	cfg.EnableRuntimeMetrics = false

	m, err := metrics.New(cfg, sink)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	return m, nil
}

// NewPrometheusMetrics builds a go-metrics instance that exports into reg.
func NewPrometheusMetrics(reg prometheus.Registerer, expiration time.Duration) (*metrics.Metrics, error) {
	sink, err := prometheussink.NewPrometheusSinkFrom(prometheussink.PrometheusOpts{
		Expiration: expiration,
		Registerer: reg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus sink: %w", err)
	}

	return NewMetrics(sink)
}
