package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/internal/telemetry"
)

const metricsExpiration = 5 * time.Minute

var (
	metricsMu     sync.Mutex
	metricsSink   *metrics.Metrics
	metricsServer *http.Server
)

// StartMetricsServer serves Prometheus metrics on addr until StopMetricsServer.
// An empty addr disables the endpoint.
func StartMetricsServer(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}

	metricsMu.Lock()
	defer metricsMu.Unlock()

	if metricsServer != nil {
		return nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	sink, err := telemetry.NewPrometheusMetrics(reg, metricsExpiration)
	if err != nil {
		return err
	}

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{Handler: mux, ReadHeaderTimeout: constants.ShortHTTPTimeout}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			newLogger(os.Stderr).Error("metrics server stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	metricsSink = sink
	metricsServer = server

	return nil
}

// StopMetricsServer shuts the metrics endpoint down, if it was started.
func StopMetricsServer() {
	metricsMu.Lock()
	server := metricsServer
	metricsServer = nil
	metricsSink = nil
	metricsMu.Unlock()

	if server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.ShortHTTPTimeout)
	defer cancel()

	_ = server.Shutdown(ctx)
}

// currentMetrics returns the sink behind the metrics endpoint. Nil makes the
// client use the go-metrics global.
func currentMetrics() *metrics.Metrics {
	metricsMu.Lock()
	defer metricsMu.Unlock()

	return metricsSink
}
