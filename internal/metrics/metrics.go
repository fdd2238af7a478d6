package metrics

/*
SubHound: subdomain enumeration through certificate transparency search
Copyright (C) 2025  The SubHound authors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry           = prometheus.NewRegistry()
	defaultRegisterer  = promauto.With(registry)
	metricsInitialized sync.Once
	metricsEnabled     atomic.Bool
	metricsServer      *http.Server
)

// Metrics contains all the Prometheus metrics for a run.
type Metrics struct {
	// Discovery metrics
	DiscoveryDuration   prometheus.Histogram
	DiscoveryRequests   *prometheus.CounterVec
	DiscoveryCandidates prometheus.Gauge

	// Probe metrics
	ProbeDuration    prometheus.Histogram
	ProbesTotal      *prometheus.CounterVec
	ProbeStatusCodes *prometheus.CounterVec
	ProbesInFlight   prometheus.Gauge

	// Worker metrics
	WorkerPanics *prometheus.CounterVec

	// Scheduler metrics
	SchedulerWorkSubmitted prometheus.Counter
	SchedulerQueueFull     prometheus.Counter

	// Output metrics
	OutputBytes  prometheus.Counter
	OutputLines  prometheus.Counter
	OutputErrors *prometheus.CounterVec
}

var globalMetrics *Metrics
var metricsOnce sync.Once

// GetMetrics returns the global metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// EnableMetrics turns on metrics collection.
func EnableMetrics() {
	metricsEnabled.Store(true)
}

// IsMetricsEnabled returns whether metrics collection is enabled.
func IsMetricsEnabled() bool {
	return metricsEnabled.Load()
}

// Registry exposes the registry backing every SubHound metric.
func Registry() *prometheus.Registry {
	return registry
}

func newMetrics() *Metrics {
	buckets := []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

	return &Metrics{
		DiscoveryDuration: defaultRegisterer.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "subhound_discovery_duration_seconds",
				Help:    "Time spent querying the CT search endpoint and parsing the result",
				Buckets: buckets,
			},
		),
		DiscoveryRequests: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subhound_discovery_requests_total",
				Help: "Discovery requests by outcome",
			},
			[]string{"status"},
		),
		DiscoveryCandidates: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "subhound_discovery_candidates",
				Help: "Unique hostname candidates found by the last discovery",
			},
		),

		ProbeDuration: defaultRegisterer.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "subhound_probe_duration_seconds",
				Help:    "Time spent on a single HEAD probe",
				Buckets: buckets,
			},
		),
		ProbesTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subhound_probes_total",
				Help: "Completed probes by outcome (success or failed)",
			},
			[]string{"outcome"},
		),
		ProbeStatusCodes: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subhound_probe_status_codes_total",
				Help: "Successful probes by status class",
			},
			[]string{"class"},
		),
		ProbesInFlight: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "subhound_probes_in_flight",
				Help: "Probes currently waiting on the network",
			},
		),

		WorkerPanics: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subhound_worker_panics_total",
				Help: "Total number of panics recovered by a worker",
			},
			[]string{"worker_id"},
		),

		SchedulerWorkSubmitted: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "subhound_scheduler_work_submitted_total",
				Help: "Total number of probes submitted to the scheduler",
			},
		),
		SchedulerQueueFull: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "subhound_scheduler_queue_full_total",
				Help: "Submissions rejected because the backlog was full",
			},
		),

		OutputBytes: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "subhound_output_bytes_total",
				Help: "Bytes written to the results file",
			},
		),
		OutputLines: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "subhound_output_lines_total",
				Help: "Lines written to the results file",
			},
		),
		OutputErrors: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subhound_output_errors_total",
				Help: "Results file errors by operation",
			},
			[]string{"operation"},
		),
	}
}

// StartMetricsServer exposes /metrics on addr. The listener is bound before
// returning so address errors are reported to the caller. Does nothing when
// metrics are disabled.
func StartMetricsServer(addr string) error {
	if !IsMetricsEnabled() {
		return nil
	}

	var startErr error
	metricsInitialized.Do(func() {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			startErr = fmt.Errorf("metrics listener on %s: %w", addr, err)
			return
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			log.Printf("Starting metrics server on %s", ln.Addr())
			if err := metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	})
	return startErr
}

// ShutdownMetricsServer gracefully shuts down the metrics server.
func ShutdownMetricsServer(ctx context.Context) error {
	if metricsServer != nil {
		log.Println("Shutting down metrics server...")
		return metricsServer.Shutdown(ctx)
	}
	return nil
}

// MeasureDuration starts a timer and returns the func that observes it.
func MeasureDuration(histogram prometheus.Histogram) func() {
	if !IsMetricsEnabled() {
		return func() {}
	}
	start := time.Now()
	return func() {
		histogram.Observe(time.Since(start).Seconds())
	}
}

// RecordDiscovery records the outcome of one discovery request.
func (m *Metrics) RecordDiscovery(status string, candidates int) {
	if !IsMetricsEnabled() {
		return
	}
	m.DiscoveryRequests.WithLabelValues(status).Inc()
	m.DiscoveryCandidates.Set(float64(candidates))
}

// RecordProbe records a finished probe. statusCode is ignored when ok is false.
func (m *Metrics) RecordProbe(statusCode int, ok bool) {
	if !IsMetricsEnabled() {
		return
	}
	if !ok {
		m.ProbesTotal.WithLabelValues("failed").Inc()
		return
	}
	m.ProbesTotal.WithLabelValues("success").Inc()
	m.ProbeStatusCodes.WithLabelValues(StatusClass(statusCode)).Inc()
}

// RecordInFlight moves the in-flight probe gauge by delta.
func (m *Metrics) RecordInFlight(delta float64) {
	if !IsMetricsEnabled() {
		return
	}
	m.ProbesInFlight.Add(delta)
}

// RecordSubmit counts a scheduler submission, accepted or rejected as full.
func (m *Metrics) RecordSubmit(accepted bool) {
	if !IsMetricsEnabled() {
		return
	}
	if accepted {
		m.SchedulerWorkSubmitted.Inc()
		return
	}
	m.SchedulerQueueFull.Inc()
}

// RecordWorkerPanic counts a panic recovered by worker workerID.
func (m *Metrics) RecordWorkerPanic(workerID int) {
	if !IsMetricsEnabled() {
		return
	}
	m.WorkerPanics.WithLabelValues(strconv.Itoa(workerID)).Inc()
}

// RecordOutputWrite counts one line of n bytes written to the results file.
func (m *Metrics) RecordOutputWrite(n int) {
	if !IsMetricsEnabled() {
		return
	}
	m.OutputLines.Inc()
	m.OutputBytes.Add(float64(n))
}

// RecordOutputError counts a failed results file operation.
func (m *Metrics) RecordOutputError(operation string) {
	if !IsMetricsEnabled() {
		return
	}
	m.OutputErrors.WithLabelValues(operation).Inc()
}

// StatusClass maps a status code to "1xx".."5xx", or "other".
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}
