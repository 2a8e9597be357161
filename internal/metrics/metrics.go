// Package metrics defines the Prometheus metrics for mapping builds, audits,
// source fetches and lookups. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Build metrics
	BuildRecordsTotal   *prometheus.CounterVec
	MappingPrograms     prometheus.Gauge
	MappingCollisions   prometheus.Gauge
	BuildsTotal         *prometheus.CounterVec
	BuildDurationSecond prometheus.Histogram

	// Audit metrics
	AuditDiscrepancies *prometheus.GaugeVec
	AuditsTotal        *prometheus.CounterVec

	// Fetch metrics
	FetchRequestsTotal     *prometheus.CounterVec
	FetchDurationSeconds   *prometheus.HistogramVec
	SingleflightDedupTotal *prometheus.CounterVec

	// Lookup metrics
	LookupsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterClients *prometheus.GaugeVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,

		BuildRecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmap_build_records_total",
				Help: "Total number of catalogue records processed by outcome",
			},
			[]string{"outcome"}, // outcome: kept, duplicate
		),

		MappingPrograms: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "idmap_mapping_programs",
				Help: "Number of programs in the most recently built or loaded mapping",
			},
		),

		MappingCollisions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "idmap_mapping_case_collisions",
				Help: "Number of key groups that differ only in letter case",
			},
		),

		BuildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmap_builds_total",
				Help: "Total number of mapping builds by status",
			},
			[]string{"status"}, // status: success, invalid, collision, error
		),

		BuildDurationSecond: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "idmap_build_duration_seconds",
				Help:    "Mapping build duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),

		AuditDiscrepancies: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "idmap_audit_discrepancies",
				Help: "Discrepancies found by the last audit by kind",
			},
			[]string{"kind"}, // kind: missing_in_mapping, missing_in_registry, case_mismatch
		),

		AuditsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmap_audits_total",
				Help: "Total number of audits by result",
			},
			[]string{"result"}, // result: consistent, inconsistent
		),

		FetchRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmap_fetch_requests_total",
				Help: "Total number of source fetches by status",
			},
			[]string{"status"}, // status: success, error, not_found
		),

		FetchDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "idmap_fetch_duration_seconds",
				Help:    "Source fetch duration in seconds by status",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"status"},
		),

		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmap_singleflight_dedup_total",
				Help: "Total number of fetches that shared an in-flight request",
			},
			[]string{"module"},
		),

		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmap_lookups_total",
				Help: "Total number of name lookups by match kind",
			},
			[]string{"match"}, // match: exact, folded, miss
		),

		HTTPErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmap_http_errors_total",
				Help: "Total HTTP errors by type and route",
			},
			[]string{"error_type", "route"},
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmap_ratelimiter_dropped_total",
				Help: "Total requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),

		RateLimiterClients: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "idmap_ratelimiter_clients",
				Help: "Number of clients currently tracked by a rate limiter",
			},
			[]string{"limiter"},
		),
	}

	return m
}

// Registry returns the registry the metrics were registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordBuild records a successful build's statistics.
func (m *Metrics) RecordBuild(unique, duplicates, collisions int, duration float64) {
	if m == nil {
		return
	}
	m.BuildRecordsTotal.WithLabelValues("kept").Add(float64(unique))
	m.BuildRecordsTotal.WithLabelValues("duplicate").Add(float64(duplicates))
	m.MappingPrograms.Set(float64(unique))
	m.MappingCollisions.Set(float64(collisions))
	m.BuildsTotal.WithLabelValues("success").Inc()
	m.BuildDurationSecond.Observe(duration)
}

// RecordBuildFailure records a build that returned an error.
func (m *Metrics) RecordBuildFailure(status string) {
	if m == nil {
		return
	}
	m.BuildsTotal.WithLabelValues(status).Inc()
}

// SetMappingSize records the size of a mapping loaded from an artifact or the store.
func (m *Metrics) SetMappingSize(programs int) {
	if m == nil {
		return
	}
	m.MappingPrograms.Set(float64(programs))
}

// RecordAudit records the discrepancy counts of an audit.
func (m *Metrics) RecordAudit(missingInMapping, missingInRegistry, caseMismatches int) {
	if m == nil {
		return
	}
	m.AuditDiscrepancies.WithLabelValues("missing_in_mapping").Set(float64(missingInMapping))
	m.AuditDiscrepancies.WithLabelValues("missing_in_registry").Set(float64(missingInRegistry))
	m.AuditDiscrepancies.WithLabelValues("case_mismatch").Set(float64(caseMismatches))

	result := "consistent"
	if missingInMapping+missingInRegistry+caseMismatches > 0 {
		result = "inconsistent"
	}
	m.AuditsTotal.WithLabelValues(result).Inc()
}

// RecordFetch records a source fetch with status
func (m *Metrics) RecordFetch(status string, duration float64) {
	if m == nil {
		return
	}
	m.FetchRequestsTotal.WithLabelValues(status).Inc()
	m.FetchDurationSeconds.WithLabelValues(status).Observe(duration)
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(module string) {
	if m == nil {
		return
	}
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

// RecordLookup records a lookup by match kind: exact, folded or miss.
func (m *Metrics) RecordLookup(match string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(match).Inc()
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, route string) {
	if m == nil {
		return
	}
	m.HTTPErrorsTotal.WithLabelValues(errorType, route).Inc()
}

// RecordRateLimitDrop records a request rejected by the named limiter.
func (m *Metrics) RecordRateLimitDrop(limiter string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// SetRateLimitClients sets how many clients the named limiter tracks.
func (m *Metrics) SetRateLimitClients(limiter string, count int) {
	if m == nil {
		return
	}
	m.RateLimiterClients.WithLabelValues(limiter).Set(float64(count))
}

// WriteTextfile writes all gathered metrics to path in the node-exporter
// textfile collector format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
