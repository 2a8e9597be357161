package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.Registry() != registry {
		t.Error("Registry() should return the registry passed to New")
	}
	if m.BuildRecordsTotal == nil || m.AuditDiscrepancies == nil || m.LookupsTotal == nil {
		t.Error("metric fields not initialized")
	}
}

func TestRecordBuild(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())
	m.RecordBuild(3, 1, 1, 0.002)

	if got := testutil.ToFloat64(m.BuildRecordsTotal.WithLabelValues("kept")); got != 3 {
		t.Errorf("kept = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.BuildRecordsTotal.WithLabelValues("duplicate")); got != 1 {
		t.Errorf("duplicate = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.MappingPrograms); got != 3 {
		t.Errorf("programs = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.MappingCollisions); got != 1 {
		t.Errorf("collisions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BuildsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("builds = %v, want 1", got)
	}
}

func TestRecordAudit(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())
	m.RecordAudit(1, 1, 1)
	m.RecordAudit(0, 0, 0)

	if got := testutil.ToFloat64(m.AuditsTotal.WithLabelValues("inconsistent")); got != 1 {
		t.Errorf("inconsistent = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AuditsTotal.WithLabelValues("consistent")); got != 1 {
		t.Errorf("consistent = %v, want 1", got)
	}
	// gauges hold the last audit
	if got := testutil.ToFloat64(m.AuditDiscrepancies.WithLabelValues("case_mismatch")); got != 0 {
		t.Errorf("case_mismatch = %v, want 0", got)
	}
}

func TestRecordLookup(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())
	m.RecordLookup("exact")
	m.RecordLookup("folded")
	m.RecordLookup("folded")
	m.RecordLookup("miss")

	tests := []struct {
		match string
		want  float64
	}{
		{"exact", 1},
		{"folded", 2},
		{"miss", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.LookupsTotal.WithLabelValues(tt.match)); got != tt.want {
			t.Errorf("lookups{match=%q} = %v, want %v", tt.match, got, tt.want)
		}
	}
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	// Should not panic
	m.RecordBuild(1, 0, 0, 0)
	m.RecordBuildFailure("invalid")
	m.SetMappingSize(1)
	m.RecordAudit(1, 0, 0)
	m.RecordFetch("success", 0.1)
	m.RecordSingleflightDedup("fetch")
	m.RecordLookup("miss")
	m.RecordHTTPError("not_found", "/v1/programs/:name")
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("WriteTextfile on nil metrics: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())
	m.RecordBuild(2, 0, 0, 0.001)
	m.RecordAudit(1, 0, 0)

	path := filepath.Join(t.TempDir(), "idmap.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{
		"idmap_mapping_programs 2",
		`idmap_audit_discrepancies{kind="missing_in_mapping"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}

func TestRateLimiterMetrics(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())
	m.RecordRateLimitDrop("client")
	m.RecordRateLimitDrop("client")
	m.SetRateLimitClients("client", 7)

	if got := testutil.ToFloat64(m.RateLimiterDropped.WithLabelValues("client")); got != 2 {
		t.Errorf("dropped = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RateLimiterClients.WithLabelValues("client")); got != 7 {
		t.Errorf("clients = %v, want 7", got)
	}
}
