package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pathtracker/pathtracker/adapters/metrics"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewWithRegistry(reg)

	c.RequestsTotal.WithLabelValues("GET", "/api/v1/logs", "200").Inc()
	c.EventsIngested.WithLabelValues("rest").Add(3)
	c.TokensRecorded.Add(150)

	if got := testutil.ToFloat64(c.RequestsTotal.WithLabelValues("GET", "/api/v1/logs", "200")); got != 1 {
		t.Errorf("requests_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.EventsIngested.WithLabelValues("rest")); got != 3 {
		t.Errorf("events_ingested_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.TokensRecorded); got != 150 {
		t.Errorf("llm_tokens_recorded_total = %v, want 150", got)
	}
}

func TestNewWithRegistry_Isolated(t *testing.T) {
	// Two registries must not collide on metric registration.
	a := metrics.NewWithRegistry(prometheus.NewRegistry())
	b := metrics.NewWithRegistry(prometheus.NewRegistry())

	a.ConfigReloads.Inc()
	if got := testutil.ToFloat64(b.ConfigReloads); got != 0 {
		t.Errorf("config_reloads_total leaked across registries: %v", got)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "short path unchanged", path: "/api/v1/logs", want: "/api/v1/logs"},
		{name: "long path truncated", path: "/api/v1/" + strings.Repeat("x", 60), want: ("/api/v1/" + strings.Repeat("x", 60))[:50] + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := metrics.NormalizePath(tt.path); got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
