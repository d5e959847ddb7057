package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)
	ctx := context.Background()

	p.OnSnapshot(ctx, "notes", 1, 2)
	p.OnSnapshot(ctx, "notes", 2, 3)
	p.OnGenerateComplete(ctx, "notes", "openai", 3, time.Second, nil)
	p.OnGenerateComplete(ctx, "expand", "openai", 0, time.Second, errors.New("boom"))
	p.OnCacheHit(ctx, "notes")
	p.OnCacheSet(ctx, "notes", 512)
	p.ObserveRequest("/api/notes", "POST", 201, time.Millisecond)
	p.ObserveRequest("/api/notes/{id}", "GET", 404, time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"snapshots", testutil.ToFloat64(p.snapshots.WithLabelValues("notes")), 2},
		{"ok generations", testutil.ToFloat64(p.generations.WithLabelValues("notes", "openai", "ok")), 1},
		{"failed expansions", testutil.ToFloat64(p.generations.WithLabelValues("expand", "openai", "error")), 1},
		{"cache hits", testutil.ToFloat64(p.cacheEvents.WithLabelValues("notes", "hit")), 1},
		{"cache bytes", testutil.ToFloat64(p.cacheBytes.WithLabelValues("notes")), 512},
		{"2xx requests", testutil.ToFloat64(p.requests.WithLabelValues("/api/notes", "POST", "2xx")), 1},
		{"4xx requests", testutil.ToFloat64(p.requests.WithLabelValues("/api/notes/{id}", "GET", "4xx")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestPrometheusDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheus(reg)

	defer func() {
		if recover() == nil {
			t.Error("second NewPrometheus on the same registry should panic")
		}
	}()
	NewPrometheus(reg)
}
