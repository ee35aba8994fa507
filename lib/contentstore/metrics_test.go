// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bureau-foundation/contentstore/lib/clock"
	"github.com/bureau-foundation/contentstore/lib/content"
	"github.com/bureau-foundation/contentstore/lib/vfs"
)

func TestMetrics(t *testing.T) {
	files := vfs.NewMemoryProvider()
	seed(t, files, "materials/brick", &material{
		Name:   "brick",
		Albedo: content.NewRef("textures/diffuse", &texture{Name: "diffuse"}),
		Detail: content.NewRef("textures/missing", &texture{Name: "missing"}),
	})
	files.Remove("textures/missing")

	registry := prometheus.NewRegistry()
	metrics, err := NewMetrics(registry)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	store := newTestStore(t, files, func(options *Options) {
		options.Metrics = metrics
		options.Clock = clock.Fake(clock.Real().Now())
	})
	ctx := context.Background()

	brick, err := LoadAs[*material](ctx, store, "materials/brick", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := store.Load(ctx, "textures/diffuse", nil, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}

	checks := []struct {
		name      string
		collector prometheus.Collector
		want      float64
	}{
		{"read", metrics.loads.WithLabelValues(loadRead), 2},
		{"shared", metrics.loads.WithLabelValues(loadShared), 1},
		{"not found", metrics.loads.WithLabelValues(loadNotFound), 1},
		{"loaded records", metrics.loaded, 2},
	}
	for _, check := range checks {
		if got := promtestutil.ToFloat64(check.collector); got != check.want {
			t.Errorf("%s = %v, want %v", check.name, got, check.want)
		}
	}

	if err := store.Unload(brick); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if got := promtestutil.ToFloat64(metrics.unloads); got != 1 {
		t.Errorf("unloads = %v, want 1", got)
	}
	if got := promtestutil.ToFloat64(metrics.releases); got != 1 {
		t.Errorf("releases = %v, want 1", got)
	}
	if got := promtestutil.ToFloat64(metrics.loaded); got != 1 {
		t.Errorf("loaded records = %v, want 1", got)
	}
	if count := promtestutil.CollectAndCount(metrics.duration); count != 2 {
		t.Errorf("operation series = %d, want 2 (load, unload)", count)
	}
}

func TestMetricsDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	if _, err := NewMetrics(registry); err != nil {
		t.Fatalf("first NewMetrics: %v", err)
	}
	if _, err := NewMetrics(registry); err == nil {
		t.Fatal("registering the collectors twice should fail")
	}
}

func TestNilMetrics(t *testing.T) {
	var metrics *Metrics
	metrics.load(loadRead)
	metrics.save(saveWritten)
	metrics.collected(3)
	metrics.setLoaded(1)
}
