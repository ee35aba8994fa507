// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Load results, one per chunk a load walk touches.
const (
	loadRead     = "read"
	loadShared   = "shared"
	loadNotFound = "not_found"
	loadFailed   = "error"
)

// Save results, one per instance a save walk touches.
const (
	saveWritten = "written"
	saveSkipped = "skipped"
	saveFailed  = "error"
)

// Metrics holds the store's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	loads            *prometheus.CounterVec
	saves            *prometheus.CounterVec
	unloads          prometheus.Counter
	releases         prometheus.Counter
	collections      prometheus.Counter
	collectedRecords prometheus.Counter
	duration         *prometheus.HistogramVec
	loaded           prometheus.Gauge
}

// NewMetrics creates the store collectors and registers them with
// registerer. A nil registerer leaves them unregistered, which is
// useful in tests.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentstore",
			Name:      "load_total",
			Help:      "Chunks visited by load walks, by result (read, shared, not_found, error).",
		}, []string{"result"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentstore",
			Name:      "save_total",
			Help:      "Instances visited by save walks, by result (written, skipped, error).",
		}, []string{"result"}),
		unloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "contentstore",
			Name:      "unload_total",
			Help:      "Public references released through Unload.",
		}),
		releases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "contentstore",
			Name:      "released_records_total",
			Help:      "Records freed, by reference counting or collection.",
		}),
		collections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "contentstore",
			Name:      "collections_total",
			Help:      "Cycle collection passes run.",
		}),
		collectedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "contentstore",
			Name:      "collected_records_total",
			Help:      "Records freed by cycle collection.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "contentstore",
			Name:      "operation_seconds",
			Help:      "Duration of store operations, lock wait included.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"op"}),
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "contentstore",
			Name:      "loaded_records",
			Help:      "Records currently held by the store.",
		}),
	}

	if registerer != nil {
		for _, collector := range m.collectors() {
			if err := registerer.Register(collector); err != nil {
				return nil, fmt.Errorf("registering content store metrics: %w", err)
			}
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.loads, m.saves, m.unloads, m.releases, m.collections, m.collectedRecords, m.duration, m.loaded,
	}
}

func (m *Metrics) load(result string) {
	if m != nil {
		m.loads.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) save(result string) {
	if m != nil {
		m.saves.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) unload() {
	if m != nil {
		m.unloads.Inc()
	}
}

func (m *Metrics) released() {
	if m != nil {
		m.releases.Inc()
	}
}

func (m *Metrics) collected(count int) {
	if m != nil {
		m.collections.Inc()
		m.collectedRecords.Add(float64(count))
	}
}

func (m *Metrics) observe(operation string, elapsed time.Duration) {
	if m != nil {
		m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) setLoaded(count int) {
	if m != nil {
		m.loaded.Set(float64(count))
	}
}
