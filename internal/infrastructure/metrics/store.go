// Package metrics provides Prometheus collectors for the project archive store.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Label values for StoreMetrics.
const (
	ResultSuccess = "success"
	ResultError   = "error"

	ModeShared    = "shared"
	ModeExclusive = "exclusive"

	ImageOpStore  = "store"
	ImageOpLoad   = "load"
	ImageOpDelete = "delete"
	ImageOpCached = "cache_hit"
)

// StoreMetrics contains Prometheus metrics for archive store operations.
//
// All methods are no-ops on a nil receiver, so components can record
// unconditionally.
type StoreMetrics struct {
	registry *prometheus.Registry

	snapshotsTotal   *prometheus.CounterVec
	snapshotDuration prometheus.Histogram
	archiveBytes     prometheus.Gauge
	gateWait         *prometheus.HistogramVec
	connectionsInUse prometheus.Gauge
	imagesTotal      *prometheus.CounterVec
}

// NewStoreMetrics creates and registers new store metrics.
func NewStoreMetrics(registry *prometheus.Registry) (*StoreMetrics, error) {
	m := &StoreMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *StoreMetrics) initMetrics() {
	m.snapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addrslips_snapshots_total",
			Help: "Total number of archive snapshots",
		},
		[]string{"result"},
	)

	m.snapshotDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "addrslips_snapshot_duration_seconds",
		Help: "Time spent checkpointing, packing and reopening during a snapshot",
		// 10ms .. ~40s
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	m.archiveBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "addrslips_archive_bytes",
		Help: "Size of the most recently written project archive",
	})

	m.gateWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "addrslips_gate_wait_seconds",
			Help: "Time spent waiting for the connection gate",
			// 0.1ms .. ~3s
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"mode"},
	)

	m.connectionsInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "addrslips_connections_in_use",
		Help: "Pooled connections currently held by callers",
	})

	m.imagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addrslips_images_total",
			Help: "Total number of image store operations",
		},
		[]string{"op"},
	)
}

// Describe implements the Collector interface.
func (m *StoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.snapshotsTotal.Describe(ch)
	m.snapshotDuration.Describe(ch)
	m.archiveBytes.Describe(ch)
	m.gateWait.Describe(ch)
	m.connectionsInUse.Describe(ch)
	m.imagesTotal.Describe(ch)
}

// Collect implements the Collector interface.
func (m *StoreMetrics) Collect(ch chan<- prometheus.Metric) {
	m.snapshotsTotal.Collect(ch)
	m.snapshotDuration.Collect(ch)
	m.archiveBytes.Collect(ch)
	m.gateWait.Collect(ch)
	m.connectionsInUse.Collect(ch)
	m.imagesTotal.Collect(ch)
}

// RecordSnapshot records one snapshot attempt. size is ignored on failure.
func (m *StoreMetrics) RecordSnapshot(d time.Duration, size int64, err error) {
	if m == nil {
		return
	}
	m.snapshotDuration.Observe(d.Seconds())
	if err != nil {
		m.snapshotsTotal.WithLabelValues(ResultError).Inc()
		return
	}
	m.snapshotsTotal.WithLabelValues(ResultSuccess).Inc()
	m.archiveBytes.Set(float64(size))
}

// ObserveGateWait records how long an acquisition waited for the gate.
func (m *StoreMetrics) ObserveGateWait(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.gateWait.WithLabelValues(mode).Observe(d.Seconds())
}

// ConnectionAcquired increments the in-use gauge.
func (m *StoreMetrics) ConnectionAcquired() {
	if m == nil {
		return
	}
	m.connectionsInUse.Inc()
}

// ConnectionReleased decrements the in-use gauge.
func (m *StoreMetrics) ConnectionReleased() {
	if m == nil {
		return
	}
	m.connectionsInUse.Dec()
}

// RecordImageOp counts one image store operation.
func (m *StoreMetrics) RecordImageOp(op string) {
	if m == nil {
		return
	}
	m.imagesTotal.WithLabelValues(op).Inc()
}
