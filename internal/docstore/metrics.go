package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsStore wraps a Store with prometheus instrumentation. Absent
// documents are not counted as errors; they are a normal outcome.
type MetricsStore struct {
	inner    Store
	ops      *prometheus.CounterVec
	failures *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// WithMetrics registers the docstore metrics on reg and returns the wrapped
// store.
func WithMetrics(inner Store, reg prometheus.Registerer) *MetricsStore {
	m := &MetricsStore{
		inner: inner,
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shotlist_docstore_operations_total",
			Help: "Document store operations by kind.",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shotlist_docstore_failures_total",
			Help: "Failed document store operations by kind.",
		}, []string{"op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shotlist_docstore_operation_seconds",
			Help:    "Document store operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.ops, m.failures, m.latency)
	return m
}

func (m *MetricsStore) observe(op string, start time.Time, err error) {
	m.ops.WithLabelValues(op).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrNotExist) {
		m.failures.WithLabelValues(op).Inc()
	}
}

// Read implements Store.
func (m *MetricsStore) Read(ctx context.Context, kp KeyPath) (json.RawMessage, error) {
	start := time.Now()
	doc, err := m.inner.Read(ctx, kp)
	m.observe("read", start, err)
	return doc, err
}

// Write implements Store.
func (m *MetricsStore) Write(ctx context.Context, kp KeyPath, doc json.RawMessage, merge bool) error {
	start := time.Now()
	err := m.inner.Write(ctx, kp, doc, merge)
	m.observe("write", start, err)
	return err
}

// Delete implements Store.
func (m *MetricsStore) Delete(ctx context.Context, kp KeyPath) error {
	start := time.Now()
	err := m.inner.Delete(ctx, kp)
	m.observe("delete", start, err)
	return err
}

// Subscribe implements Store.
func (m *MetricsStore) Subscribe(ctx context.Context, kp KeyPath, onSnapshot SnapshotFunc, onError ErrorFunc) (UnsubscribeFunc, error) {
	start := time.Now()
	unsub, err := m.inner.Subscribe(ctx, kp, onSnapshot, onError)
	m.observe("subscribe", start, err)
	return unsub, err
}
