// Package metrics provides Prometheus collectors for table queries and
// upstream market-data calls.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vnstock"

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	queries          *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec
	upstreamCalls    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	residualRows     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Table queries by table and status.",
		}, []string{"table", "status"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "End-to-end table query latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table"}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream market-data requests by resource and status.",
		}, []string{"resource", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream market-data request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource"}),
		residualRows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "result_rows",
			Help:      "Rows returned after residual filtering.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"table"}),
	}

	var err error
	if m.queries, err = register(reg, m.queries); err != nil {
		return nil, err
	}
	if m.queryDuration, err = register(reg, m.queryDuration); err != nil {
		return nil, err
	}
	if m.upstreamCalls, err = register(reg, m.upstreamCalls); err != nil {
		return nil, err
	}
	if m.upstreamDuration, err = register(reg, m.upstreamDuration); err != nil {
		return nil, err
	}
	if m.residualRows, err = register(reg, m.residualRows); err != nil {
		return nil, err
	}
	return m, nil
}

// register registers c, or returns the collector already registered under
// the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("registering collector: %w", err)
}

// ObserveQuery records one table query.
func (m *Metrics) ObserveQuery(table string, rows int, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(table, statusOf(err)).Inc()
	m.queryDuration.WithLabelValues(table).Observe(d.Seconds())
	if err == nil {
		m.residualRows.WithLabelValues(table).Observe(float64(rows))
	}
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(resource string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(resource, statusOf(err)).Inc()
	m.upstreamDuration.WithLabelValues(resource).Observe(d.Seconds())
}

// Handler returns an HTTP handler exposing the gatherer's metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
