package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveQuery("fund_list", 3, nil, 10*time.Millisecond)
	m.ObserveUpstream("fund.listing", nil, 5*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["vnstock_queries_total"])
	assert.True(t, names["vnstock_query_duration_seconds"])
	assert.True(t, names["vnstock_upstream_requests_total"])
	assert.True(t, names["vnstock_upstream_request_duration_seconds"])
	assert.True(t, names["vnstock_result_rows"])
}

func TestNew_TwiceOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	second.ObserveQuery("fund_list", 1, nil, time.Millisecond)
	second.ObserveUpstream("fund.listing", nil, time.Millisecond)

	n, err := testutil.GatherAndCount(reg, "vnstock_queries_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = testutil.GatherAndCount(reg, "vnstock_upstream_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	first.ObserveQuery("fund_list", 1, nil, time.Millisecond)
	assert.InDelta(t, 2, testutil.ToFloat64(second.queries.WithLabelValues("fund_list", StatusOK)), 0)
}

func TestNew_ConflictingCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vnstock",
		Name:      "queries_total",
		Help:      "Something else.",
	})))

	_, err := New(reg)
	assert.ErrorContains(t, err, "registering collector")
}

func TestObserveQuery_Status(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveQuery("exchange_rate", 1, nil, time.Millisecond)
	m.ObserveQuery("exchange_rate", 0, errors.New("boom"), time.Millisecond)
	m.ObserveQuery("exchange_rate", 0, errors.New("boom"), time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.queries.WithLabelValues("exchange_rate", StatusOK)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.queries.WithLabelValues("exchange_rate", StatusError)), 0)
}

func TestObserveUpstream_Status(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveUpstream("gold.sjc", errors.New("503"), time.Millisecond)
	assert.InDelta(t, 1, testutil.ToFloat64(m.upstreamCalls.WithLabelValues("gold.sjc", StatusError)), 0)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveQuery("t", 1, nil, time.Second)
		m.ObserveUpstream("r", nil, time.Second)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.ObserveQuery("fund_list", 2, nil, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `vnstock_queries_total{status="ok",table="fund_list"} 1`)
}
