package vnstock

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-vnstock/pkg/metrics"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, APIKey: "secret", AcceptTerms: true}, opts...)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "terms not accepted", cfg: Config{BaseURL: "http://x"}, wantErr: ErrTermsNotAccepted},
		{name: "missing base url", cfg: Config{AcceptTerms: true}, wantErr: ErrMissingBaseURL},
		{name: "valid", cfg: Config{BaseURL: "https://api.example.com/v1/", AcceptTerms: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "/v1", c.baseURL.Path)
		})
	}
}

func TestNew_RejectsNonHTTPScheme(t *testing.T) {
	_, err := New(Config{BaseURL: "ftp://example.com", AcceptTerms: true})
	assert.Error(t, err)
}

func TestFetch_SendsRequest(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"columns":["symbol","price"],"data":[["ACB",24.5]]}`))
	})

	frame, err := c.Fetch(context.Background(), Request{
		Resource: StockCompanyOverview,
		Symbol:   "ACB",
		Source:   "VCI",
		Args:     map[string]string{"lang": "en"},
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/stock/company/overview", got.URL.Path)
	assert.Equal(t, url.Values{"symbol": {"ACB"}, "source": {"VCI"}, "lang": {"en"}}, got.URL.Query())
	assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))
	assert.Equal(t, defaultUserAgent, got.Header.Get("User-Agent"))

	assert.Equal(t, []string{"symbol", "price"}, frame.Columns)
	assert.Equal(t, [][]any{{"ACB", 24.5}}, frame.Rows)
}

func TestFetch_OmitsEmptySymbolAndSource(t *testing.T) {
	var query url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.Fetch(context.Background(), Request{Resource: GoldSJC})
	require.NoError(t, err)
	assert.Empty(t, query)
}

func TestFetch_MissingRequiredParameter(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.Fetch(context.Background(), Request{Resource: StockCompanyOverview})
	assert.ErrorIs(t, err, ErrMissingParameter)

	_, err = c.Fetch(context.Background(), Request{Resource: ExchangeRateVCB})
	assert.ErrorIs(t, err, ErrMissingParameter)

	assert.Equal(t, int32(0), calls.Load())
}

func TestFetch_UnknownResource(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {})
	_, err := c.Fetch(context.Background(), Request{Resource: Resource(999)})
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestFetch_UpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad symbol"))
	})

	_, err := c.Fetch(context.Background(), Request{Resource: StockCompanyProfile, Symbol: "ZZZ"})
	require.Error(t, err)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusBadRequest, ue.StatusCode)
	assert.Equal(t, "bad symbol", ue.Body)
	assert.Equal(t, StockCompanyProfile, ue.Resource)
	assert.False(t, ue.Temporary())
}

func TestFetch_DecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`"not a table"`))
	})
	_, err := c.Fetch(context.Background(), Request{Resource: GoldBTMC})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFetch_BreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:     srv.URL,
		AcceptTerms: true,
		Breaker:     BreakerConfig{ConsecutiveFailures: 2},
	})
	require.NoError(t, err)

	req := Request{Resource: GoldSJC}
	for range 2 {
		_, err = c.Fetch(context.Background(), req)
		require.Error(t, err)
	}

	_, err = c.Fetch(context.Background(), req)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:     srv.URL,
		AcceptTerms: true,
		Breaker:     BreakerConfig{ConsecutiveFailures: 1},
	})
	require.NoError(t, err)

	for range 3 {
		_, err = c.Fetch(context.Background(), Request{Resource: GoldSJC})
		var ue *UpstreamError
		require.ErrorAs(t, err, &ue)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_CanceledContext(t *testing.T) {
	c, err := New(Config{BaseURL: "http://127.0.0.1:1", AcceptTerms: true, RateLimit: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Fetch(ctx, Request{Resource: GoldSJC})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"buy":"1"}]`))
	}, WithMetrics(m))

	_, err = c.Fetch(context.Background(), Request{Resource: GoldBTMC})
	require.NoError(t, err)

	out, err := testutil.GatherAndCount(reg, "vnstock_upstream_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, out)
}

func TestCountsAsHealthy(t *testing.T) {
	assert.True(t, countsAsHealthy(nil))
	assert.True(t, countsAsHealthy(context.Canceled))
	assert.True(t, countsAsHealthy(ErrDecode))
	assert.True(t, countsAsHealthy(&UpstreamError{StatusCode: 404}))
	assert.False(t, countsAsHealthy(&UpstreamError{StatusCode: 502}))
	assert.False(t, countsAsHealthy(&UpstreamError{StatusCode: 429}))
	assert.False(t, countsAsHealthy(errors.New("connection refused")))
}
