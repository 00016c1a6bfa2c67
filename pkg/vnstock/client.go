// Package vnstock provides an HTTP client for the vnstock market-data
// service. Every upstream method is addressed through the closed Resource
// enum; nothing is dispatched by name.
package vnstock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/txn2/mcp-vnstock/pkg/metrics"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultUserAgent   = "mcp-vnstock"
	maxBodyBytes       = 32 << 20
	maxErrorBodyBytes  = 512
	defaultBreakerName = "vnstock"
)

// Config configures the upstream client.
type Config struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	// AcceptTerms records acceptance of the vnstock terms of use. The
	// client refuses to start without it.
	AcceptTerms bool `yaml:"accept_terms"`

	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`

	// RateLimit is the sustained requests per second; zero disables throttling.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker around upstream calls.
type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
}

// Request is one upstream call: the resource plus its keyword arguments.
type Request struct {
	Resource Resource          `json:"resource"`
	Symbol   string            `json:"symbol,omitempty"`
	Source   string            `json:"source,omitempty"`
	Args     map[string]string `json:"args,omitempty"`
}

// Values encodes the request as URL query parameters.
func (r Request) Values() url.Values {
	v := url.Values{}
	if r.Symbol != "" {
		v.Set("symbol", r.Symbol)
	}
	if r.Source != "" {
		v.Set("source", r.Source)
	}
	for k, val := range r.Args {
		v.Set(k, val)
	}
	return v
}

func (r Request) validate() error {
	for _, field := range r.Resource.Requires() {
		switch field {
		case "symbol":
			if r.Symbol == "" {
				return fmt.Errorf("%w: %s requires symbol", ErrMissingParameter, r.Resource)
			}
		default:
			if r.Args[field] == "" {
				return fmt.Errorf("%w: %s requires %s", ErrMissingParameter, r.Resource, field)
			}
		}
	}
	return nil
}

// Client calls the upstream service.
type Client struct {
	baseURL   *url.URL
	apiKey    string
	userAgent string

	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*Frame]
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithMetrics records upstream calls.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if !cfg.AcceptTerms {
		return nil, ErrTermsNotAccepted
	}
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	c := &Client{
		baseURL:   base,
		apiKey:    cfg.APIKey,
		userAgent: ua,
		http:      &http.Client{Timeout: timeout},
		limiter:   newLimiter(cfg.RateLimit, cfg.Burst),
		breaker:   newBreaker(cfg.Breaker),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[*Frame] {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	threshold := cfg.ConsecutiveFailures

	return gobreaker.NewCircuitBreaker[*Frame](gobreaker.Settings{
		Name:        defaultBreakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("vnstock circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: countsAsHealthy,
	})
}

// countsAsHealthy decides which errors leave the breaker untouched: caller
// mistakes and cancellations say nothing about upstream health.
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrDecode) {
		return true
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return !ue.Temporary()
	}
	return false
}

// Fetch performs one upstream call and decodes the returned table.
func (c *Client) Fetch(ctx context.Context, req Request) (*Frame, error) {
	if !req.Resource.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, req.Resource)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	start := time.Now()
	frame, err := c.breaker.Execute(func() (*Frame, error) {
		return c.do(ctx, req)
	})
	elapsed := time.Since(start)
	c.metrics.ObserveUpstream(req.Resource.String(), err, elapsed)

	if err != nil {
		c.logger.Debug("vnstock request failed",
			"resource", req.Resource.String(), "duration", elapsed, "error", err)
		return nil, fmt.Errorf("fetching %s: %w", req.Resource, err)
	}
	c.logger.Debug("vnstock request",
		"resource", req.Resource.String(), "rows", frame.Len(), "duration", elapsed)
	return frame, nil
}

func (c *Client) do(ctx context.Context, req Request) (*Frame, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + req.Resource.Path()
	u.RawQuery = req.Values().Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling upstream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading upstream body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBodyBytes {
			msg = msg[:maxErrorBodyBytes]
		}
		return nil, &UpstreamError{Resource: req.Resource, StatusCode: resp.StatusCode, Body: msg}
	}

	return DecodeFrame(body)
}
