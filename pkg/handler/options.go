package handler

import (
	"log/slog"
	"time"

	"github.com/txn2/mcp-vnstock/pkg/metrics"
	"github.com/txn2/mcp-vnstock/pkg/registry"
	"github.com/txn2/mcp-vnstock/pkg/tables"
	"github.com/txn2/mcp-vnstock/pkg/vnstock"
)

// Option configures a Handler.
type Option func(*Handler)

// WithTables sets which tables are registered beyond, or instead of, the
// builtin set.
func WithTables(cfg registry.LoaderConfig) Option {
	return func(h *Handler) {
		h.tableConfig = cfg
	}
}

// WithMetrics records query and upstream metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock overrides the time source used for date defaults.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// WithClientOptions passes options to the upstream client.
func WithClientOptions(opts ...vnstock.Option) Option {
	return func(h *Handler) {
		h.clientOpts = append(h.clientOpts, opts...)
	}
}

// WithFetcher replaces the upstream client, mainly for tests.
func WithFetcher(f tables.Fetcher) Option {
	return func(h *Handler) {
		h.dial = func() (tables.Fetcher, error) { return f, nil }
	}
}
