package platform

import (
	"database/sql"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/txn2/mcp-vnstock/pkg/audit"
	"github.com/txn2/mcp-vnstock/pkg/handler"
)

// Options configures the platform.
type Options struct {
	// Config is the platform configuration.
	Config *Config

	// DB is the audit database (optional, opened from config.database.dsn
	// if not provided).
	DB *sql.DB

	// AuditLogger (optional, created from config if not provided).
	AuditLogger audit.Logger

	// Registry receives the Prometheus collectors (optional, a private
	// registry is created if not provided).
	Registry *prometheus.Registry

	// Logger (optional, slog.Default if not provided).
	Logger *slog.Logger

	// HandlerOptions are appended to the handler's options.
	HandlerOptions []handler.Option
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithDB sets the audit database connection.
func WithDB(db *sql.DB) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(logger audit.Logger) Option {
	return func(o *Options) {
		o.AuditLogger = logger
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *Options) {
		o.Registry = reg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithHandlerOptions passes options to the vnstock handler.
func WithHandlerOptions(opts ...handler.Option) Option {
	return func(o *Options) {
		o.HandlerOptions = append(o.HandlerOptions, opts...)
	}
}
