// Package platform wires the vnstock handler into an MCP server together
// with its configuration, audit log, metrics and health checks.
package platform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	_ "github.com/lib/pq" // postgres driver
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/txn2/mcp-vnstock/pkg/audit"
	auditpg "github.com/txn2/mcp-vnstock/pkg/audit/postgres"
	"github.com/txn2/mcp-vnstock/pkg/database/migrate"
	"github.com/txn2/mcp-vnstock/pkg/handler"
	"github.com/txn2/mcp-vnstock/pkg/health"
	"github.com/txn2/mcp-vnstock/pkg/metrics"
)

// ErrMissingConfig is returned by New without a configuration.
var ErrMissingConfig = errors.New("config is required")

// Platform is the main platform facade.
type Platform struct {
	config *Config
	logger *slog.Logger

	handler      *handler.Handler
	mcpServer    *mcp.Server
	auditLogger  audit.Logger
	auditStats   breakdownReader
	auditCounter eventCounter
	db           *sql.DB
	registry     *prometheus.Registry
	metrics      *metrics.Metrics
	health       *health.Checker
	lifecycle    *Lifecycle

	tools   []string
	closers []io.Closer

	closeOnce sync.Once
	closeErr  error
}

// breakdownReader is implemented by audit stores that can aggregate.
type breakdownReader interface {
	Breakdown(ctx context.Context, filter audit.BreakdownFilter) ([]audit.BreakdownEntry, error)
}

// eventCounter is implemented by audit stores that can count matching events.
type eventCounter interface {
	Count(ctx context.Context, filter audit.QueryFilter) (int, error)
}

// New creates a new platform instance.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, ErrMissingConfig
	}
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Platform{
		config:    options.Config,
		logger:    logger,
		health:    health.NewChecker(),
		lifecycle: NewLifecycle(logger),
	}

	if err := p.initializeComponents(options); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("initializing components: %w", err)
	}
	return p, nil
}

// initializeComponents initializes all platform components.
func (p *Platform) initializeComponents(opts *Options) error {
	if err := p.initMetrics(opts); err != nil {
		return err
	}
	if err := p.initDatabase(opts); err != nil {
		return err
	}
	p.initAudit(opts)
	if err := p.initHandler(opts); err != nil {
		return err
	}
	p.initMCPServer()
	return nil
}

func (p *Platform) initMetrics(opts *Options) error {
	p.registry = opts.Registry
	if p.registry == nil {
		p.registry = prometheus.NewRegistry()
	}
	if !p.config.Metrics.Enabled {
		return nil
	}
	m, err := metrics.New(p.registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	p.metrics = m
	return nil
}

func (p *Platform) initDatabase(opts *Options) error {
	if opts.DB != nil {
		p.db = opts.DB
		return nil
	}
	if p.config.Database.DSN == "" {
		return nil
	}

	db, err := sql.Open("postgres", p.config.Database.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(p.config.Database.MaxOpenConns)
	p.db = db
	p.closers = append(p.closers, db)

	p.lifecycle.OnStart("database", func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("pinging database: %w", err)
		}
		return nil
	})
	p.lifecycle.OnStop("database", func(context.Context) error { return nil })
	p.health.AddProbe("database", db.PingContext)
	return nil
}

func (p *Platform) initAudit(opts *Options) {
	switch {
	case opts.AuditLogger != nil:
		p.auditLogger = opts.AuditLogger
	case !p.config.Audit.Enabled:
		p.auditLogger = audit.NoopLogger{}
	case p.db != nil:
		store := auditpg.New(p.db, auditpg.Config{RetentionDays: p.config.Audit.RetentionDays})
		p.auditLogger = store
		p.registerAuditStore(store)
	default:
		p.auditLogger = audit.NewSlogLogger(p.logger)
	}

	if r, ok := p.auditLogger.(breakdownReader); ok {
		p.auditStats = r
	}
	if c, ok := p.auditLogger.(eventCounter); ok {
		p.auditCounter = c
	}
	p.closers = append(p.closers, p.auditLogger)
}

func (p *Platform) registerAuditStore(store *auditpg.Store) {
	db := p.db
	if !p.config.Database.SkipMigrations {
		p.lifecycle.OnStart("migrations", func(context.Context) error {
			return migrate.Run(db)
		})
		p.lifecycle.OnStop("migrations", func(context.Context) error { return nil })
	}

	interval := p.config.Audit.CleanupInterval
	p.lifecycle.OnStart("audit-cleanup", func(context.Context) error {
		store.StartCleanupRoutine(interval)
		return nil
	})
	p.lifecycle.OnStop("audit-cleanup", func(context.Context) error {
		return store.Close()
	})
}

func (p *Platform) initHandler(opts *Options) error {
	hopts := []handler.Option{
		handler.WithTables(p.config.Tables),
		handler.WithMetrics(p.metrics),
		handler.WithLogger(p.logger),
	}
	hopts = append(hopts, opts.HandlerOptions...)

	conn := p.config.VNStock.ConnectionData
	h, err := handler.New(p.config.VNStock.Name, &conn, hopts...)
	if err != nil {
		return fmt.Errorf("creating vnstock handler: %w", err)
	}
	p.handler = h
	p.closers = append(p.closers, h)

	p.health.AddProbe("vnstock", func(ctx context.Context) error {
		if status := h.CheckConnection(ctx); !status.Success {
			return errors.New(status.ErrorMessage)
		}
		return nil
	})
	return nil
}

func (p *Platform) initMCPServer() {
	p.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    p.config.Server.Name,
		Version: p.config.Server.Version,
	}, &mcp.ServerOptions{
		Instructions: p.config.Server.AgentInstructions,
	})

	p.registerQueryTools()
	p.registerInfoTool()
	p.registerPlatformPrompts()
	p.registerResourceTemplates()
	p.validateAgentInstructions()
}

// addTool registers a tool and records its name.
func addTool[In any](p *Platform, tool *mcp.Tool, h mcp.ToolHandlerFor[In, any]) {
	mcp.AddTool(p.mcpServer, tool, h)
	p.tools = append(p.tools, tool.Name)
}

// Start runs startup steps and marks the platform ready.
func (p *Platform) Start(ctx context.Context) error {
	if err := p.lifecycle.Start(ctx); err != nil {
		return err
	}
	p.health.SetReady()
	p.logger.Info("platform started",
		"name", p.config.Server.Name,
		"transport", p.config.Server.Transport,
		"tables", len(p.handler.Tables()),
		"tools", len(p.tools),
	)
	return nil
}

// Stop marks the platform as draining and runs shutdown steps. It does
// nothing when the platform was never started.
func (p *Platform) Stop(ctx context.Context) error {
	if !p.lifecycle.IsStarted() {
		return nil
	}
	p.health.SetDraining()
	return p.lifecycle.Stop(ctx)
}

// MCPServer returns the MCP server.
func (p *Platform) MCPServer() *mcp.Server {
	return p.mcpServer
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// Handler returns the vnstock handler.
func (p *Platform) Handler() *handler.Handler {
	return p.handler
}

// AuditLogger returns the audit logger.
func (p *Platform) AuditLogger() audit.Logger {
	return p.auditLogger
}

// Health returns the readiness checker.
func (p *Platform) Health() *health.Checker {
	return p.health
}

// Registry returns the Prometheus registry holding the platform metrics.
func (p *Platform) Registry() *prometheus.Registry {
	return p.registry
}

// Tools returns the names of the registered MCP tools.
func (p *Platform) Tools() []string {
	return append([]string(nil), p.tools...)
}

// Close stops the platform if needed and closes every resource it opened.
func (p *Platform) Close() error {
	p.closeOnce.Do(func() {
		errs := []error{p.Stop(context.Background())}
		for i := len(p.closers) - 1; i >= 0; i-- {
			if err := p.closers[i].Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			p.closeErr = fmt.Errorf("errors closing platform: %w", err)
		}
	})
	return p.closeErr
}
