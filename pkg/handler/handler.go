// Package handler exposes the vnstock tables behind one query entry point.
// It owns the registered tables and a lazily created upstream session.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/txn2/mcp-vnstock/pkg/metrics"
	"github.com/txn2/mcp-vnstock/pkg/query"
	"github.com/txn2/mcp-vnstock/pkg/registry"
	"github.com/txn2/mcp-vnstock/pkg/tables"
	"github.com/txn2/mcp-vnstock/pkg/vnstock"
)

// DefaultName is the handler name used when none is given.
const DefaultName = "vnstock"

// statementCacheSize bounds the parsed statements kept per handler.
const statementCacheSize = 256

// Sentinel errors.
var (
	ErrMissingConnectionParams = errors.New("incomplete parameters passed to vnstock handler")
	ErrInvalidQuery            = errors.New("invalid native query")
	ErrTableNotFound           = errors.New("table not found")
)

// ConnectionData is the handler's connection configuration.
type ConnectionData struct {
	vnstock.Config `yaml:",inline"`

	// ColumnCacheTTL bounds how long discovered table columns are reused.
	ColumnCacheTTL time.Duration `yaml:"column_cache_ttl"`
}

// StatusResponse reports the outcome of a connection check.
type StatusResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Response is the result of one query.
type Response struct {
	Table    string        `json:"table"`
	Columns  []string      `json:"columns"`
	Rows     [][]any       `json:"rows"`
	Count    int           `json:"count"`
	Plan     *tables.Plan  `json:"plan,omitempty"`
	Duration time.Duration `json:"-"`
}

// TableInfo describes a registered table.
type TableInfo struct {
	Name     string   `json:"name"`
	Family   string   `json:"family"`
	Resource string   `json:"resource"`
	Pushdown []string `json:"pushdown"`
	Columns  []string `json:"columns,omitempty"`
}

// Handler routes SQL statements to registered tables.
type Handler struct {
	name string
	conn ConnectionData

	mu        sync.Mutex
	fetcher   tables.Fetcher
	connected bool

	registry    *registry.Registry
	cache       *tables.ColumnCache
	statements  *lru.LRU[string, *query.Select]
	tableConfig registry.LoaderConfig
	now         func() time.Time

	metrics    *metrics.Metrics
	logger     *slog.Logger
	clientOpts []vnstock.Option
	dial       func() (tables.Fetcher, error)
}

var _ tables.Connector = (*Handler)(nil)

// New creates a handler and registers its tables.
func New(name string, conn *ConnectionData, opts ...Option) (*Handler, error) {
	if conn == nil {
		return nil, ErrMissingConnectionParams
	}
	if name == "" {
		name = DefaultName
	}

	h := &Handler{
		name:   name,
		conn:   *conn,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.dial == nil {
		h.dial = h.dialClient
	}

	h.cache = tables.NewColumnCache(conn.ColumnCacheTTL)
	h.statements = lru.NewLRU[string, *query.Select](statementCacheSize, nil, 0)
	h.registry = registry.NewRegistry(tables.Deps{
		Conn:   h,
		Cache:  h.cache,
		Now:    h.now,
		Logger: h.logger,
	})
	registry.RegisterBuiltinFactories(h.registry)
	if err := registry.NewLoader(h.registry).Load(h.tableConfig); err != nil {
		return nil, fmt.Errorf("registering tables: %w", err)
	}

	h.logger.Debug("vnstock handler created", "name", name, "tables", h.registry.Names())
	return h, nil
}

// Name returns the handler name.
func (h *Handler) Name() string { return h.name }

func (h *Handler) dialClient() (tables.Fetcher, error) {
	opts := append([]vnstock.Option{
		vnstock.WithMetrics(h.metrics),
		vnstock.WithLogger(h.logger),
	}, h.clientOpts...)
	c, err := vnstock.New(h.conn.Config, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Connect returns the upstream session, creating it on first use.
func (h *Handler) Connect() (tables.Fetcher, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.fetcher != nil {
		return h.fetcher, nil
	}
	f, err := h.dial()
	if err != nil {
		h.connected = false
		return nil, err
	}
	h.fetcher = f
	h.connected = true
	return f, nil
}

// IsConnected reports whether a session has been created.
func (h *Handler) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// CheckConnection validates the connection configuration. It does not call
// the upstream service.
func (h *Handler) CheckConnection(_ context.Context) StatusResponse {
	if _, err := h.Connect(); err != nil {
		h.logger.Error("vnstock connection check failed", "name", h.name, "error", err)
		return StatusResponse{Success: false, ErrorMessage: err.Error()}
	}
	return StatusResponse{Success: true}
}

// NativeQuery parses and runs a SQL statement.
func (h *Handler) NativeQuery(ctx context.Context, sql string) (*Response, error) {
	sel, err := h.parse(sql)
	if err != nil {
		return nil, err
	}
	return h.Query(ctx, sel)
}

// parse returns the parsed statement for sql. Parsed statements are shared
// between callers and must not be modified.
func (h *Handler) parse(sql string) (*query.Select, error) {
	if sel, ok := h.statements.Get(sql); ok {
		return sel, nil
	}
	sel, err := query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	h.statements.Add(sql, sel)
	return sel, nil
}

// Query runs a parsed statement against its table.
func (h *Handler) Query(ctx context.Context, sel *query.Select) (*Response, error) {
	tbl, err := h.lookup(sel)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, plan, err := tbl.Select(ctx, sel)
	elapsed := time.Since(start)

	rows := 0
	if res != nil {
		rows = res.Count
	}
	h.metrics.ObserveQuery(tbl.Name(), rows, err, elapsed)

	if err != nil {
		h.logger.Warn("vnstock query failed", "table", tbl.Name(), "duration", elapsed, "error", err)
		return nil, err
	}

	h.logger.Debug("vnstock query", "table", tbl.Name(), "rows", res.Count, "duration", elapsed)
	return &Response{
		Table:    tbl.Name(),
		Columns:  res.Columns,
		Rows:     res.Rows,
		Count:    res.Count,
		Plan:     plan,
		Duration: elapsed,
	}, nil
}

// Explain returns the pushdown plan for a statement without fetching.
func (h *Handler) Explain(_ context.Context, sql string) (*tables.Plan, error) {
	sel, err := h.parse(sql)
	if err != nil {
		return nil, err
	}
	tbl, err := h.lookup(sel)
	if err != nil {
		return nil, err
	}
	return tbl.Plan(sel)
}

// Tables returns every registered table ordered by name.
func (h *Handler) Tables() []tables.Table {
	return h.registry.All()
}

// TablesByFamily returns the registered tables of one family ordered by name.
func (h *Handler) TablesByFamily(family tables.Family) []tables.Table {
	return h.registry.GetByFamily(family)
}

// Table returns a registered table by name.
func (h *Handler) Table(name string) (tables.Table, bool) {
	return h.registry.Get(name)
}

// Describe returns table metadata. Columns are discovered when withColumns
// is set, which may call the upstream service.
func (h *Handler) Describe(ctx context.Context, name string, withColumns bool) (*TableInfo, error) {
	tbl, ok := h.Table(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	info := &TableInfo{
		Name:     tbl.Name(),
		Family:   string(tbl.Family()),
		Resource: tbl.Resource().String(),
		Pushdown: tbl.Pushdown(),
	}
	if info.Pushdown == nil {
		info.Pushdown = []string{}
	}
	if withColumns {
		cols, err := tbl.Columns(ctx)
		if err != nil {
			return nil, err
		}
		info.Columns = cols
	}
	return info, nil
}

// Close drops the upstream session, cached columns and parsed statements.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fetcher = nil
	h.connected = false
	h.cache.Flush()
	h.statements.Purge()
	return nil
}

func (h *Handler) lookup(sel *query.Select) (tables.Table, error) {
	if sel.Qualifier != "" && sel.Qualifier != h.name {
		return nil, fmt.Errorf("%w: %s.%s", ErrTableNotFound, sel.Qualifier, sel.Table)
	}
	tbl, ok := h.Table(sel.Table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, sel.Table)
	}
	return tbl, nil
}
