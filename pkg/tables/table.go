// Package tables implements the virtual tables. Each table maps the
// equality predicates it understands onto an upstream request, fetches the
// result and hands the remaining predicates, ordering and paging to the
// query executor.
package tables

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/txn2/mcp-vnstock/pkg/query"
	"github.com/txn2/mcp-vnstock/pkg/vnstock"
)

// ErrResourceFamily is returned when a table family cannot serve a resource.
var ErrResourceFamily = errors.New("resource not supported by table family")

// Family groups tables that share pushdown rules.
type Family string

// Table families.
const (
	FamilyStock        Family = "stock"
	FamilyQuote        Family = "quote"
	FamilyFund         Family = "fund"
	FamilyFundList     Family = "fund_list"
	FamilyGold         Family = "gold"
	FamilyExchangeRate Family = "exchange_rate"
)

// Families returns every family in a stable order.
func Families() []Family {
	return []Family{FamilyStock, FamilyQuote, FamilyFund, FamilyFundList, FamilyGold, FamilyExchangeRate}
}

// Fetcher performs one upstream call.
type Fetcher interface {
	Fetch(ctx context.Context, req vnstock.Request) (*vnstock.Frame, error)
}

// Connector hands out the upstream session, creating it on first use.
type Connector interface {
	Connect() (Fetcher, error)
}

// Table is a queryable virtual table.
type Table interface {
	// Name returns the registered table name.
	Name() string

	// Family returns the pushdown family.
	Family() Family

	// Resource returns the upstream resource the table reads.
	Resource() vnstock.Resource

	// Pushdown lists the columns whose equality predicates become request
	// parameters.
	Pushdown() []string

	// Plan splits the statement into an upstream request and residual
	// predicates without fetching anything.
	Plan(sel *query.Select) (*Plan, error)

	// Select plans, fetches and shapes the result. The returned plan is the
	// one that was executed, and is set whenever planning succeeded.
	Select(ctx context.Context, sel *query.Select) (*query.Result, *Plan, error)

	// Columns returns the table's column names.
	Columns(ctx context.Context) ([]string, error)
}

// Plan is the pushdown split for one statement.
type Plan struct {
	Table    string            `json:"table"`
	Request  vnstock.Request   `json:"request"`
	Residual []query.Predicate `json:"residual"`
}

// Deps carries what every table needs.
type Deps struct {
	Conn   Connector
	Cache  *ColumnCache
	Now    func() time.Time
	Logger *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// base holds the parts shared by every family.
type base struct {
	name     string
	family   Family
	resource vnstock.Resource
	deps     Deps
}

func newBase(name string, family Family, r vnstock.Resource, allowed map[vnstock.Resource]bool, deps Deps) (base, error) {
	if name == "" {
		return base{}, errors.New("table name is required")
	}
	if !r.Valid() {
		return base{}, fmt.Errorf("table %s: %w: %s", name, vnstock.ErrUnknownResource, r)
	}
	if !allowed[r] {
		return base{}, fmt.Errorf("table %s: %w: %s cannot serve %s", name, ErrResourceFamily, family, r)
	}
	return base{name: name, family: family, resource: r, deps: deps.withDefaults()}, nil
}

func (b *base) Name() string               { return b.name }
func (b *base) Family() Family             { return b.family }
func (b *base) Resource() vnstock.Resource { return b.resource }

func (b *base) fetch(ctx context.Context, req vnstock.Request) (*vnstock.Frame, error) {
	if b.deps.Conn == nil {
		return nil, fmt.Errorf("table %s: no upstream connection", b.name)
	}
	f, err := b.deps.Conn.Connect()
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	return f.Fetch(ctx, req)
}

// run fetches the planned request and applies the residual shaping.
func (b *base) run(ctx context.Context, sel *query.Select, p *Plan, post func(*vnstock.Frame)) (*query.Result, error) {
	b.deps.Logger.Debug("vnstock table select",
		"table", b.name,
		"resource", b.resource.String(),
		"pushdown", len(sel.Where)-len(p.Residual),
		"residual", len(p.Residual))

	frame, err := b.fetch(ctx, p.Request)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", b.name, err)
	}
	if post != nil {
		post(frame)
	}
	res, err := query.Execute(frame.Columns, frame.Rows, sel.Shape(p.Residual))
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", b.name, err)
	}
	return res, nil
}

// discover returns the columns of one sample fetch, cached per table.
func (b *base) discover(ctx context.Context, sample vnstock.Request, post func(*vnstock.Frame)) ([]string, error) {
	load := func(ctx context.Context) ([]string, error) {
		frame, err := b.fetch(ctx, sample)
		if err != nil {
			return nil, fmt.Errorf("table %s: discovering columns: %w", b.name, err)
		}
		if post != nil {
			post(frame)
		}
		return frame.Columns, nil
	}
	if b.deps.Cache == nil {
		return load(ctx)
	}
	return b.deps.Cache.Get(ctx, b.name, load)
}

// equalities builds a Partition callback that consumes equality predicates
// on the given columns.
func equalities(set func(column, value string) bool) func(query.Predicate) bool {
	return func(p query.Predicate) bool {
		if p.Op != query.OpEq {
			return false
		}
		return set(p.Column, query.FormatValue(p.Value))
	}
}

func resourceSet(rs ...vnstock.Resource) map[vnstock.Resource]bool {
	m := make(map[vnstock.Resource]bool, len(rs))
	for _, r := range rs {
		m[r] = true
	}
	return m
}
