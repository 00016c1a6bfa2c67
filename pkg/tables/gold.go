package tables

import (
	"context"

	"github.com/txn2/mcp-vnstock/pkg/query"
	"github.com/txn2/mcp-vnstock/pkg/vnstock"
)

// GoldPriceTable serves gold price boards. Nothing is pushed down.
type GoldPriceTable struct {
	base
}

var _ Table = (*GoldPriceTable)(nil)

// NewGoldPriceTable creates a gold price table.
func NewGoldPriceTable(name string, r vnstock.Resource, deps Deps) (*GoldPriceTable, error) {
	b, err := newBase(name, FamilyGold, r, resourceSet(vnstock.GoldSJC, vnstock.GoldBTMC), deps)
	if err != nil {
		return nil, err
	}
	return &GoldPriceTable{base: b}, nil
}

// Pushdown implements Table.
func (t *GoldPriceTable) Pushdown() []string { return nil }

// Plan implements Table.
func (t *GoldPriceTable) Plan(sel *query.Select) (*Plan, error) {
	residual := append([]query.Predicate{}, sel.Where...)
	return &Plan{Table: t.name, Request: vnstock.Request{Resource: t.resource}, Residual: residual}, nil
}

// Select implements Table.
func (t *GoldPriceTable) Select(ctx context.Context, sel *query.Select) (*query.Result, *Plan, error) {
	p, err := t.Plan(sel)
	if err != nil {
		return nil, nil, err
	}
	res, err := t.run(ctx, sel, p, nil)
	return res, p, err
}

// Columns implements Table.
func (t *GoldPriceTable) Columns(ctx context.Context) ([]string, error) {
	return t.discover(ctx, vnstock.Request{Resource: t.resource}, nil)
}
