package tables

import (
	"context"

	"github.com/txn2/mcp-vnstock/pkg/query"
	"github.com/txn2/mcp-vnstock/pkg/vnstock"
)

const sampleFundSymbol = "SSISCA"

var fundResources = resourceSet(
	vnstock.FundFilter,
	vnstock.FundNAVReport,
	vnstock.FundTopHolding,
	vnstock.FundIndustryHolding,
	vnstock.FundAssetHolding,
)

// FundTable serves per-fund detail resources keyed by fund symbol.
type FundTable struct {
	base
}

var _ Table = (*FundTable)(nil)

// NewFundTable creates a fund detail table.
func NewFundTable(name string, r vnstock.Resource, deps Deps) (*FundTable, error) {
	b, err := newBase(name, FamilyFund, r, fundResources, deps)
	if err != nil {
		return nil, err
	}
	return &FundTable{base: b}, nil
}

// Pushdown implements Table.
func (t *FundTable) Pushdown() []string { return []string{"symbol"} }

// Plan implements Table.
func (t *FundTable) Plan(sel *query.Select) (*Plan, error) {
	req := vnstock.Request{Resource: t.resource}
	residual := query.Partition(sel.Where, equalities(func(col, val string) bool {
		if col != "symbol" {
			return false
		}
		req.Symbol = val
		return true
	}))
	return &Plan{Table: t.name, Request: req, Residual: residual}, nil
}

// Select implements Table.
func (t *FundTable) Select(ctx context.Context, sel *query.Select) (*query.Result, *Plan, error) {
	p, err := t.Plan(sel)
	if err != nil {
		return nil, nil, err
	}
	res, err := t.run(ctx, sel, p, nil)
	return res, p, err
}

// Columns implements Table.
func (t *FundTable) Columns(ctx context.Context) ([]string, error) {
	return t.discover(ctx, vnstock.Request{Resource: t.resource, Symbol: sampleFundSymbol}, nil)
}

// FundListTable serves the fund listing.
type FundListTable struct {
	base
}

var _ Table = (*FundListTable)(nil)

// NewFundListTable creates the fund listing table.
func NewFundListTable(name string, r vnstock.Resource, deps Deps) (*FundListTable, error) {
	b, err := newBase(name, FamilyFundList, r, resourceSet(vnstock.FundListing), deps)
	if err != nil {
		return nil, err
	}
	return &FundListTable{base: b}, nil
}

// Pushdown implements Table.
func (t *FundListTable) Pushdown() []string { return []string{"fund_type"} }

// Plan implements Table.
func (t *FundListTable) Plan(sel *query.Select) (*Plan, error) {
	req := vnstock.Request{Resource: t.resource, Args: map[string]string{}}
	residual := query.Partition(sel.Where, equalities(func(col, val string) bool {
		if col != "fund_type" {
			return false
		}
		req.Args["fund_type"] = val
		return true
	}))
	return &Plan{Table: t.name, Request: req, Residual: residual}, nil
}

// Select implements Table.
func (t *FundListTable) Select(ctx context.Context, sel *query.Select) (*query.Result, *Plan, error) {
	p, err := t.Plan(sel)
	if err != nil {
		return nil, nil, err
	}
	res, err := t.run(ctx, sel, p, nil)
	return res, p, err
}

// Columns implements Table.
func (t *FundListTable) Columns(ctx context.Context) ([]string, error) {
	return t.discover(ctx, vnstock.Request{Resource: t.resource}, nil)
}
