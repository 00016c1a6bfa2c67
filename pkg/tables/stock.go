package tables

import (
	"context"

	"github.com/txn2/mcp-vnstock/pkg/query"
	"github.com/txn2/mcp-vnstock/pkg/vnstock"
)

const (
	defaultStockSource = "VCI"
	sampleStockSymbol  = "VCI"
	sampleStockSource  = "TCBS"
)

// stockArgs are forwarded upstream under their own name.
var stockArgs = []string{
	"period", "lang", "dropna", "start", "end", "interval", "page_size",
	"last_time", "time", "price", "volume", "match_type", "symbols_list", "date",
}

var stockResources = resourceSet(
	vnstock.StockListingAllSymbols,
	vnstock.StockListingSymbolsByExchange,
	vnstock.StockListingSymbolsByIndustries,
	vnstock.StockCompanyOverview,
	vnstock.StockCompanyProfile,
	vnstock.StockCompanyShareholders,
	vnstock.StockCompanyOfficers,
	vnstock.StockCompanySubsidiaries,
	vnstock.StockCompanyDividends,
	vnstock.StockCompanyInsiderDeals,
	vnstock.StockCompanyEvents,
	vnstock.StockCompanyNews,
	vnstock.StockFinanceIncomeStatement,
	vnstock.StockFinanceBalanceSheet,
	vnstock.StockFinanceCashFlow,
	vnstock.StockFinanceRatio,
	vnstock.StockQuoteIntraday,
)

// StockTable serves listing, company, finance and intraday resources.
type StockTable struct {
	base
	args map[string]bool
}

var _ Table = (*StockTable)(nil)

// NewStockTable creates a stock table.
func NewStockTable(name string, r vnstock.Resource, deps Deps) (*StockTable, error) {
	b, err := newBase(name, FamilyStock, r, stockResources, deps)
	if err != nil {
		return nil, err
	}
	args := make(map[string]bool, len(stockArgs))
	for _, a := range stockArgs {
		args[a] = true
	}
	return &StockTable{base: b, args: args}, nil
}

// Pushdown implements Table.
func (t *StockTable) Pushdown() []string {
	return append([]string{"symbol", "data_source"}, stockArgs...)
}

// Plan implements Table.
func (t *StockTable) Plan(sel *query.Select) (*Plan, error) {
	req := vnstock.Request{Resource: t.resource, Source: defaultStockSource, Args: map[string]string{}}
	residual := query.Partition(sel.Where, equalities(func(col, val string) bool {
		switch {
		case col == "symbol":
			req.Symbol = val
		case col == "data_source":
			req.Source = val
		case t.args[col]:
			req.Args[col] = val
		default:
			return false
		}
		return true
	}))
	return &Plan{Table: t.name, Request: req, Residual: residual}, nil
}

// Select implements Table.
func (t *StockTable) Select(ctx context.Context, sel *query.Select) (*query.Result, *Plan, error) {
	p, err := t.Plan(sel)
	if err != nil {
		return nil, nil, err
	}
	res, err := t.run(ctx, sel, p, nil)
	return res, p, err
}

// Columns implements Table.
func (t *StockTable) Columns(ctx context.Context) ([]string, error) {
	return t.discover(ctx, t.sample(), nil)
}

// sample is the request used for column discovery. The ratio endpoint is
// only served by the VCI source.
func (t *StockTable) sample() vnstock.Request {
	source := sampleStockSource
	if t.resource == vnstock.StockFinanceRatio {
		source = defaultStockSource
	}
	return vnstock.Request{Resource: t.resource, Symbol: sampleStockSymbol, Source: source}
}
