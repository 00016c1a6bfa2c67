package tables

import (
	"context"

	"github.com/txn2/mcp-vnstock/pkg/query"
	"github.com/txn2/mcp-vnstock/pkg/vnstock"
)

const defaultQuoteSource = "TCBS"

// QuoteColumns is the fixed schema of every quote history table.
var QuoteColumns = []string{"time", "open", "high", "low", "close", "volume"}

var quoteArgs = map[string]bool{"interval": true, "page_size": true, "last_time": true}

var quoteResources = resourceSet(
	vnstock.StockQuoteHistory,
	vnstock.FXQuoteHistory,
	vnstock.CryptoQuoteHistory,
	vnstock.WorldIndexQuoteHistory,
)

// QuoteTable serves time-series quote history.
type QuoteTable struct {
	base
}

var _ Table = (*QuoteTable)(nil)

// NewQuoteTable creates a quote history table.
func NewQuoteTable(name string, r vnstock.Resource, deps Deps) (*QuoteTable, error) {
	b, err := newBase(name, FamilyQuote, r, quoteResources, deps)
	if err != nil {
		return nil, err
	}
	return &QuoteTable{base: b}, nil
}

// Pushdown implements Table.
func (t *QuoteTable) Pushdown() []string {
	return []string{"symbol", "data_source", "date_start", "start", "date_end", "end", "interval", "page_size", "last_time"}
}

// Plan implements Table. date_start and start both set start_date, and
// date_end and end both set end_date; the last one in the statement wins.
func (t *QuoteTable) Plan(sel *query.Select) (*Plan, error) {
	req := vnstock.Request{Resource: t.resource, Source: defaultQuoteSource, Args: map[string]string{}}
	residual := query.Partition(sel.Where, equalities(func(col, val string) bool {
		switch {
		case col == "symbol":
			req.Symbol = val
		case col == "data_source":
			req.Source = val
		case col == "date_start" || col == "start":
			req.Args["start_date"] = val
		case col == "date_end" || col == "end":
			req.Args["end_date"] = val
		case quoteArgs[col]:
			req.Args[col] = val
		default:
			return false
		}
		return true
	}))
	return &Plan{Table: t.name, Request: req, Residual: residual}, nil
}

// Select implements Table.
func (t *QuoteTable) Select(ctx context.Context, sel *query.Select) (*query.Result, *Plan, error) {
	p, err := t.Plan(sel)
	if err != nil {
		return nil, nil, err
	}
	res, err := t.run(ctx, sel, p, nil)
	return res, p, err
}

// Columns implements Table. The schema is fixed, so nothing is fetched.
func (t *QuoteTable) Columns(context.Context) ([]string, error) {
	return append([]string(nil), QuoteColumns...), nil
}
