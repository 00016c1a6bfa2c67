package tables

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/txn2/mcp-vnstock/pkg/query"
	"github.com/txn2/mcp-vnstock/pkg/vnstock"
)

// DateLayout is the date format the exchange-rate endpoint expects.
const DateLayout = "2006-01-02"

// groupedNumber matches amounts with thousands separators, e.g. "24,580.00".
var groupedNumber = regexp.MustCompile(`^-?\d{1,3}(,\d{3})*(\.\d+)?$|^-?\d+(\.\d+)?$`)

// ExchangeRateTable serves the daily VCB exchange-rate board.
type ExchangeRateTable struct {
	base
}

var _ Table = (*ExchangeRateTable)(nil)

// NewExchangeRateTable creates the exchange-rate table.
func NewExchangeRateTable(name string, r vnstock.Resource, deps Deps) (*ExchangeRateTable, error) {
	b, err := newBase(name, FamilyExchangeRate, r, resourceSet(vnstock.ExchangeRateVCB), deps)
	if err != nil {
		return nil, err
	}
	return &ExchangeRateTable{base: b}, nil
}

// Pushdown implements Table.
func (t *ExchangeRateTable) Pushdown() []string { return []string{"date"} }

// Plan implements Table. Without a date predicate the current date is used.
func (t *ExchangeRateTable) Plan(sel *query.Select) (*Plan, error) {
	req := t.request(t.today())
	residual := query.Partition(sel.Where, equalities(func(col, val string) bool {
		if col != "date" {
			return false
		}
		req.Args["date"] = val
		return true
	}))
	return &Plan{Table: t.name, Request: req, Residual: residual}, nil
}

// Select implements Table.
func (t *ExchangeRateTable) Select(ctx context.Context, sel *query.Select) (*query.Result, *Plan, error) {
	p, err := t.Plan(sel)
	if err != nil {
		return nil, nil, err
	}
	res, err := t.run(ctx, sel, p, normalizeAmounts)
	return res, p, err
}

// Columns implements Table.
func (t *ExchangeRateTable) Columns(ctx context.Context) ([]string, error) {
	return t.discover(ctx, t.request(t.today()), normalizeAmounts)
}

func (t *ExchangeRateTable) today() string {
	return t.deps.Now().Format(DateLayout)
}

func (t *ExchangeRateTable) request(date string) vnstock.Request {
	return vnstock.Request{Resource: t.resource, Args: map[string]string{"date": date}}
}

// normalizeAmounts replaces formatted numeric strings with decimals so
// residual comparisons and ordering are numeric.
func normalizeAmounts(f *vnstock.Frame) {
	for _, row := range f.Rows {
		for i, cell := range row {
			s, ok := cell.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			if !groupedNumber.MatchString(s) {
				continue
			}
			d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
			if err != nil {
				continue
			}
			row[i] = d
		}
	}
}
