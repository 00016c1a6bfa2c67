package query

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fundColumns = []string{"short_name", "fund_type", "nav", "owner"}

func fundRows() [][]any {
	return [][]any{
		{"SSISCA", "STOCK", 31000.5, "SSI"},
		{"VESAF", "STOCK", int64(24000), "VinaCapital"},
		{"DCBF", "BOND", int64(26000), nil},
		{"TCBF", "BOND", 14000.25, "Techcom"},
		{"VFF", "BALANCED", int64(19000), "VinaCapital"},
	}
}

func names(r *Result) []any {
	out := make([]any, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row[0]
	}
	return out
}

func TestExecute_Filters(t *testing.T) {
	tests := []struct {
		name  string
		where []Predicate
		want  []any
	}{
		{
			name:  "no residual",
			where: nil,
			want:  []any{"SSISCA", "VESAF", "DCBF", "TCBF", "VFF"},
		},
		{
			name:  "equality",
			where: []Predicate{{Op: OpEq, Column: "fund_type", Value: "BOND"}},
			want:  []any{"DCBF", "TCBF"},
		},
		{
			name:  "numeric greater than across int and float",
			where: []Predicate{{Op: OpGt, Column: "nav", Value: int64(20000)}},
			want:  []any{"SSISCA", "VESAF", "DCBF"},
		},
		{
			name:  "numeric string literal compares numerically",
			where: []Predicate{{Op: OpLe, Column: "nav", Value: "19000"}},
			want:  []any{"TCBF", "VFF"},
		},
		{
			name:  "in",
			where: []Predicate{{Op: OpIn, Column: "short_name", Value: []any{"VFF", "DCBF", "NOPE"}}},
			want:  []any{"DCBF", "VFF"},
		},
		{
			name:  "not in",
			where: []Predicate{{Op: OpNotIn, Column: "fund_type", Value: []any{"STOCK", "BOND"}}},
			want:  []any{"VFF"},
		},
		{
			name:  "like is case insensitive",
			where: []Predicate{{Op: OpLike, Column: "owner", Value: "vina%"}},
			want:  []any{"VESAF", "VFF"},
		},
		{
			name:  "like underscore",
			where: []Predicate{{Op: OpLike, Column: "short_name", Value: "_CBF"}},
			want:  []any{"DCBF", "TCBF"},
		},
		{
			name:  "not like skips nulls",
			where: []Predicate{{Op: OpNotLike, Column: "owner", Value: "vina%"}},
			want:  []any{"SSISCA", "TCBF"},
		},
		{
			name:  "between",
			where: []Predicate{{Op: OpBetween, Column: "nav", Value: []any{int64(14000), int64(24000)}}},
			want:  []any{"VESAF", "TCBF", "VFF"},
		},
		{
			name:  "not between",
			where: []Predicate{{Op: OpNotBetween, Column: "nav", Value: []any{int64(14000), int64(24000)}}},
			want:  []any{"SSISCA", "DCBF"},
		},
		{
			name:  "is null",
			where: []Predicate{{Op: OpIsNull, Column: "owner"}},
			want:  []any{"DCBF"},
		},
		{
			name:  "is not null",
			where: []Predicate{{Op: OpIsNotNull, Column: "owner"}, {Op: OpEq, Column: "fund_type", Value: "BOND"}},
			want:  []any{"TCBF"},
		},
		{
			name:  "comparison against null matches nothing",
			where: []Predicate{{Op: OpEq, Column: "owner", Value: nil}},
			want:  []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Execute(fundColumns, fundRows(), Shape{Where: tt.where})
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(res))
			assert.Equal(t, len(tt.want), res.Count)
		})
	}
}

func TestExecute_OrderLimitProject(t *testing.T) {
	res, err := Execute(fundColumns, fundRows(), Shape{
		Columns: []Column{{Name: "short_name", Alias: "fund"}, {Name: "nav"}},
		OrderBy: []Order{{Column: "nav", Desc: true}},
		Limit:   intPtr(2),
		Offset:  1,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"fund", "nav"}, res.Columns)
	assert.Equal(t, [][]any{{"DCBF", int64(26000)}, {"VESAF", int64(24000)}}, res.Rows)
	assert.Equal(t, 2, res.Count)
}

func TestExecute_OrderNullsFirstAndTiesStable(t *testing.T) {
	res, err := Execute(fundColumns, fundRows(), Shape{
		OrderBy: []Order{{Column: "owner"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"DCBF", "SSISCA", "TCBF", "VESAF", "VFF"}, names(res))
}

func TestExecute_MultiKeyOrder(t *testing.T) {
	res, err := Execute(fundColumns, fundRows(), Shape{
		OrderBy: []Order{{Column: "fund_type"}, {Column: "nav", Desc: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"VFF", "DCBF", "TCBF", "SSISCA", "VESAF"}, names(res))
}

func TestExecute_Paging(t *testing.T) {
	tests := []struct {
		name   string
		limit  *int
		offset int
		want   int
	}{
		{name: "limit zero", limit: intPtr(0), want: 0},
		{name: "limit beyond rows", limit: intPtr(50), want: 5},
		{name: "offset beyond rows", offset: 9, want: 0},
		{name: "offset only", offset: 3, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Execute(fundColumns, fundRows(), Shape{Limit: tt.limit, Offset: tt.offset})
			require.NoError(t, err)
			assert.Len(t, res.Rows, tt.want)
		})
	}
}

func TestExecute_UnknownColumn(t *testing.T) {
	shapes := map[string]Shape{
		"predicate":  {Where: []Predicate{{Op: OpEq, Column: "nope", Value: "x"}}},
		"order":      {OrderBy: []Order{{Column: "nope"}}},
		"projection": {Columns: []Column{{Name: "nope"}}},
	}
	for name, s := range shapes {
		t.Run(name, func(t *testing.T) {
			_, err := Execute(fundColumns, fundRows(), s)
			assert.ErrorIs(t, err, ErrUnknownColumn)
		})
	}
}

func TestExecute_EmptyUpstream(t *testing.T) {
	res, err := Execute(nil, nil, Shape{
		Columns: []Column{{Name: "symbol"}},
		Where:   []Predicate{{Op: OpEq, Column: "anything", Value: "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"symbol"}, res.Columns)
	assert.Empty(t, res.Rows)
}

func TestExecute_DoesNotAliasInput(t *testing.T) {
	rows := fundRows()
	res, err := Execute(fundColumns, rows, Shape{})
	require.NoError(t, err)

	res.Rows[0][0] = "CHANGED"
	assert.Equal(t, "SSISCA", rows[0][0])
}

func TestExecute_DecimalCells(t *testing.T) {
	cols := []string{"currency_code", "sell"}
	rows := [][]any{
		{"USD", decimal.RequireFromString("24580.00")},
		{"EUR", decimal.RequireFromString("27120.5")},
	}
	res, err := Execute(cols, rows, Shape{
		Where: []Predicate{{Op: OpGt, Column: "sell", Value: int64(25000)}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"EUR"}, names(res))
}

func TestExecute_BadPredicateValues(t *testing.T) {
	bad := []Predicate{
		{Op: OpIn, Column: "nav", Value: "not a list"},
		{Op: OpBetween, Column: "nav", Value: []any{int64(1)}},
		{Op: OpLike, Column: "owner", Value: int64(3)},
		{Op: Op("~"), Column: "owner", Value: "x"},
	}
	for _, p := range bad {
		_, err := Execute(fundColumns, fundRows(), Shape{Where: []Predicate{p}})
		assert.Error(t, err, p.String())
	}
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, Compare(int64(5), 5.0))
	assert.Equal(t, -1, Compare("2024-01-01", "2024-01-02"))
	assert.Equal(t, 1, Compare("10", int64(9)))
	assert.Equal(t, 1, Compare("b", "a"))
	assert.Equal(t, 0, Compare(true, "true"))
}
