package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Shape is the post-fetch work left after pushdown: residual predicates,
// ordering, paging and projection.
type Shape struct {
	Columns []Column
	Where   []Predicate
	OrderBy []Order
	Limit   *int
	Offset  int
}

// Execute applies a shape to an in-memory table. Rows are filtered, then
// sorted, then paged, then projected.
func Execute(columns []string, rows [][]any, shape Shape) (*Result, error) {
	if len(columns) == 0 {
		// Nothing came back upstream, so there is no schema to check against.
		return &Result{Columns: outputNames(shape.Columns), Rows: [][]any{}}, nil
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	lookup := func(name string) (int, error) {
		i, ok := index[name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		return i, nil
	}

	filters := make([]matcher, 0, len(shape.Where))
	for _, p := range shape.Where {
		i, err := lookup(p.Column)
		if err != nil {
			return nil, err
		}
		m, err := compile(p, i)
		if err != nil {
			return nil, err
		}
		filters = append(filters, m)
	}

	keys := make([]sortKey, 0, len(shape.OrderBy))
	for _, o := range shape.OrderBy {
		i, err := lookup(o.Column)
		if err != nil {
			return nil, err
		}
		keys = append(keys, sortKey{index: i, desc: o.Desc})
	}

	outCols := columns
	var pick []int
	if len(shape.Columns) > 0 {
		outCols = outputNames(shape.Columns)
		pick = make([]int, len(shape.Columns))
		for j, c := range shape.Columns {
			i, err := lookup(c.Name)
			if err != nil {
				return nil, err
			}
			pick[j] = i
		}
	}

	kept := make([][]any, 0, len(rows))
	for _, row := range rows {
		if matchAll(filters, row) {
			kept = append(kept, row)
		}
	}

	if len(keys) > 0 {
		sort.SliceStable(kept, func(a, b int) bool {
			return less(keys, kept[a], kept[b])
		})
	}

	kept = page(kept, shape.Offset, shape.Limit)

	out := make([][]any, len(kept))
	for r, row := range kept {
		if pick == nil {
			out[r] = append([]any(nil), row...)
			continue
		}
		projected := make([]any, len(pick))
		for j, i := range pick {
			projected[j] = row[i]
		}
		out[r] = projected
	}

	return &Result{
		Columns: append([]string(nil), outCols...),
		Rows:    out,
		Count:   len(out),
	}, nil
}

func outputNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.OutputName()
	}
	return names
}

func page(rows [][]any, offset int, limit *int) [][]any {
	if offset > 0 {
		if offset >= len(rows) {
			return rows[:0]
		}
		rows = rows[offset:]
	}
	if limit != nil && *limit < len(rows) {
		rows = rows[:*limit]
	}
	return rows
}

type sortKey struct {
	index int
	desc  bool
}

// less orders nulls first in ascending order.
func less(keys []sortKey, a, b []any) bool {
	for _, k := range keys {
		c := compareNullable(a[k.index], b[k.index])
		if c == 0 {
			continue
		}
		if k.desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compareNullable(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return Compare(a, b)
	}
}

type matcher func(row []any) bool

func matchAll(ms []matcher, row []any) bool {
	for _, m := range ms {
		if !m(row) {
			return false
		}
	}
	return true
}

// compile builds a row matcher. A null cell satisfies only IS NULL.
func compile(p Predicate, i int) (matcher, error) {
	switch p.Op {
	case OpIsNull:
		return func(row []any) bool { return row[i] == nil }, nil
	case OpIsNotNull:
		return func(row []any) bool { return row[i] != nil }, nil
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		if p.Value == nil {
			return func([]any) bool { return false }, nil
		}
		test := comparators[p.Op]
		return nonNull(i, func(cell any) bool { return test(Compare(cell, p.Value)) }), nil
	case OpIn, OpNotIn:
		items, ok := p.Value.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a value list", ErrInvalidQuery, p.Op)
		}
		want := p.Op == OpIn
		return nonNull(i, func(cell any) bool {
			for _, v := range items {
				if v != nil && Compare(cell, v) == 0 {
					return want
				}
			}
			return !want
		}), nil
	case OpBetween, OpNotBetween:
		bounds, ok := p.Value.([]any)
		if !ok || len(bounds) != 2 || bounds[0] == nil || bounds[1] == nil {
			return nil, fmt.Errorf("%w: %s needs two bounds", ErrInvalidQuery, p.Op)
		}
		want := p.Op == OpBetween
		return nonNull(i, func(cell any) bool {
			in := Compare(cell, bounds[0]) >= 0 && Compare(cell, bounds[1]) <= 0
			return in == want
		}), nil
	case OpLike, OpNotLike:
		pattern, ok := p.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a string pattern", ErrInvalidQuery, p.Op)
		}
		re, err := likePattern(pattern)
		if err != nil {
			return nil, err
		}
		want := p.Op == OpLike
		return nonNull(i, func(cell any) bool {
			return re.MatchString(text(cell)) == want
		}), nil
	default:
		return nil, fmt.Errorf("%w: operator %q", ErrUnsupported, p.Op)
	}
}

func nonNull(i int, test func(any) bool) matcher {
	return func(row []any) bool {
		cell := row[i]
		if cell == nil {
			return false
		}
		return test(cell)
	}
}

var comparators = map[Op]func(int) bool{
	OpEq: func(c int) bool { return c == 0 },
	OpNe: func(c int) bool { return c != 0 },
	OpLt: func(c int) bool { return c < 0 },
	OpLe: func(c int) bool { return c <= 0 },
	OpGt: func(c int) bool { return c > 0 },
	OpGe: func(c int) bool { return c >= 0 },
}

// likePattern translates a SQL LIKE pattern into a case-insensitive regexp.
func likePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`(?is)^`)
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(`.*`)
		case '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: LIKE pattern %q: %w", ErrInvalidQuery, pattern, err)
	}
	return re, nil
}
