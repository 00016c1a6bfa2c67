package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// Parse parses a single-table SELECT.
//
// The WHERE clause must be a conjunction of simple conditions. OR and NOT
// are rejected. The pushdown columns end and interval are reserved words in
// the SQL grammar and may be written with or without backticks.
func Parse(sql string) (*Select, error) {
	stmt, err := sqlparser.Parse(quoteReservedColumns(sql))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, fmt.Errorf("%w: only SELECT statements are supported", ErrUnsupported)
	}
	if sel.Distinct != "" || len(sel.GroupBy) > 0 || sel.Having != nil {
		return nil, fmt.Errorf("%w: DISTINCT, GROUP BY and HAVING are not supported", ErrUnsupported)
	}

	out := &Select{}
	if err := parseFrom(sel.From, out); err != nil {
		return nil, err
	}
	if out.Columns, err = parseColumns(sel.SelectExprs); err != nil {
		return nil, err
	}
	if sel.Where != nil {
		if err := collectPredicates(sel.Where.Expr, &out.Where); err != nil {
			return nil, err
		}
	}
	if out.OrderBy, err = parseOrder(sel.OrderBy); err != nil {
		return nil, err
	}
	if err := parseLimit(sel.Limit, out); err != nil {
		return nil, err
	}
	return out, nil
}

// reservedColumns are column names the grammar treats as keywords.
var reservedColumns = map[string]bool{"end": true, "interval": true}

// quoteReservedColumns wraps bare occurrences of reservedColumns in
// backticks. Quoted strings and identifiers are copied unchanged.
func quoteReservedColumns(sql string) string {
	var b strings.Builder
	b.Grow(len(sql) + 8)
	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j := skipQuoted(sql, i)
			b.WriteString(sql[i:j])
			i = j
		case isIdentByte(c):
			j := i
			for j < len(sql) && isIdentByte(sql[j]) {
				j++
			}
			word := sql[i:j]
			if reservedColumns[strings.ToLower(word)] {
				b.WriteByte('`')
				b.WriteString(word)
				b.WriteByte('`')
			} else {
				b.WriteString(word)
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// skipQuoted returns the index just past the quoted run starting at i.
// A doubled quote or a backslash escape does not end the run.
func skipQuoted(sql string, i int) int {
	q := sql[i]
	j := i + 1
	for j < len(sql) {
		switch {
		case sql[j] == '\\' && q != '`':
			j += 2
		case sql[j] == q && j+1 < len(sql) && sql[j+1] == q:
			j += 2
		case sql[j] == q:
			return j + 1
		default:
			j++
		}
	}
	return len(sql)
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func parseFrom(from sqlparser.TableExprs, out *Select) error {
	if len(from) != 1 {
		return fmt.Errorf("%w: exactly one table is required", ErrUnsupported)
	}
	aliased, ok := from[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return fmt.Errorf("%w: joins are not supported", ErrUnsupported)
	}
	tn, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return fmt.Errorf("%w: subqueries are not supported", ErrUnsupported)
	}
	out.Table = tn.Name.String()
	if !tn.Qualifier.IsEmpty() {
		out.Qualifier = tn.Qualifier.String()
	}
	return nil
}

func parseColumns(exprs sqlparser.SelectExprs) ([]Column, error) {
	var cols []Column
	for _, e := range exprs {
		switch x := e.(type) {
		case *sqlparser.StarExpr:
			if len(exprs) > 1 {
				return nil, fmt.Errorf("%w: * cannot be combined with other columns", ErrUnsupported)
			}
			return nil, nil
		case *sqlparser.AliasedExpr:
			col, ok := x.Expr.(*sqlparser.ColName)
			if !ok {
				return nil, fmt.Errorf("%w: only plain column references can be selected, got %s",
					ErrUnsupported, sqlparser.String(x.Expr))
			}
			c := Column{Name: col.Name.String()}
			if !x.As.IsEmpty() {
				c.Alias = x.As.String()
			}
			cols = append(cols, c)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, sqlparser.String(e))
		}
	}
	return cols, nil
}

// collectPredicates flattens a conjunction into predicates.
func collectPredicates(expr sqlparser.Expr, out *[]Predicate) error {
	switch x := expr.(type) {
	case *sqlparser.AndExpr:
		if err := collectPredicates(x.Left, out); err != nil {
			return err
		}
		return collectPredicates(x.Right, out)
	case *sqlparser.ParenExpr:
		return collectPredicates(x.Expr, out)
	case *sqlparser.OrExpr:
		return fmt.Errorf("%w: OR conditions", ErrUnsupported)
	case *sqlparser.NotExpr:
		return fmt.Errorf("%w: NOT conditions", ErrUnsupported)
	case *sqlparser.ComparisonExpr:
		p, err := comparison(x)
		if err != nil {
			return err
		}
		*out = append(*out, p)
		return nil
	case *sqlparser.RangeCond:
		p, err := rangeCond(x)
		if err != nil {
			return err
		}
		*out = append(*out, p)
		return nil
	case *sqlparser.IsExpr:
		p, err := isCond(x)
		if err != nil {
			return err
		}
		*out = append(*out, p)
		return nil
	default:
		return fmt.Errorf("%w: condition %s", ErrUnsupported, sqlparser.String(expr))
	}
}

var comparisonOps = map[string]Op{
	sqlparser.EqualStr:        OpEq,
	sqlparser.NotEqualStr:     OpNe,
	sqlparser.LessThanStr:     OpLt,
	sqlparser.LessEqualStr:    OpLe,
	sqlparser.GreaterThanStr:  OpGt,
	sqlparser.GreaterEqualStr: OpGe,
	sqlparser.InStr:           OpIn,
	sqlparser.NotInStr:        OpNotIn,
	sqlparser.LikeStr:         OpLike,
	sqlparser.NotLikeStr:      OpNotLike,
}

// mirrored maps an operator to its equivalent with operands swapped.
var mirrored = map[Op]Op{
	OpEq: OpEq,
	OpNe: OpNe,
	OpLt: OpGt,
	OpLe: OpGe,
	OpGt: OpLt,
	OpGe: OpLe,
}

func comparison(x *sqlparser.ComparisonExpr) (Predicate, error) {
	op, ok := comparisonOps[x.Operator]
	if !ok {
		return Predicate{}, fmt.Errorf("%w: operator %q", ErrUnsupported, x.Operator)
	}

	colExpr, valExpr := x.Left, x.Right
	col, ok := colExpr.(*sqlparser.ColName)
	if !ok {
		// 'ACB' = symbol
		col, ok = valExpr.(*sqlparser.ColName)
		swapped, canSwap := mirrored[op]
		if !ok || !canSwap {
			return Predicate{}, fmt.Errorf("%w: condition %s needs a column on the left",
				ErrUnsupported, sqlparser.String(x))
		}
		op, valExpr = swapped, colExpr
	}

	var (
		val any
		err error
	)
	if op == OpIn || op == OpNotIn {
		val, err = tuple(valExpr)
	} else {
		val, err = literal(valExpr)
	}
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Op: op, Column: col.Name.String(), Value: val}, nil
}

func rangeCond(x *sqlparser.RangeCond) (Predicate, error) {
	col, ok := x.Left.(*sqlparser.ColName)
	if !ok {
		return Predicate{}, fmt.Errorf("%w: condition %s needs a column on the left",
			ErrUnsupported, sqlparser.String(x))
	}
	from, err := literal(x.From)
	if err != nil {
		return Predicate{}, err
	}
	to, err := literal(x.To)
	if err != nil {
		return Predicate{}, err
	}

	op := OpBetween
	if x.Operator == sqlparser.NotBetweenStr {
		op = OpNotBetween
	}
	return Predicate{Op: op, Column: col.Name.String(), Value: []any{from, to}}, nil
}

func isCond(x *sqlparser.IsExpr) (Predicate, error) {
	col, ok := x.Expr.(*sqlparser.ColName)
	if !ok {
		return Predicate{}, fmt.Errorf("%w: condition %s", ErrUnsupported, sqlparser.String(x))
	}
	switch x.Operator {
	case sqlparser.IsNullStr:
		return Predicate{Op: OpIsNull, Column: col.Name.String()}, nil
	case sqlparser.IsNotNullStr:
		return Predicate{Op: OpIsNotNull, Column: col.Name.String()}, nil
	default:
		return Predicate{}, fmt.Errorf("%w: operator %q", ErrUnsupported, x.Operator)
	}
}

func tuple(expr sqlparser.Expr) ([]any, error) {
	vt, ok := expr.(sqlparser.ValTuple)
	if !ok {
		return nil, fmt.Errorf("%w: IN requires a value list", ErrUnsupported)
	}
	out := make([]any, 0, len(vt))
	for _, e := range vt {
		v, err := literal(e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// literal converts a constant expression to a Go value: string, int64,
// float64, bool or nil.
func literal(expr sqlparser.Expr) (any, error) {
	switch x := expr.(type) {
	case *sqlparser.SQLVal:
		switch x.Type {
		case sqlparser.StrVal:
			return string(x.Val), nil
		case sqlparser.IntVal:
			n, err := strconv.ParseInt(string(x.Val), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: integer %s: %w", ErrInvalidQuery, x.Val, err)
			}
			return n, nil
		case sqlparser.FloatVal:
			f, err := strconv.ParseFloat(string(x.Val), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: number %s: %w", ErrInvalidQuery, x.Val, err)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("%w: literal %s", ErrUnsupported, sqlparser.String(x))
		}
	case *sqlparser.NullVal:
		return nil, nil
	case sqlparser.BoolVal:
		return bool(x), nil
	case *sqlparser.UnaryExpr:
		if x.Operator != sqlparser.UMinusStr {
			break
		}
		v, err := literal(x.Expr)
		if err != nil {
			return nil, err
		}
		switch n := v.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		}
	}
	return nil, fmt.Errorf("%w: value %s must be a literal", ErrUnsupported, sqlparser.String(expr))
}

func parseOrder(orderBy sqlparser.OrderBy) ([]Order, error) {
	if len(orderBy) == 0 {
		return nil, nil
	}
	out := make([]Order, 0, len(orderBy))
	for _, o := range orderBy {
		col, ok := o.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, fmt.Errorf("%w: ORDER BY %s", ErrUnsupported, sqlparser.String(o.Expr))
		}
		out = append(out, Order{Column: col.Name.String(), Desc: o.Direction == sqlparser.DescScr})
	}
	return out, nil
}

func parseLimit(limit *sqlparser.Limit, out *Select) error {
	if limit == nil {
		return nil
	}
	if limit.Rowcount != nil {
		n, err := nonNegativeInt(limit.Rowcount)
		if err != nil {
			return err
		}
		out.Limit = &n
	}
	if limit.Offset != nil {
		n, err := nonNegativeInt(limit.Offset)
		if err != nil {
			return err
		}
		out.Offset = n
	}
	return nil
}

func nonNegativeInt(expr sqlparser.Expr) (int, error) {
	v, err := literal(expr)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok || n < 0 {
		return 0, fmt.Errorf("%w: LIMIT and OFFSET must be non-negative integers", ErrInvalidQuery)
	}
	return int(n), nil
}
