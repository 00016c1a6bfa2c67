// Package query parses single-table SELECT statements and applies residual
// filtering, ordering, paging and projection to fetched rows.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinel errors.
var (
	// ErrInvalidQuery is returned when the statement cannot be parsed.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnsupported is returned for valid SQL outside the supported subset.
	ErrUnsupported = errors.New("unsupported query")

	// ErrUnknownColumn is returned when a residual predicate, ordering or
	// projection names a column the fetched table does not have.
	ErrUnknownColumn = errors.New("unknown column")
)

// Op is a predicate operator.
type Op string

// Supported operators.
const (
	OpEq         Op = "="
	OpNe         Op = "!="
	OpLt         Op = "<"
	OpLe         Op = "<="
	OpGt         Op = ">"
	OpGe         Op = ">="
	OpIn         Op = "in"
	OpNotIn      Op = "not in"
	OpLike       Op = "like"
	OpNotLike    Op = "not like"
	OpBetween    Op = "between"
	OpNotBetween Op = "not between"
	OpIsNull     Op = "is null"
	OpIsNotNull  Op = "is not null"
)

// Predicate is one WHERE condition as an (operator, column, value) triple.
// Value is a scalar for comparisons, a []any for IN lists and a two-element
// []any for BETWEEN. It is nil for IS NULL checks.
type Predicate struct {
	Op     Op     `json:"op"`
	Column string `json:"column"`
	Value  any    `json:"value,omitempty"`
}

// String renders the predicate as SQL.
func (p Predicate) String() string {
	switch p.Op {
	case OpIsNull, OpIsNotNull:
		return p.Column + " " + string(p.Op)
	case OpIn, OpNotIn:
		items, _ := p.Value.([]any)
		parts := make([]string, len(items))
		for i, v := range items {
			parts[i] = Literal(v)
		}
		return fmt.Sprintf("%s %s (%s)", p.Column, p.Op, strings.Join(parts, ", "))
	case OpBetween, OpNotBetween:
		bounds, _ := p.Value.([]any)
		if len(bounds) == 2 {
			return fmt.Sprintf("%s %s %s and %s", p.Column, p.Op, Literal(bounds[0]), Literal(bounds[1]))
		}
	}
	return fmt.Sprintf("%s %s %s", p.Column, p.Op, Literal(p.Value))
}

// Column is one projected column with its optional alias.
type Column struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

// OutputName returns the alias when set, otherwise the column name.
func (c Column) OutputName() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}

// Order is one ORDER BY key.
type Order struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// Select is a parsed single-table SELECT.
type Select struct {
	Table     string `json:"table"`
	Qualifier string `json:"qualifier,omitempty"`

	// Columns is empty for SELECT *.
	Columns []Column    `json:"columns,omitempty"`
	Where   []Predicate `json:"where,omitempty"`
	OrderBy []Order     `json:"order_by,omitempty"`
	Limit   *int        `json:"limit,omitempty"`
	Offset  int         `json:"offset,omitempty"`
}

// Shape returns the post-fetch shaping for this statement with the given
// residual predicates.
func (s *Select) Shape(residual []Predicate) Shape {
	return Shape{
		Columns: s.Columns,
		Where:   residual,
		OrderBy: s.OrderBy,
		Limit:   s.Limit,
		Offset:  s.Offset,
	}
}

// Result is a shaped result table.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Count   int      `json:"count"`
}

// FormatValue renders a literal as a plain string for use as a request
// parameter.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case decimal.Decimal:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Literal renders a value as a SQL literal.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	default:
		return FormatValue(x)
	}
}
