package query

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// toDecimal converts numeric values, and strings that hold a number, to a
// decimal.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case int64:
		return decimal.NewFromInt(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case float64:
		return decimal.NewFromFloat(x), true
	case decimal.Decimal:
		return x, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}

// Compare orders two non-nil values. Values that both read as numbers are
// compared numerically; anything else compares by its string form.
func Compare(a, b any) int {
	if da, ok := toDecimal(a); ok {
		if db, ok := toDecimal(b); ok {
			return da.Cmp(db)
		}
	}
	return strings.Compare(text(a), text(b))
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if d, ok := v.(decimal.Decimal); ok {
		return d.String()
	}
	return fmt.Sprint(v)
}
