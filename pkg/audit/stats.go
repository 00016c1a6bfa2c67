package audit

import "time"

// BreakdownDimension is a column audit events can be grouped by.
type BreakdownDimension string

const (
	// BreakdownByTable groups by queried table.
	BreakdownByTable BreakdownDimension = "table_name"

	// BreakdownByTransport groups by MCP transport.
	BreakdownByTransport BreakdownDimension = "transport"
)

// ValidBreakdownDimensions is the set of allowed group-by values.
var ValidBreakdownDimensions = map[BreakdownDimension]bool{
	BreakdownByTable:     true,
	BreakdownByTransport: true,
}

// BreakdownFilter controls breakdown query parameters.
type BreakdownFilter struct {
	GroupBy   BreakdownDimension
	Limit     int
	StartTime *time.Time
	EndTime   *time.Time
}

// BreakdownEntry holds aggregated stats for a single dimension value.
type BreakdownEntry struct {
	Dimension     string  `json:"dimension"`
	Count         int     `json:"count"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	AvgRows       float64 `json:"avg_rows"`
}
