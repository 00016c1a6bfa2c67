package audit

import (
	"time"

	"github.com/google/uuid"
)

// NewEvent creates an event for a statement. Table is filled in once the
// statement has been resolved.
func NewEvent(sql string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		SQL:       sql,
	}
}

// WithTable sets the queried table.
func (e *Event) WithTable(table string) *Event {
	e.Table = table
	return e
}

// WithPlan records what was sent upstream and what was filtered locally.
func (e *Event) WithPlan(pushdown map[string]any, residual []string) *Event {
	e.Pushdown = pushdown
	e.Residual = residual
	return e
}

// WithResult records the outcome. A nil err marks the event successful.
func (e *Event) WithResult(rows int, err error, d time.Duration) *Event {
	e.Rows = rows
	e.DurationMS = d.Milliseconds()
	e.Success = err == nil
	if err != nil {
		e.ErrorMessage = err.Error()
	}
	return e
}

// WithTransport records the MCP transport the call came in on.
func (e *Event) WithTransport(transport string) *Event {
	e.Transport = transport
	return e
}
