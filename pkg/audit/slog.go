package audit

import (
	"context"
	"log/slog"
)

// SlogLogger writes audit events to a structured logger. It keeps no
// history, so Query always returns an empty result.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a SlogLogger. A nil logger uses slog.Default.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// Log writes the event at info level, or warn level when it failed.
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	l.logger.LogAttrs(ctx, level, "query audit",
		slog.String("audit_id", event.ID),
		slog.String("table", event.Table),
		slog.String("sql", event.SQL),
		slog.Any("pushdown", event.Pushdown),
		slog.Any("residual", event.Residual),
		slog.Int("rows", event.Rows),
		slog.Int64("duration_ms", event.DurationMS),
		slog.Bool("success", event.Success),
		slog.String("error", event.ErrorMessage),
		slog.String("transport", event.Transport),
	)
	return nil
}

// Query returns no events.
func (*SlogLogger) Query(_ context.Context, _ QueryFilter) ([]Event, error) {
	return []Event{}, nil
}

// Close is a no-op.
func (*SlogLogger) Close() error { return nil }

// NoopLogger discards events.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(_ context.Context, _ Event) error { return nil }

// Query returns no events.
func (NoopLogger) Query(_ context.Context, _ QueryFilter) ([]Event, error) {
	return []Event{}, nil
}

// Close is a no-op.
func (NoopLogger) Close() error { return nil }

var (
	_ Logger = (*SlogLogger)(nil)
	_ Logger = NoopLogger{}
)
