package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// hook is a named start or stop step.
type hook struct {
	name string
	fn   func(context.Context) error
}

// Lifecycle runs startup steps in order and shutdown steps in reverse.
// Stop steps pair with start steps by registration order.
type Lifecycle struct {
	mu      sync.Mutex
	starts  []hook
	stops   []hook
	started bool
	logger  *slog.Logger
}

// NewLifecycle creates a new lifecycle manager.
func NewLifecycle(logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{logger: logger}
}

// OnStart registers a named step to run on startup. When a step fails,
// the stop steps paired with the steps before it are run in reverse.
func (l *Lifecycle) OnStart(name string, fn func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.starts = append(l.starts, hook{name: name, fn: fn})
}

// OnStop registers a named step to run on shutdown.
func (l *Lifecycle) OnStop(name string, fn func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stops = append(l.stops, hook{name: name, fn: fn})
}

// Start runs the start steps.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return errors.New("lifecycle already started")
	}

	for i, h := range l.starts {
		if err := h.fn(ctx); err != nil {
			_ = l.runStops(ctx, i)
			return fmt.Errorf("starting %s: %w", h.name, err)
		}
		l.logger.Debug("lifecycle step started", "step", h.name)
	}

	l.started = true
	return nil
}

// Stop runs the stop steps in reverse order. It does nothing when the
// lifecycle was never started.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return nil
	}
	l.started = false
	if err := l.runStops(ctx, len(l.stops)); err != nil {
		return fmt.Errorf("errors during shutdown: %w", err)
	}
	return nil
}

// IsStarted returns whether the lifecycle has been started.
func (l *Lifecycle) IsStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started
}

func (l *Lifecycle) runStops(ctx context.Context, n int) error {
	var errs []error
	for i := min(n, len(l.stops)) - 1; i >= 0; i-- {
		h := l.stops[i]
		if err := h.fn(ctx); err != nil {
			l.logger.Warn("lifecycle stop step failed", "step", h.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}
