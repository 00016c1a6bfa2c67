package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_StartStopOrder(t *testing.T) {
	var calls []string
	l := NewLifecycle(nil)
	for _, name := range []string{"a", "b", "c"} {
		l.OnStart(name, func(context.Context) error {
			calls = append(calls, "start "+name)
			return nil
		})
		l.OnStop(name, func(context.Context) error {
			calls = append(calls, "stop "+name)
			return nil
		})
	}

	require.NoError(t, l.Start(context.Background()))
	assert.True(t, l.IsStarted())
	assert.Error(t, l.Start(context.Background()))

	require.NoError(t, l.Stop(context.Background()))
	assert.False(t, l.IsStarted())
	assert.Equal(t, []string{"start a", "start b", "start c", "stop c", "stop b", "stop a"}, calls)

	require.NoError(t, l.Stop(context.Background()))
	assert.Len(t, calls, 6)
}

func TestLifecycle_RollbackOnStartFailure(t *testing.T) {
	var stopped []string
	l := NewLifecycle(nil)

	l.OnStart("db", func(context.Context) error { return nil })
	l.OnStop("db", func(context.Context) error {
		stopped = append(stopped, "db")
		return nil
	})
	l.OnStart("migrations", func(context.Context) error { return errors.New("dirty schema") })
	l.OnStop("migrations", func(context.Context) error {
		stopped = append(stopped, "migrations")
		return nil
	})

	err := l.Start(context.Background())
	require.ErrorContains(t, err, "starting migrations: dirty schema")
	assert.False(t, l.IsStarted())
	assert.Equal(t, []string{"db"}, stopped)
}

func TestLifecycle_StopCollectsErrors(t *testing.T) {
	l := NewLifecycle(nil)
	l.OnStart("a", func(context.Context) error { return nil })
	l.OnStop("a", func(context.Context) error { return errors.New("a failed") })
	l.OnStart("b", func(context.Context) error { return nil })
	l.OnStop("b", func(context.Context) error { return errors.New("b failed") })

	require.NoError(t, l.Start(context.Background()))
	err := l.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: a failed")
	assert.Contains(t, err.Error(), "b: b failed")
}
