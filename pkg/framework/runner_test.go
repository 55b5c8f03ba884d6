package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerStopsAllOnFirstExit(t *testing.T) {
	errFail := errors.New("fail")
	r := NewRunner()
	r.Go(
		NamedRun("fail", RunFunc(func(context.Context) error {
			return errFail
		})),
		RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	err := r.Wait()
	require.Error(t, err)
	assert.Equal(t, "fail: fail", err.Error())
	assert.True(t, errors.Is(err, errFail))
}

func TestRunnerUnnamed(t *testing.T) {
	r := NewRunner()
	r.Go(RunFunc(func(context.Context) error {
		return errors.New("x")
	}))
	assert.Equal(t, "0: x", r.Wait().Error())
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	r.Go(NamedRun("wait", RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))
	r.Stop()
	assert.NoError(t, r.Wait())
}

func TestRunnerCanceledIsNotAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx)
	r.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	cancel()
	assert.NoError(t, r.Wait())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	assert.NoError(t, errs.Add(nil, context.Canceled).Aggregate())
	errs.Add(errors.New("a"), errors.New("b"))
	assert.Equal(t, "Multiple errors:\na\nb", errs.Aggregate().Error())
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunWithContextCloser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan struct{})
	closed := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RunWithContextCloser(ctx, closerFunc(func() error {
		closed++
		close(stop)
		return nil
	}), func() error {
		<-stop
		return nil
	})
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 1, closed)
}

func TestLoopRunsControllersInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls []string
	var iterations []uint64
	l := NewLoop(time.Millisecond,
		ControlFunc(func(c ControlContext) error {
			calls = append(calls, "a")
			iterations = append(iterations, c.Iteration())
			return nil
		}),
	).Add(ControlFunc(func(c ControlContext) error {
		calls = append(calls, "b")
		if c.Iteration() == 2 {
			cancel()
		}
		c.TriggerNext()
		return nil
	}))
	err := l.Run(ctx)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, calls)
	assert.Equal(t, []uint64{0, 1, 2}, iterations)
}

func TestLoopStopsOnControllerError(t *testing.T) {
	errStop := errors.New("stop")
	l := NewLoop(time.Millisecond, ControlFunc(func(ControlContext) error {
		return errStop
	}))
	assert.Equal(t, errStop, l.Run(context.Background()))
}
