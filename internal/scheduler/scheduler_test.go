package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsInvalidExpression(t *testing.T) {
	t.Parallel()

	_, err := New("not a cron", time.UTC, func(context.Context) {}, nil)
	require.Error(t, err)
}

func TestNextFollowsDailyExpression(t *testing.T) {
	t.Parallel()

	s, err := New("0 0 * * *", time.UTC, func(context.Context) {}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return !s.Next().IsZero() }, time.Second, 10*time.Millisecond)
	next := s.Next().UTC()
	require.Zero(t, next.Hour())
	require.Zero(t, next.Minute())
	require.True(t, next.After(time.Now()))

	cancel()
	require.NoError(t, <-done)
}

func TestRunInvokesJobWithContext(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var sawCtx atomic.Bool
	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	s, err := New("@every 1s", time.UTC, func(jobCtx context.Context) {
		calls.Add(1)
		if jobCtx.Err() == nil {
			sawCtx.Store(true)
		}
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Run(ctx))

	require.GreaterOrEqual(t, calls.Load(), int32(1))
	require.True(t, sawCtx.Load())
}

func TestRunSkipsOverlappingTicks(t *testing.T) {
	t.Parallel()

	var running, maxRunning, calls atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 3500*time.Millisecond)
	defer cancel()

	s, err := New("@every 1s", time.UTC, func(jobCtx context.Context) {
		calls.Add(1)
		n := running.Add(1)
		for {
			cur := maxRunning.Load()
			if n <= cur || maxRunning.CompareAndSwap(cur, n) {
				break
			}
		}
		select {
		case <-jobCtx.Done():
		case <-time.After(2500 * time.Millisecond):
		}
		running.Add(-1)
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(ctx))

	require.EqualValues(t, 1, maxRunning.Load())
	require.Less(t, calls.Load(), int32(3))
}

func TestRunKeepsSchedulingAfterPanic(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 3500*time.Millisecond)
	defer cancel()

	s, err := New("@every 1s", time.UTC, func(context.Context) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(ctx))
	require.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestSkippedTickIsLoggedAtWarn(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	s, err := New("@every 1s", time.UTC, func(jobCtx context.Context) {
		<-jobCtx.Done()
	}, zap.New(core))
	require.NoError(t, err)
	require.NoError(t, s.Run(ctx))

	skipped := logs.FilterMessage("skipping tick; previous run still in progress")
	require.GreaterOrEqual(t, skipped.Len(), 1)
	require.Equal(t, zapcore.WarnLevel, skipped.All()[0].Level)
}

func TestCronLoggerDropsMessagesAfterRun(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx, cancel := context.WithCancel(context.Background())
	s, err := New("0 0 * * *", time.UTC, func(context.Context) {}, zap.New(core))
	require.NoError(t, err)

	cancel()
	require.NoError(t, s.Run(ctx))

	before := logs.Len()
	s.cronLg.Info("stop")
	s.cronLg.Error(errors.New("late"), "late error")
	require.Equal(t, before, logs.Len())
}

func TestRunWithTestLoggerRepeatedly(t *testing.T) {
	t.Parallel()

	for i := 0; i < 10; i++ {
		t.Run("cycle", func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			s, err := New("@every 1s", time.UTC, func(context.Context) {}, zaptest.NewLogger(t))
			require.NoError(t, err)
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()
			require.NoError(t, s.Run(ctx))
		})
	}
}
