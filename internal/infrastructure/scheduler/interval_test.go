package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSchedulerRunsImmediatelyAndRepeats(t *testing.T) {
	t.Parallel()

	var runs int32
	s := NewIntervalScheduler(10*time.Millisecond, nil)
	require.NoError(t, s.Start(context.Background(), func(at time.Time) {
		assert.Equal(t, time.UTC, at.Location())
		atomic.AddInt32(&runs, 1)
	}))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	stopped := atomic.LoadInt32(&runs)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&runs))
}

func TestIntervalSchedulerJobsNeverOverlap(t *testing.T) {
	t.Parallel()

	var active, overlapped int32
	s := NewIntervalScheduler(time.Millisecond, nil)
	require.NoError(t, s.Start(context.Background(), func(time.Time) {
		if atomic.AddInt32(&active, 1) > 1 {
			atomic.StoreInt32(&overlapped, 1)
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	}))

	time.Sleep(40 * time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	assert.Zero(t, atomic.LoadInt32(&overlapped))
}

func TestIntervalSchedulerStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{}, 1)
	s := NewIntervalScheduler(time.Hour, nil)
	require.NoError(t, s.Start(ctx, func(time.Time) { ran <- struct{}{} }))

	<-ran
	cancel()
	require.NoError(t, s.Stop(context.Background()))
}

func TestIntervalSchedulerRejectsZeroInterval(t *testing.T) {
	t.Parallel()

	err := NewIntervalScheduler(0, nil).Start(context.Background(), func(time.Time) {})
	require.ErrorIs(t, err, ErrInvalidInterval)
	require.NoError(t, NewIntervalScheduler(0, nil).Stop(context.Background()))
}
