package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsOnTrigger(t *testing.T) {
	var runs atomic.Int32
	scheduler := NewScheduler(time.Hour, func(context.Context) { runs.Add(1) })
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	scheduler.Trigger()
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, 10*time.Millisecond)
}

func TestSchedulerRunsOnInterval(t *testing.T) {
	var runs atomic.Int32
	scheduler := NewScheduler(20*time.Millisecond, func(context.Context) { runs.Add(1) })
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 10*time.Millisecond)
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	scheduler := NewScheduler(time.Hour, func(context.Context) {})
	scheduler.Start(context.Background())
	scheduler.Stop()
	scheduler.Stop()
}

func TestSchedulerStartTwiceKeepsSingleLoop(t *testing.T) {
	var runs atomic.Int32
	scheduler := NewScheduler(time.Hour, func(context.Context) { runs.Add(1) })
	scheduler.Start(context.Background())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	scheduler.Trigger()
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSchedulerNilRunnerDoesNotStart(t *testing.T) {
	scheduler := NewScheduler(time.Hour, nil)
	scheduler.Start(context.Background())
	scheduler.Stop()
}
