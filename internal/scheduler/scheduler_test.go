package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2024, 6, 1, hour, minute, 0, 0, time.UTC)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestTick_FiresAtScheduledMinute(t *testing.T) {
	var runs atomic.Int32
	s := New()
	s.now = at(0, 0)
	s.Register(Job{Name: "sweep", Hour: 0, Minute: 0, Run: func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}})

	s.tick(context.Background())
	waitFor(t, func() bool { return runs.Load() == 1 })
}

func TestTick_SkipsOtherMinutes(t *testing.T) {
	var runs atomic.Int32
	s := New()
	s.now = at(0, 30)
	s.Register(Job{Name: "sweep", Hour: 0, Minute: 0, Run: func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}})

	s.tick(context.Background())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestTick_FiresOncePerDay(t *testing.T) {
	var runs atomic.Int32
	s := New()
	s.now = at(1, 0)
	s.Register(Job{Name: "sweep", Hour: 1, Minute: 0, Run: func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}})

	// Two ticks in the same minute of the same day.
	s.tick(context.Background())
	s.tick(context.Background())
	waitFor(t, func() bool { return runs.Load() == 1 })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load(), "same-day re-fire must be suppressed")

	// Next day it fires again.
	s.now = func() time.Time { return time.Date(2024, 6, 2, 1, 0, 0, 0, time.UTC) }
	s.tick(context.Background())
	waitFor(t, func() bool { return runs.Load() == 2 })
}

func TestExecute_RecoversFromPanic(t *testing.T) {
	s := New()
	s.Register(Job{Name: "explode", Hour: 0, Minute: 0, Run: func(ctx context.Context) error {
		panic("boom")
	}})

	assert.True(t, s.RunJobNow(context.Background(), "explode"))
	waitFor(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.running["explode"]
	})
}

func TestRunJobNow_UnknownJob(t *testing.T) {
	s := New()
	assert.False(t, s.RunJobNow(context.Background(), "nope"))
}
