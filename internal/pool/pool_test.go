package pool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsJobs(t *testing.T) {
	p := New(t.Context(), 2)

	var a, b atomic.Int32

	p.Add("a", func(context.Context) time.Time {
		a.Add(1)
		return time.Time{} // run once, then leave the pool
	})
	p.Add("b", func(context.Context) time.Time {
		if b.Add(1) < 3 {
			return time.Now().Add(10 * time.Millisecond)
		}
		return time.Time{}
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a.Load() == 1 && b.Load() == 3 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("jobs did not finish: a=%d b=%d", a.Load(), b.Load())
}

func TestTrigger(t *testing.T) {

	t.Run("queued job is pulled forward", func(t *testing.T) {
		p := New(t.Context(), 1)

		var runs atomic.Int32
		p.Add("j", func(context.Context) time.Time {
			runs.Add(1)
			return time.Now().Add(time.Hour) // would never re-run on its own
		})

		waitFor(t, func() bool { return runs.Load() == 1 })

		if err := p.Trigger("j"); err != nil {
			t.Fatal(err)
		}
		waitFor(t, func() bool { return runs.Load() == 2 })
	})

	t.Run("running job re-runs right after finishing", func(t *testing.T) {
		p := New(t.Context(), 1)

		started := make(chan struct{})
		release := make(chan struct{})
		var runs atomic.Int32

		p.Add("j", func(context.Context) time.Time {
			if runs.Add(1) == 1 {
				close(started)
				<-release
			}
			return time.Now().Add(time.Hour)
		})

		<-started
		if err := p.Trigger("j"); err != nil {
			t.Fatal(err)
		}
		close(release)

		waitFor(t, func() bool { return runs.Load() == 2 })
	})

	t.Run("unknown job", func(t *testing.T) {
		p := New(t.Context(), 1)
		if err := p.Trigger("nope"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestPoolStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(ctx, 1)

	var runs atomic.Int32
	p.Add("j", func(context.Context) time.Time {
		runs.Add(1)
		return time.Now().Add(10 * time.Millisecond)
	})

	waitFor(t, func() bool { return runs.Load() >= 1 })
	cancel()
	time.Sleep(50 * time.Millisecond)

	n := runs.Load()
	time.Sleep(100 * time.Millisecond)
	if runs.Load() > n+1 {
		t.Fatalf("jobs kept running after cancellation: %d -> %d", n, runs.Load())
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
	t.Fatal("condition not met in time")
}
