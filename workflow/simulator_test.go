package workflow

// DB-free tests for the timer registry. The tick function is injected so the
// accrual write path never runs; what matters here is timer lifecycle: no
// duplicate timers per key, deregistration stops the loop, a failing tick
// does not kill it, and a finished run removes itself.

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRegisterSameKeyStartsOneTimer(t *testing.T) {
	var ticks atomic.Int64
	sim := NewAccrualSimulator(10*time.Millisecond, testLogger(), func(ctx context.Context, jo, p, pid int) (bool, error) {
		ticks.Add(1)
		return false, nil
	})
	defer sim.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sim.Register(1, 2, 3)
		}()
	}
	wg.Wait()

	if n := len(sim.ActiveKeys()); n != 1 {
		t.Fatalf("expected 1 active timer, got %d", n)
	}

	// One timer ticking at 10ms cannot plausibly produce 10x the expected
	// count; duplicate goroutines would.
	waitFor(t, time.Second, func() bool { return ticks.Load() >= 3 })
	time.Sleep(50 * time.Millisecond)
	if n := ticks.Load(); n > 40 {
		t.Fatalf("tick count %d suggests duplicate timers", n)
	}
}

func TestDeregisterStopsTimer(t *testing.T) {
	var ticks atomic.Int64
	sim := NewAccrualSimulator(10*time.Millisecond, testLogger(), func(ctx context.Context, jo, p, pid int) (bool, error) {
		ticks.Add(1)
		return false, nil
	})
	defer sim.Shutdown()

	sim.Register(1, 2, 3)
	waitFor(t, time.Second, func() bool { return ticks.Load() >= 1 })

	sim.Deregister(1, 2, 3)
	if n := len(sim.ActiveKeys()); n != 0 {
		t.Fatalf("expected 0 active timers, got %d", n)
	}

	// Deregistering a missing key is a no-op.
	sim.Deregister(9, 9, 9)

	after := ticks.Load()
	time.Sleep(60 * time.Millisecond)
	// Allow one in-flight tick that raced the close.
	if ticks.Load() > after+1 {
		t.Fatalf("timer kept ticking after deregister: %d -> %d", after, ticks.Load())
	}
}

func TestTickErrorDoesNotKillTimer(t *testing.T) {
	var ticks atomic.Int64
	sim := NewAccrualSimulator(10*time.Millisecond, testLogger(), func(ctx context.Context, jo, p, pid int) (bool, error) {
		if ticks.Add(1) == 1 {
			return false, errors.New("transient store error")
		}
		return false, nil
	})
	defer sim.Shutdown()

	sim.Register(1, 2, 3)
	waitFor(t, time.Second, func() bool { return ticks.Load() >= 3 })
	if n := len(sim.ActiveKeys()); n != 1 {
		t.Fatalf("timer died after tick error; active=%d", n)
	}
}

func TestFinishedRunDeregistersItself(t *testing.T) {
	var ticks atomic.Int64
	sim := NewAccrualSimulator(10*time.Millisecond, testLogger(), func(ctx context.Context, jo, p, pid int) (bool, error) {
		return ticks.Add(1) >= 3, nil
	})
	defer sim.Shutdown()

	sim.Register(1, 2, 3)
	waitFor(t, time.Second, func() bool { return len(sim.ActiveKeys()) == 0 })

	if n := ticks.Load(); n != 3 {
		t.Fatalf("expected 3 ticks before self-stop, got %d", n)
	}
	// The key can be registered again for a fresh run.
	sim.Register(1, 2, 3)
	if n := len(sim.ActiveKeys()); n != 1 {
		t.Fatalf("re-register after self-stop: active=%d", n)
	}
}

func TestShutdownStopsEverything(t *testing.T) {
	sim := NewAccrualSimulator(10*time.Millisecond, testLogger(), func(ctx context.Context, jo, p, pid int) (bool, error) {
		return false, nil
	})
	sim.Register(1, 1, 1)
	sim.Register(2, 2, 2)
	sim.Register(3, 3, 3)

	sim.Shutdown()
	if n := len(sim.ActiveKeys()); n != 0 {
		t.Fatalf("expected 0 active timers after shutdown, got %d", n)
	}
}
