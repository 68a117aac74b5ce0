package breaker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeClock is a manually advanced clock for deterministic transitions.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry(clock *fakeClock) *Registry {
	return NewRegistry(Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
		SweepAfter:       10 * time.Minute,
	}, clock, zap.NewNop())
}

func TestAllow_NoRecord(t *testing.T) {
	reg := newTestRegistry(newFakeClock())

	assert.True(t, reg.Allow("openai:cred-1"))
	assert.Equal(t, StateAbsent, reg.Status("openai:cred-1"))
}

func TestRecordSuccess_NoRecordIsNoop(t *testing.T) {
	reg := newTestRegistry(newFakeClock())

	reg.RecordSuccess("openai:cred-1")

	assert.Equal(t, StateAbsent, reg.Status("openai:cred-1"))
	assert.Equal(t, 0, reg.Stats().Tracked)
}

func TestFailureThreshold_OpensCircuit(t *testing.T) {
	reg := newTestRegistry(newFakeClock())
	key := "anthropic:cred-2"

	reg.RecordFailure(key, "503")
	reg.RecordFailure(key, "503")
	assert.True(t, reg.Allow(key), "below threshold must stay closed")

	reg.RecordFailure(key, "503")
	assert.Equal(t, StateOpen, reg.Status(key))
	assert.False(t, reg.Allow(key))
}

func TestSuccessResetsClosedFailureCount(t *testing.T) {
	reg := newTestRegistry(newFakeClock())
	key := "openai:cred-1"

	reg.RecordFailure(key, "500")
	reg.RecordFailure(key, "500")
	reg.RecordSuccess(key)

	// The streak was broken; two more failures must not trip it.
	reg.RecordFailure(key, "500")
	reg.RecordFailure(key, "500")
	assert.Equal(t, StateClosed, reg.Status(key))
	assert.True(t, reg.Allow(key))
}

func TestOpenTimeout_TransitionsToHalfOpen(t *testing.T) {
	clock := newFakeClock()
	reg := newTestRegistry(clock)
	key := "gemini:cred-3"

	for i := 0; i < 3; i++ {
		reg.RecordFailure(key, "timeout")
	}
	assert.False(t, reg.Allow(key))

	clock.Advance(29 * time.Second)
	assert.False(t, reg.Allow(key), "open timeout not yet elapsed")

	clock.Advance(2 * time.Second)
	assert.True(t, reg.Allow(key), "probe allowed after open timeout")
	assert.Equal(t, StateHalfOpen, reg.Status(key))
}

func TestHalfOpen_SingleFailureReopens(t *testing.T) {
	clock := newFakeClock()
	reg := newTestRegistry(clock)
	key := "openai:cred-1"

	for i := 0; i < 3; i++ {
		reg.RecordFailure(key, "429")
	}
	clock.Advance(31 * time.Second)
	assert.True(t, reg.Allow(key))

	// One success toward the threshold, then a single failure.
	reg.RecordSuccess(key)
	reg.RecordFailure(key, "429")

	assert.Equal(t, StateOpen, reg.Status(key))
	assert.False(t, reg.Allow(key))

	// Prior successCount must not survive into the next half-open window.
	clock.Advance(31 * time.Second)
	assert.True(t, reg.Allow(key))
	reg.RecordSuccess(key)
	assert.Equal(t, StateHalfOpen, reg.Status(key), "one success must not close after reopen")
}

func TestHalfOpen_RecoveryClosesAndResetsCounters(t *testing.T) {
	clock := newFakeClock()
	reg := newTestRegistry(clock)
	key := "anthropic:cred-2"

	for i := 0; i < 3; i++ {
		reg.RecordFailure(key, "500")
	}
	clock.Advance(31 * time.Second)
	assert.True(t, reg.Allow(key))

	reg.RecordSuccess(key)
	reg.RecordSuccess(key)

	assert.Equal(t, StateClosed, reg.Status(key))

	st := reg.Stats()
	assert.Equal(t, 1, st.Tracked)
	assert.Equal(t, 0, st.Endpoints[0].Failures)
	assert.Equal(t, 0, st.Endpoints[0].Successes)
}

func TestOpenEndpointsAndReset(t *testing.T) {
	reg := newTestRegistry(newFakeClock())

	for i := 0; i < 3; i++ {
		reg.RecordFailure("a:1", "500")
	}
	reg.RecordFailure("b:2", "500")

	open := reg.OpenEndpoints()
	assert.Equal(t, []string{"a:1"}, open)

	reg.Reset("a:1")
	assert.Equal(t, StateAbsent, reg.Status("a:1"))
	assert.True(t, reg.Allow("a:1"))

	reg.ResetAll()
	assert.Equal(t, 0, reg.Stats().Tracked)
}

func TestSweep_RemovesStaleClosedOnly(t *testing.T) {
	clock := newFakeClock()
	reg := newTestRegistry(clock)

	// closed record with old activity
	reg.RecordFailure("stale:1", "500")
	// open record, must never be swept
	for i := 0; i < 3; i++ {
		reg.RecordFailure("open:2", "500")
	}

	clock.Advance(11 * time.Minute)
	reg.sweep()

	assert.Equal(t, StateAbsent, reg.Status("stale:1"))
	assert.Equal(t, StateOpen, reg.Status("open:2"))
}

func TestConcurrentUpdates(t *testing.T) {
	reg := newTestRegistry(newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("vendor-%d:cred", n%4)
			for j := 0; j < 200; j++ {
				reg.Allow(key)
				if j%3 == 0 {
					reg.RecordFailure(key, "flaky")
				} else {
					reg.RecordSuccess(key)
				}
			}
		}(i)
	}
	wg.Wait()

	st := reg.Stats()
	assert.Equal(t, 4, st.Tracked)
}
