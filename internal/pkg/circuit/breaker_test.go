package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	var changes []string
	b := New("binance", 2, time.Minute, WithClock(clock.Now), WithStateChange(func(_ string, from, to State) {
		changes = append(changes, from.String()+"->"+to.String())
	}))

	assert.True(t, b.Allow())
	b.Failure()
	assert.Equal(t, StateClosed, b.State())
	b.Failure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	clock.Advance(59 * time.Second)
	assert.False(t, b.Allow())

	clock.Advance(2 * time.Second)
	assert.True(t, b.Allow(), "cooldown elapsed, one probe")
	assert.Equal(t, StateHalfOpen, b.State())
	assert.False(t, b.Allow(), "second caller waits for the probe")

	b.Success()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
	assert.Equal(t, []string{"CLOSED->OPEN", "OPEN->HALF-OPEN", "HALF-OPEN->CLOSED"}, changes)
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	b := New("bitget", 1, 10*time.Second, WithClock(clock.Now), WithStateChange(func(string, State, State) {}))

	b.Failure()
	assert.Equal(t, StateOpen, b.State())
	clock.Advance(11 * time.Second)
	assert.True(t, b.Allow())
	b.Failure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerAbortReleasesProbe(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	b := New("eastmoney", 1, time.Second, WithClock(clock.Now), WithStateChange(func(string, State, State) {}))

	b.Failure()
	clock.Advance(2 * time.Second)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())
	b.Abort()
	assert.Equal(t, StateHalfOpen, b.State())
	assert.True(t, b.Allow(), "aborted probe frees the slot")
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := New("gate", 2, time.Minute, WithStateChange(func(string, State, State) {}))
	b.Failure()
	b.Success()
	b.Failure()
	assert.Equal(t, StateClosed, b.State())
}

func TestDisabledAndNilBreaker(t *testing.T) {
	b := New("off", 0, time.Minute)
	for i := 0; i < 10; i++ {
		b.Failure()
	}
	assert.True(t, b.Allow())
	assert.Equal(t, StateClosed, b.State())

	var nilBreaker *Breaker
	assert.True(t, nilBreaker.Allow())
	nilBreaker.Failure()
	nilBreaker.Success()
}
