package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestTTLExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := New[int](time.Minute, 0, WithClock(clk.now))

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	clk.advance(59 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	clk.advance(2 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is dropped on read")
}

func TestTTLEvictsEarliestExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := New[string](time.Hour, 2, WithClock(clk.now))

	c.Set("old", "x")
	clk.advance(time.Minute)
	c.Set("new", "y")
	c.Set("newest", "z")

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("old")
	assert.False(t, ok)
	_, ok = c.Get("newest")
	assert.True(t, ok)
}

func TestTTLOverwriteDoesNotEvict(t *testing.T) {
	c := New[int](0, 1)
	c.Set("a", 1)
	c.Set("a", 2)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestGetOrSet(t *testing.T) {
	c := New[int](time.Minute, 0)
	calls := 0
	build := func() int { calls++; return 7 }
	assert.Equal(t, 7, c.GetOrSet("k", build))
	assert.Equal(t, 7, c.GetOrSet("k", build))
	assert.Equal(t, 1, calls)

	c.Delete("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestGetOrSetRefreshesOnHit(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := New[int](time.Minute, 0, WithClock(clk.now))
	calls := 0
	build := func() int { calls++; return calls }

	require.Equal(t, 1, c.GetOrSet("k", build))
	for i := 0; i < 5; i++ {
		clk.advance(40 * time.Second)
		assert.Equal(t, 1, c.GetOrSet("k", build), "step %d", i)
	}
	assert.Equal(t, 1, calls, "entry kept alive for 200s by hits every 40s")

	clk.advance(61 * time.Second)
	assert.Equal(t, 2, c.GetOrSet("k", build), "idle entry is rebuilt")
}

func TestGetOrSetBuildsOnceConcurrently(t *testing.T) {
	c := New[*int](time.Minute, 0)
	var calls atomic.Int32
	build := func() *int { calls.Add(1); v := 1; return &v }

	const n = 64
	got := make([]*int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = c.GetOrSet("client", build)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 1; i < n; i++ {
		assert.Same(t, got[0], got[i])
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *TTL[int]
	assert.NotPanics(t, func() { c.Set("a", 1) })
	assert.NotPanics(t, func() { c.SetWithTTL("a", 1, time.Second) })
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 3, c.GetOrSet("a", func() int { return 3 }))
}
