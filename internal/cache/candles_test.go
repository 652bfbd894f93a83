package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartlab/internal/market"
)

func TestCandlesCopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	c := NewCandles(time.Minute, 8, WithClock(func() time.Time { return now }))

	in := []market.Candle{{Time: 1, Close: 10}, {Time: 2, Close: 11}}
	c.Set(ctx, "k", in)
	in[0].Close = 99

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 10.0, got[0].Close)
	got[1].Close = 42
	again, _ := c.Get(ctx, "k")
	assert.Equal(t, 11.0, again[1].Close)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestDecodeCandles(t *testing.T) {
	got, err := decodeCandles([]byte(`[{"time":1,"open":1,"high":2,"low":0.5,"close":1.5}]`))
	require.NoError(t, err)
	assert.Equal(t, []market.Candle{{Time: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5}}, got)

	_, err = decodeCandles([]byte(`{`))
	assert.Error(t, err)
}

func TestRedisCandlesUnavailableIsMiss(t *testing.T) {
	r := NewRedisCandles(RedisConfig{Addr: "127.0.0.1:1"}, time.Minute)
	defer r.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	r.Set(ctx, "k", []market.Candle{{Time: 1}})
	_, ok := r.Get(ctx, "k")
	assert.False(t, ok)
	assert.Error(t, r.Ping(ctx))
}
