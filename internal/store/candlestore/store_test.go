package candlestore

import (
	"context"
	"math"
	"testing"

	"chartlab/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndLatest(t *testing.T) {
	st, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()

	rows := []market.Candle{
		{Time: 300, Open: 3, High: 3, Low: 3, Close: 3},
		{Time: 100, Open: 1, High: 1, Low: 1, Close: 1},
		{Time: 200, Open: 2, High: 2, Low: 2, Close: 2, Volume: 10},
		{Time: 400, Open: math.NaN(), High: 4, Low: 4, Close: 4},
	}
	n, err := st.Insert(ctx, "btcusdt", "1H", rows)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "non-finite row is skipped")

	// upsert existing time
	_, err = st.Insert(ctx, "BTCUSDT", "1H", []market.Candle{{Time: 300, Open: 3, High: 5, Low: 3, Close: 4.5}})
	require.NoError(t, err)

	got, err := st.Latest(ctx, "BTCUSDT", "1H", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(200), got[0].Time)
	assert.Equal(t, int64(300), got[1].Time)
	assert.Equal(t, 4.5, got[1].Close)
	assert.Equal(t, 10.0, got[0].Volume)

	m, err := st.Manifest(ctx, "BTCUSDT", "1H")
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.Rows)
	assert.Equal(t, int64(100), m.MinTime)
	assert.Equal(t, int64(300), m.MaxTime)
	assert.Equal(t, "1H", m.Interval)

	span, err := st.Range(ctx, "BTCUSDT", "1H", 300, 150)
	require.NoError(t, err)
	require.Len(t, span, 2)
	assert.Equal(t, int64(200), span[0].Time)
}

func TestMonthAndMinuteDoNotCollide(t *testing.T) {
	st, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	assert.NotEqual(t, st.dbPath("ETH", "1m"), st.dbPath("ETH", "1M"))
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New("  ")
	assert.Error(t, err)
}
