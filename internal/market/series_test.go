package market

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSortsDedupesAndCaps(t *testing.T) {
	rows := []Candle{
		{Time: 30, Close: 3, Open: 3, High: 3, Low: 3},
		{Time: 10, Close: 1, Open: 1, High: 1, Low: 1},
		{Time: 20, Close: 2, Open: 2, High: 2, Low: 2},
		{Time: 20, Close: 22, Open: 2, High: 22, Low: 2},
		{Time: 0, Close: 9, Open: 9, High: 9, Low: 9},
		{Time: 40, Close: math.Inf(1), Open: 4, High: 4, Low: 4},
	}
	got := Normalize(rows, 2)
	require.NoError(t, Validate(got))
	assert.Equal(t, []int64{20, 30}, got.Times())
	assert.Equal(t, 22.0, got[0].Close)

	all := Normalize(rows, 0)
	assert.Equal(t, []int64{10, 20, 30}, all.Times())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(nil))
	assert.NoError(t, Validate([]Candle{{Time: 1, Close: math.NaN()}, {Time: 2}}))

	err := Validate([]Candle{{Time: 1}, {Time: 1}})
	require.ErrorIs(t, err, ErrDuplicateTime)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 1, verr.Index)

	require.ErrorIs(t, Validate([]Candle{{Time: 2}, {Time: 1}}), ErrUnsorted)
}

func TestParseInterval(t *testing.T) {
	for in, want := range map[string]string{"1h": "1H", "1H": "1H", "4h": "4H", "1d": "1D", "1w": "1W", "1m": "1m", "1M": "1M"} {
		iv, err := ParseInterval(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, iv.Key, in)
	}
	_, err := ParseInterval("2H")
	require.Error(t, err)

	iv, _ := ParseInterval("15m")
	assert.Equal(t, int64(900), iv.Seconds())
	keys := SupportedIntervals()
	assert.Equal(t, "1m", keys[0])
	assert.Equal(t, "1M", keys[len(keys)-1])
}

func TestSeriesHelpers(t *testing.T) {
	s := Series{{Time: 1, Close: 10, High: 11, Low: 9}, {Time: 2, Close: 12, High: 13, Low: 8}}
	assert.Equal(t, []float64{10, 12}, s.Closes())
	assert.Equal(t, []float64{11, 13}, s.Highs())
	assert.Equal(t, []float64{9, 8}, s.Lows())
	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, int64(2), last.Time)
	_, ok = Series{}.Last()
	assert.False(t, ok)
	assert.Contains(t, s.Summary("1H"), "bars=2 close=12")
}
