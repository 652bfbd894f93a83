package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.5, MaxDrawdown([]float64{1, 0.5, 0.9}))
	assert.Equal(t, 0.0, MaxDrawdown([]float64{1, 1.1, 1.2}))
	assert.Equal(t, 0.0, MaxDrawdown(nil))
	assert.InDelta(t, 0.5, MaxDrawdown([]float64{1, 2, math.NaN(), 1}), 1e-12)
	assert.Equal(t, 0.0, MaxDrawdown([]float64{0, 0}))
}

func TestCAGR(t *testing.T) {
	year := int64(secondsPerYear)
	assert.InDelta(t, 0.1, CAGR(0.1, 0, year), 1e-12)
	assert.InDelta(t, math.Sqrt(1.21)-1, CAGR(0.21, 0, 2*year), 1e-12)
	assert.Equal(t, 0.0, CAGR(0.5, 100, 100))
	assert.Equal(t, 0.0, CAGR(0.5, 200, 100))
	assert.InDelta(t, -1, CAGR(-1, 0, year), 1e-6)
}

func TestSummarizeIncludesStartingPeak(t *testing.T) {
	curve := []EquityPoint{{Time: 1, Value: 0.8}, {Time: 2, Value: 1.1}}
	st := Summarize([]Trade{{PnLPct: 0.1}, {PnLPct: -0.2}, {PnLPct: 0}}, curve, 0, 2)
	assert.Equal(t, 3, st.NTrades)
	assert.InDelta(t, 1.0/3.0, st.WinRate, 1e-12)
	assert.InDelta(t, 0.1, st.TotalReturn, 1e-12)
	assert.InDelta(t, 0.2, st.MaxDrawdown, 1e-12)
}
