package indicator

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/markcheno/go-talib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartlab/internal/market"
)

func randomWalk(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	price := 100.0
	for i := range out {
		price += r.Float64()*4 - 2
		if price < 1 {
			price = 1
		}
		out[i] = price
	}
	return out
}

func candlesFrom(closes []float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			Time:  1_700_000_000 + int64(i)*60,
			Open:  c,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return out
}

func TestSMAIsTrailingMean(t *testing.T) {
	closes := randomWalk(60, 1)
	got := SMAOf(closes, 5)
	require.Len(t, got, len(closes))
	for i := 0; i < 4; i++ {
		assert.False(t, got[i].OK, "index %d", i)
	}
	for i := 4; i < len(closes); i++ {
		sum := 0.0
		for _, v := range closes[i-4 : i+1] {
			sum += v
		}
		require.True(t, got[i].OK)
		assert.InDelta(t, sum/5, got[i].V, 1e-9, "index %d", i)
	}
}

func TestSMAAgreesWithTalib(t *testing.T) {
	closes := randomWalk(120, 2)
	got := SMAOf(closes, 20)
	want := talib.Sma(closes, 20)
	for i := 19; i < len(closes); i++ {
		assert.InDelta(t, want[i], got[i].V, 1e-9, "index %d", i)
	}
}

func TestEMAAgreesWithTalib(t *testing.T) {
	closes := randomWalk(120, 3)
	got := EMAOf(closes, 10)
	want := talib.Ema(closes, 10)
	assert.Equal(t, 9, got.FirstDefined())
	for i := 9; i < len(closes); i++ {
		assert.InDelta(t, want[i], got[i].V, 1e-9, "index %d", i)
	}
}

func TestEMALengthOneIsIdentity(t *testing.T) {
	closes := randomWalk(30, 4)
	got := EMAOf(closes, 1)
	for i, c := range closes {
		require.True(t, got[i].OK)
		assert.Equal(t, c, got[i].V)
	}
}

func TestEMASeedPolicies(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	sma := EMAWithSeed(values, 3, SeedSMA)
	assert.False(t, sma[0].OK)
	assert.False(t, sma[1].OK)
	assert.InDelta(t, 2.0, sma[2].V, 1e-12)
	assert.InDelta(t, 3.0, sma[3].V, 1e-12)
	assert.InDelta(t, 4.0, sma[4].V, 1e-12)

	first := EMAWithSeed(values, 3, SeedFirst)
	assert.Equal(t, 0, first.FirstDefined())
	assert.InDelta(t, 1.0, first[0].V, 1e-12)
	assert.InDelta(t, 1.5, first[1].V, 1e-12)
	assert.InDelta(t, 2.25, first[2].V, 1e-12)
}

func TestEMAUndefinedInputLeavesStateUntouched(t *testing.T) {
	got := EMAOf([]float64{1, 2, 3, math.NaN(), 5}, 3)
	assert.InDelta(t, 2.0, got[2].V, 1e-12)
	assert.False(t, got[3].OK)
	assert.InDelta(t, 3.5, got[4].V, 1e-12)
}

func TestNonFiniteCloseOnlyAffectsItsWindows(t *testing.T) {
	closes := randomWalk(40, 5)
	closes[10] = math.NaN()
	got := SMAOf(closes, 5)
	for i := 10; i < 15; i++ {
		assert.False(t, got[i].OK, "index %d", i)
	}
	for i := 15; i < len(closes); i++ {
		sum := 0.0
		for _, v := range closes[i-4 : i+1] {
			sum += v
		}
		require.True(t, got[i].OK, "index %d", i)
		assert.InDelta(t, sum/5, got[i].V, 1e-9, "index %d", i)
	}

	closes[20] = math.Inf(1)
	boll := BOLL(closes, 5, 2)
	assert.False(t, boll.Mid[22].OK)
	assert.True(t, boll.Mid[25].OK)
}

func TestMACDWarmupFeedsZero(t *testing.T) {
	closes := randomWalk(40, 6)
	res := MACD(closes, 3, 5, 3)
	assert.Equal(t, 4, res.MACD.FirstDefined())

	// signal 的种子来自 3 个 0
	require.True(t, res.Signal[2].OK)
	assert.Equal(t, 0.0, res.Signal[2].V)
	assert.Equal(t, 0.0, res.Signal[3].V)
	assert.InDelta(t, res.MACD[4].V*0.5, res.Signal[4].V, 1e-12)

	assert.Equal(t, 4, res.Hist.FirstDefined())
	for i := 4; i < len(closes); i++ {
		assert.InDelta(t, res.MACD[i].V-res.Signal[i].V, res.Hist[i].V, 1e-12)
	}
}

func TestMACDSignalSkipsMidSeriesGaps(t *testing.T) {
	closes := []float64{10, 11, 12, math.NaN(), 13, 14, 15, 16, math.Inf(1), 17, 18, 16, 15}
	res := MACD(closes, 2, 3, 2)
	require.Equal(t, 2, res.MACD.FirstDefined())
	require.False(t, res.MACD[3].OK)
	require.False(t, res.MACD[8].OK)

	// 预热期两个 0 作为种子，之后只吃已定义的 macd
	require.True(t, res.Signal[1].OK)
	assert.Equal(t, 0.0, res.Signal[1].V)
	k := 2.0 / 3.0
	ema := 0.0
	for i := 2; i < len(closes); i++ {
		if !res.MACD[i].OK {
			assert.False(t, res.Signal[i].OK, "index %d", i)
			assert.False(t, res.Hist[i].OK, "index %d", i)
			continue
		}
		ema = res.MACD[i].V*k + ema*(1-k)
		require.True(t, res.Signal[i].OK, "index %d", i)
		assert.InDelta(t, ema, res.Signal[i].V, 1e-12, "index %d", i)
	}
}

func TestRSIRangeAndWarmup(t *testing.T) {
	closes := randomWalk(200, 7)
	got := RSI(closes, 14)
	assert.Equal(t, 14, got.FirstDefined())
	want := talib.Rsi(closes, 14)
	for i := 14; i < len(closes); i++ {
		require.True(t, got[i].OK)
		assert.GreaterOrEqual(t, got[i].V, 0.0)
		assert.LessOrEqual(t, got[i].V, 100.0)
		assert.InDelta(t, want[i], got[i].V, 1e-8, "index %d", i)
	}
}

func TestRSIIsHundredWithoutLosses(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	got := RSI(closes, 14)
	assert.Equal(t, 100.0, got[14].V)
	assert.Equal(t, 100.0, got[29].V)
}

func TestKDJFlatWindow(t *testing.T) {
	candles := make([]market.Candle, 20)
	for i := range candles {
		candles[i] = market.Candle{Time: int64(i + 1), Open: 10, High: 10, Low: 10, Close: 10}
	}
	res := KDJ(candles, 9, 3, 3)
	assert.Equal(t, 8, res.RSV.FirstDefined())
	assert.Equal(t, 10, res.K.FirstDefined())
	assert.Equal(t, 12, res.D.FirstDefined())
	assert.Equal(t, 12, res.J.FirstDefined())
	for i := 12; i < len(candles); i++ {
		assert.InDelta(t, 50.0, res.K[i].V, 1e-12)
		assert.InDelta(t, 50.0, res.D[i].V, 1e-12)
		assert.InDelta(t, 50.0, res.J[i].V, 1e-12)
	}
}

func TestKDJRSVBounds(t *testing.T) {
	candles := candlesFrom(randomWalk(80, 8))
	res := KDJ(candles, 9, 3, 3)
	for i := 8; i < len(candles); i++ {
		require.True(t, res.RSV[i].OK)
		assert.GreaterOrEqual(t, res.RSV[i].V, 0.0)
		assert.LessOrEqual(t, res.RSV[i].V, 100.0)
	}
	for i := range candles {
		if res.K[i].OK && res.D[i].OK {
			assert.InDelta(t, 3*res.K[i].V-2*res.D[i].V, res.J[i].V, 1e-9)
		}
	}
}

func TestBOLLOrderingAndTalib(t *testing.T) {
	closes := randomWalk(100, 9)
	res := BOLL(closes, 20, 2)
	upper, middle, lower := talib.BBands(closes, 20, 2, 2, talib.SMA)
	sma := SMAOf(closes, 20)
	for i := 19; i < len(closes); i++ {
		require.True(t, res.Mid[i].OK)
		assert.LessOrEqual(t, res.Lower[i].V, res.Mid[i].V)
		assert.LessOrEqual(t, res.Mid[i].V, res.Upper[i].V)
		assert.Equal(t, sma[i].V, res.Mid[i].V)
		assert.InDelta(t, middle[i], res.Mid[i].V, 1e-9)
		assert.InDelta(t, upper[i], res.Upper[i].V, 1e-6)
		assert.InDelta(t, lower[i], res.Lower[i].V, 1e-6)
	}
}

func TestBOLLFlatSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100
	}
	res := BOLL(closes, 20, 2)
	for i := 19; i < len(closes); i++ {
		assert.Equal(t, 100.0, res.Mid[i].V)
		assert.Equal(t, 100.0, res.Upper[i].V)
		assert.Equal(t, 100.0, res.Lower[i].V)
	}
}

func TestInvalidParamsYieldUndefined(t *testing.T) {
	closes := randomWalk(50, 10)
	candles := candlesFrom(closes)
	for _, n := range []int{0, -3} {
		assert.Zero(t, SMAOf(closes, n).Defined())
		assert.Zero(t, EMAOf(closes, n).Defined())
		assert.Zero(t, RSI(closes, n).Defined())
		assert.Zero(t, MACD(closes, n, 26, 9).MACD.Defined())
		assert.Zero(t, KDJ(candles, n, 3, 3).K.Defined())
		assert.Zero(t, BOLL(closes, n, 2).Mid.Defined())
	}
	assert.Zero(t, BOLL(closes, 20, 0).Upper.Defined())
	assert.Zero(t, BOLL(closes, 20, math.NaN()).Upper.Defined())
	assert.Zero(t, BOLL(closes, 20, -1).Lower.Defined())
}

func TestShortInputIsAllUndefined(t *testing.T) {
	closes := randomWalk(5, 11)
	assert.Len(t, SMAOf(closes, 20), 5)
	assert.Zero(t, SMAOf(closes, 20).Defined())
	assert.Zero(t, RSI(closes, 14).Defined())
	assert.Empty(t, EMAOf(nil, 3))
}

func TestComputationIsPure(t *testing.T) {
	candles := candlesFrom(randomWalk(60, 12))
	snapshot := append([]market.Candle(nil), candles...)
	for _, name := range Names() {
		a, err := Compute(name, candles, Params{})
		require.NoError(t, err)
		b, err := Compute(name, candles, Params{})
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}
	assert.Equal(t, snapshot, candles)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"boll", "ema", "kdj", "macd", "rsi", "sma"}, Names())

	candles := candlesFrom(randomWalk(60, 13))
	out, err := Compute("MACD", candles, Params{})
	require.NoError(t, err)
	assert.Equal(t, "macd", out.Name)
	assert.Equal(t, Params{Fast: 12, Slow: 26, Signal: 9}, out.Params)
	keys := make([]string, 0, len(out.Lines))
	for _, l := range out.Lines {
		keys = append(keys, l.Key)
		assert.Len(t, l.Values, len(candles))
	}
	assert.Equal(t, []string{"macd", "signal", "hist"}, keys)

	out, err = Compute("boll", candles, Params{Len: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, out.Params.Len)
	assert.Equal(t, 2.0, out.Params.Mult)
	mid, ok := out.Line("mid")
	require.True(t, ok)
	assert.Equal(t, 9, mid.FirstDefined())

	_, err = Compute("vwap", candles, Params{})
	assert.ErrorIs(t, err, ErrUnknownIndicator)
	_, err = Defaults("nope")
	assert.ErrorIs(t, err, ErrUnknownIndicator)
}

func TestValueJSON(t *testing.T) {
	raw, err := json.Marshal(Series{Some(1.5), None()})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5,null]`, string(raw))

	var back Series
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, Series{Some(1.5), None()}, back)
	assert.False(t, Some(math.Inf(1)).OK)
}
