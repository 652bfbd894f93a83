package chart

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartlab/internal/backtest"
	"chartlab/internal/indicator"
	"chartlab/internal/market"
)

func sampleCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	price := 100.0
	for i := range out {
		price += float64(i%5) - 2
		out[i] = market.Candle{
			Time:   1_700_000_000 + int64(i)*3600,
			Open:   price - 0.5,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: float64(10 + i),
		}
	}
	return out
}

func TestToLineDataLeavesGaps(t *testing.T) {
	series := indicator.Series{indicator.None(), indicator.Some(1.23456789012), indicator.None()}
	data := toLineData(series, 4)
	require.Len(t, data, 4)
	assert.Nil(t, data[0].Value)
	assert.Equal(t, 1.23456789, data[1].Value)
	assert.Nil(t, data[2].Value)
	assert.Nil(t, data[3].Value, "series shorter than the axis pads with gaps")
}

func TestBuildMarkersAlignsToCandles(t *testing.T) {
	candles := sampleCandles(5)
	markers := []backtest.Marker{
		{Time: candles[1].Time, Kind: backtest.MarkerBuy, Price: 101, Text: "BUY 101.00"},
		{Time: candles[3].Time, Kind: backtest.MarkerSell, Price: 99, Text: "SELL 99.00"},
		{Time: 42, Kind: backtest.MarkerBuy, Price: 1},
	}
	buys, sells := buildMarkers(candles, markers)
	require.Len(t, buys, 5)
	require.Len(t, sells, 5)
	assert.Equal(t, 101.0, buys[1].Value)
	assert.Nil(t, buys[0].Value)
	assert.Equal(t, 99.0, sells[3].Value)
	assert.Nil(t, sells[1].Value)
}

func TestRenderProducesPage(t *testing.T) {
	candles := sampleCandles(40)
	closes := market.Series(candles).Closes()
	macd := indicator.MACD(closes, 12, 26, 9)
	res := backtest.DualMA(candles, backtest.Params{FastLen: 3, SlowLen: 8, Kind: backtest.MAKindEMA}, backtest.DefaultCosts())

	var buf bytes.Buffer
	err := Render(&buf, Input{
		Symbol:   "btcusdt",
		Interval: "1H",
		Candles:  candles,
		Overlays: []Line{{Name: "EMA3", Values: indicator.EMAOf(closes, 3)}},
		Panels:   []Line{{Name: "MACD", Values: macd.MACD}, {Name: "Signal", Values: macd.Signal}},
		Markers:  res.Markers,
		Equity:   res.EquityCurve,
		Subtitle: "dual EMA 3/8",
	})
	require.NoError(t, err)
	html := buf.String()
	assert.Contains(t, html, "BTCUSDT 1H")
	assert.Contains(t, html, "EMA3")
	assert.Contains(t, html, "Equity")
	assert.Contains(t, html, "echarts")
}

func TestRenderRequiresCandles(t *testing.T) {
	_, err := HTML(Input{Symbol: "x"})
	require.Error(t, err)
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "11-14 22:13", formatTime(1_700_000_000, "1H"))
	assert.Equal(t, "2023-11-14", formatTime(1_700_000_000, "1D"))
}

func TestRenderPNG(t *testing.T) {
	if testing.Short() {
		t.Skip("headless chrome render is slow")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		t.Skipf("headless chrome unavailable: %v", err)
	}
	png, err := RenderPNG(ctx, Input{Symbol: "ETHUSDT", Interval: "4H", Candles: sampleCandles(30)})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
