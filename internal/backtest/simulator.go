package backtest

import (
	"fmt"
	"math"

	"chartlab/internal/indicator"
	"chartlab/internal/market"
)

// Run 按双均线交叉回放 K 线：fast 上穿 slow 开多，下穿平仓。
// 每根 K 线（从下标 1 起）恰好输出一个权益点；任一信号未定义时该根不触发任何状态变化。
// 结束时仍持仓则按最后收盘价强制平仓，并计入最后一个权益点。
func Run(candles []market.Candle, fast, slow indicator.Series, costs Costs) Result {
	res := Result{
		Trades:      []Trade{},
		EquityCurve: []EquityPoint{},
		Markers:     []Marker{},
	}
	if len(candles) < 2 {
		return res
	}
	fee, slip := costs.rates()
	var (
		side      = SideFlat
		entryPx   float64
		entryTime int64
		equity    = 1.0
	)
	exit := func(c market.Candle, forced bool) {
		exitPx := c.Close * (1 - slip)
		net := (exitPx-entryPx)/entryPx - fee
		equity *= 1 + net
		res.Trades = append(res.Trades, Trade{
			EntryTime:  entryTime,
			ExitTime:   c.Time,
			EntryPrice: entryPx,
			ExitPrice:  exitPx,
			Side:       SideLong,
			PnLPct:     net,
			Forced:     forced,
		})
		res.Markers = append(res.Markers, Marker{Time: c.Time, Kind: MarkerSell, Price: exitPx, Text: fmt.Sprintf("SELL %.2f", exitPx)})
		side, entryPx, entryTime = SideFlat, 0, 0
	}

	last := len(candles) - 1
	for i := 1; i <= last; i++ {
		c := candles[i]
		up, down, ok := crossAt(fast, slow, i)
		if ok && isFinite(c.Close) && c.Close > 0 {
			switch {
			case side == SideFlat && up:
				entryPx = c.Close * (1 + slip)
				entryTime = c.Time
				side = SideLong
				equity *= 1 - fee
				res.Markers = append(res.Markers, Marker{Time: c.Time, Kind: MarkerBuy, Price: entryPx, Text: fmt.Sprintf("BUY %.2f", entryPx)})
			case side == SideLong && down:
				exit(c, false)
			}
		}
		if i == last && side == SideLong {
			exitBar := c
			exitBar.Close = lastFiniteClose(candles, entryPx/(1+slip))
			exit(exitBar, true)
		}
		res.EquityCurve = append(res.EquityCurve, EquityPoint{Time: c.Time, Value: equity})
	}

	res.Stats = Summarize(res.Trades, res.EquityCurve, candles[0].Time, candles[last].Time)
	return res
}

// crossAt reports an upward/downward cross confirmed over bars i-1 and i.
// ok is false when any of the four values is undefined.
func crossAt(fast, slow indicator.Series, i int) (up, down, ok bool) {
	f0, s0 := fast.At(i-1), slow.At(i-1)
	f1, s1 := fast.At(i), slow.At(i)
	if !f0.OK || !s0.OK || !f1.OK || !s1.OK {
		return false, false, false
	}
	up = f0.V <= s0.V && f1.V > s1.V
	down = f0.V >= s0.V && f1.V < s1.V
	return up, down, true
}

// lastFiniteClose 从后往前找第一个可用收盘价，找不到时返回 fallback。
func lastFiniteClose(candles []market.Candle, fallback float64) float64 {
	for i := len(candles) - 1; i >= 0; i-- {
		if c := candles[i].Close; isFinite(c) && c > 0 {
			return c
		}
	}
	return fallback
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
