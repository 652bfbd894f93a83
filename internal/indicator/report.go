package indicator

import (
	"fmt"
	"math"

	"chartlab/internal/market"
)

// Settings 描述快照报告使用的参数。
type Settings struct {
	Symbol   string
	Interval string
	EMA      EMASettings
	RSI      RSISettings
}

// EMASettings 描述快慢 EMA 周期。
type EMASettings struct {
	Fast int `json:"fast,omitempty"`
	Slow int `json:"slow,omitempty"`
}

// RSISettings 描述 RSI 周期与超买超卖阈值。
type RSISettings struct {
	Period     int     `json:"period,omitempty"`
	Oversold   float64 `json:"oversold,omitempty"`
	Overbought float64 `json:"overbought,omitempty"`
}

// Reading 保存单个指标的最新值与状态。
type Reading struct {
	Latest Value  `json:"latest"`
	State  string `json:"state,omitempty"`
	Note   string `json:"note,omitempty"`
}

// Report 汇总单个 symbol+interval 的最新指标读数。
type Report struct {
	Symbol   string             `json:"symbol"`
	Interval string             `json:"interval"`
	Count    int                `json:"count"`
	Values   map[string]Reading `json:"values"`
}

// Summarize 计算各指标最后一根 K 线上的读数。未定义的读数状态为 unknown。
func Summarize(candles []market.Candle, cfg Settings) (Report, error) {
	rep := Report{
		Symbol:   cfg.Symbol,
		Interval: cfg.Interval,
		Count:    len(candles),
		Values:   make(map[string]Reading),
	}
	if len(candles) == 0 {
		return rep, fmt.Errorf("no candles")
	}
	if cfg.EMA.Fast <= 0 {
		cfg.EMA.Fast = 12
	}
	if cfg.EMA.Slow <= 0 {
		cfg.EMA.Slow = 26
	}
	if cfg.RSI.Period <= 0 {
		cfg.RSI.Period = 14
	}
	if cfg.RSI.Overbought == 0 {
		cfg.RSI.Overbought = 70
	}
	if cfg.RSI.Oversold == 0 {
		cfg.RSI.Oversold = 30
	}
	series := market.Series(candles)
	closes := series.Closes()
	last := len(candles) - 1
	lastClose := closes[last]

	emaFast := EMAOf(closes, cfg.EMA.Fast).At(last)
	emaSlow := EMAOf(closes, cfg.EMA.Slow).At(last)
	rep.Values["ema_fast"] = Reading{
		Latest: rounded(emaFast),
		State:  relativeState(lastClose, emaFast),
		Note:   fmt.Sprintf("EMA%d vs price", cfg.EMA.Fast),
	}
	rep.Values["ema_slow"] = Reading{
		Latest: rounded(emaSlow),
		State:  relativeState(lastClose, emaSlow),
		Note:   fmt.Sprintf("EMA%d vs price", cfg.EMA.Slow),
	}

	rsi := RSI(closes, cfg.RSI.Period).At(last)
	rsiState := "unknown"
	if rsi.OK {
		rsiState = "neutral"
		switch {
		case rsi.V >= cfg.RSI.Overbought:
			rsiState = "overbought"
		case rsi.V <= cfg.RSI.Oversold:
			rsiState = "oversold"
		}
	}
	rep.Values["rsi"] = Reading{
		Latest: rounded(rsi),
		State:  rsiState,
		Note:   fmt.Sprintf("period=%d thresholds=%.1f/%.1f", cfg.RSI.Period, cfg.RSI.Oversold, cfg.RSI.Overbought),
	}

	macd := MACD(closes, 12, 26, 9)
	hist := macd.Hist.At(last)
	macdState := "unknown"
	if hist.OK {
		macdState = polarityState(hist.V, "bullish", "bearish")
	}
	rep.Values["macd"] = Reading{
		Latest: rounded(macd.MACD.At(last)),
		State:  macdState,
		Note:   fmt.Sprintf("signal=%s hist=%s", fmtValue(macd.Signal.At(last)), fmtValue(hist)),
	}

	kdj := KDJ(candles, 9, 3, 3)
	k := kdj.K.At(last)
	kdjState := "unknown"
	if k.OK {
		kdjState = stochasticState(k.V)
	}
	rep.Values["kdj"] = Reading{
		Latest: rounded(k),
		State:  kdjState,
		Note:   fmt.Sprintf("d=%s j=%s", fmtValue(kdj.D.At(last)), fmtValue(kdj.J.At(last))),
	}

	boll := BOLL(closes, 20, 2)
	rep.Values["boll"] = Reading{
		Latest: rounded(boll.Mid.At(last)),
		State:  bandState(lastClose, boll.Upper.At(last), boll.Lower.At(last)),
		Note:   fmt.Sprintf("upper=%s lower=%s", fmtValue(boll.Upper.At(last)), fmtValue(boll.Lower.At(last))),
	}
	return rep, nil
}

func relativeState(price float64, ref Value) string {
	if !ref.OK || ref.V == 0 {
		return "unknown"
	}
	switch {
	case price > ref.V*1.002:
		return "above"
	case price < ref.V*0.998:
		return "below"
	default:
		return "touch"
	}
}

func polarityState(v float64, pos, neg string) string {
	switch {
	case v > 0:
		return pos
	case v < 0:
		return neg
	default:
		return "flat"
	}
}

func stochasticState(v float64) string {
	switch {
	case v >= 80:
		return "overbought"
	case v <= 20:
		return "oversold"
	default:
		return "neutral"
	}
}

func bandState(price float64, upper, lower Value) string {
	if !upper.OK || !lower.OK {
		return "unknown"
	}
	switch {
	case price > upper.V:
		return "above_upper"
	case price < lower.V:
		return "below_lower"
	default:
		return "inside"
	}
}

func rounded(v Value) Value {
	if !v.OK {
		return v
	}
	return Some(math.Round(v.V*10000) / 10000)
}

func fmtValue(v Value) string {
	if !v.OK {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v.V)
}
