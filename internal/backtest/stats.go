package backtest

import "math"

const secondsPerYear = 365 * 24 * 3600

// MaxDrawdown 返回相对滚动峰值的最大回撤比例。峰值非正或非有限时该点跳过。
func MaxDrawdown(values []float64) float64 {
	peak := math.Inf(-1)
	mdd := 0.0
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		peak = math.Max(peak, v)
		if peak <= 0 {
			continue
		}
		mdd = math.Max(mdd, (peak-v)/peak)
	}
	return mdd
}

// CAGR 近似年化：(1+totalReturn)^(1/years)-1。时间跨度不为正时返回 0。
func CAGR(totalReturn float64, startSec, endSec int64) float64 {
	if endSec <= startSec || !isFinite(totalReturn) {
		return 0
	}
	years := float64(endSec-startSec) / secondsPerYear
	final := math.Max(1+totalReturn, 1e-9)
	out := math.Pow(final, 1/years) - 1
	if !isFinite(out) {
		return 0
	}
	return out
}

// Summarize 从交易记录和权益曲线计算统计；回撤以初始权益 1 作为第一个峰值。
func Summarize(trades []Trade, curve []EquityPoint, startSec, endSec int64) Stats {
	st := Stats{NTrades: len(trades)}
	if len(trades) > 0 {
		wins := 0
		for _, t := range trades {
			if t.PnLPct > 0 {
				wins++
			}
		}
		st.WinRate = float64(wins) / float64(len(trades))
	}
	if len(curve) == 0 {
		return st
	}
	values := make([]float64, 0, len(curve)+1)
	values = append(values, 1)
	for _, p := range curve {
		values = append(values, p.Value)
	}
	st.TotalReturn = curve[len(curve)-1].Value - 1
	st.MaxDrawdown = MaxDrawdown(values)
	st.CAGR = CAGR(st.TotalReturn, startSec, endSec)
	return st
}
