package indicator

import "chartlab/internal/market"

// SMA 计算收盘价的简单移动平均，第一个定义点在 n-1。
func SMA(candles []market.Candle, n int) Series {
	return SMAOf(market.Series(candles).Closes(), n)
}

// SMAOf 对任意数值序列计算简单移动平均。窗口内出现非有限值时该点未定义。
func SMAOf(values []float64, n int) Series {
	out := make(Series, len(values))
	if n <= 0 {
		return out
	}
	w := newWindow(n)
	for i, x := range values {
		w.push(x)
		if w.ready() {
			out[i] = Some(w.mean())
		}
	}
	return out
}
