package indicator

import (
	"math"

	"chartlab/internal/market"
)

// KDJResult 包含随机指标三条线以及中间的 RSV。
type KDJResult struct {
	K   Series
	D   Series
	J   Series
	RSV Series
}

// KDJ 以最近 n 根的最高/最低价计算 RSV，K=EMA(RSV,kLen)，D=EMA(K,dLen)，J=3K-2D。
// 窗口价格完全持平时 RSV 取 50。
func KDJ(candles []market.Candle, n, kLen, dLen int) KDJResult {
	size := len(candles)
	res := KDJResult{
		K:   make(Series, size),
		D:   make(Series, size),
		J:   make(Series, size),
		RSV: make(Series, size),
	}
	if n <= 0 || kLen <= 0 || dLen <= 0 {
		return res
	}
	for i := n - 1; i < size; i++ {
		res.RSV[i] = rsvAt(candles[i-n+1:i+1], candles[i].Close)
	}
	res.K = smooth(res.RSV, kLen, SeedSMA)
	res.D = smooth(res.K, dLen, SeedSMA)
	for i := 0; i < size; i++ {
		if res.K[i].OK && res.D[i].OK {
			res.J[i] = Some(3*res.K[i].V - 2*res.D[i].V)
		}
	}
	return res
}

func rsvAt(win []market.Candle, close float64) Value {
	if !finite(close) {
		return Value{}
	}
	hh, ll := math.Inf(-1), math.Inf(1)
	for _, c := range win {
		if !finite(c.High) || !finite(c.Low) {
			return Value{}
		}
		hh = math.Max(hh, c.High)
		ll = math.Min(ll, c.Low)
	}
	if hh == ll {
		return Some(50)
	}
	return Some((close - ll) / (hh - ll) * 100)
}
