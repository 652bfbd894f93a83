package indicator

import "math"

// BOLLResult 布林带三轨。
type BOLLResult struct {
	Mid   Series
	Upper Series
	Lower Series
}

// BOLL 中轨为 SMA(n)，上下轨为 mid ± mult·σ（总体标准差）。
// mult 非有限或 <=0 时全部未定义。
func BOLL(closes []float64, n int, mult float64) BOLLResult {
	size := len(closes)
	res := BOLLResult{
		Mid:   make(Series, size),
		Upper: make(Series, size),
		Lower: make(Series, size),
	}
	if n <= 0 || !finite(mult) || mult <= 0 {
		return res
	}
	w := newWindow(n)
	for i, x := range closes {
		w.push(x)
		if !w.ready() {
			continue
		}
		mid := w.mean()
		dev := mult * math.Sqrt(w.variance())
		res.Mid[i] = Some(mid)
		res.Upper[i] = Some(mid + dev)
		res.Lower[i] = Some(mid - dev)
	}
	return res
}
