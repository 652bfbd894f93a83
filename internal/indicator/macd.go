package indicator

// MACDResult 三条线与输入逐下标对齐。
type MACDResult struct {
	MACD   Series
	Signal Series
	Hist   Series
}

// MACD 计算 EMA(fast)-EMA(slow)，signal 为其 EMA，hist 为两者之差。
// 预热期 macd 尚未定义的位置以 0 喂给 signal 的 EMA；
// 之后的缺口保持未定义，signal 在缺口处跳过而不被 0 拉低。
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	n := len(closes)
	res := MACDResult{
		MACD:   make(Series, n),
		Signal: make(Series, n),
		Hist:   make(Series, n),
	}
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return res
	}
	src := FromFloats(closes)
	emaFast := smooth(src, fast, SeedSMA)
	emaSlow := smooth(src, slow, SeedSMA)
	feed := make(Series, n)
	started := false
	for i := 0; i < n; i++ {
		if emaFast[i].OK && emaSlow[i].OK {
			res.MACD[i] = Some(emaFast[i].V - emaSlow[i].V)
		}
		switch {
		case res.MACD[i].OK:
			started = true
			feed[i] = res.MACD[i]
		case !started:
			feed[i] = Value{V: 0, OK: true}
		}
	}
	res.Signal = smooth(feed, signal, SeedSMA)
	for i := 0; i < n; i++ {
		if res.MACD[i].OK && res.Signal[i].OK {
			res.Hist[i] = Some(res.MACD[i].V - res.Signal[i].V)
		}
	}
	return res
}
