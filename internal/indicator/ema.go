package indicator

import "chartlab/internal/market"

// SeedPolicy 决定 EMA 的起点。
type SeedPolicy int

const (
	// SeedSMA 用前 n 个有效输入的均值作为种子，第一个定义点在 n-1。
	SeedSMA SeedPolicy = iota
	// SeedFirst 用第一个有效输入作为种子，从该点起即有值。
	SeedFirst
)

func (p SeedPolicy) String() string {
	if p == SeedFirst {
		return "first"
	}
	return "sma"
}

// EMA 计算收盘价的指数移动平均（SMA 种子）。
func EMA(candles []market.Candle, n int) Series {
	return EMAOf(market.Series(candles).Closes(), n)
}

// EMAOf 对数值序列计算 EMA（SMA 种子）。n=1 时输出等于输入。
func EMAOf(values []float64, n int) Series {
	return smooth(FromFloats(values), n, SeedSMA)
}

// EMAWithSeed 允许调用方显式选择种子策略。
func EMAWithSeed(values []float64, n int, seed SeedPolicy) Series {
	return smooth(FromFloats(values), n, seed)
}

// smooth is the single EMA recurrence shared by EMA, MACD and KDJ.
// Undefined inputs after seeding produce undefined outputs and leave the state untouched.
func smooth(src Series, n int, seed SeedPolicy) Series {
	out := make(Series, len(src))
	if n <= 0 {
		return out
	}
	k := 2.0 / float64(n+1)
	var (
		ema    float64
		seeded bool
		w      *window
	)
	if seed == SeedSMA {
		w = newWindow(n)
	}
	for i, v := range src {
		if !seeded {
			if seed == SeedFirst {
				if !v.OK {
					continue
				}
				ema, seeded = v.V, true
				out[i] = Some(ema)
				continue
			}
			x := v.V
			if !v.OK {
				x = nan
			}
			w.push(x)
			if w.ready() {
				ema, seeded = w.mean(), true
				out[i] = Some(ema)
			}
			continue
		}
		if !v.OK {
			continue
		}
		next := v.V*k + ema*(1-k)
		if !finite(next) {
			continue
		}
		ema = next
		out[i] = Some(ema)
	}
	return out
}
