package indicator

// RSI 使用 Wilder 平滑。前 n 个有效涨跌的均值作为种子，第一个定义点在 n。
// 平均跌幅为 0 时取 100。
func RSI(closes []float64, n int) Series {
	out := make(Series, len(closes))
	if n <= 0 {
		return out
	}
	period := float64(n)
	var (
		sumGain, sumLoss float64
		avgGain, avgLoss float64
		count            int
		seeded           bool
	)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if !finite(prev) || !finite(cur) {
			continue
		}
		change := cur - prev
		if !finite(change) {
			continue
		}
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		if !seeded {
			sumGain += gain
			sumLoss += loss
			count++
			if count < n {
				continue
			}
			avgGain, avgLoss = sumGain/period, sumLoss/period
			seeded = true
		} else {
			avgGain = (avgGain*(period-1) + gain) / period
			avgLoss = (avgLoss*(period-1) + loss) / period
		}
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) Value {
	if avgLoss == 0 {
		return Some(100)
	}
	return Some(100 - 100/(1+avgGain/avgLoss))
}
