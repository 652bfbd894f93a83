package market

import "math"

// Candle 是一根 OHLCV K 线，Time 为秒级时间戳（开盘时间）。
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume,omitempty"`
}

// HasVolume 报告该 K 线是否携带成交量（0 视为数据源未提供）。
func (c Candle) HasVolume() bool {
	return c.Volume > 0 && !math.IsInf(c.Volume, 0)
}

// Finite 报告 OHLC 四个价格是否均为有限值。
func (c Candle) Finite() bool {
	return isFinite(c.Open) && isFinite(c.High) && isFinite(c.Low) && isFinite(c.Close)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
