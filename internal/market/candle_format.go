package market

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TimeString 以 UTC 展示 K 线时间。
func (c Candle) TimeString() string {
	if c.Time <= 0 {
		return "-"
	}
	return time.Unix(c.Time, 0).UTC().Format("01-02 15:04") + "Z"
}

// Summary 生成一行文字快照：最新价、区间涨跌与高低点，用于日志。
func (s Series) Summary(interval string) string {
	if len(s) == 0 {
		return ""
	}
	first := s[0]
	last := s[len(s)-1]
	base := first.Close
	if base == 0 {
		base = first.Open
	}
	low := math.MaxFloat64
	high := -math.MaxFloat64
	for _, bar := range s {
		if bar.Low < low {
			low = bar.Low
		}
		if bar.High > high {
			high = bar.High
		}
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("bars=%d close=%s", len(s), formatFloat(last.Close)))
	iv := strings.TrimSpace(interval)
	if iv == "" {
		iv = "window"
	}
	if base != 0 {
		sb.WriteString(fmt.Sprintf(" (%+.2f%%/%s)", (last.Close-base)/base*100, iv))
	}
	if low != math.MaxFloat64 && high != -math.MaxFloat64 {
		sb.WriteString(fmt.Sprintf(" range=%s–%s", formatFloat(low), formatFloat(high)))
	}
	sb.WriteString(fmt.Sprintf(" %s→%s", first.TimeString(), last.TimeString()))
	return sb.String()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}
