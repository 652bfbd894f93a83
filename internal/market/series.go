package market

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultMaxBars 与上游接口的单次请求上限保持一致。
const DefaultMaxBars = 200

var (
	ErrUnsorted      = errors.New("candle series is not sorted by time")
	ErrDuplicateTime = errors.New("candle series has duplicate timestamps")
)

// ValidationError 指出违反排序约定的位置。
type ValidationError struct {
	Index int
	Time  int64
	Err   error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("candle %d (time=%d): %v", e.Index, e.Time, e.Err)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Series 是按时间升序排列的一组 K 线。
type Series []Candle

func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

func (s Series) Times() []int64 {
	out := make([]int64, len(s))
	for i, c := range s {
		out[i] = c.Time
	}
	return out
}

// Last 返回最后一根 K 线；空序列返回 false。
func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

// Validate 在边界处检查一次时间严格递增且不重复。
// 价格中的 NaN/Inf 不算错误，由指标层按 undefined 处理。
func Validate(candles []Candle) error {
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1].Time, candles[i].Time
		switch {
		case cur == prev:
			return &ValidationError{Index: i, Time: cur, Err: ErrDuplicateTime}
		case cur < prev:
			return &ValidationError{Index: i, Time: cur, Err: ErrUnsorted}
		}
	}
	return nil
}

// Normalize 供数据源适配层使用：剔除非法行、升序排序、按时间去重（后者覆盖前者），
// 并只保留最新的 maxBars 根。
func Normalize(rows []Candle, maxBars int) Series {
	if maxBars <= 0 {
		maxBars = DefaultMaxBars
	}
	out := make(Series, 0, len(rows))
	for _, c := range rows {
		if c.Time <= 0 || !c.Finite() {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	dedup := out[:0]
	for _, c := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time == c.Time {
			dedup[n-1] = c
			continue
		}
		dedup = append(dedup, c)
	}
	if len(dedup) > maxBars {
		dedup = dedup[len(dedup)-maxBars:]
	}
	return dedup
}
