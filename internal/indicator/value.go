package indicator

import (
	"encoding/json"
	"math"
)

// Value 是一个可能未定义的指标点。OK=false 表示该位置尚未算出（预热不足或输入无效）。
type Value struct {
	V  float64
	OK bool
}

// Some 包装一个已定义的值；非有限数会被视为未定义。
func Some(v float64) Value {
	if !finite(v) {
		return Value{}
	}
	return Value{V: v, OK: true}
}

// None 返回未定义值。
func None() Value { return Value{} }

// Get 返回数值和是否已定义。
func (v Value) Get() (float64, bool) { return v.V, v.OK }

// Or 在未定义时返回 def。
func (v Value) Or(def float64) float64 {
	if !v.OK {
		return def
	}
	return v.V
}

// MarshalJSON 把未定义值编码为 null。
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.OK {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

// UnmarshalJSON 接受数字或 null。
func (v *Value) UnmarshalJSON(data []byte) error {
	var f *float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if f == nil {
		*v = Value{}
		return nil
	}
	*v = Some(*f)
	return nil
}

// Series 与输入 K 线逐下标对齐。
type Series []Value

// FromFloats 把原始数值转成序列，非有限数记为未定义。
func FromFloats(values []float64) Series {
	out := make(Series, len(values))
	for i, v := range values {
		out[i] = Some(v)
	}
	return out
}

// Floats 转成 talib 风格的切片，未定义位置为 NaN。
func (s Series) Floats() []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		if v.OK {
			out[i] = v.V
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// At 越界时返回未定义。
func (s Series) At(i int) Value {
	if i < 0 || i >= len(s) {
		return Value{}
	}
	return s[i]
}

// Defined 统计已定义的点数。
func (s Series) Defined() int {
	n := 0
	for _, v := range s {
		if v.OK {
			n++
		}
	}
	return n
}

// FirstDefined 返回第一个已定义的下标，没有则为 -1。
func (s Series) FirstDefined() int {
	for i, v := range s {
		if v.OK {
			return i
		}
	}
	return -1
}

// Last 返回最后一个已定义的值。
func (s Series) Last() Value {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].OK {
			return s[i]
		}
	}
	return Value{}
}

var nan = math.NaN()

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
