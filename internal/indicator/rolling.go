package indicator

import "math"

// window is a fixed-size ring over the trailing n inputs with running sum and
// sum of squares. Non-finite members are counted, never accumulated.
type window struct {
	buf   []float64
	head  int
	count int
	bad   int
	sum   float64
	sumSq float64
}

func newWindow(size int) *window {
	return &window{buf: make([]float64, size)}
}

func (w *window) push(x float64) {
	dirty := w.bad > 0
	if w.count == len(w.buf) {
		old := w.buf[w.head]
		if finite(old) {
			w.sum -= old
			w.sumSq -= old * old
		} else {
			w.bad--
		}
	} else {
		w.count++
	}
	w.buf[w.head] = x
	w.head = (w.head + 1) % len(w.buf)
	if finite(x) {
		w.sum += x
		w.sumSq += x * x
	} else {
		w.bad++
	}
	// 最后一个坏值离开窗口后重新求和，丢弃累计误差
	if dirty && w.bad == 0 {
		w.resync()
	}
}

func (w *window) resync() {
	w.sum, w.sumSq = 0, 0
	for i := 0; i < w.count; i++ {
		x := w.buf[i]
		w.sum += x
		w.sumSq += x * x
	}
}

// ready reports a full window with no non-finite members.
func (w *window) ready() bool {
	return w.count == len(w.buf) && w.bad == 0
}

func (w *window) mean() float64 {
	return w.sum / float64(len(w.buf))
}

// variance is the population variance, clamped at zero.
func (w *window) variance() float64 {
	n := float64(len(w.buf))
	m := w.sum / n
	v := w.sumSq/n - m*m
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
