// Package indicator holds the per-token rolling price window and the
// momentum oscillators computed from it.
package indicator

import "math"

const defaultCapacity = 2000

// Window is a bounded ordered sequence of past prices, newest last.
// SMA and RSI report ok=false until enough samples have accumulated;
// callers treat that as "skip this token this cycle".
type Window struct {
	prices   []float64
	capacity int

	rsiLen  int
	avgGain float64
	avgLoss float64
	rsiSeen int // price deltas folded into the Wilder averages
}

// NewWindow builds a window computing RSI over rsiLen deltas, retaining at
// most capacity prices (2000 when capacity <= 0).
func NewWindow(rsiLen, capacity int) *Window {
	if rsiLen <= 0 {
		rsiLen = 14
	}
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Window{capacity: capacity, rsiLen: rsiLen}
}

// Add appends one price sample. Non-positive prices are ignored.
func (w *Window) Add(price float64) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return
	}
	if last, ok := w.Last(); ok {
		w.foldRSI(price - last)
	}
	w.prices = append(w.prices, price)
	if len(w.prices) > w.capacity {
		w.prices = w.prices[len(w.prices)-w.capacity:]
	}
}

// foldRSI updates the Wilder-smoothed average gain/loss with one delta.
func (w *Window) foldRSI(delta float64) {
	gain, loss := 0.0, 0.0
	if delta >= 0 {
		gain = delta
	} else {
		loss = -delta
	}
	w.rsiSeen++
	if w.rsiSeen <= w.rsiLen {
		// seed phase: plain average of the first rsiLen deltas
		w.avgGain += (gain - w.avgGain) / float64(w.rsiSeen)
		w.avgLoss += (loss - w.avgLoss) / float64(w.rsiSeen)
		return
	}
	n := float64(w.rsiLen)
	w.avgGain = (w.avgGain*(n-1) + gain) / n
	w.avgLoss = (w.avgLoss*(n-1) + loss) / n
}

// Len reports how many prices the window currently holds.
func (w *Window) Len() int { return len(w.prices) }

// Last returns the newest price, if any.
func (w *Window) Last() (float64, bool) {
	if len(w.prices) == 0 {
		return 0, false
	}
	return w.prices[len(w.prices)-1], true
}

// SMA returns the arithmetic mean of the last n prices.
func (w *Window) SMA(n int) (float64, bool) {
	if n <= 0 || len(w.prices) < n {
		return 0, false
	}
	var sum float64
	for _, p := range w.prices[len(w.prices)-n:] {
		sum += p
	}
	return sum / float64(n), true
}

// RSI returns the Wilder relative-strength index in [0,100] once at least
// rsiLen+1 samples have been added.
func (w *Window) RSI() (float64, bool) {
	if w.rsiSeen < w.rsiLen {
		return 0, false
	}
	if w.avgLoss == 0 {
		return 100, true
	}
	rs := w.avgGain / w.avgLoss
	return 100 - 100/(1+rs), true
}

// Tail returns a copy of the most recent n prices (all of them if n exceeds
// the window length).
func (w *Window) Tail(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n > len(w.prices) {
		n = len(w.prices)
	}
	out := make([]float64, n)
	copy(out, w.prices[len(w.prices)-n:])
	return out
}
