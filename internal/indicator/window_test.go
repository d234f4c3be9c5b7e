package indicator

import (
	"math"
	"testing"
)

func TestSMAExactMeanAndShift(t *testing.T) {
	w := NewWindow(14, 100)
	for _, p := range []float64{1, 2, 3, 4, 5} {
		w.Add(p)
	}
	sma, ok := w.SMA(3)
	if !ok {
		t.Fatalf("expected sma available")
	}
	if math.Abs(sma-4) > 1e-12 {
		t.Fatalf("expected sma 4, got %f", sma)
	}
	w.Add(6)
	sma, _ = w.SMA(3)
	if math.Abs(sma-5) > 1e-12 {
		t.Fatalf("expected shifted sma 5, got %f", sma)
	}
}

func TestSMAUnavailableWithFewSamples(t *testing.T) {
	w := NewWindow(14, 100)
	w.Add(1)
	w.Add(2)
	if _, ok := w.SMA(3); ok {
		t.Fatalf("expected sma unavailable with 2 samples")
	}
}

func TestRSIAvailabilityBoundary(t *testing.T) {
	w := NewWindow(14, 100)
	for i := 0; i < 14; i++ {
		w.Add(100 + float64(i))
		if _, ok := w.RSI(); ok {
			t.Fatalf("rsi should be unavailable at %d samples", i+1)
		}
	}
	w.Add(115) // sample 15 = lookback+1
	rsi, ok := w.RSI()
	if !ok {
		t.Fatalf("rsi should be available at lookback+1 samples")
	}
	if rsi < 0 || rsi > 100 || math.IsNaN(rsi) {
		t.Fatalf("rsi out of range: %f", rsi)
	}
}

func TestRSIExtremes(t *testing.T) {
	up := NewWindow(14, 100)
	for i := 0; i < 30; i++ {
		up.Add(1 + float64(i)*0.01)
	}
	rsi, ok := up.RSI()
	if !ok || rsi != 100 {
		t.Fatalf("monotonic gains should pin rsi at 100, got %f", rsi)
	}

	down := NewWindow(14, 100)
	for i := 0; i < 30; i++ {
		down.Add(10 - float64(i)*0.1)
	}
	rsi, ok = down.RSI()
	if !ok || rsi > 1 {
		t.Fatalf("monotonic losses should drive rsi toward 0, got %f", rsi)
	}
}

func TestAddIgnoresBadPrices(t *testing.T) {
	w := NewWindow(14, 100)
	w.Add(0)
	w.Add(-1)
	w.Add(math.NaN())
	if w.Len() != 0 {
		t.Fatalf("bad prices should be ignored, len=%d", w.Len())
	}
}

func TestWindowCapacity(t *testing.T) {
	w := NewWindow(14, 10)
	for i := 1; i <= 25; i++ {
		w.Add(float64(i))
	}
	if w.Len() != 10 {
		t.Fatalf("expected capped length 10, got %d", w.Len())
	}
	last, _ := w.Last()
	if last != 25 {
		t.Fatalf("expected newest sample 25, got %f", last)
	}
}

func TestQuantile(t *testing.T) {
	if _, ok := Quantile(nil, 0.5); ok {
		t.Fatalf("empty input should report not ok")
	}
	vals := []float64{5, 1, 3, 2, 4}
	q, ok := Quantile(vals, 0.5)
	if !ok || q != 3 {
		t.Fatalf("expected median 3, got %f", q)
	}
	if q, _ := Quantile(vals, 0); q != 1 {
		t.Fatalf("expected min 1, got %f", q)
	}
	if q, _ := Quantile(vals, 1); q != 5 {
		t.Fatalf("expected max 5, got %f", q)
	}
}
