package tuner

import (
	"math/rand"
	"testing"
)

func baseline() Thresholds {
	return Thresholds{ScoreBuy: 0.55, ScoreSell: 0.45, RSIBuy: 55, RSISell: 45}
}

func TestRetuneKeepsMargins(t *testing.T) {
	tun := New(Config{Warmup: 50, Every: 60})
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 20; trial++ {
		scores := make([]float64, 120)
		rsis := make([]float64, 120)
		for i := range scores {
			scores[i] = rng.Float64()
			rsis[i] = rng.Float64() * 100
		}
		out, changed := tun.Retune(baseline(), scores, rsis)
		if !changed {
			t.Fatalf("expected retune with full histories")
		}
		if out.ScoreBuy < out.ScoreSell+0.05-1e-9 {
			t.Fatalf("score margin violated: buy=%f sell=%f", out.ScoreBuy, out.ScoreSell)
		}
		if out.RSIBuy < out.RSISell+5-1e-9 {
			t.Fatalf("rsi margin violated: buy=%f sell=%f", out.RSIBuy, out.RSISell)
		}
	}
}

func TestRetuneDegenerateInputs(t *testing.T) {
	tun := New(Config{Warmup: 50, Every: 60})
	scores := make([]float64, 100)
	rsis := make([]float64, 100)
	for i := range scores {
		scores[i] = 0.5
		rsis[i] = 50
	}
	out, changed := tun.Retune(baseline(), scores, rsis)
	if !changed {
		t.Fatalf("expected retune")
	}
	if out.ScoreBuy < out.ScoreSell+0.05-1e-9 {
		t.Fatalf("score margin violated on flat input: %+v", out)
	}
	if out.RSIBuy < out.RSISell+5-1e-9 {
		t.Fatalf("rsi margin violated on flat input: %+v", out)
	}
}

func TestRetuneSkipsUnderWarmup(t *testing.T) {
	tun := New(Config{Warmup: 50, Every: 60})
	out, changed := tun.Retune(baseline(), make([]float64, 10), make([]float64, 10))
	if changed {
		t.Fatalf("expected no change under warmup")
	}
	if out != baseline() {
		t.Fatalf("thresholds should be untouched, got %+v", out)
	}
}

func TestDueSchedule(t *testing.T) {
	tun := New(Config{Warmup: 50, Every: 60})
	if tun.Due(0) {
		t.Fatalf("cycle 0 should not be due")
	}
	if tun.Due(59) {
		t.Fatalf("cycle 59 should not be due")
	}
	if !tun.Due(60) || !tun.Due(120) {
		t.Fatalf("multiples of every should be due")
	}
}

func TestWindowFloor(t *testing.T) {
	if got := New(Config{Warmup: 50, Every: 60}).Window(); got != 180 {
		t.Fatalf("expected floor 180 for warmup 50, got %d", got)
	}
	if got := New(Config{Warmup: 120, Every: 60}).Window(); got != 240 {
		t.Fatalf("expected 2x warmup 240, got %d", got)
	}
}
