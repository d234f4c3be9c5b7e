// Package tuner recomputes per-token buy/sell cutoffs from recent score
// and RSI quantiles, so sensitivity tracks each token's own volatility
// regime instead of one global cutoff.
package tuner

import (
	"tokenagent/internal/indicator"
)

const (
	scoreMargin = 0.05
	rsiMargin   = 5.0
)

// Thresholds are the four tuned cutoffs gating buy/sell signals.
type Thresholds struct {
	ScoreBuy  float64
	ScoreSell float64
	RSIBuy    float64
	RSISell   float64
}

// Config carries the tuning schedule and quantile levels.
type Config struct {
	Warmup int // samples required before tuning kicks in
	Every  int // retune once per this many cycles

	ScoreBuyQ  float64
	ScoreSellQ float64
	RSIBuyQ    float64
	RSISellQ   float64
}

func (c Config) withDefaults() Config {
	if c.Warmup <= 0 {
		c.Warmup = 50
	}
	if c.Every <= 0 {
		c.Every = 60
	}
	if c.ScoreBuyQ <= 0 {
		c.ScoreBuyQ = 0.65
	}
	if c.ScoreSellQ <= 0 {
		c.ScoreSellQ = 0.35
	}
	if c.RSIBuyQ <= 0 {
		c.RSIBuyQ = 0.60
	}
	if c.RSISellQ <= 0 {
		c.RSISellQ = 0.40
	}
	return c
}

// Tuner derives thresholds from recent history windows.
type Tuner struct {
	cfg Config
}

func New(cfg Config) *Tuner {
	return &Tuner{cfg: cfg.withDefaults()}
}

// Warmup exposes the configured warmup sample count.
func (t *Tuner) Warmup() int { return t.cfg.Warmup }

// Window is how many recent samples feed each retune.
func (t *Tuner) Window() int {
	if w := 2 * t.cfg.Warmup; w > 180 {
		return w
	}
	return 180
}

// Due reports whether the schedule calls for a retune on this cycle.
func (t *Tuner) Due(cycle int) bool {
	return cycle > 0 && cycle%t.cfg.Every == 0
}

// Retune recomputes thresholds from the supplied score and RSI histories.
// Either half is skipped when its history is still under warmup; changed
// reports whether anything moved. The buy cutoff is always pushed up to
// keep the minimum margin above the sell cutoff.
func (t *Tuner) Retune(current Thresholds, scores, rsis []float64) (Thresholds, bool) {
	out := current
	changed := false

	if len(scores) >= t.cfg.Warmup {
		buy, okB := indicator.Quantile(scores, t.cfg.ScoreBuyQ)
		sell, okS := indicator.Quantile(scores, t.cfg.ScoreSellQ)
		if okB && okS {
			if buy < sell+scoreMargin {
				buy = sell + scoreMargin
			}
			out.ScoreBuy, out.ScoreSell = buy, sell
			changed = true
		}
	}

	if len(rsis) >= t.cfg.Warmup {
		buy, okB := indicator.Quantile(rsis, t.cfg.RSIBuyQ)
		sell, okS := indicator.Quantile(rsis, t.cfg.RSISellQ)
		if okB && okS {
			if buy < sell+rsiMargin {
				buy = sell + rsiMargin
			}
			out.RSIBuy, out.RSISell = buy, sell
			changed = true
		}
	}

	return out, changed
}
