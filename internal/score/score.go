// Package score maintains the per-token adaptive momentum score.
package score

import "math"

const defaultHistory = 2000

// Scorer folds price returns into a [0,1] scalar via an exponentially
// weighted update. The score is a heuristic momentum proxy, not a
// calibrated probability; treat it as an approximation.
type Scorer struct {
	alpha   float64
	score   float64
	history []float64
	cap     int
}

// NewScorer builds a scorer with smoothing factor alpha (0.2 when alpha is
// out of (0,1)) and a bounded score history for quantile tuning.
func NewScorer(alpha float64, historyCap int) *Scorer {
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.2
	}
	if historyCap <= 0 {
		historyCap = defaultHistory
	}
	return &Scorer{alpha: alpha, score: 0.5, cap: historyCap}
}

// Update folds one fractional price return into the score.
func (s *Scorer) Update(ret float64) {
	sig := 0.5 + 0.5*math.Tanh(25*ret)
	s.score = (1-s.alpha)*s.score + s.alpha*sig
	s.history = append(s.history, s.score)
	if len(s.history) > s.cap {
		s.history = s.history[len(s.history)-s.cap:]
	}
}

// ProbUp returns the current score.
func (s *Scorer) ProbUp() float64 { return s.score }

// HistoryLen reports how many score samples are retained.
func (s *Scorer) HistoryLen() int { return len(s.history) }

// HistoryTail returns a copy of the most recent n score samples.
func (s *Scorer) HistoryTail(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n > len(s.history) {
		n = len(s.history)
	}
	out := make([]float64, n)
	copy(out, s.history[len(s.history)-n:])
	return out
}
