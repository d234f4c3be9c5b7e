// Package risk guards every trade, manual or signal-driven, with the
// liquidity floor, cooldown, and position-cap checks. Rejections are
// expected outcomes: the caller logs them and moves on.
package risk

import (
	"errors"
	"time"
)

var (
	// ErrNoLiquidity means the feed returned no liquidity figure at all.
	ErrNoLiquidity = errors.New("liquidity unavailable")
	// ErrLowLiquidity means the best pair sits under the configured floor.
	ErrLowLiquidity = errors.New("low liquidity")
	// ErrCooldownActive means the token traded too recently.
	ErrCooldownActive = errors.New("cooldown active")
	// ErrPositionCap means the open position notional already hit the cap.
	ErrPositionCap = errors.New("position cap reached")
)

// Limits are the configured guard-rail values.
type Limits struct {
	MinLiquidityUSD        float64
	Cooldown               time.Duration
	MaxPositionNotionalUSD float64
}

// Request describes one intended trade for gating.
type Request struct {
	Buy            bool
	Simulated      bool
	LiquidityUSD   float64
	LiquidityKnown bool
	PriceUSD       float64
	PositionQty    float64 // currently held units of the token
	LastTrade      time.Time
	Now            time.Time
}

// Gate applies Limits to trade requests.
type Gate struct {
	Limits Limits
}

// Check returns nil when the trade may proceed, or one of the package
// sentinel errors naming the first failed guard. Checks run in order:
// liquidity, cooldown, position cap.
func (g Gate) Check(r Request) error {
	if !r.LiquidityKnown {
		return ErrNoLiquidity
	}
	if r.LiquidityUSD < g.Limits.MinLiquidityUSD {
		return ErrLowLiquidity
	}
	if g.Limits.Cooldown > 0 && !r.LastTrade.IsZero() {
		if r.Now.Sub(r.LastTrade) < g.Limits.Cooldown {
			return ErrCooldownActive
		}
	}
	if r.Buy && r.Simulated && g.Limits.MaxPositionNotionalUSD > 0 {
		if r.PositionQty*r.PriceUSD >= g.Limits.MaxPositionNotionalUSD {
			return ErrPositionCap
		}
	}
	return nil
}

// Reason maps a gate error to the short label used in events and metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNoLiquidity):
		return "no_liquidity"
	case errors.Is(err, ErrLowLiquidity):
		return "low_liquidity"
	case errors.Is(err, ErrCooldownActive):
		return "cooldown"
	case errors.Is(err, ErrPositionCap):
		return "position_cap"
	default:
		return "other"
	}
}
