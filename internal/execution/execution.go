// Package execution abstracts trade placement behind one interface with a
// simulated ledger implementation and a live DEX swap implementation.
package execution

import (
	"context"
	"time"

	"tokenagent/internal/market"
)

// Side enumerates trade directions.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Mode names which executor produced a fill.
type Mode string

const (
	ModeMock Mode = "mock"
	ModeLive Mode = "live"
)

// Fill records one completed (simulated or real) execution.
type Fill struct {
	Ts       time.Time    `json:"ts"`
	Chain    market.Chain `json:"chain"`
	Token    string       `json:"token"`
	Side     Side         `json:"side"`
	Qty      float64      `json:"qty"`
	PriceUSD float64      `json:"price_usd"`
	USD      float64      `json:"usd"`
	Mode     Mode         `json:"mode"`
	TxHash   string       `json:"tx_hash,omitempty"`
}

// FillRecorder captures fills for later inspection. Implementations must
// never block the trading path on failure.
type FillRecorder interface {
	Record(Fill)
}

// Executor places one trade worth usdAmount and returns a short
// human-readable result line. Errors are reported, never retried here.
type Executor interface {
	Execute(ctx context.Context, token market.Token, side Side, usdAmount float64) (string, error)
}

// SwapExecutor is the on-chain collaborator the live executor delegates to.
// Buy spends an amount of the chain's native coin; sell transacts the full
// held token balance, with the usd hint kept for reporting parity.
type SwapExecutor interface {
	SwapBuy(ctx context.Context, token market.Token, baseAmount float64) (string, error)
	SwapSell(ctx context.Context, token market.Token, usdHint float64) (string, error)
}
