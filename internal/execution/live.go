package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tokenagent/internal/market"
	"tokenagent/internal/metrics"
)

// Live sizes the USD notional in the chain's native coin and delegates the
// swap to the on-chain collaborator. A failed swap is reported as an error
// string by the caller; there is no automatic retry.
type Live struct {
	swapper  SwapExecutor
	base     market.BasePriceSource
	recorder FillRecorder
	log      zerolog.Logger
}

// NewLive wires the live executor; recorder may be nil.
func NewLive(swapper SwapExecutor, base market.BasePriceSource, recorder FillRecorder, log zerolog.Logger) *Live {
	return &Live{swapper: swapper, base: base, recorder: recorder, log: log}
}

// SetSlippage forwards a new tolerance to the swap collaborator when it
// supports runtime adjustment.
func (l *Live) SetSlippage(bps int) {
	if s, ok := l.swapper.(interface{ SetSlippage(int) }); ok {
		s.SetSlippage(bps)
	}
}

// Execute submits the swap and returns the transaction id on success.
func (l *Live) Execute(ctx context.Context, token market.Token, side Side, usdAmount float64) (string, error) {
	if l.swapper == nil {
		return "", fmt.Errorf("live executor not wired")
	}

	switch side {
	case Buy:
		basePx, err := l.base.BasePriceUSD(ctx, token.Chain)
		if err != nil {
			return "", fmt.Errorf("base coin price: %w", err)
		}
		baseAmt := usdAmount / basePx
		tx, err := l.swapper.SwapBuy(ctx, token, baseAmt)
		if err != nil {
			return "", fmt.Errorf("swap buy: %w", err)
		}
		l.record(token, side, baseAmt, basePx, usdAmount, tx)
		l.log.Info().Str("chain", string(token.Chain)).Str("token", token.Short()).
			Str("tx", tx).Float64("base", baseAmt).Msg("live buy submitted")
		return fmt.Sprintf("[LIVE] buy $%.2f → base≈%.6f | tx=%s", usdAmount, baseAmt, tx), nil

	case Sell:
		tx, err := l.swapper.SwapSell(ctx, token, usdAmount)
		if err != nil {
			return "", fmt.Errorf("swap sell: %w", err)
		}
		l.record(token, side, 0, 0, usdAmount, tx)
		l.log.Info().Str("chain", string(token.Chain)).Str("token", token.Short()).
			Str("tx", tx).Msg("live sell submitted")
		return fmt.Sprintf("[LIVE] sell ~$%.2f | tx=%s", usdAmount, tx), nil

	default:
		return "", fmt.Errorf("unknown side %q", side)
	}
}

func (l *Live) record(token market.Token, side Side, qty, price, usd float64, tx string) {
	metrics.TradesTotal.WithLabelValues(string(token.Chain), string(side), string(ModeLive)).Inc()
	if l.recorder == nil {
		return
	}
	l.recorder.Record(Fill{
		Ts:       time.Now().UTC(),
		Chain:    token.Chain,
		Token:    token.Address,
		Side:     side,
		Qty:      qty,
		PriceUSD: price,
		USD:      usd,
		Mode:     ModeLive,
		TxHash:   tx,
	})
}
