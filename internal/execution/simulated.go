package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tokenagent/internal/ledger"
	"tokenagent/internal/market"
	"tokenagent/internal/metrics"
)

// Simulated fills trades against the in-memory book at the current best
// pair price. Deterministic given the price feed.
type Simulated struct {
	book     *ledger.Book
	data     market.DataSource
	recorder FillRecorder
	log      zerolog.Logger
}

// NewSimulated wires the mock executor; recorder may be nil.
func NewSimulated(book *ledger.Book, data market.DataSource, recorder FillRecorder, log zerolog.Logger) *Simulated {
	return &Simulated{book: book, data: data, recorder: recorder, log: log}
}

// Execute fills the trade against the book and reports the resulting
// position in the returned line.
func (s *Simulated) Execute(ctx context.Context, token market.Token, side Side, usdAmount float64) (string, error) {
	quote, err := s.data.BestPair(ctx, token)
	if err != nil {
		return "", fmt.Errorf("price lookup: %w", err)
	}
	price := quote.PriceUSD

	switch side {
	case Buy:
		units := s.book.BuyFill(token, usdAmount, price)
		pos, _ := s.book.Position(token.Address)
		s.record(token, side, units, price, usdAmount, "")
		s.log.Info().Str("chain", string(token.Chain)).Str("token", token.Short()).
			Float64("qty", units).Float64("px", price).Msg("mock buy fill")
		return fmt.Sprintf("[MOCK FILL] buy %.6f @ $%.6f pos=%.6f@%.6f", units, price, pos.Qty, pos.AvgCost), nil

	case Sell:
		units, realized, flat, err := s.book.SellFill(token, usdAmount, price)
		if err != nil {
			return "", err
		}
		s.record(token, side, units, price, units*price, "")
		s.log.Info().Str("chain", string(token.Chain)).Str("token", token.Short()).
			Float64("qty", units).Float64("px", price).Float64("realized", realized).Msg("mock sell fill")
		if flat {
			return fmt.Sprintf("[MOCK FILL] sell %.6f @ $%.6f | flat | PnL total=%.2f", units, price, s.book.RealizedPnL()), nil
		}
		pos, _ := s.book.Position(token.Address)
		return fmt.Sprintf("[MOCK FILL] sell %.6f @ $%.6f | rem=%.6f", units, price, pos.Qty), nil

	default:
		return "", fmt.Errorf("unknown side %q", side)
	}
}

func (s *Simulated) record(token market.Token, side Side, qty, price, usd float64, tx string) {
	metrics.TradesTotal.WithLabelValues(string(token.Chain), string(side), string(ModeMock)).Inc()
	if s.recorder == nil {
		return
	}
	s.recorder.Record(Fill{
		Ts:       time.Now().UTC(),
		Chain:    token.Chain,
		Token:    token.Address,
		Side:     side,
		Qty:      qty,
		PriceUSD: price,
		USD:      usd,
		Mode:     ModeMock,
		TxHash:   tx,
	})
}
