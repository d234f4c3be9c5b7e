// Package ledger tracks simulated positions and realized PnL for mock-mode
// trading. All fills are deterministic given the price feed; nothing here
// touches a chain.
package ledger

import (
	"errors"
	"sync"
	"time"

	"tokenagent/internal/market"
)

const epsilon = 1e-12

// ErrNoPosition is returned when selling a token with nothing held.
var ErrNoPosition = errors.New("no position")

// Position is the held quantity and average unit cost for one token.
type Position struct {
	Qty      float64
	AvgCost  float64
	Chain    market.Chain
	OpenedAt time.Time
}

// Notional is the USD value of the position at the given price.
func (p Position) Notional(price float64) float64 { return p.Qty * price }

// Book owns the per-token position map and the running realized PnL total.
type Book struct {
	mu        sync.Mutex
	positions map[string]Position
	realized  float64
}

func NewBook() *Book {
	return &Book{positions: make(map[string]Position)}
}

// BuyFill converts usd at price into units and folds them into the position
// with the weighted-average-cost rule. Returns the filled quantity.
func (b *Book) BuyFill(token market.Token, usd, price float64) float64 {
	if usd <= 0 || price <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	pos := b.positions[token.Address]
	units := usd / price
	newQty := pos.Qty + units
	pos.AvgCost = (pos.AvgCost*pos.Qty + usd) / newQty
	pos.Qty = newQty
	pos.Chain = token.Chain
	if pos.OpenedAt.IsZero() {
		pos.OpenedAt = time.Now().UTC()
	}
	b.positions[token.Address] = pos
	return units
}

// SellFill sells min(held, usd/price) units at price, realizing PnL against
// the average cost. flat reports whether the position was fully closed.
func (b *Book) SellFill(token market.Token, usd, price float64) (units, realized float64, flat bool, err error) {
	if price <= 0 {
		return 0, 0, false, errors.New("price must be positive")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[token.Address]
	if !ok || pos.Qty <= epsilon {
		return 0, 0, false, ErrNoPosition
	}
	units = usd / price
	if units > pos.Qty {
		units = pos.Qty
	}
	realized = units * (price - pos.AvgCost)
	b.realized += realized
	pos.Qty -= units
	if pos.Qty <= epsilon {
		delete(b.positions, token.Address)
		return units, realized, true, nil
	}
	b.positions[token.Address] = pos
	return units, realized, false, nil
}

// Position returns the current position for a token address.
func (b *Book) Position(address string) (Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.positions[address]
	return pos, ok
}

// HasPosition reports whether any quantity is held for the address.
func (b *Book) HasPosition(address string) bool {
	pos, ok := b.Position(address)
	return ok && pos.Qty > epsilon
}

// Positions returns a copy of the full position map.
func (b *Book) Positions() map[string]Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]Position, len(b.positions))
	for addr, pos := range b.positions {
		out[addr] = pos
	}
	return out
}

// RealizedPnL returns the running USD total realized across all sells.
func (b *Book) RealizedPnL() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.realized
}

// Restore replaces book state from a persisted snapshot.
func (b *Book) Restore(positions map[string]Position, realized float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions = make(map[string]Position, len(positions))
	for addr, pos := range positions {
		if pos.Qty > epsilon {
			b.positions[addr] = pos
		}
	}
	b.realized = realized
}
