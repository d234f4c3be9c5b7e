// Package market defines the data collaborators the trading engine consumes:
// per-token price/liquidity quotes and base-coin USD prices for live sizing.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Chain identifies which EVM network a token lives on.
type Chain string

const (
	ChainETH Chain = "ETH"
	ChainBSC Chain = "BSC"
)

// ParseChain normalizes operator input into a Chain, defaulting to ETH.
func ParseChain(s string) Chain {
	if strings.EqualFold(strings.TrimSpace(s), string(ChainBSC)) {
		return ChainBSC
	}
	return ChainETH
}

// Token is a chain-qualified ERC-20/BEP-20 address.
type Token struct {
	Chain   Chain
	Address string
}

// Short returns a masked form of the address for logs and events.
func (t Token) Short() string {
	addr := t.Address
	if addr == "" {
		return "(none)"
	}
	if len(addr) <= 12 {
		return addr
	}
	return fmt.Sprintf("%s...%s", addr[:6], addr[len(addr)-4:])
}

// Quote is one (price, liquidity) observation for a token's best pair.
type Quote struct {
	PriceUSD     float64
	LiquidityUSD float64
}

// ErrUnavailable reports that the data source returned nothing usable.
// Callers treat it as "skip this token this cycle", never as fatal.
var ErrUnavailable = errors.New("market data unavailable")

// DataSource resolves the most liquid known pair for a token.
type DataSource interface {
	BestPair(ctx context.Context, token Token) (Quote, error)
}

// BasePriceSource resolves the USD price of a chain's native coin
// (ETH or BNB), used to size live trades.
type BasePriceSource interface {
	BasePriceUSD(ctx context.Context, chain Chain) (float64, error)
}
