package evm

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"tokenagent/internal/market"
)

func TestApplySlippageGuardsQuotedOutput(t *testing.T) {
	r := &Router{slippageBps: 100}
	if got := r.applySlippage(big.NewInt(10000)); got.Cmp(big.NewInt(9900)) != 0 {
		t.Fatalf("100bps on 10000 should yield 9900, got %s", got)
	}
	if got := r.applySlippage(big.NewInt(3)); got.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("rounding must floor, got %s", got)
	}

	r.SetSlippage(250)
	if got := r.applySlippage(big.NewInt(10000)); got.Cmp(big.NewInt(9750)) != 0 {
		t.Fatalf("retargeted 250bps should yield 9750, got %s", got)
	}

	r.SetSlippage(0)
	if got := r.applySlippage(big.NewInt(10000)); got.Cmp(big.NewInt(9750)) != 0 {
		t.Fatalf("non-positive retarget must be ignored, got %s", got)
	}
}

func TestFloatToWei(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1, "1000000000000000000"},
		{1.5, "1500000000000000000"},
		{2, "2000000000000000000"},
	}
	for _, c := range cases {
		if got := floatToWei(c.in); got.String() != c.want {
			t.Fatalf("floatToWei(%v)=%s want %s", c.in, got, c.want)
		}
	}
	if floatToWei(0).Sign() != 0 {
		t.Fatalf("zero amount should yield zero wei")
	}
	if floatToWei(1e-19).Sign() != 0 {
		t.Fatalf("sub-wei amount should truncate to zero")
	}
}

func TestDefaultAddressesPerChain(t *testing.T) {
	if got := defaultRouterAddress(market.ChainETH); got != uniswapRouter {
		t.Fatalf("ETH router default mismatch: %s", got)
	}
	if got := defaultWrappedBase(market.ChainETH); got != wethAddress {
		t.Fatalf("ETH wrapped base default mismatch: %s", got)
	}
	if got := defaultRouterAddress(market.ChainBSC); got != pancakeRouter {
		t.Fatalf("BSC router default mismatch: %s", got)
	}
	if got := defaultWrappedBase(market.ChainBSC); got != wbnbAddress {
		t.Fatalf("BSC wrapped base default mismatch: %s", got)
	}
}

func TestNewSkipsUnconfiguredChains(t *testing.T) {
	r, err := New(context.Background(), map[market.Chain]ChainConfig{
		market.ChainETH: {}, // no RPC URL, no key
	}, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if r.Ready(market.ChainETH) || r.Ready(market.ChainBSC) {
		t.Fatalf("no chain should be ready without RPC and key")
	}
	report := r.ReadyReport()
	if !strings.Contains(report, "MISSING") {
		t.Fatalf("report should flag missing backends:\n%s", report)
	}
	if !strings.Contains(report, "100bps") {
		t.Fatalf("non-positive slippage should default to 100bps:\n%s", report)
	}
	if _, err := r.SwapBuy(context.Background(), market.Token{Chain: market.ChainETH, Address: "0xabc"}, 0.01); err == nil {
		t.Fatalf("swap without a backend must fail")
	}
}
