package risk

import (
	"errors"
	"testing"
	"time"
)

func gate() Gate {
	return Gate{Limits: Limits{
		MinLiquidityUSD:        50000,
		Cooldown:               5 * time.Minute,
		MaxPositionNotionalUSD: 200,
	}}
}

func okRequest(now time.Time) Request {
	return Request{
		Buy:            true,
		Simulated:      true,
		LiquidityUSD:   100000,
		LiquidityKnown: true,
		PriceUSD:       2,
		PositionQty:    0,
		Now:            now,
	}
}

func TestAcceptsCleanRequest(t *testing.T) {
	if err := gate().Check(okRequest(time.Now())); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
}

func TestRejectsUnknownLiquidity(t *testing.T) {
	r := okRequest(time.Now())
	r.LiquidityKnown = false
	if err := gate().Check(r); !errors.Is(err, ErrNoLiquidity) {
		t.Fatalf("expected ErrNoLiquidity, got %v", err)
	}
}

func TestRejectsBelowLiquidityFloor(t *testing.T) {
	r := okRequest(time.Now())
	r.LiquidityUSD = 49999
	if err := gate().Check(r); !errors.Is(err, ErrLowLiquidity) {
		t.Fatalf("expected ErrLowLiquidity, got %v", err)
	}
}

func TestCooldownBoundary(t *testing.T) {
	now := time.Now()
	g := gate()

	r := okRequest(now)
	r.LastTrade = now.Add(-4 * time.Minute)
	if err := g.Check(r); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive inside window, got %v", err)
	}

	r.LastTrade = now.Add(-5 * time.Minute)
	if err := g.Check(r); err != nil {
		t.Fatalf("expected accept exactly at window, got %v", err)
	}
	r.LastTrade = now.Add(-6 * time.Minute)
	if err := g.Check(r); err != nil {
		t.Fatalf("expected accept after window, got %v", err)
	}
}

func TestRejectsPositionCap(t *testing.T) {
	r := okRequest(time.Now())
	r.PositionQty = 150 // 150 * $2 = $300 notional >= $200 cap
	if err := gate().Check(r); !errors.Is(err, ErrPositionCap) {
		t.Fatalf("expected ErrPositionCap, got %v", err)
	}
}

func TestCapSkippedForSellsAndLive(t *testing.T) {
	r := okRequest(time.Now())
	r.PositionQty = 150
	r.Buy = false
	if err := gate().Check(r); err != nil {
		t.Fatalf("sell should not hit cap, got %v", err)
	}
	r.Buy = true
	r.Simulated = false
	if err := gate().Check(r); err != nil {
		t.Fatalf("live buy should not hit mock cap, got %v", err)
	}
}

func TestReasonLabels(t *testing.T) {
	cases := map[error]string{
		ErrNoLiquidity:    "no_liquidity",
		ErrLowLiquidity:   "low_liquidity",
		ErrCooldownActive: "cooldown",
		ErrPositionCap:    "position_cap",
	}
	for err, want := range cases {
		if got := Reason(err); got != want {
			t.Fatalf("Reason(%v)=%s want %s", err, got, want)
		}
	}
}
