package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func dexServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest/dex/tokens/0xabc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBestPairPicksMostLiquidOnChain(t *testing.T) {
	body := `{"pairs":[
		{"chainId":"bsc","priceUsd":"9.0","liquidity":{"usd":900000}},
		{"chainId":"ethereum","priceUsd":"1.5","liquidity":{"usd":120000}},
		{"chainId":"ethereum","priceUsd":"1.6","liquidity":{"usd":300000}}
	]}`
	srv := dexServer(t, http.StatusOK, body)
	ds := NewDexScreener(srv.URL, zerolog.Nop())

	quote, err := ds.BestPair(context.Background(), Token{Chain: ChainETH, Address: "0xabc"})
	if err != nil {
		t.Fatalf("BestPair failed: %v", err)
	}
	if quote.PriceUSD != 1.6 || quote.LiquidityUSD != 300000 {
		t.Fatalf("expected most liquid ethereum pair, got %+v", quote)
	}
}

func TestBestPairFallsBackToPriceNative(t *testing.T) {
	body := `{"pairs":[{"chainId":"ethereum","priceNative":"0.002","liquidity":{"usd":80000}}]}`
	srv := dexServer(t, http.StatusOK, body)
	ds := NewDexScreener(srv.URL, zerolog.Nop())

	quote, err := ds.BestPair(context.Background(), Token{Chain: ChainETH, Address: "0xabc"})
	if err != nil {
		t.Fatalf("BestPair failed: %v", err)
	}
	if quote.PriceUSD != 0.002 {
		t.Fatalf("expected native price fallback, got %+v", quote)
	}
}

func TestBestPairSinglePairObject(t *testing.T) {
	body := `{"pair":{"chainId":"ethereum","priceUsd":"2.5","liquidity":{"usd":60000}}}`
	srv := dexServer(t, http.StatusOK, body)
	ds := NewDexScreener(srv.URL, zerolog.Nop())

	quote, err := ds.BestPair(context.Background(), Token{Chain: ChainETH, Address: "0xabc"})
	if err != nil {
		t.Fatalf("BestPair failed: %v", err)
	}
	if quote.PriceUSD != 2.5 {
		t.Fatalf("expected single-pair quote, got %+v", quote)
	}
}

func TestBestPairEmptyResponse(t *testing.T) {
	srv := dexServer(t, http.StatusOK, `{"pairs":[]}`)
	ds := NewDexScreener(srv.URL, zerolog.Nop())
	if _, err := ds.BestPair(context.Background(), Token{Chain: ChainETH, Address: "0xabc"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestBestPairBadStatus(t *testing.T) {
	srv := dexServer(t, http.StatusTooManyRequests, "")
	ds := NewDexScreener(srv.URL, zerolog.Nop())
	if _, err := ds.BestPair(context.Background(), Token{Chain: ChainETH, Address: "0xabc"}); err == nil {
		t.Fatalf("expected error on non-200 status")
	}
}

func TestBestPairEmptyAddress(t *testing.T) {
	ds := NewDexScreener("http://127.0.0.1:0", zerolog.Nop())
	if _, err := ds.BestPair(context.Background(), Token{Chain: ChainETH}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for empty address, got %v", err)
	}
}

func TestTokenShortMasksAddress(t *testing.T) {
	tok := Token{Chain: ChainETH, Address: "0x1234567890abcdef1234567890abcdef12345678"}
	if got := tok.Short(); got != "0x1234...5678" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := (Token{}).Short(); got != "(none)" {
		t.Fatalf("empty address should render (none), got %q", got)
	}
}
