package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultDexScreenerBaseURL = "https://api.dexscreener.com"

// chain ids as Dexscreener reports them
var dexscreenerChainIDs = map[Chain]string{
	ChainETH: "ethereum",
	ChainBSC: "bsc",
}

// DexScreener polls the Dexscreener token endpoint and selects the most
// liquid pair for each token.
type DexScreener struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewDexScreener builds a client; baseURL may be empty for the public API.
func NewDexScreener(baseURL string, log zerolog.Logger) *DexScreener {
	if baseURL == "" {
		baseURL = defaultDexScreenerBaseURL
	}
	return &DexScreener{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 12 * time.Second},
		log:     log,
	}
}

type dexscreenerPairsResponse struct {
	Pairs []dexscreenerPair `json:"pairs"`
	Pair  *dexscreenerPair  `json:"pair"`
}

type dexscreenerPair struct {
	ChainID     string               `json:"chainId"`
	PairAddress string               `json:"pairAddress"`
	PriceUsd    string               `json:"priceUsd"`
	PriceNative string               `json:"priceNative"`
	Liquidity   dexscreenerLiquidity `json:"liquidity"`
}

type dexscreenerLiquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// BestPair returns the quote for the highest-liquidity pair of the token.
// Pairs on other chains are ignored when any pair matches the token's chain.
func (d *DexScreener) BestPair(ctx context.Context, token Token) (Quote, error) {
	addr := strings.TrimSpace(token.Address)
	if addr == "" {
		return Quote{}, ErrUnavailable
	}
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", d.baseURL, addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "tokenagent/1.0")
	resp, err := d.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload dexscreenerPairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("decode response: %w", err)
	}
	pairs := payload.Pairs
	if len(pairs) == 0 && payload.Pair != nil {
		pairs = []dexscreenerPair{*payload.Pair}
	}
	if len(pairs) == 0 {
		return Quote{}, ErrUnavailable
	}

	best := selectBestPair(pairs, dexscreenerChainIDs[token.Chain])
	if best == nil {
		return Quote{}, ErrUnavailable
	}
	price, ok := parseDexScreenerPrice(best)
	if !ok {
		return Quote{}, ErrUnavailable
	}
	return Quote{PriceUSD: price, LiquidityUSD: best.Liquidity.USD}, nil
}

func selectBestPair(pairs []dexscreenerPair, chainID string) *dexscreenerPair {
	var best *dexscreenerPair
	bestLiq := -1.0
	matched := false
	for i := range pairs {
		p := &pairs[i]
		onChain := chainID == "" || strings.EqualFold(p.ChainID, chainID)
		if matched && !onChain {
			continue
		}
		if onChain && !matched {
			// first on-chain pair beats any off-chain candidate
			matched = true
			best, bestLiq = p, p.Liquidity.USD
			continue
		}
		if p.Liquidity.USD > bestLiq {
			best, bestLiq = p, p.Liquidity.USD
		}
	}
	return best
}

func parseDexScreenerPrice(pair *dexscreenerPair) (float64, bool) {
	if pair.PriceUsd != "" {
		if px, err := strconv.ParseFloat(pair.PriceUsd, 64); err == nil && px > 0 {
			return px, true
		}
	}
	if pair.PriceNative != "" {
		if px, err := strconv.ParseFloat(pair.PriceNative, 64); err == nil && px > 0 {
			return px, true
		}
	}
	return 0, false
}
