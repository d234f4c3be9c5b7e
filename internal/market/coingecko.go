package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultCoinGeckoBaseURL = "https://api.coingecko.com"

var coingeckoIDs = map[Chain]string{
	ChainETH: "ethereum",
	ChainBSC: "binancecoin",
}

// CoinGecko resolves base-coin USD prices from the public simple/price API.
type CoinGecko struct {
	baseURL string
	client  *http.Client
}

func NewCoinGecko(baseURL string) *CoinGecko {
	if baseURL == "" {
		baseURL = defaultCoinGeckoBaseURL
	}
	return &CoinGecko{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// BasePriceUSD returns the USD price of the chain's native coin.
func (c *CoinGecko) BasePriceUSD(ctx context.Context, chain Chain) (float64, error) {
	id, ok := coingeckoIDs[chain]
	if !ok {
		return 0, fmt.Errorf("no coingecko id for chain %s", chain)
	}
	url := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	px := payload[id]["usd"]
	if px <= 0 {
		return 0, ErrUnavailable
	}
	return px, nil
}
