package market

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var binanceBaseStreams = map[Chain]string{
	ChainETH: "ethusdt",
	ChainBSC: "bnbusdt",
}

// BaseStreamer keeps a push-updated cache of native coin USD prices from
// Binance trade websockets. It implements BasePriceSource and is preferred
// over per-trade HTTP lookups when a stream is connected; callers fall back
// to another source while the cache is cold.
type BaseStreamer struct {
	log      zerolog.Logger
	fallback BasePriceSource

	mu     sync.RWMutex
	prices map[Chain]float64
}

// NewBaseStreamer wires the streamer with an optional fallback source used
// until the websocket delivers a first trade (or if it never connects).
func NewBaseStreamer(log zerolog.Logger, fallback BasePriceSource) *BaseStreamer {
	return &BaseStreamer{
		log:      log,
		fallback: fallback,
		prices:   make(map[Chain]float64),
	}
}

// BasePriceUSD returns the most recent streamed price, or defers to the
// fallback source when the cache has nothing for the chain yet.
func (b *BaseStreamer) BasePriceUSD(ctx context.Context, chain Chain) (float64, error) {
	b.mu.RLock()
	px := b.prices[chain]
	b.mu.RUnlock()
	if px > 0 {
		return px, nil
	}
	if b.fallback != nil {
		return b.fallback.BasePriceUSD(ctx, chain)
	}
	return 0, ErrUnavailable
}

type binanceEnvelope struct {
	Stream string       `json:"stream"`
	Data   binanceTrade `json:"data"`
}

type binanceTrade struct {
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

// Run consumes the combined trade stream until the context is canceled,
// reconnecting with backoff on any failure.
func (b *BaseStreamer) Run(ctx context.Context) error {
	streams := make([]string, 0, len(binanceBaseStreams))
	byStream := make(map[string]Chain, len(binanceBaseStreams))
	for chain, sym := range binanceBaseStreams {
		streams = append(streams, sym+"@trade")
		byStream[sym+"@trade"] = chain
	}
	url := "wss://stream.binance.com:9443/stream?streams=" + strings.Join(streams, "/")

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := b.consume(ctx, url, byStream); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Warn().Err(err).Msg("binance base stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (b *BaseStreamer) consume(ctx context.Context, url string, byStream map[string]Chain) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	b.log.Info().Msg("connected base price stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env binanceEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			b.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}
		chain, ok := byStream[env.Stream]
		if !ok {
			continue
		}
		px, err := strconv.ParseFloat(env.Data.Price, 64)
		if err != nil || px <= 0 {
			continue
		}
		b.mu.Lock()
		b.prices[chain] = px
		b.mu.Unlock()
	}
}
