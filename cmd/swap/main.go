// Binary swap is a one-shot live-execution smoke test: it wires the EVM
// router from config and submits a tiny buy for the tracked token.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"tokenagent/internal/config"
	"tokenagent/internal/dex/evm"
	"tokenagent/internal/market"
	"tokenagent/internal/util"
)

func main() {
	var (
		cfgPath = flag.String("config", "internal/config/config.yaml", "config file")
		chain   = flag.String("chain", "ETH", "ETH or BSC")
		token   = flag.String("token", "", "token address (defaults to tracked)")
		baseAmt = flag.Float64("base", 0.005, "native coin amount to spend")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := util.NewLogger(cfg.App.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	router, err := evm.New(ctx, map[market.Chain]evm.ChainConfig{
		market.ChainETH: {
			RpcURL:        cfg.Chains.ETH.RpcURL,
			Router:        cfg.Chains.ETH.Router,
			WrappedBase:   cfg.Chains.ETH.WrappedBase,
			PrivateKeyHex: cfg.Chains.ETH.PrivateKey(),
			GasLimit:      cfg.Chains.ETH.GasLimit,
		},
		market.ChainBSC: {
			RpcURL:        cfg.Chains.BSC.RpcURL,
			Router:        cfg.Chains.BSC.Router,
			WrappedBase:   cfg.Chains.BSC.WrappedBase,
			PrivateKeyHex: cfg.Chains.BSC.PrivateKey(),
			GasLimit:      cfg.Chains.BSC.GasLimit,
		},
	}, cfg.Trading.SlippageBps, logger)
	if err != nil {
		log.Fatalf("router: %v", err)
	}
	log.Println(router.ReadyReport())

	tok := market.Token{Chain: market.ParseChain(*chain), Address: *token}
	if tok.Address == "" {
		if tok.Chain == market.ChainBSC {
			tok.Address = cfg.Tokens.BSC
		} else {
			tok.Address = cfg.Tokens.ETH
		}
	}
	if tok.Address == "" {
		log.Fatal("no token configured")
	}

	tx, err := router.SwapBuy(ctx, tok, *baseAmt)
	if err != nil {
		log.Fatalf("swap: %v", err)
	}
	log.Printf("submitted tx: %s", tx)
}
