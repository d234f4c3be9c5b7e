package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokenagent/internal/config"
	"tokenagent/internal/dex/evm"
	"tokenagent/internal/engine"
	"tokenagent/internal/execution"
	"tokenagent/internal/ledger"
	"tokenagent/internal/market"
	"tokenagent/internal/metrics"
	"tokenagent/internal/notify"
	"tokenagent/internal/state"
	"tokenagent/internal/store"
	"tokenagent/internal/tuner"
	"tokenagent/internal/util"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	path := defaultConfigPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		boot := util.NewLogger("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	data := market.NewDexScreener("", log)
	base := market.NewBaseStreamer(log, market.NewCoinGecko(""))
	go func() {
		if err := base.Run(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("base price stream stopped")
		}
	}()

	var recorder execution.FillRecorder
	if dsn := cfg.Store.PostgresDSN(); dsn != "" {
		ts, err := store.Open(ctx, dsn, log)
		if err != nil {
			log.Warn().Err(err).Msg("fill store unavailable, continuing without it")
		} else {
			defer ts.Close()
			recorder = ts
		}
	}

	book := ledger.NewBook()
	sim := execution.NewSimulated(book, data, recorder, log)

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
	}, cfg.Trading.SlippageBps, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build swap router")
	}
	live := execution.NewLive(router, base, recorder, log)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify.BotToken() != "" {
		notifier = notify.NewTelegram(cfg.Notify.BotToken(), log)
	}

	eng := engine.New(engine.Config{
		Mode:            cfg.Trading.Mode,
		AllocationUSD:   cfg.Trading.AllocationUSD,
		PollSeconds:     cfg.Trading.PollSeconds,
		SlippageBps:     cfg.Trading.SlippageBps,
		MinLiquidityUSD: cfg.Trading.MinLiquidityUSD,
		Cooldown:        time.Duration(cfg.Trading.CooldownSeconds) * time.Second,
		MaxPositionUSD:  cfg.Trading.MaxPositionNotionalUSD,
		SMAFast:         cfg.Indicators.SMAFast,
		SMASlow:         cfg.Indicators.SMASlow,
		RSILength:       cfg.Indicators.RSILength,
		WindowCap:       cfg.Indicators.WindowCap,
		AutoTune:        cfg.Tuning.Enabled,
		LockTuned:       cfg.Tuning.Locked,
		Baseline: tuner.Thresholds{
			ScoreBuy:  cfg.Tuning.BaselineScoreBuy,
			ScoreSell: cfg.Tuning.BaselineScoreSell,
			RSIBuy:    cfg.Tuning.BaselineRSIBuy,
			RSISell:   cfg.Tuning.BaselineRSISell,
		},
		Tuning: tuner.Config{
			Warmup:     cfg.Tuning.Warmup,
			Every:      cfg.Tuning.Every,
			ScoreBuyQ:  cfg.Tuning.ScoreBuyQ,
			ScoreSellQ: cfg.Tuning.ScoreSellQ,
			RSIBuyQ:    cfg.Tuning.RSIBuyQ,
			RSISellQ:   cfg.Tuning.RSISellQ,
		},
		ETHToken: cfg.Tokens.ETH,
		BSCToken: cfg.Tokens.BSC,
		ChatID:   cfg.Notify.ChatID,
	}, engine.Deps{
		Log:       log,
		Data:      data,
		Simulated: sim,
		Live:      live,
		Book:      book,
		Notifier:  notifier,
		Snapshots: state.NewStore(cfg.State.Path),
		Readiness: router.ReadyReport,
	})

	log.Info().Str("mode", cfg.Trading.Mode).Msg("agent started")
	for {
		eng.RunCycle(ctx)
		select {
		case <-ctx.Done():
			eng.Persist()
			log.Info().Msg("shutting down")
			return
		case <-time.After(eng.PollInterval()):
		}
	}
}
