// Package engine runs the decision-and-execution loop: per token it rolls
// indicators forward, tunes thresholds, decides buy/sell/hold, applies the
// risk gate, and hands accepted trades to the active executor.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tokenagent/internal/execution"
	"tokenagent/internal/indicator"
	"tokenagent/internal/ledger"
	"tokenagent/internal/market"
	"tokenagent/internal/metrics"
	"tokenagent/internal/notify"
	"tokenagent/internal/risk"
	"tokenagent/internal/score"
	"tokenagent/internal/state"
	"tokenagent/internal/tuner"
)

const (
	scoreAlpha     = 0.2
	executeTimeout = 30 * time.Second
)

// Config is the immutable startup configuration for the engine. Fields the
// operator can change at runtime are copied into mutable engine state.
type Config struct {
	Mode            string // mock | live
	AllocationUSD   float64
	PollSeconds     int
	SlippageBps     int
	MinLiquidityUSD float64
	Cooldown        time.Duration
	MaxPositionUSD  float64

	SMAFast   int
	SMASlow   int
	RSILength int
	WindowCap int

	AutoTune  bool
	LockTuned bool
	Baseline  tuner.Thresholds
	Tuning    tuner.Config

	ETHToken string
	BSCToken string
	ChatID   string
}

// Deps are the collaborators injected at construction.
type Deps struct {
	Log       zerolog.Logger
	Data      market.DataSource
	Simulated execution.Executor
	Live      execution.Executor // nil until live execution is wired
	Book      *ledger.Book
	Notifier  notify.Notifier
	Snapshots *state.Store // nil disables persistence
	Readiness func() string
}

// tokenState bundles everything mutable for one tracked token so its
// invariants stay colocated.
type tokenState struct {
	window     *indicator.Window
	scorer     *score.Scorer
	thresholds tuner.Thresholds
	lastTrade  time.Time
}

// Engine owns all per-token state. Every public method serializes on one
// mutex so cycle evaluation and operator commands never interleave.
type Engine struct {
	mu sync.Mutex

	log       zerolog.Logger
	data      market.DataSource
	sim       execution.Executor
	live      execution.Executor
	book      *ledger.Book
	notifier  notify.Notifier
	snapshots *state.Store
	readiness func() string
	tun       *tuner.Tuner

	// operator-adjustable
	mode            string
	paused          bool
	allocationUSD   float64
	pollSeconds     int
	slippageBps     int
	minLiquidityUSD float64
	cooldown        time.Duration
	maxPositionUSD  float64
	autoTune        bool
	lockTuned       bool
	ethToken        string
	bscToken        string
	chatID          string

	smaFast   int
	smaSlow   int
	rsiLength int
	windowCap int
	baseline  tuner.Thresholds

	states map[string]*tokenState
	events *eventRing
	cycle  int
}

// New builds the engine, restoring any persisted snapshot before first use.
func New(cfg Config, deps Deps) *Engine {
	e := &Engine{
		log:       deps.Log,
		data:      deps.Data,
		sim:       deps.Simulated,
		live:      deps.Live,
		book:      deps.Book,
		notifier:  deps.Notifier,
		snapshots: deps.Snapshots,
		readiness: deps.Readiness,
		tun:       tuner.New(cfg.Tuning),

		mode:            cfg.Mode,
		allocationUSD:   cfg.AllocationUSD,
		pollSeconds:     cfg.PollSeconds,
		slippageBps:     cfg.SlippageBps,
		minLiquidityUSD: cfg.MinLiquidityUSD,
		cooldown:        cfg.Cooldown,
		maxPositionUSD:  cfg.MaxPositionUSD,
		autoTune:        cfg.AutoTune,
		lockTuned:       cfg.LockTuned,
		ethToken:        strings.TrimSpace(cfg.ETHToken),
		bscToken:        strings.TrimSpace(cfg.BSCToken),
		chatID:          cfg.ChatID,

		smaFast:   cfg.SMAFast,
		smaSlow:   cfg.SMASlow,
		rsiLength: cfg.RSILength,
		windowCap: cfg.WindowCap,
		baseline:  cfg.Baseline,

		states: make(map[string]*tokenState),
		events: newEventRing(200),
	}
	if e.notifier == nil {
		e.notifier = notify.Nop{}
	}
	if e.mode != "live" {
		e.mode = "mock"
	}
	e.restore()
	e.events.add(fmt.Sprintf(
		"engine init | mode=%s poll=%ds ETH=%s BSC=%s autotune=%v minliq=$%.0f slip=%dbps",
		e.mode, e.pollSeconds,
		market.Token{Chain: market.ChainETH, Address: e.ethToken}.Short(),
		market.Token{Chain: market.ChainBSC, Address: e.bscToken}.Short(),
		e.autoTune, e.minLiquidityUSD, e.slippageBps,
	))
	return e
}

// restore loads the best-effort snapshot; a failed load starts clean.
func (e *Engine) restore() {
	if e.snapshots == nil {
		return
	}
	snap, found, err := e.snapshots.Load()
	if err != nil {
		e.log.Warn().Err(err).Msg("state load failed, starting from defaults")
		return
	}
	if !found {
		return
	}
	positions := make(map[string]ledger.Position, len(snap.Positions))
	for addr, p := range snap.Positions {
		opened, _ := time.Parse(time.RFC3339, p.OpenedAt)
		positions[addr] = ledger.Position{
			Qty:      p.Qty,
			AvgCost:  p.AvgCost,
			Chain:    market.ParseChain(p.Chain),
			OpenedAt: opened,
		}
	}
	e.book.Restore(positions, snap.RealizedPnLUSD)
	for addr, th := range snap.Thresholds {
		st := e.state(addr)
		st.thresholds = tuner.Thresholds{
			ScoreBuy:  th.ScoreBuy,
			ScoreSell: th.ScoreSell,
			RSIBuy:    th.RSIBuy,
			RSISell:   th.RSISell,
		}
	}
	e.log.Info().Int("positions", len(positions)).Float64("pnl", snap.RealizedPnLUSD).Msg("state restored")
}

// persist snapshots positions, PnL, and tuned thresholds. Histories are
// not saved; they rebuild after restart.
func (e *Engine) persist() {
	if e.snapshots == nil {
		return
	}
	snap := state.Snapshot{
		RealizedPnLUSD: e.book.RealizedPnL(),
		Positions:      make(map[string]state.PositionSnapshot),
		Thresholds:     make(map[string]state.ThresholdSnapshot),
	}
	for addr, pos := range e.book.Positions() {
		snap.Positions[addr] = state.PositionSnapshot{
			Chain:    string(pos.Chain),
			Qty:      pos.Qty,
			AvgCost:  pos.AvgCost,
			OpenedAt: pos.OpenedAt.UTC().Format(time.RFC3339),
		}
	}
	for addr, st := range e.states {
		snap.Thresholds[addr] = state.ThresholdSnapshot{
			ScoreBuy:  st.thresholds.ScoreBuy,
			ScoreSell: st.thresholds.ScoreSell,
			RSIBuy:    st.thresholds.RSIBuy,
			RSISell:   st.thresholds.RSISell,
		}
	}
	if err := e.snapshots.Save(snap); err != nil {
		e.log.Warn().Err(err).Msg("state save failed, continuing from memory")
	}
}

// Persist flushes the snapshot; exposed for shutdown hooks.
func (e *Engine) Persist() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persist()
}

// state returns the per-token bundle, creating it lazily on first touch.
func (e *Engine) state(addr string) *tokenState {
	st, ok := e.states[addr]
	if !ok {
		st = &tokenState{
			window:     indicator.NewWindow(e.rsiLength, e.windowCap),
			scorer:     score.NewScorer(scoreAlpha, e.windowCap),
			thresholds: e.baseline,
		}
		e.states[addr] = st
	}
	return st
}

// RunCycle evaluates every configured token once. Per-token failures are
// contained; one token can never abort the others.
func (e *Engine) RunCycle(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return
	}
	e.cycle++
	metrics.CyclesTotal.Inc()

	var tasks []market.Token
	if e.ethToken != "" {
		tasks = append(tasks, market.Token{Chain: market.ChainETH, Address: e.ethToken})
	}
	if e.bscToken != "" {
		tasks = append(tasks, market.Token{Chain: market.ChainBSC, Address: e.bscToken})
	}
	if len(tasks) == 0 {
		if e.cycle%10 == 1 {
			e.events.add("no tokens configured")
		}
		return
	}
	for _, token := range tasks {
		e.evaluateToken(ctx, token)
	}
}

func (e *Engine) evaluateToken(ctx context.Context, token market.Token) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("token", token.Short()).Msg("cycle panic contained")
			e.events.add(fmt.Sprintf("cycle error %s %s: %v", token.Chain, token.Short(), r))
		}
	}()

	quote, err := e.data.BestPair(ctx, token)
	if err != nil {
		metrics.DataErrorsTotal.WithLabelValues(string(token.Chain)).Inc()
		e.events.add(fmt.Sprintf("warn %s %s: no price/liquidity", token.Chain, token.Short()))
		return
	}
	if quote.LiquidityUSD <= 0 {
		e.events.add(fmt.Sprintf("warn %s %s: liquidity unknown", token.Chain, token.Short()))
		return
	}
	if quote.LiquidityUSD < e.minLiquidityUSD {
		e.events.add(fmt.Sprintf("skip %s %s: liq $%.0f < min $%.0f",
			token.Chain, token.Short(), quote.LiquidityUSD, e.minLiquidityUSD))
		return
	}

	st := e.state(token.Address)
	prev, hadPrev := st.window.Last()
	st.window.Add(quote.PriceUSD)
	if hadPrev && prev > 0 {
		st.scorer.Update((quote.PriceUSD - prev) / prev)
	}

	sFast, okFast := st.window.SMA(e.smaFast)
	sSlow, okSlow := st.window.SMA(e.smaSlow)
	rsiVal, okRSI := st.window.RSI()
	prob := st.scorer.ProbUp()

	if e.cycle%20 == 0 {
		e.events.add(fmt.Sprintf("%s %s p=$%.6f SMA%d/%d=%s/%s RSI=%s score=%.2f",
			token.Chain, token.Short(), quote.PriceUSD,
			e.smaFast, e.smaSlow,
			fmtReading("%.6f", sFast, okFast), fmtReading("%.6f", sSlow, okSlow),
			fmtReading("%.2f", rsiVal, okRSI), prob))
	}

	if e.autoTune && !e.lockTuned {
		e.maybeRetune(token, st)
	}

	if !okFast || !okSlow || !okRSI {
		return // still warming up
	}

	th := st.thresholds
	held := e.book.HasPosition(token.Address)

	switch {
	case !held && sFast > sSlow && rsiVal >= th.RSIBuy && prob >= th.ScoreBuy:
		res := e.tryTrade(ctx, token, execution.Buy, quote, e.allocationUSD)
		e.events.add(fmt.Sprintf("BUY %s %s @ $%.6f | %s", token.Chain, token.Short(), quote.PriceUSD, res))
	case held && sFast < sSlow && rsiVal <= th.RSISell && prob <= th.ScoreSell:
		res := e.tryTrade(ctx, token, execution.Sell, quote, e.allocationUSD)
		e.events.add(fmt.Sprintf("SELL %s %s @ $%.6f | %s", token.Chain, token.Short(), quote.PriceUSD, res))
	}
}

// fmtReading renders an indicator value, or "n/a" while it is warming up.
func fmtReading(format string, v float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf(format, v)
}

// maybeRetune recomputes tuned thresholds on schedule once histories pass
// warmup. RSI history is replayed from the recent price tail.
func (e *Engine) maybeRetune(token market.Token, st *tokenState) {
	if st.window.Len() < e.tun.Warmup() || !e.tun.Due(e.cycle) {
		return
	}
	window := e.tun.Window()
	prices := st.window.Tail(window)
	replay := indicator.NewWindow(e.rsiLength, len(prices)+1)
	rsis := make([]float64, 0, len(prices))
	for _, p := range prices {
		replay.Add(p)
		if v, ok := replay.RSI(); ok {
			rsis = append(rsis, v)
		}
	}
	scores := st.scorer.HistoryTail(window)

	tuned, changed := e.tun.Retune(st.thresholds, scores, rsis)
	if !changed {
		return
	}
	st.thresholds = tuned
	e.events.add(fmt.Sprintf("tuned %s score=%.2f/%.2f RSI=%.1f/%.1f",
		token.Short(), tuned.ScoreBuy, tuned.ScoreSell, tuned.RSIBuy, tuned.RSISell))
}

// tryTrade gates and executes one trade, stamping the cooldown on any
// attempt so failed executions cannot retry-storm.
func (e *Engine) tryTrade(ctx context.Context, token market.Token, side execution.Side, quote market.Quote, usd float64) string {
	st := e.state(token.Address)
	var posQty float64
	if pos, ok := e.book.Position(token.Address); ok {
		posQty = pos.Qty
	}

	gate := risk.Gate{Limits: risk.Limits{
		MinLiquidityUSD:        e.minLiquidityUSD,
		Cooldown:               e.cooldown,
		MaxPositionNotionalUSD: e.maxPositionUSD,
	}}
	if err := gate.Check(risk.Request{
		Buy:            side == execution.Buy,
		Simulated:      e.mode == "mock",
		LiquidityUSD:   quote.LiquidityUSD,
		LiquidityKnown: quote.LiquidityUSD > 0,
		PriceUSD:       quote.PriceUSD,
		PositionQty:    posQty,
		LastTrade:      st.lastTrade,
		Now:            time.Now(),
	}); err != nil {
		metrics.RejectionsTotal.WithLabelValues(risk.Reason(err)).Inc()
		return fmt.Sprintf("rejected: %v", err)
	}

	st.lastTrade = time.Now()

	exec := e.sim
	if e.mode == "live" {
		if e.live == nil {
			return "live executor not wired"
		}
		exec = e.live
	}

	execCtx, cancel := context.WithTimeout(ctx, executeTimeout)
	defer cancel()
	res, err := exec.Execute(execCtx, token, side, usd)
	if err != nil {
		e.notifier.Notify(e.chatID, fmt.Sprintf("execution failed %s %s %s: %v", side, token.Chain, token.Short(), err))
		return fmt.Sprintf("error: %v", err)
	}
	e.notifier.Notify(e.chatID, fmt.Sprintf("%s %s %s | %s", side, token.Chain, token.Short(), res))
	e.persist()
	return res
}
