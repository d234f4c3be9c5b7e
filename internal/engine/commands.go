package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tokenagent/internal/execution"
	"tokenagent/internal/market"
)

// The operator command surface. Every method takes the engine mutex so
// manual trades serialize with the cycle loop.

// slippageSetter is implemented by swap executors that can retarget their
// tolerance at runtime.
type slippageSetter interface {
	SetSlippage(bps int)
}

// ManualBuy trades the configured allocation into the named token (or the
// per-chain default when addr is empty). The risk gate still applies.
func (e *Engine) ManualBuy(ctx context.Context, addr string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	token, ok := e.resolveToken(addr)
	if !ok {
		return "provide a token address or configure a tracked token first"
	}
	return e.manualTrade(ctx, token, execution.Buy)
}

// ManualSell sells the configured allocation's worth of the named token.
func (e *Engine) ManualSell(ctx context.Context, addr string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	token, ok := e.resolveToken(addr)
	if !ok {
		return "provide a token address or configure a tracked token first"
	}
	if e.mode == "mock" && !e.book.HasPosition(token.Address) {
		return fmt.Sprintf("no position in %s", token.Short())
	}
	return e.manualTrade(ctx, token, execution.Sell)
}

func (e *Engine) manualTrade(ctx context.Context, token market.Token, side execution.Side) string {
	quote, err := e.data.BestPair(ctx, token)
	if err != nil {
		e.events.add(fmt.Sprintf("manual %s %s: no price", side, token.Short()))
		return fmt.Sprintf("price unavailable for %s", token.Short())
	}
	res := e.tryTrade(ctx, token, side, quote, e.allocationUSD)
	e.events.add(fmt.Sprintf("manual %s %s %s @ $%.6f | %s", side, token.Chain, token.Short(), quote.PriceUSD, res))
	return res
}

// CloseAll liquidates every open simulated position at current prices.
// Emergency exit: it skips the gate but still stamps cooldowns.
func (e *Engine) CloseAll(ctx context.Context) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	positions := e.book.Positions()
	if len(positions) == 0 {
		return "no positions to close"
	}
	var closed []string
	for addr, pos := range positions {
		token := market.Token{Chain: pos.Chain, Address: addr}
		quote, err := e.data.BestPair(ctx, token)
		if err != nil {
			closed = append(closed, fmt.Sprintf("%s: price unavailable", token.Short()))
			continue
		}
		e.state(token.Address).lastTrade = time.Now()
		execCtx, cancel := context.WithTimeout(ctx, executeTimeout)
		res, err := e.sim.Execute(execCtx, token, execution.Sell, pos.Qty*quote.PriceUSD)
		cancel()
		if err != nil {
			closed = append(closed, fmt.Sprintf("%s: %v", token.Short(), err))
			continue
		}
		closed = append(closed, fmt.Sprintf("%s: %s", token.Short(), res))
	}
	e.persist()
	summary := "close all:\n" + strings.Join(closed, "\n")
	e.events.add(summary)
	e.notifier.Notify(e.chatID, summary)
	return summary
}

// resolveToken maps operator input onto a chain-qualified token. An
// explicit address is matched against the tracked tokens to infer chain.
func (e *Engine) resolveToken(addr string) (market.Token, bool) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		if e.ethToken != "" {
			return market.Token{Chain: market.ChainETH, Address: e.ethToken}, true
		}
		if e.bscToken != "" {
			return market.Token{Chain: market.ChainBSC, Address: e.bscToken}, true
		}
		return market.Token{}, false
	}
	if strings.EqualFold(addr, e.bscToken) {
		return market.Token{Chain: market.ChainBSC, Address: addr}, true
	}
	return market.Token{Chain: market.ChainETH, Address: addr}, true
}

// Pause stops cycle evaluation; manual commands still work.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	e.events.add("paused")
	e.notifier.Notify(e.chatID, "engine paused")
}

// Resume restarts cycle evaluation.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	e.events.add("resumed")
	e.notifier.Notify(e.chatID, "engine resumed")
}

// SetMode switches between mock and live execution.
func (e *Engine) SetMode(mode string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if strings.EqualFold(mode, "live") {
		e.mode = "live"
	} else {
		e.mode = "mock"
	}
	e.events.add("mode=" + e.mode)
	e.notifier.Notify(e.chatID, "mode set to "+e.mode)
	if e.mode == "live" && e.readiness != nil {
		return fmt.Sprintf("mode set to live\n%s", e.readiness())
	}
	return "mode set to " + e.mode
}

// SetToken reconfigures the tracked token address for a chain. Indicator
// state for a previously tracked address is kept in case it returns.
func (e *Engine) SetToken(chain market.Chain, addr string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	addr = strings.TrimSpace(addr)
	if chain == market.ChainBSC {
		e.bscToken = addr
	} else {
		e.ethToken = addr
	}
	short := market.Token{Chain: chain, Address: addr}.Short()
	e.events.add(fmt.Sprintf("%s token set to %s", chain, short))
	return fmt.Sprintf("%s token set to %s", chain, short)
}

// SetAllocation updates the per-trade USD amount (floor $1).
func (e *Engine) SetAllocation(usd float64) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if usd < 1 {
		usd = 1
	}
	e.allocationUSD = usd
	e.events.add(fmt.Sprintf("allocation set to $%.2f", usd))
	return fmt.Sprintf("allocation set to $%.2f", usd)
}

// SetPoll updates the polling interval (floor 10s). The host loop reads
// PollInterval each tick.
func (e *Engine) SetPoll(seconds int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seconds < 10 {
		seconds = 10
	}
	e.pollSeconds = seconds
	e.events.add(fmt.Sprintf("poll set to %ds", seconds))
	return fmt.Sprintf("poll set to %ds", seconds)
}

// PollInterval returns the current polling cadence.
func (e *Engine) PollInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(e.pollSeconds) * time.Second
}

// SetSlippage updates the live swap tolerance in basis points (floor 1).
func (e *Engine) SetSlippage(bps int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bps < 1 {
		bps = 1
	}
	e.slippageBps = bps
	if s, ok := e.live.(slippageSetter); ok && s != nil {
		s.SetSlippage(bps)
	}
	e.events.add(fmt.Sprintf("slippage set to %dbps", bps))
	return fmt.Sprintf("slippage set to %dbps", bps)
}

// SetMinLiquidity updates the liquidity floor (floor $0).
func (e *Engine) SetMinLiquidity(usd float64) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if usd < 0 {
		usd = 0
	}
	e.minLiquidityUSD = usd
	e.events.add(fmt.Sprintf("min liquidity set to $%.0f", usd))
	return fmt.Sprintf("min liquidity set to $%.0f", usd)
}

// PositionView is a read-only listing row for the operator.
type PositionView struct {
	Chain       market.Chain
	Token       string
	Qty         float64
	AvgCost     float64
	MarketValue float64
}

// Positions lists open positions marked with the last seen window price.
func (e *Engine) Positions() []PositionView {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []PositionView
	for addr, pos := range e.book.Positions() {
		var mark float64
		if st, ok := e.states[addr]; ok {
			if px, ok := st.window.Last(); ok {
				mark = px
			}
		}
		out = append(out, PositionView{
			Chain:       pos.Chain,
			Token:       addr,
			Qty:         pos.Qty,
			AvgCost:     pos.AvgCost,
			MarketValue: pos.Qty * mark,
		})
	}
	return out
}

// StatusText renders the operator status summary.
func (e *Engine) StatusText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	lines := []string{
		"mode: " + e.mode,
		fmt.Sprintf("paused: %v", e.paused),
		fmt.Sprintf("positions: %d", len(e.book.Positions())),
		fmt.Sprintf("realized pnl: $%.2f", e.book.RealizedPnL()),
		fmt.Sprintf("poll: %ds", e.pollSeconds),
		"ETH token: " + market.Token{Chain: market.ChainETH, Address: e.ethToken}.Short(),
		"BSC token: " + market.Token{Chain: market.ChainBSC, Address: e.bscToken}.Short(),
		fmt.Sprintf("SMA: fast=%d slow=%d | RSI len: %d", e.smaFast, e.smaSlow, e.rsiLength),
		fmt.Sprintf("slippage: %dbps | min liq: $%.0f | cooldown: %s", e.slippageBps, e.minLiquidityUSD, e.cooldown),
		fmt.Sprintf("autotune: %v locked: %v", e.autoTune, e.lockTuned),
	}
	if e.mode == "live" && e.readiness != nil {
		lines = append(lines, e.readiness())
	}
	return strings.Join(lines, "\n")
}

// RecentEvents renders the newest n event lines, oldest first.
func (e *Engine) RecentEvents(n int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	tail := e.events.tail(n)
	if len(tail) == 0 {
		return "no recent events"
	}
	return strings.Join(tail, "\n")
}
