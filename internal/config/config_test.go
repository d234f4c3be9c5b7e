package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.App.Name != "tokenagent" || cfg.App.LogLevel != "debug" {
		t.Fatalf("unexpected app section: %+v", cfg.App)
	}
	if cfg.Tokens.ETH != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("unexpected eth token: %q", cfg.Tokens.ETH)
	}
	if cfg.Trading.AllocationUSD != 25 || cfg.Trading.PollSeconds != 30 || cfg.Trading.SlippageBps != 150 {
		t.Fatalf("unexpected trading section: %+v", cfg.Trading)
	}
	if cfg.Indicators.SMAFast != 10 || cfg.Indicators.SMASlow != 30 {
		t.Fatalf("unexpected indicators: %+v", cfg.Indicators)
	}
	if cfg.Chains.ETH.GasLimit != 400000 {
		t.Fatalf("unexpected eth gas limit: %d", cfg.Chains.ETH.GasLimit)
	}
	if cfg.Chains.BSC.GasLimit != 350000 {
		t.Fatalf("unset bsc gas limit should be defaulted, got %d", cfg.Chains.BSC.GasLimit)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TRADE_MODE", "LIVE")
	t.Setenv("ETH_TOKEN_ADDRESS", "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	t.Setenv("WALLET_PRIVATE_KEY_ETH", "deadbeef")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/fills")

	cfg, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Trading.Mode != "live" {
		t.Fatalf("env mode should win and lowercase, got %q", cfg.Trading.Mode)
	}
	if cfg.Tokens.ETH != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatalf("env token should win, got %q", cfg.Tokens.ETH)
	}
	if cfg.Chains.ETH.PrivateKey() != "deadbeef" {
		t.Fatalf("private key not loaded from env")
	}
	if cfg.Notify.BotToken() != "123:abc" {
		t.Fatalf("bot token not loaded from env")
	}
	if cfg.Store.PostgresDSN() != "postgres://localhost/fills" {
		t.Fatalf("dsn not loaded from env")
	}
}

func TestNormalizeClampsNonsense(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	bad := `
trading:
  mode: yolo
  allocation_usd: 0
  poll_seconds: 1
indicators:
  sma_fast: 20
  sma_slow: 5
tuning:
  baseline_score_buy: 0.46
  baseline_score_sell: 0.45
  baseline_rsi_buy: 46
  baseline_rsi_sell: 45
`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Trading.Mode != "mock" {
		t.Fatalf("unknown mode should clamp to mock, got %q", cfg.Trading.Mode)
	}
	if cfg.Trading.AllocationUSD != 50 || cfg.Trading.PollSeconds != 60 {
		t.Fatalf("sizing not clamped: %+v", cfg.Trading)
	}
	if cfg.Indicators.SMASlow <= cfg.Indicators.SMAFast {
		t.Fatalf("slow sma must exceed fast: %+v", cfg.Indicators)
	}
	if cfg.Tuning.BaselineScoreBuy < cfg.Tuning.BaselineScoreSell+0.05 {
		t.Fatalf("score baseline margin not enforced: %+v", cfg.Tuning)
	}
	if cfg.Tuning.BaselineRSIBuy < cfg.Tuning.BaselineRSISell+5 {
		t.Fatalf("rsi baseline margin not enforced: %+v", cfg.Tuning)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.Trading != cfg.Trading {
		t.Fatalf("trading section changed across round trip: %+v vs %+v", again.Trading, cfg.Trading)
	}
}
