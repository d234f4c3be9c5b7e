// Package config exposes the immutable configuration struct built once at
// startup and injected into the engine; no component reads ambient state.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Tokens holds the per-chain tracked token addresses. Either may be empty.
type Tokens struct {
	ETH string `yaml:"eth"`
	BSC string `yaml:"bsc"`
}

// Trading groups the engine's trade sizing and guard-rail knobs.
type Trading struct {
	Mode                   string  `yaml:"mode"` // mock | live
	AllocationUSD          float64 `yaml:"allocation_usd"`
	PollSeconds            int     `yaml:"poll_seconds"`
	SlippageBps            int     `yaml:"slippage_bps"`
	MinLiquidityUSD        float64 `yaml:"min_liquidity_usd"`
	CooldownSeconds        int     `yaml:"cooldown_seconds"`
	MaxPositionNotionalUSD float64 `yaml:"max_position_notional_usd"`
}

// Indicators configures the rolling window computations.
type Indicators struct {
	SMAFast   int `yaml:"sma_fast"`
	SMASlow   int `yaml:"sma_slow"`
	RSILength int `yaml:"rsi_length"`
	WindowCap int `yaml:"window_cap"`
}

// Tuning configures quantile-based threshold auto-tuning.
type Tuning struct {
	Enabled bool `yaml:"enabled"`
	Locked  bool `yaml:"locked"`
	Warmup  int  `yaml:"warmup"`
	Every   int  `yaml:"every"`

	ScoreBuyQ  float64 `yaml:"score_buy_q"`
	ScoreSellQ float64 `yaml:"score_sell_q"`
	RSIBuyQ    float64 `yaml:"rsi_buy_q"`
	RSISellQ   float64 `yaml:"rsi_sell_q"`

	BaselineScoreBuy  float64 `yaml:"baseline_score_buy"`
	BaselineScoreSell float64 `yaml:"baseline_score_sell"`
	BaselineRSIBuy    float64 `yaml:"baseline_rsi_buy"`
	BaselineRSISell   float64 `yaml:"baseline_rsi_sell"`
}

// ChainRPC describes one EVM chain's endpoints for live execution.
// Private keys come only from the environment, never from YAML.
type ChainRPC struct {
	RpcURL      string `yaml:"rpc_url"`
	Router      string `yaml:"router"`
	WrappedBase string `yaml:"wrapped_base"`
	GasLimit    uint64 `yaml:"gas_limit"`
	privateKey  string
}

// PrivateKey returns the hex signing key loaded from the environment.
func (c ChainRPC) PrivateKey() string { return c.privateKey }

// Chains groups per-chain RPC settings.
type Chains struct {
	ETH ChainRPC `yaml:"eth"`
	BSC ChainRPC `yaml:"bsc"`
}

// Notify carries the operator alert channel settings. The bot token comes
// from the environment.
type Notify struct {
	ChatID   string `yaml:"chat_id"`
	botToken string
}

// BotToken returns the Telegram bot token loaded from the environment.
func (n Notify) BotToken() string { return n.botToken }

// State points at the best-effort snapshot file.
type State struct {
	Path string `yaml:"path"`
}

// Store configures the optional Postgres fill recorder (empty disables).
type Store struct {
	postgresDSN string
}

// PostgresDSN returns the connection string loaded from the environment.
func (s Store) PostgresDSN() string { return s.postgresDSN }

// Config collects every configuration leaf.
type Config struct {
	App        App        `yaml:"app"`
	Tokens     Tokens     `yaml:"tokens"`
	Trading    Trading    `yaml:"trading"`
	Indicators Indicators `yaml:"indicators"`
	Tuning     Tuning     `yaml:"tuning"`
	Chains     Chains     `yaml:"chains"`
	Notify     Notify     `yaml:"notify"`
	State      State      `yaml:"state"`
	Store      Store      `yaml:"-"`
}

// Load reads the YAML file, overlays environment secrets, and normalizes
// every knob to a safe value. Impossible settings are clamped to
// baselines rather than treated as fatal.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	cfg.applyEnv()
	cfg.normalize()
	return &cfg, nil
}

// Save persists the YAML-visible portion of the config to disk.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.MetricsAddr == "" {
		c.App.MetricsAddr = ":9100"
	}

	if c.Trading.Mode != "live" {
		c.Trading.Mode = "mock"
	}
	if c.Trading.AllocationUSD < 1 {
		c.Trading.AllocationUSD = 50
	}
	if c.Trading.PollSeconds < 10 {
		c.Trading.PollSeconds = 60
	}
	if c.Trading.SlippageBps < 1 {
		c.Trading.SlippageBps = 100
	}
	if c.Trading.MinLiquidityUSD < 0 {
		c.Trading.MinLiquidityUSD = 50000
	}
	if c.Trading.CooldownSeconds < 0 {
		c.Trading.CooldownSeconds = 300
	}
	if c.Trading.MaxPositionNotionalUSD < 0 {
		c.Trading.MaxPositionNotionalUSD = 0
	}

	if c.Indicators.SMAFast <= 0 {
		c.Indicators.SMAFast = 20
	}
	if c.Indicators.SMASlow <= c.Indicators.SMAFast {
		c.Indicators.SMASlow = c.Indicators.SMAFast + 30
	}
	if c.Indicators.RSILength <= 1 {
		c.Indicators.RSILength = 14
	}
	if c.Indicators.WindowCap <= 0 {
		c.Indicators.WindowCap = 2000
	}

	if c.Tuning.Warmup <= 0 {
		c.Tuning.Warmup = 50
	}
	if c.Tuning.Every <= 0 {
		c.Tuning.Every = 60
	}
	if c.Tuning.BaselineScoreBuy <= 0 || c.Tuning.BaselineScoreBuy > 1 {
		c.Tuning.BaselineScoreBuy = 0.55
	}
	if c.Tuning.BaselineScoreSell <= 0 || c.Tuning.BaselineScoreSell > 1 {
		c.Tuning.BaselineScoreSell = 0.45
	}
	if c.Tuning.BaselineScoreBuy < c.Tuning.BaselineScoreSell+0.05 {
		c.Tuning.BaselineScoreBuy = c.Tuning.BaselineScoreSell + 0.05
	}
	if c.Tuning.BaselineRSIBuy <= 0 || c.Tuning.BaselineRSIBuy > 100 {
		c.Tuning.BaselineRSIBuy = 55
	}
	if c.Tuning.BaselineRSISell <= 0 || c.Tuning.BaselineRSISell > 100 {
		c.Tuning.BaselineRSISell = 45
	}
	if c.Tuning.BaselineRSIBuy < c.Tuning.BaselineRSISell+5 {
		c.Tuning.BaselineRSIBuy = c.Tuning.BaselineRSISell + 5
	}

	if c.Chains.ETH.GasLimit == 0 {
		c.Chains.ETH.GasLimit = 350000
	}
	if c.Chains.BSC.GasLimit == 0 {
		c.Chains.BSC.GasLimit = 350000
	}
	if c.State.Path == "" {
		c.State.Path = "data/state.json"
	}
}
