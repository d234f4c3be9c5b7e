package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// applyEnv overlays secrets and deploy-time overrides from the process
// environment (with a best-effort .env load) onto the YAML config.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := envTrim("ETH_TOKEN_ADDRESS"); v != "" {
		c.Tokens.ETH = v
	}
	if v := envTrim("BSC_TOKEN_ADDRESS"); v != "" {
		c.Tokens.BSC = v
	}
	if v := envTrim("TRADE_MODE"); v != "" {
		c.Trading.Mode = strings.ToLower(v)
	}

	if v := envTrim("RPC_URL_ETH"); v != "" {
		c.Chains.ETH.RpcURL = v
	}
	if v := envTrim("RPC_URL_BSC"); v != "" {
		c.Chains.BSC.RpcURL = v
	}
	c.Chains.ETH.privateKey = envTrim("WALLET_PRIVATE_KEY_ETH")
	c.Chains.BSC.privateKey = envTrim("WALLET_PRIVATE_KEY_BSC")

	c.Notify.botToken = envTrim("TELEGRAM_BOT_TOKEN")
	if v := envTrim("TELEGRAM_CHAT_ID"); v != "" {
		c.Notify.ChatID = v
	}

	c.Store.postgresDSN = envTrim("POSTGRES_DSN")
}

func envTrim(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
