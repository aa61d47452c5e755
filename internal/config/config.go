package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// RPC settings
	RPCUrl       string
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Wallet
	WalletPrivateKey string

	// Jito relay
	BlockEngineURL string
	TipLamports    uint64
	ConfirmTimeout time.Duration
	PollInterval   time.Duration

	// Trading defaults
	SlippageBps       uint16
	OrderAttempts     int
	RequireSimulation bool

	// Position monitor
	MonitorInterval time.Duration
	MonitorWorkers  int

	// Pool discovery
	WatchInterval time.Duration

	// Price oracle
	PriceAPIURL string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP API
	APIAddr string
	APIKey  string
	DevMode bool
}

func Load() *Config {
	return &Config{
		// RPC
		RPCUrl:       getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 2*time.Second),

		// Wallet
		WalletPrivateKey: getEnv("WALLET_PRIVATE_KEY", ""),

		// Jito
		BlockEngineURL: getEnv("BLOCK_ENGINE_URL", "https://amsterdam.mainnet.block-engine.jito.wtf/api/v1/bundles"),
		TipLamports:    uint64(getIntEnv("JITO_TIP_LAMPORTS", 400000)),
		ConfirmTimeout: getDurationEnv("CONFIRM_TIMEOUT", 60*time.Second),
		PollInterval:   getDurationEnv("BUNDLE_POLL_INTERVAL", time.Second),

		// Trading
		SlippageBps:       uint16(getIntEnv("SLIPPAGE_BPS", 500)),
		OrderAttempts:     getIntEnv("ORDER_ATTEMPTS", 3),
		RequireSimulation: getBoolEnv("REQUIRE_SIMULATION", false),

		// Monitor
		MonitorInterval: getDurationEnv("MONITOR_INTERVAL", 10*time.Second),
		MonitorWorkers:  getIntEnv("MONITOR_WORKERS", 8),

		// Discovery
		WatchInterval: getDurationEnv("WATCH_INTERVAL", 30*time.Second),

		// Oracle
		PriceAPIURL: getEnv("PRICE_API_URL", ""),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "trading"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),
	}
}

// Validate checks settings that have no workable default.
func (c *Config) Validate() error {
	if c.RPCUrl == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if c.SlippageBps > 10000 {
		return fmt.Errorf("SLIPPAGE_BPS must be <= 10000, got %d", c.SlippageBps)
	}
	if c.OrderAttempts < 1 {
		return fmt.Errorf("ORDER_ATTEMPTS must be >= 1, got %d", c.OrderAttempts)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
