package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/usmanhaider/raydium-swap-engine/internal/cache"
	"github.com/usmanhaider/raydium-swap-engine/internal/config"
	"github.com/usmanhaider/raydium-swap-engine/internal/engine"
	"github.com/usmanhaider/raydium-swap-engine/internal/flags"
	"github.com/usmanhaider/raydium-swap-engine/internal/jito"
	"github.com/usmanhaider/raydium-swap-engine/internal/oracle"
	"github.com/usmanhaider/raydium-swap-engine/internal/position"
	"github.com/usmanhaider/raydium-swap-engine/internal/raydium"
	"github.com/usmanhaider/raydium-swap-engine/internal/rpc"
	"github.com/usmanhaider/raydium-swap-engine/internal/stream"
	"github.com/usmanhaider/raydium-swap-engine/internal/wallet"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main runs the trading engine daemon: pool discovery, position monitoring,
// and exit execution, all shut down together on SIGINT/SIGTERM.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.WalletPrivateKey == "" {
		logger.Fatal("WALLET_PRIVATE_KEY is required for the trading engine")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	})

	w, err := wallet.NewWallet(wallet.WalletConfig{
		RPCURL:     cfg.RPCUrl,
		Timeout:    cfg.HTTPTimeout,
		PrivateKey: cfg.WalletPrivateKey,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create wallet")
	}
	logger.WithField("address", w.Address()).Info("wallet loaded")

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: 0})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	orderFeed := cache.NewRedisCacheFromClient(rclient, logger)

	switchStore, err := flags.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create switch store")
	}

	// ClickHouse history is optional; the engine trades without it.
	var history *cache.ClickHouseStore
	if cfg.ClickHouseAddr != "" {
		ch, err := cache.NewClickHouseStore(cfg.ClickHouseAddr, cfg.ClickHouseDatabase, cfg.ClickHouseUsername, cfg.ClickHousePassword, logger)
		if err != nil {
			logger.WithError(err).Warn("clickhouse unavailable, order history disabled")
		} else {
			history = ch
			if err := history.EnsureSchema(ctx); err != nil {
				logger.WithError(err).Warn("failed to ensure clickhouse schema")
			}
			defer history.Close()
		}
	}

	var prices raydium.PriceSource
	if cfg.PriceAPIURL != "" {
		prices = oracle.NewClient(cfg.PriceAPIURL, os.Getenv("PRICE_API_KEY"))
	}

	resolver := raydium.NewResolver(rpcClient, raydium.NewKeyCache(), logger)
	reserves := raydium.NewReserveReader(rpcClient, prices, logger)
	builder := raydium.NewSwapBuilder(w, logger)

	bundles := jito.NewClient(jito.ClientConfig{
		BlockEngineURL: cfg.BlockEngineURL,
		TipLamports:    cfg.TipLamports,
		ConfirmTimeout: cfg.ConfirmTimeout,
		PollInterval:   cfg.PollInterval,
	}, w, logger)

	trader := engine.New(engine.Config{
		SlippageBps: uint64(cfg.SlippageBps),
		MaxAttempts: cfg.OrderAttempts,
	}, resolver, reserves, builder, bundles, w, logger).
		WithSwitches(switchStore).
		WithEventSinks(orderFeed, history)
	if cfg.RequireSimulation {
		trader.WithSimulator(w)
		logger.Info("pre-submit simulation enabled")
	}

	book := position.NewBook(rclient)
	if err := book.Restore(ctx); err != nil {
		logger.WithError(err).Warn("failed to restore positions")
	}
	logger.WithField("open_positions", book.Len()).Info("position book restored")

	policy := position.ThresholdPolicy(
		decimal.NewFromInt(1000), // exit when pool liquidity drops below 1000 SOL
		decimal.NewFromInt(50),   // or exit value moves more than 50% either way
	)
	monitor := position.NewMonitor(position.MonitorConfig{
		Interval: cfg.MonitorInterval,
		Workers:  cfg.MonitorWorkers,
	}, book, trader, policy, logger)

	watcher := stream.NewWatcher(stream.WatcherConfig{
		RPCClient:    rpcClient,
		PollInterval: cfg.WatchInterval,
		Logger:       logger,
	})

	go func() {
		err := watcher.Start(ctx, func(ev *stream.PoolEvent) {
			logger.WithFields(logrus.Fields{
				"signature": ev.Signature,
				"slot":      ev.Slot,
			}).Info("new pool observed")
		})
		if err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("pool watcher stopped")
		}
	}()

	if err := monitor.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("position monitor failed")
	}
}
