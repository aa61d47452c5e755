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
	"github.com/sirupsen/logrus"

	"github.com/usmanhaider/raydium-swap-engine/internal/cache"
	"github.com/usmanhaider/raydium-swap-engine/internal/config"
	"github.com/usmanhaider/raydium-swap-engine/internal/models"
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

// main tails the live order feed, printing every order event as it lands.
// Useful for watching a running engine without attaching to its logs.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	loadEnv(logger)
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: 0})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	feed := cache.NewRedisCacheFromClient(rclient, logger)

	err := feed.SubscribeOrders(ctx, func(ev *models.OrderEvent) {
		entry := logger.WithFields(logrus.Fields{
			"order_id":   ev.OrderID,
			"pool":       ev.PoolID,
			"direction":  ev.Direction,
			"amount_in":  ev.AmountIn,
			"amount_out": ev.AmountOut,
			"attempts":   ev.Attempts,
		})
		if ev.Success {
			entry.WithField("bundle_id", ev.BundleID).Info("order confirmed")
		} else {
			entry.WithField("error", ev.Error).Warn("order failed")
		}
	})
	if err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("order feed subscription failed")
	}
}
