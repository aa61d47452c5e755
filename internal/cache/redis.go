// Package cache holds the order event sinks: a Redis live feed plus recent
// history, and a ClickHouse table for the long tail.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/usmanhaider/raydium-swap-engine/internal/constants"
	"github.com/usmanhaider/raydium-swap-engine/internal/models"
)

type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisCache(addr, password string, db int, logger *logrus.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = logrus.New()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisCache{client: client, logger: logger}, nil
}

// NewRedisCacheFromClient wraps an already-connected client, letting the
// feed share a connection pool with the switch store.
func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

func (r *RedisCache) Client() *redis.Client { return r.client }

func (r *RedisCache) Close() error { return r.client.Close() }

// AddRecentOrder pushes the event onto the capped recent-orders list.
func (r *RedisCache) AddRecentOrder(ctx context.Context, ev *models.OrderEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentOrders, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentOrders, 0, constants.MaxRecentOrders-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record recent order: %w", err)
	}
	return nil
}

// GetRecentOrders returns up to limit most recent order events, newest first.
func (r *RedisCache) GetRecentOrders(ctx context.Context, limit int) ([]*models.OrderEvent, error) {
	if limit <= 0 || limit > constants.MaxRecentOrders {
		limit = constants.MaxRecentOrders
	}

	raw, err := r.client.LRange(ctx, constants.RedisKeyRecentOrders, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch recent orders: %w", err)
	}

	out := make([]*models.OrderEvent, 0, len(raw))
	for _, item := range raw {
		var ev models.OrderEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			r.logger.WithError(err).Warn("skipping unreadable order event")
			continue
		}
		out = append(out, &ev)
	}
	return out, nil
}

// PublishOrder broadcasts the event on the live order channel.
func (r *RedisCache) PublishOrder(ctx context.Context, ev *models.OrderEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	if err := r.client.Publish(ctx, constants.PubSubChannelOrders, data).Err(); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

// SubscribeOrders delivers live order events to handler until the context is
// canceled.
func (r *RedisCache) SubscribeOrders(ctx context.Context, handler func(*models.OrderEvent)) error {
	pubsub := r.client.Subscribe(ctx, constants.PubSubChannelOrders)
	defer pubsub.Close()

	r.logger.WithField("channel", constants.PubSubChannelOrders).Info("subscribed to order feed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev models.OrderEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.logger.WithError(err).Warn("skipping unreadable order event")
				continue
			}
			handler(&ev)
		}
	}
}
