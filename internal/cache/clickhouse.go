package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/usmanhaider/raydium-swap-engine/internal/models"
)

type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewClickHouseStore(addr, database, username, password string, logger *logrus.Logger) (*ClickHouseStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.WithField("addr", addr).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: logger}, nil
}

func (c *ClickHouseStore) Close() error { return c.conn.Close() }

// EnsureSchema creates the orders table if it does not exist yet.
func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS orders (
			order_id       String,
			bundle_id      String,
			timestamp      DateTime64(3),
			pool_id        String,
			direction      LowCardinality(String),
			token_mint     String,
			amount_in      UInt64,
			amount_out     UInt64,
			min_amount_out UInt64,
			liquidity_sol  String,
			attempts       UInt8,
			success        UInt8,
			error          String
		) ENGINE = MergeTree()
		ORDER BY (timestamp, pool_id)
	`
	if err := c.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create orders table: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) InsertOrder(ctx context.Context, ev *models.OrderEvent) error {
	query := `
		INSERT INTO orders (
			order_id, bundle_id, timestamp, pool_id, direction, token_mint,
			amount_in, amount_out, min_amount_out, liquidity_sol,
			attempts, success, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	success := uint8(0)
	if ev.Success {
		success = 1
	}

	err := c.conn.Exec(ctx, query,
		ev.OrderID,
		ev.BundleID,
		ev.Timestamp,
		ev.PoolID,
		ev.Direction,
		ev.TokenMint,
		ev.AmountIn,
		ev.AmountOut,
		ev.MinAmountOut,
		ev.LiquiditySOL,
		uint8(ev.Attempts),
		success,
		ev.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// OrdersForPool returns the most recent order history for one pool.
func (c *ClickHouseStore) OrdersForPool(ctx context.Context, poolID string, limit int) ([]*models.OrderEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT order_id, bundle_id, timestamp, pool_id, direction, token_mint,
		       amount_in, amount_out, min_amount_out, liquidity_sol,
		       attempts, success, error
		FROM orders
		WHERE pool_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := c.conn.Query(ctx, query, poolID, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []*models.OrderEvent
	for rows.Next() {
		var (
			ev       models.OrderEvent
			attempts uint8
			success  uint8
		)
		if err := rows.Scan(
			&ev.OrderID, &ev.BundleID, &ev.Timestamp, &ev.PoolID,
			&ev.Direction, &ev.TokenMint, &ev.AmountIn, &ev.AmountOut,
			&ev.MinAmountOut, &ev.LiquiditySOL, &attempts, &success, &ev.Error,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		ev.Attempts = int(attempts)
		ev.Success = success == 1
		out = append(out, &ev)
	}
	return out, rows.Err()
}
