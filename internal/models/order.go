package models

import "time"

// OrderEvent is the terminal record of one executed (or failed) order,
// published to Redis and persisted to ClickHouse.
type OrderEvent struct {
	OrderID      string    `json:"order_id"`
	BundleID     string    `json:"bundle_id"`
	Timestamp    time.Time `json:"timestamp"`
	PoolID       string    `json:"pool_id"`
	Direction    string    `json:"direction"` // "buy" or "sell"
	TokenMint    string    `json:"token_mint"`
	AmountIn     uint64    `json:"amount_in"`
	AmountOut    uint64    `json:"amount_out"`
	MinAmountOut uint64    `json:"min_amount_out"`
	LiquiditySOL string    `json:"liquidity_sol"` // decimal string, display only
	Attempts     int       `json:"attempts"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
}
