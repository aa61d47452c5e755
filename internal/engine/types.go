package engine

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/usmanhaider/raydium-swap-engine/internal/raydium"
)

// OrderRequest is everything the caller knows about a desired trade.
type OrderRequest struct {
	PoolID     solana.PublicKey
	OutputMint solana.PublicKey

	// AmountIn is in raw units of the input token.
	AmountIn uint64

	// SlippageBps overrides the engine default when non-nil.
	SlippageBps *uint64

	// MaxAttempts overrides the engine's retry budget when positive.
	MaxAttempts int
}

// OrderState is the lifecycle position of an order. Transitions only move
// forward within an attempt; a retry restarts at StateQuoting with fresh
// market data.
type OrderState string

const (
	StatePending    OrderState = "pending"
	StateQuoting    OrderState = "quoting"
	StateBuilding   OrderState = "building"
	StateSubmitting OrderState = "submitting"
	StateConfirmed  OrderState = "confirmed"
	StateFailed     OrderState = "failed"
)

// Attempt records one pass through the quote/build/submit pipeline.
type Attempt struct {
	Number    int
	Quote     *raydium.Quote
	BundleID  string
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// OrderResult is the terminal outcome of one logical order.
type OrderResult struct {
	OrderID   string
	State     OrderState
	Direction raydium.Direction

	// Quote is the priced trade from the final attempt.
	Quote *raydium.Quote

	// Snapshot is the reserve observation the final quote was priced
	// against; nil when the order failed before reading reserves.
	Snapshot *raydium.ReserveSnapshot

	BundleID string

	Attempts []Attempt
	Duration time.Duration
	Err      error
}

// Succeeded reports whether the order confirmed on-chain.
func (r *OrderResult) Succeeded() bool {
	return r != nil && r.State == StateConfirmed
}
