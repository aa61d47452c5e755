package raydium

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/usmanhaider/raydium-swap-engine/internal/rpc"
)

// ErrVaultUnreadable means a vault balance could not be fetched. Transient.
var ErrVaultUnreadable = errors.New("vault unreadable")

// ReserveSnapshot is one observation of a pool's vault balances. Never
// cached: every quote starts from a fresh read, and freshness is bounded
// only by RPC latency.
type ReserveSnapshot struct {
	BaseReserve  uint64
	QuoteReserve uint64

	// LiquiditySOL values both sides in the reference currency using the
	// instantaneous spot ratio between them. Display/policy only, never
	// part of the integer quote path.
	LiquiditySOL decimal.Decimal

	Slot       uint64
	ObservedAt time.Time
}

// PriceSource converts a quote-side asset into the reference currency.
// Optional: pools quoted in wSOL need no conversion.
type PriceSource interface {
	GetPriceSOL(ctx context.Context, mint string) (decimal.Decimal, error)
}

// ReserveReader reads live vault balances and derives the liquidity measure.
type ReserveReader struct {
	rpc    *rpc.Client
	prices PriceSource
	logger *logrus.Logger
}

func NewReserveReader(client *rpc.Client, prices PriceSource, logger *logrus.Logger) *ReserveReader {
	if logger == nil {
		logger = logrus.New()
	}
	return &ReserveReader{rpc: client, prices: prices, logger: logger}
}

// Read fetches both vault balances directly from account state.
func (r *ReserveReader) Read(ctx context.Context, keys *PoolKeys) (*ReserveSnapshot, error) {
	base, baseSlot, err := r.rpc.GetTokenAccountBalance(ctx, keys.BaseVault.String())
	if err != nil {
		return nil, fmt.Errorf("%w: base vault %s: %v", ErrVaultUnreadable, keys.BaseVault, err)
	}

	quote, quoteSlot, err := r.rpc.GetTokenAccountBalance(ctx, keys.QuoteVault.String())
	if err != nil {
		return nil, fmt.Errorf("%w: quote vault %s: %v", ErrVaultUnreadable, keys.QuoteVault, err)
	}

	slot := baseSlot
	if quoteSlot > slot {
		slot = quoteSlot
	}

	liquidity, err := r.deriveLiquidity(ctx, keys, base, quote)
	if err != nil {
		return nil, err
	}

	snap := &ReserveSnapshot{
		BaseReserve:  base,
		QuoteReserve: quote,
		LiquiditySOL: liquidity,
		Slot:         slot,
		ObservedAt:   time.Now().UTC(),
	}

	r.logger.WithFields(logrus.Fields{
		"pool":      keys.ID.String(),
		"base":      base,
		"quote":     quote,
		"liquidity": liquidity.StringFixed(4),
		"slot":      slot,
	}).Debug("read reserves")

	return snap, nil
}

// deriveLiquidity values the pool in the reference currency. At the spot
// ratio the base side is worth exactly the quote side, so total liquidity is
// twice the quote side's reference value. A drained quote side therefore
// reads as near-zero liquidity even while the base vault still holds tokens.
func (r *ReserveReader) deriveLiquidity(ctx context.Context, keys *PoolKeys, base, quote uint64) (decimal.Decimal, error) {
	quoteUI := decimal.NewFromUint64(quote).Shift(-int32(keys.QuoteDecimals))
	if base == 0 {
		// No base side at all: nothing can be bought, liquidity is the
		// quote side alone.
		return quoteUI, nil
	}

	liquidity := quoteUI.Mul(decimal.NewFromInt(2))

	if keys.IsWSOLQuoted() || r.prices == nil {
		return liquidity, nil
	}

	price, err := r.prices.GetPriceSOL(ctx, keys.QuoteMint.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: reference price for %s: %v", ErrVaultUnreadable, keys.QuoteMint, err)
	}
	return liquidity.Mul(price), nil
}
