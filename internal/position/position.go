// Package position tracks open token holdings and reprices them against
// live pool state.
package position

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/usmanhaider/raydium-swap-engine/internal/constants"
)

// Position is one open holding: tokens bought and not yet sold, with the
// exit quote captured at entry as the comparison baseline.
type Position struct {
	PoolID    string    `json:"pool_id"`
	TokenMint string    `json:"token_mint"`
	OpenedAt  time.Time `json:"opened_at"`

	// AmountHeld is the raw token amount the wallet holds.
	AmountHeld uint64 `json:"amount_held"`

	// BaselineAmountOut and BaselineMinOut are what selling the entire
	// holding quoted at entry time. Repricing compares against these.
	BaselineAmountOut uint64 `json:"baseline_amount_out"`
	BaselineMinOut    uint64 `json:"baseline_min_out"`

	// BaselineLiquidity is the pool's liquidity measure at entry.
	BaselineLiquidity decimal.Decimal `json:"baseline_liquidity"`
}

// Reprice compares a fresh exit quote to the position's baseline. Pure
// arithmetic: callers decide what the numbers mean.
type Reprice struct {
	// ChangePct is the percentage move of the gross exit amount:
	// ((new - old) / old) * 100.
	ChangePct decimal.Decimal

	// MinChangePct is the same movement measured on the slippage-adjusted
	// minimum, the amount a sell would actually guarantee.
	MinChangePct decimal.Decimal

	// LiquiditySOL is the pool's current liquidity measure.
	LiquiditySOL decimal.Decimal

	// LiquidityDelta is current minus baseline liquidity. A large negative
	// delta means the pool is draining.
	LiquidityDelta decimal.Decimal

	RepricedAt time.Time
}

// ComputeReprice derives the movement of a position given a fresh exit quote
// for the full holding.
func ComputeReprice(pos *Position, freshAmountOut, freshMinOut uint64, liquidity decimal.Decimal) (*Reprice, error) {
	if pos.BaselineAmountOut == 0 || pos.BaselineMinOut == 0 {
		return nil, fmt.Errorf("position %s has no baseline quote", pos.PoolID)
	}

	return &Reprice{
		ChangePct:      percentChange(pos.BaselineAmountOut, freshAmountOut),
		MinChangePct:   percentChange(pos.BaselineMinOut, freshMinOut),
		LiquiditySOL:   liquidity,
		LiquidityDelta: liquidity.Sub(pos.BaselineLiquidity),
		RepricedAt:     time.Now().UTC(),
	}, nil
}

func percentChange(old, new uint64) decimal.Decimal {
	oldD := decimal.NewFromUint64(old)
	newD := decimal.NewFromUint64(new)
	return newD.Sub(oldD).Div(oldD).Mul(decimal.NewFromInt(100))
}

// Book is the set of open positions, keyed by pool. An optional Redis client
// persists the book across engine restarts.
type Book struct {
	mu        sync.RWMutex
	positions map[string]*Position
	redis     redis.Cmdable
}

func NewBook(redisClient redis.Cmdable) *Book {
	return &Book{
		positions: make(map[string]*Position),
		redis:     redisClient,
	}
}

// Restore loads persisted positions into memory. Called once at startup.
func (b *Book) Restore(ctx context.Context) error {
	if b.redis == nil {
		return nil
	}

	entries, err := b.redis.HGetAll(ctx, constants.RedisKeyPositions).Result()
	if err != nil {
		return fmt.Errorf("restore positions: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for poolID, raw := range entries {
		var pos Position
		if err := json.Unmarshal([]byte(raw), &pos); err != nil {
			continue
		}
		b.positions[poolID] = &pos
	}
	return nil
}

func (b *Book) Open(ctx context.Context, pos *Position) error {
	b.mu.Lock()
	b.positions[pos.PoolID] = pos
	b.mu.Unlock()

	if b.redis == nil {
		return nil
	}
	raw, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}
	if err := b.redis.HSet(ctx, constants.RedisKeyPositions, pos.PoolID, raw).Err(); err != nil {
		return fmt.Errorf("persist position: %w", err)
	}
	return nil
}

func (b *Book) Close(ctx context.Context, poolID string) error {
	b.mu.Lock()
	delete(b.positions, poolID)
	b.mu.Unlock()

	if b.redis == nil {
		return nil
	}
	if err := b.redis.HDel(ctx, constants.RedisKeyPositions, poolID).Err(); err != nil {
		return fmt.Errorf("remove persisted position: %w", err)
	}
	return nil
}

func (b *Book) Get(poolID string) (*Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	pos, ok := b.positions[poolID]
	return pos, ok
}

func (b *Book) All() []*Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, pos)
	}
	return out
}

func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.positions)
}
