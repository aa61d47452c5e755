package position

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usmanhaider/raydium-swap-engine/internal/engine"
	"github.com/usmanhaider/raydium-swap-engine/internal/raydium"
)

type stubTrader struct {
	quote      *raydium.Quote
	snap       *raydium.ReserveSnapshot
	quoteErr   error
	execResult *engine.OrderResult
	execErr    error
	quotes     int
	execs      int
}

func (s *stubTrader) Quote(ctx context.Context, req *engine.OrderRequest) (*raydium.Quote, *raydium.ReserveSnapshot, error) {
	s.quotes++
	if s.quoteErr != nil {
		return nil, nil, s.quoteErr
	}
	return s.quote, s.snap, nil
}

func (s *stubTrader) ExecuteOrder(ctx context.Context, req *engine.OrderRequest) (*engine.OrderResult, error) {
	s.execs++
	if s.execErr != nil {
		return nil, s.execErr
	}
	return s.execResult, nil
}

func freshExit(amountOut, minOut uint64, liquidity int64) *stubTrader {
	return &stubTrader{
		quote: &raydium.Quote{
			Direction:    raydium.DirectionSell,
			AmountOut:    amountOut,
			MinAmountOut: minOut,
		},
		snap: &raydium.ReserveSnapshot{
			LiquiditySOL: decimal.NewFromInt(liquidity),
		},
		execResult: &engine.OrderResult{
			State:    engine.StateConfirmed,
			BundleID: "bundle-exit",
		},
	}
}

func newTestMonitor(book *Book, trader Trader) *Monitor {
	policy := ThresholdPolicy(decimal.NewFromInt(1000), decimal.NewFromInt(50))
	return NewMonitor(MonitorConfig{Workers: 1}, book, trader, policy, nil)
}

func TestMonitorCheck_HoldsWithinThresholds(t *testing.T) {
	book := NewBook(nil)
	pos := openPosition()
	require.NoError(t, book.Open(context.Background(), pos))

	// +10% move, healthy liquidity: nothing to do.
	trader := freshExit(110_000_000, 104_500_000, 2000)
	m := newTestMonitor(book, trader)

	m.check(context.Background(), pos)
	assert.Equal(t, 1, trader.quotes)
	assert.Equal(t, 0, trader.execs)
	assert.Equal(t, 1, book.Len())
}

func TestMonitorCheck_ExitsOnBigMove(t *testing.T) {
	book := NewBook(nil)
	pos := openPosition()
	require.NoError(t, book.Open(context.Background(), pos))

	// -80% move forces the exit and removes the position.
	trader := freshExit(20_000_000, 19_000_000, 2000)
	m := newTestMonitor(book, trader)

	m.check(context.Background(), pos)
	assert.Equal(t, 1, trader.execs)
	assert.Equal(t, 0, book.Len())
}

func TestMonitorCheck_ExitsOnDrainedLiquidity(t *testing.T) {
	book := NewBook(nil)
	pos := openPosition()
	require.NoError(t, book.Open(context.Background(), pos))

	trader := freshExit(100_000_000, 95_000_000, 200)
	m := newTestMonitor(book, trader)

	m.check(context.Background(), pos)
	assert.Equal(t, 1, trader.execs)
	assert.Equal(t, 0, book.Len())
}

func TestMonitorCheck_HoldsOnRepriceFailure(t *testing.T) {
	book := NewBook(nil)
	pos := openPosition()
	require.NoError(t, book.Open(context.Background(), pos))

	trader := &stubTrader{quoteErr: errors.New("rpc unreachable")}
	m := newTestMonitor(book, trader)

	m.check(context.Background(), pos)
	assert.Equal(t, 0, trader.execs, "a failed reprice must never sell")
	assert.Equal(t, 1, book.Len())
}

func TestMonitorCheck_HoldsWhenExitFails(t *testing.T) {
	book := NewBook(nil)
	pos := openPosition()
	require.NoError(t, book.Open(context.Background(), pos))

	trader := freshExit(20_000_000, 19_000_000, 2000)
	trader.execErr = errors.New("bundle rejected")
	m := newTestMonitor(book, trader)

	m.check(context.Background(), pos)
	assert.Equal(t, 1, trader.execs)
	assert.Equal(t, 1, book.Len(), "failed exit keeps the position open")
}

func TestMonitorSweep_VisitsEveryPosition(t *testing.T) {
	book := NewBook(nil)
	ctx := context.Background()

	first := openPosition()
	require.NoError(t, book.Open(ctx, first))
	second := openPosition()
	second.PoolID = "7XawhbbxtsRcQA8KTkHT9f9nc6d69UwqCDh6U5EEbEmX"
	require.NoError(t, book.Open(ctx, second))

	trader := freshExit(110_000_000, 104_500_000, 2000)
	m := newTestMonitor(book, trader)

	m.sweep(ctx)
	assert.Equal(t, 2, trader.quotes)
	assert.Equal(t, 2, book.Len())
}
