package position

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openPosition() *Position {
	return &Position{
		PoolID:            "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2",
		TokenMint:         "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		OpenedAt:          time.Now().UTC(),
		AmountHeld:        1_000_000_000,
		BaselineAmountOut: 100_000_000,
		BaselineMinOut:    95_000_000,
		BaselineLiquidity: decimal.NewFromInt(2000),
	}
}

func TestComputeReprice_UpMove(t *testing.T) {
	pos := openPosition()

	rp, err := ComputeReprice(pos, 150_000_000, 142_500_000, decimal.NewFromInt(2500))
	require.NoError(t, err)

	assert.True(t, rp.ChangePct.Equal(decimal.NewFromInt(50)), "got %s", rp.ChangePct)
	assert.True(t, rp.MinChangePct.Equal(decimal.NewFromInt(50)), "got %s", rp.MinChangePct)
	assert.True(t, rp.LiquidityDelta.Equal(decimal.NewFromInt(500)), "got %s", rp.LiquidityDelta)
}

func TestComputeReprice_DownMove(t *testing.T) {
	pos := openPosition()

	rp, err := ComputeReprice(pos, 50_000_000, 47_500_000, decimal.NewFromInt(800))
	require.NoError(t, err)

	assert.True(t, rp.ChangePct.Equal(decimal.NewFromInt(-50)), "got %s", rp.ChangePct)
	assert.True(t, rp.LiquidityDelta.Equal(decimal.NewFromInt(-1200)), "got %s", rp.LiquidityDelta)
}

func TestComputeReprice_NoBaseline(t *testing.T) {
	pos := openPosition()
	pos.BaselineAmountOut = 0

	_, err := ComputeReprice(pos, 100, 95, decimal.Zero)
	assert.Error(t, err)
}

func TestThresholdPolicy(t *testing.T) {
	policy := ThresholdPolicy(decimal.NewFromInt(1000), decimal.NewFromInt(50))
	pos := openPosition()

	cases := []struct {
		name      string
		changePct int64
		liquidity int64
		exit      bool
	}{
		{"steady pool holds", 10, 2000, false},
		{"drained liquidity exits", 10, 500, true},
		{"big pump exits", 80, 2000, true},
		{"big dump exits", -80, 2000, true},
		{"exactly at move threshold holds", 50, 2000, false},
		{"just below liquidity floor exits", 0, 999, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rp := &Reprice{
				ChangePct:    decimal.NewFromInt(tc.changePct),
				LiquiditySOL: decimal.NewFromInt(tc.liquidity),
			}
			assert.Equal(t, tc.exit, policy(pos, rp))
		})
	}
}

func TestBook_OpenCloseGet(t *testing.T) {
	book := NewBook(nil)
	ctx := context.Background()
	pos := openPosition()

	require.NoError(t, book.Open(ctx, pos))
	assert.Equal(t, 1, book.Len())

	got, ok := book.Get(pos.PoolID)
	require.True(t, ok)
	assert.Equal(t, pos.TokenMint, got.TokenMint)

	_, ok = book.Get("missing")
	assert.False(t, ok)

	require.NoError(t, book.Close(ctx, pos.PoolID))
	assert.Equal(t, 0, book.Len())
	_, ok = book.Get(pos.PoolID)
	assert.False(t, ok)
}

func TestBook_AllCopies(t *testing.T) {
	book := NewBook(nil)
	ctx := context.Background()

	require.NoError(t, book.Open(ctx, openPosition()))
	second := openPosition()
	second.PoolID = "7XawhbbxtsRcQA8KTkHT9f9nc6d69UwqCDh6U5EEbEmX"
	require.NoError(t, book.Open(ctx, second))

	all := book.All()
	assert.Len(t, all, 2)

	// Closing after the snapshot does not shrink the returned slice.
	require.NoError(t, book.Close(ctx, second.PoolID))
	assert.Len(t, all, 2)
	assert.Equal(t, 1, book.Len())
}

func TestExitRequest(t *testing.T) {
	pos := openPosition()

	req, err := exitRequest(pos)
	require.NoError(t, err)
	assert.Equal(t, pos.PoolID, req.PoolID.String())
	assert.Equal(t, "So11111111111111111111111111111111111111112", req.OutputMint.String())
	assert.Equal(t, pos.AmountHeld, req.AmountIn)

	pos.PoolID = "not-a-pubkey"
	_, err = exitRequest(pos)
	assert.Error(t, err)
}
