package raydium

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrInvalidInput covers non-positive amounts and malformed parameters.
	// Structural: no retry will fix it.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientLiquidity means a reserve is zero or the pool cannot
	// satisfy the trade. Structural.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrDirectionMismatch means the requested output mint is neither side
	// of the pool. Structural.
	ErrDirectionMismatch = errors.New("direction mismatch")

	// ErrComputeFailure covers arithmetic that cannot produce a usable
	// quote, such as an amount out of zero.
	ErrComputeFailure = errors.New("quote compute failure")
)

// Direction says which side of the pool the trader receives.
type Direction uint8

const (
	// DirectionBuy spends the quote asset and receives the base asset.
	DirectionBuy Direction = iota
	// DirectionSell spends the base asset and receives the quote asset.
	DirectionSell
)

func (d Direction) String() string {
	if d == DirectionBuy {
		return "buy"
	}
	return "sell"
}

// DetermineDirection maps a desired output mint onto a pool side by exact
// byte comparison. Symbol or name matching is never used: two tokens can
// share a symbol but never a mint address.
func DetermineDirection(keys *PoolKeys, outputMint solana.PublicKey) (Direction, error) {
	switch {
	case bytes.Equal(outputMint[:], keys.BaseMint[:]):
		return DirectionBuy, nil
	case bytes.Equal(outputMint[:], keys.QuoteMint[:]):
		return DirectionSell, nil
	default:
		return 0, fmt.Errorf("%w: mint %s is neither side of pool %s",
			ErrDirectionMismatch, outputMint, keys.ID)
	}
}

// Quote is a priced trade against one reserve snapshot. All amounts are raw
// token units; decimals matter only at the display layer.
type Quote struct {
	Direction    Direction
	AmountIn     uint64
	AmountOut    uint64
	MinAmountOut uint64
	SlippageBps  uint64

	ReserveIn  uint64
	ReserveOut uint64
	Slot       uint64
}

// ComputeQuote prices amountIn against the constant-product curve:
//
//	amountOut = reserveOut - (reserveIn * reserveOut) / (reserveIn + amountIn)
//
// evaluated in arbitrary precision, rounding the output down so the pool
// keeps every fractional unit. minAmountOut applies the slippage tolerance
// in basis points, again truncating.
func ComputeQuote(snap *ReserveSnapshot, dir Direction, amountIn uint64, slippageBps uint64) (*Quote, error) {
	if amountIn == 0 {
		return nil, fmt.Errorf("%w: amount in must be positive", ErrInvalidInput)
	}
	if slippageBps > 10000 {
		return nil, fmt.Errorf("%w: slippage %d bps exceeds 10000", ErrInvalidInput, slippageBps)
	}

	var reserveIn, reserveOut uint64
	switch dir {
	case DirectionBuy:
		reserveIn, reserveOut = snap.QuoteReserve, snap.BaseReserve
	case DirectionSell:
		reserveIn, reserveOut = snap.BaseReserve, snap.QuoteReserve
	default:
		return nil, fmt.Errorf("%w: unknown direction %d", ErrInvalidInput, dir)
	}

	if reserveIn == 0 || reserveOut == 0 {
		return nil, fmt.Errorf("%w: pool has an empty reserve", ErrInsufficientLiquidity)
	}

	amountOut := constantProductOut(reserveIn, reserveOut, amountIn)
	if amountOut == 0 {
		return nil, fmt.Errorf("%w: amount out rounds to zero", ErrComputeFailure)
	}
	if amountOut >= reserveOut {
		return nil, fmt.Errorf("%w: trade would drain the pool", ErrInsufficientLiquidity)
	}

	return &Quote{
		Direction:    dir,
		AmountIn:     amountIn,
		AmountOut:    amountOut,
		MinAmountOut: ApplySlippage(amountOut, slippageBps),
		SlippageBps:  slippageBps,
		ReserveIn:    reserveIn,
		ReserveOut:   reserveOut,
		Slot:         snap.Slot,
	}, nil
}

// constantProductOut evaluates the swap output in big.Int. uint64 products
// overflow for realistic reserves, and floats would drift on the money path.
// The retained reserve rounds up, so the output always rounds down in the
// pool's favor; this is what keeps zero-fee round trips from netting a unit.
func constantProductOut(reserveIn, reserveOut, amountIn uint64) uint64 {
	rIn := new(big.Int).SetUint64(reserveIn)
	rOut := new(big.Int).SetUint64(reserveOut)
	in := new(big.Int).SetUint64(amountIn)

	denom := new(big.Int).Add(rIn, in)
	k := new(big.Int).Mul(rIn, rOut)

	newOut, rem := new(big.Int).QuoRem(k, denom, new(big.Int))
	if rem.Sign() != 0 {
		newOut.Add(newOut, big.NewInt(1))
	}

	return new(big.Int).Sub(rOut, newOut).Uint64()
}

// ApplySlippage scales an amount down by the tolerance in basis points,
// truncating toward zero.
func ApplySlippage(amountOut, slippageBps uint64) uint64 {
	out := new(big.Int).SetUint64(amountOut)
	out.Mul(out, big.NewInt(int64(10000-slippageBps)))
	out.Quo(out, big.NewInt(10000))
	return out.Uint64()
}
