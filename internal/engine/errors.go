package engine

import (
	"errors"
	"fmt"

	"github.com/usmanhaider/raydium-swap-engine/internal/raydium"
)

var (
	// ErrRetryBudgetExhausted means every attempt of an order failed on a
	// transient error. It always wraps the last attempt's error.
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

	// ErrTradingDisabled means the kill switch is off. Orders are rejected
	// before any chain interaction.
	ErrTradingDisabled = errors.New("trading disabled")
)

// structuralErrors will not heal on retry: the same inputs produce the same
// failure, so retrying only burns RPC calls and time.
var structuralErrors = []error{
	raydium.ErrInvalidInput,
	raydium.ErrInsufficientLiquidity,
	raydium.ErrPoolNotFound,
	raydium.ErrDecodeFailure,
	raydium.ErrDirectionMismatch,
	raydium.ErrTooLarge,
}

// IsStructural reports whether an error short-circuits the retry loop.
// Anything not on the structural list is treated as transient, so unknown
// failures get the benefit of a retry.
func IsStructural(err error) bool {
	for _, target := range structuralErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// exhausted wraps the final transient error once the attempt budget is gone.
func exhausted(attempts int, last error) error {
	return fmt.Errorf("%w: %d attempts, last error: %w", ErrRetryBudgetExhausted, attempts, last)
}
