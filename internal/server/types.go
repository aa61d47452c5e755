package server

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// QuoteRequest prices a trade without executing it. AmountIn is a raw
// integer string: uint64 amounts do not survive JSON floats.
type QuoteRequest struct {
	PoolID      string  `json:"pool_id"`
	OutputMint  string  `json:"output_mint"`
	AmountIn    string  `json:"amount_in"`
	SlippageBps *uint64 `json:"slippage_bps,omitempty"`
}

// QuoteResponse is a priced trade against live reserves
type QuoteResponse struct {
	Direction    string `json:"direction"`
	AmountIn     uint64 `json:"amount_in"`
	AmountOut    uint64 `json:"amount_out"`
	MinAmountOut uint64 `json:"min_amount_out"`
	SlippageBps  uint64 `json:"slippage_bps"`
	ReserveIn    uint64 `json:"reserve_in"`
	ReserveOut   uint64 `json:"reserve_out"`
	Slot         uint64 `json:"slot"`
	LiquiditySOL string `json:"liquidity_sol"`
}

// OrderRequest submits a trade for execution
type OrderRequest struct {
	PoolID      string  `json:"pool_id"`
	OutputMint  string  `json:"output_mint"`
	AmountIn    string  `json:"amount_in"`
	SlippageBps *uint64 `json:"slippage_bps,omitempty"`
	MaxAttempts int     `json:"max_attempts,omitempty"`
}

// OrderResponse is the terminal outcome of an order
type OrderResponse struct {
	OrderID      string `json:"order_id"`
	State        string `json:"state"`
	Direction    string `json:"direction,omitempty"`
	BundleID     string `json:"bundle_id,omitempty"`
	AmountOut    uint64 `json:"amount_out,omitempty"`
	MinAmountOut uint64 `json:"min_amount_out,omitempty"`
	Attempts     int    `json:"attempts"`
	DurationMs   int64  `json:"duration_ms"`
	Error        string `json:"error,omitempty"`
}

// SwitchUpsertRequest creates or updates a runtime switch
type SwitchUpsertRequest struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

// SwitchUpdateRequest updates an existing runtime switch
type SwitchUpdateRequest struct {
	Value bool `json:"value"`
}
