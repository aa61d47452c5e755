package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/usmanhaider/raydium-swap-engine/internal/cache"
	"github.com/usmanhaider/raydium-swap-engine/internal/engine"
	"github.com/usmanhaider/raydium-swap-engine/internal/flags"
	"github.com/usmanhaider/raydium-swap-engine/internal/position"
	"github.com/usmanhaider/raydium-swap-engine/internal/raydium"
)

// Trader is the engine surface the API needs.
type Trader interface {
	Quote(ctx context.Context, req *engine.OrderRequest) (*raydium.Quote, *raydium.ReserveSnapshot, error)
	ExecuteOrder(ctx context.Context, req *engine.OrderRequest) (*engine.OrderResult, error)
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine   Trader
	Cache    *cache.RedisCache      // Recent order feed (optional)
	History  *cache.ClickHouseStore // Order history (optional)
	Switches *flags.Store           // Runtime switch store
	Book     *position.Book         // Open positions (optional)
	DevMode  bool
	Logger   *logrus.Logger
}

// err returns a standardized JSON error response.
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// parseOrderInputs validates the shared fields of quote and order requests.
func parseOrderInputs(poolID, outputMint, amountIn string) (*engine.OrderRequest, error) {
	pool, err := solana.PublicKeyFromBase58(strings.TrimSpace(poolID))
	if err != nil {
		return nil, errors.New("pool_id must be a base58 public key")
	}
	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(outputMint))
	if err != nil {
		return nil, errors.New("output_mint must be a base58 public key")
	}
	amount, err := strconv.ParseUint(strings.TrimSpace(amountIn), 10, 64)
	if err != nil || amount == 0 {
		return nil, errors.New("amount_in must be a positive integer string")
	}
	return &engine.OrderRequest{PoolID: pool, OutputMint: mint, AmountIn: amount}, nil
}

// statusFor maps engine errors to HTTP codes: caller mistakes are 4xx,
// market conditions and infrastructure failures are 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, raydium.ErrInvalidInput),
		errors.Is(err, raydium.ErrDirectionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, raydium.ErrPoolNotFound):
		return http.StatusNotFound
	case errors.Is(err, raydium.ErrInsufficientLiquidity),
		errors.Is(err, raydium.ErrTooLarge):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrTradingDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// Quote prices a trade against live reserves without executing it
func (h *Handlers) Quote(c echo.Context) error {
	var req QuoteRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	orderReq, err := parseOrderInputs(req.PoolID, req.OutputMint, req.AmountIn)
	if err != nil {
		return h.err(c, http.StatusBadRequest, err.Error(), nil)
	}
	orderReq.SlippageBps = req.SlippageBps

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	quote, snap, err := h.Engine.Quote(ctx, orderReq)
	if err != nil {
		return h.err(c, statusFor(err), "quote failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, QuoteResponse{
		Direction:    quote.Direction.String(),
		AmountIn:     quote.AmountIn,
		AmountOut:    quote.AmountOut,
		MinAmountOut: quote.MinAmountOut,
		SlippageBps:  quote.SlippageBps,
		ReserveIn:    quote.ReserveIn,
		ReserveOut:   quote.ReserveOut,
		Slot:         quote.Slot,
		LiquiditySOL: snap.LiquiditySOL.StringFixed(4),
	})
}

// SubmitOrder executes a trade through the full retry lifecycle and blocks
// until it reaches a terminal state
func (h *Handlers) SubmitOrder(c echo.Context) error {
	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	orderReq, err := parseOrderInputs(req.PoolID, req.OutputMint, req.AmountIn)
	if err != nil {
		return h.err(c, http.StatusBadRequest, err.Error(), nil)
	}
	orderReq.SlippageBps = req.SlippageBps
	orderReq.MaxAttempts = req.MaxAttempts

	result, execErr := h.Engine.ExecuteOrder(c.Request().Context(), orderReq)
	if result == nil {
		return h.err(c, http.StatusInternalServerError, "order produced no result", nil)
	}

	resp := OrderResponse{
		OrderID:    result.OrderID,
		State:      string(result.State),
		BundleID:   result.BundleID,
		Attempts:   len(result.Attempts),
		DurationMs: result.Duration.Milliseconds(),
	}
	if result.Quote != nil {
		resp.Direction = result.Direction.String()
		resp.AmountOut = result.Quote.AmountOut
		resp.MinAmountOut = result.Quote.MinAmountOut
	}
	if execErr != nil {
		resp.Error = execErr.Error()
		return c.JSON(statusFor(execErr), resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// RecentOrders returns the most recent order events from the live feed.
// Accepts limit query parameter (default: 100, range: 1-200)
func (h *Handlers) RecentOrders(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusServiceUnavailable, "order feed not configured", nil)
	}

	limitStr := c.QueryParam("limit")
	limit := 100
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentOrders(ctx, limit)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get orders", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// PoolOrders returns the order history for one pool from ClickHouse
func (h *Handlers) PoolOrders(c echo.Context) error {
	if h.History == nil {
		return h.err(c, http.StatusServiceUnavailable, "order history not configured", nil)
	}

	pool := strings.TrimSpace(c.Param("pool"))
	if _, err := solana.PublicKeyFromBase58(pool); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool id", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.History.OrdersForPool(ctx, pool, 50)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to query history", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Positions returns every open position
func (h *Handlers) Positions(c echo.Context) error {
	if h.Book == nil {
		return h.err(c, http.StatusServiceUnavailable, "positions not configured", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": h.Book.All()})
}

// SwitchesUpsert creates or updates a runtime switch
func (h *Handlers) SwitchesUpsert(c echo.Context) error {
	var req SwitchUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Switches.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert switch", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// SwitchesUpdate updates an existing runtime switch
func (h *Handlers) SwitchesUpdate(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req SwitchUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Switches.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update switch", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// SwitchesGet retrieves a runtime switch by key. Returns 404 if absent
func (h *Handlers) SwitchesGet(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Switches.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "switch not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get switch", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// SwitchesList returns all runtime switches
func (h *Handlers) SwitchesList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Switches.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list switches", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// SwitchesDelete removes a runtime switch. Returns 204 on success
func (h *Handlers) SwitchesDelete(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Switches.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete switch", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
