package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usmanhaider/raydium-swap-engine/internal/engine"
	"github.com/usmanhaider/raydium-swap-engine/internal/raydium"
)

const (
	testPoolID = "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"
	testMint   = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

type stubTrader struct {
	quote      *raydium.Quote
	snap       *raydium.ReserveSnapshot
	quoteErr   error
	execResult *engine.OrderResult
	execErr    error
}

func (s *stubTrader) Quote(ctx context.Context, req *engine.OrderRequest) (*raydium.Quote, *raydium.ReserveSnapshot, error) {
	if s.quoteErr != nil {
		return nil, nil, s.quoteErr
	}
	return s.quote, s.snap, nil
}

func (s *stubTrader) ExecuteOrder(ctx context.Context, req *engine.OrderRequest) (*engine.OrderResult, error) {
	return s.execResult, s.execErr
}

func confirmedTrader() *stubTrader {
	quote := &raydium.Quote{
		Direction:    raydium.DirectionBuy,
		AmountIn:     1_000_000_000,
		AmountOut:    32_258_064_516,
		MinAmountOut: 30_645_161_290,
		SlippageBps:  500,
		ReserveIn:    30_000_000_000,
		ReserveOut:   1_000_000_000_000,
		Slot:         100,
	}
	return &stubTrader{
		quote: quote,
		snap:  &raydium.ReserveSnapshot{LiquiditySOL: decimal.NewFromInt(60)},
		execResult: &engine.OrderResult{
			OrderID:   "ord_1",
			State:     engine.StateConfirmed,
			Direction: raydium.DirectionBuy,
			Quote:     quote,
			BundleID:  "bundle-1",
			Attempts:  []engine.Attempt{{Number: 1}},
			Duration:  250 * time.Millisecond,
		},
	}
}

func doRequest(t *testing.T, h *Handlers, handler echo.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, handler(c))
	return rec
}

func TestHealth(t *testing.T) {
	h := &Handlers{}
	rec := doRequest(t, h, h.Health, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestQuote_Success(t *testing.T) {
	h := &Handlers{Engine: confirmedTrader()}

	body := `{"pool_id":"` + testPoolID + `","output_mint":"` + testMint + `","amount_in":"1000000000"}`
	rec := doRequest(t, h, h.Quote, http.MethodPost, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QuoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "buy", resp.Direction)
	assert.Equal(t, uint64(32_258_064_516), resp.AmountOut)
	assert.Equal(t, uint64(30_645_161_290), resp.MinAmountOut)
	assert.Equal(t, "60.0000", resp.LiquiditySOL)
}

func TestQuote_BadInputs(t *testing.T) {
	h := &Handlers{Engine: confirmedTrader()}

	cases := []struct {
		name string
		body string
	}{
		{"bad pool id", `{"pool_id":"nope","output_mint":"` + testMint + `","amount_in":"1"}`},
		{"bad mint", `{"pool_id":"` + testPoolID + `","output_mint":"nope","amount_in":"1"}`},
		{"zero amount", `{"pool_id":"` + testPoolID + `","output_mint":"` + testMint + `","amount_in":"0"}`},
		{"float amount", `{"pool_id":"` + testPoolID + `","output_mint":"` + testMint + `","amount_in":"1.5"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, h.Quote, http.MethodPost, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestQuote_EngineErrors(t *testing.T) {
	body := `{"pool_id":"` + testPoolID + `","output_mint":"` + testMint + `","amount_in":"1000"}`

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"pool not found", raydium.ErrPoolNotFound, http.StatusNotFound},
		{"empty pool", raydium.ErrInsufficientLiquidity, http.StatusUnprocessableEntity},
		{"wrong mint", raydium.ErrDirectionMismatch, http.StatusBadRequest},
		{"rpc down", context.DeadlineExceeded, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &Handlers{Engine: &stubTrader{quoteErr: tc.err}}
			rec := doRequest(t, h, h.Quote, http.MethodPost, body)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestSubmitOrder_Confirmed(t *testing.T) {
	h := &Handlers{Engine: confirmedTrader()}

	body := `{"pool_id":"` + testPoolID + `","output_mint":"` + testMint + `","amount_in":"1000000000"}`
	rec := doRequest(t, h, h.SubmitOrder, http.MethodPost, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ord_1", resp.OrderID)
	assert.Equal(t, "confirmed", resp.State)
	assert.Equal(t, "bundle-1", resp.BundleID)
	assert.Equal(t, 1, resp.Attempts)
	assert.Empty(t, resp.Error)
}

func TestSubmitOrder_TradingDisabled(t *testing.T) {
	h := &Handlers{Engine: &stubTrader{
		execResult: &engine.OrderResult{
			OrderID: "ord_2",
			State:   engine.StateFailed,
			Err:     engine.ErrTradingDisabled,
		},
		execErr: engine.ErrTradingDisabled,
	}}

	body := `{"pool_id":"` + testPoolID + `","output_mint":"` + testMint + `","amount_in":"1000"}`
	rec := doRequest(t, h, h.SubmitOrder, http.MethodPost, body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.State)
	assert.Contains(t, resp.Error, "trading disabled")
}

func TestSubmitOrder_ExhaustedReturnsResultBody(t *testing.T) {
	execErr := engine.ErrRetryBudgetExhausted
	h := &Handlers{Engine: &stubTrader{
		execResult: &engine.OrderResult{
			OrderID:  "ord_3",
			State:    engine.StateFailed,
			Attempts: []engine.Attempt{{Number: 1}, {Number: 2}, {Number: 3}},
			Err:      execErr,
		},
		execErr: execErr,
	}}

	body := `{"pool_id":"` + testPoolID + `","output_mint":"` + testMint + `","amount_in":"1000"}`
	rec := doRequest(t, h, h.SubmitOrder, http.MethodPost, body)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Attempts, "failed orders still report their attempt history")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(raydium.ErrInvalidInput))
	assert.Equal(t, http.StatusBadRequest, statusFor(raydium.ErrDirectionMismatch))
	assert.Equal(t, http.StatusNotFound, statusFor(raydium.ErrPoolNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(raydium.ErrInsufficientLiquidity))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(raydium.ErrTooLarge))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(engine.ErrTradingDisabled))
	assert.Equal(t, http.StatusBadGateway, statusFor(context.DeadlineExceeded))
}

func TestParseOrderInputs(t *testing.T) {
	req, err := parseOrderInputs(" "+testPoolID+" ", testMint, "42")
	require.NoError(t, err)
	assert.Equal(t, testPoolID, req.PoolID.String())
	assert.Equal(t, uint64(42), req.AmountIn)

	_, err = parseOrderInputs("bad", testMint, "42")
	assert.Error(t, err)
	_, err = parseOrderInputs(testPoolID, testMint, "-1")
	assert.Error(t, err)
}
