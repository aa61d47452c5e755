// Package engine drives the full order lifecycle: resolve pool keys, read
// reserves, price the trade, build and sign the transaction, submit it as a
// bundle, and confirm, with a bounded retry budget around the transient
// stages.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/usmanhaider/raydium-swap-engine/internal/cache"
	"github.com/usmanhaider/raydium-swap-engine/internal/constants"
	"github.com/usmanhaider/raydium-swap-engine/internal/flags"
	"github.com/usmanhaider/raydium-swap-engine/internal/models"
	"github.com/usmanhaider/raydium-swap-engine/internal/raydium"
	"github.com/usmanhaider/raydium-swap-engine/internal/wallet"
)

// KeyResolver turns a pool ID into a full account set.
type KeyResolver interface {
	Resolve(ctx context.Context, poolID solana.PublicKey) (*raydium.PoolKeys, error)
	Invalidate(poolID solana.PublicKey)
}

// ReserveSource reads live vault balances.
type ReserveSource interface {
	Read(ctx context.Context, keys *raydium.PoolKeys) (*raydium.ReserveSnapshot, error)
}

// TxBuilder assembles a signed swap transaction from a quote.
type TxBuilder interface {
	Build(keys *raydium.PoolKeys, quote *raydium.Quote, blockhash solana.Hash) (*solana.Transaction, error)
}

// BundleSubmitter sends signed transactions and tracks them to confirmation.
type BundleSubmitter interface {
	Submit(ctx context.Context, blockhash solana.Hash, txs ...*solana.Transaction) (string, error)
	AwaitConfirmation(ctx context.Context, bundleID string) error
}

// BlockhashSource provides a recent blockhash for transaction assembly.
type BlockhashSource interface {
	GetLatestBlockhash(ctx context.Context, commitment ...string) (solana.Hash, error)
}

// TxSimulator vets a signed transaction before any tip is paid. Optional.
type TxSimulator interface {
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*wallet.SimulationResult, error)
}

type Config struct {
	SlippageBps uint64
	// MaxAttempts is the retry budget per order. Structural failures do not
	// consume it; they fail the order outright.
	MaxAttempts int
	// RetryBackoff separates consecutive attempts.
	RetryBackoff time.Duration
}

// TradeEngine wires the pipeline stages together.
type TradeEngine struct {
	cfg        Config
	resolver   KeyResolver
	reserves   ReserveSource
	builder    TxBuilder
	submitter  BundleSubmitter
	blockhash  BlockhashSource
	sim        TxSimulator
	switches   *flags.Store
	redis      *cache.RedisCache
	clickhouse *cache.ClickHouseStore
	logger     *logrus.Logger
}

func New(
	cfg Config,
	resolver KeyResolver,
	reserves ReserveSource,
	builder TxBuilder,
	submitter BundleSubmitter,
	blockhash BlockhashSource,
	logger *logrus.Logger,
) *TradeEngine {
	if cfg.SlippageBps == 0 {
		cfg.SlippageBps = 500
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = constants.DefaultOrderAttempts
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 1 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &TradeEngine{
		cfg:       cfg,
		resolver:  resolver,
		reserves:  reserves,
		builder:   builder,
		submitter: submitter,
		blockhash: blockhash,
		logger:    logger,
	}
}

// WithSimulator enables pre-submit simulation. A swap that fails simulation
// is never bundled, so no tip is spent on it.
func (e *TradeEngine) WithSimulator(sim TxSimulator) *TradeEngine {
	e.sim = sim
	return e
}

// WithSwitches attaches the runtime kill switch store.
func (e *TradeEngine) WithSwitches(s *flags.Store) *TradeEngine {
	e.switches = s
	return e
}

// WithEventSinks attaches best-effort order event publishing.
func (e *TradeEngine) WithEventSinks(r *cache.RedisCache, ch *cache.ClickHouseStore) *TradeEngine {
	e.redis = r
	e.clickhouse = ch
	return e
}

// Quote prices a trade against live reserves without executing anything.
func (e *TradeEngine) Quote(ctx context.Context, req *OrderRequest) (*raydium.Quote, *raydium.ReserveSnapshot, error) {
	keys, err := e.resolver.Resolve(ctx, req.PoolID)
	if err != nil {
		return nil, nil, err
	}

	dir, err := raydium.DetermineDirection(keys, req.OutputMint)
	if err != nil {
		return nil, nil, err
	}

	snap, err := e.reserves.Read(ctx, keys)
	if err != nil {
		return nil, nil, err
	}

	quote, err := raydium.ComputeQuote(snap, dir, req.AmountIn, e.slippage(req))
	if err != nil {
		return nil, nil, err
	}
	return quote, snap, nil
}

// ExecuteOrder runs one logical order to a terminal state. Every retry
// attempt starts from a fresh reserve read and a fresh quote: a transaction
// priced against stale reserves must never be resubmitted.
func (e *TradeEngine) ExecuteOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error) {
	start := time.Now()
	ord := newOrder()

	log := e.logger.WithFields(logrus.Fields{
		"order_id": ord.id,
		"pool":     req.PoolID.String(),
	})

	// AmountIn is validated before any network traffic.
	if req.AmountIn == 0 {
		err := fmt.Errorf("%w: amount in must be positive", raydium.ErrInvalidInput)
		return e.finish(ctx, ord, req, nil, nil, "", start, err), err
	}

	if e.switches != nil && !e.switches.TradingEnabled(ctx) {
		return e.finish(ctx, ord, req, nil, nil, "", start, ErrTradingDisabled), ErrTradingDisabled
	}

	budget := req.MaxAttempts
	if budget <= 0 {
		budget = e.cfg.MaxAttempts
	}

	var (
		lastErr  error
		lastSnap *raydium.ReserveSnapshot
	)
	for attemptNo := 1; attemptNo <= budget; attemptNo++ {
		attemptStart := time.Now()
		_ = ord.transition(StateQuoting)

		quote, snap, bundleID, err := e.attempt(ctx, ord, req)

		ord.record(Attempt{
			Number:    attemptNo,
			Quote:     quote,
			BundleID:  bundleID,
			Err:       err,
			StartedAt: attemptStart,
			Duration:  time.Since(attemptStart),
		})

		if err == nil {
			log.WithFields(logrus.Fields{
				"attempt":   attemptNo,
				"bundle_id": bundleID,
			}).Info("order confirmed")
			return e.finish(ctx, ord, req, quote, snap, bundleID, start, nil), nil
		}

		if IsStructural(err) {
			log.WithError(err).WithField("attempt", attemptNo).Warn("order failed on structural error")
			return e.finish(ctx, ord, req, quote, snap, bundleID, start, err), err
		}

		lastErr = err
		lastSnap = snap
		log.WithError(err).WithField("attempt", attemptNo).Warn("order attempt failed, will retry")

		if attemptNo < budget {
			select {
			case <-ctx.Done():
				err := ctx.Err()
				return e.finish(ctx, ord, req, quote, snap, bundleID, start, err), err
			case <-time.After(e.cfg.RetryBackoff):
			}
		}
	}

	err := exhausted(budget, lastErr)
	return e.finish(ctx, ord, req, nil, lastSnap, "", start, err), err
}

// attempt runs one full pass of the pipeline. Each stage advances the state
// machine; any error returns to the caller for classification.
func (e *TradeEngine) attempt(ctx context.Context, ord *order, req *OrderRequest) (*raydium.Quote, *raydium.ReserveSnapshot, string, error) {
	keys, err := e.resolver.Resolve(ctx, req.PoolID)
	if err != nil {
		// A pool that was resolvable before may have migrated; drop any
		// stale cache entry so the next attempt re-fetches.
		if errors.Is(err, raydium.ErrPoolNotFound) {
			e.resolver.Invalidate(req.PoolID)
		}
		return nil, nil, "", err
	}

	dir, err := raydium.DetermineDirection(keys, req.OutputMint)
	if err != nil {
		return nil, nil, "", err
	}

	snap, err := e.reserves.Read(ctx, keys)
	if err != nil {
		return nil, nil, "", err
	}

	quote, err := raydium.ComputeQuote(snap, dir, req.AmountIn, e.slippage(req))
	if err != nil {
		return nil, snap, "", err
	}

	if err := ord.transition(StateBuilding); err != nil {
		return quote, snap, "", err
	}

	blockhash, err := e.blockhash.GetLatestBlockhash(ctx, "processed")
	if err != nil {
		return quote, snap, "", fmt.Errorf("fetch blockhash: %w", err)
	}

	tx, err := e.builder.Build(keys, quote, blockhash)
	if err != nil {
		return quote, snap, "", err
	}

	if e.sim != nil {
		if _, err := e.sim.SimulateTransaction(ctx, tx); err != nil {
			return quote, snap, "", fmt.Errorf("simulation rejected transaction: %w", err)
		}
	}

	if err := ord.transition(StateSubmitting); err != nil {
		return quote, snap, "", err
	}

	bundleID, err := e.submitter.Submit(ctx, blockhash, tx)
	if err != nil {
		return quote, snap, "", err
	}

	if err := e.submitter.AwaitConfirmation(ctx, bundleID); err != nil {
		return quote, snap, bundleID, err
	}

	return quote, snap, bundleID, nil
}

func (e *TradeEngine) slippage(req *OrderRequest) uint64 {
	if req.SlippageBps != nil {
		return *req.SlippageBps
	}
	return e.cfg.SlippageBps
}

// finish moves the order to its terminal state, publishes the event, and
// assembles the result.
func (e *TradeEngine) finish(ctx context.Context, ord *order, req *OrderRequest, quote *raydium.Quote, snap *raydium.ReserveSnapshot, bundleID string, start time.Time, orderErr error) *OrderResult {
	terminal := StateConfirmed
	if orderErr != nil {
		terminal = StateFailed
	}
	_ = ord.transition(terminal)

	state, attempts := ord.snapshot()
	result := &OrderResult{
		OrderID:  ord.id,
		State:    state,
		Quote:    quote,
		Snapshot: snap,
		BundleID: bundleID,
		Attempts: attempts,
		Duration: time.Since(start),
		Err:      orderErr,
	}
	if quote != nil {
		result.Direction = quote.Direction
	}

	e.publish(ctx, req, result)
	return result
}

// orderEvent flattens a terminal result into the sink record.
func orderEvent(req *OrderRequest, result *OrderResult) *models.OrderEvent {
	ev := &models.OrderEvent{
		OrderID:   result.OrderID,
		BundleID:  result.BundleID,
		Timestamp: time.Now().UTC(),
		PoolID:    req.PoolID.String(),
		Direction: result.Direction.String(),
		TokenMint: req.OutputMint.String(),
		AmountIn:  req.AmountIn,
		Attempts:  len(result.Attempts),
		Success:   result.Succeeded(),
	}
	if result.Quote != nil {
		ev.AmountOut = result.Quote.AmountOut
		ev.MinAmountOut = result.Quote.MinAmountOut
	}
	if result.Snapshot != nil {
		ev.LiquiditySOL = result.Snapshot.LiquiditySOL.String()
	}
	if result.Err != nil {
		ev.Error = result.Err.Error()
	}
	return ev
}

// publish writes the order event to the live feed and history. Best effort:
// a down sink never fails a confirmed trade.
func (e *TradeEngine) publish(ctx context.Context, req *OrderRequest, result *OrderResult) {
	if e.redis == nil && e.clickhouse == nil {
		return
	}

	ev := orderEvent(req, result)

	if e.redis != nil {
		if err := e.redis.AddRecentOrder(ctx, ev); err != nil {
			e.logger.WithError(err).Warn("failed to record order in redis")
		}
		if err := e.redis.PublishOrder(ctx, ev); err != nil {
			e.logger.WithError(err).Warn("failed to publish order event")
		}
	}
	if e.clickhouse != nil {
		if err := e.clickhouse.InsertOrder(ctx, ev); err != nil {
			e.logger.WithError(err).Warn("failed to insert order into clickhouse")
		}
	}
}
