package position

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/usmanhaider/raydium-swap-engine/internal/constants"
	"github.com/usmanhaider/raydium-swap-engine/internal/engine"
	"github.com/usmanhaider/raydium-swap-engine/internal/raydium"
)

// Trader is the slice of the trade engine the monitor needs: fresh exit
// quotes and the ability to fire a sell order.
type Trader interface {
	Quote(ctx context.Context, req *engine.OrderRequest) (*raydium.Quote, *raydium.ReserveSnapshot, error)
	ExecuteOrder(ctx context.Context, req *engine.OrderRequest) (*engine.OrderResult, error)
}

// ExitPolicy decides whether a repriced position should be closed. The
// monitor supplies the numbers; the policy owns the thresholds.
type ExitPolicy func(pos *Position, rp *Reprice) bool

// ThresholdPolicy exits when liquidity falls below minLiquiditySOL or the
// exit value has moved more than maxMovePct in either direction.
func ThresholdPolicy(minLiquiditySOL, maxMovePct decimal.Decimal) ExitPolicy {
	return func(pos *Position, rp *Reprice) bool {
		if rp.LiquiditySOL.LessThan(minLiquiditySOL) {
			return true
		}
		return rp.ChangePct.Abs().GreaterThan(maxMovePct)
	}
}

type MonitorConfig struct {
	Interval time.Duration
	// Workers bounds how many positions are repriced concurrently.
	Workers int
}

// Monitor reprices every open position on a fixed interval and fires exit
// orders when the policy says so. Reprice failures hold the position: a
// flaky RPC read must never trigger a sell.
type Monitor struct {
	cfg    MonitorConfig
	book   *Book
	trader Trader
	policy ExitPolicy
	logger *logrus.Logger
}

func NewMonitor(cfg MonitorConfig, book *Book, trader Trader, policy ExitPolicy, logger *logrus.Logger) *Monitor {
	if cfg.Interval == 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Monitor{
		cfg:    cfg,
		book:   book,
		trader: trader,
		policy: policy,
		logger: logger,
	}
}

// Run blocks until the context is canceled, sweeping the book every interval.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.logger.WithFields(logrus.Fields{
		"interval": m.cfg.Interval,
		"workers":  m.cfg.Workers,
	}).Info("position monitor started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("position monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep reprices every open position through a bounded worker pool and waits
// for the batch to finish before returning.
func (m *Monitor) sweep(ctx context.Context) {
	positions := m.book.All()
	if len(positions) == 0 {
		return
	}

	sem := make(chan struct{}, m.cfg.Workers)
	var wg sync.WaitGroup

	for _, pos := range positions {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(p *Position) {
			defer wg.Done()
			defer func() { <-sem }()
			m.check(ctx, p)
		}(pos)
	}

	wg.Wait()
}

func (m *Monitor) check(ctx context.Context, pos *Position) {
	log := m.logger.WithFields(logrus.Fields{
		"pool":  pos.PoolID,
		"token": pos.TokenMint,
	})

	req, err := exitRequest(pos)
	if err != nil {
		log.WithError(err).Warn("cannot build exit request, holding")
		return
	}

	quote, snap, err := m.trader.Quote(ctx, req)
	if err != nil {
		log.WithError(err).Warn("reprice failed, holding position")
		return
	}

	rp, err := ComputeReprice(pos, quote.AmountOut, quote.MinAmountOut, snap.LiquiditySOL)
	if err != nil {
		log.WithError(err).Warn("reprice computation failed, holding position")
		return
	}

	log.WithFields(logrus.Fields{
		"change_pct":    rp.ChangePct.StringFixed(2),
		"liquidity_sol": rp.LiquiditySOL.StringFixed(2),
	}).Debug("repriced position")

	if !m.policy(pos, rp) {
		return
	}

	log.WithField("change_pct", rp.ChangePct.StringFixed(2)).Info("exit triggered")

	result, err := m.trader.ExecuteOrder(ctx, req)
	if err != nil {
		log.WithError(err).Error("exit order failed, position stays open")
		return
	}
	if !result.Succeeded() {
		log.WithField("state", result.State).Error("exit order did not confirm, position stays open")
		return
	}

	if err := m.book.Close(ctx, pos.PoolID); err != nil {
		log.WithError(err).Warn("exit confirmed but position removal failed")
		return
	}
	log.WithField("bundle_id", result.BundleID).Info("position closed")
}

// exitRequest builds the sell order for the full holding. Positions are
// opened against wSOL-quoted pools, so the exit output is always wSOL.
func exitRequest(pos *Position) (*engine.OrderRequest, error) {
	poolID, err := solana.PublicKeyFromBase58(pos.PoolID)
	if err != nil {
		return nil, err
	}
	return &engine.OrderRequest{
		PoolID:     poolID,
		OutputMint: solana.MustPublicKeyFromBase58(constants.WSOLMint),
		AmountIn:   pos.AmountHeld,
	}, nil
}
