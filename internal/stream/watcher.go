// Package stream watches the Raydium AMM program for freshly initialized
// pools and hands them to a listener.
package stream

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/usmanhaider/raydium-swap-engine/internal/constants"
	"github.com/usmanhaider/raydium-swap-engine/internal/rpc"
)

// PoolEvent describes one pool initialization observed on-chain. PoolID is
// left for the listener to confirm by resolving the keys: account ordering
// in initialize transactions varies across deployment versions.
type PoolEvent struct {
	Signature   string
	Slot        int64
	BlockTime   time.Time
	AccountKeys []string
}

// PoolHandler receives each detected pool event.
type PoolHandler func(*PoolEvent)

// Watcher polls the Raydium program's signature feed and filters for pool
// initializations.
type Watcher struct {
	client       *rpc.Client
	program      string
	pollInterval time.Duration
	logger       *logrus.Logger

	mu            sync.RWMutex
	lastSignature string
	running       bool
}

type WatcherConfig struct {
	RPCClient    *rpc.Client
	Program      string
	PollInterval time.Duration
	Logger       *logrus.Logger
}

func NewWatcher(cfg WatcherConfig) *Watcher {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Program == "" {
		cfg.Program = constants.RaydiumAMMProgram
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	return &Watcher{
		client:       cfg.RPCClient,
		program:      cfg.Program,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}
}

// Start polls until the context is canceled.
func (w *Watcher) Start(ctx context.Context, handler PoolHandler) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.WithFields(logrus.Fields{
		"interval": w.pollInterval,
		"program":  w.program,
	}).Info("starting pool watcher")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.poll(ctx, handler); err != nil {
				w.logger.WithError(err).Error("poll error")
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context, handler PoolHandler) error {
	opts := map[string]interface{}{
		"limit": constants.SignatureBatchSize,
	}

	w.mu.RLock()
	lastSig := w.lastSignature
	w.mu.RUnlock()

	if lastSig != "" {
		opts["until"] = lastSig
	}

	sigResp, err := w.client.GetSignaturesForAddress(ctx, w.program, opts)
	if err != nil {
		return fmt.Errorf("failed to get signatures: %w", err)
	}

	if len(sigResp.Result) == 0 {
		return nil
	}

	w.mu.Lock()
	w.lastSignature = sigResp.Result[0].Signature
	w.mu.Unlock()

	for i, sig := range sigResp.Result {
		if sig.Err != nil {
			continue
		}

		// Spaced out to stay under public RPC rate limits.
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(constants.DelayBetweenTxFetch):
			}
		}

		ev, err := w.inspect(ctx, sig.Signature)
		if err != nil {
			w.logger.WithError(err).WithField("signature", shorten(sig.Signature)).Warn("failed to inspect transaction")
			continue
		}
		if ev != nil {
			w.logger.WithField("signature", shorten(ev.Signature)).Info("detected pool initialization")
			handler(ev)
		}
	}

	return nil
}

// inspect fetches one transaction and keeps it only if its logs show a pool
// initialization.
func (w *Watcher) inspect(ctx context.Context, signature string) (*PoolEvent, error) {
	txResp, err := w.client.GetTransaction(ctx, signature)
	if err != nil {
		return nil, err
	}
	if txResp.Result == nil || txResp.Result.Meta == nil {
		return nil, fmt.Errorf("empty transaction result")
	}
	if txResp.Result.Meta.Err != nil {
		return nil, nil
	}

	if !isPoolInit(txResp.Result.Meta.LogMessages) {
		return nil, nil
	}

	return &PoolEvent{
		Signature:   signature,
		Slot:        txResp.Result.Slot,
		BlockTime:   time.Unix(txResp.Result.BlockTime, 0).UTC(),
		AccountKeys: txResp.Result.Transaction.Message.AccountKeys,
	}, nil
}

// isPoolInit checks program logs for the AMM initialize instruction.
func isPoolInit(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(line, "initialize2") || strings.Contains(line, "init_pc_amount") {
			return true
		}
	}
	return false
}

func shorten(sig string) string {
	if len(sig) > 8 {
		return sig[:8]
	}
	return sig
}
