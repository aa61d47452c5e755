// Package jito submits transactions to a Jito block engine as atomic bundles
// and tracks them to confirmation.
package jito

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/usmanhaider/raydium-swap-engine/internal/constants"
)

var (
	// ErrSubmissionFailure means the bundle never reached the block engine.
	// Transient: a retry may land.
	ErrSubmissionFailure = errors.New("bundle submission failure")

	// ErrConfirmationTimeout means the bundle was accepted but never
	// confirmed within the wait budget. Transient.
	ErrConfirmationTimeout = errors.New("bundle confirmation timeout")

	// ErrBundleFailed means the block engine reported the bundle as failed.
	ErrBundleFailed = errors.New("bundle failed")
)

// Signer signs the tip transaction that rides along with each bundle.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTx(tx *solana.Transaction) error
}

type ClientConfig struct {
	// BlockEngineURL selects the regional block engine. Defaults to the
	// first entry of constants.BlockEngineEndpoints.
	BlockEngineURL string

	TipLamports uint64

	ConfirmTimeout time.Duration
	PollInterval   time.Duration

	Timeout time.Duration
}

// Client talks JSON-RPC to one Jito block engine.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	signer Signer
	logger *logrus.Logger
}

func NewClient(cfg ClientConfig, signer Signer, logger *logrus.Logger) *Client {
	if cfg.BlockEngineURL == "" {
		cfg.BlockEngineURL = constants.BlockEngineEndpoints[0]
	}
	if cfg.TipLamports == 0 {
		cfg.TipLamports = 400_000
	}
	if cfg.ConfirmTimeout == 0 {
		cfg.ConfirmTimeout = 60 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 1 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		signer: signer,
		logger: logger,
	}
}

// Submit appends a tip transaction to the given signed transactions and sends
// them as one atomic bundle. Returns the bundle ID assigned by the block
// engine.
func (c *Client) Submit(ctx context.Context, blockhash solana.Hash, txs ...*solana.Transaction) (string, error) {
	if len(txs) == 0 {
		return "", fmt.Errorf("%w: no transactions", ErrSubmissionFailure)
	}

	tipTx, err := c.buildTipTx(blockhash)
	if err != nil {
		return "", fmt.Errorf("%w: build tip: %v", ErrSubmissionFailure, err)
	}

	encoded := make([]string, 0, len(txs)+1)
	for _, tx := range append(txs, tipTx) {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("%w: serialize: %v", ErrSubmissionFailure, err)
		}
		encoded = append(encoded, base58.Encode(raw))
	}

	var resp struct {
		Result string    `json:"result"`
		Error  *rpcError `json:"error"`
	}
	if err := c.call(ctx, "sendBundle", []any{encoded}, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmissionFailure, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: code=%d message=%s", ErrSubmissionFailure, resp.Error.Code, resp.Error.Message)
	}

	c.logger.WithFields(logrus.Fields{
		"bundle_id": resp.Result,
		"txs":       len(encoded),
		"tip":       c.cfg.TipLamports,
	}).Info("bundle submitted")

	return resp.Result, nil
}

// buildTipTx pays the block engine tip to one of the published tip accounts,
// chosen at random to spread load across them.
func (c *Client) buildTipTx(blockhash solana.Hash) (*solana.Transaction, error) {
	tipAccount := constants.JitoTipAccounts[rand.Intn(len(constants.JitoTipAccounts))]
	tipPk, err := solana.PublicKeyFromBase58(tipAccount)
	if err != nil {
		return nil, fmt.Errorf("invalid tip account %s: %w", tipAccount, err)
	}

	ix := newTransferIx(c.signer.PublicKey(), tipPk, c.cfg.TipLamports)
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash,
		solana.TransactionPayer(c.signer.PublicKey()),
	)
	if err != nil {
		return nil, err
	}
	if err := c.signer.SignTx(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// BundleState is the lifecycle position of a submitted bundle.
type BundleState string

const (
	BundlePending   BundleState = "pending"
	BundleConfirmed BundleState = "confirmed"
	BundleFailed    BundleState = "failed"
)

// Status asks the block engine about one bundle.
func (c *Client) Status(ctx context.Context, bundleID string) (BundleState, error) {
	var resp struct {
		Result struct {
			Value []struct {
				BundleID           string `json:"bundle_id"`
				ConfirmationStatus string `json:"confirmation_status"`
				Err                struct {
					Ok any `json:"Ok"`
				} `json:"err"`
			} `json:"value"`
		} `json:"result"`
		Error *rpcError `json:"error"`
	}

	if err := c.call(ctx, "getBundleStatuses", []any{[]string{bundleID}}, &resp); err != nil {
		return BundlePending, err
	}
	if resp.Error != nil {
		return BundlePending, fmt.Errorf("getBundleStatuses error: code=%d message=%s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Result.Value) == 0 {
		return BundlePending, nil
	}

	switch resp.Result.Value[0].ConfirmationStatus {
	case "confirmed", "finalized":
		return BundleConfirmed, nil
	case "failed":
		return BundleFailed, nil
	default:
		return BundlePending, nil
	}
}

// AwaitConfirmation polls bundle status until it confirms, fails, the wait
// budget runs out, or the context is canceled. The poll is always bounded:
// an unconfirmed bundle returns ErrConfirmationTimeout rather than spinning.
func (c *Client) AwaitConfirmation(ctx context.Context, bundleID string) error {
	deadline := time.Now().Add(c.cfg.ConfirmTimeout)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		state, err := c.Status(ctx, bundleID)
		if err != nil {
			// Status lookups are retried until the deadline: a flaky
			// poll must not fail a bundle that may still land.
			c.logger.WithError(err).WithField("bundle_id", bundleID).Warn("bundle status check failed")
		}

		switch state {
		case BundleConfirmed:
			c.logger.WithField("bundle_id", bundleID).Info("bundle confirmed")
			return nil
		case BundleFailed:
			return fmt.Errorf("%w: bundle %s", ErrBundleFailed, bundleID)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: bundle %s after %v", ErrConfirmationTimeout, bundleID, c.cfg.ConfirmTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BlockEngineURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", method, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

// newTransferIx builds a SystemProgram transfer for the tip payment.
func newTransferIx(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	data := make([]byte, 12)
	data[0] = 2 // Transfer
	for i := 0; i < 8; i++ {
		data[4+i] = byte(lamports >> (8 * i))
	}
	accounts := []*solana.AccountMeta{
		{PublicKey: from, IsSigner: true, IsWritable: true},
		{PublicKey: to, IsSigner: false, IsWritable: true},
	}
	return solana.NewInstruction(solana.SystemProgramID, accounts, data)
}
