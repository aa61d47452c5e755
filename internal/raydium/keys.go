package raydium

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/usmanhaider/raydium-swap-engine/internal/constants"
	"github.com/usmanhaider/raydium-swap-engine/internal/rpc"
)

var (
	// ErrPoolNotFound means the pool (or one of its companion accounts) does
	// not exist on-chain. Structural: retrying will not help.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrDecodeFailure means the account exists but its bytes do not match
	// the expected layout. Structural.
	ErrDecodeFailure = errors.New("pool decode failure")
)

// PoolKeys is the immutable structural snapshot of a Raydium v4 pool: every
// account a swap against the pool has to reference. Built once per pool and
// cached; invalidated only if the program later reports the pool gone.
type PoolKeys struct {
	ID               solana.PublicKey
	BaseMint         solana.PublicKey
	QuoteMint        solana.PublicKey
	LpMint           solana.PublicKey
	BaseDecimals     uint8
	QuoteDecimals    uint8
	LpDecimals       uint8
	ProgramID        solana.PublicKey
	Authority        solana.PublicKey
	OpenOrders       solana.PublicKey
	TargetOrders     solana.PublicKey
	BaseVault        solana.PublicKey
	QuoteVault       solana.PublicKey
	WithdrawQueue    solana.PublicKey
	LpVault          solana.PublicKey
	MarketProgramID  solana.PublicKey
	MarketID         solana.PublicKey
	MarketAuthority  solana.PublicKey
	MarketBaseVault  solana.PublicKey
	MarketQuoteVault solana.PublicKey
	MarketBids       solana.PublicKey
	MarketAsks       solana.PublicKey
	MarketEventQueue solana.PublicKey

	// Swap fee on the input side, from pool state
	SwapFeeNumerator   uint64
	SwapFeeDenominator uint64
}

// Resolver fetches and decodes pool keys, backed by a shared cache.
type Resolver struct {
	rpc    *rpc.Client
	cache  *KeyCache
	logger *logrus.Logger
}

func NewResolver(client *rpc.Client, cache *KeyCache, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	if cache == nil {
		cache = NewKeyCache()
	}
	return &Resolver{rpc: client, cache: cache, logger: logger}
}

// Cache exposes the shared key cache so the orchestration layer can
// invalidate entries on unknown-account errors.
func (r *Resolver) Cache() *KeyCache { return r.cache }

// Invalidate drops a pool's cached keys so the next Resolve re-fetches them.
func (r *Resolver) Invalidate(poolID solana.PublicKey) {
	if r.cache != nil {
		r.cache.Invalidate(poolID)
	}
}

// Resolve returns the full key set for a pool. The pool account, its market
// account and its LP mint must all resolve and decode; a partial key set is
// never returned.
func (r *Resolver) Resolve(ctx context.Context, poolID solana.PublicKey) (*PoolKeys, error) {
	if keys, ok := r.cache.Get(poolID); ok {
		return keys, nil
	}

	poolAcc, err := r.rpc.GetAccountInfo(ctx, poolID.String())
	if err != nil {
		if errors.Is(err, rpc.ErrAccountNotFound) {
			return nil, fmt.Errorf("pool %s: %w", poolID, ErrPoolNotFound)
		}
		return nil, fmt.Errorf("fetch pool account: %w", err)
	}

	state, err := DecodeLiquidityStateV4(poolAcc.Data)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w: %v", poolID, ErrDecodeFailure, err)
	}

	marketAcc, err := r.rpc.GetAccountInfo(ctx, state.MarketID.String())
	if err != nil {
		if errors.Is(err, rpc.ErrAccountNotFound) {
			return nil, fmt.Errorf("market %s: %w", state.MarketID, ErrPoolNotFound)
		}
		return nil, fmt.Errorf("fetch market account: %w", err)
	}

	market, err := DecodeMarketStateV3(marketAcc.Data)
	if err != nil {
		return nil, fmt.Errorf("market %s: %w: %v", state.MarketID, ErrDecodeFailure, err)
	}

	lpMintAcc, err := r.rpc.GetAccountInfo(ctx, state.LpMint.String())
	if err != nil {
		if errors.Is(err, rpc.ErrAccountNotFound) {
			return nil, fmt.Errorf("lp mint %s: %w", state.LpMint, ErrPoolNotFound)
		}
		return nil, fmt.Errorf("fetch lp mint account: %w", err)
	}

	lpMint, err := DecodeMintLayout(lpMintAcc.Data)
	if err != nil {
		return nil, fmt.Errorf("lp mint %s: %w: %v", state.LpMint, ErrDecodeFailure, err)
	}

	programID, err := solana.PublicKeyFromBase58(poolAcc.Owner)
	if err != nil {
		return nil, fmt.Errorf("pool owner: %w: %v", ErrDecodeFailure, err)
	}

	authority, err := ammAuthority(programID)
	if err != nil {
		return nil, fmt.Errorf("derive amm authority: %w: %v", ErrDecodeFailure, err)
	}

	marketAuthority, err := marketVaultSigner(state.MarketProgramID, state.MarketID, market.VaultSignerNonce)
	if err != nil {
		return nil, fmt.Errorf("derive market vault signer: %w: %v", ErrDecodeFailure, err)
	}

	keys := &PoolKeys{
		ID:               poolID,
		BaseMint:         state.BaseMint,
		QuoteMint:        state.QuoteMint,
		LpMint:           state.LpMint,
		BaseDecimals:     uint8(state.BaseDecimal),
		QuoteDecimals:    uint8(state.QuoteDecimal),
		LpDecimals:       lpMint.Decimals,
		ProgramID:        programID,
		Authority:        authority,
		OpenOrders:       state.OpenOrders,
		TargetOrders:     state.TargetOrders,
		BaseVault:        state.BaseVault,
		QuoteVault:       state.QuoteVault,
		WithdrawQueue:    state.WithdrawQueue,
		LpVault:          state.LpVault,
		MarketProgramID:  state.MarketProgramID,
		MarketID:         state.MarketID,
		MarketAuthority:  marketAuthority,
		MarketBaseVault:  market.BaseVault,
		MarketQuoteVault: market.QuoteVault,
		MarketBids:       market.Bids,
		MarketAsks:       market.Asks,
		MarketEventQueue: market.EventQueue,

		SwapFeeNumerator:   state.SwapFeeNumerator,
		SwapFeeDenominator: state.SwapFeeDenominator,
	}

	r.cache.Put(keys)
	r.logger.WithFields(logrus.Fields{
		"pool":   poolID.String(),
		"base":   state.BaseMint.String(),
		"quote":  state.QuoteMint.String(),
		"market": state.MarketID.String(),
	}).Debug("resolved pool keys")

	return keys, nil
}

// IsWSOLQuoted reports whether the pool's quote side is wrapped SOL, the
// reference currency for liquidity measures.
func (k *PoolKeys) IsWSOLQuoted() bool {
	return k.QuoteMint.String() == constants.WSOLMint
}

// ammAuthority derives the vault authority PDA for a Raydium AMM program.
func ammAuthority(programID solana.PublicKey) (solana.PublicKey, error) {
	seed := []byte("amm authority")
	pda, _, err := solana.FindProgramAddress([][]byte{seed}, programID)
	return pda, err
}

// marketVaultSigner derives the OpenBook vault signer from the market id and
// the nonce stored in the market account.
func marketVaultSigner(marketProgram, marketID solana.PublicKey, nonce uint64) (solana.PublicKey, error) {
	nonceBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(nonceBytes, nonce)
	return solana.CreateProgramAddress(
		[][]byte{marketID.Bytes(), nonceBytes},
		marketProgram,
	)
}
