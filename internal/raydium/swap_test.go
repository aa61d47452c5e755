package raydium

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usmanhaider/raydium-swap-engine/internal/constants"
)

type testSigner struct {
	key solana.PrivateKey
}

func newTestSigner() *testSigner {
	key, _ := solana.NewRandomPrivateKey()
	return &testSigner{key: key}
}

func (s *testSigner) PublicKey() solana.PublicKey { return s.key.PublicKey() }

func (s *testSigner) SignTx(tx *solana.Transaction) error {
	_, err := tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	return err
}

func testPoolKeys() *PoolKeys {
	pk := func() solana.PublicKey {
		k, _ := solana.NewRandomPrivateKey()
		return k.PublicKey()
	}
	return &PoolKeys{
		ID:               pk(),
		BaseMint:         pk(),
		QuoteMint:        solana.MustPublicKeyFromBase58(constants.WSOLMint),
		BaseDecimals:     6,
		QuoteDecimals:    9,
		ProgramID:        solana.MustPublicKeyFromBase58(constants.RaydiumAMMProgram),
		Authority:        pk(),
		OpenOrders:       pk(),
		TargetOrders:     pk(),
		BaseVault:        pk(),
		QuoteVault:       pk(),
		MarketProgramID:  solana.MustPublicKeyFromBase58(constants.OpenBookProgram),
		MarketID:         pk(),
		MarketAuthority:  pk(),
		MarketBaseVault:  pk(),
		MarketQuoteVault: pk(),
		MarketBids:       pk(),
		MarketAsks:       pk(),
		MarketEventQueue: pk(),
	}
}

func TestSwapBaseInInstruction(t *testing.T) {
	keys := testPoolKeys()
	source, dest, owner := keys.BaseVault, keys.QuoteVault, keys.Authority

	ix := newSwapBaseInIx(keys, source, dest, owner, 1_000_000_000, 950_000_000)

	assert.Equal(t, keys.ProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 17)
	assert.Equal(t, byte(9), data[0], "SwapBaseIn instruction index")
	assert.Equal(t, uint64(1_000_000_000), binary.LittleEndian.Uint64(data[1:9]))
	assert.Equal(t, uint64(950_000_000), binary.LittleEndian.Uint64(data[9:17]))

	accounts := ix.Accounts()
	require.Len(t, accounts, 18)
	assert.Equal(t, solana.TokenProgramID, accounts[0].PublicKey)
	assert.Equal(t, keys.ID, accounts[1].PublicKey)
	assert.Equal(t, keys.MarketAuthority, accounts[14].PublicKey)
	assert.Equal(t, source, accounts[15].PublicKey)
	assert.Equal(t, dest, accounts[16].PublicKey)
	assert.True(t, accounts[17].IsSigner, "owner must sign")
}

func TestBuildSwapTransaction(t *testing.T) {
	keys := testPoolKeys()
	signer := newTestSigner()
	builder := NewSwapBuilder(signer, nil)

	blockhash := solana.Hash{}
	quote := &Quote{
		Direction:    DirectionBuy,
		AmountIn:     1_000_000_000,
		AmountOut:    32_000_000,
		MinAmountOut: 30_400_000,
	}

	tx, err := builder.Build(keys, quote, blockhash)
	require.NoError(t, err)
	require.NotNil(t, tx)

	// A buy spends wSOL, so the transaction wraps SOL first: create dest
	// ATA, create wSOL ATA, transfer, sync native, then the swap.
	assert.Len(t, tx.Message.Instructions, 5)

	// The transaction must be fully signed.
	require.Len(t, tx.Signatures, 1)
	assert.False(t, tx.Signatures[0].IsZero())
}

func TestBuildSellUnwrapsProceeds(t *testing.T) {
	keys := testPoolKeys()
	builder := NewSwapBuilder(newTestSigner(), nil)

	quote := &Quote{
		Direction:    DirectionSell,
		AmountIn:     5_000_000,
		AmountOut:    100_000_000,
		MinAmountOut: 95_000_000,
	}

	tx, err := builder.Build(keys, quote, solana.Hash{})
	require.NoError(t, err)

	// Sell pays out in wSOL: create dest ATA, swap, close wSOL account.
	assert.Len(t, tx.Message.Instructions, 3)
}

func TestSerializedSizeMatchesWireSize(t *testing.T) {
	keys := testPoolKeys()
	signer := newTestSigner()
	builder := NewSwapBuilder(signer, nil)

	quote := &Quote{
		Direction:    DirectionBuy,
		AmountIn:     1_000_000,
		AmountOut:    32_000,
		MinAmountOut: 30_000,
	}

	tx, err := builder.Build(keys, quote, solana.Hash{})
	require.NoError(t, err)

	// The pre-sign size estimate must be exactly what goes on the wire,
	// otherwise the ceiling check is meaningless.
	estimated, err := serializedSize(tx)
	require.NoError(t, err)

	wire, err := tx.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, len(wire), estimated)
	assert.LessOrEqual(t, estimated, constants.MaxTransactionBytes)
}

func TestOversizedTransactionRejectedBeforeSigning(t *testing.T) {
	signer := newTestSigner()
	keys := testPoolKeys()
	owner := signer.PublicKey()

	// Pile on swap instructions against fresh token accounts until the
	// message cannot fit a wire packet.
	pk := func() solana.PublicKey {
		k, _ := solana.NewRandomPrivateKey()
		return k.PublicKey()
	}
	var ixs []solana.Instruction
	for i := 0; i < 12; i++ {
		ixs = append(ixs, newSwapBaseInIx(keys, pk(), pk(), owner, 1_000, 900))
	}

	tx, err := solana.NewTransaction(ixs, solana.Hash{}, solana.TransactionPayer(owner))
	require.NoError(t, err)

	size, serErr := serializedSize(tx)
	require.NoError(t, serErr)
	require.Greater(t, size, constants.MaxTransactionBytes, "fixture must overflow the wire ceiling")

	_, err = ensureWireSize(tx)
	assert.ErrorIs(t, err, ErrTooLarge)
	// Rejection happens on the unsigned transaction.
	assert.Empty(t, tx.Signatures)
}

func TestWireSizeAcceptsNormalSwap(t *testing.T) {
	signer := newTestSigner()
	keys := testPoolKeys()

	quote := &Quote{
		Direction:    DirectionBuy,
		AmountIn:     1_000_000_000,
		MinAmountOut: 30_645_161_290,
	}
	tx, err := NewSwapBuilder(signer, nil).Build(keys, quote, solana.Hash{})
	require.NoError(t, err)

	size, err := ensureWireSize(tx)
	require.NoError(t, err)
	assert.LessOrEqual(t, size, constants.MaxTransactionBytes)
}
