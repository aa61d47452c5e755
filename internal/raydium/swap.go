package raydium

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/usmanhaider/raydium-swap-engine/internal/constants"
)

var (
	// ErrInstructionFailure means the transaction could not be assembled.
	// Structural.
	ErrInstructionFailure = errors.New("instruction build failure")

	// ErrTooLarge means the serialized transaction would exceed the wire
	// ceiling. Structural: resubmitting the same transaction cannot help.
	ErrTooLarge = errors.New("transaction too large")
)

var wsolMint = solana.MustPublicKeyFromBase58(constants.WSOLMint)

// Signer owns a keypair and signs transactions it pays for.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTx(tx *solana.Transaction) error
}

// SwapBuilder assembles and signs swap transactions against a resolved pool.
type SwapBuilder struct {
	signer Signer
	logger *logrus.Logger
}

func NewSwapBuilder(signer Signer, logger *logrus.Logger) *SwapBuilder {
	if logger == nil {
		logger = logrus.New()
	}
	return &SwapBuilder{signer: signer, logger: logger}
}

// Build assembles a fully signed swap transaction from a quote. The size
// ceiling is enforced before signing so an oversized transaction is rejected
// without touching the key.
func (b *SwapBuilder) Build(keys *PoolKeys, quote *Quote, blockhash solana.Hash) (*solana.Transaction, error) {
	owner := b.signer.PublicKey()

	inputMint, outputMint := keys.QuoteMint, keys.BaseMint
	if quote.Direction == DirectionSell {
		inputMint, outputMint = keys.BaseMint, keys.QuoteMint
	}

	sourceATA, _, err := FindAssociatedTokenAddress(owner, inputMint)
	if err != nil {
		return nil, fmt.Errorf("%w: derive source account: %v", ErrInstructionFailure, err)
	}
	destATA, _, err := FindAssociatedTokenAddress(owner, outputMint)
	if err != nil {
		return nil, fmt.Errorf("%w: derive destination account: %v", ErrInstructionFailure, err)
	}

	var ixs []solana.Instruction

	// Idempotent creates are no-ops on existing accounts, so both sides are
	// always included rather than probing account existence first.
	ixs = append(ixs, NewCreateATAIdempotentIx(owner, destATA, owner, outputMint))

	wrappingSOL := inputMint.Equals(wsolMint)
	if wrappingSOL {
		ixs = append(ixs,
			NewCreateATAIdempotentIx(owner, sourceATA, owner, inputMint),
			NewSystemTransferIx(owner, sourceATA, quote.AmountIn),
			NewTokenSyncNativeIx(sourceATA),
		)
	}

	ixs = append(ixs, newSwapBaseInIx(keys, sourceATA, destATA, owner, quote.AmountIn, quote.MinAmountOut))

	// Unwrap proceeds when the trade pays out in wSOL.
	if outputMint.Equals(wsolMint) {
		ixs = append(ixs, NewTokenCloseAccountIx(destATA, owner, owner))
	}

	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(owner))
	if err != nil {
		return nil, fmt.Errorf("%w: assemble transaction: %v", ErrInstructionFailure, err)
	}

	size, err := ensureWireSize(tx)
	if err != nil {
		return nil, err
	}

	if err := b.signer.SignTx(tx); err != nil {
		return nil, fmt.Errorf("%w: sign: %v", ErrInstructionFailure, err)
	}

	b.logger.WithFields(logrus.Fields{
		"pool":      keys.ID.String(),
		"direction": quote.Direction.String(),
		"amount_in": quote.AmountIn,
		"min_out":   quote.MinAmountOut,
		"tx_bytes":  size,
	}).Debug("built swap transaction")

	return tx, nil
}

// newSwapBaseInIx builds the AMM v4 swap instruction with a fixed input
// amount. Account order follows the on-chain program:
// 0.  token program
// 1.  amm id (writable)
// 2.  amm authority
// 3.  amm open orders (writable)
// 4.  amm target orders (writable)
// 5.  pool base vault (writable)
// 6.  pool quote vault (writable)
// 7.  market program
// 8.  market id (writable)
// 9.  market bids (writable)
// 10. market asks (writable)
// 11. market event queue (writable)
// 12. market base vault (writable)
// 13. market quote vault (writable)
// 14. market vault signer
// 15. user source token account (writable)
// 16. user destination token account (writable)
// 17. user owner (signer)
func newSwapBaseInIx(keys *PoolKeys, source, dest, owner solana.PublicKey, amountIn, minAmountOut uint64) solana.Instruction {
	// u8: instruction index (9 = SwapBaseIn)
	// u64: amount in
	// u64: minimum amount out
	data := make([]byte, 1+8+8)
	data[0] = 9
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minAmountOut)

	accounts := []*solana.AccountMeta{
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: keys.ID, IsSigner: false, IsWritable: true},
		{PublicKey: keys.Authority, IsSigner: false, IsWritable: false},
		{PublicKey: keys.OpenOrders, IsSigner: false, IsWritable: true},
		{PublicKey: keys.TargetOrders, IsSigner: false, IsWritable: true},
		{PublicKey: keys.BaseVault, IsSigner: false, IsWritable: true},
		{PublicKey: keys.QuoteVault, IsSigner: false, IsWritable: true},
		{PublicKey: keys.MarketProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: keys.MarketID, IsSigner: false, IsWritable: true},
		{PublicKey: keys.MarketBids, IsSigner: false, IsWritable: true},
		{PublicKey: keys.MarketAsks, IsSigner: false, IsWritable: true},
		{PublicKey: keys.MarketEventQueue, IsSigner: false, IsWritable: true},
		{PublicKey: keys.MarketBaseVault, IsSigner: false, IsWritable: true},
		{PublicKey: keys.MarketQuoteVault, IsSigner: false, IsWritable: true},
		{PublicKey: keys.MarketAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: source, IsSigner: false, IsWritable: true},
		{PublicKey: dest, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}

	return solana.NewInstruction(keys.ProgramID, accounts, data)
}

// ensureWireSize rejects a transaction that cannot fit in a wire packet.
// Runs before signing so an oversized transaction never touches the key.
func ensureWireSize(tx *solana.Transaction) (int, error) {
	size, err := serializedSize(tx)
	if err != nil {
		return 0, fmt.Errorf("%w: measure transaction: %v", ErrInstructionFailure, err)
	}
	if size > constants.MaxTransactionBytes {
		return 0, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, size, constants.MaxTransactionBytes)
	}
	return size, nil
}

// serializedSize measures what the signed transaction will occupy on the
// wire: the message plus a compact length byte and one 64-byte signature per
// required signer. Computable before any signature exists.
func serializedSize(tx *solana.Transaction) (int, error) {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return 0, err
	}
	signers := int(tx.Message.Header.NumRequiredSignatures)
	return 1 + signers*64 + len(msg), nil
}
