package types

// MaxTransactionVersion is the compiled maximum transaction version this
// engine accepts; decoding a transaction with a higher version reports a
// MalformedBlob.
const MaxTransactionVersion = 2

// MaxMajorBlockVersion is the compiled maximum block header major version.
const MaxMajorBlockVersion = 2

type (
	// TxInput is implemented by every transaction input variant. It is a
	// closed sum type: TxInGen, TxInToKey, TxInToScript and
	// TxInToScriptHash are the only implementations, matched exhaustively
	// by callers via a type switch.
	TxInput interface {
		isTxInput()
	}

	// TxInGen is the coinbase input, valid only as the sole input of a
	// miner transaction.
	TxInGen struct {
		Height uint64
	}

	// TxInToKey spends a prior to_key output, identified by the ring of
	// candidate global output indices in KeyOffsets (encoding/cnbin writes
	// the values as given and does not convert between absolute and
	// relative offsets) and made unspendable-twice by KeyImage.
	TxInToKey struct {
		Amount     uint64
		KeyOffsets []uint64
		KeyImage   KeyImage
	}

	// TxInToScript and TxInToScriptHash are preserved for forward
	// compatibility with the wire format; this engine can decode them but
	// rejects any transaction that uses one with UnsupportedInput.
	TxInToScript struct {
		Prev    Hash
		Prevout uint64
		SigSet  []byte
	}
	TxInToScriptHash struct {
		Prev    Hash
		Prevout uint64
		Script  TxOutToScript
		SigSet  []byte
	}
)

func (TxInGen) isTxInput()          {}
func (TxInToKey) isTxInput()        {}
func (TxInToScript) isTxInput()     {}
func (TxInToScriptHash) isTxInput() {}

type (
	// TxOutTarget is implemented by every output target variant.
	TxOutTarget interface {
		isTxOutTarget()
	}

	// TxOutToKey is a standard spendable output: a one-time public key and
	// a mixin attribute used by the reference ring-signature scheme.
	TxOutToKey struct {
		Key     PublicKey
		MixAttr uint8
	}

	// TxOutToScript and TxOutToScriptHash are preserved for forward
	// compatibility; this engine stores them in outputs_by_amount like any
	// other output but cannot treat them as scratchpad miner-tx inputs,
	// reporting UnsupportedOutput instead.
	TxOutToScript struct {
		Keys   []PublicKey
		Script []byte
	}
	TxOutToScriptHash struct {
		Hash Hash
	}
)

func (TxOutToKey) isTxOutTarget()        {}
func (TxOutToScript) isTxOutTarget()     {}
func (TxOutToScriptHash) isTxOutTarget() {}

// TxOutput is one output slot of a transaction: an amount and its target.
type TxOutput struct {
	Amount uint64
	Target TxOutTarget
}

// Transaction is a CryptoNote transaction: a prefix (the part that is
// hashed to identify the transaction independent of its signatures) plus
// the ragged signatures matrix. Row i of Signatures has exactly
// len(Inputs[i].(TxInToKey).KeyOffsets) elements for a to_key input, and is
// empty for every other input variant.
type Transaction struct {
	Version    uint64
	UnlockTime uint64
	Inputs     []TxInput
	Outputs    []TxOutput
	Extra      []byte
	Signatures [][]Signature
}

// IsCoinbase reports whether t is a valid miner transaction shape: exactly
// one input, and that input is TxInGen.
func (t Transaction) IsCoinbase() bool {
	if len(t.Inputs) != 1 {
		return false
	}
	_, ok := t.Inputs[0].(TxInGen)
	return ok
}

// BlockHeader is the fixed-shape portion of a block that participates in
// its identity hash.
type BlockHeader struct {
	MajorVersion uint8
	MinorVersion uint8
	Timestamp    uint64
	PrevID       BlockID
	Nonce        uint64
	Flags        uint8
}

// Block is a block header, its coinbase (miner) transaction, and the
// ordered list of hashes of the transactions it carries. The transaction
// bodies themselves live in tx_by_hash; a Block only references them.
type Block struct {
	BlockHeader
	MinerTx  Transaction
	TxHashes []Hash
}

// Height is the 0-based position of a block in the canonical chain.
type Height uint64

// AliasRecord is a human-readable name binding extracted from a coinbase's
// Extra field.
type AliasRecord struct {
	Name      string
	Address   []byte
	Signature []byte
}
