package cnbin

// Tag bytes are part of the on-wire contract and must never change.
const (
	tagTxInGen         = 0xff
	tagTxInToScript     = 0x00
	tagTxInToScriptHash = 0x01
	tagTxInToKey        = 0x02

	tagTxOutToScript     = 0x00
	tagTxOutToScriptHash = 0x01
	tagTxOutToKey        = 0x02

	tagTransaction = 0xcc
	tagBlock       = 0xbb
)

const (
	// maxExtraSize bounds the coinbase/tx "extra" field so a corrupt length
	// prefix cannot trigger an unbounded allocation.
	maxExtraSize = 1 << 20
	// maxScriptSize bounds the forward-compatible script payloads.
	maxScriptSize = 1 << 20
	// maxSigSetSize bounds the forward-compatible sigset payloads.
	maxSigSetSize = 1 << 20
)
