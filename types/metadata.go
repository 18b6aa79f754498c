package types

import "github.com/holiman/uint256"

// BlockMetadata is stored alongside each canonical block. It carries
// everything needed to reverse a block's effects exactly:
// ScratchOffset is the scratchpad length immediately before the block was
// applied, letting pop_block XOR-patch the scratchpad back to that exact
// length.
type BlockMetadata struct {
	BlockSize            uint64
	CumulativeDifficulty *uint256.Int
	CoinsGenerated       uint64
	CoinsDonated         uint64
	ScratchOffset        uint64
}

// ChainMetadata is the singleton record tracked in the metadata table:
// chain height, accounting totals, and the scratchpad length, kept
// consistent with blocks_by_height inside every write transaction.
type ChainMetadata struct {
	Height               uint64
	CumulativeDifficulty *uint256.Int
	CoinsGenerated       uint64
	CoinsDonated         uint64
	TopBlockHash         Hash
	ScratchpadLen        uint64
}
