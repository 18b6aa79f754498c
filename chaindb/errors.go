// Package chaindb implements the BlockchainDB facade: the transactional
// add_block/pop_block surface, the typed index set layered over
// persist.Store, and the mining scratchpad.
package chaindb

import (
	"errors"

	"github.com/threefoldtech/cnchaindb/encoding/cnbin"
)

// MalformedBlob is re-exported so callers need not import encoding/cnbin
// directly to type-switch on decode failures surfaced through the facade.
type MalformedBlob = cnbin.MalformedBlob

var (
	// KeyImageAlreadySpent is returned by AddBlock when a to_key input
	// references a key-image already present in spent_key_images — the
	// engine's core double-spend invariant.
	KeyImageAlreadySpent = errors.New("chaindb: key image already spent")
	// UnsupportedInput is returned when a transaction input variant other
	// than gen or to_key is encountered; those variants are preserved on
	// the wire for forward compatibility but this engine does not index
	// them.
	UnsupportedInput = errors.New("chaindb: unsupported transaction input variant")
	// UnsupportedOutput is returned when a miner-tx output target other
	// than to_key is encountered during a scratchpad update.
	UnsupportedOutput = errors.New("chaindb: unsupported transaction output variant")
	// TxNotFound is returned by GetTx when no stored transaction matches
	// the requested hash.
	TxNotFound = errors.New("chaindb: transaction not found")
	// BlockNotFound is returned by block lookups that miss.
	BlockNotFound = errors.New("chaindb: block not found")
	// EmptyChain is returned by PopBlock when height is already 0.
	EmptyChain = errors.New("chaindb: chain is empty")
	// CorruptScratchpad is returned when the on-disk scratchpad file
	// itself is truncated or has a malformed length prefix. A scratchpad
	// file whose length simply disagrees with metadata.scratchpad_len is
	// not an error: Open rebuilds it by replaying blocks_by_height.
	CorruptScratchpad = errors.New("chaindb: scratchpad file is corrupt")
	// AlreadyOpen is returned by Open when the engine is already open on
	// a different path, or is closing. Open calls are serialized by a
	// mutex, so a second Open on the same path, concurrent or not, returns
	// nil rather than this error.
	AlreadyOpen = errors.New("chaindb: database already open")
	// ErrClosing is returned for write operations attempted while the
	// engine is transitioning from Open to Closed.
	ErrClosing = errors.New("chaindb: database is closing")
	// ErrNotOpen is returned for any operation attempted before Open or
	// after Close.
	ErrNotOpen = errors.New("chaindb: database is not open")
	// ErrMaxPopDepthExceeded is returned by PopBlock when Config.MaxPopDepth
	// is non-zero and Stats.BlocksPopped has already reached it.
	ErrMaxPopDepthExceeded = errors.New("chaindb: maximum pop depth exceeded")
)
