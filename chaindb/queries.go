package chaindb

import (
	"math/rand"

	"github.com/holiman/uint256"
	"github.com/threefoldtech/cnchaindb/persist"
	"github.com/threefoldtech/cnchaindb/types"
)

// view runs fn against a snapshot-consistent read transaction, after
// checking the engine is open. Query methods share this one gate.
func (db *BlockchainDB) view(fn func(*persist.ReadTxn) error) error {
	db.mu.Lock()
	err := db.requireOpen()
	store := db.store
	db.mu.Unlock()
	if err != nil {
		return err
	}
	return store.View(fn)
}

// GetBlockByHeight returns the block stored at height. Recently-touched
// heights are served from blockCache without a store read.
func (db *BlockchainDB) GetBlockByHeight(height uint64) (types.Block, error) {
	if db.blockCache != nil {
		if cached, ok := db.blockCache.Get(height); ok {
			return cached.(blockRecord).Block, nil
		}
	}

	var block types.Block
	err := db.view(func(r *persist.ReadTxn) error {
		raw := r.Get([]byte(tableBlocksByHeight), persist.EncodeUint64Key(height))
		if raw == nil {
			return BlockNotFound
		}
		rec, err := decodeBlockRecord(raw)
		if err != nil {
			return err
		}
		block = rec.Block
		db.blockCache.Add(height, rec)
		return nil
	})
	return block, err
}

// GetBlockByHash resolves hash to a height via block_hash_to_height and
// returns the stored block.
func (db *BlockchainDB) GetBlockByHash(hash types.Hash) (types.Block, error) {
	var block types.Block
	err := db.view(func(r *persist.ReadTxn) error {
		raw := r.Get([]byte(tableBlockHashToHeight), hash[:])
		if raw == nil {
			return BlockNotFound
		}
		height := persist.DecodeUint64Key(raw)
		rawBlock := r.Get([]byte(tableBlocksByHeight), persist.EncodeUint64Key(height))
		if rawBlock == nil {
			return BlockNotFound
		}
		rec, err := decodeBlockRecord(rawBlock)
		if err != nil {
			return err
		}
		block = rec.Block
		return nil
	})
	return block, err
}

// GetTx returns the transaction stored under hash, or TxNotFound.
func (db *BlockchainDB) GetTx(hash types.Hash) (types.Transaction, error) {
	var tx types.Transaction
	err := db.view(func(r *persist.ReadTxn) error {
		raw := r.Get([]byte(tableTxByHash), hash[:])
		if raw == nil {
			return TxNotFound
		}
		rec, err := decodeTxRecord(raw)
		if err != nil {
			return err
		}
		tx = rec.Tx
		return nil
	})
	return tx, err
}

// HaveTx reports whether a transaction with the given hash is stored.
func (db *BlockchainDB) HaveTx(hash types.Hash) (bool, error) {
	var have bool
	err := db.view(func(r *persist.ReadTxn) error {
		have = r.Get([]byte(tableTxByHash), hash[:]) != nil
		return nil
	})
	return have, err
}

// HaveKeyImageAsSpent reports whether key-image k has been recorded as
// spent by any stored transaction.
func (db *BlockchainDB) HaveKeyImageAsSpent(k types.KeyImage) (bool, error) {
	var have bool
	err := db.view(func(r *persist.ReadTxn) error {
		have = r.Get([]byte(tableSpentKeyImages), k[:]) != nil
		return nil
	})
	return have, err
}

// HaveKeyImagesAsSpent batch-checks a set of key-images in a single read
// transaction, returning a slice parallel to ks.
func (db *BlockchainDB) HaveKeyImagesAsSpent(ks []types.KeyImage) ([]bool, error) {
	out := make([]bool, len(ks))
	err := db.view(func(r *persist.ReadTxn) error {
		for i, k := range ks {
			out[i] = r.Get([]byte(tableSpentKeyImages), k[:]) != nil
		}
		return nil
	})
	return out, err
}

// GetTxOutputGlobalIndices returns the per-amount global index assigned to
// each output of the transaction identified by txHash, in output order.
func (db *BlockchainDB) GetTxOutputGlobalIndices(txHash types.Hash) ([]uint64, error) {
	var indices []uint64
	err := db.view(func(r *persist.ReadTxn) error {
		raw := r.Get([]byte(tableTxOutputGlobalIdx), txHash[:])
		if raw == nil {
			return TxNotFound
		}
		var err error
		indices, err = decodeGlobalIndices(raw)
		return err
	})
	return indices, err
}

// OutputReference names one output by its position in outputs_by_amount.
type OutputReference struct {
	TxHash       types.Hash
	OutIndexInTx uint64
	UnlockTime   uint64
}

// GetRandomOutsForAmounts draws `count` distinct decoy output references
// for each requested amount from outputs_by_amount, for ring-signature
// construction by the caller. Amounts with fewer than count outputs return
// every output they have.
func (db *BlockchainDB) GetRandomOutsForAmounts(amounts []uint64, count int) (map[uint64][]OutputReference, error) {
	result := make(map[uint64][]OutputReference, len(amounts))
	err := db.view(func(r *persist.ReadTxn) error {
		for _, amount := range amounts {
			var all []OutputReference
			c := r.Seek([]byte(tableOutputsByAmount), persist.EncodeUint64Key(amount))
			for c.Next() {
				rec, err := decodeOutputRecord(c.Value())
				if err != nil {
					return err
				}
				all = append(all, OutputReference{TxHash: rec.TxHash, OutIndexInTx: rec.OutIndexInTx, UnlockTime: rec.UnlockTime})
			}
			if len(all) <= count {
				result[amount] = all
				continue
			}
			rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
			result[amount] = all[:count]
		}
		return nil
	})
	return result, err
}

// Height returns the current chain height.
func (db *BlockchainDB) Height() (uint64, error) {
	var height uint64
	err := db.view(func(r *persist.ReadTxn) error {
		meta, err := readChainMetadataReader(r)
		if err != nil {
			return err
		}
		height = meta.Height
		return nil
	})
	return height, err
}

// TopBlockHash returns the hash of the chain's current top block.
func (db *BlockchainDB) TopBlockHash() (types.Hash, error) {
	var hash types.Hash
	err := db.view(func(r *persist.ReadTxn) error {
		meta, err := readChainMetadataReader(r)
		if err != nil {
			return err
		}
		hash = meta.TopBlockHash
		return nil
	})
	return hash, err
}

// CumulativeDifficulty returns the cumulative difficulty stored for the
// block at height.
func (db *BlockchainDB) CumulativeDifficulty(height uint64) (*uint256.Int, error) {
	var diff *uint256.Int
	err := db.view(func(r *persist.ReadTxn) error {
		raw := r.Get([]byte(tableBlocksByHeight), persist.EncodeUint64Key(height))
		if raw == nil {
			return BlockNotFound
		}
		rec, err := decodeBlockRecord(raw)
		if err != nil {
			return err
		}
		diff = rec.Metadata.CumulativeDifficulty
		return nil
	})
	return diff, err
}

// CoinsGeneratedTotal returns the chain-wide cumulative coin emission.
func (db *BlockchainDB) CoinsGeneratedTotal() (uint64, error) {
	var total uint64
	err := db.view(func(r *persist.ReadTxn) error {
		meta, err := readChainMetadataReader(r)
		if err != nil {
			return err
		}
		total = meta.CoinsGenerated
		return nil
	})
	return total, err
}
