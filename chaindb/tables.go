package chaindb

import "github.com/threefoldtech/cnchaindb/persist"

// Table names are the named byte-spaces this package lays directly onto
// persist.Store buckets: one per index, plus an amount_counters cache
// that memoizes next_index_for_amount so dense-index allocation does not
// need a full bucket scan per output.
const (
	tableBlocksByHeight     = "blocks_by_height"
	tableBlockHashToHeight  = "block_hash_to_height"
	tableTxByHash           = "tx_by_hash"
	tableOutputsByAmount    = "outputs_by_amount"
	tableAmountCounters     = "amount_counters"
	tableTxOutputGlobalIdx  = "tx_output_global_indices"
	tableSpentKeyImages     = "spent_key_images"
	tableAliases            = "aliases"
	tableMetadata           = "metadata"
)

var allTables = []string{
	tableBlocksByHeight,
	tableBlockHashToHeight,
	tableTxByHash,
	tableOutputsByAmount,
	tableAmountCounters,
	tableTxOutputGlobalIdx,
	tableSpentKeyImages,
	tableAliases,
	tableMetadata,
}

const metadataKey = "chain"

func createTables(s *persist.Store) error {
	for _, t := range allTables {
		if err := s.CreateTableIfNotExists(t); err != nil {
			return err
		}
	}
	return nil
}

// outputsByAmountKey builds the composite (amount, index) key: big-endian
// amount followed by big-endian index, so a table scan visits indices of
// one amount in ascending order.
func outputsByAmountKey(amount, index uint64) []byte {
	key := make([]byte, 16)
	copy(key[0:8], persist.EncodeUint64Key(amount))
	copy(key[8:16], persist.EncodeUint64Key(index))
	return key
}
