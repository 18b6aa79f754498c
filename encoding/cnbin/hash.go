package cnbin

import (
	"github.com/threefoldtech/cnchaindb/types"
	"golang.org/x/crypto/sha3"
)

// HashBytes computes the Keccak-256 digest used throughout the storage
// engine: transaction hashes, the Merkle tree_hash, and the
// mining-scratchpad mixing step all reduce to this one primitive.
func HashBytes(b []byte) types.Hash {
	var h types.Hash
	d := sha3.NewLegacyKeccak256()
	d.Write(b)
	copy(h[:], d.Sum(nil))
	return h
}

// TransactionPrefixHash hashes only the prefix portion of a transaction,
// the value ring signatures are verified against upstream of this engine.
func TransactionPrefixHash(tx types.Transaction) (types.Hash, error) {
	prefix, err := EncodeTransactionPrefix(tx)
	if err != nil {
		return types.Hash{}, err
	}
	return HashBytes(prefix), nil
}

// TransactionHash computes the full transaction id: H(prefix) concatenated
// with H(signatures), then hashed again. Coinbase transactions carry no
// signatures, so the second half hashes an empty slice.
func TransactionHash(tx types.Transaction) (types.Hash, error) {
	prefix, err := EncodeTransactionPrefix(tx)
	if err != nil {
		return types.Hash{}, err
	}
	prefixHash := HashBytes(prefix)

	sigBuf := []byte{}
	for i, in := range tx.Inputs {
		want := ringSize(in)
		if i >= len(tx.Signatures) || len(tx.Signatures[i]) != want {
			return types.Hash{}, malformed(0, "signature row %d malformed", i)
		}
		for _, sig := range tx.Signatures[i] {
			sigBuf = append(sigBuf, sig[:]...)
		}
	}
	sigHash := HashBytes(sigBuf)

	combined := make([]byte, 0, types.HashSize*2)
	combined = append(combined, prefixHash[:]...)
	combined = append(combined, sigHash[:]...)
	return HashBytes(combined), nil
}

// treeHash implements the CryptoNote binary Merkle reduction used for a
// block's root hash: a leaf count of 0 hashes to the zero hash, a single
// leaf is its own root, and otherwise adjacent pairs are hashed together
// repeatedly, carrying an odd trailing leaf up unchanged, until one hash
// remains.
func treeHash(leaves []types.Hash) types.Hash {
	switch len(leaves) {
	case 0:
		return types.Hash{}
	case 1:
		return leaves[0]
	}
	level := make([]types.Hash, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		next := make([]types.Hash, 0, (len(level)+1)/2)
		i := 0
		for ; i+1 < len(level); i += 2 {
			buf := make([]byte, 0, types.HashSize*2)
			buf = append(buf, level[i][:]...)
			buf = append(buf, level[i+1][:]...)
			next = append(next, HashBytes(buf))
		}
		if i < len(level) {
			next = append(next, level[i])
		}
		level = next
	}
	return level[0]
}

// BlockTreeHash computes the root hash a block header commits to: the
// miner transaction hash is the first leaf, followed by the hash of every
// regular transaction included in the block.
func BlockTreeHash(block types.Block) (types.Hash, error) {
	minerHash, err := TransactionHash(block.MinerTx)
	if err != nil {
		return types.Hash{}, err
	}
	leaves := make([]types.Hash, 0, len(block.TxHashes)+1)
	leaves = append(leaves, minerHash)
	leaves = append(leaves, block.TxHashes...)
	return treeHash(leaves), nil
}
