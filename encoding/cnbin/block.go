package cnbin

import (
	"bytes"

	"github.com/threefoldtech/cnchaindb/types"
)

func encodeHeader(e *Encoder, h types.BlockHeader) error {
	if err := e.Byte(h.MajorVersion); err != nil {
		return err
	}
	if err := e.Byte(h.MinorVersion); err != nil {
		return err
	}
	if err := e.Varint(h.Timestamp); err != nil {
		return err
	}
	if err := e.Fixed(h.PrevID[:]); err != nil {
		return err
	}
	if err := e.Varint(h.Nonce); err != nil {
		return err
	}
	return e.Byte(h.Flags)
}

func decodeHeader(d *Decoder) (types.BlockHeader, error) {
	var h types.BlockHeader
	var err error
	if h.MajorVersion, err = d.Byte(); err != nil {
		return h, err
	}
	if h.MajorVersion > types.MaxMajorBlockVersion {
		return h, malformed(d.Offset(), "block major version %d exceeds max %d", h.MajorVersion, types.MaxMajorBlockVersion)
	}
	if h.MinorVersion, err = d.Byte(); err != nil {
		return h, err
	}
	if h.Timestamp, err = d.Varint(); err != nil {
		return h, err
	}
	raw, err := d.Fixed(types.HashSize)
	if err != nil {
		return h, err
	}
	copy(h.PrevID[:], raw)
	if h.Nonce, err = d.Varint(); err != nil {
		return h, err
	}
	if h.Flags, err = d.Byte(); err != nil {
		return h, err
	}
	return h, nil
}

// EncodeBlock writes a tagged block: header, miner transaction, then the
// list of regular transaction hashes included in the block.
func EncodeBlock(block types.Block) ([]byte, error) {
	buf := &bytes.Buffer{}
	e := NewEncoder(buf)
	if err := e.Byte(tagBlock); err != nil {
		return nil, err
	}
	if err := encodeHeader(e, block.BlockHeader); err != nil {
		return nil, err
	}
	minerTxBytes, err := EncodeTransaction(block.MinerTx)
	if err != nil {
		return nil, err
	}
	if err := e.Fixed(minerTxBytes); err != nil {
		return nil, err
	}
	if err := e.Varint(uint64(len(block.TxHashes))); err != nil {
		return nil, err
	}
	for _, h := range block.TxHashes {
		if err := e.Fixed(h[:]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeBlock decodes a tagged block produced by EncodeBlock.
func DecodeBlock(d *Decoder) (types.Block, error) {
	var block types.Block
	off := d.Offset()
	tag, err := d.Byte()
	if err != nil {
		return block, err
	}
	if tag != tagBlock {
		return block, malformed(off, "unexpected block tag 0x%02x", tag)
	}
	block.BlockHeader, err = decodeHeader(d)
	if err != nil {
		return block, err
	}
	block.MinerTx, err = DecodeTransaction(d)
	if err != nil {
		return block, err
	}
	n, err := d.Varint()
	if err != nil {
		return block, err
	}
	block.TxHashes = make([]types.Hash, n)
	for i := range block.TxHashes {
		raw, err := d.Fixed(types.HashSize)
		if err != nil {
			return block, err
		}
		copy(block.TxHashes[i][:], raw)
	}
	return block, nil
}

// BlockHash computes a block's id: the Keccak-256 hash of its encoded
// header together with the block's tree_hash and transaction count, so
// the header commits to a summary rather than the full block body.
func BlockHash(block types.Block) (types.Hash, error) {
	tree, err := BlockTreeHash(block)
	if err != nil {
		return types.Hash{}, err
	}
	buf := &bytes.Buffer{}
	e := NewEncoder(buf)
	if err := encodeHeader(e, block.BlockHeader); err != nil {
		return types.Hash{}, err
	}
	if err := e.Fixed(tree[:]); err != nil {
		return types.Hash{}, err
	}
	if err := e.Varint(uint64(len(block.TxHashes) + 1)); err != nil {
		return types.Hash{}, err
	}
	return HashBytes(buf.Bytes()), nil
}
