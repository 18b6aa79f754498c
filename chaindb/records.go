package chaindb

import (
	"bytes"

	"github.com/holiman/uint256"
	"github.com/threefoldtech/cnchaindb/encoding/cnbin"
	"github.com/threefoldtech/cnchaindb/types"
)

// blockRecord is the value stored in blocks_by_height: the block itself
// alongside the accounting metadata computed by the caller when it was
// appended.
type blockRecord struct {
	Block    types.Block
	Metadata types.BlockMetadata
}

func encodeUint256(e *cnbin.Encoder, v *uint256.Int) error {
	if v == nil {
		v = uint256.NewInt(0)
	}
	b := v.Bytes32()
	return e.Fixed(b[:])
}

func decodeUint256(d *cnbin.Decoder) (*uint256.Int, error) {
	raw, err := d.Fixed(32)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(raw), nil
}

func encodeBlockRecord(rec blockRecord) ([]byte, error) {
	blockBytes, err := cnbin.EncodeBlock(rec.Block)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	e := cnbin.NewEncoder(buf)
	if err := e.Fixed(blockBytes); err != nil {
		return nil, err
	}
	if err := e.Varint(rec.Metadata.BlockSize); err != nil {
		return nil, err
	}
	if err := encodeUint256(e, rec.Metadata.CumulativeDifficulty); err != nil {
		return nil, err
	}
	if err := e.Varint(rec.Metadata.CoinsGenerated); err != nil {
		return nil, err
	}
	if err := e.Varint(rec.Metadata.CoinsDonated); err != nil {
		return nil, err
	}
	if err := e.Varint(rec.Metadata.ScratchOffset); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBlockRecord(raw []byte) (blockRecord, error) {
	d := cnbin.NewDecoder(raw)
	block, err := cnbin.DecodeBlock(d)
	if err != nil {
		return blockRecord{}, err
	}
	var md types.BlockMetadata
	if md.BlockSize, err = d.Varint(); err != nil {
		return blockRecord{}, err
	}
	if md.CumulativeDifficulty, err = decodeUint256(d); err != nil {
		return blockRecord{}, err
	}
	if md.CoinsGenerated, err = d.Varint(); err != nil {
		return blockRecord{}, err
	}
	if md.CoinsDonated, err = d.Varint(); err != nil {
		return blockRecord{}, err
	}
	if md.ScratchOffset, err = d.Varint(); err != nil {
		return blockRecord{}, err
	}
	return blockRecord{Block: block, Metadata: md}, nil
}

// txRecord is the value stored in tx_by_hash: the owning block's hash, the
// transaction body, and the transaction's own hash (its "tx_id" — used
// directly as the key into tx_output_global_indices, so no separate
// counter needs to be minted per transaction).
type txRecord struct {
	BlockHash types.Hash
	Tx        types.Transaction
	TxID      types.Hash
}

func encodeTxRecord(rec txRecord) ([]byte, error) {
	txBytes, err := cnbin.EncodeTransaction(rec.Tx)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	e := cnbin.NewEncoder(buf)
	if err := e.Fixed(rec.BlockHash[:]); err != nil {
		return nil, err
	}
	if err := e.Fixed(rec.TxID[:]); err != nil {
		return nil, err
	}
	if err := e.Fixed(txBytes); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeTxRecord(raw []byte) (txRecord, error) {
	d := cnbin.NewDecoder(raw)
	var rec txRecord
	bh, err := d.Fixed(types.HashSize)
	if err != nil {
		return rec, err
	}
	copy(rec.BlockHash[:], bh)
	id, err := d.Fixed(types.HashSize)
	if err != nil {
		return rec, err
	}
	copy(rec.TxID[:], id)
	rec.Tx, err = cnbin.DecodeTransaction(d)
	if err != nil {
		return rec, err
	}
	return rec, nil
}

// outputRecord is the value stored in outputs_by_amount.
type outputRecord struct {
	TxHash        types.Hash
	OutIndexInTx  uint64
	UnlockTime    uint64
}

func encodeOutputRecord(rec outputRecord) []byte {
	buf := &bytes.Buffer{}
	e := cnbin.NewEncoder(buf)
	e.Fixed(rec.TxHash[:])
	e.Varint(rec.OutIndexInTx)
	e.Varint(rec.UnlockTime)
	return buf.Bytes()
}

func decodeOutputRecord(raw []byte) (outputRecord, error) {
	d := cnbin.NewDecoder(raw)
	var rec outputRecord
	h, err := d.Fixed(types.HashSize)
	if err != nil {
		return rec, err
	}
	copy(rec.TxHash[:], h)
	if rec.OutIndexInTx, err = d.Varint(); err != nil {
		return rec, err
	}
	if rec.UnlockTime, err = d.Varint(); err != nil {
		return rec, err
	}
	return rec, nil
}

func encodeChainMetadata(m types.ChainMetadata) []byte {
	buf := &bytes.Buffer{}
	e := cnbin.NewEncoder(buf)
	e.Varint(m.Height)
	encodeUint256(e, m.CumulativeDifficulty)
	e.Varint(m.CoinsGenerated)
	e.Varint(m.CoinsDonated)
	e.Fixed(m.TopBlockHash[:])
	e.Varint(m.ScratchpadLen)
	return buf.Bytes()
}

func decodeChainMetadata(raw []byte) (types.ChainMetadata, error) {
	var m types.ChainMetadata
	d := cnbin.NewDecoder(raw)
	var err error
	if m.Height, err = d.Varint(); err != nil {
		return m, err
	}
	if m.CumulativeDifficulty, err = decodeUint256(d); err != nil {
		return m, err
	}
	if m.CoinsGenerated, err = d.Varint(); err != nil {
		return m, err
	}
	if m.CoinsDonated, err = d.Varint(); err != nil {
		return m, err
	}
	raw32, err := d.Fixed(types.HashSize)
	if err != nil {
		return m, err
	}
	copy(m.TopBlockHash[:], raw32)
	if m.ScratchpadLen, err = d.Varint(); err != nil {
		return m, err
	}
	return m, nil
}

func encodeAliasRecord(a types.AliasRecord) []byte {
	buf := &bytes.Buffer{}
	e := cnbin.NewEncoder(buf)
	e.Bytes([]byte(a.Name))
	e.Bytes(a.Address)
	e.Bytes(a.Signature)
	return buf.Bytes()
}

func decodeAliasRecord(raw []byte) (types.AliasRecord, error) {
	var a types.AliasRecord
	d := cnbin.NewDecoder(raw)
	name, err := d.Bytes(256)
	if err != nil {
		return a, err
	}
	a.Name = string(name)
	if a.Address, err = d.Bytes(1 << 16); err != nil {
		return a, err
	}
	if a.Signature, err = d.Bytes(1 << 16); err != nil {
		return a, err
	}
	return a, nil
}

func encodeGlobalIndices(indices []uint64) []byte {
	buf := &bytes.Buffer{}
	e := cnbin.NewEncoder(buf)
	e.Varint(uint64(len(indices)))
	for _, idx := range indices {
		e.Varint(idx)
	}
	return buf.Bytes()
}

func decodeGlobalIndices(raw []byte) ([]uint64, error) {
	d := cnbin.NewDecoder(raw)
	n, err := d.Varint()
	if err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i := range out {
		if out[i], err = d.Varint(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
