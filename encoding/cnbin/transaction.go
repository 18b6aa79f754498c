package cnbin

import (
	"bytes"

	"github.com/threefoldtech/cnchaindb/types"
)

// EncodeTransactionPrefix writes just the prefix fields (version,
// unlock_time, vin, vout, extra) — the part that transaction_prefix_hash is
// computed over.
func EncodeTransactionPrefix(tx types.Transaction) ([]byte, error) {
	buf := &bytes.Buffer{}
	e := NewEncoder(buf)
	if err := e.Varint(tx.Version); err != nil {
		return nil, err
	}
	if err := e.Varint(tx.UnlockTime); err != nil {
		return nil, err
	}
	if err := e.Varint(uint64(len(tx.Inputs))); err != nil {
		return nil, err
	}
	for _, in := range tx.Inputs {
		if err := encodeInput(e, in); err != nil {
			return nil, err
		}
	}
	if err := e.Varint(uint64(len(tx.Outputs))); err != nil {
		return nil, err
	}
	for _, out := range tx.Outputs {
		if err := encodeOutput(e, out); err != nil {
			return nil, err
		}
	}
	if err := e.Bytes(tx.Extra); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ringSize returns the number of signature slots an input requires: the
// ring size for a to_key input, zero for every other variant. The
// signatures matrix is not length-prefixed on the wire, so its shape must
// be derived from the already-decoded vin.
func ringSize(in types.TxInput) int {
	if k, ok := in.(types.TxInToKey); ok {
		return len(k.KeyOffsets)
	}
	return 0
}

// EncodeTransaction writes the tagged transaction: prefix then the ragged
// signatures matrix.
func EncodeTransaction(tx types.Transaction) ([]byte, error) {
	prefix, err := EncodeTransactionPrefix(tx)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	e := NewEncoder(buf)
	if err := e.Byte(tagTransaction); err != nil {
		return nil, err
	}
	if err := e.Fixed(prefix); err != nil {
		return nil, err
	}
	for i, in := range tx.Inputs {
		want := ringSize(in)
		row := tx.Signatures[i]
		if len(row) != want {
			return nil, malformed(buf.Len(), "signature row %d has %d entries, want %d", i, len(row), want)
		}
		for _, sig := range row {
			if err := e.Fixed(sig[:]); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

// DecodeTransactionPrefix decodes only the prefix fields from d, leaving
// the decoder positioned at the start of the signatures matrix. The
// returned transaction has no Signatures; a caller decoding the
// (unprefixed) matrix derives each row's length from the decoded Inputs.
func DecodeTransactionPrefix(d *Decoder) (types.Transaction, error) {
	var tx types.Transaction
	var err error
	if tx.Version, err = d.Varint(); err != nil {
		return tx, err
	}
	if tx.Version > types.MaxTransactionVersion {
		return tx, malformed(d.Offset(), "transaction version %d exceeds max %d", tx.Version, types.MaxTransactionVersion)
	}
	if tx.UnlockTime, err = d.Varint(); err != nil {
		return tx, err
	}
	nIn, err := d.Varint()
	if err != nil {
		return tx, err
	}
	tx.Inputs = make([]types.TxInput, nIn)
	for i := range tx.Inputs {
		tx.Inputs[i], err = decodeInput(d)
		if err != nil {
			return tx, err
		}
	}
	nOut, err := d.Varint()
	if err != nil {
		return tx, err
	}
	tx.Outputs = make([]types.TxOutput, nOut)
	for i := range tx.Outputs {
		tx.Outputs[i], err = decodeOutput(d)
		if err != nil {
			return tx, err
		}
	}
	tx.Extra, err = d.Bytes(maxExtraSize)
	if err != nil {
		return tx, err
	}
	return tx, nil
}

// DecodeTransaction decodes a fully tagged transaction (prefix + ragged
// signatures matrix). Decoding vin before the signatures matrix is
// mandatory: the matrix's row lengths are implied by it.
func DecodeTransaction(d *Decoder) (types.Transaction, error) {
	off := d.Offset()
	tag, err := d.Byte()
	if err != nil {
		return types.Transaction{}, err
	}
	if tag != tagTransaction {
		return types.Transaction{}, malformed(off, "unexpected transaction tag 0x%02x", tag)
	}
	tx, err := DecodeTransactionPrefix(d)
	if err != nil {
		return tx, err
	}
	tx.Signatures = make([][]types.Signature, len(tx.Inputs))
	for i, in := range tx.Inputs {
		n := ringSize(in)
		row := make([]types.Signature, n)
		for j := range row {
			raw, err := d.Fixed(64)
			if err != nil {
				return tx, err
			}
			copy(row[j][:], raw)
		}
		tx.Signatures[i] = row
	}
	return tx, nil
}
