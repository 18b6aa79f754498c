package cnbin

import "github.com/threefoldtech/cnchaindb/types"

func encodeTxOutToScript(e *Encoder, s types.TxOutToScript) error {
	if err := e.Varint(uint64(len(s.Keys))); err != nil {
		return err
	}
	for _, k := range s.Keys {
		if err := e.Fixed(k[:]); err != nil {
			return err
		}
	}
	return e.Bytes(s.Script)
}

func decodeTxOutToScript(d *Decoder) (types.TxOutToScript, error) {
	n, err := d.Varint()
	if err != nil {
		return types.TxOutToScript{}, err
	}
	keys := make([]types.PublicKey, n)
	for i := range keys {
		raw, err := d.Fixed(types.HashSize)
		if err != nil {
			return types.TxOutToScript{}, err
		}
		copy(keys[i][:], raw)
	}
	script, err := d.Bytes(maxScriptSize)
	if err != nil {
		return types.TxOutToScript{}, err
	}
	return types.TxOutToScript{Keys: keys, Script: script}, nil
}

func encodeOutputTarget(e *Encoder, target types.TxOutTarget) error {
	switch v := target.(type) {
	case types.TxOutToScript:
		if err := e.Byte(tagTxOutToScript); err != nil {
			return err
		}
		return encodeTxOutToScript(e, v)
	case types.TxOutToScriptHash:
		if err := e.Byte(tagTxOutToScriptHash); err != nil {
			return err
		}
		return e.Fixed(v.Hash[:])
	case types.TxOutToKey:
		if err := e.Byte(tagTxOutToKey); err != nil {
			return err
		}
		if err := e.Fixed(v.Key[:]); err != nil {
			return err
		}
		return e.Byte(v.MixAttr)
	default:
		return malformed(0, "unknown TxOutTarget implementation %T", target)
	}
}

func decodeOutputTarget(d *Decoder) (types.TxOutTarget, error) {
	off := d.Offset()
	tag, err := d.Byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagTxOutToScript:
		return decodeTxOutToScript(d)
	case tagTxOutToScriptHash:
		raw, err := d.Fixed(types.HashSize)
		if err != nil {
			return nil, err
		}
		var h types.Hash
		copy(h[:], raw)
		return types.TxOutToScriptHash{Hash: h}, nil
	case tagTxOutToKey:
		raw, err := d.Fixed(types.HashSize)
		if err != nil {
			return nil, err
		}
		mixAttr, err := d.Byte()
		if err != nil {
			return nil, err
		}
		var pk types.PublicKey
		copy(pk[:], raw)
		return types.TxOutToKey{Key: pk, MixAttr: mixAttr}, nil
	default:
		return nil, malformed(off, "unknown txout tag 0x%02x", tag)
	}
}

func encodeOutput(e *Encoder, o types.TxOutput) error {
	if err := e.Varint(o.Amount); err != nil {
		return err
	}
	return encodeOutputTarget(e, o.Target)
}

func decodeOutput(d *Decoder) (types.TxOutput, error) {
	amount, err := d.Varint()
	if err != nil {
		return types.TxOutput{}, err
	}
	target, err := decodeOutputTarget(d)
	if err != nil {
		return types.TxOutput{}, err
	}
	return types.TxOutput{Amount: amount, Target: target}, nil
}
