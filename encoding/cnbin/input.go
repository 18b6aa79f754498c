package cnbin

import "github.com/threefoldtech/cnchaindb/types"

func encodeInput(e *Encoder, in types.TxInput) error {
	switch v := in.(type) {
	case types.TxInGen:
		if err := e.Byte(tagTxInGen); err != nil {
			return err
		}
		return e.Varint(v.Height)
	case types.TxInToScript:
		if err := e.Byte(tagTxInToScript); err != nil {
			return err
		}
		if err := e.Fixed(v.Prev[:]); err != nil {
			return err
		}
		if err := e.Varint(v.Prevout); err != nil {
			return err
		}
		return e.Bytes(v.SigSet)
	case types.TxInToScriptHash:
		if err := e.Byte(tagTxInToScriptHash); err != nil {
			return err
		}
		if err := e.Fixed(v.Prev[:]); err != nil {
			return err
		}
		if err := e.Varint(v.Prevout); err != nil {
			return err
		}
		if err := encodeTxOutToScript(e, v.Script); err != nil {
			return err
		}
		return e.Bytes(v.SigSet)
	case types.TxInToKey:
		if err := e.Byte(tagTxInToKey); err != nil {
			return err
		}
		if err := e.Varint(v.Amount); err != nil {
			return err
		}
		if err := e.Varint(uint64(len(v.KeyOffsets))); err != nil {
			return err
		}
		for _, off := range v.KeyOffsets {
			if err := e.Varint(off); err != nil {
				return err
			}
		}
		return e.Fixed(v.KeyImage[:])
	default:
		return malformed(0, "unknown TxInput implementation %T", in)
	}
}

func decodeInput(d *Decoder) (types.TxInput, error) {
	off := d.Offset()
	tag, err := d.Byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagTxInGen:
		height, err := d.Varint()
		if err != nil {
			return nil, err
		}
		return types.TxInGen{Height: height}, nil
	case tagTxInToScript:
		prev, err := d.Fixed(types.HashSize)
		if err != nil {
			return nil, err
		}
		prevout, err := d.Varint()
		if err != nil {
			return nil, err
		}
		sigset, err := d.Bytes(maxSigSetSize)
		if err != nil {
			return nil, err
		}
		var h types.Hash
		copy(h[:], prev)
		return types.TxInToScript{Prev: h, Prevout: prevout, SigSet: sigset}, nil
	case tagTxInToScriptHash:
		prev, err := d.Fixed(types.HashSize)
		if err != nil {
			return nil, err
		}
		prevout, err := d.Varint()
		if err != nil {
			return nil, err
		}
		script, err := decodeTxOutToScript(d)
		if err != nil {
			return nil, err
		}
		sigset, err := d.Bytes(maxSigSetSize)
		if err != nil {
			return nil, err
		}
		var h types.Hash
		copy(h[:], prev)
		return types.TxInToScriptHash{Prev: h, Prevout: prevout, Script: script, SigSet: sigset}, nil
	case tagTxInToKey:
		amount, err := d.Varint()
		if err != nil {
			return nil, err
		}
		n, err := d.Varint()
		if err != nil {
			return nil, err
		}
		offsets := make([]uint64, n)
		for i := range offsets {
			offsets[i], err = d.Varint()
			if err != nil {
				return nil, err
			}
		}
		ki, err := d.Fixed(types.HashSize)
		if err != nil {
			return nil, err
		}
		var kimg types.KeyImage
		copy(kimg[:], ki)
		return types.TxInToKey{Amount: amount, KeyOffsets: offsets, KeyImage: kimg}, nil
	default:
		return nil, malformed(off, "unknown txin tag 0x%02x", tag)
	}
}
