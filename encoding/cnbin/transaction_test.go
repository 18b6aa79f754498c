package cnbin

import (
	"bytes"
	"testing"

	"github.com/threefoldtech/cnchaindb/types"
)

func sampleCoinbaseTx(height uint64) types.Transaction {
	var pk types.PublicKey
	pk[0] = 0xaa
	return types.Transaction{
		Version:    1,
		UnlockTime: height + 60,
		Inputs:     []types.TxInput{types.TxInGen{Height: height}},
		Outputs: []types.TxOutput{
			{Amount: 5000000000, Target: types.TxOutToKey{Key: pk, MixAttr: 0}},
		},
		Extra:      []byte{0x01, 0x02, 0x03},
		Signatures: [][]types.Signature{{}},
	}
}

func sampleSpendTx() types.Transaction {
	var img types.KeyImage
	img[1] = 0x42
	var pk types.PublicKey
	pk[2] = 0x11
	tx := types.Transaction{
		Version:    1,
		UnlockTime: 0,
		Inputs: []types.TxInput{
			types.TxInToKey{Amount: 100, KeyOffsets: []uint64{1, 2, 3}, KeyImage: img},
		},
		Outputs: []types.TxOutput{
			{Amount: 90, Target: types.TxOutToKey{Key: pk, MixAttr: 0}},
		},
		Extra: []byte{},
	}
	row := make([]types.Signature, 3)
	for i := range row {
		row[i][0] = byte(i + 1)
	}
	tx.Signatures = [][]types.Signature{row}
	return tx
}

func TestTransactionRoundTrip(t *testing.T) {
	cases := []types.Transaction{sampleCoinbaseTx(42), sampleSpendTx()}
	for i, tx := range cases {
		encoded, err := EncodeTransaction(tx)
		if err != nil {
			t.Fatalf("case %d: encode: %v", i, err)
		}
		d := NewDecoder(encoded)
		got, err := DecodeTransaction(d)
		if err != nil {
			t.Fatalf("case %d: decode: %v", i, err)
		}
		if d.Remaining() != 0 {
			t.Fatalf("case %d: %d trailing bytes after decode", i, d.Remaining())
		}
		reencoded, err := EncodeTransaction(got)
		if err != nil {
			t.Fatalf("case %d: re-encode: %v", i, err)
		}
		if !bytes.Equal(encoded, reencoded) {
			t.Fatalf("case %d: round-trip mismatch", i)
		}
	}
}

func TestTransactionHashDeterministic(t *testing.T) {
	tx := sampleSpendTx()
	h1, err := TransactionHash(tx)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := TransactionHash(tx)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatal("transaction hash not deterministic")
	}
	ph, err := TransactionPrefixHash(tx)
	if err != nil {
		t.Fatal(err)
	}
	if ph == h1 {
		t.Fatal("prefix hash should differ from full transaction hash when signatures are present")
	}
}

func TestTransactionSignatureShapeMismatch(t *testing.T) {
	tx := sampleSpendTx()
	tx.Signatures[0] = tx.Signatures[0][:1]
	if _, err := EncodeTransaction(tx); err == nil {
		t.Fatal("expected error encoding transaction with wrong signature row length")
	}
}
