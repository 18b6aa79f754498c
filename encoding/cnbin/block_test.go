package cnbin

import (
	"bytes"
	"testing"

	"github.com/threefoldtech/cnchaindb/types"
)

func sampleBlock() types.Block {
	var prev types.Hash
	prev[0] = 0x01
	return types.Block{
		BlockHeader: types.BlockHeader{
			MajorVersion: 1,
			MinorVersion: 0,
			Timestamp:    1700000000,
			PrevID:       prev,
			Nonce:        12345,
			Flags:        0,
		},
		MinerTx:  sampleCoinbaseTx(7),
		TxHashes: []types.Hash{{0xaa}, {0xbb}, {0xcc}},
	}
}

func TestBlockRoundTrip(t *testing.T) {
	block := sampleBlock()
	encoded, err := EncodeBlock(block)
	if err != nil {
		t.Fatal(err)
	}
	d := NewDecoder(encoded)
	got, err := DecodeBlock(d)
	if err != nil {
		t.Fatal(err)
	}
	if d.Remaining() != 0 {
		t.Fatalf("%d trailing bytes after decode", d.Remaining())
	}
	reencoded, err := EncodeBlock(got)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(encoded, reencoded) {
		t.Fatal("round-trip mismatch")
	}
}

func TestBlockHashStableAndSensitiveToTxHashes(t *testing.T) {
	block := sampleBlock()
	h1, err := BlockHash(block)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := BlockHash(block)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatal("block hash not deterministic")
	}

	mutated := block
	mutated.TxHashes = append([]types.Hash{}, block.TxHashes...)
	mutated.TxHashes[0][0] ^= 0xff
	h3, err := BlockHash(mutated)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h3 {
		t.Fatal("block hash did not change when a tx hash changed")
	}
}

func TestTreeHashSingleAndEmpty(t *testing.T) {
	if got := treeHash(nil); got != (types.Hash{}) {
		t.Fatalf("empty tree hash should be zero, got %v", got)
	}
	leaf := types.Hash{0x01}
	if got := treeHash([]types.Hash{leaf}); got != leaf {
		t.Fatalf("single-leaf tree hash should equal the leaf itself")
	}
}

func TestBlockOddTxCountTreeHash(t *testing.T) {
	block := sampleBlock()
	block.TxHashes = []types.Hash{{0x01}, {0x02}, {0x03}}
	tree, err := BlockTreeHash(block)
	if err != nil {
		t.Fatal(err)
	}
	if tree == (types.Hash{}) {
		t.Fatal("tree hash should not be zero for a non-empty leaf set")
	}
}
