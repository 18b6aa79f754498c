package chaindb

import (
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/threefoldtech/cnchaindb/config"
	"github.com/threefoldtech/cnchaindb/encoding/cnbin"
	"github.com/threefoldtech/cnchaindb/types"
)

func openTestDB(t *testing.T) *BlockchainDB {
	t.Helper()
	dir := t.TempDir()
	db := New()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(dir, "chain.db")
	if err := db.Open(cfg.DBPath, cfg, nil); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func coinbaseBlock(t *testing.T, height uint64, prevID types.Hash, outAmount uint64, key types.PublicKey) types.Block {
	t.Helper()
	return types.Block{
		BlockHeader: types.BlockHeader{MajorVersion: 1, Timestamp: 1000 + height, PrevID: prevID, Nonce: height},
		MinerTx: types.Transaction{
			Version:    1,
			UnlockTime: height + 60,
			Inputs:     []types.TxInput{types.TxInGen{Height: height}},
			Outputs:    []types.TxOutput{{Amount: outAmount, Target: types.TxOutToKey{Key: key}}},
			Extra:      append([]byte{txExtraTagPubkey}, key[:]...),
			Signatures: [][]types.Signature{{}},
		},
	}
}

func TestAddBlockGenesis(t *testing.T) {
	db := openTestDB(t)
	var key types.PublicKey
	key[0] = 0x01
	block := coinbaseBlock(t, 0, types.Hash{}, 1000, key)

	prevHeight, err := db.AddBlock(block, nil, 256, uint256.NewInt(1), 1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if prevHeight != 0 {
		t.Fatalf("prevHeight = %d, want 0", prevHeight)
	}

	height, err := db.Height()
	if err != nil {
		t.Fatal(err)
	}
	if height != 1 {
		t.Fatalf("height() = %d, want 1", height)
	}
	if db.scratch.Len() != 3 {
		t.Fatalf("scratchpad length = %d, want 3", db.scratch.Len())
	}

	top, err := db.TopBlockHash()
	if err != nil {
		t.Fatal(err)
	}
	wantHash, err := cnbin.BlockHash(block)
	if err != nil {
		t.Fatal(err)
	}
	if top != wantHash {
		t.Fatal("top_block_hash does not match the computed block hash")
	}
}

func TestAddBlockDoubleSpendRejected(t *testing.T) {
	db := openTestDB(t)
	var key0 types.PublicKey
	key0[0] = 0x01
	genesis := coinbaseBlock(t, 0, types.Hash{}, 1000, key0)
	if _, err := db.AddBlock(genesis, nil, 256, uint256.NewInt(1), 1000, 0); err != nil {
		t.Fatal(err)
	}

	var img types.KeyImage
	img[0] = 0xaa
	spendTx := types.Transaction{
		Version: 1,
		Inputs:  []types.TxInput{types.TxInToKey{Amount: 100, KeyOffsets: []uint64{0}, KeyImage: img}},
		Outputs: []types.TxOutput{{Amount: 90, Target: types.TxOutToKey{Key: key0}}},
		Extra:   []byte{},
		Signatures: [][]types.Signature{
			{{}},
		},
	}

	var key1 types.PublicKey
	key1[0] = 0x02
	block1 := coinbaseBlock(t, 1, types.Hash{0x01}, 1000, key1)
	_, err := db.AddBlock(block1, []types.Transaction{spendTx, spendTx}, 512, uint256.NewInt(2), 1000, 0)
	if err != KeyImageAlreadySpent {
		t.Fatalf("got %v, want KeyImageAlreadySpent", err)
	}

	height, err := db.Height()
	if err != nil {
		t.Fatal(err)
	}
	if height != 1 {
		t.Fatalf("height after rejected block = %d, want 1 (unchanged)", height)
	}
}

func TestAddPopRestoresState(t *testing.T) {
	db := openTestDB(t)
	var key0 types.PublicKey
	key0[0] = 0x01
	genesis := coinbaseBlock(t, 0, types.Hash{}, 1000, key0)
	if _, err := db.AddBlock(genesis, nil, 256, uint256.NewInt(1), 1000, 0); err != nil {
		t.Fatal(err)
	}

	scratchBefore := append([]types.Hash{}, db.scratch.hashes...)
	heightBefore, _ := db.Height()
	topBefore, _ := db.TopBlockHash()

	var key1 types.PublicKey
	key1[0] = 0x02
	block1 := coinbaseBlock(t, 1, topBefore, 1000, key1)
	if _, err := db.AddBlock(block1, nil, 256, uint256.NewInt(2), 1000, 0); err != nil {
		t.Fatal(err)
	}

	poppedBlock, poppedTxs, err := db.PopBlock()
	if err != nil {
		t.Fatal(err)
	}
	if len(poppedTxs) != 0 {
		t.Fatalf("expected no regular txs in popped block, got %d", len(poppedTxs))
	}
	gotHash, err := cnbin.BlockHash(poppedBlock)
	if err != nil {
		t.Fatal(err)
	}
	wantHash, err := cnbin.BlockHash(block1)
	if err != nil {
		t.Fatal(err)
	}
	if gotHash != wantHash {
		t.Fatal("popped block does not match the block that was appended")
	}

	heightAfter, _ := db.Height()
	topAfter, _ := db.TopBlockHash()
	if heightAfter != heightBefore {
		t.Fatalf("height after pop = %d, want %d", heightAfter, heightBefore)
	}
	if topAfter != topBefore {
		t.Fatal("top_block_hash after pop does not match pre-append snapshot")
	}
	if db.scratch.Len() != uint64(len(scratchBefore)) {
		t.Fatalf("scratchpad length after pop = %d, want %d", db.scratch.Len(), len(scratchBefore))
	}
	for i := range scratchBefore {
		if db.scratch.hashes[i] != scratchBefore[i] {
			t.Fatalf("scratchpad entry %d differs after pop", i)
		}
	}
}

func TestPopEmptyChainFails(t *testing.T) {
	db := openTestDB(t)
	if _, _, err := db.PopBlock(); err != EmptyChain {
		t.Fatalf("got %v, want EmptyChain", err)
	}
}

func TestAddBlockUnsupportedInputRejected(t *testing.T) {
	db := openTestDB(t)
	var key0 types.PublicKey
	key0[0] = 0x01
	genesis := coinbaseBlock(t, 0, types.Hash{}, 1000, key0)
	if _, err := db.AddBlock(genesis, nil, 256, uint256.NewInt(1), 1000, 0); err != nil {
		t.Fatal(err)
	}

	scriptTx := types.Transaction{
		Version:    1,
		Inputs:     []types.TxInput{types.TxInToScript{Prev: types.Hash{0x01}, Prevout: 0, SigSet: []byte{}}},
		Outputs:    []types.TxOutput{{Amount: 90, Target: types.TxOutToKey{Key: key0}}},
		Extra:      []byte{},
		Signatures: [][]types.Signature{{}},
	}

	var key1 types.PublicKey
	key1[0] = 0x02
	block1 := coinbaseBlock(t, 1, types.Hash{0x01}, 1000, key1)
	_, err := db.AddBlock(block1, []types.Transaction{scriptTx}, 512, uint256.NewInt(2), 1000, 0)
	if err != UnsupportedInput {
		t.Fatalf("got %v, want UnsupportedInput", err)
	}

	scriptTxHash, err := cnbin.TransactionHash(scriptTx)
	if err != nil {
		t.Fatal(err)
	}
	have, err := db.HaveTx(scriptTxHash)
	if err != nil {
		t.Fatal(err)
	}
	if have {
		t.Fatal("unsupported-input transaction should not have been indexed")
	}
}

func TestDenseAmountIndices(t *testing.T) {
	db := openTestDB(t)
	var prev types.Hash
	const amount = uint64(10)
	for h := uint64(0); h < 7; h++ {
		var key types.PublicKey
		key[0] = byte(h + 1)
		block := coinbaseBlock(t, h, prev, amount, key)
		if _, err := db.AddBlock(block, nil, 100, uint256.NewInt(h+1), amount, 0); err != nil {
			t.Fatal(err)
		}
		prev, _ = db.TopBlockHash()
	}

	for i := 0; i < 3; i++ {
		if _, _, err := db.PopBlock(); err != nil {
			t.Fatal(err)
		}
	}

	outs, err := db.GetRandomOutsForAmounts([]uint64{amount}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(outs[amount]) != 4 {
		t.Fatalf("got %d outputs of amount %d, want 4", len(outs[amount]), amount)
	}
}

func TestStatsTrackCounts(t *testing.T) {
	db := openTestDB(t)
	var key types.PublicKey
	key[0] = 0x01
	block := coinbaseBlock(t, 0, types.Hash{}, 1000, key)
	if _, err := db.AddBlock(block, nil, 256, uint256.NewInt(1), 1000, 0); err != nil {
		t.Fatal(err)
	}
	if db.Stats().BlocksAdded != 1 {
		t.Fatalf("BlocksAdded = %d, want 1", db.Stats().BlocksAdded)
	}
	if db.Stats().TransactionsIndexed != 1 {
		t.Fatalf("TransactionsIndexed = %d, want 1", db.Stats().TransactionsIndexed)
	}
}
