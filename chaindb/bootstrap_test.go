package chaindb

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/threefoldtech/cnchaindb/config"
	"github.com/threefoldtech/cnchaindb/types"
)

func TestBootstrapExportImportRoundTrip(t *testing.T) {
	src := openTestDB(t)
	var prev types.Hash
	for h := uint64(0); h < 4; h++ {
		var key types.PublicKey
		key[0] = byte(h + 1)
		block := coinbaseBlock(t, h, prev, 1000, key)
		if _, err := src.AddBlock(block, nil, 128, uint256.NewInt(h+1), 1000, 0); err != nil {
			t.Fatal(err)
		}
		prev, _ = src.TopBlockHash()
	}

	var buf bytes.Buffer
	if err := src.Export(&buf); err != nil {
		t.Fatal(err)
	}

	dstDir := t.TempDir()
	dst := New()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(dstDir, "chain.db")
	if err := dst.Open(cfg.DBPath, cfg, nil); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { dst.Close() })

	n, err := dst.Import(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("imported %d blocks, want 4", n)
	}

	srcHeight, _ := src.Height()
	dstHeight, _ := dst.Height()
	if srcHeight != dstHeight {
		t.Fatalf("height mismatch: src=%d dst=%d", srcHeight, dstHeight)
	}
	srcTop, _ := src.TopBlockHash()
	dstTop, _ := dst.TopBlockHash()
	if srcTop != dstTop {
		t.Fatal("top_block_hash mismatch after import")
	}

	for h := uint64(0); h < srcHeight; h++ {
		srcBlock, err := src.GetBlockByHeight(h)
		if err != nil {
			t.Fatal(err)
		}
		dstBlock, err := dst.GetBlockByHeight(h)
		if err != nil {
			t.Fatal(err)
		}
		if srcBlock.PrevID != dstBlock.PrevID || srcBlock.Nonce != dstBlock.Nonce {
			t.Fatalf("block %d mismatch after import", h)
		}
	}
}
