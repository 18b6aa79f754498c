package chaindb

import (
	"bytes"
	"io"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/threefoldtech/cnchaindb/encoding/cnbin"
	"github.com/threefoldtech/cnchaindb/persist"
	"github.com/threefoldtech/cnchaindb/types"
)

// Bootstrap stream format: a file_info prefix, a blocks_info header, then
// a concatenation of block_package records, all encoded with this
// engine's tagged-variant wire codec.

const (
	bootstrapMajorVersion = 1
	bootstrapMinorVersion = 0
)

// fileInfo is the bootstrap stream's leading record.
type fileInfo struct {
	Major      uint8
	Minor      uint8
	HeaderSize uint64
}

// blocksInfo is the bootstrap stream's header record, following fileInfo.
type blocksInfo struct {
	BlockFirst   uint64
	BlockLast    uint64
	BlockLastPos uint64
}

// blockPackage is one exported block plus everything AddBlock needs to
// replay it.
type blockPackage struct {
	Block                 types.Block
	Txs                   []types.Transaction
	BlockSize             uint64
	CumulativeDifficulty  *uint256.Int
	CoinsGenerated        uint64
	CoinsDonated          uint64
	ScratchOffset         uint64
}

func encodeFileInfo(e *cnbin.Encoder, fi fileInfo) error {
	if err := e.Byte(fi.Major); err != nil {
		return err
	}
	if err := e.Byte(fi.Minor); err != nil {
		return err
	}
	return e.Varint(fi.HeaderSize)
}

func decodeFileInfo(d *cnbin.Decoder) (fileInfo, error) {
	var fi fileInfo
	var err error
	if fi.Major, err = d.Byte(); err != nil {
		return fi, err
	}
	if fi.Minor, err = d.Byte(); err != nil {
		return fi, err
	}
	if fi.HeaderSize, err = d.Varint(); err != nil {
		return fi, err
	}
	return fi, nil
}

func encodeBlocksInfo(e *cnbin.Encoder, bi blocksInfo) error {
	if err := e.Varint(bi.BlockFirst); err != nil {
		return err
	}
	if err := e.Varint(bi.BlockLast); err != nil {
		return err
	}
	return e.Varint(bi.BlockLastPos)
}

func decodeBlocksInfo(d *cnbin.Decoder) (blocksInfo, error) {
	var bi blocksInfo
	var err error
	if bi.BlockFirst, err = d.Varint(); err != nil {
		return bi, err
	}
	if bi.BlockLast, err = d.Varint(); err != nil {
		return bi, err
	}
	if bi.BlockLastPos, err = d.Varint(); err != nil {
		return bi, err
	}
	return bi, nil
}

func encodeBlockPackage(pkg blockPackage) ([]byte, error) {
	blockBytes, err := cnbin.EncodeBlock(pkg.Block)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	e := cnbin.NewEncoder(buf)
	if err := e.Fixed(blockBytes); err != nil {
		return nil, err
	}
	if err := e.Varint(uint64(len(pkg.Txs))); err != nil {
		return nil, err
	}
	for _, tx := range pkg.Txs {
		txBytes, err := cnbin.EncodeTransaction(tx)
		if err != nil {
			return nil, err
		}
		if err := e.Fixed(txBytes); err != nil {
			return nil, err
		}
	}
	if err := e.Varint(pkg.BlockSize); err != nil {
		return nil, err
	}
	if err := encodeUint256(e, pkg.CumulativeDifficulty); err != nil {
		return nil, err
	}
	if err := e.Varint(pkg.CoinsGenerated); err != nil {
		return nil, err
	}
	if err := e.Varint(pkg.CoinsDonated); err != nil {
		return nil, err
	}
	if err := e.Varint(pkg.ScratchOffset); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBlockPackage(d *cnbin.Decoder) (blockPackage, error) {
	var pkg blockPackage
	block, err := cnbin.DecodeBlock(d)
	if err != nil {
		return pkg, err
	}
	pkg.Block = block

	n, err := d.Varint()
	if err != nil {
		return pkg, err
	}
	pkg.Txs = make([]types.Transaction, n)
	for i := range pkg.Txs {
		pkg.Txs[i], err = cnbin.DecodeTransaction(d)
		if err != nil {
			return pkg, err
		}
	}

	if pkg.BlockSize, err = d.Varint(); err != nil {
		return pkg, err
	}
	if pkg.CumulativeDifficulty, err = decodeUint256(d); err != nil {
		return pkg, err
	}
	if pkg.CoinsGenerated, err = d.Varint(); err != nil {
		return pkg, err
	}
	if pkg.CoinsDonated, err = d.Varint(); err != nil {
		return pkg, err
	}
	if pkg.ScratchOffset, err = d.Varint(); err != nil {
		return pkg, err
	}
	return pkg, nil
}

// Export streams every block in the chain, in height order, to w as a
// bootstrap file. It takes its own read snapshot and does not block
// concurrent writers.
func (db *BlockchainDB) Export(w io.Writer) error {
	db.mu.Lock()
	if err := db.requireOpen(); err != nil {
		db.mu.Unlock()
		return err
	}
	store := db.store
	db.mu.Unlock()

	var packages [][]byte
	err := store.View(func(r *persist.ReadTxn) error {
		meta, err := readChainMetadataReader(r)
		if err != nil {
			return err
		}
		if meta.Height == 0 {
			return nil
		}
		for h := uint64(0); h < meta.Height; h++ {
			raw := r.Get([]byte(tableBlocksByHeight), persist.EncodeUint64Key(h))
			if raw == nil {
				return BlockNotFound
			}
			rec, err := decodeBlockRecord(raw)
			if err != nil {
				return err
			}
			txs := make([]types.Transaction, 0, len(rec.Block.TxHashes))
			for _, txHash := range rec.Block.TxHashes {
				rawTx := r.Get([]byte(tableTxByHash), txHash[:])
				if rawTx == nil {
					return TxNotFound
				}
				txRec, err := decodeTxRecord(rawTx)
				if err != nil {
					return err
				}
				txs = append(txs, txRec.Tx)
			}
			pkg := blockPackage{
				Block:                rec.Block,
				Txs:                  txs,
				BlockSize:            rec.Metadata.BlockSize,
				CumulativeDifficulty: rec.Metadata.CumulativeDifficulty,
				CoinsGenerated:       rec.Metadata.CoinsGenerated,
				CoinsDonated:         rec.Metadata.CoinsDonated,
				ScratchOffset:        rec.Metadata.ScratchOffset,
			}
			encoded, err := encodeBlockPackage(pkg)
			if err != nil {
				return err
			}
			packages = append(packages, encoded)
		}
		return nil
	})
	if err != nil {
		return err
	}

	headerBuf := &bytes.Buffer{}
	he := cnbin.NewEncoder(headerBuf)
	if len(packages) > 0 {
		if err := encodeBlocksInfo(he, blocksInfo{BlockFirst: 0, BlockLast: uint64(len(packages) - 1), BlockLastPos: uint64(len(packages) - 1)}); err != nil {
			return err
		}
	} else {
		if err := encodeBlocksInfo(he, blocksInfo{}); err != nil {
			return err
		}
	}

	fe := cnbin.NewEncoder(w)
	if err := encodeFileInfo(fe, fileInfo{Major: bootstrapMajorVersion, Minor: bootstrapMinorVersion, HeaderSize: uint64(headerBuf.Len())}); err != nil {
		return err
	}
	if _, err := w.Write(headerBuf.Bytes()); err != nil {
		return err
	}
	for _, pkg := range packages {
		if _, err := w.Write(pkg); err != nil {
			return err
		}
	}
	return nil
}

// Import decodes a bootstrap stream produced by Export and replays each
// block through AddBlock in order.
func (db *BlockchainDB) Import(data []byte) (int, error) {
	d := cnbin.NewDecoder(data)
	fi, err := decodeFileInfo(d)
	if err != nil {
		return 0, err
	}
	if fi.Major != bootstrapMajorVersion {
		return 0, cnbin.MalformedBlob{Offset: 0, Reason: "unsupported bootstrap file major version"}
	}
	headerEnd := d.Offset() + int(fi.HeaderSize)
	if headerEnd > len(data) {
		return 0, cnbin.MalformedBlob{Offset: d.Offset(), Reason: "bootstrap header_size exceeds file length"}
	}
	if _, err := decodeBlocksInfo(d); err != nil {
		return 0, err
	}
	// Skip any header bytes this decoder's blocksInfo didn't consume, so a
	// future header extension doesn't desynchronize record framing.
	for d.Offset() < headerEnd {
		if _, err := d.Byte(); err != nil {
			return 0, err
		}
	}

	count := 0
	for d.Remaining() > 0 {
		pkg, err := decodeBlockPackage(d)
		if err != nil {
			return count, err
		}
		if _, err := db.AddBlock(pkg.Block, pkg.Txs, pkg.BlockSize, pkg.CumulativeDifficulty, pkg.CoinsGenerated, pkg.CoinsDonated); err != nil {
			return count, errors.Wrapf(err, "replay bootstrap block %d", count)
		}
		count++
	}
	return count, nil
}
