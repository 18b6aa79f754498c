package chaindb

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/threefoldtech/cnchaindb/encoding/cnbin"
	"github.com/threefoldtech/cnchaindb/persist"
	"github.com/threefoldtech/cnchaindb/types"
)

// txExtraTagPubkey is the CryptoNote tx_extra tag preceding the miner
// transaction's one-time public key (TX_EXTRA_TAG_PUBKEY).
const txExtraTagPubkey = 0x01

// extractMinerOneTimeKey scans a coinbase transaction's extra field for
// the tx_extra_pub_key entry and returns its 32-byte payload. Any
// malformed extra — missing tag, truncated payload — is a MalformedBlob.
func extractMinerOneTimeKey(extra []byte) (types.PublicKey, error) {
	var key types.PublicKey
	for i := 0; i < len(extra); {
		tag := extra[i]
		i++
		switch tag {
		case txExtraTagPubkey:
			if i+32 > len(extra) {
				return key, cnbin.MalformedBlob{Offset: i, Reason: "truncated tx_extra pubkey"}
			}
			copy(key[:], extra[i:i+32])
			return key, nil
		default:
			// Unknown extra fields are opaque to this engine; skip a
			// single byte and keep scanning rather than guess a length.
		}
	}
	return key, cnbin.MalformedBlob{Offset: len(extra), Reason: "no tx_extra pubkey found in miner transaction"}
}

// Scratchpad is an append-only, XOR-mixed hash sequence. It is held in
// memory and mirrored to an on-disk file on clean shutdown;
// every mutation happens inside the facade's single write transaction, so
// no additional locking is needed here.
type Scratchpad struct {
	hashes []types.Hash
}

// Len reports the current scratchpad length.
func (s *Scratchpad) Len() uint64 { return uint64(len(s.hashes)) }

// xorPatch mutates hashes[0:l0] using hashes[l0:l1]. It is its own
// inverse: calling it twice in a row over the same range
// restores the original prefix, which is exactly how AppendBlock and
// PopBlock share one implementation.
func xorPatch(hashes []types.Hash, l0, l1 int) {
	if l0 == 0 {
		return
	}
	patch := make([]types.Hash, l0)
	for i := l0; i < l1; i++ {
		h := hashes[i]
		r := binary.LittleEndian.Uint64(h[:8])
		idx := int(r % uint64(l0))
		for b := 0; b < types.HashSize; b++ {
			patch[idx][b] ^= h[b]
		}
	}
	for j := 0; j < l0; j++ {
		for b := 0; b < types.HashSize; b++ {
			hashes[j][b] ^= patch[j][b]
		}
	}
}

// AppendBlock mixes block into the scratchpad and returns scratch_offset
// — the length the scratchpad had before this block, needed to reverse
// the mix on pop.
func (s *Scratchpad) AppendBlock(height uint64, block types.Block) (scratchOffset uint64, err error) {
	l0 := len(s.hashes)

	if height > 0 {
		s.hashes = append(s.hashes, block.PrevID)
	}

	minerKey, err := extractMinerOneTimeKey(block.MinerTx.Extra)
	if err != nil {
		s.hashes = s.hashes[:l0]
		return 0, err
	}
	s.hashes = append(s.hashes, types.Hash(minerKey))

	tree, err := cnbin.BlockTreeHash(block)
	if err != nil {
		s.hashes = s.hashes[:l0]
		return 0, err
	}
	s.hashes = append(s.hashes, tree)

	for _, out := range block.MinerTx.Outputs {
		toKey, ok := out.Target.(types.TxOutToKey)
		if !ok {
			s.hashes = s.hashes[:l0]
			return 0, fmt.Errorf("%w: scratchpad update requires to_key outputs", UnsupportedOutput)
		}
		buf := make([]byte, 0, types.HashSize*2)
		buf = append(buf, block.PrevID[:]...)
		buf = append(buf, toKey.Key[:]...)
		s.hashes = append(s.hashes, cnbin.HashBytes(buf))
	}

	l1 := len(s.hashes)
	xorPatch(s.hashes, l0, l1)
	return uint64(l0), nil
}

// PopBlock reverses the effect of AppendBlock, given the scratch_offset
// stored in the popped block's metadata, restoring the scratchpad to
// byte-identical prior contents.
func (s *Scratchpad) PopBlock(scratchOffset uint64) error {
	l0 := int(scratchOffset)
	l1 := len(s.hashes)
	if l0 > l1 {
		return fmt.Errorf("chaindb: scratch_offset %d exceeds scratchpad length %d", l0, l1)
	}
	xorPatch(s.hashes, l0, l1)
	s.hashes = s.hashes[:l0]
	return nil
}

// rebuildScratchpadFromStore recomputes a scratchpad from scratch by
// replaying every block in blocks_by_height from height 0, the repair path
// for a scratchpad file whose length doesn't match metadata.scratchpad_len.
func rebuildScratchpadFromStore(store *persist.Store, height uint64) (*Scratchpad, error) {
	scratch := &Scratchpad{}
	err := store.View(func(r *persist.ReadTxn) error {
		for h := uint64(0); h < height; h++ {
			raw := r.Get([]byte(tableBlocksByHeight), persist.EncodeUint64Key(h))
			if raw == nil {
				return BlockNotFound
			}
			rec, err := decodeBlockRecord(raw)
			if err != nil {
				return err
			}
			if _, err := scratch.AppendBlock(h, rec.Block); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scratch, nil
}

// scratchpadFileMagicLen is the fixed-width length prefix of the on-disk
// scratchpad file: an 8-byte little-endian length followed by length × 32
// raw hash bytes.
const scratchpadFileMagicLen = 8

// saveScratchpadFile exports the scratchpad to path in the on-disk file
// format, for clean-shutdown export.
func saveScratchpadFile(path string, s *Scratchpad) error {
	buf := make([]byte, scratchpadFileMagicLen+len(s.hashes)*types.HashSize)
	binary.LittleEndian.PutUint64(buf[:8], uint64(len(s.hashes)))
	for i, h := range s.hashes {
		copy(buf[scratchpadFileMagicLen+i*types.HashSize:], h[:])
	}
	return os.WriteFile(path, buf, 0600)
}

// loadScratchpadFile imports a scratchpad file written by
// saveScratchpadFile. A missing file is reported as (nil, nil) so callers
// can tell "never persisted" apart from "present but truncated".
func loadScratchpadFile(path string) (*Scratchpad, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) < scratchpadFileMagicLen {
		return nil, CorruptScratchpad
	}
	n := binary.LittleEndian.Uint64(data[:8])
	want := scratchpadFileMagicLen + int(n)*types.HashSize
	if len(data) != want {
		return nil, CorruptScratchpad
	}
	s := &Scratchpad{hashes: make([]types.Hash, n)}
	for i := range s.hashes {
		off := scratchpadFileMagicLen + i*types.HashSize
		copy(s.hashes[i][:], data[off:off+types.HashSize])
	}
	return s, nil
}
