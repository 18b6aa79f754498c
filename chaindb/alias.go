package chaindb

import "github.com/threefoldtech/cnchaindb/types"

// txExtraTagAlias is this engine's tx_extra tag for an embedded alias
// record: name, then address and signature as length-prefixed byte
// strings. The upstream source's alias wire format could not be pinned
// down from the retrieved slice (see DESIGN.md); this tag follows the
// same single-byte-prefix convention as txExtraTagPubkey.
const txExtraTagAlias = 0x03

// extractAlias scans a coinbase transaction's extra field for an embedded
// alias record. ok is false if none is present — not every coinbase
// registers an alias.
func extractAlias(extra []byte) (alias types.AliasRecord, ok bool) {
	for i := 0; i < len(extra); {
		tag := extra[i]
		i++
		if tag == txExtraTagPubkey {
			// The pubkey entry's 32-byte payload is key material, not tags.
			i += 32
			continue
		}
		if tag != txExtraTagAlias {
			continue
		}
		name, n, ok1 := readLengthPrefixed(extra, i)
		if !ok1 {
			return types.AliasRecord{}, false
		}
		i = n
		addr, n, ok2 := readLengthPrefixed(extra, i)
		if !ok2 {
			return types.AliasRecord{}, false
		}
		i = n
		sig, n, ok3 := readLengthPrefixed(extra, i)
		if !ok3 {
			return types.AliasRecord{}, false
		}
		i = n
		return types.AliasRecord{Name: string(name), Address: addr, Signature: sig}, true
	}
	return types.AliasRecord{}, false
}

// readLengthPrefixed reads a single-byte length followed by that many raw
// bytes starting at offset i in buf, returning the payload and the offset
// immediately after it.
func readLengthPrefixed(buf []byte, i int) (payload []byte, next int, ok bool) {
	if i >= len(buf) {
		return nil, i, false
	}
	l := int(buf[i])
	i++
	if i+l > len(buf) {
		return nil, i, false
	}
	return buf[i : i+l], i + l, true
}
