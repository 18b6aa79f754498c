package persist

import "encoding/binary"

// EncodeUint64Key encodes x as an 8-byte big-endian key. Big-endian keeps
// the byte order a lexicographic bucket scan sees in sync with numeric
// order, which chaindb relies on for height-ordered and amount-ordered
// table scans (adapted from persist/internal.EncodeBlockheight).
func EncodeUint64Key(x uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, x)
	return key
}

// DecodeUint64Key reverses EncodeUint64Key.
func DecodeUint64Key(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
