package types

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// HashSize is the length in bytes of every fixed-size hash, key and
// key-image handled by this package. Signature is 64 bytes.
const HashSize = 32

// ErrHashWrongLen is returned when decoding a hex string of the wrong length
// into one of this package's 32-byte array types.
var ErrHashWrongLen = errors.New("decoded hex string does not have the expected length")

type (
	// Hash is a 32-byte opaque cryptographic digest. Equality and ordering
	// are bytewise.
	Hash [HashSize]byte

	// KeyImage uniquely identifies the spending of a prior to_key output.
	KeyImage [HashSize]byte

	// PublicKey is a one-time output or transaction public key.
	PublicKey [HashSize]byte

	// Signature is an opaque per-input ring signature element. This
	// engine never verifies signatures; they are carried as fixed-size
	// blobs.
	Signature [64]byte
)

// BlockID names a Hash used as a block identifier.
type BlockID = Hash

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalJSON marshals a hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hash from a hex string.
func (h *Hash) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("decode hash: %w", err)
	}
	if len(decoded) != HashSize {
		return ErrHashWrongLen
	}
	copy(h[:], decoded)
	return nil
}

func (k KeyImage) String() string { return hex.EncodeToString(k[:]) }

// MarshalJSON marshals a key image as a hex string.
func (k KeyImage) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (p PublicKey) String() string { return hex.EncodeToString(p[:]) }

// MarshalJSON marshals a public key as a hex string.
func (p PublicKey) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

// Less reports whether h sorts before other, bytewise.
func (h Hash) Less(other Hash) bool {
	for i := range h {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}
