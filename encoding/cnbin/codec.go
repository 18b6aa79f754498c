package cnbin

import (
	"bytes"
	"io"
)

// Encoder writes the tagged, length-prefixed wire format to an underlying
// io.Writer. Nested values (a transaction's prefix, a block's miner
// transaction) are encoded into their own buffers first and then copied in
// with Fixed.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Byte writes a single raw byte (used for tags and fixed-width small enums).
func (e *Encoder) Byte(b byte) error {
	n, err := e.w.Write([]byte{b})
	if err != nil {
		return err
	}
	if n != 1 {
		return io.ErrShortWrite
	}
	return nil
}

// Varint writes x using the 7-bit-group var-int rule.
func (e *Encoder) Varint(x uint64) error {
	return WriteVarint(e.w, x)
}

// Fixed writes b verbatim with no length prefix (hashes, keys, key images).
func (e *Encoder) Fixed(b []byte) error {
	n, err := e.w.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}

// Bytes writes a var-int length prefix followed by b.
func (e *Encoder) Bytes(b []byte) error {
	if err := e.Varint(uint64(len(b))); err != nil {
		return err
	}
	return e.Fixed(b)
}

// Decoder reads the tagged, length-prefixed wire format from an in-memory
// buffer, tracking the current offset so decode failures can be reported
// as MalformedBlob{Offset, Reason}.
type Decoder struct {
	r   *bytes.Reader
	buf []byte
}

// NewDecoder returns a Decoder reading from b.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(b), buf: b}
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return len(d.buf) - d.r.Len()
}

// Byte reads a single raw byte.
func (d *Decoder) Byte() (byte, error) {
	off := d.Offset()
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, malformed(off, "truncated: expected 1 byte")
	}
	return b, nil
}

// Varint reads a var-int.
func (d *Decoder) Varint() (uint64, error) {
	return ReadVarint(d.r, d.Offset())
}

// Fixed reads exactly n raw bytes.
func (d *Decoder) Fixed(n int) ([]byte, error) {
	off := d.Offset()
	if d.r.Len() < n {
		return nil, malformed(off, "need %d bytes, have %d", n, d.r.Len())
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(d.r, out); err != nil {
		return nil, malformed(off, "truncated fixed-width read of %d bytes", n)
	}
	return out, nil
}

// Bytes reads a var-int length prefix followed by that many bytes. maxLen
// bounds the prefix so a corrupt or hostile length can't trigger an
// oversized allocation; exceeding it is MalformedBlob.
func (d *Decoder) Bytes(maxLen int) ([]byte, error) {
	off := d.Offset()
	n, err := d.Varint()
	if err != nil {
		return nil, err
	}
	if n > uint64(maxLen) {
		return nil, malformed(off, "length %d exceeds max %d", n, maxLen)
	}
	return d.Fixed(int(n))
}

// Remaining reports how many undecoded bytes are left in the buffer.
func (d *Decoder) Remaining() int {
	return d.r.Len()
}
