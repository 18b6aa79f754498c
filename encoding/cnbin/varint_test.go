package cnbin

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 16383, 16384, 1 << 34, ^uint64(0)}
	for _, x := range cases {
		buf := &bytes.Buffer{}
		if err := WriteVarint(buf, x); err != nil {
			t.Fatalf("encode %d: %v", x, err)
		}
		got, err := ReadVarint(bytes.NewReader(buf.Bytes()), 0)
		if err != nil {
			t.Fatalf("decode %d: %v", x, err)
		}
		if got != x {
			t.Fatalf("round trip mismatch: want %d got %d", x, got)
		}
	}
}

func TestVarintKnownEncoding(t *testing.T) {
	// 300 = 0b1_0010_1100 -> low 7 bits 0101100 with more-bit, then 0000010
	const hexStr = "ac02"
	buf := &bytes.Buffer{}
	if err := WriteVarint(buf, 300); err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(buf.Bytes()) != hexStr {
		t.Fatalf("unexpected encoding: %s", hex.EncodeToString(buf.Bytes()))
	}
}

func TestVarintTruncated(t *testing.T) {
	_, err := ReadVarint(bytes.NewReader([]byte{0x80}), 5)
	if err == nil {
		t.Fatal("expected error decoding truncated var-int")
	}
	mb, ok := err.(MalformedBlob)
	if !ok {
		t.Fatalf("expected MalformedBlob, got %T", err)
	}
	if mb.Offset != 5 {
		t.Fatalf("expected offset 5, got %d", mb.Offset)
	}
}

func TestVarintOverLong(t *testing.T) {
	overlong := bytes.Repeat([]byte{0x80}, maxVarintBytes+1)
	_, err := ReadVarint(bytes.NewReader(overlong), 0)
	if err == nil {
		t.Fatal("expected MalformedBlob for over-long var-int")
	}
}
