// Package cnbin implements the length-prefixed, variant-tagged binary wire
// format shared by blocks, transactions, inputs and outputs: an
// io.Writer-taking encoder with explicit short-write checks and a
// byte-slice decoder with offset-annotated decode errors. The bit layout is this format's own:
// 7-bit-group var-ints and the tag bytes fixed by the wire contract.
package cnbin

import "fmt"

// MalformedBlob is returned whenever a decode fails because the input bytes
// do not describe a value of the expected shape: a var-int longer than 10
// bytes, a length prefix exceeding the remaining input, an unrecognised tag
// at a position where the wire format requires one, or a version number
// past the compiled maximum.
type MalformedBlob struct {
	Offset int
	Reason string
}

func (e MalformedBlob) Error() string {
	return fmt.Sprintf("malformed blob at offset %d: %s", e.Offset, e.Reason)
}

func malformed(offset int, format string, args ...interface{}) error {
	return MalformedBlob{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
