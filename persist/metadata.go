package persist

import "errors"

var (
	// ErrBadHeader is returned when an on-disk database's header string
	// does not match the Metadata the caller opened it with.
	ErrBadHeader = errors.New("persist: database header does not match the expected header")
	// ErrBadVersion is returned when an on-disk database's version string
	// does not match the Metadata the caller opened it with.
	ErrBadVersion = errors.New("persist: database version does not match the expected version")
)

// Metadata identifies a database file: Header names the data format and
// Version lets callers detect a schema that has moved on without them.
type Metadata struct {
	Header  string
	Version string
}
