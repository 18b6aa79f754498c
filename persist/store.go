package persist

import (
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// SyncProfile trades durability for throughput. The store is correct
// under all three; only the crash recovery point differs.
type SyncProfile int

const (
	// SyncSafe fsyncs both data and metadata on every commit.
	SyncSafe SyncProfile = iota
	// SyncFast sets bbolt's NoGrowSync: each commit still fsyncs its data
	// and metadata pages, and only the truncate-and-sync that bbolt runs
	// when it grows the database file is skipped. The metadata sync is not
	// deferred.
	SyncFast
	// SyncFastest acks before any sync at all; a crash may lose the most
	// recent commits but can never corrupt older state, since bbolt's
	// copy-on-write b-tree never overwrites a page still reachable from
	// the previous root.
	SyncFastest
)

func (p SyncProfile) String() string {
	switch p {
	case SyncSafe:
		return "safe"
	case SyncFast:
		return "fast"
	case SyncFastest:
		return "fastest"
	default:
		return "unknown"
	}
}

// OpenFlags enumerates the open-time knobs a caller can set. NoReadahead
// sets bbolt's NoFreelistSync option and MmapWrites sets MmapFlags to 0
// (bbolt's default); CreateIfMissing is not consulted, and bbolt creates a
// missing database file either way. The durability knobs are folded into
// the chosen SyncProfile instead of being independent booleans, since
// bbolt exposes durability as a single NoSync switch rather than separate
// data/metadata sync stages.
type OpenFlags struct {
	CreateIfMissing bool
	NoReadahead     bool
	MmapWrites      bool
}

// Store is an embedded key-value abstraction: named tables (bbolt
// buckets), a single concurrent writer, and unbounded snapshot-consistent
// readers, with a put/get/delete/seek capability surface layered over
// go.etcd.io/bbolt.
type Store struct {
	Metadata
	db   *bolt.DB
	log  *Logger
	path string
}

// Open opens or creates the database at path, validating its header and
// version against md.
func Open(path string, md Metadata, profile SyncProfile, flags OpenFlags, log *Logger) (*Store, error) {
	opts := &bolt.Options{
		Timeout:    5 * time.Second,
		NoSync:     profile == SyncFastest,
		NoGrowSync: profile != SyncSafe,
	}
	if flags.NoReadahead {
		opts.NoFreelistSync = true
	}
	if flags.MmapWrites {
		opts.MmapFlags = 0
	}

	db, err := bolt.Open(path, 0600, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open store at %s", path)
	}

	s := &Store{Metadata: md, db: db, log: log, path: path}
	if err := s.checkMetadata(md); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "check store metadata")
	}
	return s, nil
}

func (s *Store) checkMetadata(md Metadata) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte("Metadata"))
		if bucket == nil {
			bucket, err := tx.CreateBucket([]byte("Metadata"))
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte("Header"), []byte(md.Header)); err != nil {
				return err
			}
			return bucket.Put([]byte("Version"), []byte(md.Version))
		}
		if header := string(bucket.Get([]byte("Header"))); header != md.Header {
			return ErrBadHeader
		}
		if version := string(bucket.Get([]byte("Version"))); version != md.Version {
			return ErrBadVersion
		}
		return nil
	})
}

// Path returns the filesystem path the store was opened from.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTableIfNotExists ensures a named table exists, creating it inside
// its own write transaction.
func (s *Store) CreateTableIfNotExists(table string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(table))
		return err
	})
}

// View runs fn against a read-only, snapshot-consistent transaction.
func (s *Store) View(fn func(*ReadTxn) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&ReadTxn{tx: tx})
	})
}

// BeginWrite starts a write transaction. Only one write transaction may be
// open at a time; BeginWrite blocks until any prior writer commits or
// aborts. Callers must always Commit or Abort — typically via a deferred
// Abort guarded by a commit flag, so every exit path releases the
// transaction.
func (s *Store) BeginWrite() (*WriteTxn, error) {
	tx, err := s.db.Begin(true)
	if err != nil {
		return nil, err
	}
	return &WriteTxn{tx: tx}, nil
}

// ReadTxn is a snapshot-consistent read-only view over the store.
type ReadTxn struct {
	tx *bolt.Tx
}

// Get returns the value for key in table, or nil if absent. The returned
// slice is a copy and remains valid after the transaction ends.
func (r *ReadTxn) Get(table, key []byte) []byte {
	b := r.tx.Bucket(table)
	if b == nil {
		return nil
	}
	v := b.Get(key)
	if v == nil {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

// Seek returns a Cursor over table positioned at the first key with the
// given prefix.
func (r *ReadTxn) Seek(table, prefix []byte) *Cursor {
	b := r.tx.Bucket(table)
	if b == nil {
		return &Cursor{}
	}
	return &Cursor{cursor: b.Cursor(), prefix: prefix, started: false}
}

// WriteTxn is the single allowed concurrent write transaction. Every
// mutating accessor in chaindb funnels through one of these.
type WriteTxn struct {
	tx *bolt.Tx
}

func (w *WriteTxn) bucket(table []byte) (*bolt.Bucket, error) {
	b := w.tx.Bucket(table)
	if b != nil {
		return b, nil
	}
	return w.tx.CreateBucketIfNotExists(table)
}

// Put writes key/value into table, creating the table if needed.
func (w *WriteTxn) Put(table, key, value []byte) error {
	b, err := w.bucket(table)
	if err != nil {
		return err
	}
	return b.Put(key, value)
}

// Get returns the value for key in table, or nil if absent. The returned
// slice aliases bbolt's internal mmap and is only valid until the next
// write to the same transaction; callers needing to retain it must copy.
func (w *WriteTxn) Get(table, key []byte) []byte {
	b := w.tx.Bucket(table)
	if b == nil {
		return nil
	}
	return b.Get(key)
}

// Delete removes key from table. Deleting an absent key is a no-op.
func (w *WriteTxn) Delete(table, key []byte) error {
	b := w.tx.Bucket(table)
	if b == nil {
		return nil
	}
	return b.Delete(key)
}

// Seek returns a Cursor over table positioned at the first key with the
// given prefix.
func (w *WriteTxn) Seek(table, prefix []byte) *Cursor {
	b := w.tx.Bucket(table)
	if b == nil {
		return &Cursor{}
	}
	return &Cursor{cursor: b.Cursor(), prefix: prefix, started: false}
}

// Commit finalizes the write transaction, making its effects visible to
// future readers.
func (w *WriteTxn) Commit() error {
	return w.tx.Commit()
}

// Abort discards the write transaction; no effect is visible afterward.
func (w *WriteTxn) Abort() error {
	return w.tx.Rollback()
}

// Cursor walks keys sharing a common prefix within one table, in key
// order. A Cursor over a table that does not yet exist is valid and
// immediately exhausted.
type Cursor struct {
	cursor  *bolt.Cursor
	prefix  []byte
	started bool
	key     []byte
	value   []byte
}

// Next advances the cursor and reports whether a matching entry remains.
func (c *Cursor) Next() bool {
	if c.cursor == nil {
		return false
	}
	var k, v []byte
	if !c.started {
		c.started = true
		k, v = c.cursor.Seek(c.prefix)
	} else {
		k, v = c.cursor.Next()
	}
	if k == nil || !hasPrefix(k, c.prefix) {
		c.key, c.value = nil, nil
		return false
	}
	c.key, c.value = k, v
	return true
}

// Key returns the current entry's key.
func (c *Cursor) Key() []byte { return c.key }

// Value returns the current entry's value.
func (c *Cursor) Value() []byte { return c.value }

func hasPrefix(k, prefix []byte) bool {
	if len(prefix) == 0 {
		return true
	}
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}
