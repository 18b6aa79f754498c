package persist

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func testMetadata() Metadata {
	return Metadata{Header: "test-store", Version: "0.1"}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, testMetadata(), SyncFastest, OpenFlags{CreateIfMissing: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePutGetCommit(t *testing.T) {
	s := openTestStore(t)

	wtx, err := s.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	if err := wtx.Put([]byte("widgets"), []byte("key1"), []byte("value1")); err != nil {
		t.Fatal(err)
	}
	if err := wtx.Commit(); err != nil {
		t.Fatal(err)
	}

	err = s.View(func(r *ReadTxn) error {
		v := r.Get([]byte("widgets"), []byte("key1"))
		if !bytes.Equal(v, []byte("value1")) {
			t.Fatalf("got %q, want %q", v, "value1")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStoreAbortDiscardsWrites(t *testing.T) {
	s := openTestStore(t)

	wtx, err := s.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	if err := wtx.Put([]byte("widgets"), []byte("key1"), []byte("value1")); err != nil {
		t.Fatal(err)
	}
	if err := wtx.Abort(); err != nil {
		t.Fatal(err)
	}

	err = s.View(func(r *ReadTxn) error {
		if v := r.Get([]byte("widgets"), []byte("key1")); v != nil {
			t.Fatalf("expected no value after abort, got %q", v)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStoreSeekPrefix(t *testing.T) {
	s := openTestStore(t)

	wtx, err := s.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	entries := map[string]string{
		"amount:1:0": "a",
		"amount:1:1": "b",
		"amount:1:2": "c",
		"amount:2:0": "z",
	}
	for k, v := range entries {
		if err := wtx.Put([]byte("outputs"), []byte(k), []byte(v)); err != nil {
			t.Fatal(err)
		}
	}
	if err := wtx.Commit(); err != nil {
		t.Fatal(err)
	}

	err = s.View(func(r *ReadTxn) error {
		c := r.Seek([]byte("outputs"), []byte("amount:1:"))
		count := 0
		for c.Next() {
			count++
		}
		if count != 3 {
			t.Fatalf("got %d matching entries, want 3", count)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStoreMetadataMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, testMetadata(), SyncSafe, OpenFlags{CreateIfMissing: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	_, err = Open(path, Metadata{Header: "wrong-header", Version: "0.1"}, SyncSafe, OpenFlags{}, nil)
	if !errors.Is(err, ErrBadHeader) {
		t.Fatalf("got %v, want ErrBadHeader", err)
	}
}
