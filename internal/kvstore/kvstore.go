// Package kvstore implements a typed, prefixed accessor layer over a
// replicated ordered byte-string store, backed by badger for local testing
// and standalone operation.
//
// Entity semantics live entirely above this layer: kvstore only knows about
// byte keys, byte values, ordered prefix iteration, and scoped transactions
// with commit/rollback and nested child scopes.
package kvstore

import (
	"bytes"
	"context"
	"errors"
	"sort"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the replicated ordered byte-string store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store rooted at dir. Passing an empty dir opens
// an in-memory store, which is what the marketplace module's tests use.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts a new top-level transaction scope.
func (s *Store) Begin(_ context.Context) *Tx {
	return &Tx{db: s.db, txn: s.db.NewTransaction(true)}
}

// View starts a read-only transaction scope. Mutations made through it panic.
func (s *Store) View(_ context.Context) *Tx {
	return &Tx{db: s.db, txn: s.db.NewTransaction(false), readOnly: true}
}

// Tx is a scoped mutable view of the store. Tx is not safe for concurrent
// use; the marketplace module executes strictly sequentially, so a single Tx
// is used per on-chain call.
//
// A Tx may spawn child scopes via Nested: writes in a child are only visible
// to the parent (and ultimately the store) once the child is committed, and
// the parent may still roll back, discarding the child's writes along with
// its own. This mirrors the "nested child-scope facility" used for subcalls.
type Tx struct {
	db       *badger.DB
	txn      *badger.Txn
	parent   *Tx
	overlay  map[string][]byte // pending writes not yet pushed to txn (nested scope only)
	deleted  map[string]bool
	readOnly bool
	done     bool
}

// Nested returns a child scope. Its Commit merges pending writes into the
// parent; its Rollback discards them. The parent is left untouched until the
// child commits.
func (t *Tx) Nested() *Tx {
	return &Tx{
		db:      t.db,
		parent:  t,
		overlay: make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// Get fetches the value stored at key.
func (t *Tx) Get(key []byte) ([]byte, error) {
	if t.parent != nil {
		if t.deleted[string(key)] {
			return nil, ErrNotFound
		}
		if v, ok := t.overlay[string(key)]; ok {
			return append([]byte(nil), v...), nil
		}
		return t.parent.Get(key)
	}

	item, err := t.txn.Get(key)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set writes value at key.
func (t *Tx) Set(key, value []byte) error {
	if t.readOnly {
		panic("kvstore: write on read-only scope")
	}
	if t.parent != nil {
		k := string(key)
		delete(t.deleted, k)
		t.overlay[k] = append([]byte(nil), value...)
		return nil
	}
	return t.txn.Set(key, value)
}

// Delete removes key, if present.
func (t *Tx) Delete(key []byte) error {
	if t.readOnly {
		panic("kvstore: write on read-only scope")
	}
	if t.parent != nil {
		k := string(key)
		t.deleted[k] = true
		delete(t.overlay, k)
		return nil
	}
	return t.txn.Delete(key)
}

// Iterate walks all keys sharing the given prefix in ascending byte order,
// calling fn for each. Stopping early is signalled by fn returning false.
func (t *Tx) Iterate(prefix []byte, fn func(key, value []byte) (cont bool, err error)) error {
	if t.parent != nil {
		// Nested scopes are only used for short-lived subcalls that do not
		// themselves iterate; merge overlay and deletions on top of the
		// parent's view for correctness.
		type kv struct {
			key   []byte
			value []byte
		}
		seen := make(map[string]bool)
		var rows []kv
		for k, v := range t.overlay {
			if !bytes.HasPrefix([]byte(k), prefix) {
				continue
			}
			rows = append(rows, kv{key: []byte(k), value: v})
			seen[k] = true
		}
		err := t.parent.Iterate(prefix, func(key, value []byte) (bool, error) {
			k := string(key)
			if seen[k] || t.deleted[k] {
				return true, nil
			}
			rows = append(rows, kv{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
			return true, nil
		})
		if err != nil {
			return err
		}
		sort.Slice(rows, func(i, j int) bool { return bytes.Compare(rows[i].key, rows[j].key) < 0 })
		for _, r := range rows {
			cont, err := fn(r.key, r.value)
			if err != nil {
				return err
			}
			if !cont {
				break
			}
		}
		return nil
	}

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		cont, err := fn(append([]byte(nil), item.Key()...), val)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

// Count returns the number of keys under prefix.
func (t *Tx) Count(prefix []byte) (uint64, error) {
	var n uint64
	err := t.Iterate(prefix, func(_, _ []byte) (bool, error) {
		n++
		return true, nil
	})
	return n, err
}

// Commit merges this scope's writes into its parent (nested scope) or the
// underlying store (top-level scope).
func (t *Tx) Commit() error {
	if t.done {
		return errors.New("kvstore: scope already closed")
	}
	t.done = true

	if t.parent != nil {
		for k := range t.deleted {
			if err := t.parent.Delete([]byte(k)); err != nil {
				return err
			}
		}
		for k, v := range t.overlay {
			if err := t.parent.Set([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	}
	return t.txn.Commit()
}

// Rollback discards this scope's writes.
func (t *Tx) Rollback() {
	if t.done {
		return
	}
	t.done = true
	if t.parent == nil {
		t.txn.Discard()
	}
}
