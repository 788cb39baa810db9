// Package memory implements an in-process store.Storage backend
// backed by a B-tree per table, for tests and for embedding use cases
// that don't need durability.
//
// Grounded on internal/storage/badger.go's Transaction/Iterator shape
// (snapshot-per-Begin, prefix-scoped Scan); the teacher only ships a
// persistent badger backend, so the in-memory ordered map itself has
// no direct teacher precedent — google/btree is the idiomatic Go
// choice for an in-memory sorted structure (no pack repo implements
// one, so this is the one new ecosystem dependency this package
// introduces rather than hand-rolling a sorted-map replacement on the
// standard library).
package memory

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	"github.com/graphon-db/graphon/pkg/store"
)

type entry struct {
	key   []byte
	value []byte
}

func (e *entry) Less(than btree.Item) bool {
	return bytes.Compare(e.key, than.(*entry).key) < 0
}

// Storage is an in-memory store.Storage implementation. Safe for
// concurrent use; writers serialize via a single mutex, matching the
// single-writer/multi-reader discipline badger itself expects.
type Storage struct {
	mu     sync.RWMutex
	tables [int(store.TableCount)]*btree.BTree
}

// New returns an empty in-memory storage.
func New() *Storage {
	s := &Storage{}
	for i := range s.tables {
		s.tables[i] = btree.New(32)
	}
	return s
}

func (s *Storage) Begin(writable bool) (store.Transaction, error) {
	s.mu.RLock()
	if writable {
		s.mu.RUnlock()
		s.mu.Lock()
	}
	return &transaction{storage: s, writable: writable}, nil
}

func (s *Storage) Close() error { return nil }
func (s *Storage) Sync() error  { return nil }

type transaction struct {
	storage  *Storage
	writable bool
	done     bool
}

func (t *transaction) Get(table store.Table, key []byte) ([]byte, error) {
	tree := t.storage.tables[int(table)]
	item := tree.Get(&entry{key: key})
	if item == nil {
		return nil, store.ErrNotFound
	}
	return item.(*entry).value, nil
}

func (t *transaction) Set(table store.Table, key, value []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	cp := append([]byte{}, value...)
	t.storage.tables[int(table)].ReplaceOrInsert(&entry{key: key, value: cp})
	return nil
}

func (t *transaction) Delete(table store.Table, key []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	t.storage.tables[int(table)].Delete(&entry{key: key})
	return nil
}

func (t *transaction) Scan(table store.Table, start, end []byte) (store.Iterator, error) {
	tree := t.storage.tables[int(table)]
	var items []*entry
	pivot := &entry{key: start}
	collect := func(i btree.Item) bool {
		e := i.(*entry)
		if end != nil && bytes.Compare(e.key, end) >= 0 {
			return false
		}
		items = append(items, e)
		return true
	}
	if start != nil {
		tree.AscendGreaterOrEqual(pivot, collect)
	} else {
		tree.Ascend(collect)
	}
	return &iterator{items: items, pos: -1}, nil
}

func (t *transaction) Commit() error {
	t.release()
	return nil
}

func (t *transaction) Rollback() error {
	t.release()
	return nil
}

func (t *transaction) release() {
	if t.done {
		return
	}
	t.done = true
	if t.writable {
		t.storage.mu.Unlock()
	} else {
		t.storage.mu.RUnlock()
	}
}

type iterator struct {
	items []*entry
	pos   int
}

func (it *iterator) Next() bool {
	it.pos++
	return it.pos < len(it.items)
}

func (it *iterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.items) {
		return nil
	}
	return it.items[it.pos].key
}

func (it *iterator) Value() ([]byte, error) {
	if it.pos < 0 || it.pos >= len(it.items) {
		return nil, store.ErrNotFound
	}
	return it.items[it.pos].value, nil
}

func (it *iterator) Close() error { return nil }
