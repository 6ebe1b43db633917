// Copyright 2025 The nethermind Authors
// This file is part of the nethermind library.
//
// The nethermind library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The nethermind library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the nethermind library. If not, see <http://www.gnu.org/licenses/>.

// Package ethdb provides the versioned key/value stores backing the block
// processor. A SnapshotStore journals every mutation on top of a plain
// key/value backend so that an entire batch of writes can be rewound to a
// version marker, or flushed to the backend in one batch.
package ethdb

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

var (
	errNotFound            = errors.New("not found")
	errSnapshotUnsupported = errors.New("point-in-time snapshots not supported")
)

// SnapshotStore overlays an undo-journaled write buffer on a backing key/value
// store. Reads hit the buffer first, then the backend. Snapshot returns a
// version marker; RevertToSnapshot unwinds the buffer back to one. Commit
// flushes the buffer to the backend in a single batch and invalidates every
// outstanding marker.
//
// The store implements the go-ethereum KeyValueStore interface so it can sit
// underneath a trie database via rawdb.NewDatabase.
type SnapshotStore struct {
	backend ethdb.KeyValueStore
	pending map[string][]byte // nil value marks a pending deletion
	journal []journalEntry
	lock    sync.RWMutex
}

// journalEntry records the previous buffered state of a key so a revert can
// restore it. prev is only meaningful when buffered is true.
type journalEntry struct {
	key      string
	prev     []byte
	buffered bool
}

// NewSnapshotStore wraps the given backend with an undo journal.
func NewSnapshotStore(backend ethdb.KeyValueStore) *SnapshotStore {
	return &SnapshotStore{
		backend: backend,
		pending: make(map[string][]byte),
	}
}

// NewMemorySnapshotStore returns a snapshot store over an in-memory backend.
func NewMemorySnapshotStore() *SnapshotStore {
	return NewSnapshotStore(memorydb.New())
}

// NewLevelDBSnapshotStore returns a snapshot store over a leveldb backend
// rooted at the given path.
func NewLevelDBSnapshotStore(file string, cache int, handles int, namespace string) (*SnapshotStore, error) {
	db, err := leveldb.New(file, cache, handles, namespace, false)
	if err != nil {
		return nil, err
	}
	return NewSnapshotStore(db), nil
}

// Snapshot returns a version marker for the current journal position. Markers
// form a stack: reverting to one discards every marker taken after it, and
// Commit invalidates all of them.
func (s *SnapshotStore) Snapshot() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.journal)
}

// RevertToSnapshot unwinds the write buffer back to the given version marker.
func (s *SnapshotStore) RevertToSnapshot(id int) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if id < 0 || id > len(s.journal) {
		return fmt.Errorf("unknown store version %d (have %d journal entries)", id, len(s.journal))
	}
	for i := len(s.journal) - 1; i >= id; i-- {
		entry := s.journal[i]
		if entry.buffered {
			s.pending[entry.key] = entry.prev
		} else {
			delete(s.pending, entry.key)
		}
	}
	s.journal = s.journal[:id]

	return nil
}

// Commit flushes the write buffer to the backend in a single batch and resets
// the journal. Outstanding version markers become invalid.
func (s *SnapshotStore) Commit() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	batch := s.backend.NewBatch()
	for key, value := range s.pending {
		if value == nil {
			if err := batch.Delete([]byte(key)); err != nil {
				return err
			}
			continue
		}
		if err := batch.Put([]byte(key), value); err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.pending = make(map[string][]byte)
	s.journal = s.journal[:0]

	return nil
}

// Has retrieves if a key is present in the store.
func (s *SnapshotStore) Has(key []byte) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if value, ok := s.pending[string(key)]; ok {
		return value != nil, nil
	}
	return s.backend.Has(key)
}

// Get retrieves the given key if it's present in the store.
func (s *SnapshotStore) Get(key []byte) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if value, ok := s.pending[string(key)]; ok {
		if value == nil {
			return nil, errNotFound
		}
		return common.CopyBytes(value), nil
	}
	return s.backend.Get(key)
}

// Put inserts the given value into the write buffer.
func (s *SnapshotStore) Put(key []byte, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.record(string(key))
	s.pending[string(key)] = common.CopyBytes(value)

	return nil
}

// Delete removes the key from the store, buffering the deletion until commit.
func (s *SnapshotStore) Delete(key []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.record(string(key))
	s.pending[string(key)] = nil

	return nil
}

// record journals the current buffered state of key. Callers must hold the
// write lock.
func (s *SnapshotStore) record(key string) {
	prev, buffered := s.pending[key]
	s.journal = append(s.journal, journalEntry{key: key, prev: prev, buffered: buffered})
}

// NewBatch creates a write-only batch that applies through the journal when
// written, so a revert also unwinds batched writes.
func (s *SnapshotStore) NewBatch() ethdb.Batch {
	return &storeBatch{store: s}
}

// NewBatchWithSize creates a write-only batch with a pre-allocated buffer.
func (s *SnapshotStore) NewBatchWithSize(size int) ethdb.Batch {
	return &storeBatch{store: s, ops: make([]batchOp, 0, size)}
}

// NewIterator creates a binary-alphabetical iterator over a subset of the
// merged buffer/backend view, starting at a particular initial key.
func (s *SnapshotStore) NewIterator(prefix []byte, start []byte) ethdb.Iterator {
	s.lock.RLock()
	defer s.lock.RUnlock()

	merged := make(map[string][]byte)

	it := s.backend.NewIterator(prefix, start)
	for it.Next() {
		merged[string(it.Key())] = common.CopyBytes(it.Value())
	}
	it.Release()

	first := string(prefix) + string(start)
	for key, value := range s.pending {
		if !strings.HasPrefix(key, string(prefix)) || key < first {
			continue
		}
		if value == nil {
			delete(merged, key)
			continue
		}
		merged[key] = common.CopyBytes(value)
	}
	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	values := make([][]byte, 0, len(keys))
	for _, key := range keys {
		values = append(values, merged[key])
	}
	return &mergedIterator{keys: keys, values: values, index: -1}
}

// Stat returns a particular internal stat of the backend.
func (s *SnapshotStore) Stat(property string) (string, error) {
	return s.backend.Stat(property)
}

// Compact flattens the underlying backend for the given key range.
func (s *SnapshotStore) Compact(start []byte, limit []byte) error {
	return s.backend.Compact(start, limit)
}

// NewSnapshot is not supported: versioning goes through Snapshot and
// RevertToSnapshot instead.
func (s *SnapshotStore) NewSnapshot() (ethdb.Snapshot, error) {
	return nil, errSnapshotUnsupported
}

// Close releases the backend.
func (s *SnapshotStore) Close() error {
	return s.backend.Close()
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// storeBatch accumulates writes and replays them through the journaled store
// on Write.
type storeBatch struct {
	store *SnapshotStore
	ops   []batchOp
	size  int
}

func (b *storeBatch) Put(key []byte, value []byte) error {
	b.ops = append(b.ops, batchOp{key: common.CopyBytes(key), value: common.CopyBytes(value)})
	b.size += len(key) + len(value)
	return nil
}

func (b *storeBatch) Delete(key []byte) error {
	b.ops = append(b.ops, batchOp{key: common.CopyBytes(key), delete: true})
	b.size += len(key)
	return nil
}

func (b *storeBatch) ValueSize() int {
	return b.size
}

func (b *storeBatch) Write() error {
	for _, op := range b.ops {
		if op.delete {
			if err := b.store.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := b.store.Put(op.key, op.value); err != nil {
			return err
		}
	}
	return nil
}

func (b *storeBatch) Reset() {
	b.ops = b.ops[:0]
	b.size = 0
}

func (b *storeBatch) Replay(w ethdb.KeyValueWriter) error {
	for _, op := range b.ops {
		if op.delete {
			if err := w.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := w.Put(op.key, op.value); err != nil {
			return err
		}
	}
	return nil
}

// mergedIterator walks a materialized, sorted view of the store.
type mergedIterator struct {
	keys   []string
	values [][]byte
	index  int
}

func (it *mergedIterator) Next() bool {
	if it.index >= len(it.keys) {
		return false
	}
	it.index++
	return it.index < len(it.keys)
}

func (it *mergedIterator) Error() error {
	return nil
}

func (it *mergedIterator) Key() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.index])
}

func (it *mergedIterator) Value() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return it.values[it.index]
}

func (it *mergedIterator) Release() {
	it.keys, it.values, it.index = nil, nil, len(it.keys)
}
