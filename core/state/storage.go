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

package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/trie"
)

// Storage buffers contract storage writes per account. Commit folds the
// buffered slots into each account's storage trie, writes the new storage
// roots back into the state provider and hands the trie nodes over for the
// next state commit.
type Storage struct {
	state   *StateDB
	pending map[common.Address]map[common.Hash]common.Hash
}

// NewStorage creates a storage provider bound to the given state provider.
func NewStorage(state *StateDB) *Storage {
	return &Storage{
		state:   state,
		pending: make(map[common.Address]map[common.Hash]common.Hash),
	}
}

// SetState buffers a storage slot write. A zero value deletes the slot.
func (st *Storage) SetState(addr common.Address, key common.Hash, value common.Hash) {
	slots, ok := st.pending[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		st.pending[addr] = slots
	}
	slots[key] = value
}

// GetState returns the current value of a storage slot, buffered writes
// included.
func (st *Storage) GetState(addr common.Address, key common.Hash) common.Hash {
	if slots, ok := st.pending[addr]; ok {
		if value, ok := slots[key]; ok {
			return value
		}
	}
	root := st.state.StorageRoot(addr)
	if root == types.EmptyRootHash || root == (common.Hash{}) {
		return common.Hash{}
	}
	tr, err := st.openTrie(addr, root)
	if err != nil {
		st.state.setError(err)
		return common.Hash{}
	}
	value, err := tr.GetStorage(addr, key.Bytes())
	if err != nil {
		st.state.setError(err)
		return common.Hash{}
	}
	return common.BytesToHash(value)
}

// Reset discards every buffered slot write.
func (st *Storage) Reset() {
	st.pending = make(map[common.Address]map[common.Hash]common.Hash)
}

// Commit folds the buffered slots into their accounts' storage tries. The
// produced trie nodes flush together with the next state CommitTree.
func (st *Storage) Commit() error {
	for addr, slots := range st.pending {
		root := st.state.StorageRoot(addr)
		if root == (common.Hash{}) {
			root = types.EmptyRootHash
		}
		tr, err := st.openTrie(addr, root)
		if err != nil {
			return err
		}
		for key, value := range slots {
			if value == (common.Hash{}) {
				if err := tr.DeleteStorage(addr, key.Bytes()); err != nil {
					return err
				}
				continue
			}
			if err := tr.UpdateStorage(addr, key.Bytes(), common.TrimLeftZeroes(value.Bytes())); err != nil {
				return err
			}
		}
		newRoot, set, err := tr.Commit(false)
		if err != nil {
			return err
		}
		st.state.setStorageRoot(addr, newRoot)
		if err := st.state.mergeStorageNodes(set); err != nil {
			return err
		}
	}
	st.pending = make(map[common.Address]map[common.Hash]common.Hash)

	return nil
}

func (st *Storage) openTrie(addr common.Address, root common.Hash) (*trie.StateTrie, error) {
	owner := crypto.Keccak256Hash(addr.Bytes())
	tr, err := trie.NewStateTrie(trie.StorageTrieID(st.state.Root(), owner, root), st.state.triedb)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage trie of %s at %s: %w", addr.Hex(), root.Hex(), err)
	}
	return tr, nil
}
