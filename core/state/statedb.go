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

// Package state implements the account and storage providers used by the
// block processor: a write-buffered view over a Merkle Patricia trie whose
// nodes live in a versioned key/value store.
package state

import (
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/holiman/uint256"
)

// codeCacheSize is the byte size of the contract code read cache.
const codeCacheSize = 16 * 1024 * 1024

// StateDB buffers account mutations on top of a state trie. Commit folds the
// dirty accounts (and any storage trie nodes handed over by the storage
// provider) into the trie and moves the root forward; CommitTree pushes the
// accumulated trie nodes down into the backing store.
type StateDB struct {
	triedb *triedb.Database
	codedb ethdb.KeyValueStore

	root common.Hash
	tr   *trie.StateTrie

	objects      map[common.Address]*stateObject
	storageNodes *trienode.MergedNodeSet

	codeCache *fastcache.Cache

	// dbErr is the first database failure hit during a read. Reads report
	// through their value result, so the error is stashed and surfaced by
	// Commit, the same way go-ethereum's StateDB defers it.
	dbErr error
}

// stateObject is the buffered view of a single account.
type stateObject struct {
	account   types.StateAccount
	exists    bool
	dirty     bool
	code      []byte
	dirtyCode bool
}

func (obj *stateObject) empty() bool {
	return obj.account.Nonce == 0 &&
		obj.account.Balance.Sign() == 0 &&
		common.BytesToHash(obj.account.CodeHash) == types.EmptyCodeHash
}

// New creates a state provider at the given root. The state store holds trie
// nodes, the code store holds contract code.
func New(root common.Hash, stateStore ethdb.KeyValueStore, codeStore ethdb.KeyValueStore) *StateDB {
	return &StateDB{
		triedb:    triedb.NewDatabase(rawdb.NewDatabase(stateStore), triedb.HashDefaults),
		codedb:    codeStore,
		root:      root,
		objects:   make(map[common.Address]*stateObject),
		codeCache: fastcache.New(codeCacheSize),
	}
}

// Root returns the last committed state root.
func (s *StateDB) Root() common.Hash {
	return s.root
}

// SetRoot repoints the provider at a different committed root, dropping every
// buffered change.
func (s *StateDB) SetRoot(root common.Hash) {
	s.root = root
	s.discard()
}

// Reset drops all buffered changes, keeping the current root.
func (s *StateDB) Reset() {
	s.discard()
}

func (s *StateDB) discard() {
	s.tr = nil
	s.objects = make(map[common.Address]*stateObject)
	s.storageNodes = nil
	s.dbErr = nil
}

// Exist reports whether the account is present in the state.
func (s *StateDB) Exist(addr common.Address) bool {
	return s.getObject(addr).exists
}

// CreateAccount adds a fresh account with the given initial balance,
// replacing any previous account at the address.
func (s *StateDB) CreateAccount(addr common.Address, balance *uint256.Int) {
	account := types.NewEmptyStateAccount()
	account.Balance = new(uint256.Int).Set(balance)
	s.objects[addr] = &stateObject{account: *account, exists: true, dirty: true}
}

// GetBalance returns the account balance, or zero for a missing account.
func (s *StateDB) GetBalance(addr common.Address) *uint256.Int {
	obj := s.getObject(addr)
	if !obj.exists {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(obj.account.Balance)
}

// AddBalance adds amount to the account, materializing it if missing.
func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int) {
	obj := s.getOrNewObject(addr)
	obj.account.Balance = new(uint256.Int).Add(obj.account.Balance, amount)
	obj.dirty = true
}

// SubBalance subtracts amount from the account, materializing it if missing.
func (s *StateDB) SubBalance(addr common.Address, amount *uint256.Int) {
	obj := s.getOrNewObject(addr)
	obj.account.Balance = new(uint256.Int).Sub(obj.account.Balance, amount)
	obj.dirty = true
}

// GetNonce returns the account nonce.
func (s *StateDB) GetNonce(addr common.Address) uint64 {
	return s.getObject(addr).account.Nonce
}

// SetNonce updates the account nonce.
func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	obj := s.getOrNewObject(addr)
	obj.account.Nonce = nonce
	obj.dirty = true
}

// GetCodeHash returns the hash of the account's code.
func (s *StateDB) GetCodeHash(addr common.Address) common.Hash {
	obj := s.getObject(addr)
	if !obj.exists {
		return common.Hash{}
	}
	return common.BytesToHash(obj.account.CodeHash)
}

// GetCode returns the account's contract code.
func (s *StateDB) GetCode(addr common.Address) []byte {
	obj := s.getObject(addr)
	if !obj.exists {
		return nil
	}
	if obj.dirtyCode {
		return obj.code
	}
	codeHash := common.BytesToHash(obj.account.CodeHash)
	if codeHash == types.EmptyCodeHash {
		return nil
	}
	if code := s.codeCache.Get(nil, codeHash.Bytes()); len(code) > 0 {
		return code
	}
	code := rawdb.ReadCode(s.codedb, codeHash)
	if len(code) == 0 {
		s.setError(fmt.Errorf("code missing for account %s (hash %s)", addr.Hex(), codeHash.Hex()))
		return nil
	}
	s.codeCache.Set(codeHash.Bytes(), code)

	return code
}

// SetCode stores contract code for the account; the code itself is written to
// the code store at commit time.
func (s *StateDB) SetCode(addr common.Address, code []byte) {
	obj := s.getOrNewObject(addr)
	obj.code = common.CopyBytes(code)
	obj.dirtyCode = true
	obj.account.CodeHash = crypto.Keccak256Hash(code).Bytes()
	obj.dirty = true
}

// StorageRoot returns the storage trie root of the account.
func (s *StateDB) StorageRoot(addr common.Address) common.Hash {
	obj := s.getObject(addr)
	if !obj.exists {
		return types.EmptyRootHash
	}
	return obj.account.Root
}

// setStorageRoot is the storage provider's write-back of a folded storage
// trie root.
func (s *StateDB) setStorageRoot(addr common.Address, root common.Hash) {
	obj := s.getOrNewObject(addr)
	obj.account.Root = root
	obj.dirty = true
}

// mergeStorageNodes stashes a folded storage trie's node set for inclusion in
// the next Commit.
func (s *StateDB) mergeStorageNodes(set *trienode.NodeSet) error {
	if set == nil {
		return nil
	}
	if s.storageNodes == nil {
		s.storageNodes = trienode.NewMergedNodeSet()
	}
	return s.storageNodes.Merge(set)
}

// Commit folds every dirty account into the state trie and moves the root
// forward. With deleteEmptyObjects set, accounts left empty are removed from
// the trie per EIP-158. The trie nodes stay in memory until CommitTree.
func (s *StateDB) Commit(block uint64, deleteEmptyObjects bool) (common.Hash, error) {
	if s.dbErr != nil {
		return common.Hash{}, s.dbErr
	}
	tr, err := s.openTrie()
	if err != nil {
		return common.Hash{}, err
	}
	for addr, obj := range s.objects {
		if !obj.dirty {
			continue
		}
		if obj.dirtyCode && len(obj.code) > 0 {
			rawdb.WriteCode(s.codedb, common.BytesToHash(obj.account.CodeHash), obj.code)
			s.codeCache.Set(obj.account.CodeHash, obj.code)
		}
		if deleteEmptyObjects && obj.empty() {
			if err := tr.DeleteAccount(addr); err != nil {
				return common.Hash{}, err
			}
			continue
		}
		account := obj.account
		if err := tr.UpdateAccount(addr, &account); err != nil {
			return common.Hash{}, err
		}
	}
	root, set, err := tr.Commit(true)
	if err != nil {
		return common.Hash{}, err
	}
	if root != s.root || s.storageNodes != nil {
		merged := s.storageNodes
		if merged == nil {
			merged = trienode.NewMergedNodeSet()
		}
		if set != nil {
			if err := merged.Merge(set); err != nil {
				return common.Hash{}, err
			}
		}
		if err := s.triedb.Update(root, s.root, block, merged, nil); err != nil {
			return common.Hash{}, err
		}
	}
	s.root = root
	s.tr = nil
	s.objects = make(map[common.Address]*stateObject)
	s.storageNodes = nil

	return root, nil
}

// CommitTree pushes the trie nodes accumulated by Commit down into the
// backing store. Durable persistence is still the store's own commit.
func (s *StateDB) CommitTree(block uint64) error {
	return s.triedb.Commit(s.root, false)
}

// TrieDB exposes the underlying trie database to the storage provider.
func (s *StateDB) TrieDB() *triedb.Database {
	return s.triedb
}

func (s *StateDB) openTrie() (*trie.StateTrie, error) {
	if s.tr != nil {
		return s.tr, nil
	}
	root := s.root
	if root == (common.Hash{}) {
		root = types.EmptyRootHash
	}
	tr, err := trie.NewStateTrie(trie.StateTrieID(root), s.triedb)
	if err != nil {
		return nil, fmt.Errorf("failed to open state trie at %s: %w", root.Hex(), err)
	}
	s.tr = tr

	return tr, nil
}

func (s *StateDB) getObject(addr common.Address) *stateObject {
	if obj, ok := s.objects[addr]; ok {
		return obj
	}
	obj := &stateObject{account: *types.NewEmptyStateAccount()}
	tr, err := s.openTrie()
	if err != nil {
		s.setError(err)
	} else if account, err := tr.GetAccount(addr); err != nil {
		s.setError(err)
	} else if account != nil {
		obj.account = *account
		obj.exists = true
	}
	s.objects[addr] = obj

	return obj
}

func (s *StateDB) getOrNewObject(addr common.Address) *stateObject {
	obj := s.getObject(addr)
	if !obj.exists {
		obj.account = *types.NewEmptyStateAccount()
		obj.exists = true
	}
	return obj
}

func (s *StateDB) setError(err error) {
	if s.dbErr == nil {
		s.dbErr = err
	}
}
