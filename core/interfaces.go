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

package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/mstrong-tech/nethermind/core/tracing"
)

// TransactionExecutor runs a single transaction against the processor's state
// and storage providers, mutating them in place. Execution is deterministic
// given identical providers and chain configuration. The trace flag requests
// an execution trace alongside the receipt.
type TransactionExecutor interface {
	ExecuteTransaction(index int, tx *types.Transaction, header *types.Header, trace bool) (*types.Receipt, *tracing.TransactionTrace, error)
}

// StateProvider is the account state the processor executes against: a
// write-buffered view over a committed root.
type StateProvider interface {
	Root() common.Hash
	SetRoot(root common.Hash)
	Reset()
	Commit(block uint64, deleteEmptyObjects bool) (common.Hash, error)
	CommitTree(block uint64) error
	Exist(addr common.Address) bool
	CreateAccount(addr common.Address, balance *uint256.Int)
	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int)
	SubBalance(addr common.Address, amount *uint256.Int)
}

// StorageProvider is the contract storage counterpart of StateProvider. Its
// folded trie nodes flush together with the state provider's CommitTree.
type StorageProvider interface {
	Reset()
	Commit() error
}

// VersionedStore is a key/value store whose mutations can be rewound to a
// version marker. Markers form a stack: reverting invalidates every marker
// taken after the target, committing invalidates all of them.
type VersionedStore interface {
	Snapshot() int
	RevertToSnapshot(id int) error
	Commit() error
}

// Validator checks a processed block against the suggested block it was
// derived from. Implementations are pure.
type Validator interface {
	ValidateProcessedBlock(processed *types.Block, suggested *types.Block) bool
}

// ReceiptStore persists processed transaction receipts, idempotently per
// transaction hash.
type ReceiptStore interface {
	StoreProcessedTransaction(txHash common.Hash, receipt *types.Receipt) error
}
