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

// Package rawdb holds the low-level accessors for the data the processor
// persists beside the tries: processed transaction receipts and the head
// state root.
package rawdb

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// txReceiptPrefix + tx hash -> processed receipt
	txReceiptPrefix = []byte("proc-tx-receipt-")

	// headStateRootKey -> state root of the last committed batch
	headStateRootKey = []byte("head-state-root")
)

// receiptCacheSize is the entry count of the receipt lookup cache.
const receiptCacheSize = 2048

// receiptKey = txReceiptPrefix + tx hash
func receiptKey(txHash common.Hash) []byte {
	return append(txReceiptPrefix, txHash.Bytes()...)
}

// storedReceiptRLP is the storage encoding of a processed receipt. Unlike the
// consensus encoding it retains the containing block identity the processor
// stamps before persistence.
type storedReceiptRLP struct {
	Type              uint8
	PostState         []byte
	Status            uint64
	CumulativeGasUsed uint64
	GasUsed           uint64
	Bloom             types.Bloom
	Logs              []*types.Log
	TxHash            common.Hash
	ContractAddress   common.Address
	BlockHash         common.Hash
	BlockNumber       uint64
	TransactionIndex  uint64
}

// WriteProcessedReceipt stores a processed transaction receipt keyed by its
// transaction hash.
func WriteProcessedReceipt(db ethdb.KeyValueWriter, txHash common.Hash, receipt *types.Receipt) {
	stored := &storedReceiptRLP{
		Type:              receipt.Type,
		PostState:         receipt.PostState,
		Status:            receipt.Status,
		CumulativeGasUsed: receipt.CumulativeGasUsed,
		GasUsed:           receipt.GasUsed,
		Bloom:             receipt.Bloom,
		Logs:              receipt.Logs,
		TxHash:            receipt.TxHash,
		ContractAddress:   receipt.ContractAddress,
		BlockHash:         receipt.BlockHash,
		TransactionIndex:  uint64(receipt.TransactionIndex),
	}
	if receipt.BlockNumber != nil {
		stored.BlockNumber = receipt.BlockNumber.Uint64()
	}
	bytes, err := rlp.EncodeToBytes(stored)
	if err != nil {
		log.Crit("Failed to encode processed receipt", "err", err)
	}
	if err := db.Put(receiptKey(txHash), bytes); err != nil {
		log.Crit("Failed to store processed receipt", "err", err)
	}
}

// ReadProcessedReceipt retrieves the processed receipt of a transaction, or
// nil if none was persisted. The derived fields of the receipt's logs are not
// populated.
func ReadProcessedReceipt(db ethdb.KeyValueReader, txHash common.Hash) *types.Receipt {
	data, _ := db.Get(receiptKey(txHash))
	if len(data) == 0 {
		return nil
	}
	var stored storedReceiptRLP
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		log.Error("Invalid processed receipt RLP", "txHash", txHash, "err", err)
		return nil
	}
	return &types.Receipt{
		Type:              stored.Type,
		PostState:         stored.PostState,
		Status:            stored.Status,
		CumulativeGasUsed: stored.CumulativeGasUsed,
		GasUsed:           stored.GasUsed,
		Bloom:             stored.Bloom,
		Logs:              stored.Logs,
		TxHash:            stored.TxHash,
		ContractAddress:   stored.ContractAddress,
		BlockHash:         stored.BlockHash,
		BlockNumber:       new(big.Int).SetUint64(stored.BlockNumber),
		TransactionIndex:  uint(stored.TransactionIndex),
	}
}

// DeleteProcessedReceipt removes the persisted receipt of a transaction.
func DeleteProcessedReceipt(db ethdb.KeyValueWriter, txHash common.Hash) {
	if err := db.Delete(receiptKey(txHash)); err != nil {
		log.Crit("Failed to delete processed receipt", "err", err)
	}
}

// WriteHeadStateRoot stores the state root of the last committed batch.
func WriteHeadStateRoot(db ethdb.KeyValueWriter, root common.Hash) {
	if err := db.Put(headStateRootKey, root.Bytes()); err != nil {
		log.Crit("Failed to store head state root", "err", err)
	}
}

// ReadHeadStateRoot retrieves the state root of the last committed batch.
func ReadHeadStateRoot(db ethdb.KeyValueReader) common.Hash {
	data, _ := db.Get(headStateRootKey)
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

// ReceiptStore persists processed receipts into a key/value store behind an
// LRU lookup cache. Writes are idempotent per transaction hash.
type ReceiptStore struct {
	db    ethdb.KeyValueStore
	cache *lru.Cache[common.Hash, *types.Receipt]
}

// NewReceiptStore creates a receipt store over the given key/value store.
func NewReceiptStore(db ethdb.KeyValueStore) *ReceiptStore {
	cache, _ := lru.New[common.Hash, *types.Receipt](receiptCacheSize)
	return &ReceiptStore{db: db, cache: cache}
}

// StoreProcessedTransaction persists the receipt of a processed transaction.
// The cache is only populated on reads: a write may still be rolled back with
// its batch, and a cached entry would outlive the rollback.
func (s *ReceiptStore) StoreProcessedTransaction(txHash common.Hash, receipt *types.Receipt) error {
	WriteProcessedReceipt(s.db, txHash, receipt)
	return nil
}

// GetReceipt returns the persisted receipt of a transaction, or nil.
func (s *ReceiptStore) GetReceipt(txHash common.Hash) *types.Receipt {
	if receipt, ok := s.cache.Get(txHash); ok {
		return receipt
	}
	receipt := ReadProcessedReceipt(s.db, txHash)
	if receipt != nil {
		s.cache.Add(txHash, receipt)
	}
	return receipt
}
