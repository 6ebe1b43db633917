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
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/trie"
)

// BlockValidator implements the post-execution Validator contract by
// comparing the recomputed header fields of a processed block against the
// values the suggested block promised.
type BlockValidator struct{}

// NewBlockValidator creates the default post-execution validator.
func NewBlockValidator() *BlockValidator {
	return &BlockValidator{}
}

// ValidateProcessedBlock checks the derived roots, bloom, gas usage and the
// final block hash of a processed block against the suggested block.
func (v *BlockValidator) ValidateProcessedBlock(processed *types.Block, suggested *types.Block) bool {
	if processed.Root() != suggested.Root() {
		log.Warn("Processed block state root mismatch", "number", suggested.NumberU64(), "have", processed.Root(), "want", suggested.Root())
		return false
	}
	if processed.ReceiptHash() != suggested.ReceiptHash() {
		log.Warn("Processed block receipts root mismatch", "number", suggested.NumberU64(), "have", processed.ReceiptHash(), "want", suggested.ReceiptHash())
		return false
	}
	if processed.Bloom() != suggested.Bloom() {
		log.Warn("Processed block bloom mismatch", "number", suggested.NumberU64())
		return false
	}
	if processed.GasUsed() != suggested.GasUsed() {
		log.Warn("Processed block gas usage mismatch", "number", suggested.NumberU64(), "have", processed.GasUsed(), "want", suggested.GasUsed())
		return false
	}
	// The processor takes the transactions root over from the suggested
	// block, so recompute it from the body instead of comparing the copies.
	if txHash := types.DeriveSha(processed.Transactions(), trie.NewStackTrie(nil)); txHash != suggested.TxHash() {
		log.Warn("Processed block transactions root mismatch", "number", suggested.NumberU64(), "have", suggested.TxHash(), "want", txHash)
		return false
	}
	if processed.Hash() != suggested.Hash() {
		log.Warn("Processed block hash mismatch", "number", suggested.NumberU64(), "have", processed.Hash(), "want", suggested.Hash())
		return false
	}
	return true
}
