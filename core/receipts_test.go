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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/stretchr/testify/assert"
)

// trieReceipts builds a receipt list carrying both a post-state root and a
// status, so either encoding mode has its input available.
func trieReceipts() types.Receipts {
	first := &types.Receipt{
		Type:              types.LegacyTxType,
		PostState:         crypto.Keccak256(nil),
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 21000,
		Logs: []*types.Log{{
			Address: common.HexToAddress("0x11"),
			Topics:  []common.Hash{common.HexToHash("0x22")},
			Data:    []byte("first"),
		}},
	}
	first.Bloom = types.CreateBloom(types.Receipts{first})

	second := &types.Receipt{
		Type:              types.LegacyTxType,
		PostState:         crypto.Keccak256([]byte("second")),
		Status:            types.ReceiptStatusFailed,
		CumulativeGasUsed: 63000,
	}
	second.Bloom = types.CreateBloom(types.Receipts{second})

	return types.Receipts{first, second}
}

func TestReceiptsRootEncodingFlip(t *testing.T) {
	receipts := trieReceipts()

	legacy := deriveReceiptsRoot(receipts, false)
	byzantium := deriveReceiptsRoot(receipts, true)

	assert.NotEqual(t, legacy, byzantium)

	// The root is a pure function of (receipts, mode).
	assert.Equal(t, legacy, deriveReceiptsRoot(trieReceipts(), false))
	assert.Equal(t, byzantium, deriveReceiptsRoot(trieReceipts(), true))
}

func TestEmptyReceiptsRoot(t *testing.T) {
	assert.Equal(t, types.EmptyRootHash, deriveReceiptsRoot(nil, false))
	assert.Equal(t, types.EmptyRootHash, deriveReceiptsRoot(types.Receipts{}, true))
}

// The fork-gated encoder must agree with the canonical receipt encoding when
// the receipt data already matches the mode: post-Byzantium receipts carry no
// post-state, pre-Byzantium receipts carry one.
func TestReceiptsRootMatchesConsensusEncoding(t *testing.T) {
	legacyStyle := trieReceipts()
	assert.Equal(t,
		types.DeriveSha(legacyStyle, trie.NewStackTrie(nil)),
		deriveReceiptsRoot(legacyStyle, false),
	)

	byzantiumStyle := trieReceipts()
	for _, receipt := range byzantiumStyle {
		receipt.PostState = nil
	}
	assert.Equal(t,
		types.DeriveSha(byzantiumStyle, trie.NewStackTrie(nil)),
		deriveReceiptsRoot(byzantiumStyle, true),
	)
}

func TestMergeBlooms(t *testing.T) {
	receipts := trieReceipts()

	merged := mergeBlooms(receipts)
	assert.Equal(t, types.CreateBloom(receipts), merged)

	var manual types.Bloom
	for _, receipt := range receipts {
		for i, b := range receipt.Bloom {
			manual[i] |= b
		}
	}
	assert.Equal(t, manual, merged)

	assert.Equal(t, types.Bloom{}, mergeBlooms(nil))
}
