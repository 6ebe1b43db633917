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
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

var (
	receiptStatusSuccessfulRLP = []byte{0x01}
	receiptStatusFailedRLP     = []byte{}
)

// receiptRLP is the consensus encoding of a receipt inside the receipt trie.
type receiptRLP struct {
	PostStateOrStatus []byte
	CumulativeGasUsed uint64
	Bloom             types.Bloom
	Logs              []*types.Log
}

// receiptsForTrie adapts a receipt list to types.DerivableList, applying the
// fork-gated EIP-658 rule: before Byzantium a receipt serializes its
// post-state root, from Byzantium on a status byte. The trie key of receipt i
// is the RLP encoding of i, supplied by DeriveSha.
type receiptsForTrie struct {
	receipts types.Receipts
	eip658   bool
}

func (r receiptsForTrie) Len() int {
	return len(r.receipts)
}

func (r receiptsForTrie) EncodeIndex(i int, w *bytes.Buffer) {
	receipt := r.receipts[i]
	data := &receiptRLP{r.postStateOrStatus(receipt), receipt.CumulativeGasUsed, receipt.Bloom, receipt.Logs}
	if receipt.Type != types.LegacyTxType {
		w.WriteByte(receipt.Type)
	}
	// rlp encoding into a buffer cannot fail
	rlp.Encode(w, data)
}

func (r receiptsForTrie) postStateOrStatus(receipt *types.Receipt) []byte {
	if !r.eip658 {
		return receipt.PostState
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receiptStatusFailedRLP
	}
	return receiptStatusSuccessfulRLP
}

// deriveReceiptsRoot computes the root of the index-keyed receipt trie. An
// empty receipt list yields the empty trie hash.
func deriveReceiptsRoot(receipts types.Receipts, eip658 bool) common.Hash {
	if len(receipts) == 0 {
		return types.EmptyRootHash
	}
	return types.DeriveSha(receiptsForTrie{receipts: receipts, eip658: eip658}, trie.NewStackTrie(nil))
}

// mergeBlooms ORs together the bloom filters of every receipt.
func mergeBlooms(receipts types.Receipts) types.Bloom {
	var bloom types.Bloom
	for _, receipt := range receipts {
		for i, b := range receipt.Bloom {
			bloom[i] |= b
		}
	}
	return bloom
}
