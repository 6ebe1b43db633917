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

// Package tracing lets callers opt individual transactions of a batch into
// execution tracing. The listener decides per transaction hash, so non-traced
// paths pay no allocation cost.
package tracing

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
)

// TransactionTrace is the execution trace of a single transaction as reported
// by the executor.
type TransactionTrace struct {
	TxHash      common.Hash
	Gas         uint64
	Failed      bool
	ReturnValue []byte
}

// TraceListener is asked before each transaction whether it should be traced,
// and receives the resulting trace afterwards.
type TraceListener interface {
	ShouldTrace(txHash common.Hash) bool
	RecordTrace(txHash common.Hash, trace *TransactionTrace)
}

// NoopTracer traces nothing.
type NoopTracer struct{}

func (NoopTracer) ShouldTrace(common.Hash) bool               { return false }
func (NoopTracer) RecordTrace(common.Hash, *TransactionTrace) {}

// HashTracer traces a fixed set of transaction hashes and retains the
// recorded traces for retrieval.
type HashTracer struct {
	hashes mapset.Set[common.Hash]
	traces map[common.Hash]*TransactionTrace
}

// NewHashTracer creates a tracer for the given transaction hashes.
func NewHashTracer(hashes ...common.Hash) *HashTracer {
	return &HashTracer{
		hashes: mapset.NewThreadUnsafeSet(hashes...),
		traces: make(map[common.Hash]*TransactionTrace),
	}
}

// ShouldTrace reports whether the transaction was opted in.
func (t *HashTracer) ShouldTrace(txHash common.Hash) bool {
	return t.hashes.Contains(txHash)
}

// RecordTrace retains the trace of an opted-in transaction.
func (t *HashTracer) RecordTrace(txHash common.Hash, trace *TransactionTrace) {
	t.traces[txHash] = trace
}

// Trace returns the recorded trace of a transaction, or nil.
func (t *HashTracer) Trace(txHash common.Hash) *TransactionTrace {
	return t.traces[txHash]
}
