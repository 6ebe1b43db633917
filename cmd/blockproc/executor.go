// Copyright 2025 The nethermind Authors
// This file is part of nethermind.
//
// nethermind is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// nethermind is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with nethermind. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/mstrong-tech/nethermind/core/state"
	"github.com/mstrong-tech/nethermind/core/tracing"
)

// transferExecutor executes plain value transfers: sender recovery, nonce and
// balance checks, value and fee movement. It is deliberately not an EVM —
// blocks carrying contract calls need a full executor attached instead.
type transferExecutor struct {
	config  *params.ChainConfig
	statedb *state.StateDB
	gasUsed uint64
}

func newTransferExecutor(config *params.ChainConfig, statedb *state.StateDB) *transferExecutor {
	return &transferExecutor{config: config, statedb: statedb}
}

func (e *transferExecutor) ExecuteTransaction(index int, tx *types.Transaction, header *types.Header, trace bool) (*types.Receipt, *tracing.TransactionTrace, error) {
	if index == 0 {
		e.gasUsed = 0
	}
	if tx.To() == nil || len(tx.Data()) > 0 {
		return nil, nil, fmt.Errorf("only plain value transfers are supported without an attached EVM")
	}
	if tx.Gas() < params.TxGas {
		return nil, nil, fmt.Errorf("intrinsic gas too low: have %d, want %d", tx.Gas(), params.TxGas)
	}
	signer := types.MakeSigner(e.config, header.Number, header.Time)
	from, err := types.Sender(signer, tx)
	if err != nil {
		return nil, nil, err
	}
	if nonce := e.statedb.GetNonce(from); nonce != tx.Nonce() {
		return nil, nil, fmt.Errorf("nonce mismatch: have %d, want %d", tx.Nonce(), nonce)
	}
	gasPrice, _ := uint256.FromBig(tx.GasPrice())
	value, _ := uint256.FromBig(tx.Value())
	fee := new(uint256.Int).Mul(gasPrice, uint256.NewInt(params.TxGas))
	cost := new(uint256.Int).Add(fee, value)
	if e.statedb.GetBalance(from).Cmp(cost) < 0 {
		return nil, nil, fmt.Errorf("insufficient funds: have %s, want %s", e.statedb.GetBalance(from), cost)
	}
	e.statedb.SubBalance(from, cost)
	e.statedb.AddBalance(*tx.To(), value)
	e.statedb.AddBalance(header.Coinbase, fee)
	e.statedb.SetNonce(from, tx.Nonce()+1)

	e.gasUsed += params.TxGas
	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: e.gasUsed,
		GasUsed:           params.TxGas,
		TxHash:            tx.Hash(),
		BlockNumber:       header.Number,
		TransactionIndex:  uint(index),
	}
	if !e.config.IsByzantium(header.Number) {
		root, err := e.statedb.Commit(header.Number.Uint64(), e.config.IsEIP158(header.Number))
		if err != nil {
			return nil, nil, err
		}
		receipt.PostState = root.Bytes()
	}
	var result *tracing.TransactionTrace
	if trace {
		result = &tracing.TransactionTrace{TxHash: tx.Hash(), Gas: params.TxGas}
	}
	return receipt, result, nil
}
