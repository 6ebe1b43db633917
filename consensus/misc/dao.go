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

// Package misc holds the one-shot fork transitions applied outside normal
// transaction execution.
package misc

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// DAOState is the subset of state mutations the DAO transition needs.
type DAOState interface {
	Exist(addr common.Address) bool
	CreateAccount(addr common.Address, balance *uint256.Int)
	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int)
	SubBalance(addr common.Address, amount *uint256.Int)
}

// ApplyDAOHardFork modifies the state according to the DAO hard-fork rules,
// transferring all balances of a set of DAO accounts to a single refund
// contract. It runs once, at the configured transition block, before any of
// that block's transactions.
func ApplyDAOHardFork(statedb DAOState) {
	// Retrieve the contract to refund balances into
	if !statedb.Exist(params.DAORefundContract) {
		statedb.CreateAccount(params.DAORefundContract, new(uint256.Int))
	}
	// Move every DAO account and extra-balance account funds into the refund contract
	for _, addr := range params.DAODrainList() {
		balance := statedb.GetBalance(addr)
		statedb.AddBalance(params.DAORefundContract, balance)
		statedb.SubBalance(addr, balance)
	}
}
