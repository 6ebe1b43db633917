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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/mstrong-tech/nethermind/core/state"
)

// GenesisAccount is an account in the genesis allocation.
type GenesisAccount struct {
	Balance *big.Int
	Code    []byte
	Nonce   uint64
	Storage map[common.Hash]common.Hash
}

// GenesisAlloc is the initial account allocation of the chain.
type GenesisAlloc map[common.Address]GenesisAccount

// Genesis seeds the chain's initial state and produces its genesis block.
type Genesis struct {
	Config *params.ChainConfig
	Alloc  GenesisAlloc

	Timestamp  uint64
	ExtraData  []byte
	GasLimit   uint64
	Difficulty *big.Int
	Coinbase   common.Address
}

// Commit writes the genesis allocation through the given providers, persists
// the resulting tries durably in both stores and returns the genesis block
// whose header carries the computed state root.
func (g *Genesis) Commit(statedb *state.StateDB, storage *state.Storage, stateStore, codeStore VersionedStore) (*types.Block, error) {
	for addr, account := range g.Alloc {
		balance := new(uint256.Int)
		if account.Balance != nil {
			balance, _ = uint256.FromBig(account.Balance)
		}
		statedb.CreateAccount(addr, balance)
		if account.Nonce != 0 {
			statedb.SetNonce(addr, account.Nonce)
		}
		if len(account.Code) > 0 {
			statedb.SetCode(addr, account.Code)
		}
		for key, value := range account.Storage {
			storage.SetState(addr, key, value)
		}
	}
	if err := storage.Commit(); err != nil {
		return nil, err
	}
	root, err := statedb.Commit(0, g.Config.IsEIP158(common.Big0))
	if err != nil {
		return nil, err
	}
	if err := statedb.CommitTree(0); err != nil {
		return nil, err
	}
	if err := stateStore.Commit(); err != nil {
		return nil, err
	}
	if err := codeStore.Commit(); err != nil {
		return nil, err
	}
	head := &types.Header{
		ParentHash:  common.Hash{},
		UncleHash:   types.EmptyUncleHash,
		Coinbase:    g.Coinbase,
		Root:        root,
		TxHash:      types.EmptyTxsHash,
		ReceiptHash: types.EmptyReceiptsHash,
		Difficulty:  g.Difficulty,
		Number:      new(big.Int),
		GasLimit:    g.GasLimit,
		Time:        g.Timestamp,
		Extra:       g.ExtraData,
		Nonce:       types.EncodeNonce(0),
	}
	if head.GasLimit == 0 {
		head.GasLimit = params.GenesisGasLimit
	}
	if head.Difficulty == nil {
		head.Difficulty = params.GenesisDifficulty
	}
	return types.NewBlockWithHeader(head), nil
}
