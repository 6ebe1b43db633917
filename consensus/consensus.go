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

// Package consensus defines the contracts between the block processor and the
// consensus engine implementations.
package consensus

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Reward is a single consensus balance credit: the beneficiary address and
// the amount in wei.
type Reward struct {
	Address common.Address
	Value   *uint256.Int
}

// RewardCalculator derives the consensus reward set for a block: the miner
// reward plus one entry per ommer author. Implementations are pure; the order
// of the returned slice is the order of application.
type RewardCalculator interface {
	CalculateRewards(block *types.Block) []Reward
}
