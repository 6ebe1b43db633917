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

// Package ethash implements the proof-of-work reward schedule.
package ethash

import (
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/mstrong-tech/nethermind/consensus"
)

// Block rewards in wei for successfully mining a block at the various forks.
var (
	FrontierBlockReward       = uint256.NewInt(5e18)
	ByzantiumBlockReward      = uint256.NewInt(3e18)
	ConstantinopleBlockReward = uint256.NewInt(2e18)
)

var (
	u8  = uint256.NewInt(8)
	u32 = uint256.NewInt(32)
)

// RewardCalculator computes the proof-of-work rewards of a block: the static
// miner reward, an inclusion bonus per ommer, and the ommer awards scaled by
// their distance from the including block.
type RewardCalculator struct {
	config *params.ChainConfig
}

// NewRewardCalculator creates a reward calculator for the given chain
// configuration.
func NewRewardCalculator(config *params.ChainConfig) *RewardCalculator {
	return &RewardCalculator{config: config}
}

// CalculateRewards returns the reward set of the block, miner first, ommers
// in their in-block order.
func (c *RewardCalculator) CalculateRewards(block *types.Block) []consensus.Reward {
	blockReward := FrontierBlockReward
	if c.config.IsByzantium(block.Number()) {
		blockReward = ByzantiumBlockReward
	}
	if c.config.IsConstantinople(block.Number()) {
		blockReward = ConstantinopleBlockReward
	}
	uncles := block.Uncles()
	rewards := make([]consensus.Reward, 0, len(uncles)+1)

	minerReward := new(uint256.Int).Set(blockReward)
	inclusion := new(uint256.Int).Div(blockReward, u32)
	for range uncles {
		minerReward.Add(minerReward, inclusion)
	}
	rewards = append(rewards, consensus.Reward{Address: block.Coinbase(), Value: minerReward})

	for _, uncle := range uncles {
		depth := block.NumberU64() - uncle.Number.Uint64()
		value := new(uint256.Int)
		if depth < 8 {
			value.Mul(blockReward, uint256.NewInt(8-depth))
			value.Div(value, u8)
		}
		rewards = append(rewards, consensus.Reward{Address: uncle.Coinbase, Value: value})
	}
	return rewards
}
