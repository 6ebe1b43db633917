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

package ethash

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	miner = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	ommer = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func makeBlock(number uint64, uncles []*types.Header) *types.Block {
	header := &types.Header{
		Number:     new(big.Int).SetUint64(number),
		Coinbase:   miner,
		Difficulty: big.NewInt(1),
	}
	return types.NewBlock(header, nil, uncles, nil, trie.NewStackTrie(nil))
}

func uncleAt(number uint64) *types.Header {
	return &types.Header{
		Number:     new(big.Int).SetUint64(number),
		Coinbase:   ommer,
		Difficulty: big.NewInt(1),
	}
}

func TestRewardSchedule(t *testing.T) {
	tests := []struct {
		name   string
		config *params.ChainConfig
		want   *uint256.Int
	}{
		{"frontier", &params.ChainConfig{ChainID: big.NewInt(1), HomesteadBlock: big.NewInt(0)}, uint256.NewInt(5e18)},
		{"byzantium", &params.ChainConfig{ChainID: big.NewInt(1), HomesteadBlock: big.NewInt(0), ByzantiumBlock: big.NewInt(0)}, uint256.NewInt(3e18)},
		{"constantinople", &params.ChainConfig{ChainID: big.NewInt(1), HomesteadBlock: big.NewInt(0), ByzantiumBlock: big.NewInt(0), ConstantinopleBlock: big.NewInt(0)}, uint256.NewInt(2e18)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rewards := NewRewardCalculator(tt.config).CalculateRewards(makeBlock(10, nil))
			require.Len(t, rewards, 1)
			assert.Equal(t, miner, rewards[0].Address)
			assert.Equal(t, tt.want, rewards[0].Value)
		})
	}
}

func TestOmmerRewards(t *testing.T) {
	config := &params.ChainConfig{ChainID: big.NewInt(1), HomesteadBlock: big.NewInt(0)}
	block := makeBlock(10, []*types.Header{uncleAt(9)})

	rewards := NewRewardCalculator(config).CalculateRewards(block)
	require.Len(t, rewards, 2)

	// Miner: 5 ether plus an inclusion bonus of 5/32 ether.
	assert.Equal(t, miner, rewards[0].Address)
	assert.Equal(t, uint256.NewInt(5156250000000000000), rewards[0].Value)

	// Ommer at depth one: 7/8 of the block reward.
	assert.Equal(t, ommer, rewards[1].Address)
	assert.Equal(t, uint256.NewInt(4375000000000000000), rewards[1].Value)
}

func TestDeepOmmerGetsNothing(t *testing.T) {
	config := &params.ChainConfig{ChainID: big.NewInt(1), HomesteadBlock: big.NewInt(0)}
	block := makeBlock(10, []*types.Header{uncleAt(1)})

	rewards := NewRewardCalculator(config).CalculateRewards(block)
	require.Len(t, rewards, 2)
	assert.True(t, rewards[1].Value.IsZero())
}
