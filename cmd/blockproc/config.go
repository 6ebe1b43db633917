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
	"math/big"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/params"

	"github.com/mstrong-tech/nethermind/core"
)

// fileConfig is the TOML layout of a chain configuration file: fork
// activation blocks plus an optional genesis specification.
type fileConfig struct {
	ChainID        uint64
	Homestead      *uint64
	DAOFork        *uint64
	EIP150         *uint64
	EIP155         *uint64
	EIP158         *uint64
	Byzantium      *uint64
	Constantinople *uint64
	Petersburg     *uint64
	Istanbul       *uint64
	Berlin         *uint64
	London         *uint64

	Genesis *genesisConfig
}

type genesisConfig struct {
	Timestamp  uint64
	GasLimit   uint64
	Difficulty uint64
	ExtraData  string
	Coinbase   string
	Alloc      map[string]allocConfig
}

type allocConfig struct {
	Balance string
	Nonce   uint64
	Code    string
}

func loadConfigFile(path string) (*fileConfig, error) {
	var cfg fileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return &cfg, nil
}

// chainConfig resolves the chain configuration of an import run: the file's
// fork schedule if given, mainnet rules otherwise.
func chainConfig(path string) (*params.ChainConfig, error) {
	if path == "" {
		return params.MainnetChainConfig, nil
	}
	cfg, err := loadConfigFile(path)
	if err != nil {
		return nil, err
	}
	return cfg.chainConfig(), nil
}

func (cfg *fileConfig) chainConfig() *params.ChainConfig {
	config := &params.ChainConfig{
		ChainID:             new(big.Int).SetUint64(cfg.ChainID),
		HomesteadBlock:      toBlock(cfg.Homestead),
		DAOForkBlock:        toBlock(cfg.DAOFork),
		DAOForkSupport:      cfg.DAOFork != nil,
		EIP150Block:         toBlock(cfg.EIP150),
		EIP155Block:         toBlock(cfg.EIP155),
		EIP158Block:         toBlock(cfg.EIP158),
		ByzantiumBlock:      toBlock(cfg.Byzantium),
		ConstantinopleBlock: toBlock(cfg.Constantinople),
		PetersburgBlock:     toBlock(cfg.Petersburg),
		IstanbulBlock:       toBlock(cfg.Istanbul),
		BerlinBlock:         toBlock(cfg.Berlin),
		LondonBlock:         toBlock(cfg.London),
	}
	return config
}

func (cfg *fileConfig) genesis() (*core.Genesis, error) {
	if cfg.Genesis == nil {
		return nil, fmt.Errorf("config carries no [Genesis] section")
	}
	alloc := make(core.GenesisAlloc, len(cfg.Genesis.Alloc))
	for addr, account := range cfg.Genesis.Alloc {
		balance := new(big.Int)
		if account.Balance != "" {
			parsed, ok := math.ParseBig256(account.Balance)
			if !ok {
				return nil, fmt.Errorf("invalid balance %q for account %s", account.Balance, addr)
			}
			balance = parsed
		}
		var code []byte
		if account.Code != "" {
			decoded, err := hexutil.Decode(account.Code)
			if err != nil {
				return nil, fmt.Errorf("invalid code for account %s: %w", addr, err)
			}
			code = decoded
		}
		alloc[common.HexToAddress(addr)] = core.GenesisAccount{
			Balance: balance,
			Nonce:   account.Nonce,
			Code:    code,
		}
	}
	var extra []byte
	if cfg.Genesis.ExtraData != "" {
		decoded, err := hexutil.Decode(cfg.Genesis.ExtraData)
		if err != nil {
			return nil, fmt.Errorf("invalid genesis extra data: %w", err)
		}
		extra = decoded
	}
	return &core.Genesis{
		Config:     cfg.chainConfig(),
		Alloc:      alloc,
		Timestamp:  cfg.Genesis.Timestamp,
		GasLimit:   cfg.Genesis.GasLimit,
		Difficulty: new(big.Int).SetUint64(cfg.Genesis.Difficulty),
		Coinbase:   common.HexToAddress(cfg.Genesis.Coinbase),
		ExtraData:  extra,
	}, nil
}

func toBlock(number *uint64) *big.Int {
	if number == nil {
		return nil
	}
	return new(big.Int).SetUint64(*number)
}
