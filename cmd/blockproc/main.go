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

// blockproc is a command line utility around the block processing core: it
// initializes a chain database from a genesis specification and imports
// RLP-encoded block files through the processor.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/mstrong-tech/nethermind/consensus/ethash"
	"github.com/mstrong-tech/nethermind/core"
	"github.com/mstrong-tech/nethermind/core/rawdb"
	"github.com/mstrong-tech/nethermind/core/state"
	"github.com/mstrong-tech/nethermind/ethdb"
)

var (
	datadirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the state and code databases (in-memory if empty)",
	}
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML chain configuration file",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	readOnlyFlag = &cli.BoolFlag{
		Name:  "read-only",
		Usage: "Process the blocks but roll every change back afterwards",
	}
	noValidationFlag = &cli.BoolFlag{
		Name:  "no-validation",
		Usage: "Skip post-execution validation of the processed blocks",
	}
	storeReceiptsFlag = &cli.BoolFlag{
		Name:  "store-receipts",
		Usage: "Persist the receipt of every processed transaction",
	}
	branchRootFlag = &cli.StringFlag{
		Name:  "branch-root",
		Usage: "State root to process the blocks from instead of the current head",
	}
)

func main() {
	app := &cli.App{
		Name:  "blockproc",
		Usage: "block processing core utility",
		Flags: []cli.Flag{verbosityFlag},
		Before: func(ctx *cli.Context) error {
			usecolor := isatty.IsTerminal(os.Stderr.Fd())
			handler := log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)), usecolor)
			log.SetDefault(log.NewLogger(handler))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Initialize the chain database from a genesis specification",
				ArgsUsage: "<genesis.toml>",
				Flags:     []cli.Flag{datadirFlag},
				Action:    initGenesis,
			},
			{
				Name:      "import",
				Usage:     "Import an RLP-encoded block file through the processor",
				ArgsUsage: "<blocks.rlp>",
				Flags: []cli.Flag{
					datadirFlag, configFlag, readOnlyFlag,
					noValidationFlag, storeReceiptsFlag, branchRootFlag,
				},
				Action: importBlocks,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// chainEnv bundles the stores and providers a command operates on.
type chainEnv struct {
	stateStore *ethdb.SnapshotStore
	codeStore  *ethdb.SnapshotStore
	statedb    *state.StateDB
	storage    *state.Storage
}

func openChain(datadir string) (*chainEnv, error) {
	var (
		stateStore *ethdb.SnapshotStore
		codeStore  *ethdb.SnapshotStore
		err        error
	)
	if datadir == "" {
		stateStore = ethdb.NewMemorySnapshotStore()
		codeStore = ethdb.NewMemorySnapshotStore()
	} else {
		stateStore, err = ethdb.NewLevelDBSnapshotStore(filepath.Join(datadir, "state"), 128, 128, "db/state/")
		if err != nil {
			return nil, err
		}
		codeStore, err = ethdb.NewLevelDBSnapshotStore(filepath.Join(datadir, "code"), 16, 16, "db/code/")
		if err != nil {
			stateStore.Close()
			return nil, err
		}
	}
	statedb := state.New(rawdb.ReadHeadStateRoot(stateStore), stateStore, codeStore)
	return &chainEnv{
		stateStore: stateStore,
		codeStore:  codeStore,
		statedb:    statedb,
		storage:    state.NewStorage(statedb),
	}, nil
}

func (env *chainEnv) close() {
	env.stateStore.Close()
	env.codeStore.Close()
}

func initGenesis(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("init needs exactly one genesis file argument")
	}
	cfg, err := loadConfigFile(ctx.Args().First())
	if err != nil {
		return err
	}
	genesis, err := cfg.genesis()
	if err != nil {
		return err
	}
	env, err := openChain(ctx.String(datadirFlag.Name))
	if err != nil {
		return err
	}
	defer env.close()

	block, err := genesis.Commit(env.statedb, env.storage, env.stateStore, env.codeStore)
	if err != nil {
		return fmt.Errorf("failed to commit genesis state: %w", err)
	}
	rawdb.WriteHeadStateRoot(env.stateStore, block.Root())
	if err := env.stateStore.Commit(); err != nil {
		return err
	}
	log.Info("Initialized chain database", "hash", block.Hash(), "root", block.Root())

	return nil
}

func importBlocks(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("import needs exactly one block file argument")
	}
	config, err := chainConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}
	blocks, err := readBlocks(ctx.Args().First())
	if err != nil {
		return err
	}
	env, err := openChain(ctx.String(datadirFlag.Name))
	if err != nil {
		return err
	}
	defer env.close()

	var options core.ProcessingOptions
	if ctx.Bool(readOnlyFlag.Name) {
		options |= core.ReadOnlyChain
	}
	if ctx.Bool(noValidationFlag.Name) {
		options |= core.NoValidation
	}
	if ctx.Bool(storeReceiptsFlag.Name) {
		options |= core.StoreReceipts
	}
	var branchRoot *common.Hash
	if v := ctx.String(branchRootFlag.Name); v != "" {
		root := common.HexToHash(v)
		branchRoot = &root
	}
	processor := core.NewBlockProcessor(
		config,
		env.stateStore, env.codeStore,
		env.statedb, env.storage,
		newTransferExecutor(config, env.statedb),
		core.NewBlockValidator(),
		ethash.NewRewardCalculator(config),
		rawdb.NewReceiptStore(env.stateStore),
	)
	processed, err := processor.Process(branchRoot, blocks, options, nil)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	if len(processed) == 0 {
		log.Info("No blocks to import")
		return nil
	}
	head := processed[len(processed)-1]
	if !options.Has(core.ReadOnlyChain) {
		rawdb.WriteHeadStateRoot(env.stateStore, head.Root())
		if err := env.stateStore.Commit(); err != nil {
			return err
		}
	}
	log.Info("Imported blocks", "count", len(processed), "head", head.Hash(), "root", head.Root())

	return nil
}

// readBlocks decodes a stream of RLP-encoded blocks from a file.
func readBlocks(path string) ([]*types.Block, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var (
		blocks []*types.Block
		stream = rlp.NewStream(fh, 0)
	)
	for {
		block := new(types.Block)
		if err := stream.Decode(block); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("block %d decode failed: %w", len(blocks), err)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}
