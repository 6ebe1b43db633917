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

// Package core implements the block processing pipeline: executing every
// transaction of a batch of suggested blocks, applying consensus rewards,
// deriving the receipt and state roots, and committing the result to the
// backing stores — or rolling the whole batch back atomically.
package core

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/params"

	"github.com/mstrong-tech/nethermind/consensus"
	"github.com/mstrong-tech/nethermind/consensus/misc"
	"github.com/mstrong-tech/nethermind/core/tracing"
)

var (
	blockExecutionTimer  = metrics.NewRegisteredTimer("chain/execution", nil)
	blockValidationTimer = metrics.NewRegisteredTimer("chain/validation", nil)
	storeCommitTimer     = metrics.NewRegisteredTimer("chain/commit", nil)
)

// BlockProcessor drives batches of suggested blocks through transaction
// execution, reward application and validation, advancing the state and code
// stores under all-or-nothing semantics.
//
// The processor is the sole writer of its providers and stores for the
// duration of a Process call; none of them are assumed to be thread-safe.
type BlockProcessor struct {
	config *params.ChainConfig

	stateDb VersionedStore
	codeDb  VersionedStore

	state   StateProvider
	storage StorageProvider

	executor  TransactionExecutor
	validator Validator
	rewards   consensus.RewardCalculator
	receipts  ReceiptStore
}

// NewBlockProcessor wires a block processor from its collaborators.
func NewBlockProcessor(config *params.ChainConfig, stateDb, codeDb VersionedStore, state StateProvider, storage StorageProvider, executor TransactionExecutor, validator Validator, rewards consensus.RewardCalculator, receipts ReceiptStore) *BlockProcessor {
	return &BlockProcessor{
		config:    config,
		stateDb:   stateDb,
		codeDb:    codeDb,
		state:     state,
		storage:   storage,
		executor:  executor,
		validator: validator,
		rewards:   rewards,
		receipts:  receipts,
	}
}

// chainSnapshot pins the two backing store versions and the state root at
// batch start. It is held exclusively by Process and dies with the call.
type chainSnapshot struct {
	stateVersion int
	codeVersion  int
	root         common.Hash
}

// Process executes the suggested blocks in order against the state reachable
// from branchRoot (or the current root if nil) and returns the processed
// blocks in one-to-one positional correspondence.
//
// On success the stores are committed durably, unless ReadOnlyChain is set,
// in which case the batch is rolled back and the returned blocks are the only
// output. Any failure while processing a block unwinds the whole batch to its
// pre-Process state before the error is resurfaced; a failing durable store
// commit is returned as is, without a rollback.
func (p *BlockProcessor) Process(branchRoot *common.Hash, blocks []*types.Block, options ProcessingOptions, tracer tracing.TraceListener) ([]*types.Block, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	if tracer == nil {
		tracer = tracing.NoopTracer{}
	}
	snap := p.snapshot()
	p.realignBranch(branchRoot)

	processed := make([]*types.Block, 0, len(blocks))
	for _, block := range blocks {
		result, err := p.processBlock(block, options, tracer)
		if err != nil {
			p.restore(snap)
			return nil, err
		}
		processed = append(processed, result)
	}
	if options.Has(ReadOnlyChain) {
		p.restore(snap)
		return processed, nil
	}
	start := time.Now()
	if err := p.stateDb.Commit(); err != nil {
		return nil, fmt.Errorf("state store commit: %w", err)
	}
	// TODO: fold both stores into a single write batch so a crash between the
	// two commits cannot leave them inconsistent.
	if err := p.codeDb.Commit(); err != nil {
		return nil, fmt.Errorf("code store commit: %w", err)
	}
	storeCommitTimer.UpdateSince(start)

	return processed, nil
}

// snapshot captures the version markers of both backing stores together with
// the current state root.
func (p *BlockProcessor) snapshot() chainSnapshot {
	return chainSnapshot{
		stateVersion: p.stateDb.Snapshot(),
		codeVersion:  p.codeDb.Snapshot(),
		root:         p.state.Root(),
	}
}

// restore rewinds both backing stores, discards the providers' in-memory
// state and repoints the state root at the captured one.
func (p *BlockProcessor) restore(snap chainSnapshot) {
	log.Debug("Reverting processed blocks", "root", snap.root)
	if err := p.stateDb.RevertToSnapshot(snap.stateVersion); err != nil {
		log.Crit("Failed to revert state store", "version", snap.stateVersion, "err", err)
	}
	if err := p.codeDb.RevertToSnapshot(snap.codeVersion); err != nil {
		log.Crit("Failed to revert code store", "version", snap.codeVersion, "err", err)
	}
	p.storage.Reset()
	p.state.Reset()
	p.state.SetRoot(snap.root)
}

// realignBranch repoints the providers at the caller's branch parent when it
// differs from the current root, discarding any uncommitted writes.
func (p *BlockProcessor) realignBranch(branchRoot *common.Hash) {
	if branchRoot == nil || *branchRoot == p.state.Root() {
		return
	}
	log.Debug("Branch state root differs from current", "current", p.state.Root(), "branch", *branchRoot)
	p.storage.Reset()
	p.state.Reset()
	p.state.SetRoot(*branchRoot)
}

// processBlock runs a single suggested block through the pipeline and returns
// the processed block with its recomputed header.
func (p *BlockProcessor) processBlock(suggested *types.Block, options ProcessingOptions, tracer tracing.TraceListener) (*types.Block, error) {
	if suggested.NumberU64() == 0 {
		// Genesis carries its own pre-seeded state.
		if err := p.state.CommitTree(0); err != nil {
			return nil, err
		}
		return suggested, nil
	}
	start := time.Now()
	p.applyHardForks(suggested.Number())

	header := workingHeader(suggested.Header())
	receipts, err := p.runTransactions(suggested, header, tracer)
	if err != nil {
		return nil, err
	}
	header.ReceiptHash = deriveReceiptsRoot(receipts, p.config.IsByzantium(header.Number))
	header.Bloom = mergeBlooms(receipts)
	if n := len(receipts); n > 0 {
		header.GasUsed = receipts[n-1].CumulativeGasUsed
	}
	p.applyRewards(suggested)

	if err := p.storage.Commit(); err != nil {
		return nil, err
	}
	root, err := p.state.Commit(header.Number.Uint64(), p.config.IsEIP158(header.Number))
	if err != nil {
		return nil, err
	}
	header.Root = root
	// The transactions root is taken over from the suggested block; unless
	// validation is skipped, the validator recomputes it from the body.
	header.TxHash = suggested.TxHash()

	processed := types.NewBlockWithHeader(header).WithBody(suggested.Transactions(), suggested.Uncles())
	blockExecutionTimer.UpdateSince(start)

	if !options.Has(ReadOnlyChain) && !options.Has(NoValidation) {
		vstart := time.Now()
		if !p.validator.ValidateProcessedBlock(processed, suggested) {
			return nil, &InvalidBlockError{Number: suggested.NumberU64(), Hash: suggested.Hash()}
		}
		blockValidationTimer.UpdateSince(vstart)
	}
	if options.Has(StoreReceipts) {
		hash := processed.Hash()
		for _, receipt := range receipts {
			receipt.BlockHash = hash
			if err := p.receipts.StoreProcessedTransaction(receipt.TxHash, receipt); err != nil {
				return nil, err
			}
		}
	}
	if err := p.state.CommitTree(header.Number.Uint64()); err != nil {
		return nil, err
	}
	return processed, nil
}

// applyHardForks mutates the state according to any one-shot hard-fork specs
// scheduled at the given block number.
func (p *BlockProcessor) applyHardForks(number *big.Int) {
	if p.config.DAOForkSupport && p.config.DAOForkBlock != nil && p.config.DAOForkBlock.Cmp(number) == 0 {
		misc.ApplyDAOHardFork(p.state)
	}
}

// runTransactions executes the block's transactions in order, collecting
// their receipts and forwarding requested traces to the listener.
func (p *BlockProcessor) runTransactions(block *types.Block, header *types.Header, tracer tracing.TraceListener) (types.Receipts, error) {
	receipts := make(types.Receipts, 0, len(block.Transactions()))
	for i, tx := range block.Transactions() {
		if tx == nil {
			return nil, fmt.Errorf("%w: nil transaction at index %d in block %d", ErrInvalidTransaction, i, block.NumberU64())
		}
		shouldTrace := tracer.ShouldTrace(tx.Hash())
		receipt, trace, err := p.executor.ExecuteTransaction(i, tx, header, shouldTrace)
		if err != nil {
			return nil, fmt.Errorf("could not apply tx %d [%v]: %w", i, tx.Hash().Hex(), err)
		}
		if shouldTrace && trace != nil {
			tracer.RecordTrace(tx.Hash(), trace)
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}

// applyRewards credits the consensus rewards of the block, creating
// beneficiary accounts as needed.
func (p *BlockProcessor) applyRewards(block *types.Block) {
	for _, reward := range p.rewards.CalculateRewards(block) {
		if !p.state.Exist(reward.Address) {
			p.state.CreateAccount(reward.Address, reward.Value)
		} else {
			p.state.AddBalance(reward.Address, reward.Value)
		}
	}
}

// workingHeader clones the suggested header, dropping the fields the
// processor recomputes: state root, receipts root, bloom and gas used. The
// transactions root is filled back in after execution.
func workingHeader(suggested *types.Header) *types.Header {
	header := types.CopyHeader(suggested)
	header.Root = common.Hash{}
	header.TxHash = common.Hash{}
	header.ReceiptHash = common.Hash{}
	header.Bloom = types.Bloom{}
	header.GasUsed = 0
	return header
}
