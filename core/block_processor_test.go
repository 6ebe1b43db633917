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
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstrong-tech/nethermind/consensus/ethash"
	"github.com/mstrong-tech/nethermind/core/rawdb"
	"github.com/mstrong-tech/nethermind/core/state"
	"github.com/mstrong-tech/nethermind/core/tracing"
	"github.com/mstrong-tech/nethermind/ethdb"
)

var (
	testCoinbase  = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testRecipient = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	// intermediateRoot is the post-state stamped on every scripted receipt,
	// standing in for a real intermediate state root.
	intermediateRoot = crypto.Keccak256([]byte("intermediate"))
)

func frontierConfig() *params.ChainConfig {
	return &params.ChainConfig{ChainID: big.NewInt(1), HomesteadBlock: big.NewInt(0)}
}

// txEffect scripts the state effect of a single test transaction.
type txEffect struct {
	credit map[common.Address]uint64
	slots  map[common.Address]map[common.Hash]common.Hash
	logs   []*types.Log
	gas    uint64
	failed bool
	err    error
}

// chainSpec is the shared recipe of a test chain: configuration, genesis
// allocation and scripted transaction effects. Every environment built from
// the same spec replays identically, so blocks generated in a scratch
// environment validate in a fresh one.
type chainSpec struct {
	config  *params.ChainConfig
	alloc   GenesisAlloc
	effects map[common.Hash]*txEffect
	nonce   uint64
}

func newChainSpec(config *params.ChainConfig) *chainSpec {
	return &chainSpec{
		config:  config,
		alloc:   GenesisAlloc{},
		effects: make(map[common.Hash]*txEffect),
	}
}

type testEnv struct {
	spec       *chainSpec
	stateStore *ethdb.SnapshotStore
	codeStore  *ethdb.SnapshotStore
	statedb    *state.StateDB
	storage    *state.Storage
	receipts   *rawdb.ReceiptStore
	processor  *BlockProcessor
	genesis    *types.Block
}

func (cs *chainSpec) newEnv(t *testing.T) *testEnv {
	t.Helper()
	stateStore := ethdb.NewMemorySnapshotStore()
	codeStore := ethdb.NewMemorySnapshotStore()
	statedb := state.New(common.Hash{}, stateStore, codeStore)
	storage := state.NewStorage(statedb)

	gspec := &Genesis{
		Config:     cs.config,
		Alloc:      cs.alloc,
		GasLimit:   10_000_000,
		Difficulty: big.NewInt(131072),
	}
	genesis, err := gspec.Commit(statedb, storage, stateStore, codeStore)
	require.NoError(t, err)

	receipts := rawdb.NewReceiptStore(stateStore)
	executor := &scriptedExecutor{spec: cs, statedb: statedb, storage: storage}
	processor := NewBlockProcessor(
		cs.config, stateStore, codeStore, statedb, storage,
		executor, NewBlockValidator(), ethash.NewRewardCalculator(cs.config), receipts,
	)
	return &testEnv{
		spec:       cs,
		stateStore: stateStore,
		codeStore:  codeStore,
		statedb:    statedb,
		storage:    storage,
		receipts:   receipts,
		processor:  processor,
		genesis:    genesis,
	}
}

// generate runs n drafted blocks through a scratch environment without
// validation and returns the processed blocks, which carry correct roots and
// serve as suggested blocks elsewhere.
func (cs *chainSpec) generate(t *testing.T, n int, gen func(i int, g *blockGen)) []*types.Block {
	t.Helper()
	scratch := cs.newEnv(t)

	parent := scratch.genesis
	blocks := make([]*types.Block, 0, n)
	for i := 0; i < n; i++ {
		g := &blockGen{spec: cs, parent: parent}
		if gen != nil {
			gen(i, g)
		}
		out, err := scratch.processor.Process(nil, []*types.Block{g.draft()}, NoValidation, nil)
		require.NoError(t, err)
		require.Len(t, out, 1)
		parent = out[0]
		blocks = append(blocks, parent)
	}
	return blocks
}

type blockGen struct {
	spec     *chainSpec
	parent   *types.Block
	coinbase common.Address
	txs      []*types.Transaction
	uncles   []*types.Header
}

func (g *blockGen) setCoinbase(addr common.Address) {
	g.coinbase = addr
}

// addTx drafts a transaction with a unique hash and registers its scripted
// effect.
func (g *blockGen) addTx(effect *txEffect) *types.Transaction {
	g.spec.nonce++
	tx := types.NewTransaction(g.spec.nonce, testRecipient, big.NewInt(0), params.TxGas, big.NewInt(1), nil)
	g.spec.effects[tx.Hash()] = effect
	g.txs = append(g.txs, tx)
	return tx
}

func (g *blockGen) draft() *types.Block {
	header := &types.Header{
		ParentHash: g.parent.Hash(),
		Coinbase:   g.coinbase,
		Difficulty: big.NewInt(131072),
		Number:     new(big.Int).Add(g.parent.Number(), common.Big1),
		GasLimit:   g.parent.GasLimit(),
		Time:       g.parent.Time() + 13,
	}
	return types.NewBlock(header, g.txs, g.uncles, nil, trie.NewStackTrie(nil))
}

// scriptedExecutor replays registered transaction effects against the
// providers, producing deterministic receipts.
type scriptedExecutor struct {
	spec       *chainSpec
	statedb    *state.StateDB
	storage    *state.Storage
	cumulative uint64
}

func (e *scriptedExecutor) ExecuteTransaction(index int, tx *types.Transaction, header *types.Header, trace bool) (*types.Receipt, *tracing.TransactionTrace, error) {
	if index == 0 {
		e.cumulative = 0
	}
	effect := e.spec.effects[tx.Hash()]
	if effect == nil {
		effect = &txEffect{}
	}
	if effect.err != nil {
		return nil, nil, effect.err
	}
	for addr, amount := range effect.credit {
		if !e.statedb.Exist(addr) {
			e.statedb.CreateAccount(addr, uint256.NewInt(amount))
		} else {
			e.statedb.AddBalance(addr, uint256.NewInt(amount))
		}
	}
	for addr, slots := range effect.slots {
		for key, value := range slots {
			e.storage.SetState(addr, key, value)
		}
	}
	gas := effect.gas
	if gas == 0 {
		gas = params.TxGas
	}
	e.cumulative += gas

	receipt := &types.Receipt{
		Type:              types.LegacyTxType,
		PostState:         intermediateRoot,
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: e.cumulative,
		GasUsed:           gas,
		TxHash:            tx.Hash(),
		Logs:              effect.logs,
		BlockNumber:       header.Number,
		TransactionIndex:  uint(index),
	}
	if effect.failed {
		receipt.Status = types.ReceiptStatusFailed
	}
	receipt.Bloom = types.CreateBloom(types.Receipts{receipt})

	var result *tracing.TransactionTrace
	if trace {
		result = &tracing.TransactionTrace{TxHash: tx.Hash(), Gas: gas, Failed: effect.failed}
	}
	return receipt, result, nil
}

// dumpStore materializes the full contents of a store for before/after
// comparisons.
func dumpStore(store *ethdb.SnapshotStore) map[string][]byte {
	dump := make(map[string][]byte)
	it := store.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		dump[string(it.Key())] = common.CopyBytes(it.Value())
	}
	return dump
}

func makeLog(addr common.Address, topic common.Hash) *types.Log {
	return &types.Log{Address: addr, Topics: []common.Hash{topic}, Data: []byte("payload")}
}

func TestEmptyBatchIsNoop(t *testing.T) {
	env := newChainSpec(frontierConfig()).newEnv(t)

	before := dumpStore(env.stateStore)
	root := env.statedb.Root()

	processed, err := env.processor.Process(nil, nil, StoreReceipts, nil)
	require.NoError(t, err)
	assert.Empty(t, processed)
	assert.Equal(t, root, env.statedb.Root())
	assert.Equal(t, before, dumpStore(env.stateStore))
}

func TestGenesisPassthrough(t *testing.T) {
	env := newChainSpec(frontierConfig()).newEnv(t)

	root := env.statedb.Root()
	processed, err := env.processor.Process(nil, []*types.Block{env.genesis}, StoreReceipts, nil)
	require.NoError(t, err)
	require.Len(t, processed, 1)

	assert.Equal(t, env.genesis.Hash(), processed[0].Hash())
	assert.Equal(t, root, env.statedb.Root())
}

func TestEmptyBlockAppliesReward(t *testing.T) {
	spec := newChainSpec(frontierConfig())
	blocks := spec.generate(t, 1, func(i int, g *blockGen) {
		g.setCoinbase(testCoinbase)
	})
	env := spec.newEnv(t)

	processed, err := env.processor.Process(nil, blocks, StoreReceipts, nil)
	require.NoError(t, err)
	require.Len(t, processed, 1)

	assert.Equal(t, types.EmptyRootHash, processed[0].ReceiptHash())
	assert.Equal(t, types.Bloom{}, processed[0].Bloom())
	assert.Equal(t, uint256.NewInt(5e18), env.statedb.GetBalance(testCoinbase))
	assert.Equal(t, processed[0].Root(), env.statedb.Root())
}

func TestTransactionsAndReceiptStamping(t *testing.T) {
	sender := common.HexToAddress("0x0dd0")
	spec := newChainSpec(frontierConfig())

	var txs []*types.Transaction
	blocks := spec.generate(t, 1, func(i int, g *blockGen) {
		g.setCoinbase(testCoinbase)
		txs = append(txs, g.addTx(&txEffect{
			credit: map[common.Address]uint64{sender: 1000},
			logs:   []*types.Log{makeLog(sender, common.HexToHash("0x01"))},
		}))
		txs = append(txs, g.addTx(&txEffect{
			credit: map[common.Address]uint64{sender: 500},
			logs:   []*types.Log{makeLog(sender, common.HexToHash("0x02"))},
		}))
	})
	env := spec.newEnv(t)

	processed, err := env.processor.Process(nil, blocks, StoreReceipts, nil)
	require.NoError(t, err)
	require.Len(t, processed, 1)

	assert.Equal(t, uint256.NewInt(1500), env.statedb.GetBalance(sender))
	assert.Equal(t, 2*params.TxGas, processed[0].GasUsed())
	assert.NotEqual(t, types.EmptyRootHash, processed[0].ReceiptHash())
	assert.NotEqual(t, types.Bloom{}, processed[0].Bloom())

	for _, tx := range txs {
		receipt := env.receipts.GetReceipt(tx.Hash())
		require.NotNil(t, receipt, "receipt of %s not persisted", tx.Hash())
		assert.Equal(t, processed[0].Hash(), receipt.BlockHash)
	}
}

func TestBloomIsReceiptBloomUnion(t *testing.T) {
	spec := newChainSpec(frontierConfig())
	blocks := spec.generate(t, 1, func(i int, g *blockGen) {
		g.addTx(&txEffect{logs: []*types.Log{makeLog(common.HexToAddress("0x01"), common.HexToHash("0xa1"))}})
		g.addTx(&txEffect{logs: []*types.Log{makeLog(common.HexToAddress("0x02"), common.HexToHash("0xa2"))}})
	})
	env := spec.newEnv(t)

	processed, err := env.processor.Process(nil, blocks, 0, nil)
	require.NoError(t, err)

	var want types.Bloom
	for _, l := range []*types.Log{
		makeLog(common.HexToAddress("0x01"), common.HexToHash("0xa1")),
		makeLog(common.HexToAddress("0x02"), common.HexToHash("0xa2")),
	} {
		receipt := &types.Receipt{Logs: []*types.Log{l}}
		bloom := types.CreateBloom(types.Receipts{receipt})
		for i, b := range bloom {
			want[i] |= b
		}
	}
	assert.Equal(t, want, processed[0].Bloom())
}

func TestReadOnlyChain(t *testing.T) {
	spec := newChainSpec(frontierConfig())
	var tx *types.Transaction
	blocks := spec.generate(t, 2, func(i int, g *blockGen) {
		g.setCoinbase(testCoinbase)
		if i == 0 {
			tx = g.addTx(&txEffect{credit: map[common.Address]uint64{testRecipient: 42}})
		}
	})

	committed := spec.newEnv(t)
	wantBlocks, err := committed.processor.Process(nil, blocks, 0, nil)
	require.NoError(t, err)

	env := spec.newEnv(t)
	before := dumpStore(env.stateStore)
	beforeCode := dumpStore(env.codeStore)
	root := env.statedb.Root()

	processed, err := env.processor.Process(nil, blocks, ReadOnlyChain|StoreReceipts, nil)
	require.NoError(t, err)
	require.Len(t, processed, len(wantBlocks))

	// Same outputs as a committing run on the same inputs.
	for i := range processed {
		assert.Equal(t, wantBlocks[i].Hash(), processed[i].Hash())
		assert.Equal(t, wantBlocks[i].Root(), processed[i].Root())
	}
	// No durable effect at all.
	assert.Equal(t, root, env.statedb.Root())
	assert.Equal(t, before, dumpStore(env.stateStore))
	assert.Equal(t, beforeCode, dumpStore(env.codeStore))
	assert.Nil(t, rawdb.ReadProcessedReceipt(env.stateStore, tx.Hash()))
}

func TestInvalidBlockRollsBack(t *testing.T) {
	spec := newChainSpec(frontierConfig())
	var tx *types.Transaction
	blocks := spec.generate(t, 2, func(i int, g *blockGen) {
		if i == 0 {
			tx = g.addTx(&txEffect{credit: map[common.Address]uint64{testRecipient: 42}})
		}
	})

	// Corrupt the second block's promised state root.
	header := blocks[1].Header()
	header.Root = common.HexToHash("0xdeadbeef")
	bad := types.NewBlockWithHeader(header).WithBody(blocks[1].Transactions(), blocks[1].Uncles())

	env := spec.newEnv(t)
	before := dumpStore(env.stateStore)
	root := env.statedb.Root()

	_, err := env.processor.Process(nil, []*types.Block{blocks[0], bad}, StoreReceipts, nil)

	var invalid *InvalidBlockError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, bad.NumberU64(), invalid.Number)
	assert.Equal(t, bad.Hash(), invalid.Hash)

	// Everything unwound, including block 1's receipt.
	assert.Equal(t, root, env.statedb.Root())
	assert.Equal(t, before, dumpStore(env.stateStore))
	assert.Nil(t, rawdb.ReadProcessedReceipt(env.stateStore, tx.Hash()))
}

func TestExecutorFailureRollsBack(t *testing.T) {
	boom := errors.New("executor blew up")
	spec := newChainSpec(frontierConfig())
	env := spec.newEnv(t)

	g := &blockGen{spec: spec, parent: env.genesis}
	g.addTx(&txEffect{err: boom})
	block := g.draft()

	before := dumpStore(env.stateStore)
	root := env.statedb.Root()

	_, err := env.processor.Process(nil, []*types.Block{block}, NoValidation, nil)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, root, env.statedb.Root())
	assert.Equal(t, before, dumpStore(env.stateStore))
}

func TestNilTransactionRejected(t *testing.T) {
	spec := newChainSpec(frontierConfig())
	env := spec.newEnv(t)

	header := &types.Header{
		ParentHash: env.genesis.Hash(),
		Difficulty: big.NewInt(131072),
		Number:     big.NewInt(1),
		GasLimit:   env.genesis.GasLimit(),
		Time:       env.genesis.Time() + 13,
	}
	block := types.NewBlockWithHeader(header).WithBody([]*types.Transaction{nil}, nil)

	root := env.statedb.Root()
	_, err := env.processor.Process(nil, []*types.Block{block}, NoValidation, nil)

	require.ErrorIs(t, err, ErrInvalidTransaction)
	assert.Equal(t, root, env.statedb.Root())
}

func TestBranchRealignment(t *testing.T) {
	spec := newChainSpec(frontierConfig())
	blocks := spec.generate(t, 1, func(i int, g *blockGen) {
		g.setCoinbase(testCoinbase)
	})
	env := spec.newEnv(t)
	genesisRoot := env.genesis.Root()

	first, err := env.processor.Process(nil, blocks, 0, nil)
	require.NoError(t, err)
	head := env.statedb.Root()
	require.Equal(t, first[0].Root(), head)
	require.NotEqual(t, genesisRoot, head)

	// Reprocessing the same block only validates if the providers were
	// reseated at the requested branch parent first.
	second, err := env.processor.Process(&genesisRoot, blocks, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, first[0].Hash(), second[0].Hash())
	assert.Equal(t, head, env.statedb.Root())
}

func TestDAOForkTransition(t *testing.T) {
	config := frontierConfig()
	config.DAOForkBlock = big.NewInt(2)
	config.DAOForkSupport = true

	drain := params.DAODrainList()
	require.GreaterOrEqual(t, len(drain), 2)

	spec := newChainSpec(config)
	spec.alloc[drain[0]] = GenesisAccount{Balance: big.NewInt(1000)}
	spec.alloc[drain[1]] = GenesisAccount{Balance: big.NewInt(500)}

	blocks := spec.generate(t, 2, nil)
	env := spec.newEnv(t)

	_, err := env.processor.Process(nil, blocks[:1], 0, nil)
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(1000), env.statedb.GetBalance(drain[0]))
	assert.False(t, env.statedb.Exist(params.DAORefundContract))

	_, err = env.processor.Process(nil, blocks[1:], 0, nil)
	require.NoError(t, err)
	assert.True(t, env.statedb.GetBalance(drain[0]).IsZero())
	assert.True(t, env.statedb.GetBalance(drain[1]).IsZero())
	assert.Equal(t, uint256.NewInt(1500), env.statedb.GetBalance(params.DAORefundContract))
}

func TestReceiptEncodingFlipsAtByzantium(t *testing.T) {
	config := frontierConfig()
	config.EIP150Block = big.NewInt(0)
	config.EIP155Block = big.NewInt(0)
	config.EIP158Block = big.NewInt(0)
	config.ByzantiumBlock = big.NewInt(2)

	spec := newChainSpec(config)
	blocks := spec.generate(t, 2, func(i int, g *blockGen) {
		g.addTx(&txEffect{})
	})
	env := spec.newEnv(t)

	processed, err := env.processor.Process(nil, blocks, 0, nil)
	require.NoError(t, err)
	require.Len(t, processed, 2)

	// Identical receipt content, different encodings on either side of the
	// activation block.
	assert.NotEqual(t, processed[0].ReceiptHash(), processed[1].ReceiptHash())
}

func TestTraceOptIn(t *testing.T) {
	spec := newChainSpec(frontierConfig())
	var traced, untraced *types.Transaction
	blocks := spec.generate(t, 1, func(i int, g *blockGen) {
		traced = g.addTx(&txEffect{})
		untraced = g.addTx(&txEffect{})
	})
	env := spec.newEnv(t)

	tracer := tracing.NewHashTracer(traced.Hash())
	_, err := env.processor.Process(nil, blocks, 0, tracer)
	require.NoError(t, err)

	require.NotNil(t, tracer.Trace(traced.Hash()))
	assert.Equal(t, params.TxGas, tracer.Trace(traced.Hash()).Gas)
	assert.Nil(t, tracer.Trace(untraced.Hash()))
}

func TestStateCarriesAcrossBlocksInBatch(t *testing.T) {
	spec := newChainSpec(frontierConfig())
	blocks := spec.generate(t, 3, func(i int, g *blockGen) {
		g.addTx(&txEffect{credit: map[common.Address]uint64{testRecipient: 10}})
	})
	env := spec.newEnv(t)

	processed, err := env.processor.Process(nil, blocks, 0, nil)
	require.NoError(t, err)
	require.Len(t, processed, 3)

	assert.Equal(t, uint256.NewInt(30), env.statedb.GetBalance(testRecipient))
	assert.Equal(t, processed[2].Root(), env.statedb.Root())
}
