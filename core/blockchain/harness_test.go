// Copyright (c) 2017-2018 The qitmeer developers

package blockchain

import (
	"testing"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/core/types/pow"
	"github.com/Qitmeer/vrx/database"
	_ "github.com/Qitmeer/vrx/database/ldb"
	"github.com/Qitmeer/vrx/params"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
)

// opTrue is an anyone-can-spend output script.
var opTrue = []byte{txscript.OP_TRUE}

type fixedTime struct {
	now time.Time
}

func (f *fixedTime) AdjustedTime() time.Time {
	return f.now
}

// acceptAll accepts every input signature.
type acceptAll struct{}

func (acceptAll) VerifySignature(*types.TxOutput, *types.Transaction, int, ScriptFlags) bool {
	return true
}

type chainHarness struct {
	t          *testing.T
	chain      *BlockChain
	params     *params.Params
	db         database.DB
	blockStore database.BlockStore
	clock      *fixedTime
	genesis    time.Time
}

// newChainHarness returns a privnet chain on an in-memory store whose clock
// sits a day after genesis.
func newChainHarness(t *testing.T) *chainHarness {
	par := params.PrivNetParams
	db, err := database.Open("memdb")
	require.NoError(t, err)

	h := &chainHarness{
		t:          t,
		params:     &par,
		db:         db,
		blockStore: database.NewMemBlockStore(),
		genesis:    par.GenesisBlock.Header.Timestamp,
	}
	h.clock = &fixedTime{now: h.genesis.Add(24 * time.Hour)}
	h.chain = h.open()
	return h
}

func (h *chainHarness) open() *BlockChain {
	chain, err := New(&Config{
		DB:             h.db,
		BlockStore:     h.blockStore,
		ChainParams:    h.params,
		TimeSource:     h.clock,
		ScriptVerifier: acceptAll{},
	})
	require.NoError(h.t, err)
	return chain
}

// blockTime is the timestamp used for blocks at height.
func (h *chainHarness) blockTime(height int64) time.Time {
	return h.genesis.Add(time.Duration(height) * time.Minute)
}

// coinbase returns a coinbase for height; tag makes competing coinbases
// differ.
func (h *chainHarness) coinbase(height int64, tag byte) *types.Transaction {
	script, err := txscript.NewScriptBuilder().AddInt64(height).
		AddData([]byte{tag, 0x00}).Script()
	require.NoError(h.t, err)

	tx := types.NewTransaction()
	tx.Timestamp = h.blockTime(height)
	tx.AddTxIn(types.NewTxInput(types.NewOutPoint(&hash.ZeroHash, types.MaxPrevOutIndex), script))
	tx.AddTxOut(types.NewTxOutput(50*types.AtomsPerCoin, opTrue))
	return tx
}

// spend returns a transaction moving output idx of prev to a fresh output.
func (h *chainHarness) spend(prev *types.Transaction, idx uint32, height int64) *types.Transaction {
	prevHash := prev.TxHash()
	tx := types.NewTransaction()
	tx.Timestamp = h.blockTime(height)
	tx.AddTxIn(types.NewTxInput(types.NewOutPoint(&prevHash, idx), []byte{txscript.OP_TRUE}))
	tx.AddTxOut(types.NewTxOutput(prev.TxOut[idx].Amount-types.AtomsPerCoin/100, opTrue))
	return tx
}

// block builds and mines a work block on parent.  The parent must be
// indexed.
func (h *chainHarness) block(parent *hash.Hash, tag byte, txs ...*types.Transaction) *types.SerializedBlock {
	node := h.chain.index.LookupNode(parent)
	require.NotNil(h.t, node, "parent %v not indexed", parent)
	return h.blockAt(parent, node.height+1, calcNextRequiredDifficulty(h.params, node, false), tag, txs...)
}

func (h *chainHarness) blockAt(parent *hash.Hash, height int64, bits uint32, tag byte,
	txs ...*types.Transaction) *types.SerializedBlock {

	all := append([]*types.Transaction{h.coinbase(height, tag)}, txs...)
	wrapped := make([]*types.Tx, len(all))
	for i, tx := range all {
		wrapped[i] = types.NewTx(tx)
	}
	block := &types.Block{
		Header: types.BlockHeader{
			Version:    types.BlockVersion,
			PrevBlock:  *parent,
			TxRoot:     types.CalcMerkleRoot(wrapped),
			Timestamp:  h.blockTime(height),
			Difficulty: bits,
		},
		Transactions: all,
	}
	for {
		powHash := block.Header.PowHash()
		if pow.CheckProofOfWork(&powHash, bits, h.params.PowLimit) == nil {
			break
		}
		block.Header.Nonce++
	}
	return types.NewBlock(block)
}

// unminedBlock returns a block whose pow hash misses its target.
func (h *chainHarness) unminedBlock(parent *hash.Hash, tag byte) *types.SerializedBlock {
	sb := h.block(parent, tag)
	block := sb.Block()
	for {
		block.Header.Nonce++
		powHash := block.Header.PowHash()
		if pow.CheckProofOfWork(&powHash, block.Header.Difficulty, h.params.PowLimit) != nil {
			break
		}
	}
	return types.NewBlock(block)
}

// process submits a block and requires it to connect or be indexed.
func (h *chainHarness) process(block *types.SerializedBlock) {
	isOrphan, err := h.chain.ProcessBlock(block, BFNone)
	require.NoError(h.t, err)
	require.False(h.t, isOrphan)
}

// extend mines count blocks on the best chain and returns them.
func (h *chainHarness) extend(count int, tag byte) []*types.SerializedBlock {
	blocks := make([]*types.SerializedBlock, 0, count)
	for i := 0; i < count; i++ {
		best := h.chain.BestSnapshot().Hash
		block := h.block(&best, tag)
		h.process(block)
		blocks = append(blocks, block)
	}
	return blocks
}

// spentMarkers returns the spend markers of a confirmed transaction.
func (h *chainHarness) spentMarkers(txHash hash.Hash) []DiskTxPos {
	entry, err := h.chain.FetchTxIndex(&txHash)
	require.NoError(h.t, err)
	if entry == nil {
		return nil
	}
	return entry.Spent
}
