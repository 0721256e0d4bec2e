// Copyright (c) 2017-2018 The qitmeer developers
package node

import (
	"bytes"
	"testing"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/config"
	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/core/serialization"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/core/types/pow"
	"github.com/Qitmeer/vrx/database"
	_ "github.com/Qitmeer/vrx/database/ldb"
	"github.com/Qitmeer/vrx/engine/txverify"
	"github.com/Qitmeer/vrx/params"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		DbType:          "memdb",
		MaxOrphanBlocks: blockchain.DefaultMaxOrphanBlocks,
		BanScore:        100,
		MaxOrphanTxs:    100,
		RejectInsaneFee: true,
	}
}

func newTestNode(t *testing.T) *Node {
	db, err := database.Open("memdb")
	require.NoError(t, err)
	n, err := NewNode(testConfig(), db, database.NewMemBlockStore(), &params.PrivNetParams)
	require.NoError(t, err)
	require.NoError(t, n.RegisterService())
	return n
}

// mineBlocks builds count work blocks on a separate chain and returns them
// in the import file layout.
func mineBlocks(t *testing.T, count int) ([]*types.SerializedBlock, []byte) {
	par := &params.PrivNetParams
	db, err := database.Open("memdb")
	require.NoError(t, err)
	chain, err := blockchain.New(&blockchain.Config{
		DB:             db,
		BlockStore:     database.NewMemBlockStore(),
		ChainParams:    par,
		ScriptVerifier: txverify.New(),
	})
	require.NoError(t, err)

	genesis := par.GenesisBlock.Header.Timestamp
	var blocks []*types.SerializedBlock
	var buf bytes.Buffer
	for i := 1; i <= count; i++ {
		best := chain.BestSnapshot()
		height := best.Height + 1
		blockTime := genesis.Add(time.Duration(height) * time.Minute)
		bits := chain.CalcNextRequiredDifficulty(false)

		script, err := txscript.NewScriptBuilder().AddInt64(height).
			AddData([]byte{0x03, 0x00}).Script()
		require.NoError(t, err)
		cb := types.NewTransaction()
		cb.Timestamp = blockTime
		cb.AddTxIn(types.NewTxInput(types.NewOutPoint(&hash.ZeroHash, types.MaxPrevOutIndex), script))
		cb.AddTxOut(types.NewTxOutput(50*types.AtomsPerCoin, []byte{txscript.OP_TRUE}))

		block := &types.Block{
			Header: types.BlockHeader{
				Version:    types.BlockVersion,
				PrevBlock:  best.Hash,
				TxRoot:     types.CalcMerkleRoot([]*types.Tx{types.NewTx(cb)}),
				Timestamp:  blockTime,
				Difficulty: bits,
			},
			Transactions: []*types.Transaction{cb},
		}
		for {
			powHash := block.Header.PowHash()
			if pow.CheckProofOfWork(&powHash, bits, par.PowLimit) == nil {
				break
			}
			block.Header.Nonce++
		}
		sb := types.NewBlock(block)
		isOrphan, err := chain.ProcessBlock(sb, blockchain.BFNone)
		require.NoError(t, err)
		require.False(t, isOrphan)

		raw, err := sb.Bytes()
		require.NoError(t, err)
		require.NoError(t, serialization.WriteElements(&buf, uint32(len(raw))))
		buf.Write(raw)
		blocks = append(blocks, sb)
	}
	return blocks, buf.Bytes()
}

func TestNodeLifecycle(t *testing.T) {
	n := newTestNode(t)
	vf := n.GetVrxFull()
	require.NotNil(t, vf)
	assert.NotNil(t, vf.GetChain())
	assert.NotNil(t, vf.GetTxPool())
	assert.NotNil(t, vf.GetBlockManager())

	require.NoError(t, n.Start())
	assert.True(t, vf.IsStarted())
	assert.NotNil(t, vf.Context())

	require.NoError(t, n.Stop())
	n.WaitForShutdown()
	assert.True(t, vf.IsShutdown())
	assert.Error(t, vf.Context().Err())

	// A service is registered once.
	assert.Error(t, n.services.RegisterService(vf))
}

func TestImportBlocks(t *testing.T) {
	blocks, data := mineBlocks(t, 5)

	n := newTestNode(t)
	require.NoError(t, n.Start())
	defer func() {
		require.NoError(t, n.Stop())
		n.WaitForShutdown()
	}()
	vf := n.GetVrxFull()

	res, err := vf.ImportBlocks(bytes.NewReader(data), nil)
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Read: 5, Processed: 5}, res)
	best := vf.GetChain().BestSnapshot()
	assert.Equal(t, int64(5), best.Height)
	assert.Equal(t, *blocks[4].Hash(), best.Hash)

	// Known blocks are skipped.
	res, err = vf.ImportBlocks(bytes.NewReader(data), nil)
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Read: 5}, res)
}

func TestImportBlocksOrphans(t *testing.T) {
	_, data := mineBlocks(t, 3)

	// Drop the first block so the rest cannot connect.
	var size uint32
	require.NoError(t, serialization.ReadElements(bytes.NewReader(data), &size))
	rest := data[4+size:]

	n := newTestNode(t)
	require.NoError(t, n.Start())
	defer n.Stop()

	res, err := n.GetVrxFull().ImportBlocks(bytes.NewReader(rest), nil)
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Read: 2, Orphans: 2}, res)
}

func TestImportBlocksTruncated(t *testing.T) {
	_, data := mineBlocks(t, 1)

	n := newTestNode(t)
	require.NoError(t, n.Start())
	defer n.Stop()

	_, err := n.GetVrxFull().ImportBlocks(bytes.NewReader(data[:len(data)-1]), nil)
	assert.Error(t, err)

	_, err = n.GetVrxFull().ImportBlocks(bytes.NewReader([]byte{0, 0, 0, 0}), nil)
	assert.Error(t, err)
}

func TestImportBlocksInterrupt(t *testing.T) {
	_, data := mineBlocks(t, 2)

	n := newTestNode(t)
	require.NoError(t, n.Start())
	defer n.Stop()

	interrupt := make(chan struct{})
	close(interrupt)
	res, err := n.GetVrxFull().ImportBlocks(bytes.NewReader(data), interrupt)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Read)
}
