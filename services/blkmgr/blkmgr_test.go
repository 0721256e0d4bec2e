// Copyright (c) 2017-2018 The qitmeer developers

package blkmgr

import (
	"testing"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/core/types/pow"
	"github.com/Qitmeer/vrx/database"
	_ "github.com/Qitmeer/vrx/database/ldb"
	"github.com/Qitmeer/vrx/params"
	"github.com/Qitmeer/vrx/services/mempool"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opTrue = []byte{txscript.OP_TRUE}

type fixedTime struct {
	now time.Time
}

func (f *fixedTime) AdjustedTime() time.Time {
	return f.now
}

type acceptAll struct{}

func (acceptAll) VerifySignature(*types.TxOutput, *types.Transaction, int, blockchain.ScriptFlags) bool {
	return true
}

type harness struct {
	t       *testing.T
	chain   *blockchain.BlockChain
	pool    *mempool.TxPool
	bm      *BlockManager
	params  *params.Params
	genesis time.Time
}

func newHarness(t *testing.T, banScore int) *harness {
	par := params.PrivNetParams
	db, err := database.Open("memdb")
	require.NoError(t, err)

	h := &harness{t: t, params: &par, genesis: par.GenesisBlock.Header.Timestamp}
	clock := &fixedTime{now: h.genesis.Add(24 * time.Hour)}
	h.chain, err = blockchain.New(&blockchain.Config{
		DB:             db,
		BlockStore:     database.NewMemBlockStore(),
		ChainParams:    h.params,
		TimeSource:     clock,
		ScriptVerifier: acceptAll{},
	})
	require.NoError(t, err)

	policy := mempool.DefaultPolicy()
	policy.AcceptNonStd = true
	poolCfg := mempool.NewConfig(h.chain, policy)
	poolCfg.TimeSource = clock
	h.pool = mempool.New(poolCfg)
	h.chain.SetTxPool(h.pool)

	h.bm = New(&Config{
		Chain:          h.chain,
		TxPool:         h.pool,
		BanScore:       banScore,
		AllowOrphanTxs: true,
	})
	h.bm.Start()
	return h
}

func (h *harness) stop() {
	require.NoError(h.t, h.bm.Stop())
}

func (h *harness) blockTime(height int64) time.Time {
	return h.genesis.Add(time.Duration(height) * time.Minute)
}

// block builds a mined work block at height on parent.  mutate runs before
// mining.
func (h *harness) block(parent *hash.Hash, height int64, mutate func(*types.Block)) *types.SerializedBlock {
	bits := h.chain.CalcNextRequiredDifficulty(false)
	script, err := txscript.NewScriptBuilder().AddInt64(height).
		AddData([]byte{0x02, 0x00}).Script()
	require.NoError(h.t, err)
	cb := types.NewTransaction()
	cb.Timestamp = h.blockTime(height)
	cb.AddTxIn(types.NewTxInput(types.NewOutPoint(&hash.ZeroHash, types.MaxPrevOutIndex), script))
	cb.AddTxOut(types.NewTxOutput(50*types.AtomsPerCoin, opTrue))

	block := &types.Block{
		Header: types.BlockHeader{
			Version:    types.BlockVersion,
			PrevBlock:  *parent,
			TxRoot:     types.CalcMerkleRoot([]*types.Tx{types.NewTx(cb)}),
			Timestamp:  h.blockTime(height),
			Difficulty: bits,
		},
		Transactions: []*types.Transaction{cb},
	}
	if mutate != nil {
		mutate(block)
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

func (h *harness) nextBlock() *types.SerializedBlock {
	best := h.chain.BestSnapshot()
	return h.block(&best.Hash, best.Height+1, nil)
}

func newManager() *BlockManager {
	return &BlockManager{
		cfg:              Config{BanScore: DefaultBanScore},
		nodes:            make(map[PeerID]*nodeState),
		blocksInFlight:   make(map[hash.Hash]blockOwner),
		blocksToDownload: make(map[hash.Hash]blockOwner),
	}
}

func TestMisbehaving(t *testing.T) {
	bm := newManager()
	bm.InitializeNode(1, "peer1")

	bm.Misbehaving(1, 0)
	stats, ok := bm.GetNodeStateStats(1)
	require.True(t, ok)
	assert.Equal(t, "peer1", stats.Name)
	assert.Equal(t, 0, stats.Misbehavior)

	bm.Misbehaving(1, 60)
	assert.False(t, bm.ShouldBan(1))
	bm.Misbehaving(1, 40)
	assert.True(t, bm.ShouldBan(1))
	stats, _ = bm.GetNodeStateStats(1)
	assert.Equal(t, 100, stats.Misbehavior)

	// Unknown peers are ignored.
	bm.Misbehaving(2, 100)
	_, ok = bm.GetNodeStateStats(2)
	assert.False(t, ok)
	assert.False(t, bm.ShouldBan(2))

	// Initializing a known peer keeps its score, reconnecting resets it.
	bm.InitializeNode(1, "peer1")
	assert.True(t, bm.ShouldBan(1))
	bm.FinalizeNode(1)
	bm.InitializeNode(1, "peer1")
	stats, _ = bm.GetNodeStateStats(1)
	assert.Equal(t, 0, stats.Misbehavior)
	assert.False(t, stats.ShouldBan)
}

func TestBlockQueue(t *testing.T) {
	bm := newManager()
	bm.InitializeNode(1, "peer1")
	bm.InitializeNode(2, "peer2")

	hashes := make([]hash.Hash, MaxBlocksInTransitPerPeer+2)
	for i := range hashes {
		hashes[i] = hash.Hash{byte(i), byte(i >> 8), 0x01}
		require.True(t, bm.QueueBlock(1, &hashes[i]))
	}
	assert.False(t, bm.QueueBlock(1, &hashes[0]))
	assert.False(t, bm.QueueBlock(2, &hashes[0]))
	assert.False(t, bm.QueueBlock(3, &hash.Hash{0xff}))

	requested := bm.RequestBlocks(1)
	require.Len(t, requested, MaxBlocksInTransitPerPeer)
	assert.Equal(t, hashes[0], requested[0])
	stats, _ := bm.GetNodeStateStats(1)
	assert.Equal(t, MaxBlocksInTransitPerPeer, stats.BlocksInFlight)
	assert.Equal(t, 2, stats.BlocksToDownload)

	// In-flight blocks are not queued again.
	assert.False(t, bm.QueueBlock(2, &hashes[0]))

	bm.MarkBlockAsReceived(&hashes[0], 1)
	requested = bm.RequestBlocks(1)
	require.Len(t, requested, 1)
	assert.Equal(t, hashes[MaxBlocksInTransitPerPeer], requested[0])

	// A finalized peer releases its blocks to others.
	bm.FinalizeNode(1)
	assert.True(t, bm.QueueBlock(2, &hashes[1]))
	assert.True(t, bm.QueueBlock(2, &hashes[len(hashes)-1]))
	assert.Nil(t, bm.RequestBlocks(1))
}

func TestBlockQueueOverflow(t *testing.T) {
	bm := newManager()
	bm.InitializeNode(1, "peer1")
	for i := 0; i <= maxBlocksToDownload; i++ {
		h := hash.Hash{byte(i), byte(i >> 8), 0x02}
		require.True(t, bm.QueueBlock(1, &h))
	}
	stats, _ := bm.GetNodeStateStats(1)
	assert.Equal(t, queueOverflowScore, stats.Misbehavior)
}

func TestProcessBlock(t *testing.T) {
	h := newHarness(t, DefaultBanScore)
	defer h.stop()
	h.bm.InitializeNode(1, "peer1")

	block := h.nextBlock()
	require.True(t, h.bm.QueueBlock(1, block.Hash()))
	isOrphan, err := h.bm.ProcessBlock(1, block)
	require.NoError(t, err)
	assert.False(t, isOrphan)
	best, height, _ := h.bm.GetChainState().Best()
	assert.Equal(t, *block.Hash(), *best)
	assert.Equal(t, int64(1), height)
	stats, _ := h.bm.GetNodeStateStats(1)
	assert.Equal(t, 0, stats.BlocksToDownload)
	assert.Equal(t, 0, stats.Misbehavior)

	// A block on an unknown parent is kept as an orphan.
	unknown := h.nextBlock()
	orphan := h.block(unknown.Hash(), 3, nil)
	isOrphan, err = h.bm.ProcessBlock(1, orphan)
	require.NoError(t, err)
	assert.True(t, isOrphan)
	assert.True(t, h.chain.IsOrphan(orphan.Hash()))

	// A block with a wrong merkle root is a fault of the sender.
	bad := func(b *types.Block) { b.Header.TxRoot = hash.Hash{0x01} }
	badBlock := h.block(block.Hash(), 2, bad)
	_, err = h.bm.ProcessBlock(1, badBlock)
	require.Error(t, err)
	dos := blockchain.DoSScore(err)
	assert.True(t, dos > 0)
	stats, _ = h.bm.GetNodeStateStats(1)
	assert.Equal(t, dos, stats.Misbehavior)

	// Local submissions never score.
	_, err = h.bm.ProcessBlock(LocalPeer, badBlock)
	require.Error(t, err)
	_, ok := h.bm.GetNodeStateStats(LocalPeer)
	assert.False(t, ok)
}

func TestProcessTransaction(t *testing.T) {
	h := newHarness(t, DefaultBanScore)
	defer h.stop()
	h.bm.InitializeNode(1, "peer1")

	var coinbases []*types.Transaction
	for i := 0; i < 20; i++ {
		block := h.nextBlock()
		_, err := h.bm.ProcessBlock(LocalPeer, block)
		require.NoError(t, err)
		coinbases = append(coinbases, block.Block().Transactions[0])
	}

	prevHash := coinbases[0].TxHash()
	spend := types.NewTransaction()
	spend.Timestamp = h.blockTime(21)
	spend.AddTxIn(types.NewTxInput(types.NewOutPoint(&prevHash, 0), []byte{txscript.OP_TRUE}))
	spend.AddTxOut(types.NewTxOutput(495*types.AtomsPerCoin/10, opTrue))

	accepted, err := h.bm.ProcessTransaction(1, types.NewTx(spend))
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.True(t, h.pool.IsTransactionInPool(accepted[0].Tx.Hash()))

	// A lone coinbase earns the full ban score.
	_, err = h.bm.ProcessTransaction(1, types.NewTx(coinbases[1]))
	require.Error(t, err)
	assert.True(t, h.bm.ShouldBan(1))

	// A rejected transaction is ignored until the next block.
	accepted, err = h.bm.ProcessTransaction(1, types.NewTx(coinbases[1]))
	assert.NoError(t, err)
	assert.Nil(t, accepted)
}

func TestStop(t *testing.T) {
	h := newHarness(t, DefaultBanScore)
	h.stop()
	assert.NoError(t, h.bm.Stop())

	_, err := h.bm.ProcessBlock(1, h.nextBlock())
	assert.Equal(t, ErrShutdown, err)
	_, err = h.bm.ProcessTransaction(1, types.NewTx(types.NewTransaction()))
	assert.Equal(t, ErrShutdown, err)
}

func TestLimitMap(t *testing.T) {
	m := make(map[hash.Hash]struct{})
	for i := 0; i < 10; i++ {
		m[hash.Hash{byte(i)}] = struct{}{}
	}
	limitMap(m, 4)
	assert.Len(t, m, 4)
}
