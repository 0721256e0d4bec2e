// Copyright (c) 2017-2018 The qitmeer developers

package blockchain

import (
	"math/big"
	"testing"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/core/types/pow"
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) OnChainNotification(n *Notification) {
	m.Called(n)
}

func notificationOf(typ NotificationType) interface{} {
	return mock.MatchedBy(func(n *Notification) bool { return n.Type == typ })
}

func TestGenesisState(t *testing.T) {
	h := newChainHarness(t)
	best := h.chain.BestSnapshot()
	assert.Equal(t, int64(0), best.Height)
	assert.Equal(t, *h.params.GenesisHash, best.Hash)
	assert.True(t, h.chain.HaveBlock(h.params.GenesisHash))
	assert.True(t, h.chain.MainChainHasBlock(h.params.GenesisHash))
}

func TestProcessBlockExtendsChain(t *testing.T) {
	h := newChainHarness(t)

	var connected []hash.Hash
	h.chain.Subscribe(ObserverFunc(func(n *Notification) {
		if n.Type == BlockConnected {
			connected = append(connected, *n.Data.(*types.SerializedBlock).Hash())
		}
	}))

	blocks := h.extend(3, 1)
	best := h.chain.BestSnapshot()
	assert.Equal(t, int64(3), best.Height)
	assert.Equal(t, *blocks[2].Hash(), best.Hash)
	require.Len(t, connected, 3)
	for i, block := range blocks {
		assert.Equal(t, *block.Hash(), connected[i])
		assert.True(t, h.chain.MainChainHasBlock(block.Hash()))
	}

	// Every coinbase is indexed with unspent outputs.
	for _, block := range blocks {
		markers := h.spentMarkers(block.Block().Transactions[0].TxHash())
		require.Len(t, markers, 1)
		assert.True(t, markers[0].IsNull())
	}
}

func TestDuplicateBlock(t *testing.T) {
	h := newChainHarness(t)
	block := h.extend(1, 1)[0]

	_, err := h.chain.ProcessBlock(block, BFNone)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrDuplicateBlock))
	assert.Equal(t, RaceCondition, ErrorKind(err))
	assert.Equal(t, 0, DoSScore(err))
}

func TestHighHashRejected(t *testing.T) {
	h := newChainHarness(t)
	block := h.unminedBlock(h.params.GenesisHash, 1)

	_, err := h.chain.ProcessBlock(block, BFNone)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrHighHash))
	assert.Equal(t, StructuralFault, ErrorKind(err))
	assert.False(t, h.chain.HaveBlock(block.Hash()))
	assert.Equal(t, int64(0), h.chain.BestSnapshot().Height)

	// Skipping the work check lets the same block in.
	isOrphan, err := h.chain.ProcessBlock(block, BFNoPoWCheck)
	require.NoError(t, err)
	assert.False(t, isOrphan)
	assert.Equal(t, int64(1), h.chain.BestSnapshot().Height)
}

func TestUnexpectedDifficulty(t *testing.T) {
	h := newChainHarness(t)
	block := h.blockAt(h.params.GenesisHash, 1, 0x1f7fffff, 1)

	_, err := h.chain.ProcessBlock(block, BFNone)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrUnexpectedDifficulty))
	assert.Equal(t, 100, DoSScore(err))
}

func TestEqualTrustFirstSeenWins(t *testing.T) {
	h := newChainHarness(t)
	first := h.block(h.params.GenesisHash, 1)
	second := h.block(h.params.GenesisHash, 2)
	require.NotEqual(t, *first.Hash(), *second.Hash())

	h.process(first)
	h.process(second)

	best := h.chain.BestSnapshot()
	assert.Equal(t, *first.Hash(), best.Hash)
	assert.True(t, h.chain.HaveBlock(second.Hash()))
	assert.False(t, h.chain.MainChainHasBlock(second.Hash()))

	// The side block was indexed but never connected.
	assert.Nil(t, h.spentMarkers(second.Block().Transactions[0].TxHash()))
}

func TestOrphanResolution(t *testing.T) {
	h := newChainHarness(t)
	limit := pow.BigToCompact(h.params.PowLimit)

	b1 := h.blockAt(h.params.GenesisHash, 1, limit, 1)
	b2 := h.blockAt(b1.Hash(), 2, limit, 1)
	b3 := h.blockAt(b2.Hash(), 3, limit, 1)

	isOrphan, err := h.chain.ProcessBlock(b3, BFNone)
	require.NoError(t, err)
	assert.True(t, isOrphan)
	isOrphan, err = h.chain.ProcessBlock(b2, BFNone)
	require.NoError(t, err)
	assert.True(t, isOrphan)
	assert.True(t, h.chain.IsOrphan(b2.Hash()))
	assert.Equal(t, *b2.Hash(), *h.chain.GetOrphanRoot(b3.Hash()))
	assert.Equal(t, 2, h.chain.OrphanCount())

	// Resubmitting an orphan is a duplicate.
	_, err = h.chain.ProcessBlock(b2, BFNone)
	assert.True(t, IsErrorCode(err, ErrDuplicateBlock))

	h.process(b1)
	best := h.chain.BestSnapshot()
	assert.Equal(t, int64(3), best.Height)
	assert.Equal(t, *b3.Hash(), best.Hash)
	assert.Equal(t, 0, h.chain.OrphanCount())
}

func TestOrphanPoolBound(t *testing.T) {
	h := newChainHarness(t)
	h.chain.maxOrphanBlocks = 2
	limit := pow.BigToCompact(h.params.PowLimit)

	unknown := hash.HashH([]byte("unknown parent"))
	for tag := byte(1); tag <= 4; tag++ {
		isOrphan, err := h.chain.ProcessBlock(h.blockAt(&unknown, 5, limit, tag), BFNone)
		require.NoError(t, err)
		assert.True(t, isOrphan)
	}
	assert.Equal(t, 2, h.chain.OrphanCount())
}

func TestCoinbaseMaturity(t *testing.T) {
	h := newChainHarness(t)
	maturity := h.params.CoinbaseMaturity
	blocks := h.extend(int(maturity-1), 1)
	coinbase := blocks[0].Block().Transactions[0]

	// Spending at depth maturity-1 is premature.
	best := h.chain.BestSnapshot()
	early := h.block(&best.Hash, 2, h.spend(coinbase, 0, best.Height+1))
	_, err := h.chain.ProcessBlock(early, BFNone)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrImmatureSpend))
	assert.Equal(t, ConsensusFault, ErrorKind(err))
	assert.Equal(t, best.Hash, h.chain.BestSnapshot().Hash)
	assert.True(t, h.spentMarkers(coinbase.TxHash())[0].IsNull())

	// At depth maturity it is accepted.
	h.extend(1, 1)
	best = h.chain.BestSnapshot()
	spend := h.spend(coinbase, 0, best.Height+1)
	onTime := h.block(&best.Hash, 1, spend)
	h.process(onTime)
	assert.Equal(t, *onTime.Hash(), h.chain.BestSnapshot().Hash)
	assert.False(t, h.spentMarkers(coinbase.TxHash())[0].IsNull())
	assert.NotNil(t, h.spentMarkers(spend.TxHash()))
}

func TestDoubleSpendInBlock(t *testing.T) {
	h := newChainHarness(t)
	blocks := h.extend(int(h.params.CoinbaseMaturity), 1)
	coinbase := blocks[0].Block().Transactions[0]

	best := h.chain.BestSnapshot()
	first := h.spend(coinbase, 0, best.Height+1)
	second := h.spend(coinbase, 0, best.Height+1)
	second.TxOut[0].Amount -= 1
	block := h.block(&best.Hash, 1, first, second)

	_, err := h.chain.ProcessBlock(block, BFNone)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrDoubleSpend))
	assert.Equal(t, best.Hash, h.chain.BestSnapshot().Hash)
}

func TestReorganizeRoundTrip(t *testing.T) {
	h := newChainHarness(t)
	blocks := h.extend(int(h.params.CoinbaseMaturity), 1)
	coinbase := blocks[0].Block().Transactions[0]
	fork := h.chain.BestSnapshot()

	// Branch A spends the first coinbase.
	spend := h.spend(coinbase, 0, fork.Height+1)
	a1 := h.block(&fork.Hash, 0xa, spend)
	h.process(a1)
	markersA := append([]DiskTxPos(nil), h.spentMarkers(coinbase.TxHash())...)
	require.False(t, markersA[0].IsNull())

	var reorgs int
	h.chain.Subscribe(ObserverFunc(func(n *Notification) {
		if n.Type == Reorganization {
			reorgs++
		}
	}))

	// Branch B overtakes with two blocks.
	b1 := h.block(&fork.Hash, 0xb)
	h.process(b1)
	assert.Equal(t, *a1.Hash(), h.chain.BestSnapshot().Hash)
	b2 := h.block(b1.Hash(), 0xb)
	h.process(b2)
	assert.Equal(t, *b2.Hash(), h.chain.BestSnapshot().Hash)
	assert.Equal(t, 1, reorgs)
	assert.True(t, h.spentMarkers(coinbase.TxHash())[0].IsNull())
	assert.Nil(t, h.spentMarkers(spend.TxHash()))
	assert.False(t, h.chain.MainChainHasBlock(a1.Hash()))

	// Branch A comes back with more trust.
	a2 := h.block(a1.Hash(), 0xa)
	h.process(a2)
	a3 := h.block(a2.Hash(), 0xa)
	h.process(a3)
	best := h.chain.BestSnapshot()
	assert.Equal(t, *a3.Hash(), best.Hash)
	assert.Equal(t, 2, reorgs)
	assert.Equal(t, markersA, h.spentMarkers(coinbase.TxHash()))
	assert.NotNil(t, h.spentMarkers(spend.TxHash()))
	assert.True(t, h.chain.MainChainHasBlock(a1.Hash()))
	assert.False(t, h.chain.MainChainHasBlock(b1.Hash()))

	expected := new(big.Int).Set(h.chain.index.LookupNode(&fork.Hash).trust)
	for _, block := range []*types.SerializedBlock{a1, a2, a3} {
		expected.Add(expected, pow.CalcTrust(block.Block().Header.Difficulty))
	}
	assert.Equal(t, 0, expected.Cmp(best.Trust))
}

func TestRestartRestoresBestChain(t *testing.T) {
	h := newChainHarness(t)
	h.extend(4, 1)
	side := h.block(h.params.GenesisHash, 9)
	h.process(side)
	before := h.chain.BestSnapshot()

	reopened := h.open()
	after := reopened.BestSnapshot()
	assert.Equal(t, before.Hash, after.Hash)
	assert.Equal(t, before.Height, after.Height)
	assert.Equal(t, 0, before.Trust.Cmp(after.Trust))
	assert.True(t, reopened.HaveBlock(side.Hash()))
	assert.False(t, reopened.MainChainHasBlock(side.Hash()))
	assert.True(t, reopened.MainChainHasBlock(&before.Hash))
}

func TestGetNextTargetRequired(t *testing.T) {
	h := newChainHarness(t)
	bits, err := h.chain.GetNextTargetRequired(h.params.GenesisHash, false)
	require.NoError(t, err)
	assert.Equal(t, pow.BigToCompact(h.params.PowLimit), bits)
	assert.Equal(t, bits, h.chain.CalcNextRequiredDifficulty(false))

	unknown := hash.HashH([]byte("nowhere"))
	_, err = h.chain.GetNextTargetRequired(&unknown, false)
	assert.IsType(t, HashError(""), err)
}

func TestNotificationOrder(t *testing.T) {
	h := newChainHarness(t)
	observer := &mockObserver{}
	h.chain.Subscribe(observer)

	observer.On("OnChainNotification", notificationOf(BlockConnected)).Return().Times(2)
	observer.On("OnChainNotification", mock.MatchedBy(func(n *Notification) bool {
		data, ok := n.Data.(*BlockAcceptedNotifyData)
		return n.Type == BlockAccepted && ok && data.IsMainChainTipChange
	})).Return().Times(2)

	h.extend(2, 1)
	observer.AssertExpectations(t)
	observer.AssertNumberOfCalls(t, "OnChainNotification", 4)
	assert.Equal(t, BlockConnected, observer.Calls[0].Arguments.Get(0).(*Notification).Type)
	assert.Equal(t, BlockAccepted, observer.Calls[1].Arguments.Get(0).(*Notification).Type)

	// A side block is accepted without touching the main chain.
	observer.On("OnChainNotification", mock.MatchedBy(func(n *Notification) bool {
		data, ok := n.Data.(*BlockAcceptedNotifyData)
		return n.Type == BlockAccepted && ok && !data.IsMainChainTipChange
	})).Return().Once()
	side := h.block(h.params.GenesisHash, 0x5)
	h.process(side)
	observer.AssertExpectations(t)
	observer.AssertNumberOfCalls(t, "OnChainNotification", 5)
}

func TestInitialBlockDownload(t *testing.T) {
	h := newChainHarness(t)

	// A stale tip that was just seen keeps the node syncing.
	assert.True(t, h.chain.IsInitialBlockDownload())
	assert.False(t, h.chain.IsCurrent())

	// The tip stopped moving.
	h.clock.now = h.clock.now.Add(time.Minute)
	assert.False(t, h.chain.IsInitialBlockDownload())

	// New stale blocks put the node back into download mode.
	h.extend(1, 0x01)
	assert.True(t, h.chain.IsInitialBlockDownload())

	// A recent tip is current right away.
	h.clock.now = h.blockTime(2).Add(time.Minute)
	h.extend(1, 0x01)
	assert.False(t, h.chain.IsInitialBlockDownload())
	assert.True(t, h.chain.IsCurrent())
}

type mockStake struct {
	mock.Mock
}

func (m *mockStake) CheckProofOfStake(chain ChainReader, prev *BlockInfo, coinstake *types.Transaction,
	bits uint32) (hash.Hash, *big.Int, error) {

	args := m.Called(prev.Hash, bits)
	return args.Get(0).(hash.Hash), args.Get(1).(*big.Int), args.Error(2)
}

func (m *mockStake) ComputeNextStakeModifier(chain ChainReader, prev *BlockInfo) (uint64, bool, error) {
	args := m.Called(prev.Height)
	return args.Get(0).(uint64), args.Bool(1), args.Error(2)
}

// stakeBlock builds a signed stake block on parentHash whose coinstake
// spends output 0 of source.
func (h *chainHarness) stakeBlock(parentHash *hash.Hash, key *btcec.PrivateKey,
	source *types.Transaction, tag byte) *types.SerializedBlock {

	parent := h.chain.index.LookupNode(parentHash)
	require.NotNil(h.t, parent)
	height := parent.height + 1
	blockTime := h.blockTime(height)

	cbScript, err := txscript.NewScriptBuilder().AddInt64(height).
		AddData([]byte{tag, 0x00}).Script()
	require.NoError(h.t, err)
	cb := types.NewTransaction()
	cb.Timestamp = blockTime
	cb.AddTxIn(types.NewTxInput(types.NewOutPoint(&hash.ZeroHash, types.MaxPrevOutIndex), cbScript))
	cb.AddTxOut(types.NewTxOutput(0, nil))

	payTo, err := txscript.NewScriptBuilder().AddData(key.PubKey().SerializeCompressed()).
		AddOp(txscript.OP_CHECKSIG).Script()
	require.NoError(h.t, err)
	sourceHash := source.TxHash()
	cs := types.NewTransaction()
	cs.Timestamp = blockTime
	cs.AddTxIn(types.NewTxInput(types.NewOutPoint(&sourceHash, 0), opTrue))
	cs.AddTxOut(types.NewTxOutput(0, nil))
	cs.AddTxOut(types.NewTxOutput(source.TxOut[0].Amount+types.AtomsPerCoin, payTo))

	block := &types.Block{
		Header: types.BlockHeader{
			Version:    types.BlockVersion,
			PrevBlock:  *parentHash,
			TxRoot:     types.CalcMerkleRoot([]*types.Tx{types.NewTx(cb), types.NewTx(cs)}),
			Timestamp:  blockTime,
			Difficulty: calcNextRequiredDifficulty(h.params, parent, true),
		},
		Transactions: []*types.Transaction{cb, cs},
	}
	blockHash := block.BlockHash()
	sig, err := key.Sign(blockHash[:])
	require.NoError(h.t, err)
	block.Signature = sig.Serialize()
	return types.NewBlock(block)
}

func TestProcessStakeBlock(t *testing.T) {
	h := newChainHarness(t)
	stake := &mockStake{}
	stake.On("ComputeNextStakeModifier", mock.Anything).Return(uint64(7), true, nil)
	var err error
	h.chain, err = New(&Config{
		DB:             h.db,
		BlockStore:     h.blockStore,
		ChainParams:    h.params,
		TimeSource:     h.clock,
		ScriptVerifier: acceptAll{},
		StakeChecker:   stake,
	})
	require.NoError(t, err)

	blocks := h.extend(int(h.params.CoinbaseMaturity), 1)
	source := blocks[0].Block().Transactions[0]
	key, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)
	other, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)
	tip := h.chain.BestSnapshot()

	// Signed by a key other than the staker's.
	forged := h.stakeBlock(&tip.Hash, key, source, 3)
	blockHash := forged.Block().BlockHash()
	sig, err := other.Sign(blockHash[:])
	require.NoError(t, err)
	forged.Block().Signature = sig.Serialize()
	_, err = h.chain.ProcessBlock(forged, BFNone)
	assert.True(t, IsErrorCode(err, ErrBadBlockSignature), "got %v", err)
	assert.Equal(t, 100, DoSScore(err))
	assert.Equal(t, tip.Hash, h.chain.BestSnapshot().Hash)

	block := h.stakeBlock(&tip.Hash, key, source, 1)
	kernel := hash.HashH([]byte("kernel"))
	stake.On("CheckProofOfStake", tip.Hash, block.Block().Header.Difficulty).
		Return(kernel, big.NewInt(1), nil).Once()
	h.process(block)

	best := h.chain.BestSnapshot()
	assert.Equal(t, *block.Hash(), best.Hash)
	assert.Equal(t, tip.Height+1, best.Height)
	node := h.chain.index.LookupNode(block.Hash())
	require.NotNil(t, node)
	assert.True(t, node.isProofOfStake())
	assert.Equal(t, kernel, node.proofHash)
	assert.Equal(t, uint64(7), node.stakeModifier)
	assert.False(t, h.spentMarkers(source.TxHash())[0].IsNull())

	// A sibling claiming the same stake is a duplicate.
	sibling := h.stakeBlock(&tip.Hash, key, source, 2)
	_, err = h.chain.ProcessBlock(sibling, BFNone)
	assert.True(t, IsErrorCode(err, ErrDuplicateStake), "got %v", err)
	assert.Equal(t, RaceCondition, ErrorKind(err))
	stake.AssertExpectations(t)
}
