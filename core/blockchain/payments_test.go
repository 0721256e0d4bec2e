// Copyright (c) 2017-2018 The qitmeer developers

package blockchain

import (
	"testing"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPayees struct {
	winner []byte
	valid  map[string]bool
}

func (s *stubPayees) GetWinningMasternode(int64) ([]byte, *types.TxOutPoint, bool) {
	if s.winner == nil {
		return nil, nil, false
	}
	return s.winner, nil, true
}

func (s *stubPayees) IsPayeeAValidMasternode(script []byte) bool {
	return s.valid[string(script)]
}

type stubLocks map[types.TxOutPoint]hash.Hash

func (s stubLocks) LockedBy(op *types.TxOutPoint) (hash.Hash, bool) {
	h, ok := s[*op]
	return h, ok
}

// payBlock returns a work block whose coinbase has outs, or a stake block
// whose coinstake carries the marker followed by outs.
func payBlock(pos bool, outs ...*types.TxOutput) *types.Block {
	cb := types.NewTransaction()
	cb.AddTxIn(types.NewTxInput(types.NewOutPoint(&hash.ZeroHash, types.MaxPrevOutIndex),
		[]byte{0x51, 0x00}))
	if !pos {
		cb.TxOut = outs
		return &types.Block{Transactions: []*types.Transaction{cb}}
	}
	cb.AddTxOut(types.NewTxOutput(0, nil))

	prev := hash.HashH([]byte("stake"))
	cs := types.NewTransaction()
	cs.AddTxIn(types.NewTxInput(types.NewOutPoint(&prev, 0), nil))
	cs.AddTxOut(types.NewTxOutput(0, nil))
	cs.TxOut = append(cs.TxOut, outs...)
	return &types.Block{Transactions: []*types.Transaction{cb, cs}}
}

func payChain(par *params.Params, payees PayeeOracle, advancedRelay bool) *BlockChain {
	return &BlockChain{
		params:                  par,
		timeSource:              &fixedTime{now: time.Unix(par.PaymentUpdate3, 0).Add(24 * time.Hour)},
		payees:                  payees,
		masternodeAdvancedRelay: advancedRelay,
	}
}

func TestCheckPaymentQuota(t *testing.T) {
	par := params.MainNetParams
	const height = 60
	gen1 := par.PaymentUpdate1 + 1
	gen2 := par.PaymentUpdate2 + 1
	gen3 := par.PaymentUpdate3 + 1

	coin := types.Amount(types.AtomsPerCoin)
	mnPay := GetMasternodePayment(&par, height, gen1)
	require.Equal(t, 150*coin, mnPay)
	devPay := GetDevopsPayment(&par, gen1)
	require.Equal(t, 50*coin, devPay)

	oldDev := par.DevopsScript(gen1)
	newDev := par.DevopsScript(gen2)
	require.NotEqual(t, oldDev, newDev)
	out := types.NewTxOutput
	miner := out(300*coin, opTrue)
	stake := out(1000*coin, opTrue)
	mn := func(amount types.Amount) *types.TxOutput { return out(amount, []byte{0x51, 0x51}) }

	tests := []struct {
		name    string
		tipTime int64
		block   *types.Block
		ok      bool
	}{
		{"before first update", par.PaymentUpdate1, payBlock(false, miner), true},
		{"exact", gen1, payBlock(false, miner, mn(mnPay), out(devPay, oldDev)), true},
		{"short masternode", gen1, payBlock(false, miner, mn(mnPay-coin), out(devPay, oldDev)), false},
		{"extra masternode", gen1, payBlock(false, miner, mn(mnPay+coin), out(devPay, oldDev)), false},
		{"devops to new address early", gen1, payBlock(false, miner, mn(mnPay), out(devPay, newDev)), false},
		{"devops paid extra early", gen1, payBlock(false, miner, mn(mnPay), out(devPay+coin, oldDev)), false},
		{"extra coinbase output", gen1, payBlock(false, miner, mn(mnPay), out(devPay, oldDev), out(coin, opTrue)), false},
		{"missing coinbase output", gen1, payBlock(false, miner, mn(mnPay)), false},
		{"old address in transition", gen2, payBlock(false, miner, mn(mnPay), out(devPay, oldDev)), true},
		{"new address in transition", gen2, payBlock(false, miner, mn(mnPay), out(devPay, newDev)), true},
		{"devops paid extra", gen2, payBlock(false, miner, mn(mnPay), out(devPay+coin, newDev)), true},
		{"devops short", gen2, payBlock(false, miner, mn(mnPay), out(devPay-coin, newDev)), false},
		{"old address after transition", gen3, payBlock(false, miner, mn(mnPay), out(devPay, oldDev)), false},
		{"new address after transition", gen3, payBlock(false, miner, mn(mnPay), out(devPay, newDev)), true},
		{"stake four outputs", gen3, payBlock(true, stake, mn(mnPay), out(devPay, newDev)), true},
		{"stake five outputs", gen3, payBlock(true, stake, stake, mn(mnPay), out(devPay, newDev)), true},
		{"stake three outputs", gen3, payBlock(true, stake, mn(mnPay)), false},
		{"stake short masternode", gen3, payBlock(true, stake, mn(mnPay-coin), out(devPay, newDev)), false},
	}
	chain := payChain(&par, nil, false)
	for _, test := range tests {
		tip := &blockNode{height: height, timestamp: test.tipTime}
		err := chain.checkPaymentQuota(test.block, tip, false)
		if test.ok {
			assert.NoError(t, err, test.name)
			continue
		}
		assert.True(t, IsErrorCode(err, ErrBadPayments), "%s: got %v", test.name, err)
		assert.Equal(t, 100, DoSScore(err), test.name)
		assert.Equal(t, ConsensusFault, ErrorKind(err), test.name)
	}
}

func TestMasternodeAdvancedRelay(t *testing.T) {
	par := params.MainNetParams
	tipTime := par.PaymentUpdate3 + 1
	tip := &blockNode{height: 60, timestamp: tipTime}
	mnPay := GetMasternodePayment(&par, tip.height, tipTime)
	dev := types.NewTxOutput(GetDevopsPayment(&par, tipTime), par.DevopsScript(tipTime))
	winner := []byte{0x52, 0x52}
	payees := &stubPayees{winner: winner, valid: map[string]bool{string(winner): true}}

	paying := func(script []byte) *types.Block {
		return payBlock(false, types.NewTxOutput(types.AtomsPerCoin, opTrue),
			types.NewTxOutput(mnPay, script), dev)
	}

	chain := payChain(&par, payees, true)
	assert.NoError(t, chain.checkPaymentQuota(paying(winner), tip, false))
	assert.NoError(t, chain.checkPaymentQuota(paying(par.DevopsScript(tipTime)), tip, false))

	err := chain.checkPaymentQuota(paying([]byte{0x53}), tip, false)
	assert.True(t, IsErrorCode(err, ErrBadPayments), "got %v", err)
	assert.Equal(t, 100, DoSScore(err))

	// Unknown payees pass while syncing and shortly after.
	assert.NoError(t, chain.checkPaymentQuota(paying([]byte{0x53}), tip, true))
	chain.lastIBDTime = chain.timeSource.AdjustedTime().Unix() - 60
	assert.NoError(t, chain.checkPaymentQuota(paying([]byte{0x53}), tip, false))

	// Without advanced relay they are only logged.
	chain = payChain(&par, payees, false)
	assert.NoError(t, chain.checkPaymentQuota(paying([]byte{0x53}), tip, false))
}

func TestCheckMasternodePayee(t *testing.T) {
	par := params.MainNetParams
	winner := []byte{0x52, 0x52}
	tip := &blockNode{hash: hash.HashH([]byte("tip")), height: 60,
		timestamp: par.MasternodePaymentsStart + 600}
	blockTime := time.Unix(tip.timestamp+60, 0)

	stakeOut := types.NewTxOutput(1000*types.AtomsPerCoin, opTrue)
	build := func(outs ...*types.TxOutput) *types.Block {
		block := payBlock(true, outs...)
		block.Header.PrevBlock = tip.hash
		block.Header.Timestamp = blockTime
		return block
	}
	paid := build(stakeOut, types.NewTxOutput(40*types.AtomsPerCoin, winner))
	wrongAmount := build(types.NewTxOutput(40*types.AtomsPerCoin, winner),
		types.NewTxOutput(30*types.AtomsPerCoin, opTrue))
	unpaid := build(stakeOut, types.NewTxOutput(40*types.AtomsPerCoin, opTrue))

	chain := payChain(&par, &stubPayees{winner: winner}, false)
	chain.bestNode = tip

	tests := []struct {
		name  string
		block *types.Block
		isIBD bool
		ok    bool
	}{
		{"pays winner", paid, false, true},
		{"winner paid another amount", wrongAmount, false, false},
		{"winner not paid", unpaid, false, false},
		{"syncing", unpaid, true, true},
		{"work block", payBlock(false, stakeOut), false, true},
	}
	for _, test := range tests {
		err := chain.checkMasternodePayee(test.block, tip, test.isIBD)
		if test.ok {
			assert.NoError(t, err, test.name)
			continue
		}
		assert.True(t, IsErrorCode(err, ErrMasternodePayee), "%s: got %v", test.name, err)
		assert.Equal(t, 100, DoSScore(err), test.name)
	}

	// Only blocks on the best tip are checked.
	side := &blockNode{hash: hash.HashH([]byte("side")), height: 60, timestamp: tip.timestamp}
	assert.NoError(t, chain.checkMasternodePayee(unpaid, side, false))

	// Nothing to enforce without a winner.
	chain.payees = &stubPayees{}
	assert.NoError(t, chain.checkMasternodePayee(unpaid, tip, false))
}

func TestCheckTxLocks(t *testing.T) {
	prev := hash.HashH([]byte("locked"))
	spend := types.NewTransaction()
	spend.AddTxIn(types.NewTxInput(types.NewOutPoint(&prev, 0), opTrue))
	spend.AddTxOut(types.NewTxOutput(types.AtomsPerCoin, opTrue))
	block := payBlock(false, types.NewTxOutput(types.AtomsPerCoin, opTrue))
	block.Transactions = append(block.Transactions, spend)
	sb := types.NewBlock(block)

	locks := stubLocks{}
	chain := &BlockChain{locks: locks}
	assert.NoError(t, chain.checkTxLocks(sb))

	locks[spend.TxIn[0].PreviousOut] = spend.TxHash()
	assert.NoError(t, chain.checkTxLocks(sb))

	locks[spend.TxIn[0].PreviousOut] = hash.HashH([]byte("other"))
	err := chain.checkTxLocks(sb)
	assert.True(t, IsErrorCode(err, ErrTxLockConflict), "got %v", err)
	assert.Equal(t, RaceCondition, ErrorKind(err))
	assert.Equal(t, 0, DoSScore(err))

	// Coinbase inputs are never locked.
	locks = stubLocks{block.Transactions[0].TxIn[0].PreviousOut: hash.HashH([]byte("other"))}
	chain.locks = locks
	assert.NoError(t, chain.checkTxLocks(sb))
}
