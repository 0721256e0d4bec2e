// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTransaction(t *testing.T) {
	prev := hash.HashH([]byte("prev"))
	spend := func(mutate func(tx *types.Transaction)) *types.Transaction {
		tx := types.NewTransaction()
		tx.AddTxIn(types.NewTxInput(types.NewOutPoint(&prev, 0), opTrue))
		tx.AddTxOut(types.NewTxOutput(1000, opTrue))
		if mutate != nil {
			mutate(tx)
		}
		return tx
	}
	coinbase := func(script []byte) *types.Transaction {
		tx := types.NewTransaction()
		tx.AddTxIn(types.NewTxInput(types.NewOutPoint(&hash.ZeroHash, types.MaxPrevOutIndex), script))
		tx.AddTxOut(types.NewTxOutput(1000, opTrue))
		return tx
	}

	tests := []struct {
		name string
		tx   *types.Transaction
		code ErrorCode
		ok   bool
	}{
		{"valid spend", spend(nil), 0, true},
		{"valid coinbase", coinbase([]byte{0x51, 0x01, 0x02, 0x03}), 0, true},
		{"no inputs", spend(func(tx *types.Transaction) { tx.TxIn = nil }), ErrNoTxInputs, false},
		{"no outputs", spend(func(tx *types.Transaction) { tx.TxOut = nil }), ErrNoTxOutputs, false},
		{"negative output", spend(func(tx *types.Transaction) { tx.TxOut[0].Amount = -1 }),
			ErrBadTxOutValue, false},
		{"output above cap", spend(func(tx *types.Transaction) { tx.TxOut[0].Amount = types.MaxSingleTx + 1 }),
			ErrBadTxOutValue, false},
		{"total above cap", spend(func(tx *types.Transaction) {
			tx.TxOut[0].Amount = types.MaxSingleTx
			tx.AddTxOut(types.NewTxOutput(1, opTrue))
		}), ErrBadTxOutValue, false},
		{"empty user output", spend(func(tx *types.Transaction) { tx.TxOut[0].SetEmpty() }),
			ErrEmptyUserOutput, false},
		{"duplicate inputs", spend(func(tx *types.Transaction) {
			tx.AddTxIn(types.NewTxInput(types.NewOutPoint(&prev, 0), opTrue))
		}), ErrDuplicateTxInputs, false},
		{"null input", spend(func(tx *types.Transaction) {
			tx.AddTxIn(types.NewTxInput(types.NewOutPoint(&hash.ZeroHash, types.MaxPrevOutIndex), nil))
		}), ErrBadTxInput, false},
		{"short coinbase script", coinbase([]byte{0x51}), ErrBadCoinbaseScriptLen, false},
	}
	for _, test := range tests {
		err := CheckTransaction(test.tx)
		if test.ok {
			assert.NoError(t, err, test.name)
			continue
		}
		assert.True(t, IsErrorCode(err, test.code), "%s: got %v", test.name, err)
	}
}

func TestCountSigOps(t *testing.T) {
	tx := types.NewTransaction()
	tx.AddTxIn(types.NewTxInput(types.NewOutPoint(&hash.ZeroHash, 0), opTrue))
	tx.AddTxOut(types.NewTxOutput(1, []byte{txscript.OP_CHECKSIG}))
	tx.AddTxOut(types.NewTxOutput(1, []byte{txscript.OP_CHECKSIG, txscript.OP_CHECKSIG}))
	assert.Equal(t, 3, CountSigOps(tx))
}

func TestCheckCoinbaseHeight(t *testing.T) {
	h := &chainHarness{t: t, genesis: time.Unix(1547848800, 0)}
	cb := h.coinbase(200, 1)
	assert.NoError(t, checkCoinbaseHeight(cb, 200))
	assert.True(t, IsErrorCode(checkCoinbaseHeight(cb, 201), ErrBadCoinbaseHeight))
}

// stakeBlock returns a stake block whose coinstake pays the key.
func stakeBlock(t *testing.T, key *btcec.PrivateKey) *types.Block {
	script, err := txscript.NewScriptBuilder().AddData(key.PubKey().SerializeCompressed()).
		AddOp(txscript.OP_CHECKSIG).Script()
	require.NoError(t, err)

	cb := types.NewTransaction()
	cb.AddTxIn(types.NewTxInput(types.NewOutPoint(&hash.ZeroHash, types.MaxPrevOutIndex),
		[]byte{0x51, 0x00, 0x00}))
	empty := types.NewTxOutput(0, nil)
	empty.SetEmpty()
	cb.AddTxOut(empty)

	prev := hash.HashH([]byte("stake"))
	cs := types.NewTransaction()
	cs.AddTxIn(types.NewTxInput(types.NewOutPoint(&prev, 0), nil))
	marker := types.NewTxOutput(0, nil)
	marker.SetEmpty()
	cs.AddTxOut(marker)
	cs.AddTxOut(types.NewTxOutput(1000, script))

	return &types.Block{
		Header:       types.BlockHeader{Version: types.BlockVersion},
		Transactions: []*types.Transaction{cb, cs},
	}
}

func TestCheckBlockSignature(t *testing.T) {
	key, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)

	block := stakeBlock(t, key)
	require.True(t, block.IsProofOfStake())
	assert.False(t, checkBlockSignature(block))

	blockHash := block.BlockHash()
	sig, err := key.Sign(blockHash[:])
	require.NoError(t, err)
	block.Signature = sig.Serialize()
	assert.True(t, checkBlockSignature(block))
	assert.True(t, isCanonicalBlockSignature(block))

	// A signature by another key fails.
	other, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)
	sig, err = other.Sign(blockHash[:])
	require.NoError(t, err)
	block.Signature = sig.Serialize()
	assert.False(t, checkBlockSignature(block))

	// Work blocks must be unsigned.
	work := &types.Block{Transactions: block.Transactions[:1]}
	assert.True(t, checkBlockSignature(work))
	work.Signature = []byte{0x30}
	assert.False(t, checkBlockSignature(work))
}
