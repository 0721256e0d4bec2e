// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package params

import (
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/btcsuite/btcd/txscript"
)

const genesisTimestamp = "Elon Musk Wants to Embed AI-on-a-Chip Into Every Human Brain | JP Buntinx | January 18, 2019 | News, Technology | TheMerkle"

// genesisCoinbaseTx is the coinbase transaction for the genesis blocks.  Its
// only output is the empty marker, so the genesis block mints nothing
// spendable.
func genesisCoinbaseTx(timestamp int64) *types.Transaction {
	sigScript, err := txscript.NewScriptBuilder().
		AddInt64(0).
		AddInt64(42).
		AddData([]byte(genesisTimestamp)).
		Script()
	if err != nil {
		panic(err)
	}
	tx := &types.Transaction{
		Version:   types.TxVersion,
		Timestamp: time.Unix(timestamp, 0),
	}
	tx.AddTxIn(types.NewTxInput(types.NewOutPoint(&hash.ZeroHash, types.MaxPrevOutIndex), sigScript))
	tx.AddTxOut(&types.TxOutput{})
	return tx
}

func genesisBlock(timestamp int64, bits uint32, nonce uint32) *types.Block {
	coinbase := genesisCoinbaseTx(timestamp)
	return &types.Block{
		Header: types.BlockHeader{
			Version:    1,
			TxRoot:     types.CalcMerkleRoot([]*types.Tx{types.NewTx(coinbase)}),
			Timestamp:  time.Unix(timestamp, 0),
			Difficulty: bits,
			Nonce:      nonce,
		},
		Transactions: []*types.Transaction{coinbase},
	}
}
