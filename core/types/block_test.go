// Copyright (c) 2017-2018 The qitmeer developers

package types

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockKinds(t *testing.T) {
	pow := &Block{Transactions: []*Transaction{coinbaseTx()}}
	assert.True(t, pow.IsProofOfWork())
	assert.Equal(t, StakeKey{}, pow.ProofOfStake())

	cs := coinstakeTx()
	pos := &Block{Transactions: []*Transaction{coinbaseTx(), cs}}
	assert.True(t, pos.IsProofOfStake())
	key := pos.ProofOfStake()
	assert.Equal(t, cs.TxIn[0].PreviousOut, key.PrevOut)
	assert.Equal(t, cs.Timestamp.Unix(), key.Time)
}

func TestBlockBytesAndTxLoc(t *testing.T) {
	block := &Block{
		Header: BlockHeader{
			Version:    BlockVersion,
			Timestamp:  time.Unix(1520198278, 0),
			Difficulty: 0x207fffff,
		},
		Transactions: []*Transaction{coinbaseTx(), coinstakeTx()},
		Signature:    []byte{0x30, 0x01},
	}
	sb := NewBlock(block)
	raw, err := sb.Bytes()
	require.NoError(t, err)
	assert.Equal(t, block.SerializeSize(), len(raw))

	for i, loc := range sb.TxLoc() {
		var tx Transaction
		require.NoError(t, tx.Deserialize(bytes.NewReader(raw[loc.TxStart:loc.TxStart+loc.TxLen])))
		assert.Equal(t, block.Transactions[i].TxHash(), tx.TxHash())
	}

	back, err := NewBlockFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, *sb.Hash(), *back.Hash())
	assert.Equal(t, block.Signature, back.Block().Signature)
}

func TestMerkleRoot(t *testing.T) {
	one := []*Tx{NewTx(coinbaseTx())}
	assert.Equal(t, *one[0].Hash(), CalcMerkleRoot(one))

	three := []*Tx{NewTx(coinbaseTx()), NewTx(coinstakeTx()), NewTx(coinstakeTx())}
	left := hashMerkleBranches(three[0].Hash(), three[1].Hash())
	right := hashMerkleBranches(three[2].Hash(), three[2].Hash())
	assert.Equal(t, *hashMerkleBranches(left, right), CalcMerkleRoot(three))
}
