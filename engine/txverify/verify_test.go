// Copyright (c) 2017-2018 The qitmeer developers

package txverify

import (
	"testing"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p2pkhScript(t *testing.T, key *btcec.PrivateKey) []byte {
	script, err := txscript.NewScriptBuilder().AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).AddData(btcutil.Hash160(key.PubKey().SerializeCompressed())).
		AddOp(txscript.OP_EQUALVERIFY).AddOp(txscript.OP_CHECKSIG).Script()
	require.NoError(t, err)
	return script
}

func p2pkScript(t *testing.T, key *btcec.PrivateKey) []byte {
	script, err := txscript.NewScriptBuilder().AddData(key.PubKey().SerializeCompressed()).
		AddOp(txscript.OP_CHECKSIG).Script()
	require.NoError(t, err)
	return script
}

func spendingTx() *types.Transaction {
	prev := hash.HashH([]byte("prev"))
	tx := types.NewTransaction()
	tx.AddTxIn(types.NewTxInput(types.NewOutPoint(&prev, 0), nil))
	tx.AddTxIn(types.NewTxInput(types.NewOutPoint(&prev, 1), nil))
	tx.AddTxOut(types.NewTxOutput(5000, []byte{txscript.OP_TRUE}))
	return tx
}

func TestVerifyPayToPubKeyHash(t *testing.T) {
	key, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)
	prevOut := types.NewTxOutput(10000, p2pkhScript(t, key))

	tx := spendingTx()
	script, err := SignatureScript(tx, 0, prevOut.PkScript, SigHashAll, key, true)
	require.NoError(t, err)
	tx.TxIn[0].SignScript = script

	v := New()
	for _, flags := range []blockchain.ScriptFlags{blockchain.MandatoryScriptFlags,
		blockchain.StandardScriptFlags} {
		assert.True(t, v.VerifySignature(prevOut, tx, 0, flags))
	}

	// The signature does not carry over to another input.
	tx.TxIn[1].SignScript = script
	assert.False(t, v.VerifySignature(prevOut, tx, 1, blockchain.StandardScriptFlags))

	// An uncompressed key does not match the compressed key hash.
	uncompressed, err := SignatureScript(tx, 0, prevOut.PkScript, SigHashAll, key, false)
	require.NoError(t, err)
	tx.TxIn[0].SignScript = uncompressed
	assert.False(t, v.VerifySignature(prevOut, tx, 0, blockchain.StandardScriptFlags))

	// Changing an output breaks the signature.
	tx.TxIn[0].SignScript = script
	tx.TxOut[0].Amount++
	assert.False(t, v.VerifySignature(prevOut, tx, 0, blockchain.StandardScriptFlags))
}

func TestVerifyPayToPubKey(t *testing.T) {
	key, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)
	other, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)
	prevOut := types.NewTxOutput(10000, p2pkScript(t, key))

	tx := spendingTx()
	script, err := P2PKSignatureScript(tx, 1, prevOut.PkScript, SigHashAll, key)
	require.NoError(t, err)
	tx.TxIn[1].SignScript = script
	assert.True(t, New().VerifySignature(prevOut, tx, 1, blockchain.StandardScriptFlags))

	forged, err := P2PKSignatureScript(tx, 1, prevOut.PkScript, SigHashAll, other)
	require.NoError(t, err)
	tx.TxIn[1].SignScript = forged
	assert.False(t, New().VerifySignature(prevOut, tx, 1, blockchain.StandardScriptFlags))
}

func TestVerifyRejectsOddInputs(t *testing.T) {
	key, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)
	tx := spendingTx()
	v := New()

	nonStandard := types.NewTxOutput(1, []byte{txscript.OP_TRUE})
	assert.False(t, v.VerifySignature(nonStandard, tx, 0, blockchain.MandatoryScriptFlags))

	prevOut := types.NewTxOutput(1, p2pkScript(t, key))
	assert.False(t, v.VerifySignature(prevOut, tx, 5, blockchain.MandatoryScriptFlags))

	// Only the all hash type is accepted.
	sig, err := RawTxInSignature(tx, 0, prevOut.PkScript, 0x3, key)
	require.NoError(t, err)
	tx.TxIn[0].SignScript, err = txscript.NewScriptBuilder().AddData(sig).Script()
	require.NoError(t, err)
	assert.False(t, v.VerifySignature(prevOut, tx, 0, blockchain.MandatoryScriptFlags))
}

func TestCalcSignatureHash(t *testing.T) {
	tx := spendingTx()
	a, err := CalcSignatureHash(tx, 0, []byte{0x51}, SigHashAll)
	require.NoError(t, err)
	b, err := CalcSignatureHash(tx, 1, []byte{0x51}, SigHashAll)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	// Existing input scripts do not change the hash.
	tx.TxIn[1].SignScript = []byte{0x01, 0x02}
	c, err := CalcSignatureHash(tx, 0, []byte{0x51}, SigHashAll)
	require.NoError(t, err)
	assert.Equal(t, a, c)

	_, err = CalcSignatureHash(tx, 2, nil, SigHashAll)
	assert.Error(t, err)
}
