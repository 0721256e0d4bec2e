// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txverify is the default input signature verifier.  It accepts the
// standard pay-to-pubkey and pay-to-pubkey-hash outputs.
package txverify

import (
	"bytes"
	"math/big"

	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcutil"
)

// halfOrder is used to tame ECDSA malleability.
var halfOrder = new(big.Int).Rsh(btcec.S256().N, 1)

// Verifier checks input signatures against the scripts they spend.
type Verifier struct{}

var _ blockchain.ScriptVerifier = Verifier{}

// New returns the default verifier.
func New() Verifier {
	return Verifier{}
}

// VerifySignature reports whether input idx of tx may spend prevOut under
// flags.
func (v Verifier) VerifySignature(prevOut *types.TxOutput, tx *types.Transaction, idx int,
	flags blockchain.ScriptFlags) bool {

	if idx < 0 || idx >= len(tx.TxIn) {
		return false
	}
	pushes, err := txscript.PushedData(tx.TxIn[idx].SignScript)
	if err != nil {
		log.Trace("Unparsable signature script", "tx", tx.TxHash(), "input", idx, "err", err)
		return false
	}
	pkPushes, err := txscript.PushedData(prevOut.PkScript)
	if err != nil {
		return false
	}

	var sig, pubKey []byte
	switch txscript.GetScriptClass(prevOut.PkScript) {
	case txscript.PubKeyTy:
		if len(pushes) != 1 || len(pkPushes) != 1 {
			return false
		}
		sig, pubKey = pushes[0], pkPushes[0]

	case txscript.PubKeyHashTy:
		if len(pushes) != 2 || len(pkPushes) != 1 {
			return false
		}
		sig, pubKey = pushes[0], pushes[1]
		if !bytes.Equal(btcutil.Hash160(pubKey), pkPushes[0]) {
			return false
		}

	default:
		return false
	}
	return checkSig(tx, idx, prevOut.PkScript, sig, pubKey, flags)
}

// checkSig verifies one signature with its trailing hash type over the
// signature hash of the input.
func checkSig(tx *types.Transaction, idx int, subScript, sigBytes, pkBytes []byte,
	flags blockchain.ScriptFlags) bool {

	if len(sigBytes) < 2 {
		return false
	}
	hashType := SigHashType(sigBytes[len(sigBytes)-1])
	sigBytes = sigBytes[:len(sigBytes)-1]
	if hashType != SigHashAll {
		return false
	}

	strict := flags&blockchain.ScriptVerifyStrictEncoding != 0
	if strict && !isStrictPubKeyEncoding(pkBytes) {
		return false
	}
	pubKey, err := btcec.ParsePubKey(pkBytes, btcec.S256())
	if err != nil {
		return false
	}

	var sig *btcec.Signature
	if strict {
		sig, err = btcec.ParseDERSignature(sigBytes, btcec.S256())
	} else {
		sig, err = btcec.ParseSignature(sigBytes, btcec.S256())
	}
	if err != nil {
		return false
	}
	if flags&blockchain.ScriptVerifyLowS != 0 && sig.S.Cmp(halfOrder) > 0 {
		return false
	}

	h, err := CalcSignatureHash(tx, idx, subScript, hashType)
	if err != nil {
		return false
	}
	return sig.Verify(h[:], pubKey)
}

// isStrictPubKeyEncoding returns whether the key is compressed or
// uncompressed.  Hybrid keys are rejected.
func isStrictPubKeyEncoding(pubKey []byte) bool {
	switch {
	case len(pubKey) == btcec.PubKeyBytesLenCompressed:
		return pubKey[0] == 0x02 || pubKey[0] == 0x03
	case len(pubKey) == btcec.PubKeyBytesLenUncompressed:
		return pubKey[0] == 0x04
	}
	return false
}
