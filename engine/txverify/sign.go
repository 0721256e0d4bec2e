// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txverify

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/txscript"
)

// SigHashType represents hash type bits at the end of a signature.
type SigHashType uint32

// SigHashAll is the only hash type accepted: the signature commits to every
// input and output.
const SigHashAll SigHashType = 0x1

// CalcSignatureHash returns the hash input idx of tx signs.  Every input
// script is blanked except the one being signed, which carries the script
// of the output it spends.
func CalcSignatureHash(tx *types.Transaction, idx int, subScript []byte,
	hashType SigHashType) (hash.Hash, error) {

	if idx < 0 || idx >= len(tx.TxIn) {
		return hash.Hash{}, fmt.Errorf("input index %d out of range (%d inputs)",
			idx, len(tx.TxIn))
	}

	txCopy := tx.Copy()
	for i := range txCopy.TxIn {
		if i == idx {
			txCopy.TxIn[i].SignScript = subScript
		} else {
			txCopy.TxIn[i].SignScript = nil
		}
	}

	var buf bytes.Buffer
	buf.Grow(txCopy.SerializeSize() + 4)
	if err := txCopy.Serialize(&buf); err != nil {
		return hash.Hash{}, err
	}
	var ht [4]byte
	binary.LittleEndian.PutUint32(ht[:], uint32(hashType))
	buf.Write(ht[:])
	return hash.DoubleHashH(buf.Bytes()), nil
}

// RawTxInSignature returns the serialized ECDSA signature for the input idx of
// the given transaction, with hashType appended to it.
func RawTxInSignature(tx *types.Transaction, idx int, subScript []byte,
	hashType SigHashType, key *btcec.PrivateKey) ([]byte, error) {

	h, err := CalcSignatureHash(tx, idx, subScript, hashType)
	if err != nil {
		return nil, err
	}
	sig, err := key.Sign(h[:])
	if err != nil {
		return nil, fmt.Errorf("cannot sign tx input: %s", err)
	}
	return append(sig.Serialize(), byte(hashType)), nil
}

// SignatureScript creates an input signature script for tx to spend coins sent
// from a previous output to the owner of privKey.  tx must include all
// transaction inputs and outputs, however txin scripts are allowed to be filled
// or empty.  subscript is the PkScript of the previous output being used as
// the idx'th input.  The public key is serialized compressed or not based on
// compress; this must match the pubkey hash in the spent script.
func SignatureScript(tx *types.Transaction, idx int, subscript []byte,
	hashType SigHashType, privKey *btcec.PrivateKey, compress bool) ([]byte, error) {

	sig, err := RawTxInSignature(tx, idx, subscript, hashType, privKey)
	if err != nil {
		return nil, err
	}

	var pkData []byte
	if compress {
		pkData = privKey.PubKey().SerializeCompressed()
	} else {
		pkData = privKey.PubKey().SerializeUncompressed()
	}
	return txscript.NewScriptBuilder().AddData(sig).AddData(pkData).Script()
}

// P2PKSignatureScript constructs a pay-to-pubkey signature script.
func P2PKSignatureScript(tx *types.Transaction, idx int, subScript []byte,
	hashType SigHashType, privKey *btcec.PrivateKey) ([]byte, error) {

	sig, err := RawTxInSignature(tx, idx, subScript, hashType, privKey)
	if err != nil {
		return nil, err
	}
	return txscript.NewScriptBuilder().AddData(sig).Script()
}
