// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2017-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
	"time"

	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/btcsuite/btcd/txscript"
)

// checkTransactionStandard performs a series of checks on a transaction to
// ensure it is a "standard" transaction.  A standard transaction is one that
// conforms to several additional limiting cases over what is considered a
// "sane" transaction such as having a version in the supported range, being
// finalized, conforming to more stringent size constraints, having scripts
// of recognized forms, and not containing empty payments.
func checkTransactionStandard(tx *types.Tx, height int64, adjustedTime time.Time) error {
	msgTx := tx.Transaction()
	if msgTx.Version > types.TxVersion || msgTx.Version < 1 {
		str := fmt.Sprintf("transaction version %d is not in the "+
			"valid range of %d-%d", msgTx.Version, 1, types.TxVersion)
		return txRuleError(RejectNonstandard, str)
	}

	// The transaction must be finalized to be standard and therefore
	// considered for inclusion in the next block.
	if !msgTx.IsFinal(height, adjustedTime.Unix()) {
		return txRuleError(RejectNonstandard,
			"transaction is not finalized")
	}

	if msgTx.Timestamp.Unix() > adjustedTime.Unix()+maxTxTimeDrift {
		str := fmt.Sprintf("transaction time %v is too far in the future",
			msgTx.Timestamp)
		return txRuleError(RejectNonstandard, str)
	}

	// Since extremely large transactions with a lot of inputs can cost
	// almost as much to process as the sender fees, limit the maximum
	// size of a transaction.  This also helps mitigate CPU exhaustion
	// attacks.
	serializedLen := msgTx.SerializeSize()
	if serializedLen >= maxStandardTxSize {
		str := fmt.Sprintf("transaction size of %v is larger than max "+
			"allowed size of %v", serializedLen, maxStandardTxSize)
		return txRuleError(RejectNonstandard, str)
	}

	for i, txIn := range msgTx.TxIn {
		// Each transaction input signature script must not exceed the
		// maximum size allowed for a standard transaction.  See
		// the comment on maxStandardSigScriptSize for more details.
		sigScriptLen := len(txIn.SignScript)
		if sigScriptLen > maxStandardSigScriptSize {
			str := fmt.Sprintf("transaction input %d: signature "+
				"script size of %d bytes is large than max "+
				"allowed size of %d bytes", i, sigScriptLen,
				maxStandardSigScriptSize)
			return txRuleError(RejectNonstandard, str)
		}

		// Each transaction input signature script must only contain
		// opcodes which push data onto the stack.
		if !txscript.IsPushOnlyScript(txIn.SignScript) {
			str := fmt.Sprintf("transaction input %d: signature "+
				"script is not push only", i)
			return txRuleError(RejectNonstandard, str)
		}
	}

	// None of the output public key scripts can be a non-standard script or
	// pay nothing (except when the script is a null data script).
	numNullDataOutputs := 0
	for i, txOut := range msgTx.TxOut {
		scriptClass := txscript.GetScriptClass(txOut.PkScript)
		err := checkPkScriptStandard(txOut.PkScript, scriptClass)
		if err != nil {
			// Attempt to extract a reject code from the error so
			// it can be retained.  When not possible, fall back to
			// a non standard error.
			rejectCode, found := extractRejectCode(err)
			if !found {
				rejectCode = RejectNonstandard
			}
			str := fmt.Sprintf("transaction output %d: %v", i, err)
			return txRuleError(rejectCode, str)
		}

		if scriptClass == txscript.NullDataTy {
			numNullDataOutputs++
		} else if isDust(txOut) {
			str := fmt.Sprintf("transaction output %d: payment "+
				"of %d is dust", i, txOut.Amount)
			return txRuleError(RejectDust, str)
		}
	}

	if numNullDataOutputs > maxNullDataOutputs {
		str := "more than one transaction output in a nulldata script"
		return txRuleError(RejectNonstandard, str)
	}

	return nil
}

// checkPkScriptStandard performs a series of checks on a transaction output
// script (public key script) to ensure it is a "standard" public key script.
// A standard public key script is one that is a recognized form, and for
// multi-signature scripts, only contains from 1 to maxStandardMultiSigKeys
// public keys.
func checkPkScriptStandard(pkScript []byte, scriptClass txscript.ScriptClass) error {
	switch scriptClass {
	case txscript.MultiSigTy:
		numPubKeys, numSigs, err := txscript.CalcMultiSigStats(pkScript)
		if err != nil {
			str := fmt.Sprintf("multi-signature script parse "+
				"failure: %v", err)
			return txRuleError(RejectNonstandard, str)
		}

		// A standard multi-signature public key script must contain
		// from 1 to maxStandardMultiSigKeys public keys.
		if numPubKeys < 1 {
			str := "multi-signature script with no pubkeys"
			return txRuleError(RejectNonstandard, str)
		}
		if numPubKeys > maxStandardMultiSigKeys {
			str := fmt.Sprintf("multi-signature script with %d "+
				"public keys which is more than the allowed "+
				"max of %d", numPubKeys, maxStandardMultiSigKeys)
			return txRuleError(RejectNonstandard, str)
		}

		// A standard multi-signature public key script must have at
		// least 1 signature and no more signatures than available
		// public keys.
		if numSigs < 1 {
			return txRuleError(RejectNonstandard,
				"multi-signature script with no signatures")
		}
		if numSigs > numPubKeys {
			str := fmt.Sprintf("multi-signature script with %d "+
				"signatures which is more than the available "+
				"%d public keys", numSigs, numPubKeys)
			return txRuleError(RejectNonstandard, str)
		}

	case txscript.NonStandardTy:
		return txRuleError(RejectNonstandard,
			"non-standard script form")
	}

	return nil
}

// isDust returns whether the output pays nothing.  Empty payments only
// bloat the output set.
func isDust(txOut *types.TxOutput) bool {
	return txOut.Amount == 0
}

// checkPoolDoubleSpend checks whether or not the passed transaction is
// attempting to spend coins already spent by other transactions in the pool.
// Note it does not check for double spends against transactions already in the
// main chain.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) checkPoolDoubleSpend(tx *types.Tx) error {
	for _, txIn := range tx.Transaction().TxIn {
		if txR, exists := mp.outpoints[txIn.PreviousOut]; exists {
			str := fmt.Sprintf("transaction %v in the pool "+
				"already spends the same coins", txR.Hash())
			return txRuleError(RejectDuplicate, str)
		}
	}
	return nil
}

// checkTxLocks rejects a transaction spending an outpoint locked to another
// transaction.
func (mp *TxPool) checkTxLocks(tx *types.Tx) error {
	if mp.cfg.TxLocks == nil {
		return nil
	}
	for _, txIn := range tx.Transaction().TxIn {
		locked, ok := mp.cfg.TxLocks.LockedBy(&txIn.PreviousOut)
		if ok && !locked.IsEqual(tx.Hash()) {
			str := fmt.Sprintf("input %v is locked to transaction %v",
				txIn.PreviousOut, locked)
			return txRuleError(RejectDuplicate, str)
		}
	}
	return nil
}

// checkInputsStandard performs a series of checks on a transaction's inputs
// to ensure they are "standard".  A standard transaction input is one whose
// referenced public key script is of a standard form, whose signature script
// pushes exactly the items the form expects and, for pay-to-script-hash, does
// not have more than maxStandardP2SHSigOps signature operations.
func checkInputsStandard(tx *types.Tx, inputs blockchain.InputSet) error {
	for i, txIn := range tx.Transaction().TxIn {
		// It is safe to elide existence and index checks here since
		// they have already been checked prior to calling this
		// function.
		originPkScript := inputs.Output(&txIn.PreviousOut).PkScript
		info, err := txscript.CalcScriptInfo(txIn.SignScript, originPkScript, nil, true, false)
		if err != nil {
			str := fmt.Sprintf("transaction input #%d: %v", i, err)
			return txRuleError(RejectNonstandard, str)
		}
		if info.ExpectedInputs < 0 {
			str := fmt.Sprintf("transaction input #%d has a "+
				"non-standard script form", i)
			return txRuleError(RejectNonstandard, str)
		}
		if info.NumInputs != info.ExpectedInputs {
			str := fmt.Sprintf("transaction input #%d pushes %d items "+
				"instead of %d", i, info.NumInputs, info.ExpectedInputs)
			return txRuleError(RejectNonstandard, str)
		}

		if info.PkScriptClass == txscript.ScriptHashTy {
			numSigOps := txscript.GetPreciseSigOpCount(
				txIn.SignScript, originPkScript, true)
			if numSigOps > maxStandardP2SHSigOps {
				str := fmt.Sprintf("transaction input #%d has "+
					"%d signature operations which is more "+
					"than the allowed max amount of %d",
					i, numSigOps, maxStandardP2SHSigOps)
				return txRuleError(RejectNonstandard, str)
			}
		}
	}

	return nil
}

// countP2SHSigOps returns the signature operations of the pay-to-script-hash
// redeem scripts among the inputs.
func countP2SHSigOps(tx *types.Tx, inputs blockchain.InputSet) int {
	numSigOps := 0
	for _, txIn := range tx.Transaction().TxIn {
		prevOut := inputs.Output(&txIn.PreviousOut)
		if prevOut == nil || !txscript.IsPayToScriptHash(prevOut.PkScript) {
			continue
		}
		numSigOps += txscript.GetPreciseSigOpCount(txIn.SignScript,
			prevOut.PkScript, true)
	}
	return numSigOps
}
