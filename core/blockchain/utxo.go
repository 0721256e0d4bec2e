// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2015-2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/database"
)

// InputSource is a resolved previous transaction: its index entry, with the
// spend markers, and its body.
type InputSource struct {
	Entry *TxIndexEntry
	Tx    *types.Transaction

	// node is the block holding Tx, nil for pool transactions.
	node *blockNode
}

// Height returns the height of the block holding the transaction, or -1 when
// it only lives in the pool.
func (s *InputSource) Height() int64 {
	if s.node == nil {
		return -1
	}
	return s.node.height
}

// InputSet maps previous transaction hashes to their resolution.
type InputSet map[hash.Hash]*InputSource

// Output returns the previous output an input refers to, or nil.
func (s InputSet) Output(op *types.TxOutPoint) *types.TxOutput {
	src, ok := s[op.Hash]
	if !ok || int(op.OutIndex) >= len(src.Tx.TxOut) {
		return nil
	}
	return src.Tx.TxOut[op.OutIndex]
}

// txOverlay holds the index entries written while a block connects, ahead
// of the database.
type txOverlay map[hash.Hash]*TxIndexEntry

// fetchInputs resolves every input of tx.  Blocks look in the overlay first,
// then the index; pool candidates fall back to the pool.  An input that
// cannot be found is reported as ErrMissingTxOut.
func (b *BlockChain) fetchInputs(dbTx database.Tx, tx *types.Transaction, queued txOverlay,
	isBlock bool, poolLookup func(*hash.Hash) *types.Tx) (InputSet, error) {

	inputs := make(InputSet)
	if tx.IsCoinBase() {
		return inputs, nil
	}

	for _, txIn := range tx.TxIn {
		prevHash := txIn.PreviousOut.Hash
		if _, ok := inputs[prevHash]; ok {
			continue
		}

		var entry *TxIndexEntry
		if isBlock {
			entry = queued[prevHash]
		}
		if entry == nil {
			var err error
			entry, err = dbFetchTxIndex(dbTx, &prevHash)
			if err != nil {
				return nil, dbError(err, "fetch tx index")
			}
		}

		if entry == nil || entry.Pos.IsMempool() {
			if isBlock || poolLookup == nil {
				str := fmt.Sprintf("input %v of %v not found",
					txIn.PreviousOut, tx.TxHash())
				return nil, ruleError(ErrMissingTxOut, str)
			}
			poolTx := poolLookup(&prevHash)
			if poolTx == nil {
				str := fmt.Sprintf("input %v of %v not in chain or pool",
					txIn.PreviousOut, tx.TxHash())
				return nil, ruleError(ErrMissingTxOut, str)
			}
			if entry == nil {
				entry = newTxIndexEntry(mempoolTxPos, len(poolTx.Tx.TxOut))
			}
			inputs[prevHash] = &InputSource{Entry: entry, Tx: poolTx.Tx}
			continue
		}

		prevTx, prevNode, err := b.readTx(entry.Pos)
		if err != nil {
			return nil, dbError(err, fmt.Sprintf("read tx %v", prevHash))
		}
		inputs[prevHash] = &InputSource{Entry: entry, Tx: prevTx, node: prevNode}
	}

	// Make sure all prevout indexes are valid.
	for _, txIn := range tx.TxIn {
		src := inputs[txIn.PreviousOut.Hash]
		idx := int(txIn.PreviousOut.OutIndex)
		if idx >= len(src.Tx.TxOut) || idx >= len(src.Entry.Spent) {
			str := fmt.Sprintf("input %v references output %d of %d",
				txIn.PreviousOut, idx, len(src.Tx.TxOut))
			return nil, ruleError(ErrBadTxInputIndex, str)
		}
	}
	return inputs, nil
}

// isConfirmedInNPrevBlocks reports whether pos lies in node or one of its
// ancestors less than depth blocks below it.
func isConfirmedInNPrevBlocks(pos DiskTxPos, node *blockNode, depth int64) bool {
	for n := node; n != nil && node.height-n.height < depth; n = n.parent {
		if n.location.File == pos.File && n.location.Offset == pos.BlockPos {
			return true
		}
	}
	return false
}

// connectInputs validates the inputs of tx and marks them spent at pos.
// Cheap checks run on every input before any signature is verified.  In
// block mode the updated entries are queued in the overlay.  It returns the
// total input value and the fee.
func (b *BlockChain) connectInputs(tx *types.Tx, inputs InputSet, queued txOverlay,
	pos DiskTxPos, node *blockNode, isBlock bool, flags ScriptFlags) (types.Amount, types.Amount, error) {

	msgTx := tx.Tx
	if msgTx.IsCoinBase() {
		return 0, 0, nil
	}

	var valueIn types.Amount
	for _, txIn := range msgTx.TxIn {
		prevOut := &txIn.PreviousOut
		src := inputs[prevOut.Hash]
		if src == nil {
			return 0, 0, assertError("input %v of %v not fetched", prevOut, tx.Hash())
		}
		if int(prevOut.OutIndex) >= len(src.Tx.TxOut) || int(prevOut.OutIndex) >= len(src.Entry.Spent) {
			str := fmt.Sprintf("input %v out of range", prevOut)
			return 0, 0, ruleError(ErrBadTxInputIndex, str)
		}

		// Coinbase and coinstake outputs need to mature.
		if src.Tx.IsCoinBase() || src.Tx.IsCoinStake() {
			if isConfirmedInNPrevBlocks(src.Entry.Pos, node, b.params.CoinbaseMaturity) {
				str := fmt.Sprintf("tried to spend immature output %v", prevOut)
				return 0, 0, ruleError(ErrImmatureSpend, str)
			}
		}

		if src.Tx.Timestamp.After(msgTx.Timestamp) {
			str := fmt.Sprintf("transaction %v is older than its input %v",
				tx.Hash(), prevOut.Hash)
			return 0, 0, ruleError(ErrTxTimeBeforeInput, str)
		}

		prevTxOut := src.Tx.TxOut[prevOut.OutIndex]
		if prevTxOut.IsEmpty() {
			str := fmt.Sprintf("input %v spends an empty output", prevOut)
			return 0, 0, ruleError(ErrSpendMarker, str)
		}

		valueIn += prevTxOut.Amount
		if !types.MoneyRange(prevTxOut.Amount) || !types.MoneyRange(valueIn) {
			str := fmt.Sprintf("input values of %v out of range", tx.Hash())
			return 0, 0, ruleError(ErrBadTxInValue, str)
		}
	}

	skipSigs := isBlock && node.height <= b.checkpoints.TotalBlocksEstimate()
	for i, txIn := range msgTx.TxIn {
		prevOut := &txIn.PreviousOut
		src := inputs[prevOut.Hash]
		spent := src.Entry.Spent[prevOut.OutIndex]
		if !spent.IsNull() {
			str := fmt.Sprintf("output %v already spent at %v", prevOut, spent)
			return 0, 0, ruleError(ErrDoubleSpend, str)
		}

		if !skipSigs {
			prevTxOut := src.Tx.TxOut[prevOut.OutIndex]
			if !b.verifier.VerifySignature(prevTxOut, msgTx, i, flags) {
				if flags != MandatoryScriptFlags &&
					b.verifier.VerifySignature(prevTxOut, msgTx, i, MandatoryScriptFlags) {
					str := fmt.Sprintf("input %d of %v fails non-mandatory "+
						"script checks", i, tx.Hash())
					return 0, 0, ruleError(ErrNonMandatoryScript, str)
				}
				str := fmt.Sprintf("signature of input %d of %v is invalid", i, tx.Hash())
				return 0, 0, ruleError(ErrScriptValidation, str)
			}
		}

		src.Entry.Spent[prevOut.OutIndex] = pos
		if isBlock {
			queued[prevOut.Hash] = src.Entry
		}
	}

	if msgTx.IsCoinStake() {
		return valueIn, 0, nil
	}
	valueOut := msgTx.ValueOut()
	if valueIn < valueOut {
		str := fmt.Sprintf("total value of all transaction inputs for "+
			"transaction %v is %v which is less than the amount "+
			"spent of %v", tx.Hash(), valueIn, valueOut)
		return 0, 0, ruleError(ErrSpendTooHigh, str)
	}
	fee := valueIn - valueOut
	if !types.MoneyRange(fee) {
		return 0, 0, ruleError(ErrBadFees, "transaction fee out of range")
	}
	return valueIn, fee, nil
}

// disconnectInputs clears the spend markers tx set and removes its own
// index entry.  Removing an absent entry is not an error.
func disconnectInputs(dbTx database.Tx, tx *types.Tx) error {
	msgTx := tx.Tx
	if !msgTx.IsCoinBase() {
		for _, txIn := range msgTx.TxIn {
			prevOut := &txIn.PreviousOut
			entry, err := dbFetchTxIndex(dbTx, &prevOut.Hash)
			if err != nil {
				return dbError(err, "fetch tx index")
			}
			if entry == nil {
				str := fmt.Sprintf("index entry of %v missing", prevOut.Hash)
				return ruleError(ErrMissingTxIndex, str)
			}
			if int(prevOut.OutIndex) >= len(entry.Spent) {
				str := fmt.Sprintf("input %v out of range", prevOut)
				return ruleError(ErrBadTxInputIndex, str)
			}
			entry.Spent[prevOut.OutIndex] = DiskTxPos{}
			if err := dbPutTxIndex(dbTx, &prevOut.Hash, entry); err != nil {
				return dbError(err, "put tx index")
			}
		}
	}
	return dbError(dbRemoveTxIndex(dbTx, tx.Hash()), "remove tx index")
}

// FetchInputs resolves the inputs of a transaction against the best chain
// and the pool lookup.
//
// This function is safe for concurrent access.
func (b *BlockChain) FetchInputs(tx *types.Tx, poolLookup func(*hash.Hash) *types.Tx) (InputSet, error) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	var inputs InputSet
	err := b.db.View(func(dbTx database.Tx) error {
		var err error
		inputs, err = b.fetchInputs(dbTx, tx.Tx, nil, false, poolLookup)
		return err
	})
	return inputs, err
}

// CheckTransactionInputs runs the input rules of a pool candidate against a
// throwaway copy of the resolved inputs, as if it were mined on the best
// chain.  It returns the fee.
//
// This function is safe for concurrent access.
func (b *BlockChain) CheckTransactionInputs(tx *types.Tx, inputs InputSet, flags ScriptFlags) (types.Amount, error) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	scratch := make(InputSet, len(inputs))
	for h, src := range inputs {
		scratch[h] = &InputSource{Entry: src.Entry.clone(), Tx: src.Tx, node: src.node}
	}
	_, fee, err := b.connectInputs(tx, scratch, nil, mempoolTxPos, b.bestNode, false, flags)
	return fee, err
}

// HaveTransaction reports whether a transaction is confirmed on the best
// chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) HaveTransaction(txHash *hash.Hash) (bool, error) {
	var exists bool
	err := b.db.View(func(dbTx database.Tx) error {
		var err error
		exists, err = dbTx.Has(txIndexKey(txHash))
		return err
	})
	return exists, err
}

// FetchTxIndex returns the index entry of a confirmed transaction or nil.
//
// This function is safe for concurrent access.
func (b *BlockChain) FetchTxIndex(txHash *hash.Hash) (*TxIndexEntry, error) {
	var entry *TxIndexEntry
	err := b.db.View(func(dbTx database.Tx) error {
		var err error
		entry, err = dbFetchTxIndex(dbTx, txHash)
		return err
	})
	return entry, err
}
