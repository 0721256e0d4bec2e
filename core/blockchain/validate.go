// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"fmt"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/core/types/pow"
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/txscript"
)

// CheckTransaction performs some preliminary checks on a transaction to
// ensure it is sane.  These checks are context free.
func CheckTransaction(tx *types.Transaction) error {
	// A transaction must have at least one input.
	if len(tx.TxIn) == 0 {
		return ruleError(ErrNoTxInputs, "transaction has no inputs")
	}

	// A transaction must have at least one output.
	if len(tx.TxOut) == 0 {
		return ruleError(ErrNoTxOutputs, "transaction has no outputs")
	}

	// A transaction must not exceed the maximum allowed size when
	// serialized.
	serializedTxSize := tx.SerializeSize()
	if serializedTxSize > types.MaxBlockSize {
		str := fmt.Sprintf("serialized transaction is too big - got "+
			"%d, max %d", serializedTxSize, types.MaxBlockSize)
		return ruleError(ErrTxTooBig, str)
	}

	// Ensure the transaction amounts are in range.  Only coinbase and
	// coinstake transactions may carry the empty marker output.
	isCoinBase := tx.IsCoinBase()
	isCoinStake := tx.IsCoinStake()
	var totalAtom types.Amount
	for i, txOut := range tx.TxOut {
		if txOut.IsEmpty() && !isCoinBase && !isCoinStake {
			str := fmt.Sprintf("output %d of a user transaction is empty", i)
			return ruleError(ErrEmptyUserOutput, str)
		}
		if txOut.Amount < 0 {
			str := fmt.Sprintf("transaction output has negative "+
				"value of %v", txOut.Amount)
			return ruleError(ErrBadTxOutValue, str)
		}
		if txOut.Amount > types.MaxSingleTx {
			str := fmt.Sprintf("transaction output value of %v is "+
				"higher than max allowed value of %v", txOut.Amount,
				types.MaxSingleTx)
			return ruleError(ErrBadTxOutValue, str)
		}
		totalAtom += txOut.Amount
		if !types.MoneyRange(totalAtom) {
			str := fmt.Sprintf("total value of all transaction "+
				"outputs is %v which is out of range", totalAtom)
			return ruleError(ErrBadTxOutValue, str)
		}
	}

	// Check for duplicate transaction inputs.
	existingTxOut := make(map[types.TxOutPoint]struct{})
	for _, txIn := range tx.TxIn {
		if _, exists := existingTxOut[txIn.PreviousOut]; exists {
			return ruleError(ErrDuplicateTxInputs, "transaction "+
				"contains duplicate inputs")
		}
		existingTxOut[txIn.PreviousOut] = struct{}{}
	}

	// Coinbase script length must be between min and max length.
	if isCoinBase {
		slen := len(tx.TxIn[0].SignScript)
		if slen < MinCoinbaseScriptLen || slen > MaxCoinbaseScriptLen {
			str := fmt.Sprintf("coinbase transaction script "+
				"length of %d is out of range (min: %d, max: "+
				"%d)", slen, MinCoinbaseScriptLen,
				MaxCoinbaseScriptLen)
			return ruleError(ErrBadCoinbaseScriptLen, str)
		}
		return nil
	}

	// Previous transaction outputs referenced by the inputs to this
	// transaction must not be null.
	for _, txIn := range tx.TxIn {
		if txIn.PreviousOut.IsNull() {
			return ruleError(ErrBadTxInput, "transaction "+
				"input refers to previous output that "+
				"is null")
		}
	}
	return nil
}

// CountSigOps returns the number of signature operations for all transaction
// input and output scripts in the provided transaction.  This uses the
// quicker, but imprecise, signature operation counting mechanism from
// txscript.
func CountSigOps(tx *types.Transaction) int {
	totalSigOps := 0
	for _, txIn := range tx.TxIn {
		totalSigOps += txscript.GetSigOpCount(txIn.SignScript)
	}
	for _, txOut := range tx.TxOut {
		totalSigOps += txscript.GetSigOpCount(txOut.PkScript)
	}
	return totalSigOps
}

// stakePubKey extracts the staker's key from the second coinstake output,
// which must pay to a bare public key.
func stakePubKey(coinstake *types.Transaction) (*btcec.PublicKey, error) {
	if len(coinstake.TxOut) < 2 {
		return nil, fmt.Errorf("coinstake has %d outputs", len(coinstake.TxOut))
	}
	script := coinstake.TxOut[1].PkScript
	if txscript.GetScriptClass(script) != txscript.PubKeyTy {
		return nil, fmt.Errorf("coinstake output 1 is not pay-to-pubkey")
	}
	pushes, err := txscript.PushedData(script)
	if err != nil || len(pushes) == 0 {
		return nil, fmt.Errorf("coinstake output 1 has no key")
	}
	return btcec.ParsePubKey(pushes[0], btcec.S256())
}

// checkBlockSignature verifies the staker's signature over the block hash.
// Work blocks must not be signed.
func checkBlockSignature(block *types.Block) bool {
	if block.IsProofOfWork() {
		return len(block.Signature) == 0
	}
	if len(block.Signature) == 0 {
		return false
	}
	pubKey, err := stakePubKey(block.Transactions[1])
	if err != nil {
		return false
	}
	sig, err := btcec.ParseSignature(block.Signature, btcec.S256())
	if err != nil {
		return false
	}
	blockHash := block.BlockHash()
	return sig.Verify(blockHash[:], pubKey)
}

// isCanonicalBlockSignature reports whether a stake block's signature is
// strict DER.  Work blocks carry none.
func isCanonicalBlockSignature(block *types.Block) bool {
	if block.IsProofOfWork() {
		return len(block.Signature) == 0
	}
	_, err := btcec.ParseDERSignature(block.Signature, btcec.S256())
	return err == nil
}

// checkBlock performs the context free checks on a block.  tip is the node
// the block builds on when known, else the best node; it drives the payment
// rules.
//
// This function MUST be called with the chain state lock held.
func (b *BlockChain) checkBlock(block *types.SerializedBlock, checkPOW, checkMerkle,
	checkSig bool, tip *blockNode) error {

	msgBlock := block.Block()
	header := &msgBlock.Header

	// A block must have at least one transaction.
	numTx := len(msgBlock.Transactions)
	if numTx == 0 {
		return ruleError(ErrNoTransactions, "block does not contain "+
			"any transactions")
	}

	// A block must not exceed the maximum allowed block payload when
	// serialized.
	serializedSize := msgBlock.SerializeSize()
	if serializedSize > types.MaxBlockSize {
		str := fmt.Sprintf("serialized block is too big - got %d, "+
			"max %d", serializedSize, types.MaxBlockSize)
		return ruleError(ErrBlockTooBig, str)
	}

	// Check proof of work matches claimed amount.
	isPoS := msgBlock.IsProofOfStake()
	if checkPOW && !isPoS {
		powHash := header.PowHash()
		if err := pow.CheckProofOfWork(&powHash, header.Difficulty, b.params.PowLimit); err != nil {
			return ruleError(ErrHighHash, err.Error())
		}
	}

	// Ensure the block time is not too far in the future.
	maxTimestamp := b.timeSource.AdjustedTime().Unix() + maxTimeDrift
	if header.Timestamp.Unix() > maxTimestamp {
		str := fmt.Sprintf("block timestamp of %v is too far in the "+
			"future", header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	// The first transaction in a block must be a coinbase.
	transactions := msgBlock.Transactions
	if !transactions[0].IsCoinBase() {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in "+
			"block is not a coinbase")
	}

	// A block must not have more than one coinbase.
	for i, tx := range transactions[1:] {
		if tx.IsCoinBase() {
			str := fmt.Sprintf("block contains second coinbase at "+
				"index %d", i+1)
			return ruleError(ErrMultipleCoinbases, str)
		}
	}

	if isPoS {
		// The coinbase of a stake block only carries the empty marker.
		coinbase := transactions[0]
		if len(coinbase.TxOut) != 1 || !coinbase.TxOut[0].IsEmpty() {
			return ruleError(ErrStakeCoinbaseNotEmpty, "coinbase output "+
				"not empty for proof-of-stake block")
		}
		if !transactions[1].IsCoinStake() {
			return ruleError(ErrSecondTxNotCoinstake, "second transaction "+
				"is not coinstake")
		}
		for i := 2; i < numTx; i++ {
			if transactions[i].IsCoinStake() {
				str := fmt.Sprintf("block contains second coinstake at "+
					"index %d", i)
				return ruleError(ErrMultipleCoinstakes, str)
			}
		}
	}

	if checkSig && !checkBlockSignature(msgBlock) {
		return ruleError(ErrBadBlockSignature, "bad block signature")
	}

	isIBD := b.isInitialBlockDownload()
	if b.locks != nil && !isIBD {
		if err := b.checkTxLocks(block); err != nil {
			return err
		}
	}

	if err := b.checkMasternodePayee(msgBlock, tip, isIBD); err != nil {
		return err
	}
	if err := b.checkPaymentQuota(msgBlock, tip, isIBD); err != nil {
		return err
	}

	// Do some preliminary checks on each transaction to ensure they are
	// sane before continuing.
	blockTime := header.Timestamp.Unix()
	for _, tx := range transactions {
		if err := CheckTransaction(tx); err != nil {
			return err
		}
		if blockTime < tx.Timestamp.Unix() {
			str := fmt.Sprintf("block timestamp earlier than transaction "+
				"timestamp %v", tx.Timestamp)
			return ruleError(ErrTxTimeAfterBlock, str)
		}
	}

	// Check for duplicate transactions.
	existingTxHashes := make(map[hash.Hash]struct{})
	for _, tx := range block.Transactions() {
		h := tx.Hash()
		if _, exists := existingTxHashes[*h]; exists {
			str := fmt.Sprintf("block contains duplicate "+
				"transaction %v", h)
			return ruleError(ErrDuplicateTx, str)
		}
		existingTxHashes[*h] = struct{}{}
	}

	// The number of signature operations must be less than the maximum
	// allowed per block.
	totalSigOps := 0
	for _, tx := range transactions {
		lastSigOps := totalSigOps
		totalSigOps += CountSigOps(tx)
		if totalSigOps < lastSigOps || totalSigOps > types.MaxBlockSigOps {
			str := fmt.Sprintf("block contains too many signature "+
				"operations - got %v, max %v", totalSigOps,
				types.MaxBlockSigOps)
			return ruleError(ErrTooManySigOps, str)
		}
	}

	// Build merkle tree and ensure the calculated merkle root matches the
	// entry in the block header.
	if checkMerkle {
		calculatedMerkleRoot := types.CalcMerkleRoot(block.Transactions())
		if !header.TxRoot.IsEqual(&calculatedMerkleRoot) {
			str := fmt.Sprintf("block merkle root is invalid - block "+
				"header indicates %v, but calculated value is %v",
				header.TxRoot, calculatedMerkleRoot)
			return ruleError(ErrBadMerkleRoot, str)
		}
	}

	return nil
}

// checkTxLocks rejects blocks spending an input locked to another
// transaction.
func (b *BlockChain) checkTxLocks(block *types.SerializedBlock) error {
	for _, tx := range block.Transactions() {
		if tx.Tx.IsCoinBase() {
			continue
		}
		for _, txIn := range tx.Tx.TxIn {
			locked, ok := b.locks.LockedBy(&txIn.PreviousOut)
			if ok && !locked.IsEqual(tx.Hash()) {
				str := fmt.Sprintf("transaction %v conflicts with lock "+
					"of %v on %v", tx.Hash(), locked, txIn.PreviousOut)
				return ruleError(ErrTxLockConflict, str)
			}
		}
	}
	return nil
}

// checkCoinbaseHeight ensures the coinbase script starts with the serialized
// block height.
func checkCoinbaseHeight(coinbase *types.Transaction, height int64) error {
	expected, err := txscript.NewScriptBuilder().AddInt64(height).Script()
	if err != nil {
		return err
	}
	sigScript := coinbase.TxIn[0].SignScript
	if !bytes.HasPrefix(sigScript, expected) {
		str := fmt.Sprintf("coinbase script does not begin with the "+
			"serialized block height %d", height)
		return ruleError(ErrBadCoinbaseHeight, str)
	}
	return nil
}
