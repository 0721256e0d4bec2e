// Copyright (c) 2017-2018 The qitmeer developers

package blockchain

import (
	"bytes"
	"fmt"

	"github.com/Qitmeer/vrx/core/types"
)

// paymentIndexes returns the transaction carrying the masternode and devops
// payments of a block and the positions of the two outputs.
func paymentIndexes(block *types.Block) (tx *types.Transaction, masternode, devops int, err error) {
	if block.IsProofOfStake() {
		tx = block.Transactions[1]
		switch len(tx.TxOut) {
		case 4:
			return tx, 2, 3, nil
		case 5:
			return tx, 3, 4, nil
		}
		return nil, 0, 0, fmt.Errorf("coinstake has %d outputs, want 4 or 5", len(tx.TxOut))
	}
	tx = block.Transactions[0]
	if len(tx.TxOut) != 3 {
		return nil, 0, 0, fmt.Errorf("coinbase has %d outputs, want 3", len(tx.TxOut))
	}
	return tx, 1, 2, nil
}

// paymentsEngaged reports whether the node has been synced long enough for
// an unknown masternode payee to count against a block.
func (b *BlockChain) paymentsEngaged(isIBD bool) bool {
	if isIBD {
		return false
	}
	b.ibdLock.Lock()
	lastIBD := b.lastIBDTime
	b.ibdLock.Unlock()
	return b.timeSource.AdjustedTime().Unix() >= lastIBD+paymentEngageDelay
}

// checkPaymentQuota enforces the masternode and devops outputs once the
// first payment update is active on the tip.
//
// This function MUST be called with the chain state lock held.
func (b *BlockChain) checkPaymentQuota(block *types.Block, tip *blockNode, isIBD bool) error {
	if tip == nil || tip.timestamp <= b.params.PaymentUpdate1 {
		return nil
	}
	tipTime := tip.timestamp
	tx, mnIndex, devIndex, err := paymentIndexes(block)
	if err != nil {
		return ruleError(ErrBadPayments, err.Error())
	}

	expectedMasternode := GetMasternodePayment(b.params, tip.height, tipTime)
	expectedDevops := GetDevopsPayment(b.params, tipTime)
	devopsScript := b.params.DevopsScript(tipTime)

	// Masternode payee.
	mnOut := tx.TxOut[mnIndex]
	payeeOK := bytes.Equal(mnOut.PkScript, devopsScript)
	if !payeeOK && b.payees != nil {
		_, _, hasWinner := b.payees.GetWinningMasternode(tip.height + 1)
		payeeOK = hasWinner && b.payees.IsPayeeAValidMasternode(mnOut.PkScript)
	}
	if !payeeOK {
		if b.masternodeAdvancedRelay && b.paymentsEngaged(isIBD) {
			return ruleError(ErrBadPayments, "masternode payee is not a "+
				"valid masternode")
		}
		log.Debug("Unverified masternode payee", "block", block.BlockHash())
	}
	if mnOut.Amount.Coins() != expectedMasternode.Coins() {
		str := fmt.Sprintf("masternode payment of %v, expected %v",
			mnOut.Amount, expectedMasternode)
		return ruleError(ErrBadPayments, str)
	}

	// Devops payee.  Between the second and third payment updates either
	// devops address is tolerated.
	devOut := tx.TxOut[devIndex]
	if !bytes.Equal(devOut.PkScript, devopsScript) {
		if tipTime < b.params.PaymentUpdate2 || tipTime >= b.params.PaymentUpdate3 {
			return ruleError(ErrBadPayments, "devops payment to wrong address")
		}
		log.Debug("Devops payee skipped during address transition", "block", block.BlockHash())
	}

	// Before the second update the amount is exact, afterwards paying
	// extra is allowed.
	paid, expected := devOut.Amount.Coins(), expectedDevops.Coins()
	if (tipTime < b.params.PaymentUpdate2 && paid != expected) || paid < expected {
		str := fmt.Sprintf("devops payment of %v, expected %v", devOut.Amount, expectedDevops)
		return ruleError(ErrBadPayments, str)
	}
	return nil
}

// checkMasternodePayee applies the stake block payee rule: a stake block on
// the current tip must pay the winning masternode.
//
// This function MUST be called with the chain state lock held.
func (b *BlockChain) checkMasternodePayee(block *types.Block, tip *blockNode, isIBD bool) error {
	if isIBD || b.payees == nil || !block.IsProofOfStake() || tip == nil || tip != b.bestNode {
		return nil
	}
	if block.Header.Timestamp.Unix() <= b.params.MasternodePaymentsStart {
		return nil
	}
	if !block.Header.PrevBlock.IsEqual(&tip.hash) {
		return nil
	}

	payee, _, ok := b.payees.GetWinningMasternode(tip.height + 1)
	if !ok || len(payee) == 0 {
		return nil
	}
	coinstake := block.Transactions[1]
	amount := coinstake.TxOut[len(coinstake.TxOut)-1].Amount
	for _, out := range coinstake.TxOut {
		if bytes.Equal(out.PkScript, payee) && out.Amount == amount {
			return nil
		}
	}
	str := fmt.Sprintf("stake block does not pay %v to the winning masternode", amount)
	return ruleError(ErrMasternodePayee, str)
}
