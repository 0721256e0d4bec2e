// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/database"
	l "github.com/Qitmeer/vrx/log"
)

// centsPerCoin scales coin age to coin days.
const centsPerCoin = 100

// coinAge returns the coin days a coinstake consumes.  Inputs younger than
// the minimum stake age do not count.
func (b *BlockChain) coinAge(tx *types.Transaction, inputs InputSet) uint64 {
	cent := big.NewInt(types.AtomsPerCoin / centsPerCoin)
	minAge := int64(b.params.StakeMinAge / time.Second)
	txTime := tx.Timestamp.Unix()

	centSeconds := new(big.Int)
	for _, txIn := range tx.TxIn {
		src := inputs[txIn.PreviousOut.Hash]
		if src == nil || src.node == nil {
			continue
		}
		if src.node.timestamp+minAge > txTime {
			continue
		}
		value := big.NewInt(int64(src.Tx.TxOut[txIn.PreviousOut.OutIndex].Amount))
		age := big.NewInt(txTime - src.Tx.Timestamp.Unix())
		value.Mul(value, age)
		centSeconds.Add(centSeconds, value.Div(value, cent))
	}

	coinDays := centSeconds.Mul(centSeconds, cent)
	coinDays.Div(coinDays, big.NewInt(types.AtomsPerCoin))
	coinDays.Div(coinDays, big.NewInt(24*secondsPerHour))
	return coinDays.Uint64()
}

// connectBlock replays the spends of a block whose parent is the best
// block inside dbTx.  The in-memory index is not touched; the caller applies
// the next link and the best pointer once the transaction commits.
func (b *BlockChain) connectBlock(dbTx database.Tx, node *blockNode,
	block *types.SerializedBlock, checkPoW bool) error {

	if err := b.checkBlock(block, checkPoW, true, false, node.parent); err != nil {
		return err
	}

	msgBlock := block.Block()
	txLocs := block.TxLoc()
	queued := make(txOverlay)
	var (
		fees, valueIn, valueOut, stakeReward types.Amount
		sigOps                               int
		coinAge                              uint64
	)
	for i, tx := range block.Transactions() {
		msgTx := tx.Tx
		txHash := tx.Hash()

		// A transaction may only repeat an earlier one once all the
		// outputs of that one are spent.
		old := queued[*txHash]
		if old == nil {
			var err error
			old, err = dbFetchTxIndex(dbTx, txHash)
			if err != nil {
				return dbError(err, "fetch tx index")
			}
		}
		if old != nil {
			for _, spent := range old.Spent {
				if spent.IsNull() {
					str := fmt.Sprintf("transaction %v overwrites an "+
						"unspent earlier copy", txHash)
					return ruleError(ErrOverwriteTx, str)
				}
			}
		}

		sigOps += CountSigOps(msgTx)
		if sigOps > types.MaxBlockSigOps {
			str := fmt.Sprintf("block contains too many signature "+
				"operations - got %v, max %v", sigOps, types.MaxBlockSigOps)
			return ruleError(ErrTooManySigOps, str)
		}

		pos := DiskTxPos{
			File:     node.location.File,
			BlockPos: node.location.Offset,
			BlockLen: node.location.Len,
			TxPos:    uint32(txLocs[i].TxStart),
		}
		if msgTx.IsCoinBase() {
			valueOut += msgTx.ValueOut()
		} else {
			inputs, err := b.fetchInputs(dbTx, msgTx, queued, true, nil)
			if err != nil {
				return err
			}
			in, fee, err := b.connectInputs(tx, inputs, queued, pos, node,
				true, MandatoryScriptFlags)
			if err != nil {
				return err
			}
			valueIn += in
			valueOut += msgTx.ValueOut()
			if msgTx.IsCoinStake() {
				stakeReward = msgTx.ValueOut() - in
				coinAge = b.coinAge(msgTx, inputs)
			} else {
				fees += fee
				if !types.MoneyRange(fees) {
					return ruleError(ErrBadFees, "total block fees out of range")
				}
			}
		}
		queued[*txHash] = newTxIndexEntry(pos, len(msgTx.TxOut))
	}

	if msgBlock.IsProofOfWork() {
		reward := GetProofOfWorkReward(b.params, node.height, fees, node.parent.moneySupply)
		if coinbaseOut := msgBlock.Transactions[0].ValueOut(); coinbaseOut > reward {
			str := fmt.Sprintf("coinbase pays %v, allowed %v", coinbaseOut, reward)
			return ruleError(ErrBadCoinbaseValue, str)
		}
	} else {
		maxReward := GetProofOfStakeReward(b.params, coinAge, fees, node.height,
			node.parent.moneySupply)
		if stakeReward > maxReward {
			str := fmt.Sprintf("coinstake pays %v, allowed %v", stakeReward, maxReward)
			return ruleError(ErrBadStakeReward, str)
		}
	}

	node.mint = valueOut - valueIn + fees
	node.moneySupply = node.parent.moneySupply + valueOut - valueIn

	for txHash, entry := range queued {
		h := txHash
		if err := dbPutTxIndex(dbTx, &h, entry); err != nil {
			return dbError(err, "put tx index")
		}
	}
	if err := dbPutBlockNode(dbTx, node); err != nil {
		return dbError(err, "put block index")
	}
	if err := dbPutBlockNodeNext(dbTx, node.parent, &node.hash); err != nil {
		return dbError(err, "put block index")
	}
	log.Trace("Connected block", "hash", node.hash, "height", node.height,
		"mint", node.mint, "stake", stakeReward)
	return nil
}

// disconnectBlock undoes the spends of the best block inside dbTx, walking
// its transactions in reverse order.
func (b *BlockChain) disconnectBlock(dbTx database.Tx, node *blockNode,
	block *types.SerializedBlock) error {

	txs := block.Transactions()
	for i := len(txs) - 1; i >= 0; i-- {
		if err := disconnectInputs(dbTx, txs[i]); err != nil {
			return err
		}
	}
	if node.parent != nil {
		if err := dbPutBlockNodeNext(dbTx, node.parent, nil); err != nil {
			return dbError(err, "put block index")
		}
	}
	return nil
}

// invalidChainFound records the trust of a chain that failed to connect.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) invalidChainFound(node *blockNode) {
	if node.trust.Cmp(b.bestInvalidTrust) > 0 {
		b.bestInvalidTrust = new(big.Int).Set(node.trust)
		err := b.db.Update(func(dbTx database.Tx) error {
			return dbPutBestInvalidTrust(dbTx, b.bestInvalidTrust)
		})
		if err != nil {
			log.Error("Failed to store best invalid trust", "err", err)
		}
	}
	log.Warn("Invalid chain found", "hash", node.hash, "height", node.height,
		"trust", node.trust, "date", time.Unix(node.timestamp, 0))
	log.Warn("Current best chain", "hash", b.bestNode.hash,
		"height", b.bestNode.height, "trust", b.bestNode.trust)
}

// blockConnected applies a committed connect to memory.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) blockConnected(node *blockNode, block *types.SerializedBlock) {
	h := node.hash
	node.parent.next = &h
	for _, tx := range block.Transactions() {
		b.queueConfirmed(tx)
	}
	b.sendNotification(BlockConnected, block)
	b.setBestNode(node)
}

// connectBestChild extends the best chain by node in one transaction.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) connectBestChild(node *blockNode, block *types.SerializedBlock,
	flags BehaviorFlags) error {

	start := time.Now()
	err := b.db.Update(func(dbTx database.Tx) error {
		if err := b.connectBlock(dbTx, node, block, flags&BFNoPoWCheck == 0); err != nil {
			return err
		}
		return dbError(dbPutBestChain(dbTx, &node.hash), "put best chain")
	})
	if err != nil {
		return err
	}
	connectTimer.UpdateSince(start)
	b.blockConnected(node, block)
	return nil
}

// reorganize switches the best chain to newTip in one transaction: the
// blocks from the best block back to the fork point are disconnected, then
// the blocks from the fork point up to newTip are connected.  Nothing is
// applied to memory unless the transaction commits.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) reorganize(newTip *blockNode) error {
	// Find the fork point.
	fork, longer := b.bestNode, newTip
	for fork != longer {
		for longer.height > fork.height {
			longer = longer.parent
		}
		if fork == longer {
			break
		}
		fork = fork.parent
	}
	if fork == nil {
		return assertError("no fork point between %v and %v", b.bestNode.hash, newTip.hash)
	}

	var detach, attach []*blockNode
	for n := b.bestNode; n != fork; n = n.parent {
		detach = append(detach, n)
	}
	for n := newTip; n != fork; n = n.parent {
		attach = append(attach, n)
	}
	for i, j := 0, len(attach)-1; i < j; i, j = i+1, j-1 {
		attach[i], attach[j] = attach[j], attach[i]
	}

	log.Info("REORGANIZE", "disconnect", len(detach), "connect", len(attach),
		"fork", fork.hash, "height", fork.height)

	detachBlocks := make([]*types.SerializedBlock, len(detach))
	attachBlocks := make([]*types.SerializedBlock, len(attach))
	err := b.db.Update(func(dbTx database.Tx) error {
		for i, n := range detach {
			block, err := b.blockByNode(n)
			if err != nil {
				return err
			}
			if err := b.disconnectBlock(dbTx, n, block); err != nil {
				return err
			}
			detachBlocks[i] = block
		}
		for i, n := range attach {
			block, err := b.blockByNode(n)
			if err != nil {
				return err
			}
			if err := b.connectBlock(dbTx, n, block, false); err != nil {
				log.Debug("Reorganize connect failed", "hash", n.hash, "err", err)
				return err
			}
			attachBlocks[i] = block
		}
		return dbError(dbPutBestChain(dbTx, &newTip.hash), "put best chain")
	})
	if err != nil {
		return err
	}

	// The transaction committed, apply it to memory.  Transactions of
	// the detached blocks are offered back to the pool, lowest block
	// first so parents precede their spenders.
	for _, n := range detach {
		n.parent.next = nil
	}
	estimate := b.checkpoints.TotalBlocksEstimate()
	for i := len(detach) - 1; i >= 0; i-- {
		if detach[i].height <= estimate {
			continue
		}
		for _, tx := range detachBlocks[i].Transactions() {
			if tx.Tx.IsCoinBase() || tx.Tx.IsCoinStake() {
				continue
			}
			b.queueResurrect(tx)
		}
	}
	for i, block := range detachBlocks {
		b.sendNotification(BlockDisconnected, block)
		log.Debug("Disconnected block", "hash", detach[i].hash, "height", detach[i].height)
	}
	oldTip := b.bestNode
	for i, n := range attach {
		b.blockConnected(n, attachBlocks[i])
	}

	reorgCounter.Inc(1)
	b.sendNotification(Reorganization, &ReorganizationNotifyData{
		OldHash:   oldTip.hash,
		OldHeight: oldTip.height,
		NewHash:   newTip.hash,
		NewHeight: newTip.height,
		ForkHash:  fork.hash,
	})
	log.Info("REORGANIZE: done", "tip", newTip.hash, "height", newTip.height)
	return nil
}

// interrupted reports whether the caller asked long running work to stop.
func (b *BlockChain) interrupted() bool {
	if b.interrupt == nil {
		return false
	}
	select {
	case <-b.interrupt:
		return true
	default:
		return false
	}
}

// setBestChain makes node the best block.  A direct child of the best block
// is connected in place.  Otherwise the chain reorganizes to the first
// ancestor of node that outweighs the best chain, and the remaining blocks
// are connected one transaction each.  A failure there keeps the blocks
// connected so far and reports the first error.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) setBestChain(node *blockNode, block *types.SerializedBlock,
	flags BehaviorFlags) error {

	if node.parent == b.bestNode {
		if err := b.connectBestChild(node, block, flags); err != nil {
			b.invalidChainFound(node)
			return err
		}
		b.logBestChain()
		return nil
	}

	// Reorganizing is one database transaction, so it is limited to the
	// first block that makes the branch better.
	intermediate := node
	var secondary []*blockNode
	for intermediate.parent != nil && intermediate.parent.trust.Cmp(b.bestNode.trust) > 0 {
		secondary = append(secondary, intermediate)
		intermediate = intermediate.parent
	}
	if len(secondary) > 0 {
		log.Info("Postponing reconnects", "count", len(secondary))
	}

	if err := b.reorganize(intermediate); err != nil {
		b.invalidChainFound(node)
		return err
	}

	for i := len(secondary) - 1; i >= 0; i-- {
		if b.interrupted() {
			log.Info("Reconnect interrupted", "best", b.bestNode.hash)
			break
		}
		n := secondary[i]
		nBlock := block
		if n != node {
			var err error
			nBlock, err = b.blockByNode(n)
			if err != nil {
				return err
			}
		}
		if err := b.connectBestChild(n, nBlock, flags); err != nil {
			b.invalidChainFound(n)
			b.logBestChain()
			return err
		}
	}
	b.logBestChain()
	return nil
}

func (b *BlockChain) logBestChain() {
	best := b.bestNode
	log.Info("New best chain", "hash", best.hash, "height", best.height,
		"trust", best.trust, "supply", best.moneySupply,
		"date", time.Unix(best.timestamp, 0))
	log.Trace("Best block state", "node", l.LogClosure(func() string {
		return fmt.Sprintf("pos=%v modifier=%016x proof=%v", best.isProofOfStake(),
			best.stakeModifier, best.proofHash)
	}))
}

// BestInvalidTrust returns the highest trust of a chain that failed to
// connect.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestInvalidTrust() *big.Int {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return new(big.Int).Set(b.bestInvalidTrust)
}

// BlockLocator returns hashes of main chain blocks going back from the best
// block, dense at the tip and exponentially sparser towards genesis.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockLocator() []hash.Hash {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	var locator []hash.Hash
	step := int64(1)
	for n := b.bestNode; n != nil; {
		locator = append(locator, n.hash)
		if n.height == 0 {
			break
		}
		height := n.height - step
		if height < 0 {
			height = 0
		}
		n = n.Ancestor(height)
		if len(locator) > 10 {
			step *= 2
		}
	}
	return locator
}
