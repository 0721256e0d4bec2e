// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/database"
)

// checkBlockContext performs the checks of a block that depend on its
// position in the chain and returns the proof hash of the block.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) checkBlockContext(block *types.SerializedBlock, parent *blockNode) (hash.Hash, error) {
	msgBlock := block.Block()
	header := &msgBlock.Header
	height := parent.height + 1

	if header.Version != types.BlockVersion {
		str := fmt.Sprintf("block version %d, expected %d", header.Version,
			types.BlockVersion)
		return hash.Hash{}, ruleError(ErrBlockVersion, str)
	}

	if b.velocity != nil && height >= b.params.VelocityToggleHeight &&
		!b.velocity.CheckVelocity(parent.info(), msgBlock) {
		str := fmt.Sprintf("block %v at height %d rejected by velocity",
			block.Hash(), height)
		return hash.Hash{}, ruleError(ErrVelocity, str)
	}

	isPoS := msgBlock.IsProofOfStake()
	if !isPoS && height > b.params.EndPoWHeight {
		str := fmt.Sprintf("proof-of-work block at height %d after %d",
			height, b.params.EndPoWHeight)
		return hash.Hash{}, ruleError(ErrPoWAfterEnd, str)
	}
	if isPoS && height < b.params.StartPoSHeight {
		str := fmt.Sprintf("proof-of-stake block at height %d before %d",
			height, b.params.StartPoSHeight)
		return hash.Hash{}, ruleError(ErrPoSBeforeStart, str)
	}

	blockTime := header.Timestamp.Unix()
	if isPoS {
		if blockTime > msgBlock.Transactions[0].Timestamp.Unix()+maxTimeDrift {
			return hash.Hash{}, ruleError(ErrCoinbaseTime, "coinbase timestamp "+
				"is too early")
		}
		if msgBlock.Transactions[1].Timestamp.Unix() != blockTime {
			return hash.Hash{}, ruleError(ErrCoinstakeTime, "coinstake "+
				"timestamp does not match the block")
		}
	}

	// Ensure the difficulty specified in the block header matches the
	// calculated difficulty based on the previous block.
	expected := calcNextRequiredDifficulty(b.params, parent, isPoS)
	if header.Difficulty != expected {
		str := fmt.Sprintf("block difficulty of %08x is not the expected "+
			"value of %08x", header.Difficulty, expected)
		return hash.Hash{}, ruleError(ErrUnexpectedDifficulty, str)
	}

	if blockTime <= parent.pastTimeLimit() || blockTime+maxTimeDrift < parent.timestamp {
		str := fmt.Sprintf("block timestamp of %v is too early", header.Timestamp)
		return hash.Hash{}, ruleError(ErrTimeTooOld, str)
	}

	for _, tx := range msgBlock.Transactions {
		if !tx.IsFinal(height, blockTime) {
			str := fmt.Sprintf("block contains unfinalized transaction %v",
				tx.TxHash())
			return hash.Hash{}, ruleError(ErrUnfinalizedTx, str)
		}
	}

	if !b.checkpoints.CheckHardened(height, block.Hash()) {
		str := fmt.Sprintf("block %v at height %d rejected by checkpoint",
			block.Hash(), height)
		return hash.Hash{}, ruleError(ErrBadCheckpoint, str)
	}

	var proofHash hash.Hash
	if isPoS {
		if b.stake == nil {
			return hash.Hash{}, ruleError(ErrBadStakeKernel, "no stake checker")
		}
		var err error
		proofHash, _, err = b.stake.CheckProofOfStake(chainView{b}, parent.info(),
			msgBlock.Transactions[1], header.Difficulty)
		if err != nil {
			if _, ok := err.(RuleError); ok {
				return hash.Hash{}, err
			}
			str := fmt.Sprintf("check proof-of-stake failed for block %v: %v",
				block.Hash(), err)
			return hash.Hash{}, ruleError(ErrBadStakeKernel, str)
		}
	} else {
		proofHash = header.PowHash()
	}

	if !b.checkpoints.CheckSynchronized(height) {
		str := fmt.Sprintf("block %v at height %d is below the synchronized "+
			"checkpoint", block.Hash(), height)
		return hash.Hash{}, ruleError(ErrSyncCheckpoint, str)
	}

	if err := checkCoinbaseHeight(msgBlock.Transactions[0], height); err != nil {
		return hash.Hash{}, err
	}
	return proofHash, nil
}

// acceptBlock validates a block whose parent is indexed against its place
// in the chain, stores it and adds it to the block index.  The best chain
// moves when the block carries more trust than the best block.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) acceptBlock(block *types.SerializedBlock, flags BehaviorFlags) error {
	blockHash := block.Hash()
	if b.index.HaveBlock(blockHash) {
		str := fmt.Sprintf("already have block %v", blockHash)
		return ruleError(ErrDuplicateBlock, str)
	}

	prevHash := &block.Block().Header.PrevBlock
	parent := b.index.LookupNode(prevHash)
	if parent == nil {
		str := fmt.Sprintf("previous block %v is not known", prevHash)
		return ruleError(ErrMissingParent, str)
	}
	block.SetHeight(parent.height + 1)

	proofHash, err := b.checkBlockContext(block, parent)
	if err != nil {
		return err
	}

	data, err := block.Bytes()
	if err != nil {
		return err
	}
	loc, err := b.blockStore.WriteBlock(data)
	if err != nil {
		return dbError(err, "write block")
	}

	node := newBlockNode(block.Block(), parent)
	node.location = loc
	node.proofHash = proofHash
	if err := b.addToBlockIndex(node, block, flags); err != nil {
		return err
	}

	blocksAcceptedMeter.Mark(1)
	b.sendNotification(BlockAccepted, &BlockAcceptedNotifyData{
		IsMainChainTipChange: b.bestNode == node,
		Block:                block,
		Flags:                flags,
	})
	return nil
}

// addToBlockIndex computes the stake modifier of the node, persists and
// indexes it, and selects it as the best chain when it outweighs the best
// block.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) addToBlockIndex(node *blockNode, block *types.SerializedBlock,
	flags BehaviorFlags) error {

	if b.stake != nil {
		modifier, generated, err := b.stake.ComputeNextStakeModifier(chainView{b},
			node.parent.info())
		if err != nil {
			return ruleError(ErrBadStakeKernel, fmt.Sprintf("compute stake "+
				"modifier: %v", err))
		}
		node.setStakeModifier(modifier, generated)
	} else {
		node.setStakeModifier(node.parent.stakeModifier, false)
	}

	err := b.db.Update(func(dbTx database.Tx) error {
		return dbPutBlockNode(dbTx, node)
	})
	if err != nil {
		return dbError(err, "put block index")
	}
	b.index.AddNode(node)

	// Equal trust keeps the first seen chain.
	if node.trust.Cmp(b.bestNode.trust) <= 0 {
		log.Debug("Block added to side chain", "hash", node.hash,
			"height", node.height, "trust", node.trust)
		return nil
	}
	return b.setBestChain(node, block, flags)
}
