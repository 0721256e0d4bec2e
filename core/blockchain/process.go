// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/Qitmeer/vrx/core/types"
	l "github.com/Qitmeer/vrx/log"
)

// BehaviorFlags is a bitmask defining tweaks to the normal behavior when
// performing chain processing and consensus rules checks.
type BehaviorFlags uint32

const (
	// BFNoPoWCheck may be set to indicate the proof of work check which
	// ensures a block hashes to a value less than the required target will
	// not be performed.
	BFNoPoWCheck BehaviorFlags = 1 << iota

	// BFImport marks blocks read from a local bootstrap file.
	BFImport

	// BFNone is a convenience value to specifically indicate no flags.
	BFNone BehaviorFlags = 0
)

// ProcessBlock is the main workhorse for handling insertion of new blocks into
// the block chain.  It includes functionality such as rejecting duplicate
// blocks, ensuring blocks follow all rules, orphan handling, and insertion into
// the block chain along with best chain selection and reorganization.
//
// When no errors occurred during processing, the first return value indicates
// whether or not the block is an orphan.  Orphans whose parent arrives later
// are accepted without being submitted again.
//
// This function is safe for concurrent access.
func (b *BlockChain) ProcessBlock(block *types.SerializedBlock, flags BehaviorFlags) (bool, error) {
	b.chainLock.Lock()
	isOrphan, err := b.processBlock(block, flags)
	notes, ops := b.takePending()
	b.chainLock.Unlock()

	b.dispatch(notes, ops)
	if err != nil {
		blocksRejectedMeter.Mark(1)
		log.Trace("Rejected block", "hash", block.Hash(), "block",
			l.SpewClosure(block.Block()))
	}
	return isOrphan, err
}

// processBlock runs ProcessBlock under the chain lock.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) processBlock(block *types.SerializedBlock, flags BehaviorFlags) (bool, error) {
	blockHash := block.Hash()
	msgBlock := block.Block()
	log.Trace("Processing block", "hash", blockHash)

	// The block must not already exist in the main chain or side chains.
	if b.index.HaveBlock(blockHash) {
		str := fmt.Sprintf("already have block %v", blockHash)
		return false, ruleError(ErrDuplicateBlock, str)
	}

	// The block must not already exist as an orphan.
	if b.IsOrphan(blockHash) {
		str := fmt.Sprintf("already have block (orphan) %v", blockHash)
		return false, ruleError(ErrDuplicateBlock, str)
	}

	// A stake may only be claimed once, unless an orphan waits on this
	// block.
	if msgBlock.IsProofOfStake() && b.index.HaveStake(msgBlock.ProofOfStake()) &&
		!b.hasOrphanChildren(blockHash) {
		str := fmt.Sprintf("duplicate proof-of-stake %+v for block %v",
			msgBlock.ProofOfStake(), blockHash)
		return false, ruleError(ErrDuplicateStake, str)
	}

	// Blocks off the best chain may not be older than the last hardened
	// checkpoint.
	prevHash := &msgBlock.Header.PrevBlock
	if !prevHash.IsEqual(&b.bestNode.hash) {
		if _, cpNode := b.latestCheckpoint(); cpNode != nil &&
			msgBlock.Header.Timestamp.Unix() < cpNode.timestamp {
			str := fmt.Sprintf("block %v has timestamp %v before the last "+
				"checkpoint", blockHash, msgBlock.Header.Timestamp)
			return false, ruleError(ErrCheckpointTimeTooOld, str)
		}
	}

	if msgBlock.IsProofOfStake() && !isCanonicalBlockSignature(msgBlock) {
		str := fmt.Sprintf("block %v signature is not canonical", blockHash)
		return false, ruleError(ErrNonCanonicalSignature, str)
	}

	// Perform preliminary sanity checks on the block and its transactions.
	tip := b.index.LookupNode(prevHash)
	if tip == nil {
		tip = b.bestNode
	}
	if err := b.checkBlock(block, flags&BFNoPoWCheck == 0, true, true, tip); err != nil {
		return false, err
	}

	// Handle orphan blocks.
	if !b.index.HaveBlock(prevHash) {
		if msgBlock.IsProofOfStake() && b.isDuplicateOrphanStake(msgBlock) &&
			!b.hasOrphanChildren(blockHash) {
			str := fmt.Sprintf("duplicate proof-of-stake %+v for orphan "+
				"block %v", msgBlock.ProofOfStake(), blockHash)
			return false, ruleError(ErrDuplicateStake, str)
		}
		log.Debug("Adding orphan block", "hash", blockHash, "parent", prevHash)
		b.addOrphanBlock(block)
		blocksOrphanedMeter.Mark(1)
		return true, nil
	}

	// The block has passed all context independent checks and appears sane
	// enough to potentially accept it into the block chain.
	if err := b.acceptBlock(block, flags); err != nil {
		return false, err
	}

	// Accept any orphan blocks that depend on this block (they are
	// no longer orphans) and repeat for those accepted blocks until
	// there are no more.
	b.processOrphans(blockHash, flags)

	log.Debug("Accepted block", "hash", blockHash, "height", block.Height())
	return false, nil
}
