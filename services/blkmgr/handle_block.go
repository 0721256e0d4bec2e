// Copyright (c) 2017-2018 The qitmeer developers

package blkmgr

import (
	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/core/types"
)

// handleBlockMsg runs a block of a peer through the chain.
func (b *BlockManager) handleBlockMsg(bmsg *processBlockMsg) (bool, error) {
	blockHash := bmsg.block.Hash()
	log.Trace("handleBlockMsg called", "hash", blockHash, "peer", bmsg.peer)

	// Either the chain will know about it or the insert fails and the
	// block is requested again on the next announcement.
	b.MarkBlockAsReceived(blockHash, bmsg.peer)

	isOrphan, err := b.chain.ProcessBlock(bmsg.block, blockchain.BFNone)
	b.markBlockProcessed(bmsg.peer)
	if err != nil {
		// When the error is a rule error, it means the block was simply
		// rejected as opposed to something actually going wrong, so log
		// it as such.  Otherwise, something really did go wrong, so log
		// it as an actual error.
		if _, ok := err.(blockchain.RuleError); ok {
			log.Info("Rejected block", "hash", blockHash, "peer", bmsg.peer, "err", err)
		} else {
			log.Error("Failed to process block", "hash", blockHash, "err", err)
		}
		b.penalize(bmsg.peer, blockchain.DoSScore(err))
		return false, err
	}

	if isOrphan {
		// The peer is expected to deliver the blocks leading to the root.
		orphanRoot := b.chain.GetOrphanRoot(blockHash)
		log.Debug("Orphan block", "hash", blockHash, "root", orphanRoot,
			"peer", bmsg.peer)
		return true, nil
	}

	b.blockProcessed(bmsg.block)
	return false, nil
}

// blockProcessed refreshes what depends on the best chain once a block was
// accepted.
func (b *BlockManager) blockProcessed(block *types.SerializedBlock) {
	best := b.chain.BestSnapshot()
	b.chainState.UpdateChainState(&best.Hash, best.Height, best.MedianTime)
	b.progressLogger.LogBlockHeight(block, best.Height)

	// A new block may make previously rejected transactions valid.
	b.rejectedTxns = make(map[hash.Hash]struct{})
}

// penalize adds a fault score to the peer a block or transaction came from.
func (b *BlockManager) penalize(peer PeerID, dos int) {
	if dos <= 0 || peer == LocalPeer {
		return
	}
	b.Misbehaving(peer, dos)
}
