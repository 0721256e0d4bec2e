// Copyright (c) 2017-2018 The qitmeer developers

package blockchain

// isInitialBlockDownload reports whether the node is still catching up: the
// best chain is below the checkpoint estimate, or the tip keeps moving while
// it is older than ibdTipAge.  The last time the answer was true is kept for
// the payment engagement delay.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) isInitialBlockDownload() bool {
	now := b.timeSource.AdjustedTime().Unix()
	best := b.bestNode

	b.ibdLock.Lock()
	defer b.ibdLock.Unlock()

	if best == nil || best.height < b.checkpoints.TotalBlocksEstimate() {
		b.lastIBDTime = now
		return true
	}
	if best.hash != b.lastBestHash {
		b.lastBestHash = best.hash
		b.lastBestUpdate = now
	}
	isIBD := now-b.lastBestUpdate < ibdDebounce && best.timestamp < now-ibdTipAge
	if isIBD {
		b.lastIBDTime = now
	}
	return isIBD
}

// IsInitialBlockDownload returns whether the chain is still syncing.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsInitialBlockDownload() bool {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.isInitialBlockDownload()
}

// IsCurrent returns whether the chain believes it is synced.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsCurrent() bool {
	return !b.IsInitialBlockDownload()
}
