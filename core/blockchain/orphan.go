// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/rand"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
)

// orphanBlock represents a block that we don't yet have the parent for.
type orphanBlock struct {
	block *types.SerializedBlock
}

func (o *orphanBlock) prevHash() hash.Hash {
	return o.block.Block().Header.PrevBlock
}

// IsOrphan returns whether the passed hash is currently a known orphan.
// Keep in mind that only a limited number of orphans are held onto, so this
// function must not be used as an absolute way to test if a block is an
// orphan block.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsOrphan(hash *hash.Hash) bool {
	// Protect concurrent access.  Using a read lock only so multiple
	// readers can query without blocking each other.
	b.orphanLock.RLock()
	_, exists := b.orphans[*hash]
	b.orphanLock.RUnlock()

	return exists
}

// OrphanCount returns the number of buffered orphans.
//
// This function is safe for concurrent access.
func (b *BlockChain) OrphanCount() int {
	b.orphanLock.RLock()
	defer b.orphanLock.RUnlock()
	return len(b.orphans)
}

// GetOrphanRoot returns the head of the chain for the provided hash from the
// map of orphan blocks.  Peers are asked for the blocks leading to its
// parent.
//
// This function is safe for concurrent access.
func (b *BlockChain) GetOrphanRoot(h *hash.Hash) *hash.Hash {
	// Protect concurrent access.  Using a read lock only so multiple
	// readers can query without blocking each other.
	b.orphanLock.RLock()
	defer b.orphanLock.RUnlock()

	// Keep looping while the parent of each orphaned block is
	// known and is an orphan itself.
	orphanRoot := h
	prevHash := h
	for {
		orphan, exists := b.orphans[*prevHash]
		if !exists {
			break
		}
		orphanRoot = prevHash
		ph := orphan.prevHash()
		prevHash = &ph
	}

	return orphanRoot
}

// hasOrphanChildren reports whether an orphan waits on the block.
func (b *BlockChain) hasOrphanChildren(h *hash.Hash) bool {
	b.orphanLock.RLock()
	defer b.orphanLock.RUnlock()
	return len(b.prevOrphans[*h]) > 0
}

// isDuplicateOrphanStake reports whether a buffered orphan already claims
// the stake of block.
func (b *BlockChain) isDuplicateOrphanStake(block *types.Block) bool {
	b.orphanLock.RLock()
	defer b.orphanLock.RUnlock()
	return b.orphanStakes.Contains(block.ProofOfStake())
}

// removeOrphanBlock removes the passed orphan block from the orphan pool and
// previous orphan index.
//
// This function MUST be called with the orphan lock held (for writes).
func (b *BlockChain) removeOrphanBlock(orphan *orphanBlock) {
	// Remove the orphan block from the orphan pool.
	orphanHash := orphan.block.Hash()
	delete(b.orphans, *orphanHash)
	if orphan.block.Block().IsProofOfStake() {
		b.orphanStakes.Remove(orphan.block.Block().ProofOfStake())
	}

	// Remove the reference from the previous orphan index too.  An indexing
	// for loop is intentionally used over a range here as range does not
	// reevaluate the slice on each iteration nor does it adjust the index
	// for the modified slice.
	prevHash := orphan.prevHash()
	orphans := b.prevOrphans[prevHash]
	for i := 0; i < len(orphans); i++ {
		h := orphans[i].block.Hash()
		if h.IsEqual(orphanHash) {
			copy(orphans[i:], orphans[i+1:])
			orphans[len(orphans)-1] = nil
			orphans = orphans[:len(orphans)-1]
			i--
		}
	}
	b.prevOrphans[prevHash] = orphans

	// Remove the map entry altogether if there are no longer any orphans
	// which depend on the parent hash.
	if len(b.prevOrphans[prevHash]) == 0 {
		delete(b.prevOrphans, prevHash)
	}
}

// evictLeafOrphan drops a random orphan that no other orphan builds on.
//
// This function MUST be called with the orphan lock held (for writes).
func (b *BlockChain) evictLeafOrphan() {
	leaves := make([]*orphanBlock, 0, len(b.orphans))
	for h, orphan := range b.orphans {
		if len(b.prevOrphans[h]) == 0 {
			leaves = append(leaves, orphan)
		}
	}
	if len(leaves) == 0 {
		return
	}
	victim := leaves[rand.Intn(len(leaves))]
	log.Debug("Evicting orphan block", "hash", victim.block.Hash())
	b.removeOrphanBlock(victim)
}

// addOrphanBlock adds the passed block (which is already determined to be
// an orphan prior calling this function) to the orphan pool.  Leaf orphans
// are evicted at random to stay within the configured bound.
//
// This function is safe for concurrent access.
func (b *BlockChain) addOrphanBlock(block *types.SerializedBlock) {
	b.orphanLock.Lock()
	defer b.orphanLock.Unlock()

	for len(b.orphans) >= b.maxOrphanBlocks {
		before := len(b.orphans)
		b.evictLeafOrphan()
		if len(b.orphans) == before {
			break
		}
	}

	oBlock := &orphanBlock{block: block}
	b.orphans[*block.Hash()] = oBlock
	if block.Block().IsProofOfStake() {
		b.orphanStakes.Add(block.Block().ProofOfStake())
	}

	// Add to previous hash lookup index for faster dependency lookups.
	prevHash := oBlock.prevHash()
	b.prevOrphans[prevHash] = append(b.prevOrphans[prevHash], oBlock)
}

// takeOrphanChildren removes and returns the orphans built on h.
//
// This function is safe for concurrent access.
func (b *BlockChain) takeOrphanChildren(h *hash.Hash) []*orphanBlock {
	b.orphanLock.Lock()
	defer b.orphanLock.Unlock()

	children := make([]*orphanBlock, len(b.prevOrphans[*h]))
	copy(children, b.prevOrphans[*h])
	for _, orphan := range children {
		b.removeOrphanBlock(orphan)
	}
	return children
}

// processOrphans determines if there are any orphans which depend on the
// passed block hash (they are no longer orphans if true) and potentially
// accepts them.  It repeats the process for the newly accepted blocks (to
// detect further orphans which may no longer be orphans) until there are no
// more.  An orphan failing acceptance is dropped without affecting its
// siblings.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) processOrphans(h *hash.Hash, flags BehaviorFlags) {
	// Start with processing at least the passed hash.  Leave a little room
	// for additional orphan blocks that need to be processed without
	// needing to grow the array in the common case.
	processHashes := make([]*hash.Hash, 0, 10)
	processHashes = append(processHashes, h)
	for len(processHashes) > 0 {
		// Pop the first hash to process from the slice.
		processHash := processHashes[0]
		processHashes[0] = nil // Prevent GC leak.
		processHashes = processHashes[1:]

		for _, orphan := range b.takeOrphanChildren(processHash) {
			orphanHash := orphan.block.Hash()
			log.Debug("Accepting orphan block", "hash", orphanHash)
			if err := b.acceptBlock(orphan.block, flags); err != nil {
				log.Debug("Orphan block rejected", "hash", orphanHash, "err", err)
				continue
			}
			processHashes = append(processHashes, orphanHash)
		}
	}
}
