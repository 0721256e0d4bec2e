// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/params"
)

// checkpointOracle enforces the hardened checkpoints of the network params
// and the synchronized checkpoint derived from the best chain.  Its methods
// are called with the chain lock held.
type checkpointOracle struct {
	chain *BlockChain
}

// CheckHardened returns false when a checkpoint exists at height with a
// different hash.
func (c *checkpointOracle) CheckHardened(height int64, h *hash.Hash) bool {
	if c.chain.noCheckpoints {
		return true
	}
	for _, cp := range c.chain.params.Checkpoints {
		if cp.Height == height {
			return cp.Hash.IsEqual(h)
		}
	}
	return true
}

// CheckSynchronized returns false when height is at or below the
// synchronized checkpoint.
func (c *checkpointOracle) CheckSynchronized(height int64) bool {
	if c.chain.noCheckpoints {
		return true
	}
	sync := c.chain.syncCheckpoint()
	return sync == nil || height > sync.height
}

func (c *checkpointOracle) TotalBlocksEstimate() int64 {
	if c.chain.noCheckpoints {
		return 0
	}
	return c.chain.params.LatestCheckpointHeight()
}

// syncCheckpoint returns the deepest main chain block within the checkpoint
// span of the best block.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) syncCheckpoint() *blockNode {
	best := b.bestNode
	if best == nil {
		return nil
	}
	node := best
	for node.parent != nil && node.height+b.params.CheckpointSpan > best.height {
		node = node.parent
	}
	return node
}

// latestCheckpoint returns the most recent hardened checkpoint that is
// indexed, or nil.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) latestCheckpoint() (*params.Checkpoint, *blockNode) {
	if b.noCheckpoints {
		return nil, nil
	}
	checkpoints := b.params.Checkpoints
	for i := len(checkpoints) - 1; i >= 0; i-- {
		if node := b.index.LookupNode(checkpoints[i].Hash); node != nil {
			return &checkpoints[i], node
		}
	}
	return nil, nil
}

// DisableCheckpoints provides a mechanism to disable validation against
// checkpoints which you DO NOT want to do in production.  It is provided only
// for debug purposes.
//
// This function is safe for concurrent access.
func (b *BlockChain) DisableCheckpoints(disable bool) {
	b.chainLock.Lock()
	b.noCheckpoints = disable
	b.chainLock.Unlock()
}

// SyncCheckpointHeight returns the height of the synchronized checkpoint.
//
// This function is safe for concurrent access.
func (b *BlockChain) SyncCheckpointHeight() int64 {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	if node := b.syncCheckpoint(); node != nil {
		return node.height
	}
	return 0
}
