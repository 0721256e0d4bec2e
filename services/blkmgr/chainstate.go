// Copyright (c) 2017-2018 The qitmeer developers

package blkmgr

import (
	"sync"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
)

func (b *BlockManager) GetChainState() *ChainState {
	return &b.chainState
}

// UpdateChainState updates the chain state associated with the block manager.
func (c *ChainState) UpdateChainState(newestHash *hash.Hash,
	newestHeight int64, bestMedianTime time.Time) {

	c.Lock()
	defer c.Unlock()

	c.newestHash = newestHash
	c.newestHeight = newestHeight
	c.pastMedianTime = bestMedianTime
}

// Best returns the tip last seen by the block manager.
func (c *ChainState) Best() (*hash.Hash, int64, time.Time) {
	c.RLock()
	defer c.RUnlock()
	return c.newestHash, c.newestHeight, c.pastMedianTime
}

// ChainState tracks the state of the best chain as blocks are inserted so
// peer handlers can read the tip without going through the chain.
type ChainState struct {
	sync.RWMutex
	newestHash     *hash.Hash
	newestHeight   int64
	pastMedianTime time.Time
}
