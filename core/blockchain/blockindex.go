// Copyright (c) 2017-2018 The qitmeer developers
package blockchain

import (
	"sort"
	"sync"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types/pow"
	"github.com/Qitmeer/vrx/database"
	"github.com/Qitmeer/vrx/params"
	"github.com/deckarep/golang-set"
)

// blockIndex provides facilities for keeping track of an in-memory index of the
// block chain.  Although the name block chain suggests a single chain of
// blocks, it is actually a tree-shaped structure where any node can have
// multiple children.  However, there can only be one active branch which does
// indeed form a chain from the tip all the way back to the genesis block.
type blockIndex struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	db     database.DB
	params *params.Params

	sync.RWMutex
	index map[hash.Hash]*blockNode

	// stakeSeen holds the stake keys of indexed stake blocks.
	stakeSeen mapset.Set
}

// newBlockIndex returns a new empty instance of a block index.  The index will
// be dynamically populated as block nodes are loaded from the database and
// manually added.
func newBlockIndex(db database.DB, par *params.Params) *blockIndex {
	return &blockIndex{
		db:        db,
		params:    par,
		index:     make(map[hash.Hash]*blockNode),
		stakeSeen: mapset.NewThreadUnsafeSet(),
	}
}

// lookupNode returns the block node identified by the provided hash.  It will
// return nil if there is no entry for the hash.
//
// This function MUST be called with the block index lock held (for reads).
func (bi *blockIndex) lookupNode(hash *hash.Hash) *blockNode {
	return bi.index[*hash]
}

// LookupNode returns the block node identified by the provided hash.  It will
// return nil if there is no entry for the hash.
//
// This function is safe for concurrent access.
func (bi *blockIndex) LookupNode(hash *hash.Hash) *blockNode {
	bi.RLock()
	node := bi.lookupNode(hash)
	bi.RUnlock()
	return node
}

// addNode adds the provided node to the block index and records its stake.
//
// This function MUST be called with the block index lock held (for writes).
func (bi *blockIndex) addNode(node *blockNode) {
	bi.index[node.hash] = node
	if key, ok := node.stakeKey(); ok {
		bi.stakeSeen.Add(key)
	}
}

// AddNode adds the provided node to the block index.
//
// This function is safe for concurrent access.
func (bi *blockIndex) AddNode(node *blockNode) {
	bi.Lock()
	bi.addNode(node)
	bi.Unlock()
}

// HaveBlock returns whether or not the block index contains the provided hash.
//
// This function is safe for concurrent access.
func (bi *blockIndex) HaveBlock(hash *hash.Hash) bool {
	bi.RLock()
	_, hasBlock := bi.index[*hash]
	bi.RUnlock()
	return hasBlock
}

// HaveStake reports whether an indexed block already claims the stake.
func (bi *blockIndex) HaveStake(key interface{}) bool {
	bi.RLock()
	defer bi.RUnlock()
	return bi.stakeSeen.Contains(key)
}

// Count returns the number of indexed blocks.
func (bi *blockIndex) Count() int {
	bi.RLock()
	defer bi.RUnlock()
	return len(bi.index)
}

// loadNodes links the decoded nodes, computes their trust in height order
// and returns the node of the best hash.
//
// This function MUST be called with the block index lock held (for writes).
func (bi *blockIndex) loadNodes(nodes []*blockNode, recs map[*blockNode]*diskBlockIndex,
	best *hash.Hash) (*blockNode, error) {

	for _, node := range nodes {
		bi.index[node.hash] = node
	}
	for _, node := range nodes {
		rec := recs[node]
		if rec.PrevBlock.IsZero() {
			continue
		}
		parent := bi.index[rec.PrevBlock]
		if parent == nil {
			return nil, assertError("block %v has unindexed parent %v", node.hash, rec.PrevBlock)
		}
		node.parent = parent
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].height < nodes[j].height })
	for _, node := range nodes {
		node.trust = pow.CalcTrust(node.bits)
		if node.parent != nil {
			node.trust.Add(node.trust, node.parent.trust)
		}
		if key, ok := node.stakeKey(); ok {
			bi.stakeSeen.Add(key)
		}
	}

	tip := bi.index[*best]
	if tip == nil {
		return nil, assertError("best chain block %v is not indexed", best)
	}

	// The stored next links may be stale after an interrupted reorg, so
	// they are rebuilt along the best chain.
	for _, node := range nodes {
		node.next = nil
	}
	for n := tip; n.parent != nil; n = n.parent {
		h := n.hash
		n.parent.next = &h
	}
	return tip, nil
}
