// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blkmgr

import (
	"container/list"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
)

const (
	// DefaultBanScore is the misbehavior score at which a peer is banned.
	DefaultBanScore = 100

	// MaxBlocksInTransitPerPeer bounds the blocks requested from one peer
	// and not yet received.
	MaxBlocksInTransitPerPeer = 128

	// maxBlocksToDownload is the queue length past which a peer announcing
	// more blocks is penalized.
	maxBlocksToDownload = 5000

	queueOverflowScore = 10
)

// PeerID identifies a connected peer.
type PeerID int32

// LocalPeer is the source of blocks and transactions that do not come from
// the network, such as imported blocks.  It never accumulates a score.
const LocalPeer PeerID = -1

type queuedBlock struct {
	hash      hash.Hash
	requested time.Time
}

// nodeState is the validation state kept about a peer.
type nodeState struct {
	name             string
	misbehavior      int
	shouldBan        bool
	blocksInFlight   *list.List // *queuedBlock
	blocksToDownload *list.List // hash.Hash
	lastBlockReceive time.Time
	lastBlockProcess time.Time
}

// blockOwner records which peer a block was queued with and where.
type blockOwner struct {
	peer PeerID
	elem *list.Element
}

// NodeStateStats is a snapshot of a peer's state.
type NodeStateStats struct {
	Name             string
	Misbehavior      int
	ShouldBan        bool
	BlocksInFlight   int
	BlocksToDownload int
	LastBlockReceive time.Time
	LastBlockProcess time.Time
}

// InitializeNode starts tracking a peer.  Tracking an already known peer
// keeps its state.
func (b *BlockManager) InitializeNode(peer PeerID, name string) {
	b.stateMtx.Lock()
	defer b.stateMtx.Unlock()

	if _, ok := b.nodes[peer]; ok {
		return
	}
	b.nodes[peer] = &nodeState{
		name:             name,
		blocksInFlight:   list.New(),
		blocksToDownload: list.New(),
	}
	log.Debug("New peer", "peer", peer, "name", name)
}

// FinalizeNode forgets a peer together with its queued and requested
// blocks.  A reconnecting peer starts with a clean score.
func (b *BlockManager) FinalizeNode(peer PeerID) {
	b.stateMtx.Lock()
	defer b.stateMtx.Unlock()

	state, ok := b.nodes[peer]
	if !ok {
		return
	}
	for e := state.blocksInFlight.Front(); e != nil; e = e.Next() {
		delete(b.blocksInFlight, e.Value.(*queuedBlock).hash)
	}
	for e := state.blocksToDownload.Front(); e != nil; e = e.Next() {
		delete(b.blocksToDownload, e.Value.(hash.Hash))
	}
	delete(b.nodes, peer)
	log.Debug("Lost peer", "peer", peer, "name", state.name)
}

// Misbehaving adds howmuch to the score of peer and marks the peer for a ban
// once the score reaches the configured ban score.  Scores never decrease.
func (b *BlockManager) Misbehaving(peer PeerID, howmuch int) {
	b.stateMtx.Lock()
	b.misbehaving(peer, howmuch)
	b.stateMtx.Unlock()
}

// misbehaving is the lock-free body of Misbehaving.
//
// This function MUST be called with the state lock held.
func (b *BlockManager) misbehaving(peer PeerID, howmuch int) {
	if howmuch == 0 {
		return
	}
	state, ok := b.nodes[peer]
	if !ok {
		return
	}

	old := state.misbehavior
	state.misbehavior += howmuch
	misbehaviorMeter.Mark(int64(howmuch))
	if state.misbehavior >= b.cfg.BanScore {
		if !state.shouldBan {
			bannedMeter.Mark(1)
		}
		state.shouldBan = true
		log.Warn("Misbehaving: ban threshold exceeded", "peer", state.name,
			"old", old, "new", state.misbehavior)
		return
	}
	log.Info("Misbehaving", "peer", state.name, "old", old, "new", state.misbehavior)
}

// ShouldBan reports whether peer crossed the ban score.
func (b *BlockManager) ShouldBan(peer PeerID) bool {
	b.stateMtx.Lock()
	defer b.stateMtx.Unlock()
	state, ok := b.nodes[peer]
	return ok && state.shouldBan
}

// GetNodeStateStats returns the state of peer, or false if it is unknown.
func (b *BlockManager) GetNodeStateStats(peer PeerID) (NodeStateStats, bool) {
	b.stateMtx.Lock()
	defer b.stateMtx.Unlock()

	state, ok := b.nodes[peer]
	if !ok {
		return NodeStateStats{}, false
	}
	return NodeStateStats{
		Name:             state.name,
		Misbehavior:      state.misbehavior,
		ShouldBan:        state.shouldBan,
		BlocksInFlight:   state.blocksInFlight.Len(),
		BlocksToDownload: state.blocksToDownload.Len(),
		LastBlockReceive: state.lastBlockReceive,
		LastBlockProcess: state.lastBlockProcess,
	}, true
}

// QueueBlock adds a block announced by peer to its download queue.  It
// returns false when the block is already queued or requested anywhere, or
// the peer is unknown.  A peer whose queue grows past the limit is penalized.
func (b *BlockManager) QueueBlock(peer PeerID, h *hash.Hash) bool {
	b.stateMtx.Lock()
	defer b.stateMtx.Unlock()

	if _, ok := b.blocksToDownload[*h]; ok {
		return false
	}
	if _, ok := b.blocksInFlight[*h]; ok {
		return false
	}
	state, ok := b.nodes[peer]
	if !ok {
		return false
	}

	elem := state.blocksToDownload.PushBack(*h)
	if state.blocksToDownload.Len() > maxBlocksToDownload {
		b.misbehaving(peer, queueOverflowScore)
	}
	b.blocksToDownload[*h] = blockOwner{peer: peer, elem: elem}
	return true
}

// MarkBlockAsInFlight records a request for h sent to peer.
func (b *BlockManager) MarkBlockAsInFlight(peer PeerID, h *hash.Hash) bool {
	b.stateMtx.Lock()
	defer b.stateMtx.Unlock()
	return b.markBlockAsInFlight(peer, h)
}

// This function MUST be called with the state lock held.
func (b *BlockManager) markBlockAsInFlight(peer PeerID, h *hash.Hash) bool {
	state, ok := b.nodes[peer]
	if !ok {
		return false
	}

	// Make sure it's not listed somewhere already.
	b.markBlockAsReceived(h, LocalPeer)

	now := time.Now()
	if state.blocksInFlight.Len() == 0 {
		state.lastBlockReceive = now
	}
	elem := state.blocksInFlight.PushBack(&queuedBlock{hash: *h, requested: now})
	b.blocksInFlight[*h] = blockOwner{peer: peer, elem: elem}
	return true
}

// MarkBlockAsReceived drops h from the download queue and the in-flight
// requests.  from is the peer that delivered it.
func (b *BlockManager) MarkBlockAsReceived(h *hash.Hash, from PeerID) {
	b.stateMtx.Lock()
	b.markBlockAsReceived(h, from)
	b.stateMtx.Unlock()
}

// This function MUST be called with the state lock held.
func (b *BlockManager) markBlockAsReceived(h *hash.Hash, from PeerID) {
	if owner, ok := b.blocksToDownload[*h]; ok {
		if state, ok := b.nodes[owner.peer]; ok {
			state.blocksToDownload.Remove(owner.elem)
		}
		delete(b.blocksToDownload, *h)
	}

	if owner, ok := b.blocksInFlight[*h]; ok {
		if state, ok := b.nodes[owner.peer]; ok {
			state.blocksInFlight.Remove(owner.elem)
			if owner.peer == from {
				state.lastBlockReceive = time.Now()
			}
		}
		delete(b.blocksInFlight, *h)
	}
}

// RequestBlocks moves queued blocks of peer to in flight, keeping at most
// MaxBlocksInTransitPerPeer outstanding, and returns the hashes to request.
func (b *BlockManager) RequestBlocks(peer PeerID) []hash.Hash {
	b.stateMtx.Lock()
	defer b.stateMtx.Unlock()

	state, ok := b.nodes[peer]
	if !ok {
		return nil
	}
	var hashes []hash.Hash
	for state.blocksToDownload.Len() > 0 &&
		state.blocksInFlight.Len() < MaxBlocksInTransitPerPeer {

		h := state.blocksToDownload.Front().Value.(hash.Hash)
		b.markBlockAsInFlight(peer, &h)
		hashes = append(hashes, h)
	}
	return hashes
}

// markBlockProcessed stamps the last time a block of peer was processed.
func (b *BlockManager) markBlockProcessed(peer PeerID) {
	b.stateMtx.Lock()
	if state, ok := b.nodes[peer]; ok {
		state.lastBlockProcess = time.Now()
	}
	b.stateMtx.Unlock()
}
