// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"sort"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/core/types/pow"
	"github.com/Qitmeer/vrx/database"
)

// blockFlags is a bit field of the stake properties of a block.
//
// NOTE: The flags are serialized with the index entry and must be stable.
type blockFlags uint8

const (
	flagProofOfStake blockFlags = 1 << 0

	// flagStakeEntropy carries the entropy bit of the block.
	flagStakeEntropy blockFlags = 1 << 1

	// flagStakeModifier is set when the block generated a new stake
	// modifier.
	flagStakeModifier blockFlags = 1 << 2
)

// blockNode represents a block within the block chain.  The parent link is
// the only structural edge; the canonical path is described by next, which
// only the chain selector writes.
type blockNode struct {
	// parent is the parent block for this node.
	parent *blockNode

	// next is the id of the child on the best chain, nil off it or at the
	// tip.
	next *hash.Hash

	// hash is the hash of the block this node represents.
	hash hash.Hash

	// trust is the total trust of the chain up to and including this node.
	trust *big.Int

	height   int64
	location database.BlockLocation

	mint        types.Amount
	moneySupply types.Amount

	flags         blockFlags
	stakeModifier uint64

	// proofHash is the pow hash of a work block or the kernel hash of a
	// stake block.
	proofHash hash.Hash

	// prevoutStake and stakeTime make the stake key of a stake block.
	prevoutStake types.TxOutPoint
	stakeTime    int64

	// Header fields.
	blockVersion int32
	txRoot       hash.Hash
	timestamp    int64
	bits         uint32
	nonce        uint32
}

// newBlockNode returns a new block node for the given block and parent node.
// The trust is calculated based on the parent, or, in the case no parent is
// provided, it will just be the trust of the passed block.
func newBlockNode(block *types.Block, parent *blockNode) *blockNode {
	header := &block.Header
	node := &blockNode{
		hash:         block.BlockHash(),
		trust:        pow.CalcTrust(header.Difficulty),
		blockVersion: header.Version,
		txRoot:       header.TxRoot,
		timestamp:    header.Timestamp.Unix(),
		bits:         header.Difficulty,
		nonce:        header.Nonce,
	}
	if block.IsProofOfStake() {
		node.flags |= flagProofOfStake
		key := block.ProofOfStake()
		node.prevoutStake = key.PrevOut
		node.stakeTime = key.Time
	}
	if node.hash[0]&1 != 0 {
		node.flags |= flagStakeEntropy
	}
	if parent != nil {
		node.parent = parent
		node.height = parent.height + 1
		node.trust.Add(node.trust, parent.trust)
	}
	return node
}

// Header constructs a block header from the node and returns it.
func (node *blockNode) Header() types.BlockHeader {
	prevHash := hash.ZeroHash
	if node.parent != nil {
		prevHash = node.parent.hash
	}
	return types.BlockHeader{
		Version:    node.blockVersion,
		PrevBlock:  prevHash,
		TxRoot:     node.txRoot,
		Timestamp:  time.Unix(node.timestamp, 0),
		Difficulty: node.bits,
		Nonce:      node.nonce,
	}
}

func (node *blockNode) isProofOfStake() bool {
	return node.flags&flagProofOfStake != 0
}

func (node *blockNode) stakeEntropyBit() uint32 {
	if node.flags&flagStakeEntropy != 0 {
		return 1
	}
	return 0
}

func (node *blockNode) generatedStakeModifier() bool {
	return node.flags&flagStakeModifier != 0
}

func (node *blockNode) setStakeModifier(modifier uint64, generated bool) {
	node.stakeModifier = modifier
	if generated {
		node.flags |= flagStakeModifier
	}
}

// stakeKey returns the stake key claimed by the block, or false for work
// blocks.
func (node *blockNode) stakeKey() (types.StakeKey, bool) {
	if !node.isProofOfStake() {
		return types.StakeKey{}, false
	}
	return types.StakeKey{PrevOut: node.prevoutStake, Time: node.stakeTime}, true
}

// pastTimeLimit is the earliest time a child of the node may carry.
func (node *blockNode) pastTimeLimit() int64 {
	return node.timestamp - maxTimeDrift
}

// CalcPastMedianTime calculates the median time of the previous few blocks
// prior to, and including, the block node.
func (node *blockNode) CalcPastMedianTime() time.Time {
	timestamps := make([]int64, 0, medianTimeBlocks)
	for n := node; n != nil && len(timestamps) < medianTimeBlocks; n = n.parent {
		timestamps = append(timestamps, n.timestamp)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	return time.Unix(timestamps[len(timestamps)/2], 0)
}

// Ancestor returns the ancestor block node at the provided height by following
// the chain backwards from this node.  The returned block will be nil when a
// height is requested that is after the height of the passed node or is less
// than zero.
func (node *blockNode) Ancestor(height int64) *blockNode {
	if height < 0 || height > node.height {
		return nil
	}
	n := node
	for ; n != nil && n.height != height; n = n.parent {
	}
	return n
}

// lastOfType walks back to the latest block of the requested proof type,
// stopping at genesis.
func (node *blockNode) lastOfType(proofOfStake bool) *blockNode {
	n := node
	for n.parent != nil && n.isProofOfStake() != proofOfStake {
		n = n.parent
	}
	return n
}

// info returns the exported view of the node handed to collaborators.
func (node *blockNode) info() *BlockInfo {
	bi := &BlockInfo{
		Hash:                   node.hash,
		Height:                 node.height,
		Time:                   node.timestamp,
		Bits:                   node.bits,
		StakeModifier:          node.stakeModifier,
		GeneratedStakeModifier: node.generatedStakeModifier(),
		StakeEntropyBit:        node.stakeEntropyBit(),
		ProofOfStake:           node.isProofOfStake(),
		ProofHash:              node.proofHash,
	}
	if node.parent != nil {
		bi.PrevHash = node.parent.hash
	}
	return bi
}
