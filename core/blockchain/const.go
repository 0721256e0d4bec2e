// Copyright (c) 2017-2018 The qitmeer developers
package blockchain

import (
	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
)

const (
	// blockHdrSize is the size of a block header.  This is simply the
	// constant from types and is only provided here for convenience.
	blockHdrSize = types.MaxBlockHeaderPayload

	// medianTimeBlocks is the number of previous blocks which should be
	// used to calculate the median time used to validate block timestamps.
	medianTimeBlocks = 11

	// maxTimeDrift is the number of seconds a block may be ahead of the
	// adjusted time, and behind the past time limit of its parent.
	maxTimeDrift = 5 * 60

	// MinCoinbaseScriptLen is the minimum length a coinbase script can be.
	MinCoinbaseScriptLen = 2

	// MaxCoinbaseScriptLen is the maximum length a coinbase script can be.
	MaxCoinbaseScriptLen = 100

	// DefaultMaxOrphanBlocks bounds the orphan block pool.
	DefaultMaxOrphanBlocks = 10000

	// ibdDebounce and ibdTipAge make a node still syncing while its tip keeps
	// moving and is old.
	ibdDebounce = 15
	ibdTipAge   = 8 * 60 * 60

	// paymentEngageDelay is how long after leaving initial download the
	// masternode payee must be known.
	paymentEngageDelay = 45 * 60

	// dryRunWindow is the number of seconds after a payment update during
	// which the difficulty resets to the limit.
	dryRunWindow = 480
)

var (
	// zeroHash is the zero value for a hash.Hash and is defined as a
	// package level variable to avoid the need to create a new instance
	// every time a check is needed.
	zeroHash = &hash.ZeroHash
)
