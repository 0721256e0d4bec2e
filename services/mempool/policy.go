// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2017-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/Qitmeer/vrx/core/types"
)

const (
	// DefaultBlockPrioritySize is the default size in bytes for high-
	// priority / low-fee transactions.  Relayed transactions smaller than
	// this, less one kilobyte, need no fee.
	DefaultBlockPrioritySize = 50000

	// maxStandardP2SHSigOps is the maximum number of signature operations
	// that are considered standard in a pay-to-script-hash script.
	maxStandardP2SHSigOps = 15

	// maxStandardTxSize is the maximum size allowed for transactions that
	// are considered standard and will therefore be relayed and considered
	// for mining.
	maxStandardTxSize = 100000

	// maxStandardSigScriptSize is the maximum size allowed for a
	// transaction input signature script to be considered standard.  This
	// value allows for a 15-of-15 CHECKMULTISIG pay-to-script-hash with
	// compressed keys.
	//
	// (1 + 15*74 + 3) + (15*34 + 3) + 23 = 1650
	maxStandardSigScriptSize = 1650

	// DefaultMinRelayTxFee is the minimum fee in atoms that is required
	// per started kilobyte of a relayed transaction, 0.0001 coin.
	DefaultMinRelayTxFee = types.Amount(1e4)

	// maxRelayFeeMultiplier is the factor of the minimum relay fee above
	// which a fee is considered insane.
	maxRelayFeeMultiplier = 1e4

	// DefaultFreeTxRelayLimit is the number of kilobytes per minute of
	// free transactions relayed.
	DefaultFreeTxRelayLimit = 15.0

	// DefaultMaxOrphanTxs is the default number of orphan transactions
	// kept, one per hundred bytes of the maximum block size.
	DefaultMaxOrphanTxs = types.MaxBlockSize / 100

	// DefaultMaxOrphanTxSize is the largest orphan transaction kept.
	DefaultMaxOrphanTxSize = 5000

	// maxStandardMultiSigKeys is the maximum number of public keys allowed
	// in a multi-signature transaction output script for it to be
	// considered standard.
	maxStandardMultiSigKeys = 3

	// maxNullDataOutputs is the maximum number of OP_RETURN null data
	// pushes in a transaction, after which it is considered non-standard.
	maxNullDataOutputs = 1

	// maxTxTimeDrift is how far a standard transaction may be dated ahead
	// of the adjusted time.
	maxTxTimeDrift = 5 * 60
)

// Policy houses the policy (configuration parameters) which is used to
// control the mempool.
type Policy struct {
	// AcceptNonStd defines whether to accept and relay non-standard
	// transactions to the network. If true, non-standard transactions
	// will be accepted into the mempool and relayed to the rest of the
	// network. Otherwise, all non-standard transactions will be rejected.
	AcceptNonStd bool

	// FreeTxRelayLimit defines the given amount in thousands of bytes
	// per minute that transactions with no fee are rate limited to.
	FreeTxRelayLimit float64

	// MaxOrphanTxs is the maximum number of orphan transactions
	// that can be queued.
	MaxOrphanTxs int

	// MaxOrphanTxSize is the maximum size allowed for orphan transactions.
	// This helps prevent memory exhaustion attacks from sending a lot of
	// of big orphans.
	MaxOrphanTxSize int

	// MaxSigOpsPerTx is the maximum number of signature operations
	// in a single transaction we will relay or mine.  It is a fraction
	// of the max signature operations for a block.
	MaxSigOpsPerTx int

	// MinRelayTxFee defines the minimum transaction fee in atoms per
	// started kilobyte.
	MinRelayTxFee types.Amount
}

// DefaultPolicy returns the relay policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		FreeTxRelayLimit: DefaultFreeTxRelayLimit,
		MaxOrphanTxs:     DefaultMaxOrphanTxs,
		MaxOrphanTxSize:  DefaultMaxOrphanTxSize,
		MaxSigOpsPerTx:   types.MaxTxSigOps,
		MinRelayTxFee:    DefaultMinRelayTxFee,
	}
}
