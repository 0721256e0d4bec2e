// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2017-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/params"
)

// DefaultExpiry is how long a persisted transaction stays loadable.
const DefaultExpiry = 72 * time.Hour

// Config is a descriptor containing the memory pool configuration.
type Config struct {
	// Policy defines the various mempool configuration options related
	// to policy.
	Policy Policy

	// ChainParams identifies which chain parameters the txpool is
	// associated with.
	ChainParams *params.Params

	// FetchInputs resolves the inputs of a transaction against the best
	// chain, falling back to the given pool lookup.
	FetchInputs func(*types.Tx, func(*hash.Hash) *types.Tx) (blockchain.InputSet, error)

	// CheckTransactionInputs runs the input rules of the chain under the
	// given script flags and returns the fee.
	CheckTransactionInputs func(*types.Tx, blockchain.InputSet, blockchain.ScriptFlags) (types.Amount, error)

	// HaveTransaction reports whether a transaction is confirmed on the
	// best chain.
	HaveTransaction func(*hash.Hash) (bool, error)

	// BestHeight defines the function to use to access the block height of
	// the current best chain.
	BestHeight func() int64

	// TimeSource is the network adjusted clock.
	TimeSource blockchain.MedianTimeSource

	// TxLocks reports outpoints locked to a transaction.  It can be nil.
	TxLocks blockchain.LockTracker

	// DataDir holds the persisted pool when Persist is set.
	DataDir string
	Persist bool

	// Expiry bounds the age of persisted transactions that are loaded.
	Expiry time.Duration
}

// NewConfig returns a pool configuration backed by chain.
func NewConfig(chain *blockchain.BlockChain, policy Policy) *Config {
	return &Config{
		Policy:                 policy,
		ChainParams:            chain.Params(),
		FetchInputs:            chain.FetchInputs,
		CheckTransactionInputs: chain.CheckTransactionInputs,
		HaveTransaction:        chain.HaveTransaction,
		BestHeight: func() int64 {
			return chain.BestSnapshot().Height
		},
		TimeSource: blockchain.NewLocalTimeSource(),
		Expiry:     DefaultExpiry,
	}
}
