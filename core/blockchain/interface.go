// Copyright (c) 2017-2018 The qitmeer developers

package blockchain

import (
	"math/big"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
)

// MedianTimeSource provides the network adjusted time blocks are checked
// against.
type MedianTimeSource interface {
	AdjustedTime() time.Time
}

type localTime struct{}

func (localTime) AdjustedTime() time.Time {
	return time.Unix(time.Now().Unix(), 0)
}

// NewLocalTimeSource returns a time source backed by the system clock.
func NewLocalTimeSource() MedianTimeSource {
	return localTime{}
}

// ScriptFlags selects the script rules an input is verified under.
type ScriptFlags uint32

const (
	// ScriptVerifyMandatory are the consensus rules.
	ScriptVerifyMandatory ScriptFlags = 1 << iota

	// ScriptVerifyStrictEncoding requires canonical signature and public key
	// encodings.
	ScriptVerifyStrictEncoding

	// ScriptVerifyLowS requires the low S form of signatures.
	ScriptVerifyLowS
)

const (
	// MandatoryScriptFlags are enforced for every connected input.
	MandatoryScriptFlags = ScriptVerifyMandatory

	// StandardScriptFlags are enforced on transactions entering the pool.
	StandardScriptFlags = MandatoryScriptFlags | ScriptVerifyStrictEncoding |
		ScriptVerifyLowS
)

// ScriptVerifier checks that input idx of tx is allowed to spend prevOut.
type ScriptVerifier interface {
	VerifySignature(prevOut *types.TxOutput, tx *types.Transaction, idx int,
		flags ScriptFlags) bool
}

// BlockInfo is the read only view of an indexed block given to
// collaborators.
type BlockInfo struct {
	Hash                   hash.Hash
	PrevHash               hash.Hash
	Height                 int64
	Time                   int64
	Bits                   uint32
	StakeModifier          uint64
	GeneratedStakeModifier bool
	StakeEntropyBit        uint32
	ProofOfStake           bool
	ProofHash              hash.Hash
}

// ChainReader looks up index state for collaborators called while the chain
// lock is held.  Implementations do not lock.
type ChainReader interface {
	// BlockInfo returns the indexed block with the hash or nil.
	BlockInfo(h *hash.Hash) *BlockInfo

	// TxWithBlock returns a confirmed transaction and the block holding it.
	TxWithBlock(h *hash.Hash) (*types.Transaction, *BlockInfo, error)
}

// StakeChecker validates stake kernels and derives stake modifiers.
type StakeChecker interface {
	// CheckProofOfStake validates the coinstake of a block built on prev
	// and returns its kernel hash and the weighted target.
	CheckProofOfStake(chain ChainReader, prev *BlockInfo, coinstake *types.Transaction,
		bits uint32) (hash.Hash, *big.Int, error)

	// ComputeNextStakeModifier returns the modifier of a child of prev and
	// whether it is freshly generated.
	ComputeNextStakeModifier(chain ChainReader, prev *BlockInfo) (uint64, bool, error)
}

// PayeeOracle resolves masternode payees.
type PayeeOracle interface {
	GetWinningMasternode(height int64) (payee []byte, vin *types.TxOutPoint, ok bool)
	IsPayeeAValidMasternode(script []byte) bool
}

// CheckpointOracle decides hardened and synchronized checkpoint compliance.
type CheckpointOracle interface {
	CheckHardened(height int64, h *hash.Hash) bool
	CheckSynchronized(height int64) bool
	TotalBlocksEstimate() int64
}

// VelocityChecker applies the optional external block velocity constraint.
type VelocityChecker interface {
	CheckVelocity(prev *BlockInfo, block *types.Block) bool
}

// LockTracker reports instant transaction locks on outpoints.
type LockTracker interface {
	// LockedBy returns the transaction an outpoint is locked to.
	LockedBy(outpoint *types.TxOutPoint) (hash.Hash, bool)
}

// TxPool is the part of the unconfirmed transaction pool the chain drives
// during reorganization.  It is called after the chain lock is released.
type TxPool interface {
	// MaybeAcceptTransaction re-admits a transaction of a disconnected
	// block.
	MaybeAcceptTransaction(tx *types.Tx) error

	// RemoveTransaction drops a transaction and, if removeRedeemers is set,
	// everything spending it.
	RemoveTransaction(tx *types.Tx, removeRedeemers bool)

	// RemoveDoubleSpends drops pool transactions that spend an input of tx.
	RemoveDoubleSpends(tx *types.Tx)

	HaveTransaction(h *hash.Hash) bool
	FetchTransaction(h *hash.Hash) (*types.Tx, error)
}

// ChainObserver receives chain notifications after the chain lock is
// released.
type ChainObserver interface {
	OnChainNotification(n *Notification)
}
