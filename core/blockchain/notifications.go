// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
)

// NotificationType represents the type of a notification message.
type NotificationType int

// Constants for the type of a notification message.
const (
	// BlockAccepted indicates the associated block was accepted into
	// the block chain.  Note that this does not necessarily mean it was
	// added to the main chain.  For that, use BlockConnected.
	BlockAccepted NotificationType = iota

	// BlockConnected indicates the associated block was connected to the
	// main chain.
	BlockConnected

	// BlockDisconnected indicates the associated block was disconnected
	// from the main chain.
	BlockDisconnected

	// Reorganization indicates that a blockchain reorganization took
	// place.
	Reorganization
)

// notificationTypeStrings is a map of notification types back to their constant
// names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	BlockAccepted:     "BlockAccepted",
	BlockConnected:    "BlockConnected",
	BlockDisconnected: "BlockDisconnected",
	Reorganization:    "Reorganization",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// BlockAcceptedNotifyData is the structure for data indicating information
// about an accepted block.  Note that this does not necessarily mean the block
// that was accepted extended the best chain as it might have created or
// extended a side chain.
type BlockAcceptedNotifyData struct {
	IsMainChainTipChange bool

	// Block is the block that was accepted into the chain.
	Block *types.SerializedBlock

	Flags BehaviorFlags
}

// ReorganizationNotifyData is the structure for data indicating information
// about a reorganization.
type ReorganizationNotifyData struct {
	OldHash   hash.Hash
	OldHeight int64
	NewHash   hash.Hash
	NewHeight int64
	ForkHash  hash.Hash
}

// Notification defines notification that is sent to the registered observers
// and consists of a notification type as well as associated data that depends
// on the type as follows:
// 	- BlockAccepted:         *BlockAcceptedNotifyData
// 	- BlockConnected:        *types.SerializedBlock
// 	- BlockDisconnected:     *types.SerializedBlock
// 	- Reorganization:        *ReorganizationNotifyData
type Notification struct {
	Type NotificationType
	Data interface{}
}

// ObserverFunc adapts a function to a ChainObserver.
type ObserverFunc func(n *Notification)

func (f ObserverFunc) OnChainNotification(n *Notification) {
	f(n)
}

// Subscribe registers an observer.  Observers are called synchronously, in
// registration order, after the chain lock is released.
//
// This function is safe for concurrent access.
func (b *BlockChain) Subscribe(o ChainObserver) {
	b.observerLock.Lock()
	b.observers = append(b.observers, o)
	b.observerLock.Unlock()
}

// poolOp is a mempool update produced by a chain change.
type poolOp struct {
	tx        *types.Tx
	resurrect bool
}

// sendNotification queues a notification for delivery once the chain lock
// is released.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) sendNotification(typ NotificationType, data interface{}) {
	b.pendingNotifications = append(b.pendingNotifications,
		&Notification{Type: typ, Data: data})
}

// queueResurrect schedules a transaction of a disconnected block for the
// pool.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) queueResurrect(tx *types.Tx) {
	b.pendingPoolOps = append(b.pendingPoolOps, poolOp{tx: tx, resurrect: true})
}

// queueConfirmed schedules the removal of a transaction now mined on the
// best chain, together with its pool conflicts.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) queueConfirmed(tx *types.Tx) {
	b.pendingPoolOps = append(b.pendingPoolOps, poolOp{tx: tx})
}

// takePending detaches the queued work.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) takePending() ([]*Notification, []poolOp) {
	notes, ops := b.pendingNotifications, b.pendingPoolOps
	b.pendingNotifications, b.pendingPoolOps = nil, nil
	return notes, ops
}

// dispatch runs detached work: pool updates first so observers see a pool
// consistent with the chain.
//
// This function MUST NOT be called with the chain state lock held.
func (b *BlockChain) dispatch(notes []*Notification, ops []poolOp) {
	b.observerLock.RLock()
	pool := b.txPool
	observers := make([]ChainObserver, len(b.observers))
	copy(observers, b.observers)
	b.observerLock.RUnlock()

	if pool != nil {
		for _, op := range ops {
			if op.resurrect {
				if err := pool.MaybeAcceptTransaction(op.tx); err != nil {
					log.Debug("Dropped transaction of disconnected block",
						"tx", op.tx.Hash(), "err", err)
				}
				continue
			}
			pool.RemoveTransaction(op.tx, false)
			pool.RemoveDoubleSpends(op.tx)
		}
	}

	for _, n := range notes {
		log.Trace("Chain notification", "type", n.Type)
		for _, o := range observers {
			o.OnChainNotification(n)
		}
	}
}
