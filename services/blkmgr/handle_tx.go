// Copyright (c) 2017-2018 The qitmeer developers

package blkmgr

import (
	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/services/mempool"
)

const (
	// maxRejectedTxns is the maximum number of rejected transactions
	// hashes to store in memory.
	maxRejectedTxns = 1000
)

// handleTxMsg handles transactions from all peers.
func (b *BlockManager) handleTxMsg(tmsg *processTransactionMsg) ([]*mempool.TxDesc, error) {
	txHash := tmsg.tx.Hash()

	// Ignore transactions that we have already rejected.  The transaction
	// was unsolicited if it was rejected before.
	if _, exists := b.rejectedTxns[*txHash]; exists {
		log.Debug("Ignoring previously rejected transaction", "tx", txHash,
			"peer", tmsg.peer)
		return nil, nil
	}

	// Process the transaction to include validation, insertion in the
	// memory pool, orphan handling, etc.
	acceptedTxs, err := b.txPool.ProcessTransaction(tmsg.tx,
		b.cfg.AllowOrphanTxs, true, b.cfg.RejectInsaneFee)
	if err != nil {
		// Do not request this transaction again until a new block
		// has been processed.
		b.rejectedTxns[*txHash] = struct{}{}
		limitMap(b.rejectedTxns, maxRejectedTxns)

		// When the error is a rule error, it means the transaction was
		// simply rejected as opposed to something actually going wrong,
		// so log it as such.  Otherwise, something really did go wrong,
		// so log it as an actual error.
		if _, ok := err.(mempool.RuleError); ok {
			code, reason := mempool.ErrToRejectErr(err)
			log.Debug("Rejected transaction", "tx", txHash, "peer", tmsg.peer,
				"code", code, "reason", reason)
		} else {
			log.Error("Failed to process transaction", "tx", txHash, "err", err)
		}
		b.penalize(tmsg.peer, mempool.DoSScore(err))
		return nil, err
	}
	return acceptedTxs, nil
}

// limitMap is a helper function for maps that require a maximum limit by
// evicting a random entry if adding a new value would cause it to
// overflow the maximum allowed.
func limitMap(m map[hash.Hash]struct{}, limit int) {
	for len(m) > limit {
		// Remove a random entry from the map.  For most compilers, Go's
		// range statement iterates starting at a random item although
		// that is not 100% guaranteed by the language.  The iteration order
		// is not important here because an adversary would have to be
		// able to pull off preimage attacks on the hashing function in
		// order to target eviction of specific entries anyways.
		for txHash := range m {
			delete(m, txHash)
			break
		}
	}
}
