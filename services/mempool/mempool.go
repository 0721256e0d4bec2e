// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2017-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mempool holds the unconfirmed transactions a node relays and
// mines, together with the orphan transactions whose inputs are not yet
// known.
package mempool

import (
	"container/list"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/core/types"
)

// TxPool is used as a source of transactions that need to be mined into blocks
// and relayed to other peers.  It is safe for concurrent access from multiple
// peers.
type TxPool struct {
	// The following variables must only be used atomically.
	lastUpdated int64 // last time pool was updated.

	mtx           sync.RWMutex
	cfg           Config
	pool          map[hash.Hash]*TxDesc
	orphans       map[hash.Hash]*types.Tx
	orphansByPrev map[hash.Hash]map[hash.Hash]*types.Tx
	outpoints     map[types.TxOutPoint]*types.Tx

	pennyTotal    float64 // exponentially decaying total for penny spends.
	lastPennyUnix int64   // unix time of last ``penny spend''
}

var _ blockchain.TxPool = (*TxPool)(nil)

// New returns a new memory pool for validating and storing standalone
// transactions until they are mined into a block.
func New(cfg *Config) *TxPool {
	c := *cfg
	if c.TimeSource == nil {
		c.TimeSource = blockchain.NewLocalTimeSource()
	}
	return &TxPool{
		cfg:           c,
		pool:          make(map[hash.Hash]*TxDesc),
		orphans:       make(map[hash.Hash]*types.Tx),
		orphansByPrev: make(map[hash.Hash]map[hash.Hash]*types.Tx),
		outpoints:     make(map[types.TxOutPoint]*types.Tx),
	}
}

// TxDesc is a descriptor containing a transaction in the mempool along with
// additional metadata.
type TxDesc struct {
	Tx       *types.Tx
	Added    time.Time
	Height   int64 // best height when the transaction was added
	Fee      types.Amount
	FeePerKB types.Amount

	// StartingPriority is the priority of the transaction when it was added
	// to the pool.
	StartingPriority float64
}

// TxDescs returns a slice of descriptors for all the transactions in the pool.
// The descriptors are to be treated as read only.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxDescs() []*TxDesc {
	mp.mtx.RLock()
	descs := make([]*TxDesc, 0, len(mp.pool))
	for _, desc := range mp.pool {
		descs = append(descs, desc)
	}
	mp.mtx.RUnlock()

	return descs
}

// poolLookup returns a transaction of the main pool or nil.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) poolLookup(h *hash.Hash) *types.Tx {
	if desc, ok := mp.pool[*h]; ok {
		return desc.Tx
	}
	return nil
}

// removeTransaction is the internal function which implements the public
// RemoveTransaction.  See the comment for RemoveTransaction for more details.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeTransaction(theTx *types.Tx, removeRedeemers bool) {
	tx := theTx.Transaction()
	txHash := theTx.Hash()
	if removeRedeemers {
		// Remove any transactions which rely on this one.
		for i := uint32(0); i < uint32(len(tx.TxOut)); i++ {
			outpoint := types.NewOutPoint(txHash, i)
			if txRedeemer, exists := mp.outpoints[*outpoint]; exists {
				mp.removeTransaction(txRedeemer, true)
			}
		}
	}

	// Remove the transaction if needed.
	if txDesc, exists := mp.pool[*txHash]; exists {
		// Mark the referenced outpoints as unspent by the pool.
		for _, txIn := range txDesc.Tx.Transaction().TxIn {
			delete(mp.outpoints, txIn.PreviousOut)
		}
		delete(mp.pool, *txHash)
		poolSizeGauge.Update(int64(len(mp.pool)))
		atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())
		log.Trace("Removed transaction", "tx", txHash, "pool size", len(mp.pool))
	}
}

// RemoveTransaction removes the passed transaction from the mempool. When the
// removeRedeemers flag is set, any transactions that redeem outputs from the
// removed transaction will also be removed recursively from the mempool, as
// they would otherwise become orphans.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveTransaction(tx *types.Tx, removeRedeemers bool) {
	// Protect concurrent access.
	mp.mtx.Lock()
	mp.removeTransaction(tx, removeRedeemers)
	mp.mtx.Unlock()
}

// RemoveDoubleSpends removes all transactions which spend outputs spent by the
// passed transaction from the memory pool.  Removing those transactions then
// leads to removing all transactions which rely on them, recursively.  This is
// necessary when a block is connected to the main chain because the block may
// contain transactions which were previously unknown to the memory pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveDoubleSpends(tx *types.Tx) {
	// Protect concurrent access.
	mp.mtx.Lock()
	for _, txIn := range tx.Transaction().TxIn {
		if txRedeemer, ok := mp.outpoints[txIn.PreviousOut]; ok {
			if !txRedeemer.Hash().IsEqual(tx.Hash()) {
				mp.removeTransaction(txRedeemer, true)
			}
		}
	}
	mp.mtx.Unlock()
}

// addTransaction adds the passed transaction to the memory pool.  It should
// not be called directly as it doesn't perform any validation.  This is a
// helper for maybeAcceptTransaction.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) addTransaction(inputs blockchain.InputSet, tx *types.Tx,
	height int64, fee types.Amount) *TxDesc {

	// Add the transaction to the pool and mark the referenced outpoints
	// as spent by the pool.
	msgTx := tx.Transaction()
	txD := &TxDesc{
		Tx:               tx,
		Added:            time.Now(),
		Height:           height,
		Fee:              fee,
		FeePerKB:         fee * 1000 / types.Amount(msgTx.SerializeSize()),
		StartingPriority: CalcPriority(msgTx, inputs, height+1),
	}
	mp.pool[*tx.Hash()] = txD
	for _, txIn := range msgTx.TxIn {
		mp.outpoints[txIn.PreviousOut] = tx
	}
	atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())
	poolSizeGauge.Update(int64(len(mp.pool)))
	return txD
}

// missingParents lists the inputs of tx that neither the chain nor the pool
// knows.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) missingParents(tx *types.Tx) ([]*hash.Hash, error) {
	var missing []*hash.Hash
	seen := make(map[hash.Hash]struct{})
	for _, txIn := range tx.Transaction().TxIn {
		prevHash := txIn.PreviousOut.Hash
		if _, ok := seen[prevHash]; ok {
			continue
		}
		seen[prevHash] = struct{}{}
		if mp.isTransactionInPool(&prevHash) {
			continue
		}
		confirmed, err := mp.cfg.HaveTransaction(&prevHash)
		if err != nil {
			return nil, err
		}
		if !confirmed {
			missing = append(missing, &prevHash)
		}
	}
	return missing, nil
}

// maybeAcceptTransaction is the internal function which implements the public
// AcceptToMemoryPool.  See the comment for AcceptToMemoryPool for more
// details.  When inputs are missing their hashes are returned and the
// transaction is not added.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) maybeAcceptTransaction(tx *types.Tx, limitFree, rejectInsaneFee,
	ignoreFees bool) ([]*hash.Hash, *TxDesc, error) {

	msgTx := tx.Transaction()
	txHash := tx.Hash()

	// Perform preliminary sanity checks on the transaction.  This makes
	// use of chain which contains the invariant rules for what
	// transactions are allowed into blocks.
	if err := blockchain.CheckTransaction(msgTx); err != nil {
		return nil, nil, wrapChainError(err)
	}

	// Coinbase and coinstake transactions only exist inside blocks.
	if msgTx.IsCoinBase() {
		str := fmt.Sprintf("transaction %v is an individual coinbase",
			txHash)
		return nil, nil, txRuleErrorDoS(RejectInvalid, 100, str)
	}
	if msgTx.IsCoinStake() {
		str := fmt.Sprintf("transaction %v is an individual coinstake",
			txHash)
		return nil, nil, txRuleErrorDoS(RejectInvalid, 100, str)
	}

	// A standalone transaction will be mined into the next block at best,
	// so its height is at least one more than the current height.
	nextBlockHeight := mp.cfg.BestHeight() + 1

	// Don't allow non-standard transactions if the mempool config forbids
	// their acceptance and relaying.
	if !mp.cfg.Policy.AcceptNonStd {
		err := checkTransactionStandard(tx, nextBlockHeight,
			mp.cfg.TimeSource.AdjustedTime())
		if err != nil {
			rejectCode, found := extractRejectCode(err)
			if !found {
				rejectCode = RejectNonstandard
			}
			str := fmt.Sprintf("transaction %v is not standard: %v",
				txHash, err)
			return nil, nil, txRuleError(rejectCode, str)
		}
	}

	// Don't accept the transaction if it already exists in the pool.  This
	// applies to orphan transactions as well.  This check is intended to
	// be a quick check to weed out duplicates.
	if mp.haveTransaction(txHash) {
		str := fmt.Sprintf("already have transaction %v", txHash)
		return nil, nil, txRuleError(RejectDuplicate, str)
	}

	if err := mp.checkTxLocks(tx); err != nil {
		return nil, nil, err
	}

	// The transaction may not use any of the same outputs as other
	// transactions already in the pool as that would ultimately result in a
	// double spend.  This check is intended to be quick and therefore only
	// detects double spends within the transaction pool itself.  The
	// transaction could still be double spending coins from the main chain
	// at this point.  There is a more in-depth check that happens later
	// after fetching the referenced transaction inputs from the main chain
	// which examines the actual spend data and prevents double spends.
	if err := mp.checkPoolDoubleSpend(tx); err != nil {
		return nil, nil, err
	}

	confirmed, err := mp.cfg.HaveTransaction(txHash)
	if err != nil {
		return nil, nil, err
	}
	if confirmed {
		str := fmt.Sprintf("transaction %v already exists in the chain", txHash)
		return nil, nil, txRuleError(RejectDuplicate, str)
	}

	// Fetch all of the transactions referenced by the inputs.  The
	// transaction is an orphan if any of them is unknown.
	inputs, err := mp.cfg.FetchInputs(tx, mp.poolLookup)
	if err != nil {
		if blockchain.IsErrorCode(err, blockchain.ErrMissingTxOut) {
			missing, merr := mp.missingParents(tx)
			if merr != nil {
				return nil, nil, merr
			}
			if len(missing) > 0 {
				return missing, nil, nil
			}
		}
		return nil, nil, wrapChainError(err)
	}

	// Don't allow transactions with non-standard inputs if the mempool config
	// forbids their acceptance and relaying.
	if !mp.cfg.Policy.AcceptNonStd {
		if err := checkInputsStandard(tx, inputs); err != nil {
			rejectCode, found := extractRejectCode(err)
			if !found {
				rejectCode = RejectNonstandard
			}
			str := fmt.Sprintf("transaction %v has a non-standard "+
				"input: %v", txHash, err)
			return nil, nil, txRuleError(rejectCode, str)
		}
	}

	// Don't allow transactions with an excessive number of signature
	// operations which would result in making it impossible to mine.  Since
	// the coinbase address itself can contain signature operations, the
	// maximum allowed signature operations per transaction is less than
	// the maximum allowed signature operations per block.
	numSigOps := blockchain.CountSigOps(msgTx) + countP2SHSigOps(tx, inputs)
	if numSigOps > mp.cfg.Policy.MaxSigOpsPerTx {
		str := fmt.Sprintf("transaction %v has too many sigops: %d > %d",
			txHash, numSigOps, mp.cfg.Policy.MaxSigOpsPerTx)
		return nil, nil, txRuleError(RejectNonstandard, str)
	}

	var valueIn types.Amount
	for _, txIn := range msgTx.TxIn {
		valueIn += inputs.Output(&txIn.PreviousOut).Amount
	}
	txFee := valueIn - msgTx.ValueOut()
	serializedSize := int64(msgTx.SerializeSize())

	// A negative fee is left to the input checks below.
	if !ignoreFees && txFee >= 0 {
		// Don't allow transactions with fees too low to get into a
		// mined block.
		minFee := calcMinRequiredTxRelayFee(serializedSize,
			mp.cfg.Policy.MinRelayTxFee, true)
		if limitFree && txFee < minFee {
			str := fmt.Sprintf("transaction %v has %v fees which "+
				"is under the required amount of %v", txHash,
				txFee, minFee)
			return nil, nil, txRuleError(RejectInsufficientFee, str)
		}

		// Free-to-relay transactions are rate limited here to prevent
		// penny-flooding with tiny transactions as a form of attack.
		if limitFree && txFee < mp.cfg.Policy.MinRelayTxFee {
			nowUnix := mp.cfg.TimeSource.AdjustedTime().Unix()
			// Decay passed data with an exponentially decaying ~10
			// minute window.
			mp.pennyTotal *= math.Pow(1.0-1.0/600.0,
				float64(nowUnix-mp.lastPennyUnix))
			mp.lastPennyUnix = nowUnix

			// Are we still over the limit?
			if mp.pennyTotal >= mp.cfg.Policy.FreeTxRelayLimit*10*1000 {
				str := fmt.Sprintf("transaction %v has been rejected "+
					"by the rate limiter due to low fees", txHash)
				return nil, nil, txRuleError(RejectInsufficientFee, str)
			}
			oldTotal := mp.pennyTotal

			mp.pennyTotal += float64(serializedSize)
			log.Trace("Rate limit", "curTotal", oldTotal, "nextTotal", mp.pennyTotal,
				"limit", mp.cfg.Policy.FreeTxRelayLimit*10*1000)
		}
	}

	if rejectInsaneFee {
		maxFee := mp.cfg.Policy.MinRelayTxFee * maxRelayFeeMultiplier
		if txFee > maxFee {
			str := fmt.Sprintf("transaction %v has %v fee which is above "+
				"the insane fee threshold of %v", txHash, txFee, maxFee)
			return nil, nil, txRuleError(RejectNonstandard, str)
		}
	}

	// Check against the chain last since verifying signatures is the most
	// expensive part.
	txFee, err = mp.cfg.CheckTransactionInputs(tx, inputs, blockchain.StandardScriptFlags)
	if err != nil {
		return nil, nil, wrapChainError(err)
	}

	// Check again against just the mandatory flags so a bug in the
	// standard rules never lets an invalid transaction in.
	if _, err := mp.cfg.CheckTransactionInputs(tx, inputs, blockchain.MandatoryScriptFlags); err != nil {
		log.Error("Transaction passes standard but not mandatory script checks",
			"tx", txHash, "err", err)
		return nil, nil, wrapChainError(err)
	}

	txD := mp.addTransaction(inputs, tx, nextBlockHeight-1, txFee)

	log.Debug("Accepted transaction", "txHash", txHash, "pool size", len(mp.pool))

	return nil, txD, nil
}

// AcceptToMemoryPool validates a free-standing transaction and adds it to the
// pool.  limitFree applies the minimum fee and the free relay rate limiter,
// rejectInsaneFee rejects absurdly high fees and ignoreFees skips the fee
// rules.  When inputs are unknown missingInputs is set, the transaction is
// neither added nor kept as an orphan and err is nil.
//
// This function is safe for concurrent access.
func (mp *TxPool) AcceptToMemoryPool(tx *types.Tx, limitFree, rejectInsaneFee,
	ignoreFees bool) (missingInputs bool, err error) {

	mp.mtx.Lock()
	missing, txD, err := mp.maybeAcceptTransaction(tx, limitFree, rejectInsaneFee, ignoreFees)
	mp.mtx.Unlock()

	mp.markResult(tx, txD, err)
	return len(missing) > 0, err
}

// MaybeAcceptTransaction puts a transaction of a disconnected block back in
// the pool.  Fee rules do not apply.
//
// This function is safe for concurrent access.
func (mp *TxPool) MaybeAcceptTransaction(tx *types.Tx) error {
	mp.mtx.Lock()
	missing, _, err := mp.maybeAcceptTransaction(tx, false, false, true)
	mp.mtx.Unlock()

	if err == nil && len(missing) > 0 {
		err = fmt.Errorf("transaction %v references unknown input %v",
			tx.Hash(), missing[0])
	}
	return err
}

// markResult records the outcome of a submission.
func (mp *TxPool) markResult(tx *types.Tx, txD *TxDesc, err error) {
	switch {
	case err != nil:
		rejectedMeter.Mark(1)
		log.Trace("Failed to process transaction", "tx", tx.Hash(), "err", err)
	case txD != nil:
		acceptedMeter.Mark(1)
	}
}

// ProcessTransaction is the main workhorse for handling insertion of new
// free-standing transactions into the memory pool.  It includes functionality
// such as rejecting duplicate transactions, ensuring transactions follow all
// rules, orphan transaction handling, and insertion into the memory pool.
//
// It returns a slice of transactions added to the mempool.  When the
// error is nil, the list will include the passed transaction itself along
// with any additional orphan transaactions that were added as a result of
// the passed one being accepted.
//
// This function is safe for concurrent access.
func (mp *TxPool) ProcessTransaction(tx *types.Tx, allowOrphan, limitFree,
	rejectInsaneFee bool) ([]*TxDesc, error) {

	// Protect concurrent access.
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	// Potentially accept the transaction to the memory pool.
	missingParents, txD, err := mp.maybeAcceptTransaction(tx, limitFree,
		rejectInsaneFee, false)
	mp.markResult(tx, txD, err)
	if err != nil {
		return nil, err
	}

	// If len(missingParents) == 0 then we know the tx is NOT an orphan.
	if len(missingParents) == 0 {
		// Accept any orphan transactions that depend on this
		// transaction (they are no longer orphans if all inputs are
		// now available) and repeat for those accepted transactions
		// until there are no more.
		newTxs := mp.processOrphans(tx.Hash())

		// Add the parent transaction first so remote nodes
		// do not add orphans.
		acceptedTxs := make([]*TxDesc, 0, len(newTxs)+1)
		acceptedTxs = append(acceptedTxs, txD)
		acceptedTxs = append(acceptedTxs, newTxs...)
		return acceptedTxs, nil
	}

	// The transaction is an orphan (has inputs missing).  Reject
	// it if the flag to allow orphans is not set.
	if !allowOrphan {
		// Only use the first missing parent transaction in
		// the error message.
		str := fmt.Sprintf("orphan transaction %v references "+
			"outputs of unknown or fully-spent "+
			"transaction %v", tx.Hash(), missingParents[0])
		return nil, txRuleError(RejectDuplicate, str)
	}

	// Potentially add the orphan transaction to the orphan pool.
	return nil, mp.maybeAddOrphan(tx)
}

// maybeAddOrphan potentially adds an orphan to the orphan pool.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) maybeAddOrphan(tx *types.Tx) error {
	// Ignore orphan transactions that are too large.  This helps avoid
	// a memory exhaustion attack based on sending a lot of really large
	// orphans.  In the case there is a valid transaction larger than this,
	// it will ultimtely be rebroadcast after the parent transactions
	// have been mined or otherwise received.
	serializedLen := tx.Transaction().SerializeSize()
	if serializedLen > mp.cfg.Policy.MaxOrphanTxSize {
		str := fmt.Sprintf("orphan transaction size of %d bytes is "+
			"larger than max allowed size of %d bytes",
			serializedLen, mp.cfg.Policy.MaxOrphanTxSize)
		return txRuleError(RejectNonstandard, str)
	}

	// Add the orphan if the none of the above disqualified it.
	mp.limitNumOrphans()
	mp.addOrphan(tx)

	return nil
}

// removeOrphan is the internal function which implements the public
// RemoveOrphan.  See the comment for RemoveOrphan for more details.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeOrphan(txHash *hash.Hash) {
	// Nothing to do if passed tx is not an orphan.
	tx, exists := mp.orphans[*txHash]
	if !exists {
		return
	}
	log.Trace("Removing orphan transaction", "tx", txHash)

	// Remove the reference from the previous orphan index.
	for _, txIn := range tx.Transaction().TxIn {
		originTxHash := txIn.PreviousOut.Hash
		if orphans, exists := mp.orphansByPrev[originTxHash]; exists {
			delete(orphans, *tx.Hash())

			// Remove the map entry altogether if there are no
			// longer any orphans which depend on it.
			if len(orphans) == 0 {
				delete(mp.orphansByPrev, originTxHash)
			}
		}
	}

	// Remove the transaction from the orphan pool.
	delete(mp.orphans, *txHash)
}

// RemoveOrphan removes the passed orphan transaction from the orphan pool and
// previous orphan index.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveOrphan(txHash *hash.Hash) {
	mp.mtx.Lock()
	mp.removeOrphan(txHash)
	mp.mtx.Unlock()
}

// limitNumOrphans makes room for one more orphan by evicting a random one
// when the pool is full.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) limitNumOrphans() {
	for len(mp.orphans) > 0 && len(mp.orphans) >= mp.cfg.Policy.MaxOrphanTxs {
		// Remove a random entry from the map.  For most compilers, Go's
		// range statement iterates starting at a random item although
		// that is not 100% guaranteed by the language.
		for txHash := range mp.orphans {
			h := txHash
			mp.removeOrphan(&h)
			break
		}
	}
}

// processOrphans is the internal function which implements the public
// ProcessOrphans.  See the comment for ProcessOrphans for more details.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) processOrphans(h *hash.Hash) []*TxDesc {
	var acceptedTxns []*TxDesc

	// Start with processing at least the passed hash.
	processHashes := list.New()
	processHashes.PushBack(h)
	for processHashes.Len() > 0 {
		// Pop the first hash to process.
		firstElement := processHashes.Remove(processHashes.Front())
		processHash := firstElement.(*hash.Hash)

		// Look up all orphans that are referenced by the transaction we
		// just accepted.  This will typically only be one, but it could
		// be multiple if the referenced transaction contains multiple
		// outputs.  Skip to the next item on the list of hashes to
		// process if there are none.
		orphans, exists := mp.orphansByPrev[*processHash]
		if !exists || orphans == nil {
			continue
		}

		candidates := make([]*types.Tx, 0, len(orphans))
		for _, tx := range orphans {
			candidates = append(candidates, tx)
		}
		for _, tx := range candidates {
			// Orphans with a newly accepted parent leave the orphan
			// pool unless they still miss another parent.
			orphanHash := tx.Hash()
			mp.removeOrphan(orphanHash)

			missingParents, txD, err := mp.maybeAcceptTransaction(tx,
				true, true, false)
			mp.markResult(tx, txD, err)
			if err != nil {
				log.Debug("Unable to move orphan transaction to mempool",
					"tx", orphanHash, "err", err)
				continue
			}

			if len(missingParents) > 0 {
				mp.addOrphan(tx)
				continue
			}

			// Add this transaction to the list of transactions
			// that are no longer orphans.
			acceptedTxns = append(acceptedTxns, txD)

			// Add this transaction to the list of transactions to
			// process so any orphans that depend on this one are
			// handled too.
			processHashes.PushBack(orphanHash)
		}
	}

	return acceptedTxns
}

// addOrphan adds an orphan transaction to the orphan pool.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) addOrphan(tx *types.Tx) {
	// Nothing to do if no orphans are allowed.
	if mp.cfg.Policy.MaxOrphanTxs <= 0 {
		return
	}

	mp.orphans[*tx.Hash()] = tx
	for _, txIn := range tx.Transaction().TxIn {
		originTxHash := txIn.PreviousOut.Hash
		if _, exists := mp.orphansByPrev[originTxHash]; !exists {
			mp.orphansByPrev[originTxHash] =
				make(map[hash.Hash]*types.Tx)
		}
		mp.orphansByPrev[originTxHash][*tx.Hash()] = tx
	}

	log.Debug("Stored orphan transaction", "tx", tx.Hash(), "total", len(mp.orphans))
}

// ProcessOrphans determines if there are any orphans which depend on the passed
// transaction hash (it is possible that they are no longer orphans) and
// potentially accepts them to the memory pool.  It repeats the process for the
// newly accepted transactions (to detect further orphans which may no longer be
// orphans) until there are no more.
//
// It returns a slice of transactions added to the mempool.  A nil slice means
// no transactions were moved from the orphan pool to the mempool.
//
// This function is safe for concurrent access.
func (mp *TxPool) ProcessOrphans(hash *hash.Hash) []*TxDesc {
	mp.mtx.Lock()
	acceptedTxns := mp.processOrphans(hash)
	mp.mtx.Unlock()
	return acceptedTxns
}

// FetchTransaction returns the requested transaction from the transaction pool.
// This only fetches from the main transaction pool and does not include
// orphans.
//
// This function is safe for concurrent access.
func (mp *TxPool) FetchTransaction(txHash *hash.Hash) (*types.Tx, error) {
	// Protect concurrent access.
	mp.mtx.RLock()
	txDesc, exists := mp.pool[*txHash]
	mp.mtx.RUnlock()

	if exists {
		return txDesc.Tx, nil
	}

	return nil, fmt.Errorf("transaction is not in the pool")
}

// haveTransaction returns whether or not the passed transaction already exists
// in the main pool or in the orphan pool.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) haveTransaction(hash *hash.Hash) bool {
	return mp.isTransactionInPool(hash) || mp.isOrphanInPool(hash)
}

// HaveTransaction returns whether or not the passed transaction already exists
// in the main pool or in the orphan pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) HaveTransaction(hash *hash.Hash) bool {
	// Protect concurrent access.
	mp.mtx.RLock()
	haveTx := mp.haveTransaction(hash)
	mp.mtx.RUnlock()

	return haveTx
}

// isTransactionInPool returns whether or not the passed transaction already
// exists in the main pool.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) isTransactionInPool(hash *hash.Hash) bool {
	_, exists := mp.pool[*hash]
	return exists
}

// IsTransactionInPool returns whether or not the passed transaction already
// exists in the main pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) IsTransactionInPool(hash *hash.Hash) bool {
	// Protect concurrent access.
	mp.mtx.RLock()
	inPool := mp.isTransactionInPool(hash)
	mp.mtx.RUnlock()

	return inPool
}

// isOrphanInPool returns whether or not the passed transaction already exists
// in the orphan pool.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) isOrphanInPool(hash *hash.Hash) bool {
	_, exists := mp.orphans[*hash]
	return exists
}

// IsOrphanInPool returns whether or not the passed transaction already exists
// in the orphan pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) IsOrphanInPool(hash *hash.Hash) bool {
	// Protect concurrent access.
	mp.mtx.RLock()
	inPool := mp.isOrphanInPool(hash)
	mp.mtx.RUnlock()

	return inPool
}

// LastUpdated returns the last time a transaction was added to or removed from
// the main pool.  It does not include the orphan pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) LastUpdated() time.Time {
	return time.Unix(atomic.LoadInt64(&mp.lastUpdated), 0)
}

// Count returns the number of transactions in the main pool.  It does not
// include the orphan pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) Count() int {
	mp.mtx.RLock()
	count := len(mp.pool)
	mp.mtx.RUnlock()

	return count
}

// OrphanCount returns the number of orphan transactions.
//
// This function is safe for concurrent access.
func (mp *TxPool) OrphanCount() int {
	mp.mtx.RLock()
	count := len(mp.orphans)
	mp.mtx.RUnlock()

	return count
}
