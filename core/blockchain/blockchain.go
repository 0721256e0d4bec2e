// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/database"
	"github.com/Qitmeer/vrx/params"
	"github.com/deckarep/golang-set"
)

// BlockChain provides functions such as rejecting duplicate blocks, ensuring
// blocks follow all rules, orphan handling, checkpoint handling, and best chain
// selection with reorganization.
type BlockChain struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	params      *params.Params
	db          database.DB
	blockStore  database.BlockStore
	timeSource  MedianTimeSource
	verifier    ScriptVerifier
	stake       StakeChecker
	payees      PayeeOracle
	checkpoints CheckpointOracle
	velocity    VelocityChecker
	locks       LockTracker
	interrupt   <-chan struct{}

	masternodeAdvancedRelay bool
	maxOrphanBlocks         int

	// chainLock protects concurrent access to the vast majority of the
	// fields in this struct below this point.
	chainLock sync.RWMutex

	// noCheckpoints is toggled at runtime under the chain lock.
	noCheckpoints bool

	// These fields are related to the memory block index.  They are
	// protected by the chain lock.
	bestNode         *blockNode
	index            *blockIndex
	bestInvalidTrust *big.Int

	// Work queued under the chain lock and run once it is released.
	pendingNotifications []*Notification
	pendingPoolOps       []poolOp

	// These fields are related to handling of orphan blocks.  They are
	// protected by a combination of the chain lock and the orphan lock.
	orphanLock   sync.RWMutex
	orphans      map[hash.Hash]*orphanBlock
	prevOrphans  map[hash.Hash][]*orphanBlock
	orphanStakes mapset.Set

	// Initial block download state.
	ibdLock        sync.Mutex
	lastBestHash   hash.Hash
	lastBestUpdate int64
	lastIBDTime    int64

	observerLock sync.RWMutex
	observers    []ChainObserver
	txPool       TxPool

	// The state is used as a fairly efficient way to cache information
	// about the current best chain state that is returned to callers when
	// requested.  It operates on the principle of MVCC such that any time a
	// new block becomes the best block, the state pointer is replaced with
	// a new struct and the old state is left untouched.
	stateLock     sync.RWMutex
	stateSnapshot *BestState
}

// Config is a descriptor which specifies the blockchain instance configuration.
type Config struct {
	// DB houses the block index and the transaction index.
	//
	// This field is required.
	DB database.DB

	// BlockStore holds the serialized blocks.
	//
	// This field is required.
	BlockStore database.BlockStore

	// Interrupt specifies a channel the caller can close to signal that
	// long running operations, such as a multi block reorganization, should
	// stop at the next block boundary.
	//
	// This field can be nil if the caller does not desire the behavior.
	Interrupt <-chan struct{}

	// ChainParams identifies which chain parameters the chain is associated
	// with.
	//
	// This field is required.
	ChainParams *params.Params

	// TimeSource defines the median time source to use for things such as
	// block processing and determining whether or not the chain is current.
	// The system clock is used when nil.
	TimeSource MedianTimeSource

	// ScriptVerifier checks input signatures.
	//
	// This field is required.
	ScriptVerifier ScriptVerifier

	// StakeChecker validates stake kernels and modifiers.  Without it stake
	// blocks are rejected.
	StakeChecker StakeChecker

	// PayeeOracle resolves masternode payees.  It can be nil.
	PayeeOracle PayeeOracle

	// Checkpoints overrides the checkpoint oracle built from the params.
	Checkpoints CheckpointOracle

	// Velocity and TxLocks are optional external constraints.
	Velocity VelocityChecker
	TxLocks  LockTracker

	// DisableCheckpoints turns off hardened and synchronized checkpoints.
	DisableCheckpoints bool

	// MasternodeAdvancedRelay rejects blocks paying an unknown masternode
	// once the node is synced.
	MasternodeAdvancedRelay bool

	// MaxOrphanBlocks bounds the orphan pool, DefaultMaxOrphanBlocks when
	// zero.
	MaxOrphanBlocks int
}

// BestState houses information about the current best block and other info
// related to the state of the main chain as it exists from the point of view of
// the current best block.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner and the data will not be changed out from under
// the caller when chain state changes occur as the function name implies.
// However, the returned snapshot must be treated as immutable since it is
// shared by all callers.
type BestState struct {
	Hash        hash.Hash    // The hash of the block.
	Height      int64        // The height of the block.
	Bits        uint32       // The difficulty bits of the block.
	Trust       *big.Int     // The total trust of the chain.
	MoneySupply types.Amount // The coins in existence after the block.
	Time        time.Time    // The timestamp of the block.
	MedianTime  time.Time    // Median time as per CalcPastMedianTime.
}

// newBestState returns a new best stats instance for the given node.
func newBestState(node *blockNode) *BestState {
	return &BestState{
		Hash:        node.hash,
		Height:      node.height,
		Bits:        node.bits,
		Trust:       new(big.Int).Set(node.trust),
		MoneySupply: node.moneySupply,
		Time:        time.Unix(node.timestamp, 0),
		MedianTime:  node.CalcPastMedianTime(),
	}
}

// BestSnapshot returns information about the current best chain block and
// related state as of the current point in time.  The returned instance must be
// treated as immutable since it is shared by all callers.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestSnapshot() *BestState {
	b.stateLock.RLock()
	snapshot := b.stateSnapshot
	b.stateLock.RUnlock()
	return snapshot
}

// setBestNode moves the best pointer and publishes the new snapshot.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) setBestNode(node *blockNode) {
	b.bestNode = node
	state := newBestState(node)
	b.stateLock.Lock()
	b.stateSnapshot = state
	b.stateLock.Unlock()
}

// New returns a BlockChain instance using the provided configuration details.
func New(config *Config) (*BlockChain, error) {
	// Enforce required config fields.
	if config.DB == nil {
		return nil, AssertError("blockchain.New database is nil")
	}
	if config.BlockStore == nil {
		return nil, AssertError("blockchain.New block store is nil")
	}
	if config.ChainParams == nil {
		return nil, AssertError("blockchain.New chain parameters nil")
	}
	if config.ScriptVerifier == nil {
		return nil, AssertError("blockchain.New script verifier is nil")
	}

	b := &BlockChain{
		params:                  config.ChainParams,
		db:                      config.DB,
		blockStore:              config.BlockStore,
		timeSource:              config.TimeSource,
		verifier:                config.ScriptVerifier,
		stake:                   config.StakeChecker,
		payees:                  config.PayeeOracle,
		checkpoints:             config.Checkpoints,
		velocity:                config.Velocity,
		locks:                   config.TxLocks,
		interrupt:               config.Interrupt,
		masternodeAdvancedRelay: config.MasternodeAdvancedRelay,
		maxOrphanBlocks:         config.MaxOrphanBlocks,
		noCheckpoints:           config.DisableCheckpoints,
		index:                   newBlockIndex(config.DB, config.ChainParams),
		bestInvalidTrust:        new(big.Int),
		orphans:                 make(map[hash.Hash]*orphanBlock),
		prevOrphans:             make(map[hash.Hash][]*orphanBlock),
		orphanStakes:            mapset.NewThreadUnsafeSet(),
	}
	if b.timeSource == nil {
		b.timeSource = NewLocalTimeSource()
	}
	if b.checkpoints == nil {
		b.checkpoints = &checkpointOracle{chain: b}
	}
	if b.maxOrphanBlocks <= 0 {
		b.maxOrphanBlocks = DefaultMaxOrphanBlocks
	}

	// Initialize the chain state from the passed database.  When the db
	// does not yet contain any chain state, both it and the chain state
	// will be initialized to contain only the genesis block.
	if err := b.initChainState(); err != nil {
		return nil, err
	}

	log.Info("Chain state", "height", b.bestNode.height, "hash", b.bestNode.hash,
		"trust", b.bestNode.trust, "supply", b.bestNode.moneySupply,
		"blocks", b.index.Count())
	return b, nil
}

// createChainState initializes both the database and the chain state to the
// genesis block.
func (b *BlockChain) createChainState() error {
	genesis := types.NewBlock(b.params.GenesisBlock)
	if !genesis.Hash().IsEqual(b.params.GenesisHash) {
		return AssertError(fmt.Sprintf("genesis hash %v does not match params %v",
			genesis.Hash(), b.params.GenesisHash))
	}
	data, err := genesis.Bytes()
	if err != nil {
		return err
	}
	loc, err := b.blockStore.WriteBlock(data)
	if err != nil {
		return dbError(err, "write genesis block")
	}

	node := newBlockNode(genesis.Block(), nil)
	node.location = loc
	node.proofHash = genesis.Block().Header.PowHash()
	node.setStakeModifier(0, true)

	err = b.db.Update(func(dbTx database.Tx) error {
		if err := dbPutBlockNode(dbTx, node); err != nil {
			return err
		}
		return dbPutBestChain(dbTx, &node.hash)
	})
	if err != nil {
		return dbError(err, "create chain state")
	}
	b.index.AddNode(node)
	b.setBestNode(node)
	log.Info("Initialized chain with genesis block", "hash", node.hash)
	return nil
}

// initChainState attempts to load and initialize the chain state from the
// database.  When the db does not yet contain any chain state, both it and the
// chain state are initialized to the genesis block.
func (b *BlockChain) initChainState() error {
	var (
		best  *hash.Hash
		nodes []*blockNode
		recs  = make(map[*blockNode]*diskBlockIndex)
	)
	err := b.db.View(func(dbTx database.Tx) error {
		var err error
		best, err = dbFetchBestChain(dbTx)
		if err != nil || best == nil {
			return err
		}
		b.bestInvalidTrust, err = dbFetchBestInvalidTrust(dbTx)
		if err != nil {
			return err
		}
		return dbTx.ForEach(blockIndexPrefix, func(k, v []byte) error {
			node, rec, err := decodeBlockNode(k, v)
			if err != nil {
				return err
			}
			nodes = append(nodes, node)
			recs[node] = rec
			return nil
		})
	})
	if err != nil {
		return dbError(err, "load block index")
	}
	if best == nil {
		return b.createChainState()
	}

	log.Info("Loading block index", "blocks", len(nodes))
	b.index.Lock()
	tip, err := b.index.loadNodes(nodes, recs, best)
	b.index.Unlock()
	if err != nil {
		return err
	}
	if genesis := tip.Ancestor(0); genesis == nil || !genesis.hash.IsEqual(b.params.GenesisHash) {
		return AssertError("block index does not descend from the network genesis block")
	}
	b.setBestNode(tip)
	return nil
}

// HaveBlock returns whether or not the chain instance has the block represented
// by the passed hash.  This includes checking the various places a block can
// be like part of the main chain, on a side chain, or in the orphan pool.
//
// This function is safe for concurrent access.
func (b *BlockChain) HaveBlock(h *hash.Hash) bool {
	return b.index.HaveBlock(h) || b.IsOrphan(h)
}

// MainChainHasBlock reports whether the block is on the best chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) MainChainHasBlock(h *hash.Hash) bool {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.isOnMainChain(b.index.LookupNode(h))
}

// isOnMainChain follows the next link, which is set only along the best
// chain.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) isOnMainChain(node *blockNode) bool {
	return node != nil && (node == b.bestNode || node.next != nil)
}

// BlockByHash returns the indexed block with the given hash.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockByHash(h *hash.Hash) (*types.SerializedBlock, error) {
	node := b.index.LookupNode(h)
	if node == nil {
		return nil, HashError(h.String())
	}
	return b.blockByNode(node)
}

// BlockInfoByHash returns the index view of a block, nil when unknown.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockInfoByHash(h *hash.Hash) *BlockInfo {
	node := b.index.LookupNode(h)
	if node == nil {
		return nil
	}
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return node.info()
}

// SetTxPool installs the pool the chain keeps in step with reorganizations.
func (b *BlockChain) SetTxPool(pool TxPool) {
	b.observerLock.Lock()
	b.txPool = pool
	b.observerLock.Unlock()
}

// Params returns the network parameters of the chain.
func (b *BlockChain) Params() *params.Params {
	return b.params
}

// chainView reads index state for collaborators without locking.  It is
// only handed out while the chain lock is held.
type chainView struct {
	b *BlockChain
}

func (v chainView) BlockInfo(h *hash.Hash) *BlockInfo {
	node := v.b.index.LookupNode(h)
	if node == nil {
		return nil
	}
	return node.info()
}

func (v chainView) TxWithBlock(h *hash.Hash) (*types.Transaction, *BlockInfo, error) {
	var entry *TxIndexEntry
	err := v.b.db.View(func(dbTx database.Tx) error {
		var err error
		entry, err = dbFetchTxIndex(dbTx, h)
		return err
	})
	if err != nil {
		return nil, nil, dbError(err, "fetch tx index")
	}
	if entry == nil {
		return nil, nil, HashError(h.String())
	}
	tx, node, err := v.b.readTx(entry.Pos)
	if err != nil {
		return nil, nil, dbError(err, fmt.Sprintf("read tx %v", h))
	}
	if node == nil {
		return nil, nil, assertError("block of tx %v is not indexed", h)
	}
	return tx, node.info(), nil
}
