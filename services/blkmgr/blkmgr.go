// Copyright (c) 2017-2018 The qitmeer developers

// Package blkmgr feeds blocks and transactions received from peers into the
// chain and the mempool, and turns the faults they cause into misbehavior
// scores for the peers that sent them.
package blkmgr

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/services/common/progresslog"
	"github.com/Qitmeer/vrx/services/mempool"
)

// ErrShutdown is returned for requests made while the manager stops.
var ErrShutdown = errors.New("block manager is shutting down")

// Config is the configuration of a BlockManager.
type Config struct {
	Chain  *blockchain.BlockChain
	TxPool *mempool.TxPool

	// BanScore is the misbehavior score that marks a peer for a ban.
	BanScore int

	// AllowOrphanTxs keeps transactions with unknown inputs in the orphan
	// pool instead of rejecting them.
	AllowOrphanTxs bool

	// RejectInsaneFee rejects transactions paying an absurdly high fee.
	RejectInsaneFee bool

	// MsgQueueSize is the capacity of the request queue.
	MsgQueueSize int
}

// BlockManager provides a concurrency safe block manager for handling all
// incoming blocks.
type BlockManager struct {
	started  int32
	shutdown int32

	cfg    Config
	chain  *blockchain.BlockChain
	txPool *mempool.TxPool

	rejectedTxns   map[hash.Hash]struct{}
	progressLogger *progresslog.BlockProgressLogger
	msgChan        chan interface{}
	chainState     ChainState

	// Peer state is independent of the chain and has its own lock.
	stateMtx         sync.Mutex
	nodes            map[PeerID]*nodeState
	blocksInFlight   map[hash.Hash]blockOwner
	blocksToDownload map[hash.Hash]blockOwner

	wg   sync.WaitGroup
	quit chan struct{}
}

// New returns a new block manager.
// Use Start to begin processing asynchronous block and transaction requests.
func New(cfg *Config) *BlockManager {
	c := *cfg
	if c.BanScore <= 0 {
		c.BanScore = DefaultBanScore
	}
	if c.MsgQueueSize <= 0 {
		c.MsgQueueSize = 64
	}
	b := &BlockManager{
		cfg:              c,
		chain:            c.Chain,
		txPool:           c.TxPool,
		rejectedTxns:     make(map[hash.Hash]struct{}),
		progressLogger:   progresslog.NewBlockProgressLogger("Processed", log),
		msgChan:          make(chan interface{}, c.MsgQueueSize),
		nodes:            make(map[PeerID]*nodeState),
		blocksInFlight:   make(map[hash.Hash]blockOwner),
		blocksToDownload: make(map[hash.Hash]blockOwner),
		quit:             make(chan struct{}),
	}

	best := b.chain.BestSnapshot()
	b.chainState.UpdateChainState(&best.Hash, best.Height, best.MedianTime)
	b.chain.Subscribe(blockchain.ObserverFunc(b.handleNotifyMsg))
	return b
}

// handleNotifyMsg handles notifications from blockchain.
func (b *BlockManager) handleNotifyMsg(notification *blockchain.Notification) {
	switch notification.Type {
	case blockchain.BlockConnected:
		best := b.chain.BestSnapshot()
		b.chainState.UpdateChainState(&best.Hash, best.Height, best.MedianTime)

	case blockchain.Reorganization:
		rd, ok := notification.Data.(*blockchain.ReorganizationNotifyData)
		if !ok {
			log.Warn("Chain reorganization notification is malformed")
			break
		}
		log.Info("Chain reorganized", "old", rd.OldHash, "oldHeight", rd.OldHeight,
			"new", rd.NewHash, "newHeight", rd.NewHeight, "fork", rd.ForkHash)
	}
}

// IsCurrent reports whether the chain believes it is synced.
func (b *BlockManager) IsCurrent() bool {
	return b.chain.IsCurrent()
}

// Start begins the core block handler which processes block and transaction
// requests.
func (b *BlockManager) Start() {
	// Already started?
	if atomic.AddInt32(&b.started, 1) != 1 {
		return
	}

	log.Trace("Starting block manager")
	b.wg.Add(1)
	go b.blockHandler()
}

func (b *BlockManager) Stop() error {
	if atomic.AddInt32(&b.shutdown, 1) != 1 {
		log.Warn("Block manager is already in the process of " +
			"shutting down")
		return nil
	}

	log.Info("Block manager shutting down")
	close(b.quit)
	b.wg.Wait()
	return nil
}

func (b *BlockManager) blockHandler() {
out:
	for {
		select {
		case m := <-b.msgChan:
			switch msg := m.(type) {
			case processBlockMsg:
				isOrphan, err := b.handleBlockMsg(&msg)
				msg.reply <- processBlockResponse{
					isOrphan: isOrphan,
					err:      err,
				}

			case processTransactionMsg:
				acceptedTxs, err := b.handleTxMsg(&msg)
				msg.reply <- processTransactionResponse{
					acceptedTxs: acceptedTxs,
					err:         err,
				}

			default:
				log.Warn("Invalid message type in block handler", "type", m)
			}

		case <-b.quit:
			break out
		}
	}

	b.wg.Done()
	log.Trace("Block handler done")
}

// processBlockResponse is a response sent to the reply channel of a
// processBlockMsg.
type processBlockResponse struct {
	isOrphan bool
	err      error
}

// processBlockMsg is a message type to be sent across the message channel
// for requested a block is processed.
type processBlockMsg struct {
	peer  PeerID
	block *types.SerializedBlock
	reply chan processBlockResponse
}

// ProcessBlock submits a block received from peer.  It reports whether the
// block was kept as an orphan.  A rejected block adds its misbehavior score
// to the peer.
func (b *BlockManager) ProcessBlock(peer PeerID, block *types.SerializedBlock) (bool, error) {
	reply := make(chan processBlockResponse, 1)
	select {
	case b.msgChan <- processBlockMsg{peer: peer, block: block, reply: reply}:
	case <-b.quit:
		return false, ErrShutdown
	}
	select {
	case response := <-reply:
		return response.isOrphan, response.err
	case <-b.quit:
		return false, ErrShutdown
	}
}

// processTransactionResponse is a response sent to the reply channel of a
// processTransactionMsg.
type processTransactionResponse struct {
	acceptedTxs []*mempool.TxDesc
	err         error
}

// processTransactionMsg is a message type to be sent across the message
// channel for requesting a transaction to be processed through the block
// manager.
type processTransactionMsg struct {
	peer  PeerID
	tx    *types.Tx
	reply chan processTransactionResponse
}

// ProcessTransaction submits a transaction received from peer to the
// mempool under the relay policy and returns the transactions it added.
func (b *BlockManager) ProcessTransaction(peer PeerID, tx *types.Tx) ([]*mempool.TxDesc, error) {
	reply := make(chan processTransactionResponse, 1)
	select {
	case b.msgChan <- processTransactionMsg{peer: peer, tx: tx, reply: reply}:
	case <-b.quit:
		return nil, ErrShutdown
	}
	select {
	case response := <-reply:
		return response.acceptedTxs, response.err
	case <-b.quit:
		return nil, ErrShutdown
	}
}
