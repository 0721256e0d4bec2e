// Copyright (c) 2017-2018 The qitmeer developers
package node

import (
	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/core/stake"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/engine/txverify"
	"github.com/Qitmeer/vrx/node/service"
	"github.com/Qitmeer/vrx/services/blkmgr"
	"github.com/Qitmeer/vrx/services/mempool"
)

// VrxFull implements the full node service.
type VrxFull struct {
	service.Service

	// under node
	node *Node
	// chain state
	chain *blockchain.BlockChain
	// block manager handles all incoming blocks.
	blockManager *blkmgr.BlockManager
	// mempool hold tx that need to be mined into blocks and relayed to other peers.
	txMemPool *mempool.TxPool
	// clock time service
	timeSource blockchain.MedianTimeSource
}

func (vf *VrxFull) Start() error {
	log.Debug("Starting full node service")
	if err := vf.Service.Start(); err != nil {
		return err
	}
	if err := vf.txMemPool.Load(); err != nil {
		log.Warn("Failed to load mempool", "error", err)
	}
	vf.blockManager.Start()
	return nil
}

func (vf *VrxFull) Stop() error {
	log.Debug("Stopping full node service")
	if err := vf.Service.Stop(); err != nil {
		return err
	}

	log.Info("try stop bm")
	if err := vf.blockManager.Stop(); err != nil {
		return err
	}

	if vf.node.Config.PersistMempool {
		if _, err := vf.txMemPool.Save(); err != nil {
			log.Warn("Failed to save mempool", "error", err)
		}
	}
	return nil
}

func newVrxFull(node *Node) (*VrxFull, error) {
	cfg := node.Config
	vf := VrxFull{
		node:       node,
		timeSource: blockchain.NewLocalTimeSource(),
	}

	chain, err := blockchain.New(&blockchain.Config{
		DB:                 node.DB,
		BlockStore:         node.BlockStore,
		Interrupt:          node.quit,
		ChainParams:        node.Params,
		TimeSource:         vf.timeSource,
		ScriptVerifier:     txverify.New(),
		StakeChecker:       stake.New(node.Params),
		DisableCheckpoints: cfg.DisableCheckpoints,
		MaxOrphanBlocks:    cfg.MaxOrphanBlocks,
	})
	if err != nil {
		return nil, err
	}
	vf.chain = chain

	// mem-pool
	policy := mempool.DefaultPolicy()
	policy.AcceptNonStd = cfg.AcceptNonStd
	policy.FreeTxRelayLimit = cfg.FreeTxRelayLimit
	policy.MaxOrphanTxs = cfg.MaxOrphanTxs
	policy.MinRelayTxFee = types.Amount(cfg.MinRelayTxFee)
	txC := mempool.NewConfig(chain, policy)
	txC.TimeSource = vf.timeSource
	txC.DataDir = cfg.DataDir
	txC.Persist = cfg.PersistMempool
	vf.txMemPool = mempool.New(txC)

	// set mempool to chain
	chain.SetTxPool(vf.txMemPool)

	// block-manager
	vf.blockManager = blkmgr.New(&blkmgr.Config{
		Chain:           chain,
		TxPool:          vf.txMemPool,
		BanScore:        cfg.BanScore,
		AllowOrphanTxs:  cfg.MaxOrphanTxs > 0,
		RejectInsaneFee: cfg.RejectInsaneFee,
	})
	return &vf, nil
}

// GetChain returns the chain the node maintains.
func (vf *VrxFull) GetChain() *blockchain.BlockChain {
	return vf.chain
}

// GetBlockManager returns block manager.
func (vf *VrxFull) GetBlockManager() *blkmgr.BlockManager {
	return vf.blockManager
}

// GetTxPool returns the transaction memory pool.
func (vf *VrxFull) GetTxPool() *mempool.TxPool {
	return vf.txMemPool
}
