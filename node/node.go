// Copyright (c) 2017-2018 The qitmeer developers
package node

import (
	"sync"
	"time"

	"github.com/Qitmeer/vrx/config"
	"github.com/Qitmeer/vrx/database"
	"github.com/Qitmeer/vrx/node/service"
	"github.com/Qitmeer/vrx/params"
)

// Node works as a server container for all service can be registered.
type Node struct {
	services *service.ServiceRegistry
	wg       sync.WaitGroup
	quit     chan struct{}
	lock     sync.RWMutex

	startupTime int64

	// config
	Config *config.Config
	Params *params.Params

	// database layer
	DB         database.DB
	BlockStore database.BlockStore
}

func NewNode(cfg *config.Config, db database.DB, store database.BlockStore,
	chainParams *params.Params) (*Node, error) {

	n := Node{
		services:   service.NewServiceRegistry(),
		Config:     cfg,
		DB:         db,
		BlockStore: store,
		Params:     chainParams,
		quit:       make(chan struct{}),
	}
	return &n, nil
}

func (n *Node) Stop() error {
	log.Info("Stopping Server")
	if err := n.services.StopAll(); err != nil {
		return err
	}
	// Signal the node quit.
	close(n.quit)
	return nil
}

// WaitForShutdown blocks until the node event handler is stopped.
func (n *Node) WaitForShutdown() {
	log.Info("Waiting for server shutdown")
	n.wg.Wait()
}

func (n *Node) nodeEventHandler() {
	defer n.wg.Done()
	<-n.quit
	log.Trace("node stop event (quit) received")
}

func (n *Node) Start() error {
	n.lock.Lock()
	defer n.lock.Unlock()
	log.Info("Starting Node")
	if err := n.services.StartAll(); err != nil {
		return err
	}

	// Server startup time. Used for the uptime calculation.
	n.startupTime = time.Now().Unix()
	n.wg.Add(1)
	go n.nodeEventHandler()
	return nil
}

// Uptime returns the number of seconds since Start.
func (n *Node) Uptime() int64 {
	n.lock.RLock()
	defer n.lock.RUnlock()
	if n.startupTime == 0 {
		return 0
	}
	return time.Now().Unix() - n.startupTime
}

// RegisterService builds the full node service on top of the database.
func (n *Node) RegisterService() error {
	fullNode, err := newVrxFull(n)
	if err != nil {
		return err
	}
	return n.services.RegisterService(fullNode)
}

// GetVrxFull returns the registered full node service.
func (n *Node) GetVrxFull() *VrxFull {
	var vf *VrxFull
	if err := n.services.FetchService(&vf); err != nil {
		log.Error(err.Error())
		return nil
	}
	return vf
}
