// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2013-2016 The btcsuite developers

package main

import (
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/Qitmeer/vrx/config"
	"github.com/Qitmeer/vrx/log"
	"github.com/Qitmeer/vrx/metrics"
	"github.com/Qitmeer/vrx/node"
	"github.com/Qitmeer/vrx/params"
	"github.com/Qitmeer/vrx/services/common"
	"github.com/Qitmeer/vrx/version"
)

func main() {
	// Initialize the goroutine count,  Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Block and transaction processing can cause bursty allocations.  This
	// limits the garbage collector from excessively overallocating during
	// bursts.  This value was arrived at with the help of profiling live
	// usage.
	debug.SetGCPercent(20)

	// Work around defer not working after os.Exit()
	if err := vrxdMain(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

// vrxdMain is the real main function for vrxd.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func vrxdMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	cfg, _, err := common.LoadConfig()
	if err != nil {
		return err
	}

	defer func() {
		if log.LogWrite() != nil {
			log.LogWrite().Close()
		}
	}()
	// Get a channel that will be closed when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem.
	interrupt := interruptListener()
	defer log.Info("Shutdown complete")

	// Show version and home dir at startup.
	log.Info("System info", "Version", version.String(), "Go version", runtime.Version())
	log.Info("System info", "Home dir", cfg.HomeDir, "Network", params.ActiveNetParams.Name)

	if cfg.NoFileLogging {
		log.Info("File logging disabled")
	}

	if cfg.Metrics {
		go metrics.CollectProcessMetrics(3 * time.Second)
	}

	// Load the block database.
	db, store, err := common.LoadBlockDB(cfg, params.ActiveNetParams)
	if err != nil {
		log.Error("load block database", "error", err)
		return err
	}
	defer func() {
		// Ensure the database is sync'd and closed on shutdown.
		log.Info("Gracefully shutting down the database...")
		store.Close()
		db.Close()
	}()

	// Return now if an interrupt signal was triggered.
	if interruptRequested(interrupt) {
		return nil
	}

	// Create node and start it.
	n, err := node.NewNode(cfg, db, store, params.ActiveNetParams)
	if err != nil {
		log.Error("Unable to create node", "error", err)
		return err
	}
	err = n.RegisterService()
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Gracefully shutting down the server...")
		err := n.Stop()
		if err != nil {
			log.Warn("node stop error", "error", err)
		}
		n.WaitForShutdown()
	}()
	err = n.Start()
	if err != nil {
		log.Error("Unable to start server", "error", err)
		return err
	}

	if cfg.ImportFile != "" {
		if err := importFile(n.GetVrxFull(), cfg.ImportFile, interrupt); err != nil {
			return err
		}
	}
	logBestState(n, cfg)

	// Wait until the interrupt signal is received from an OS signal or
	// shutdown is requested through one of the subsystems.
	<-interrupt
	return nil
}

func importFile(vf *node.VrxFull, path string, interrupt <-chan struct{}) error {
	f, err := os.Open(path)
	if err != nil {
		log.Error("Unable to open import file", "path", path, "error", err)
		return err
	}
	defer f.Close()

	log.Info("Importing blocks", "path", path)
	start := time.Now()
	res, err := vf.ImportBlocks(f, interrupt)
	if err != nil {
		log.Error("Import failed", "error", err)
		return err
	}
	log.Info("Import finished", "read", res.Read, "processed", res.Processed,
		"orphans", res.Orphans, "elapsed", time.Since(start).Truncate(time.Millisecond))
	return nil
}

func logBestState(n *node.Node, cfg *config.Config) {
	chain := n.GetVrxFull().GetChain()
	best := chain.BestSnapshot()
	log.Info("Best chain", "hash", best.Hash, "height", best.Height,
		"trust", best.Trust, "supply", best.MoneySupply,
		"ibd", chain.IsInitialBlockDownload(), "dbtype", cfg.DbType)
}
