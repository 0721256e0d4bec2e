package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Qitmeer/vrx/config"
	"github.com/Qitmeer/vrx/database"
	_ "github.com/Qitmeer/vrx/database/badgerdb"
	_ "github.com/Qitmeer/vrx/database/boltdb"
	"github.com/Qitmeer/vrx/database/ldb"
	"github.com/Qitmeer/vrx/log"
	"github.com/Qitmeer/vrx/params"
)

const (
	// blockDbNamePrefix is the prefix for the block database name.  The
	// database type is appended to this value to form the full block
	// database name.
	blockDbNamePrefix = "blocks"

	// blockFilesDirname holds the flat block files next to the index.
	blockFilesDirname = "blockfiles"
)

// LoadBlockDB loads (or creates when needed) the block index database taking
// into account the selected database backend, together with the store that
// holds the serialized blocks.  The memdb backend keeps the blocks in memory
// as well.
func LoadBlockDB(cfg *config.Config, p *params.Params) (database.DB, database.BlockStore, error) {
	if cfg.DbType == ldb.MemDbType {
		log.Info("Using in-memory block database")
		db, err := database.Open(cfg.DbType)
		if err != nil {
			return nil, nil, err
		}
		return db, database.NewMemBlockStore(), nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, nil, err
	}

	// The database name is based on the database type.
	dbPath := blockDbPath(cfg.DbType, cfg)
	log.Info("Loading block database", "dbPath", dbPath)
	db, err := database.Open(cfg.DbType, dbPath)
	if err != nil {
		return nil, nil, err
	}

	store, err := database.NewFlatFileStore(filepath.Join(cfg.DataDir, blockFilesDirname),
		uint32(p.Net))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("Block database loaded")
	return db, store, nil
}

// blockDbPath returns the path to the block database given a database type.
func blockDbPath(dbType string, cfg *config.Config) string {
	// The database name is based on the database type.
	dbName := blockDbNamePrefix + "_" + dbType
	dbPath := filepath.Join(cfg.DataDir, dbName)
	return dbPath
}

// removeBlockDB removes the existing database
func removeBlockDB(dbPath string) error {
	// Remove the old database if it already exists.
	fi, err := os.Stat(dbPath)
	if err == nil {
		log.Info(fmt.Sprintf("Removing block database from '%s'", dbPath))
		if fi.IsDir() {
			return os.RemoveAll(dbPath)
		}
		return os.Remove(dbPath)
	}
	return nil
}

// CleanupBlockDB removes the block index and the block files of the
// configured backend.
func CleanupBlockDB(cfg *config.Config) {
	for _, path := range []string{blockDbPath(cfg.DbType, cfg),
		filepath.Join(cfg.DataDir, blockFilesDirname)} {
		if err := removeBlockDB(path); err != nil {
			log.Error(err.Error())
		}
	}
	log.Info("Finished cleanup")
}
