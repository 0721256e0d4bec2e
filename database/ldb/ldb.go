// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ldb registers the goleveldb backed database drivers: "leveldb"
// on disk and "memdb" in memory.
package ldb

import (
	"sync"

	"github.com/Qitmeer/vrx/database"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	DbType    = "leveldb"
	MemDbType = "memdb"
)

type db struct {
	// Serializes writers.  goleveldb transactions block each other anyway,
	// holding the lock keeps the failure mode a wait rather than an error.
	writeLock sync.Mutex
	dbType    string
	ldb       *leveldb.DB
}

var _ database.DB = (*db)(nil)

func (d *db) Type() string {
	return d.dbType
}

func (d *db) View(fn func(tx database.Tx) error) error {
	snap, err := d.ldb.GetSnapshot()
	if err != nil {
		return errors.Wrap(err, "leveldb snapshot")
	}
	defer snap.Release()
	return fn(&snapshotTx{snap: snap})
}

func (d *db) Update(fn func(tx database.Tx) error) error {
	d.writeLock.Lock()
	defer d.writeLock.Unlock()

	ltx, err := d.ldb.OpenTransaction()
	if err != nil {
		return errors.Wrap(err, "leveldb open transaction")
	}
	if err := fn(&writeTx{ltx: ltx}); err != nil {
		ltx.Discard()
		return err
	}
	if err := ltx.Commit(); err != nil {
		return errors.Wrap(err, "leveldb commit")
	}
	return nil
}

func (d *db) Close() error {
	return d.ldb.Close()
}

type snapshotTx struct {
	snap *leveldb.Snapshot
}

func (t *snapshotTx) Get(key []byte) ([]byte, error) {
	v, err := t.snap.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return v, err
}

func (t *snapshotTx) Has(key []byte) (bool, error) {
	return t.snap.Has(key, nil)
}

func (t *snapshotTx) Put(key, value []byte) error {
	return database.ErrTxNotWritable
}

func (t *snapshotTx) Delete(key []byte) error {
	return database.ErrTxNotWritable
}

func (t *snapshotTx) ForEach(prefix []byte, fn func(k, v []byte) error) error {
	iter := t.snap.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

type writeTx struct {
	ltx *leveldb.Transaction
}

func (t *writeTx) Get(key []byte) ([]byte, error) {
	v, err := t.ltx.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return v, err
}

func (t *writeTx) Has(key []byte) (bool, error) {
	return t.ltx.Has(key, nil)
}

func (t *writeTx) Put(key, value []byte) error {
	return t.ltx.Put(key, value, nil)
}

func (t *writeTx) Delete(key []byte) error {
	return t.ltx.Delete(key, nil)
}

func (t *writeTx) ForEach(prefix []byte, fn func(k, v []byte) error) error {
	iter := t.ltx.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// openDB opens the leveldb at path, creating it when missing.
func openDB(args ...interface{}) (database.DB, error) {
	if len(args) != 1 {
		return nil, database.ArgError(DbType, args, "path string")
	}
	path, ok := args[0].(string)
	if !ok {
		return nil, database.ArgError(DbType, args, "path string")
	}
	ldb, err := leveldb.OpenFile(path, &opt.Options{
		Strict:      opt.DefaultStrict,
		Compression: opt.NoCompression,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open leveldb %s", path)
	}
	return &db{dbType: DbType, ldb: ldb}, nil
}

// openMemDB ignores its arguments; every call returns a fresh store.
func openMemDB(args ...interface{}) (database.DB, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "open memdb")
	}
	return &db{dbType: MemDbType, ldb: ldb}, nil
}

func init() {
	drivers := []database.Driver{
		{DbType: DbType, Open: openDB},
		{DbType: MemDbType, Open: openMemDB},
	}
	for _, driver := range drivers {
		if err := database.RegisterDriver(driver); err != nil {
			panic("failed to register database driver '" + driver.DbType + "': " + err.Error())
		}
	}
}
