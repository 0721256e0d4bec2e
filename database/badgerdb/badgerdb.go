// Copyright (c) 2017-2018 The qitmeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package badgerdb registers the "badger" database driver.
package badgerdb

import (
	"github.com/Qitmeer/vrx/database"
	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
)

const DbType = "badger"

type db struct {
	bdb *badger.DB
}

var _ database.DB = (*db)(nil)

func (d *db) Type() string {
	return DbType
}

func (d *db) View(fn func(tx database.Tx) error) error {
	return d.bdb.View(func(txn *badger.Txn) error {
		return fn(&transaction{txn: txn})
	})
}

func (d *db) Update(fn func(tx database.Tx) error) error {
	return d.bdb.Update(func(txn *badger.Txn) error {
		return fn(&transaction{txn: txn, writable: true})
	})
}

func (d *db) Close() error {
	return d.bdb.Close()
}

type transaction struct {
	txn      *badger.Txn
	writable bool
}

func (t *transaction) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *transaction) Has(key []byte) (bool, error) {
	_, err := t.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}

func (t *transaction) Put(key, value []byte) error {
	if !t.writable {
		return database.ErrTxNotWritable
	}
	// badger keeps the slices until commit.
	return t.txn.Set(copyBytes(key), copyBytes(value))
}

func (t *transaction) Delete(key []byte) error {
	if !t.writable {
		return database.ErrTxNotWritable
	}
	return t.txn.Delete(copyBytes(key))
}

func (t *transaction) ForEach(prefix []byte, fn func(k, v []byte) error) error {
	it := t.txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		v, err := item.Value()
		if err != nil {
			return err
		}
		if err := fn(item.Key(), v); err != nil {
			return err
		}
	}
	return nil
}

func copyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

func openDB(args ...interface{}) (database.DB, error) {
	if len(args) != 1 {
		return nil, database.ArgError(DbType, args, "dir string")
	}
	dir, ok := args[0].(string)
	if !ok {
		return nil, database.ArgError(DbType, args, "dir string")
	}
	opt := badger.DefaultOptions
	opt.Dir = dir
	opt.ValueDir = dir
	bdb, err := badger.Open(opt)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger %s", dir)
	}
	return &db{bdb: bdb}, nil
}

func init() {
	driver := database.Driver{DbType: DbType, Open: openDB}
	if err := database.RegisterDriver(driver); err != nil {
		panic("failed to register database driver '" + DbType + "': " + err.Error())
	}
}
