// Copyright (c) 2017-2018 The qitmeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package boltdb registers the "bbolt" database driver.  All keys live in a
// single bucket.
package boltdb

import (
	"bytes"

	"github.com/Qitmeer/vrx/database"
	bolt "github.com/coreos/bbolt"
	"github.com/pkg/errors"
)

const DbType = "bbolt"

var bucketName = []byte("vrx")

type db struct {
	bdb *bolt.DB
}

var _ database.DB = (*db)(nil)

func (d *db) Type() string {
	return DbType
}

func (d *db) View(fn func(tx database.Tx) error) error {
	return d.bdb.View(func(btx *bolt.Tx) error {
		return fn(&transaction{bucket: btx.Bucket(bucketName)})
	})
}

func (d *db) Update(fn func(tx database.Tx) error) error {
	return d.bdb.Update(func(btx *bolt.Tx) error {
		return fn(&transaction{bucket: btx.Bucket(bucketName), writable: true})
	})
}

func (d *db) Close() error {
	return d.bdb.Close()
}

type transaction struct {
	bucket   *bolt.Bucket
	writable bool
}

func (t *transaction) Get(key []byte) ([]byte, error) {
	return t.bucket.Get(key), nil
}

func (t *transaction) Has(key []byte) (bool, error) {
	return t.bucket.Get(key) != nil, nil
}

func (t *transaction) Put(key, value []byte) error {
	if !t.writable {
		return database.ErrTxNotWritable
	}
	return t.bucket.Put(key, value)
}

func (t *transaction) Delete(key []byte) error {
	if !t.writable {
		return database.ErrTxNotWritable
	}
	return t.bucket.Delete(key)
}

func (t *transaction) ForEach(prefix []byte, fn func(k, v []byte) error) error {
	c := t.bucket.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

func openDB(args ...interface{}) (database.DB, error) {
	if len(args) != 1 {
		return nil, database.ArgError(DbType, args, "path string")
	}
	path, ok := args[0].(string)
	if !ok {
		return nil, database.ArgError(DbType, args, "path string")
	}
	bdb, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open bbolt %s", path)
	}
	err = bdb.Update(func(btx *bolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, err
	}
	return &db{bdb: bdb}, nil
}

func init() {
	driver := database.Driver{DbType: DbType, Open: openDB}
	if err := database.RegisterDriver(driver); err != nil {
		panic("failed to register database driver '" + DbType + "': " + err.Error())
	}
}
