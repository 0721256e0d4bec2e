// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

// Tx is a view of the key/value space inside one database transaction.
// Values returned by Get are only valid until the transaction ends; callers
// that keep them must copy.
type Tx interface {
	// Get returns the value for key, or nil when the key does not exist.
	Get(key []byte) ([]byte, error)

	Has(key []byte) (bool, error)

	// Put and Delete return ErrTxNotWritable in a read-only transaction.
	Put(key, value []byte) error
	Delete(key []byte) error

	// ForEach calls fn for every key beginning with prefix, in key order.
	ForEach(prefix []byte, fn func(k, v []byte) error) error
}

// DB is a transactional key/value store.  Every Update is atomic: if fn
// returns an error nothing it wrote is persisted.
type DB interface {
	// Type returns the database driver type the current database instance
	// was created with.
	Type() string

	View(fn func(tx Tx) error) error
	Update(fn func(tx Tx) error) error

	Close() error
}
