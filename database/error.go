// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"errors"
	"fmt"
)

var (
	// ErrDbUnknownType indicates there is no driver registered for
	// the specified database type.
	ErrDbUnknownType = errors.New("database: unknown type")

	// ErrDbTypeRegistered indicates two different database drivers
	// attempt to register with the name database type.
	ErrDbTypeRegistered = errors.New("database: type already registered")

	// ErrTxNotWritable indicates an operation that requires write access to
	// the database was attempted against a read-only transaction.
	ErrTxNotWritable = errors.New("database: transaction is not writable")

	// ErrBlockNotFound is returned when a block location does not resolve.
	ErrBlockNotFound = errors.New("database: block not found")
)

// ArgError reports bad driver arguments.
func ArgError(dbType string, args []interface{}, want string) error {
	return fmt.Errorf("invalid arguments to %s.Open -- expected %s, got %d args",
		dbType, want, len(args))
}
