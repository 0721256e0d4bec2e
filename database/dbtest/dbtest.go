// Copyright (c) 2017-2018 The qitmeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package dbtest holds the conformance checks shared by every database
// driver's tests.
package dbtest

import (
	"errors"
	"testing"

	"github.com/Qitmeer/vrx/database"
	"github.com/stretchr/testify/require"
)

// TestInterface runs the driver conformance checks against an empty db.
func TestInterface(t *testing.T, db database.DB) {
	testPutGet(t, db)
	testRollback(t, db)
	testReadOnly(t, db)
	testForEach(t, db)
}

func testPutGet(t *testing.T, db database.DB) {
	err := db.Update(func(tx database.Tx) error {
		if err := tx.Put([]byte("bi-a"), []byte("one")); err != nil {
			return err
		}
		v, err := tx.Get([]byte("bi-a"))
		require.NoError(t, err)
		require.Equal(t, []byte("one"), v)
		return nil
	})
	require.NoError(t, err)

	err = db.View(func(tx database.Tx) error {
		v, err := tx.Get([]byte("bi-a"))
		require.NoError(t, err)
		require.Equal(t, []byte("one"), v)

		missing, err := tx.Get([]byte("nope"))
		require.NoError(t, err)
		require.Nil(t, missing)

		ok, err := tx.Has([]byte("bi-a"))
		require.NoError(t, err)
		require.True(t, ok)
		return nil
	})
	require.NoError(t, err)

	err = db.Update(func(tx database.Tx) error {
		return tx.Delete([]byte("bi-a"))
	})
	require.NoError(t, err)
	err = db.View(func(tx database.Tx) error {
		ok, err := tx.Has([]byte("bi-a"))
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func testRollback(t *testing.T, db database.DB) {
	boom := errors.New("boom")
	err := db.Update(func(tx database.Tx) error {
		require.NoError(t, tx.Put([]byte("rb"), []byte("x")))
		return boom
	})
	require.Equal(t, boom, err)

	err = db.View(func(tx database.Tx) error {
		v, err := tx.Get([]byte("rb"))
		require.NoError(t, err)
		require.Nil(t, v)
		return nil
	})
	require.NoError(t, err)
}

func testReadOnly(t *testing.T, db database.DB) {
	err := db.View(func(tx database.Tx) error {
		return tx.Put([]byte("ro"), []byte("x"))
	})
	require.Equal(t, database.ErrTxNotWritable, err)
}

func testForEach(t *testing.T, db database.DB) {
	err := db.Update(func(tx database.Tx) error {
		for _, k := range []string{"tx3", "tx1", "tx2", "ty0", "tw9"} {
			if err := tx.Put([]byte(k), []byte(k+"v")); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var keys []string
	err = db.View(func(tx database.Tx) error {
		return tx.ForEach([]byte("tx"), func(k, v []byte) error {
			require.Equal(t, string(k)+"v", string(v))
			keys = append(keys, string(k))
			return nil
		})
	})
	require.NoError(t, err)
	require.Equal(t, []string{"tx1", "tx2", "tx3"}, keys)
}
