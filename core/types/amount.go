// Copyright 2017-2020 The qitmeer developers
// Copyright 2015 The Decred developers
// Copyright 2013, 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import (
	"strconv"

	"github.com/btcsuite/btcutil"
)

// Amount represents the base coin monetary unit (colloquially referred
// to as an `Atom').  A single Amount is equal to 1e-8 of a coin.
type Amount int64

const (
	// AtomsPerCent is the number of atomic units in one coin cent.
	AtomsPerCent = 1e6

	// AtomsPerCoin is the number of atomic units in one coin.
	AtomsPerCoin = 1e8

	// MaxSingleTx is the largest value a single transaction may move, and
	// the upper bound of the money range.
	MaxSingleTx Amount = 10000000000 * AtomsPerCoin
)

// NewAmount creates an Amount from a floating point value representing
// some value in coins.  NaN and +-Infinity are rejected.
func NewAmount(f float64) (Amount, error) {
	a, err := btcutil.NewAmount(f)
	return Amount(a), err
}

// MoneyRange reports whether v is a valid quantity of atoms.
func MoneyRange(v Amount) bool {
	return v >= 0 && v <= MaxSingleTx
}

// ToCoin returns the value in whole coins.
func (a Amount) ToCoin() float64 {
	return btcutil.Amount(a).ToBTC()
}

// Coins truncates the value to whole coins, the unit payment quotas are
// compared in.
func (a Amount) Coins() int64 {
	return int64(a) / AtomsPerCoin
}

func (a Amount) String() string {
	return strconv.FormatFloat(a.ToCoin(), 'f', -1, 64) + " VRX"
}
