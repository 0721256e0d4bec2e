// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2017-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "github.com/Qitmeer/vrx/core/types"

// calcMinRequiredTxRelayFee returns the minimum transaction fee required for a
// transaction with the passed serialized size to be accepted into the memory
// pool and relayed.  Every started kilobyte costs the base fee; with allowFree
// transactions that fit the free area of a block cost nothing.
func calcMinRequiredTxRelayFee(serializedSize int64, minRelayTxFee types.Amount,
	allowFree bool) types.Amount {

	minFee := types.Amount(1+serializedSize/1000) * minRelayTxFee

	if allowFree && serializedSize < DefaultBlockPrioritySize-1000 {
		minFee = 0
	}

	// Set the minimum fee to the maximum possible value if the calculated
	// fee is not in the valid range for monetary amounts.
	if !types.MoneyRange(minFee) {
		minFee = types.MaxSingleTx
	}

	return minFee
}
