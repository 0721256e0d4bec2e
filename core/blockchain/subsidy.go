// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/params"
)

const (
	// seesawInterval is the number of blocks in one seesaw step.
	seesawInterval = 30

	// seesawEpoch is the number of steps in one full swing.
	seesawEpoch = 15

	// seesawArc is the number of steps the payment ramps up, holds and
	// ramps down.
	seesawArc = 5

	// Seesaw positions in basis points of the ceiling.
	seesawFloorBP    = 5000
	seesawCeilingBP  = 10000
	seesawUpStepBP   = (seesawCeilingBP - seesawFloorBP) / (seesawArc - 1)
	seesawDownStepBP = 1000
)

// CalcBlockSubsidy returns the newly created coins of a block at height
// whose parent closed the chain at supply, before fees.  The money cap only
// binds up to the start of the reserve phase.
func CalcBlockSubsidy(p *params.Params, height int64, supply types.Amount) types.Amount {
	if height > p.ReservePhaseStart {
		if supply < p.ReserveReward*100 {
			return p.ReserveReward
		}
	} else if supply > types.MaxSingleTx {
		return 0
	}
	return p.StandardReward
}

// GetProofOfWorkReward is the most a coinbase at height may claim.
func GetProofOfWorkReward(p *params.Params, height int64, fees, supply types.Amount) types.Amount {
	subsidy := CalcBlockSubsidy(p, height, supply)
	log.Trace("Proof of work reward", "height", height, "subsidy", subsidy, "fees", fees)
	return subsidy + fees
}

// GetProofOfStakeReward is the most a coinstake at height may mint.  The coin
// age is reported but does not scale the reward.
func GetProofOfStakeReward(p *params.Params, coinAge uint64, fees types.Amount, height int64,
	supply types.Amount) types.Amount {

	subsidy := CalcBlockSubsidy(p, height, supply)
	log.Trace("Proof of stake reward", "height", height, "subsidy", subsidy,
		"coinage", coinAge, "fees", fees)
	return subsidy + fees
}

// seesawBasisPoints returns the position of height on the masternode swing.
func seesawBasisPoints(height int64) int64 {
	step := (height/seesawInterval)%seesawEpoch + 1
	switch {
	case step <= seesawArc:
		return seesawFloorBP + (step-1)*seesawUpStepBP
	case step <= 2*seesawArc:
		return seesawCeilingBP
	}
	bp := seesawCeilingBP - (step-2*seesawArc)*seesawDownStepBP
	if bp < seesawFloorBP {
		bp = seesawFloorBP
	}
	return bp
}

// GetMasternodePayment returns the masternode share of a block at height on
// a chain whose tip carries tipTime.  It is zero before the first payment
// update.
func GetMasternodePayment(p *params.Params, height int64, tipTime int64) types.Amount {
	if tipTime <= p.PaymentUpdate1 {
		return 0
	}
	return p.MasternodePaymentCeiling * types.Amount(seesawBasisPoints(height)) / seesawCeilingBP
}

// GetDevopsPayment returns the flat devops share, zero before the first
// payment update.
func GetDevopsPayment(p *params.Params, tipTime int64) types.Amount {
	if tipTime <= p.PaymentUpdate1 {
		return 0
	}
	return p.DevopsPayment
}
