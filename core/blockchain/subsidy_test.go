// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/params"
	"github.com/stretchr/testify/assert"
)

func TestSeesawBasisPoints(t *testing.T) {
	tests := []struct {
		height int64
		want   int64
	}{
		{0, 5000},
		{29, 5000},
		{30, 6250},
		{60, 7500},
		{90, 8750},
		{120, 10000},
		{149, 10000},
		{210, 10000},
		{239, 10000},
		{299, 10000},
		{300, 9000},
		{330, 8000},
		{390, 6000},
		{420, 5000},
		{449, 5000},
		{450, 5000},
		{480, 6250},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, seesawBasisPoints(test.height), "height %d", test.height)
	}
}

func TestMasternodePayment(t *testing.T) {
	p := &params.MainNetParams
	after := p.PaymentUpdate1 + 1

	assert.Equal(t, types.Amount(0), GetMasternodePayment(p, 150, p.PaymentUpdate1))
	assert.Equal(t, types.Amount(100*types.AtomsPerCoin), GetMasternodePayment(p, 0, after))
	assert.Equal(t, types.Amount(200*types.AtomsPerCoin), GetMasternodePayment(p, 150, after))
	assert.Equal(t, types.Amount(180*types.AtomsPerCoin), GetMasternodePayment(p, 300, after))
}

func TestDevopsPayment(t *testing.T) {
	p := &params.MainNetParams
	assert.Equal(t, types.Amount(0), GetDevopsPayment(p, p.PaymentUpdate1))
	assert.Equal(t, p.DevopsPayment, GetDevopsPayment(p, p.PaymentUpdate1+1))
}

func TestCalcBlockSubsidy(t *testing.T) {
	p := &params.MainNetParams
	tests := []struct {
		name   string
		height int64
		supply types.Amount
		want   types.Amount
	}{
		{"first block", 1, 0, p.StandardReward},
		{"reserve phase", 2, 0, p.ReserveReward},
		{"reserve exhausted", 1000, p.ReserveReward * 100, p.StandardReward},
		{"money cap before reserve", 1, types.MaxSingleTx + 1, 0},
		{"money cap lifted after reserve", 1000, types.MaxSingleTx + 1, p.StandardReward},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, CalcBlockSubsidy(p, test.height, test.supply), test.name)
	}

	fees := types.Amount(1234)
	assert.Equal(t, p.StandardReward+fees, GetProofOfWorkReward(p, 1, fees, 0))
	assert.Equal(t, p.StandardReward+fees, GetProofOfStakeReward(p, 99, fees, 1, 0))
	assert.Equal(t, fees, GetProofOfWorkReward(p, 1, fees, types.MaxSingleTx+1))
	assert.Equal(t, p.StandardReward+fees, GetProofOfStakeReward(p, 99, fees, 2, types.MaxSingleTx+1))
}
