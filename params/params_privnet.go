// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package params

import (
	"math/big"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
)

// privNetPowLimit is the highest proof of work value a block can
// have for the private test network. It is the value 2^255 - 1.
var privNetPowLimit = new(big.Int).Rsh(maxUint256, 1)

var privAddrParams = chaincfg.Params{
	Name:             "vrxpriv",
	Net:              wire.BitcoinNet(0xa90abb11),
	PubKeyHashAddrID: 91,
	ScriptHashAddrID: 100,
	PrivateKeyID:     102,
	Bech32HRPSegwit:  "pvrx",
	HDPrivateKeyID:   [4]byte{0x04, 0x35, 0x83, 0x94},
	HDPublicKeyID:    [4]byte{0x04, 0x35, 0x87, 0xcf},
}

// PrivNetParams defines the network parameters for the private test network.
// Blocks are trivially mined and the payment quota generations never
// activate, so a chain can be grown from the genesis block in tests.
var PrivNetParams = privNetParams()

func privNetParams() Params {
	p := TestNetParams
	p.Name = "privnet"
	p.Net = privAddrParams.Net
	p.DefaultPort = "38883"
	p.AddrParams = &privAddrParams
	p.GenesisBlock = genesisBlock(mainGenesisTime+90, 0x207fffff, 8)
	p.PowLimit = privNetPowLimit
	p.PowLimitBits = 0x207fffff
	p.PosLimit = privNetPowLimit
	p.PosLimitBits = 0x207fffff
	p.PaymentUpdate1 = 0x7fffffff
	p.PaymentUpdate2 = 0x7fffffff
	p.PaymentUpdate3 = 0x7fffffff
	p.MasternodePaymentsStart = 0x7fffffff
	p.Checkpoints = nil
	return p
}
