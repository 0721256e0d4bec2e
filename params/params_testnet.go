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

var (
	// testNetPowLimit is the value 2^244 - 1.
	testNetPowLimit = new(big.Int).Rsh(maxUint256, 12)

	// testNetPosLimit is the value 2^242 - 1.
	testNetPosLimit = new(big.Int).Rsh(maxUint256, 14)
)

var testAddrParams = chaincfg.Params{
	Name:             "vrxtest",
	Net:              wire.BitcoinNet(0xf41cbc42),
	PubKeyHashAddrID: 91,
	ScriptHashAddrID: 100,
	PrivateKeyID:     102,
	Bech32HRPSegwit:  "tvrx",
	HDPrivateKeyID:   [4]byte{0x04, 0x35, 0x83, 0x94},
	HDPublicKeyID:    [4]byte{0x04, 0x35, 0x87, 0xcf},
}

// TestNetParams defines the network parameters for the test network.
var TestNetParams = testNetParams()

func testNetParams() Params {
	p := MainNetParams
	p.Name = "testnet"
	p.Net = testAddrParams.Net
	p.DefaultPort = "28092"
	p.AddrParams = &testAddrParams
	p.GenesisBlock = genesisBlock(mainGenesisTime+30, 0x1f0fffff, 16793)
	p.PowLimit = testNetPowLimit
	p.PowLimitBits = 0x1f0fffff
	p.PosLimit = testNetPosLimit
	p.PosLimitBits = 0x1f03ffff
	p.RelayNonStdTxs = true
	p.Checkpoints = nil
	return p
}
