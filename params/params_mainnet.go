// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package params

import (
	"math/big"
	"time"

	"github.com/Qitmeer/vrx/core/types"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
)

var (
	// bigOne is 1 represented as a big.Int.  It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 256), bigOne)

	// mainPowLimit is the highest proof of work value a block can
	// have for the main network.  It is the value 2^242 - 1.
	mainPowLimit = new(big.Int).Rsh(maxUint256, 14)

	// mainPosLimit is the easiest stake target, 2^240 - 1.
	mainPosLimit = new(big.Int).Rsh(maxUint256, 16)
)

const mainGenesisTime = 1547848800

var mainAddrParams = chaincfg.Params{
	Name:             "vrxmain",
	Net:              wire.BitcoinNet(0xe39caf21),
	PubKeyHashAddrID: 90,
	ScriptHashAddrID: 140,
	PrivateKeyID:     142,
	Bech32HRPSegwit:  "vrx",
	HDPrivateKeyID:   [4]byte{0x04, 0x88, 0xad, 0xe4},
	HDPublicKeyID:    [4]byte{0x04, 0x88, 0xb2, 0x1e},
}

// MainNetParams defines the network parameters for the main network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.BitcoinNet(0xe39caf21),
	DefaultPort: "18092",
	AddrParams:  &mainAddrParams,

	// Chain parameters
	GenesisBlock: genesisBlock(mainGenesisTime, 0x1f03ffff, 14180),
	PowLimit:     mainPowLimit,
	PowLimitBits: 0x1f03ffff,
	PosLimit:     mainPosLimit,
	PosLimitBits: 0x1f00ffff,

	TargetTimePerBlock:   120 * time.Second,
	MaxTimePerBlock:      190 * time.Second,
	MinTimePerBlock:      45 * time.Second,
	DryRunHeight:         130,
	CurvePatchTime:       1520198278,
	VelocityToggleHeight: 175,

	CoinbaseMaturity:      15,
	StakeMinConfirmations: 25,
	StakeMinAge:           30 * time.Minute,
	StakeMaxAge:           30 * 24 * time.Hour,
	ModifierInterval:      2 * time.Minute,
	EndPoWHeight:          0x7fffffff,
	StartPoSHeight:        0,

	// Subsidy parameters.
	ReservePhaseStart: 1,
	ReserveReward:     80000000 * types.AtomsPerCoin,
	StandardReward:    300 * types.AtomsPerCoin,

	PaymentUpdate1:           1558310400,
	PaymentUpdate2:           1562094000,
	PaymentUpdate3:           1562281200,
	MasternodePaymentsStart:  mainGenesisTime,
	MasternodePaymentCeiling: 200 * types.AtomsPerCoin,
	DevopsPayment:            50 * types.AtomsPerCoin,
	DevopsPubKeyHash:         mustDecodeHex("8c2fad4e8bdfdc047ad5ad5378084de415e15389"),
	DevopsPubKeyHashV2:       mustDecodeHex("31e1e4e1cbea65b6a6489c3ac5bc218a306a082b"),

	CheckpointSpan: 5000,
	RelayNonStdTxs: false,
}
