// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package params

import (
	"encoding/hex"
	"math/big"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
)

// Checkpoint identifies a known good point in the block chain.  Using
// checkpoints allows a few optimizations for old blocks during initial download
// and also prevents forks from old blocks.
type Checkpoint struct {
	Height int64
	Hash   *hash.Hash
}

// Params defines a network by its parameters.  These parameters may be
// used by applications to differentiate networks as well as addresses
// and keys for one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.BitcoinNet

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort string

	// AddrParams carries the address encoding ids of the network.
	AddrParams *chaincfg.Params

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *types.Block

	// GenesisHash is the starting block hash.
	GenesisHash *hash.Hash

	// PowLimit defines the highest allowed proof of work value for a block
	// as a uint256.
	PowLimit *big.Int

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// PosLimit is the easiest stake target.
	PosLimit     *big.Int
	PosLimitBits uint32

	// Spacing thresholds the difficulty engine classifies block intervals
	// against.
	TargetTimePerBlock time.Duration
	MaxTimePerBlock    time.Duration
	MinTimePerBlock    time.Duration

	// DryRunHeight is the tip height below which the difficulty engine
	// returns the limit.
	DryRunHeight int64

	// CurvePatchTime enables the hourly decay curve for tips after it.
	CurvePatchTime int64

	// VelocityToggleHeight enables the external velocity constraint.
	VelocityToggleHeight int64

	// CoinbaseMaturity is the number of blocks required before newly
	// mined or minted coins can be spent.
	CoinbaseMaturity int64

	// StakeMinConfirmations is the depth an output needs before it may
	// stake.
	StakeMinConfirmations int64

	// Stake kernel parameters.
	StakeMinAge      time.Duration
	StakeMaxAge      time.Duration
	ModifierInterval time.Duration

	// EndPoWHeight is the last height a proof-of-work block is accepted at.
	EndPoWHeight int64

	// StartPoSHeight is the first height a proof-of-stake block is
	// accepted at.
	StartPoSHeight int64

	// Subsidy parameters.
	ReservePhaseStart int64
	ReserveReward     types.Amount
	StandardReward    types.Amount

	// Masternode/devops payment generations, as unix times compared
	// against the tip.
	PaymentUpdate1 int64
	PaymentUpdate2 int64
	PaymentUpdate3 int64

	// MasternodePaymentsStart gates the legacy stake block masternode
	// check by block time.
	MasternodePaymentsStart int64

	MasternodePaymentCeiling types.Amount
	DevopsPayment            types.Amount

	// Devops payee key hashes: the original one and the one paid from
	// PaymentUpdate2 onward.
	DevopsPubKeyHash   []byte
	DevopsPubKeyHashV2 []byte

	// Checkpoints ordered from oldest to newest.
	Checkpoints []Checkpoint

	// CheckpointSpan is the depth within which the synchronized
	// checkpoint is selected.
	CheckpointSpan int64

	// RelayNonStdTxs defines whether the network accepts non-standard
	// transactions into its pool.
	RelayNonStdTxs bool
}

// DevopsScript returns the output script devops payments must pay to.
// From PaymentUpdate2 on, the second address is used.
func (p *Params) DevopsScript(tipTime int64) []byte {
	pkHash := p.DevopsPubKeyHash
	if tipTime >= p.PaymentUpdate2 {
		pkHash = p.DevopsPubKeyHashV2
	}
	return p.payToPubKeyHash(pkHash)
}

// DevopsAddress encodes the devops payee of the given generation.
func (p *Params) DevopsAddress(tipTime int64) string {
	pkHash := p.DevopsPubKeyHash
	if tipTime >= p.PaymentUpdate2 {
		pkHash = p.DevopsPubKeyHashV2
	}
	addr, err := btcutil.NewAddressPubKeyHash(pkHash, p.AddrParams)
	if err != nil {
		return ""
	}
	return addr.EncodeAddress()
}

func (p *Params) payToPubKeyHash(pkHash []byte) []byte {
	addr, err := btcutil.NewAddressPubKeyHash(pkHash, p.AddrParams)
	if err != nil {
		panic(err)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		panic(err)
	}
	return script
}

// LatestCheckpointHeight is the height of the last hardened checkpoint.
func (p *Params) LatestCheckpointHeight() int64 {
	if len(p.Checkpoints) == 0 {
		return 0
	}
	return p.Checkpoints[len(p.Checkpoints)-1].Height
}

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// mustRegister performs the same function as Register except it panics if
// there is an error.  This should only be called from package init
// functions.
func mustRegister(params *chaincfg.Params) {
	if err := chaincfg.Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

func init() {
	mustRegister(MainNetParams.AddrParams)
	mustRegister(TestNetParams.AddrParams)
	mustRegister(PrivNetParams.AddrParams)

	for _, p := range []*Params{&MainNetParams, &TestNetParams, &PrivNetParams} {
		genesisHash := p.GenesisBlock.BlockHash()
		p.GenesisHash = &genesisHash
		p.Checkpoints = append([]Checkpoint{{Height: 0, Hash: p.GenesisHash}}, p.Checkpoints...)
	}
}

// ActiveNetParams is the network selected by the loaded configuration.
var ActiveNetParams = &MainNetParams
