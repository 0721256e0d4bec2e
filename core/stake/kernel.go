// Copyright (c) 2017-2018 The qitmeer developers

// Package stake checks proof-of-stake kernels and derives the stake modifier
// every block carries.
package stake

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/core/serialization"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/core/types/pow"
	"github.com/Qitmeer/vrx/params"
	"github.com/pkg/errors"
)

var (
	// ErrNotCoinStake is returned for a transaction that does not have the
	// coinstake shape.
	ErrNotCoinStake = errors.New("transaction is not a coinstake")

	// ErrStakeTooYoung is returned when the staked output is not deep or
	// old enough.
	ErrStakeTooYoung = errors.New("stake does not meet the minimum age")

	// ErrKernelTarget is returned when the kernel hash misses the weighted
	// target.
	ErrKernelTarget = errors.New("kernel hash does not meet the target")
)

// Checker is the default stake collaborator of the chain.
type Checker struct {
	params *params.Params
}

var _ blockchain.StakeChecker = (*Checker)(nil)

// New returns a stake checker for the network.
func New(p *params.Params) *Checker {
	return &Checker{params: p}
}

// kernelHash hashes the stake modifier of the parent together with the
// origin of the staked output and the coinstake time.
func kernelHash(modifier uint64, fromTime int64, prevTx *types.Transaction,
	prevOut *types.TxOutPoint, timeTx int64) hash.Hash {

	var buf bytes.Buffer
	serialization.WriteElements(&buf, modifier, fromTime, prevTx.Timestamp.Unix(),
		prevOut.Hash, prevOut.OutIndex, timeTx)
	return hash.DoubleHashH(buf.Bytes())
}

// CheckProofOfStake validates the kernel of a coinstake built on prev.  The
// target is weighted by the staked value, so larger outputs find kernels
// more easily.  It returns the kernel hash and the weighted target.
func (c *Checker) CheckProofOfStake(chain blockchain.ChainReader, prev *blockchain.BlockInfo,
	coinstake *types.Transaction, bits uint32) (hash.Hash, *big.Int, error) {

	if !coinstake.IsCoinStake() {
		return hash.Hash{}, nil, ErrNotCoinStake
	}
	prevOut := &coinstake.TxIn[0].PreviousOut
	prevTx, from, err := chain.TxWithBlock(&prevOut.Hash)
	if err != nil {
		return hash.Hash{}, nil, errors.Wrapf(err, "stake input %v", prevOut)
	}
	if int(prevOut.OutIndex) >= len(prevTx.TxOut) {
		return hash.Hash{}, nil, fmt.Errorf("stake input %v out of range", prevOut)
	}

	height := prev.Height + 1
	if height-from.Height < c.params.StakeMinConfirmations {
		return hash.Hash{}, nil, errors.Wrapf(ErrStakeTooYoung, "%d confirmations",
			height-from.Height)
	}
	timeTx := coinstake.Timestamp.Unix()
	age := timeTx - prevTx.Timestamp.Unix()
	if age < int64(c.params.StakeMinAge.Seconds()) {
		return hash.Hash{}, nil, errors.Wrapf(ErrStakeTooYoung, "age %ds", age)
	}

	value := prevTx.TxOut[prevOut.OutIndex].Amount
	weighted := pow.CompactToBig(bits)
	weighted.Mul(weighted, big.NewInt(int64(value)))

	kernel := kernelHash(prev.StakeModifier, from.Time, prevTx, prevOut, timeTx)
	if pow.HashToBig(&kernel).Cmp(weighted) > 0 {
		return hash.Hash{}, nil, errors.Wrapf(ErrKernelTarget, "kernel %v", kernel)
	}

	log.Trace("Stake kernel accepted", "height", height, "prevout", prevOut,
		"value", value, "kernel", kernel)
	return kernel, weighted, nil
}
