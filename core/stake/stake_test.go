// Copyright (c) 2017-2018 The qitmeer developers

package stake

import (
	"math/big"
	"testing"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/core/types/pow"
	"github.com/Qitmeer/vrx/params"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseTime = 1200000

type fakeChain struct {
	blocks  map[hash.Hash]*blockchain.BlockInfo
	txs     map[hash.Hash]*types.Transaction
	txBlock map[hash.Hash]*blockchain.BlockInfo
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		blocks:  make(map[hash.Hash]*blockchain.BlockInfo),
		txs:     make(map[hash.Hash]*types.Transaction),
		txBlock: make(map[hash.Hash]*blockchain.BlockInfo),
	}
}

func (f *fakeChain) BlockInfo(h *hash.Hash) *blockchain.BlockInfo {
	return f.blocks[*h]
}

func (f *fakeChain) TxWithBlock(h *hash.Hash) (*types.Transaction, *blockchain.BlockInfo, error) {
	tx, ok := f.txs[*h]
	if !ok {
		return nil, nil, blockchain.HashError(h.String())
	}
	return tx, f.txBlock[*h], nil
}

// add indexes a block on parent.
func (f *fakeChain) add(parent *blockchain.BlockInfo, ts int64, generated bool,
	modifier uint64) *blockchain.BlockInfo {

	bi := &blockchain.BlockInfo{
		Time:                   ts,
		StakeModifier:          modifier,
		GeneratedStakeModifier: generated,
	}
	if parent != nil {
		bi.PrevHash = parent.Hash
		bi.Height = parent.Height + 1
	}
	bi.Hash = hash.HashH([]byte{byte(bi.Height), byte(bi.Height >> 8), byte(ts)})
	bi.ProofHash = hash.HashH(bi.Hash[:])
	bi.StakeEntropyBit = uint32(bi.Hash[0] & 1)
	f.blocks[bi.Hash] = bi
	return bi
}

func TestComputeNextStakeModifier(t *testing.T) {
	c := New(&params.MainNetParams)
	chain := newFakeChain()

	modifier, generated, err := c.ComputeNextStakeModifier(chain, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), modifier)
	assert.True(t, generated)

	genesis := chain.add(nil, baseTime, true, 7)

	// Inside the interval the last modifier is kept.
	early := chain.add(genesis, baseTime+60, false, 7)
	modifier, generated, err = c.ComputeNextStakeModifier(chain, early)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), modifier)
	assert.False(t, generated)

	// Past it a new one is generated, the same way every time.
	late := chain.add(early, baseTime+300, false, 7)
	modifier, generated, err = c.ComputeNextStakeModifier(chain, late)
	require.NoError(t, err)
	assert.True(t, generated)
	again, _, err := c.ComputeNextStakeModifier(chain, late)
	require.NoError(t, err)
	assert.Equal(t, modifier, again)

	other := *late
	other.ProofHash = hash.HashH([]byte("other proof"))
	differs, _, err := c.ComputeNextStakeModifier(chain, &other)
	require.NoError(t, err)
	assert.NotEqual(t, modifier, differs)
}

func TestComputeNextStakeModifierBrokenChain(t *testing.T) {
	c := New(&params.MainNetParams)
	chain := newFakeChain()
	dangling := &blockchain.BlockInfo{
		Hash:     hash.HashH([]byte("dangling")),
		PrevHash: hash.HashH([]byte("unknown")),
		Height:   5,
		Time:     baseTime,
	}
	_, _, err := c.ComputeNextStakeModifier(chain, dangling)
	assert.Error(t, err)
}

type kernelFixture struct {
	chain     *fakeChain
	prev      *blockchain.BlockInfo
	prevTx    *types.Transaction
	coinstake *types.Transaction
}

// newKernelFixture stakes a 100 coin output confirmed at height 10 from a
// block at height prevHeight, spaced age seconds after the output.
func newKernelFixture(prevHeight int64, age time.Duration) *kernelFixture {
	chain := newFakeChain()
	from := &blockchain.BlockInfo{
		Hash:   hash.HashH([]byte("from")),
		Height: 10,
		Time:   baseTime,
	}

	prevTx := types.NewTransaction()
	prevTx.Timestamp = time.Unix(baseTime, 0)
	src := hash.HashH([]byte("src"))
	prevTx.AddTxIn(types.NewTxInput(types.NewOutPoint(&src, 0), nil))
	prevTx.AddTxOut(types.NewTxOutput(100*types.AtomsPerCoin, []byte{0x51}))
	prevHash := prevTx.TxHash()
	chain.txs[prevHash] = prevTx
	chain.txBlock[prevHash] = from

	coinstake := types.NewTransaction()
	coinstake.Timestamp = prevTx.Timestamp.Add(age)
	coinstake.AddTxIn(types.NewTxInput(types.NewOutPoint(&prevHash, 0), nil))
	marker := types.NewTxOutput(0, nil)
	marker.SetEmpty()
	coinstake.AddTxOut(marker)
	coinstake.AddTxOut(types.NewTxOutput(101*types.AtomsPerCoin, []byte{0x51}))

	prev := &blockchain.BlockInfo{
		Hash:          hash.HashH([]byte("prev")),
		Height:        prevHeight,
		Time:          baseTime + int64(age.Seconds()),
		StakeModifier: 42,
	}
	return &kernelFixture{chain: chain, prev: prev, prevTx: prevTx, coinstake: coinstake}
}

func TestCheckProofOfStake(t *testing.T) {
	c := New(&params.MainNetParams)
	f := newKernelFixture(40, time.Hour)
	easy := pow.BigToCompact(params.PrivNetParams.PosLimit)

	kernel, weighted, err := c.CheckProofOfStake(f.chain, f.prev, f.coinstake, easy)
	require.NoError(t, err)
	prevOut := &f.coinstake.TxIn[0].PreviousOut
	assert.Equal(t, kernelHash(42, baseTime, f.prevTx, prevOut, f.coinstake.Timestamp.Unix()), kernel)
	want := new(big.Int).Mul(pow.CompactToBig(easy), big.NewInt(100*types.AtomsPerCoin))
	assert.Equal(t, 0, want.Cmp(weighted))

	// A target of one cannot be met.
	_, _, err = c.CheckProofOfStake(f.chain, f.prev, f.coinstake, 0x03000001)
	assert.Equal(t, ErrKernelTarget, errors.Cause(err))
}

func TestCheckProofOfStakeRejects(t *testing.T) {
	c := New(&params.MainNetParams)
	easy := pow.BigToCompact(params.PrivNetParams.PosLimit)

	shallow := newKernelFixture(20, time.Hour)
	_, _, err := c.CheckProofOfStake(shallow.chain, shallow.prev, shallow.coinstake, easy)
	assert.Equal(t, ErrStakeTooYoung, errors.Cause(err))

	young := newKernelFixture(40, 10*time.Minute)
	_, _, err = c.CheckProofOfStake(young.chain, young.prev, young.coinstake, easy)
	assert.Equal(t, ErrStakeTooYoung, errors.Cause(err))

	f := newKernelFixture(40, time.Hour)
	_, _, err = c.CheckProofOfStake(f.chain, f.prev, f.prevTx, easy)
	assert.Equal(t, ErrNotCoinStake, err)

	f.coinstake.TxIn[0].PreviousOut.Hash = hash.HashH([]byte("missing"))
	_, _, err = c.CheckProofOfStake(f.chain, f.prev, f.coinstake, easy)
	assert.IsType(t, blockchain.HashError(""), errors.Cause(err))
}
