package params

import (
	"encoding/hex"
	"testing"

	"github.com/Qitmeer/vrx/core/types/pow"
	"github.com/stretchr/testify/assert"
)

func TestLimitBits(t *testing.T) {
	for _, p := range []*Params{&MainNetParams, &TestNetParams, &PrivNetParams} {
		assert.Equal(t, p.PowLimitBits, pow.BigToCompact(p.PowLimit), p.Name)
		assert.Equal(t, p.PosLimitBits, pow.BigToCompact(p.PosLimit), p.Name)
		assert.True(t, pow.CompactToBig(p.PowLimitBits).Cmp(p.PowLimit) <= 0, p.Name)
	}
}

func TestGenesisCheckpoint(t *testing.T) {
	for _, p := range []*Params{&MainNetParams, &TestNetParams, &PrivNetParams} {
		assert.NotNil(t, p.GenesisHash, p.Name)
		assert.Equal(t, p.GenesisBlock.BlockHash(), *p.GenesisHash, p.Name)
		assert.Equal(t, int64(0), p.Checkpoints[0].Height, p.Name)
		assert.True(t, p.Checkpoints[0].Hash.IsEqual(p.GenesisHash), p.Name)
		assert.True(t, p.GenesisBlock.Transactions[0].IsCoinBase(), p.Name)
	}
	assert.NotEqual(t, *MainNetParams.GenesisHash, *TestNetParams.GenesisHash)
}

func TestDevopsScript(t *testing.T) {
	p := &MainNetParams
	legacy := p.DevopsScript(p.PaymentUpdate2 - 1)
	assert.Equal(t, "76a9148c2fad4e8bdfdc047ad5ad5378084de415e1538988ac", hex.EncodeToString(legacy))

	current := p.DevopsScript(p.PaymentUpdate2)
	assert.Equal(t, "76a91431e1e4e1cbea65b6a6489c3ac5bc218a306a082b88ac", hex.EncodeToString(current))
	assert.NotEqual(t, p.DevopsAddress(0), p.DevopsAddress(p.PaymentUpdate2))
}

func TestActiveNetParamsDefault(t *testing.T) {
	assert.Equal(t, &MainNetParams, ActiveNetParams)
	names := map[string]bool{}
	for _, p := range []*Params{&MainNetParams, &TestNetParams, &PrivNetParams} {
		assert.NotEmpty(t, p.Name)
		names[p.Name] = true
	}
	// Data directories are namespaced by network name.
	assert.Len(t, names, 3)
}
