package pow

import (
	"math/big"
	"testing"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/stretchr/testify/assert"
)

func TestBigToCompact(t *testing.T) {
	assert.Equal(t, uint32(0x1300000), BigToCompact(big.NewInt(48)))
	assert.Equal(t, uint32(0), BigToCompact(big.NewInt(0)))
}

func TestCompactRoundTrip(t *testing.T) {
	tests := []uint32{0x1d00ffff, 0x1e0fffff, 0x207fffff, 0x1b0404cb}
	for _, bits := range tests {
		assert.Equal(t, bits, BigToCompact(CompactToBig(bits)))
	}
	assert.Equal(t, -1, CompactToBig(0x1d80ffff).Sign())
}

func TestCalcTrust(t *testing.T) {
	// target 0x7fffff << 8*(0x20-3) is just under 2^255, so the trust is 2.
	assert.Equal(t, big.NewInt(2), CalcTrust(0x207fffff))
	assert.Equal(t, int64(0), CalcTrust(0).Int64())
	assert.Equal(t, int64(0), CalcTrust(0x1d80ffff).Int64())
	assert.True(t, CalcTrust(0x1d00ffff).Cmp(CalcTrust(0x1e00ffff)) > 0)
}

func TestCheckProofOfWork(t *testing.T) {
	limit := new(big.Int).Rsh(new(big.Int).Sub(OneLsh256, bigOne), 1)
	easy := BigToCompact(limit)

	var low hash.Hash
	low[0] = 0x01
	assert.NoError(t, CheckProofOfWork(&low, easy, limit))

	var high hash.Hash
	high[hash.HashSize-1] = 0xff
	assert.Error(t, CheckProofOfWork(&high, easy, limit))

	assert.Error(t, CheckProofOfWork(&low, 0, limit))
	tooEasy := BigToCompact(new(big.Int).Lsh(limit, 1))
	assert.Error(t, CheckProofOfWork(&low, tooEasy, limit))
}
