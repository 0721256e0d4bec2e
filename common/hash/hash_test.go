package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashString(t *testing.T) {
	h := Hash{0x01, 0x02}
	s := h.String()
	assert.Equal(t, MaxHashStringSize, len(s))
	assert.Equal(t, "0201", s[len(s)-4:])

	back, err := NewHashFromStr(s)
	assert.NoError(t, err)
	assert.True(t, back.IsEqual(&h))
}

func TestDecodeShortAndLong(t *testing.T) {
	h, err := NewHashFromStr("1")
	assert.NoError(t, err)
	assert.Equal(t, byte(0x01), h[0])

	_, err = NewHashFromStr(string(make([]byte, MaxHashStringSize+1)))
	assert.Equal(t, ErrHashStrSize, err)
}

func TestSetBytes(t *testing.T) {
	var h Hash
	assert.Error(t, h.SetBytes([]byte{1, 2, 3}))
	assert.NoError(t, h.SetBytes(make([]byte, HashSize)))
	assert.True(t, h.IsZero())
}

func TestHashFuncsDiffer(t *testing.T) {
	data := []byte("vrx")
	assert.Equal(t, DoubleHashH(data), DoubleHashH(data))
	assert.NotEqual(t, HashH(data), DoubleHashH(data))
	assert.NotEqual(t, DoubleHashH(data), PowHashH(data))
	assert.Equal(t, HashB(data), HashH(data).Bytes())
}
