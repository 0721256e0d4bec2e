package serialization

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVarIntSizes(t *testing.T) {
	tests := []struct {
		val  uint64
		size int
	}{
		{0, 1},
		{0xfc, 1},
		{0xfd, 3},
		{0xffff, 3},
		{0x10000, 5},
		{0xffffffff, 5},
		{0x100000000, 9},
	}
	for _, test := range tests {
		var buf bytes.Buffer
		assert.NoError(t, WriteVarInt(&buf, test.val))
		assert.Equal(t, test.size, buf.Len())
		assert.Equal(t, test.size, VarIntSerializeSize(test.val))
		got, err := ReadVarInt(&buf)
		assert.NoError(t, err)
		assert.Equal(t, test.val, got)
	}
}

func TestVarIntNonCanonical(t *testing.T) {
	_, err := ReadVarInt(bytes.NewReader([]byte{0xfd, 0x10, 0x00}))
	assert.Error(t, err)
}

func TestVarBytesLimit(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, WriteVarBytes(&buf, []byte{1, 2, 3, 4}))
	_, err := ReadVarBytes(bytes.NewReader(buf.Bytes()), 3, "script")
	assert.Error(t, err)
	b, err := ReadVarBytes(bytes.NewReader(buf.Bytes()), 4, "script")
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, b)
}
