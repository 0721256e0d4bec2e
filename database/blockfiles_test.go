package database

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatFileStore(t *testing.T) {
	dir, err := ioutil.TempDir("", "blockfiles")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s, err := NewFlatFileStore(dir, 0xa90abb11)
	require.NoError(t, err)
	s.maxFileSize = 64

	first, err := s.WriteBlock([]byte("first block"))
	require.NoError(t, err)
	second, err := s.WriteBlock([]byte("second block, rolls the file over"))
	require.NoError(t, err)
	assert.Equal(t, first.File+1, second.File)

	b, err := s.ReadBlock(first)
	require.NoError(t, err)
	assert.Equal(t, []byte("first block"), b)
	require.NoError(t, s.Close())

	// Reopen and continue appending after the last file.
	s, err = NewFlatFileStore(dir, 0xa90abb11)
	require.NoError(t, err)
	defer s.Close()
	b, err = s.ReadBlock(second)
	require.NoError(t, err)
	assert.Equal(t, []byte("second block, rolls the file over"), b)

	third, err := s.WriteBlock([]byte("third"))
	require.NoError(t, err)
	assert.True(t, third.File > second.File || third.Offset > second.Offset)

	_, err = s.ReadBlock(BlockLocation{File: 99, Offset: 8, Len: 1})
	assert.Equal(t, ErrBlockNotFound, err)
}

func TestMemBlockStore(t *testing.T) {
	m := NewMemBlockStore()
	a, _ := m.WriteBlock([]byte{1, 2})
	b, _ := m.WriteBlock([]byte{3})
	assert.NotEqual(t, a, b)
	got, err := m.ReadBlock(b)
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, got)
	_, err = m.ReadBlock(BlockLocation{Offset: 1})
	assert.Equal(t, ErrBlockNotFound, err)
}
