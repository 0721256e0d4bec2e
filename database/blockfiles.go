// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const (
	// maxBlockFileSize is the maximum size for each file used to store
	// blocks.
	maxBlockFileSize uint32 = 512 * 1024 * 1024 // 512 MiB

	// blockHdrSize is the size of a block record header: network (4 bytes)
	// followed by the block length (4 bytes).
	blockHdrSize = 8

	// blockRecordOverhead adds the trailing crc32 checksum.
	blockRecordOverhead = blockHdrSize + 4

	blockFileNameTemplate = "blk%05d.dat"
)

// castagnoli houses the Catagnoli polynomial used for CRC-32 checksums.
var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// BlockLocation addresses a block inside the append-only block files.
// Offset points to the block bytes, past the record header.
type BlockLocation struct {
	File   uint32
	Offset uint32
	Len    uint32
}

// BlockStore is append-only storage for raw blocks.
type BlockStore interface {
	WriteBlock(data []byte) (BlockLocation, error)
	ReadBlock(loc BlockLocation) ([]byte, error)
	Close() error
}

// FlatFileStore writes blocks into numbered flat files, rolling over to a new
// file when the current one would exceed maxFileSize.
type FlatFileStore struct {
	mtx         sync.Mutex
	basePath    string
	network     uint32
	maxFileSize uint32

	writeFile   *os.File
	writeFileNo uint32
	writeOffset uint32
}

// NewFlatFileStore opens the block files in basePath, appending after the
// last existing file.
func NewFlatFileStore(basePath string, network uint32) (*FlatFileStore, error) {
	if err := os.MkdirAll(basePath, 0700); err != nil {
		return nil, errors.Wrap(err, "create block file directory")
	}
	s := &FlatFileStore{
		basePath:    basePath,
		network:     network,
		maxFileSize: maxBlockFileSize,
	}
	// Scan for the last file so appends continue where they left off.
	for {
		if _, err := os.Stat(s.filePath(s.writeFileNo + 1)); err != nil {
			break
		}
		s.writeFileNo++
	}
	f, err := os.OpenFile(s.filePath(s.writeFileNo), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "open block file")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat block file")
	}
	s.writeFile = f
	s.writeOffset = uint32(info.Size())
	return s, nil
}

func (s *FlatFileStore) filePath(fileNo uint32) string {
	return filepath.Join(s.basePath, fmt.Sprintf(blockFileNameTemplate, fileNo))
}

// WriteBlock appends a record of network, length, data and crc32 and
// returns where the data landed.
func (s *FlatFileStore) WriteBlock(data []byte) (BlockLocation, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	recordLen := uint32(len(data)) + blockRecordOverhead
	if s.writeOffset+recordLen > s.maxFileSize && s.writeOffset > 0 {
		if err := s.writeFile.Sync(); err != nil {
			return BlockLocation{}, errors.Wrap(err, "sync block file")
		}
		s.writeFile.Close()
		s.writeFileNo++
		f, err := os.OpenFile(s.filePath(s.writeFileNo), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return BlockLocation{}, errors.Wrap(err, "roll block file")
		}
		s.writeFile = f
		s.writeOffset = 0
	}

	record := make([]byte, recordLen)
	binary.LittleEndian.PutUint32(record[0:4], s.network)
	binary.LittleEndian.PutUint32(record[4:8], uint32(len(data)))
	copy(record[blockHdrSize:], data)
	checksum := crc32.Checksum(record[:recordLen-4], castagnoli)
	binary.BigEndian.PutUint32(record[recordLen-4:], checksum)

	if _, err := s.writeFile.WriteAt(record, int64(s.writeOffset)); err != nil {
		return BlockLocation{}, errors.Wrap(err, "write block")
	}
	loc := BlockLocation{
		File:   s.writeFileNo,
		Offset: s.writeOffset + blockHdrSize,
		Len:    uint32(len(data)),
	}
	s.writeOffset += recordLen
	return loc, nil
}

// ReadBlock reads and verifies the record at loc.
func (s *FlatFileStore) ReadBlock(loc BlockLocation) ([]byte, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var f *os.File
	if loc.File == s.writeFileNo {
		f = s.writeFile
	} else {
		var err error
		f, err = os.Open(s.filePath(loc.File))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrBlockNotFound
			}
			return nil, errors.Wrap(err, "open block file")
		}
		defer f.Close()
	}
	if loc.Offset < blockHdrSize {
		return nil, ErrBlockNotFound
	}
	record := make([]byte, loc.Len+blockRecordOverhead)
	_, err := f.ReadAt(record, int64(loc.Offset-blockHdrSize))
	if err != nil {
		if err == io.EOF {
			return nil, ErrBlockNotFound
		}
		return nil, errors.Wrap(err, "read block")
	}
	if binary.LittleEndian.Uint32(record[0:4]) != s.network ||
		binary.LittleEndian.Uint32(record[4:8]) != loc.Len {
		return nil, errors.Errorf("corrupt block record at %d:%d", loc.File, loc.Offset)
	}
	want := binary.BigEndian.Uint32(record[len(record)-4:])
	if crc32.Checksum(record[:len(record)-4], castagnoli) != want {
		return nil, errors.Errorf("block checksum mismatch at %d:%d", loc.File, loc.Offset)
	}
	return record[blockHdrSize : blockHdrSize+loc.Len], nil
}

func (s *FlatFileStore) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.writeFile == nil {
		return nil
	}
	err := s.writeFile.Sync()
	s.writeFile.Close()
	s.writeFile = nil
	return err
}

// MemBlockStore keeps blocks in memory.  File is always zero and Offset is
// the running byte offset, mirroring the flat file addressing.
type MemBlockStore struct {
	mtx    sync.RWMutex
	blocks map[uint32][]byte
	offset uint32
}

func NewMemBlockStore() *MemBlockStore {
	return &MemBlockStore{blocks: make(map[uint32][]byte)}
}

func (m *MemBlockStore) WriteBlock(data []byte) (BlockLocation, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.offset += blockHdrSize
	loc := BlockLocation{Offset: m.offset, Len: uint32(len(data))}
	m.blocks[m.offset] = append([]byte(nil), data...)
	m.offset += uint32(len(data)) + 4
	return loc, nil
}

func (m *MemBlockStore) ReadBlock(loc BlockLocation) ([]byte, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	b, ok := m.blocks[loc.Offset]
	if !ok || loc.File != 0 {
		return nil, ErrBlockNotFound
	}
	return b, nil
}

func (m *MemBlockStore) Close() error { return nil }
