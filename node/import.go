// Copyright (c) 2017-2018 The qitmeer developers
package node

import (
	"fmt"
	"io"

	"github.com/Qitmeer/vrx/core/serialization"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/services/blkmgr"
)

// ImportResult counts the blocks of an import.
type ImportResult struct {
	Read      int
	Processed int
	Orphans   int
}

// ImportBlocks feeds a stream of blocks, each prefixed by its serialized
// length as a little-endian uint32, to the block manager as a local
// submission.  Blocks already known to the chain are skipped.  The import
// stops at the first rejected block, at the end of the stream, or when
// interrupt is closed.
func (vf *VrxFull) ImportBlocks(r io.Reader, interrupt <-chan struct{}) (*ImportResult, error) {
	res := &ImportResult{}
	for {
		select {
		case <-interrupt:
			return res, nil
		default:
		}

		block, err := readBlock(r)
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		res.Read++

		if vf.chain.HaveBlock(block.Hash()) {
			continue
		}
		isOrphan, err := vf.blockManager.ProcessBlock(blkmgr.LocalPeer, block)
		if err != nil {
			return res, fmt.Errorf("import block %d (%s): %v", res.Read, block.Hash(), err)
		}
		if isOrphan {
			res.Orphans++
			continue
		}
		res.Processed++
	}
}

func readBlock(r io.Reader) (*types.SerializedBlock, error) {
	var size uint32
	if err := serialization.ReadElements(r, &size); err != nil {
		return nil, err
	}
	if size == 0 || size > types.MaxBlockSize {
		return nil, fmt.Errorf("block size of %d is out of range", size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return types.NewBlockFromBytes(buf)
}
