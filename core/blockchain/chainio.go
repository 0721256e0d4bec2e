// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"fmt"
	"math"
	"math/big"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/database"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	// blockIndexPrefix prefixes the index entry of every known block.
	blockIndexPrefix = []byte("bi")

	// txIndexPrefix prefixes the index entry of every confirmed
	// transaction.
	txIndexPrefix = []byte("tx")

	// bestChainKey holds the hash of the best chain tip.
	bestChainKey = []byte("hashBestChain")

	// bestInvalidTrustKey holds the highest trust of a chain that failed
	// to connect.
	bestInvalidTrustKey = []byte("bnBestInvalidTrust")
)

// DiskTxPos locates a transaction inside the block files.  The zero value is
// the null position: real block offsets are never zero.
type DiskTxPos struct {
	File     uint32
	BlockPos uint32
	BlockLen uint32
	TxPos    uint32
}

// mempoolTxPos marks inputs spent by transactions that only live in memory.
var mempoolTxPos = DiskTxPos{File: math.MaxUint32}

func (p DiskTxPos) IsNull() bool {
	return p == DiskTxPos{}
}

// IsMempool reports whether the position is the in-memory marker.
func (p DiskTxPos) IsMempool() bool {
	return p.File == math.MaxUint32
}

func (p DiskTxPos) blockLocation() database.BlockLocation {
	return database.BlockLocation{File: p.File, Offset: p.BlockPos, Len: p.BlockLen}
}

func (p DiskTxPos) String() string {
	if p.IsNull() {
		return "null"
	}
	return fmt.Sprintf("(file=%d, blockpos=%d, txpos=%d)", p.File, p.BlockPos, p.TxPos)
}

// TxIndexEntry is the position of a confirmed transaction and, per output,
// the position of the transaction spending it or null while unspent.
type TxIndexEntry struct {
	Pos   DiskTxPos
	Spent []DiskTxPos
}

func newTxIndexEntry(pos DiskTxPos, outputs int) *TxIndexEntry {
	return &TxIndexEntry{Pos: pos, Spent: make([]DiskTxPos, outputs)}
}

func (e *TxIndexEntry) clone() *TxIndexEntry {
	c := &TxIndexEntry{Pos: e.Pos, Spent: make([]DiskTxPos, len(e.Spent))}
	copy(c.Spent, e.Spent)
	return c
}

// diskBlockIndex is the serialized form of a block node.  Trust is derived
// and recomputed on load.
type diskBlockIndex struct {
	PrevBlock     hash.Hash
	Next          hash.Hash
	Height        uint64
	File          uint32
	Offset        uint32
	Len           uint32
	Mint          uint64
	MoneySupply   uint64
	Flags         uint8
	StakeModifier uint64
	ProofHash     hash.Hash
	PrevoutHash   hash.Hash
	PrevoutIndex  uint32
	StakeTime     uint64
	Version       uint32
	TxRoot        hash.Hash
	Timestamp     uint64
	Bits          uint32
	Nonce         uint32
}

func blockIndexKey(h *hash.Hash) []byte {
	key := make([]byte, len(blockIndexPrefix)+hash.HashSize)
	copy(key, blockIndexPrefix)
	copy(key[len(blockIndexPrefix):], h[:])
	return key
}

func txIndexKey(h *hash.Hash) []byte {
	key := make([]byte, len(txIndexPrefix)+hash.HashSize)
	copy(key, txIndexPrefix)
	copy(key[len(txIndexPrefix):], h[:])
	return key
}

// dbPutBlockNode writes the index entry of the node.
func dbPutBlockNode(dbTx database.Tx, node *blockNode) error {
	return dbPutBlockNodeNext(dbTx, node, node.next)
}

// dbPutBlockNodeNext writes the index entry of the node with the given next
// link, leaving the in-memory node untouched until the transaction commits.
func dbPutBlockNodeNext(dbTx database.Tx, node *blockNode, next *hash.Hash) error {
	rec := diskBlockIndex{
		Height:        uint64(node.height),
		File:          node.location.File,
		Offset:        node.location.Offset,
		Len:           node.location.Len,
		Mint:          uint64(node.mint),
		MoneySupply:   uint64(node.moneySupply),
		Flags:         uint8(node.flags),
		StakeModifier: node.stakeModifier,
		ProofHash:     node.proofHash,
		PrevoutHash:   node.prevoutStake.Hash,
		PrevoutIndex:  node.prevoutStake.OutIndex,
		StakeTime:     uint64(node.stakeTime),
		Version:       uint32(node.blockVersion),
		TxRoot:        node.txRoot,
		Timestamp:     uint64(node.timestamp),
		Bits:          node.bits,
		Nonce:         node.nonce,
	}
	if node.parent != nil {
		rec.PrevBlock = node.parent.hash
	}
	if next != nil {
		rec.Next = *next
	}
	data, err := rlp.EncodeToBytes(&rec)
	if err != nil {
		return err
	}
	return dbTx.Put(blockIndexKey(&node.hash), data)
}

// decodeBlockNode rebuilds a node without its parent link.  The previous
// and next hashes are returned for the loader to link.
func decodeBlockNode(key, data []byte) (*blockNode, *diskBlockIndex, error) {
	var rec diskBlockIndex
	if err := rlp.DecodeBytes(data, &rec); err != nil {
		return nil, nil, err
	}
	node := &blockNode{
		height:        int64(rec.Height),
		location:      database.BlockLocation{File: rec.File, Offset: rec.Offset, Len: rec.Len},
		mint:          types.Amount(rec.Mint),
		moneySupply:   types.Amount(rec.MoneySupply),
		flags:         blockFlags(rec.Flags),
		stakeModifier: rec.StakeModifier,
		proofHash:     rec.ProofHash,
		prevoutStake:  types.TxOutPoint{Hash: rec.PrevoutHash, OutIndex: rec.PrevoutIndex},
		stakeTime:     int64(rec.StakeTime),
		blockVersion:  int32(rec.Version),
		txRoot:        rec.TxRoot,
		timestamp:     int64(rec.Timestamp),
		bits:          rec.Bits,
		nonce:         rec.Nonce,
	}
	copy(node.hash[:], key[len(blockIndexPrefix):])
	return node, &rec, nil
}

// dbFetchTxIndex returns the index entry of a transaction, or nil when it is
// not confirmed.
func dbFetchTxIndex(dbTx database.Tx, txHash *hash.Hash) (*TxIndexEntry, error) {
	data, err := dbTx.Get(txIndexKey(txHash))
	if err != nil || data == nil {
		return nil, err
	}
	var entry TxIndexEntry
	if err := rlp.DecodeBytes(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func dbPutTxIndex(dbTx database.Tx, txHash *hash.Hash, entry *TxIndexEntry) error {
	data, err := rlp.EncodeToBytes(entry)
	if err != nil {
		return err
	}
	return dbTx.Put(txIndexKey(txHash), data)
}

func dbRemoveTxIndex(dbTx database.Tx, txHash *hash.Hash) error {
	return dbTx.Delete(txIndexKey(txHash))
}

func dbPutBestChain(dbTx database.Tx, h *hash.Hash) error {
	return dbTx.Put(bestChainKey, h[:])
}

// dbFetchBestChain returns the stored best hash, nil on a fresh database.
func dbFetchBestChain(dbTx database.Tx) (*hash.Hash, error) {
	data, err := dbTx.Get(bestChainKey)
	if err != nil || data == nil {
		return nil, err
	}
	if len(data) != hash.HashSize {
		return nil, fmt.Errorf("corrupt best chain hash of %d bytes", len(data))
	}
	var h hash.Hash
	copy(h[:], data)
	return &h, nil
}

func dbPutBestInvalidTrust(dbTx database.Tx, trust *big.Int) error {
	return dbTx.Put(bestInvalidTrustKey, trust.Bytes())
}

func dbFetchBestInvalidTrust(dbTx database.Tx) (*big.Int, error) {
	data, err := dbTx.Get(bestInvalidTrustKey)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(data), nil
}

// readBlock loads the block stored at loc.
func (b *BlockChain) readBlock(loc database.BlockLocation) (*types.SerializedBlock, error) {
	data, err := b.blockStore.ReadBlock(loc)
	if err != nil {
		return nil, err
	}
	return types.NewBlockFromBytes(data)
}

// blockByNode loads the block of an indexed node.
func (b *BlockChain) blockByNode(node *blockNode) (*types.SerializedBlock, error) {
	block, err := b.readBlock(node.location)
	if err != nil {
		return nil, dbError(err, fmt.Sprintf("read block %v", node.hash))
	}
	block.SetHeight(node.height)
	return block, nil
}

// readTx loads a confirmed transaction and the node of its block.
func (b *BlockChain) readTx(pos DiskTxPos) (*types.Transaction, *blockNode, error) {
	data, err := b.blockStore.ReadBlock(pos.blockLocation())
	if err != nil {
		return nil, nil, err
	}
	if int(pos.TxPos) >= len(data) || len(data) < blockHdrSize {
		return nil, nil, fmt.Errorf("tx position %v out of block range", pos)
	}
	var tx types.Transaction
	if err := tx.Deserialize(bytes.NewReader(data[pos.TxPos:])); err != nil {
		return nil, nil, err
	}
	var header types.BlockHeader
	if err := header.Deserialize(bytes.NewReader(data[:blockHdrSize])); err != nil {
		return nil, nil, err
	}
	blockHash := header.BlockHash()
	return &tx, b.index.LookupNode(&blockHash), nil
}
