// Copyright 2017-2018 The qitmeer developers

package types

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	s "github.com/Qitmeer/vrx/core/serialization"
)

const (
	// BlockVersion is the only header version the chain accepts.
	BlockVersion int32 = 7

	// MaxBlockHeaderPayload is the number of bytes a block header occupies.
	// Version 4 bytes + PrevBlock 32 bytes + TxRoot 32 bytes + Timestamp
	// 4 bytes + Difficulty 4 bytes + Nonce 4 bytes.
	MaxBlockHeaderPayload = 4 + (hash.HashSize * 2) + 4 + 4 + 4

	// MaxBlockSize is the maximum serialized size of a block.
	MaxBlockSize = 15256128

	// MaxBlockSigOps is the legacy signature operation cap of a block.
	MaxBlockSigOps = MaxBlockSize / 50

	// MaxTxSigOps caps a single relayed transaction.
	MaxTxSigOps = MaxBlockSigOps / 5

	// maxBlockSignature bounds the stake signature attached to a block.
	maxBlockSignature = 256
)

type BlockHeader struct {
	// block version
	Version int32

	// Hash of the previous block in the chain.
	PrevBlock hash.Hash

	// The merkle root of the tx tree
	TxRoot hash.Hash

	// TimeStamp
	Timestamp time.Time

	// Difficulty target in compact form
	Difficulty uint32

	// Nonce
	Nonce uint32
}

func (h *BlockHeader) bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, MaxBlockHeaderPayload))
	// Writing to a bytes.Buffer cannot fail.
	_ = h.Serialize(buf)
	return buf.Bytes()
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() hash.Hash {
	return hash.DoubleHashH(h.bytes())
}

// PowHash is the hash compared against the target of a proof-of-work block.
func (h *BlockHeader) PowHash() hash.Hash {
	return hash.PowHashH(h.bytes())
}

func (h *BlockHeader) Serialize(w io.Writer) error {
	return s.WriteElements(w, h.Version, &h.PrevBlock, &h.TxRoot,
		s.Uint32Time(h.Timestamp), h.Difficulty, h.Nonce)
}

func (h *BlockHeader) Deserialize(r io.Reader) error {
	return s.ReadElements(r, &h.Version, &h.PrevBlock, &h.TxRoot,
		(*s.Uint32Time)(&h.Timestamp), &h.Difficulty, &h.Nonce)
}

// Block is a header, its transactions and, for stake blocks, the staker's
// signature over the block hash.
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
	Signature    []byte
}

func (b *Block) BlockHash() hash.Hash {
	return b.Header.BlockHash()
}

func (b *Block) AddTransaction(tx *Transaction) {
	b.Transactions = append(b.Transactions, tx)
}

// IsProofOfStake reports whether the second transaction is a coinstake.
func (b *Block) IsProofOfStake() bool {
	return len(b.Transactions) > 1 && b.Transactions[1].IsCoinStake()
}

// IsProofOfWork is the complement of IsProofOfStake.
func (b *Block) IsProofOfWork() bool {
	return !b.IsProofOfStake()
}

// StakeKey identifies a stake by the spent output and the coinstake time.
// Two blocks claiming the same stake key are duplicates.
type StakeKey struct {
	PrevOut TxOutPoint
	Time    int64
}

// ProofOfStake returns the stake key of a stake block; the zero key for
// proof-of-work blocks.
func (b *Block) ProofOfStake() StakeKey {
	if !b.IsProofOfStake() {
		return StakeKey{}
	}
	cs := b.Transactions[1]
	return StakeKey{PrevOut: cs.TxIn[0].PreviousOut, Time: cs.Timestamp.Unix()}
}

// MaxTransactionTime returns the latest transaction timestamp in the block.
func (b *Block) MaxTransactionTime() int64 {
	var maxTime int64
	for _, tx := range b.Transactions {
		if t := tx.Timestamp.Unix(); t > maxTime {
			maxTime = t
		}
	}
	return maxTime
}

func (b *Block) SerializeSize() int {
	n := MaxBlockHeaderPayload + s.VarIntSerializeSize(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		n += tx.SerializeSize()
	}
	return n + s.VarIntSerializeSize(uint64(len(b.Signature))) + len(b.Signature)
}

func (b *Block) Serialize(w io.Writer) error {
	if err := b.Header.Serialize(w); err != nil {
		return err
	}
	if err := s.WriteVarInt(w, uint64(len(b.Transactions))); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return s.WriteVarBytes(w, b.Signature)
}

func (b *Block) Deserialize(r io.Reader) error {
	if err := b.Header.Deserialize(r); err != nil {
		return err
	}
	txCount, err := s.ReadVarInt(r)
	if err != nil {
		return err
	}
	// Prevent more transactions than could possibly fit into a block.
	maxTxPerBlock := uint64(MaxBlockSize/(minTxInPayload+minTxOutPayload)) + 1
	if txCount > maxTxPerBlock {
		return fmt.Errorf("too many transactions to fit into a block "+
			"[count %d, max %d]", txCount, maxTxPerBlock)
	}
	b.Transactions = make([]*Transaction, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx := Transaction{}
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		b.Transactions = append(b.Transactions, &tx)
	}
	b.Signature, err = s.ReadVarBytes(r, maxBlockSignature, "block signature")
	return err
}

// TxLoc holds locator data for the offset and length of where a transaction is
// located within a block data buffer.
type TxLoc struct {
	TxStart int
	TxLen   int
}

// SerializedBlock provides easier and more efficient manipulation of raw
// blocks.  It also memoizes hashes for the block and its transactions on
// their first access so subsequent accesses don't have to repeat the
// relatively expensive hashing operations.
type SerializedBlock struct {
	block        *Block
	serialized   []byte
	hash         hash.Hash
	transactions []*Tx
	txLocs       []TxLoc
	height       int64
}

func NewBlock(block *Block) *SerializedBlock {
	return &SerializedBlock{
		block:  block,
		hash:   block.BlockHash(),
		height: -1,
	}
}

// NewBlockFromBytes returns a new instance of a block given the
// serialized bytes.
func NewBlockFromBytes(serializedBytes []byte) (*SerializedBlock, error) {
	var block Block
	if err := block.Deserialize(bytes.NewReader(serializedBytes)); err != nil {
		return nil, err
	}
	sb := NewBlock(&block)
	sb.serialized = serializedBytes
	return sb, nil
}

func (sb *SerializedBlock) Hash() *hash.Hash {
	return &sb.hash
}

func (sb *SerializedBlock) Block() *Block {
	return sb.block
}

func (sb *SerializedBlock) Height() int64 {
	return sb.height
}

func (sb *SerializedBlock) SetHeight(height int64) {
	sb.height = height
}

// Bytes returns the serialized bytes for the block, caching them.
func (sb *SerializedBlock) Bytes() ([]byte, error) {
	if len(sb.serialized) != 0 {
		return sb.serialized, nil
	}
	w := bytes.NewBuffer(make([]byte, 0, sb.block.SerializeSize()))
	if err := sb.block.Serialize(w); err != nil {
		return nil, err
	}
	sb.serialized = w.Bytes()
	return sb.serialized, nil
}

// Transactions returns the wrapped transactions, indexed by position.
func (sb *SerializedBlock) Transactions() []*Tx {
	if len(sb.transactions) == len(sb.block.Transactions) && sb.transactions != nil {
		return sb.transactions
	}
	sb.transactions = make([]*Tx, len(sb.block.Transactions))
	for i, tx := range sb.block.Transactions {
		t := NewTx(tx)
		t.SetIndex(i)
		sb.transactions[i] = t
	}
	return sb.transactions
}

// TxLoc returns the offsets and lengths of each transaction in the
// serialized block.
func (sb *SerializedBlock) TxLoc() []TxLoc {
	if sb.txLocs != nil {
		return sb.txLocs
	}
	offset := MaxBlockHeaderPayload + s.VarIntSerializeSize(uint64(len(sb.block.Transactions)))
	locs := make([]TxLoc, len(sb.block.Transactions))
	for i, tx := range sb.block.Transactions {
		size := tx.SerializeSize()
		locs[i] = TxLoc{TxStart: offset, TxLen: size}
		offset += size
	}
	sb.txLocs = locs
	return locs
}
