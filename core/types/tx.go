// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Qitmeer/vrx/common/hash"
	s "github.com/Qitmeer/vrx/core/serialization"
)

const (
	// TxVersion is the current latest supported transaction version.
	TxVersion int32 = 1

	// MaxTxInSequenceNum is the maximum sequence number the sequence field
	// of a transaction input can be.
	MaxTxInSequenceNum uint32 = 0xffffffff

	// MaxPrevOutIndex is the maximum index the index field of a previous
	// outpoint can be.
	MaxPrevOutIndex uint32 = 0xffffffff

	// LockTimeThreshold is the number below which a lock time is
	// interpreted to be a block height.
	LockTimeThreshold = 500000000

	// minTxInPayload is the minimum payload size for a transaction input.
	// PreviousOutPoint.Hash + PreviousOutPoint.Index 4 bytes + Varint for
	// SignatureScript length 1 byte + Sequence 4 bytes.
	minTxInPayload = 9 + hash.HashSize

	// minTxOutPayload is the minimum payload size for a transaction output.
	// Value 8 bytes + Varint for PkScript length 1 byte.
	minTxOutPayload = 9

	// maxScriptSize bounds a single signature or public key script.
	maxScriptSize = 10000
)

// TxOutPoint defines a data type that is used to track previous
// transaction outputs.
type TxOutPoint struct {
	Hash     hash.Hash //txid
	OutIndex uint32    //vout
}

// NewOutPoint returns a new transaction outpoint point with the
// provided hash and index.
func NewOutPoint(hash *hash.Hash, index uint32) *TxOutPoint {
	return &TxOutPoint{
		Hash:     *hash,
		OutIndex: index,
	}
}

// IsNull reports whether the outpoint is the coinbase placeholder.
func (o TxOutPoint) IsNull() bool {
	return o.Hash.IsZero() && o.OutIndex == MaxPrevOutIndex
}

func (o TxOutPoint) String() string {
	return o.Hash.String() + ":" + strconv.FormatUint(uint64(o.OutIndex), 10)
}

type TxInput struct {
	PreviousOut TxOutPoint
	SignScript  []byte
	Sequence    uint32
}

// NewTxInput returns a new transaction input with the provided
// previous outpoint point and signature script with a default sequence of
// MaxTxInSequenceNum.
func NewTxInput(prevOut *TxOutPoint, signScript []byte) *TxInput {
	return &TxInput{
		PreviousOut: *prevOut,
		SignScript:  signScript,
		Sequence:    MaxTxInSequenceNum,
	}
}

func (ti *TxInput) IsFinal() bool {
	return ti.Sequence == MaxTxInSequenceNum
}

func (ti *TxInput) SerializeSize() int {
	return minTxInPayload - 1 + s.VarIntSerializeSize(uint64(len(ti.SignScript))) +
		len(ti.SignScript)
}

type TxOutput struct {
	Amount   Amount
	PkScript []byte
}

func NewTxOutput(amount Amount, pkScript []byte) *TxOutput {
	return &TxOutput{
		Amount:   amount,
		PkScript: pkScript,
	}
}

// IsEmpty reports whether the output is the zero-value marker used as the
// first output of a coinstake and the only output of a stake block coinbase.
func (to *TxOutput) IsEmpty() bool {
	return to.Amount == 0 && len(to.PkScript) == 0
}

func (to *TxOutput) SetEmpty() {
	to.Amount = 0
	to.PkScript = nil
}

func (to *TxOutput) SerializeSize() int {
	return 8 + s.VarIntSerializeSize(uint64(len(to.PkScript))) + len(to.PkScript)
}

// Transaction carries a timestamp alongside the usual inputs and outputs;
// stake kernels and the spend tracker both order on it.
type Transaction struct {
	Version   int32
	Timestamp time.Time
	TxIn      []*TxInput
	TxOut     []*TxOutput
	LockTime  uint32
}

// NewTransaction returns a new transaction stamped with the current second.
func NewTransaction() *Transaction {
	return &Transaction{
		Version:   TxVersion,
		Timestamp: time.Unix(time.Now().Unix(), 0),
	}
}

func (tx *Transaction) AddTxIn(ti *TxInput) {
	tx.TxIn = append(tx.TxIn, ti)
}

func (tx *Transaction) AddTxOut(to *TxOutput) {
	tx.TxOut = append(tx.TxOut, to)
}

// IsCoinBase determines whether or not a transaction is a coinbase.  A
// coinbase has exactly one input whose previous outpoint is null.
func (tx *Transaction) IsCoinBase() bool {
	return len(tx.TxIn) == 1 && tx.TxIn[0].PreviousOut.IsNull()
}

// IsCoinStake determines whether the transaction mints through coin age:
// it spends a real output and its first output is the empty marker.
func (tx *Transaction) IsCoinStake() bool {
	return len(tx.TxIn) > 0 && !tx.TxIn[0].PreviousOut.IsNull() &&
		len(tx.TxOut) >= 2 && tx.TxOut[0].IsEmpty()
}

// ValueOut sums the outputs. Range checking is left to the caller.
func (tx *Transaction) ValueOut() Amount {
	var total Amount
	for _, out := range tx.TxOut {
		total += out.Amount
	}
	return total
}

// IsFinal reports whether the transaction may be included in a block at the
// given height and time.
func (tx *Transaction) IsFinal(height int64, blockTime int64) bool {
	if tx.LockTime == 0 {
		return true
	}
	lockTimeLimit := blockTime
	if tx.LockTime < LockTimeThreshold {
		lockTimeLimit = height
	}
	if int64(tx.LockTime) < lockTimeLimit {
		return true
	}
	for _, txIn := range tx.TxIn {
		if !txIn.IsFinal() {
			return false
		}
	}
	return true
}

func (tx *Transaction) SerializeSize() int {
	// Version 4 bytes + Timestamp 4 bytes + LockTime 4 bytes + serialized
	// varint size for the number of transaction inputs and outputs.
	n := 12 + s.VarIntSerializeSize(uint64(len(tx.TxIn))) +
		s.VarIntSerializeSize(uint64(len(tx.TxOut)))
	for _, txIn := range tx.TxIn {
		n += txIn.SerializeSize()
	}
	for _, txOut := range tx.TxOut {
		n += txOut.SerializeSize()
	}
	return n
}

// Serialize encodes the transaction to w.
func (tx *Transaction) Serialize(w io.Writer) error {
	err := s.WriteElements(w, tx.Version, s.Uint32Time(tx.Timestamp))
	if err != nil {
		return err
	}
	if err := s.WriteVarInt(w, uint64(len(tx.TxIn))); err != nil {
		return err
	}
	for _, ti := range tx.TxIn {
		err := s.WriteElements(w, &ti.PreviousOut.Hash, ti.PreviousOut.OutIndex)
		if err != nil {
			return err
		}
		if err := s.WriteVarBytes(w, ti.SignScript); err != nil {
			return err
		}
		if err := s.WriteElements(w, ti.Sequence); err != nil {
			return err
		}
	}
	if err := s.WriteVarInt(w, uint64(len(tx.TxOut))); err != nil {
		return err
	}
	for _, to := range tx.TxOut {
		if err := s.WriteElements(w, int64(to.Amount)); err != nil {
			return err
		}
		if err := s.WriteVarBytes(w, to.PkScript); err != nil {
			return err
		}
	}
	return s.WriteElements(w, tx.LockTime)
}

// Deserialize decodes a transaction from r into the receiver.
func (tx *Transaction) Deserialize(r io.Reader) error {
	err := s.ReadElements(r, &tx.Version, (*s.Uint32Time)(&tx.Timestamp))
	if err != nil {
		return err
	}
	count, err := s.ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > uint64(MaxBlockSize/minTxInPayload) {
		return fmt.Errorf("too many input transactions to fit into "+
			"max message size [count %d]", count)
	}
	tx.TxIn = make([]*TxInput, count)
	for i := range tx.TxIn {
		ti := &TxInput{}
		err := s.ReadElements(r, &ti.PreviousOut.Hash, &ti.PreviousOut.OutIndex)
		if err != nil {
			return err
		}
		ti.SignScript, err = s.ReadVarBytes(r, maxScriptSize, "transaction input signature script")
		if err != nil {
			return err
		}
		if err := s.ReadElements(r, &ti.Sequence); err != nil {
			return err
		}
		tx.TxIn[i] = ti
	}
	count, err = s.ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > uint64(MaxBlockSize/minTxOutPayload) {
		return fmt.Errorf("too many output transactions to fit into "+
			"max message size [count %d]", count)
	}
	tx.TxOut = make([]*TxOutput, count)
	for i := range tx.TxOut {
		to := &TxOutput{}
		var amount int64
		if err := s.ReadElements(r, &amount); err != nil {
			return err
		}
		to.Amount = Amount(amount)
		to.PkScript, err = s.ReadVarBytes(r, maxScriptSize, "transaction output public key script")
		if err != nil {
			return err
		}
		tx.TxOut[i] = to
	}
	return s.ReadElements(r, &tx.LockTime)
}

// Bytes returns the serialized transaction.
func (tx *Transaction) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, tx.SerializeSize()))
	// Writing to a bytes.Buffer cannot fail.
	_ = tx.Serialize(buf)
	return buf.Bytes()
}

// TxHash generates the hash for the transaction.
func (tx *Transaction) TxHash() hash.Hash {
	return hash.DoubleHashH(tx.Bytes())
}

// Copy returns a deep copy, so the caller may edit scripts without racing
// other holders of the original.
func (tx *Transaction) Copy() *Transaction {
	newTx := &Transaction{
		Version:   tx.Version,
		Timestamp: tx.Timestamp,
		TxIn:      make([]*TxInput, 0, len(tx.TxIn)),
		TxOut:     make([]*TxOutput, 0, len(tx.TxOut)),
		LockTime:  tx.LockTime,
	}
	for _, oldTxIn := range tx.TxIn {
		newTxIn := *oldTxIn
		newTxIn.SignScript = append([]byte(nil), oldTxIn.SignScript...)
		newTx.TxIn = append(newTx.TxIn, &newTxIn)
	}
	for _, oldTxOut := range tx.TxOut {
		newTxOut := *oldTxOut
		newTxOut.PkScript = append([]byte(nil), oldTxOut.PkScript...)
		newTx.TxOut = append(newTx.TxOut, &newTxOut)
	}
	return newTx
}

// Tx defines a transaction that provides easier and more efficient
// manipulation of raw transactions.  It also memoizes the hash for the
// transaction on its first access so subsequent accesses don't have to repeat
// the relatively expensive hashing operations.
type Tx struct {
	Tx     *Transaction // Underlying Transaction
	txHash *hash.Hash   // Cached transaction hash
	index  int          // Position within a block or TxIndexUnknown
}

// TxIndexUnknown is the value returned for a transaction index that is unknown.
const TxIndexUnknown = -1

func NewTx(t *Transaction) *Tx {
	return &Tx{
		Tx:    t,
		index: TxIndexUnknown,
	}
}

// NewTxFromBytes returns a new instance of a transaction given the
// serialized bytes.
func NewTxFromBytes(serializedTx []byte) (*Tx, error) {
	var msgTx Transaction
	err := msgTx.Deserialize(bytes.NewReader(serializedTx))
	if err != nil {
		return nil, err
	}
	return NewTx(&msgTx), nil
}

func (t *Tx) Transaction() *Transaction {
	return t.Tx
}

// Hash returns the hash of the transaction.  This is equivalent to
// calling TxHash on the underlying Transaction, however it caches the
// result so subsequent calls are more efficient.
func (t *Tx) Hash() *hash.Hash {
	if t.txHash != nil {
		return t.txHash
	}
	h := t.Tx.TxHash()
	t.txHash = &h
	return &h
}

func (t *Tx) Index() int {
	return t.index
}

func (t *Tx) SetIndex(index int) {
	t.index = index
}
