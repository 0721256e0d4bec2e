// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/go-stack/stack"
	"github.com/pkg/errors"
)

// HashError identifies an error that indicates a hash was specified that does
// not exist.
type HashError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e HashError) Error() string {
	return fmt.Sprintf("hash %v does not exist", string(e))
}

// AssertError identifies an error that indicates an internal code consistency
// issue and should be treated as a critical and unrecoverable error.
type AssertError string

// Error returns the assertion error as a huma-readable string and satisfies
// the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// assertError records the caller so index corruption can be traced.
func assertError(format string, args ...interface{}) AssertError {
	return AssertError(fmt.Sprintf("%v: ", stack.Caller(1)) + fmt.Sprintf(format, args...))
}

// FaultKind classifies a failure by how the caller should react to it.
type FaultKind int

const (
	// StructuralFault is a malformed block or transaction.  It cannot come
	// from a benign fork.
	StructuralFault FaultKind = iota

	// ConsensusFault is a well formed object that breaks a rule of the
	// current chain state.
	ConsensusFault

	// RaceCondition is an expected conflict under concurrent propagation,
	// such as an already spent input or an already known block.
	RaceCondition

	// MissingDependency means a parent block or input is not known yet.
	MissingDependency

	// StorageFault is a durable store failure.  The affected operation is
	// aborted.
	StorageFault
)

var faultKindStrings = map[FaultKind]string{
	StructuralFault:   "StructuralFault",
	ConsensusFault:    "ConsensusFault",
	RaceCondition:     "RaceCondition",
	MissingDependency: "MissingDependency",
	StorageFault:      "StorageFault",
}

func (k FaultKind) String() string {
	if s, ok := faultKindStrings[k]; ok {
		return s
	}
	return fmt.Sprintf("Unknown FaultKind (%d)", int(k))
}

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrDuplicateBlock indicates a block with the same hash already
	// exists.
	ErrDuplicateBlock ErrorCode = iota

	// ErrMissingParent indicates that the block was an orphan.
	ErrMissingParent

	// ErrDuplicateStake indicates a stake block reuses the stake of a
	// block that was already seen.
	ErrDuplicateStake

	// ErrNoTransactions indicates the block does not have at least one
	// transaction.  A valid block must have at least the coinbase
	// transaction.
	ErrNoTransactions

	// ErrBlockTooBig indicates the serialized block size exceeds the
	// maximum allowed size.
	ErrBlockTooBig

	// ErrHighHash indicates the block does not hash to a value which is
	// lower than the required target difficultly.
	ErrHighHash

	// ErrTimeTooNew indicates the time is too far in the future as compared
	// the current time.
	ErrTimeTooNew

	// ErrTimeTooOld indicates the time is either before the past time
	// limit of the parent or prior to the most recent checkpoint.
	ErrTimeTooOld

	// ErrCheckpointTimeTooOld indicates a side chain block claims a time
	// before the synchronized checkpoint.
	ErrCheckpointTimeTooOld

	// ErrFirstTxNotCoinbase indicates the first transaction in a block
	// is not a coinbase transaction.
	ErrFirstTxNotCoinbase

	// ErrMultipleCoinbases indicates a block contains more than one
	// coinbase transaction.
	ErrMultipleCoinbases

	// ErrStakeCoinbaseNotEmpty indicates the coinbase of a stake block
	// carries anything but the single empty output.
	ErrStakeCoinbaseNotEmpty

	// ErrSecondTxNotCoinstake indicates a stake block whose second
	// transaction is not the coinstake.
	ErrSecondTxNotCoinstake

	// ErrMultipleCoinstakes indicates a block with more than one
	// coinstake.
	ErrMultipleCoinstakes

	// ErrBadBlockSignature indicates the stake signature over the block
	// hash does not verify, or a work block carries a signature.
	ErrBadBlockSignature

	// ErrNonCanonicalSignature indicates the block signature is not
	// strict DER.
	ErrNonCanonicalSignature

	// ErrTxLockConflict indicates the block spends an input locked to a
	// different transaction.
	ErrTxLockConflict

	// ErrBadPayments indicates the masternode or devops payment outputs
	// of the block are missing or wrong.
	ErrBadPayments

	// ErrMasternodePayee indicates a stake block does not pay the
	// winning masternode.
	ErrMasternodePayee

	// ErrTxTimeAfterBlock indicates a transaction timestamp later than its
	// block.
	ErrTxTimeAfterBlock

	// ErrDuplicateTx indicates a block contains an identical transaction
	// (or at least two transactions which hash to the same value).
	ErrDuplicateTx

	// ErrTooManySigOps indicates the total number of signature operations
	// for a transaction or block exceed the maximum allowed limits.
	ErrTooManySigOps

	// ErrBadMerkleRoot indicates the calculated merkle root does not match
	// the expected value.
	ErrBadMerkleRoot

	// ErrBlockVersion indicates the block version is outside of the
	// accepted range.
	ErrBlockVersion

	// ErrVelocity indicates the block failed the velocity constraint.
	ErrVelocity

	// ErrPoWAfterEnd indicates a work block past the last work height.
	ErrPoWAfterEnd

	// ErrPoSBeforeStart indicates a stake block before the first stake
	// height.
	ErrPoSBeforeStart

	// ErrCoinbaseTime indicates the coinbase of a stake block is too old
	// for the block.
	ErrCoinbaseTime

	// ErrCoinstakeTime indicates the coinstake time does not match the
	// block.
	ErrCoinstakeTime

	// ErrUnexpectedDifficulty indicates specified bits do not align with
	// the expected value.
	ErrUnexpectedDifficulty

	// ErrUnfinalizedTx indicates a block contains a transaction that is
	// not finalized.
	ErrUnfinalizedTx

	// ErrBadCheckpoint indicates a block that is expected to be at a
	// checkpoint height does not match the expected one.
	ErrBadCheckpoint

	// ErrBadStakeKernel indicates the coinstake kernel does not meet its
	// target.
	ErrBadStakeKernel

	// ErrSyncCheckpoint indicates a block at or below the synchronized
	// checkpoint.
	ErrSyncCheckpoint

	// ErrBadCoinbaseHeight indicates the coinbase script does not start
	// with the serialized block height.
	ErrBadCoinbaseHeight

	// ErrNoTxInputs indicates a transaction does not have any inputs.  A
	// valid transaction must have at least one input.
	ErrNoTxInputs

	// ErrNoTxOutputs indicates a transaction does not have any outputs.  A
	// valid transaction must have at least one output.
	ErrNoTxOutputs

	// ErrTxTooBig indicates a transaction exceeds the maximum allowed size
	// when serialized.
	ErrTxTooBig

	// ErrEmptyUserOutput indicates an ordinary transaction carrying the
	// empty marker output.
	ErrEmptyUserOutput

	// ErrBadTxOutValue indicates an output value for a transaction is
	// invalid in some way such as being out of range.
	ErrBadTxOutValue

	// ErrDuplicateTxInputs indicates a transaction references the same
	// input more than once.
	ErrDuplicateTxInputs

	// ErrBadCoinbaseScriptLen indicates the length of the signature script
	// for a coinbase transaction is not within the valid range.
	ErrBadCoinbaseScriptLen

	// ErrBadTxInput indicates a transaction input is invalid in some way
	// such as referencing a previous transaction outpoint which is out of
	// range or not referencing one at all.
	ErrBadTxInput

	// ErrMissingTxOut indicates a transaction output referenced by an input
	// either does not exist or has already been spent.
	ErrMissingTxOut

	// ErrBadTxInputIndex indicates an input references an output index
	// past the end of its previous transaction.
	ErrBadTxInputIndex

	// ErrImmatureSpend indicates a transaction is attempting to spend a
	// coinbase or coinstake that has not yet reached the required maturity.
	ErrImmatureSpend

	// ErrTxTimeBeforeInput indicates a transaction older than one of the
	// transactions it spends.
	ErrTxTimeBeforeInput

	// ErrSpendMarker indicates an input spends an empty marker output.
	ErrSpendMarker

	// ErrBadTxInValue indicates an input value out of range.
	ErrBadTxInValue

	// ErrDoubleSpend indicates an input spends an output that is already
	// spent on the current chain.
	ErrDoubleSpend

	// ErrScriptValidation indicates the result of executing transaction
	// script failed.
	ErrScriptValidation

	// ErrNonMandatoryScript indicates a script that only fails the
	// standard, non consensus flags.
	ErrNonMandatoryScript

	// ErrSpendTooHigh indicates a transaction is attempting to spend more
	// value than the sum of all of its inputs.
	ErrSpendTooHigh

	// ErrBadFees indicates the total fees for a block are invalid due to
	// exceeding the maximum possible value.
	ErrBadFees

	// ErrBadCoinbaseValue indicates the amount of a coinbase value does
	// not match the expected value of the subsidy plus the sum of all fees.
	ErrBadCoinbaseValue

	// ErrBadStakeReward indicates a coinstake minting more than allowed.
	ErrBadStakeReward

	// ErrMissingTxIndex indicates the index entry of a transaction being
	// disconnected or spent from is absent.
	ErrMissingTxIndex

	// ErrOverwriteTx indicates a block repeats a transaction whose earlier
	// copy still has unspent outputs.
	ErrOverwriteTx
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:        "ErrDuplicateBlock",
	ErrMissingParent:         "ErrMissingParent",
	ErrDuplicateStake:        "ErrDuplicateStake",
	ErrNoTransactions:        "ErrNoTransactions",
	ErrBlockTooBig:           "ErrBlockTooBig",
	ErrHighHash:              "ErrHighHash",
	ErrTimeTooNew:            "ErrTimeTooNew",
	ErrTimeTooOld:            "ErrTimeTooOld",
	ErrCheckpointTimeTooOld:  "ErrCheckpointTimeTooOld",
	ErrFirstTxNotCoinbase:    "ErrFirstTxNotCoinbase",
	ErrMultipleCoinbases:     "ErrMultipleCoinbases",
	ErrStakeCoinbaseNotEmpty: "ErrStakeCoinbaseNotEmpty",
	ErrSecondTxNotCoinstake:  "ErrSecondTxNotCoinstake",
	ErrMultipleCoinstakes:    "ErrMultipleCoinstakes",
	ErrBadBlockSignature:     "ErrBadBlockSignature",
	ErrNonCanonicalSignature: "ErrNonCanonicalSignature",
	ErrTxLockConflict:        "ErrTxLockConflict",
	ErrBadPayments:           "ErrBadPayments",
	ErrMasternodePayee:       "ErrMasternodePayee",
	ErrTxTimeAfterBlock:      "ErrTxTimeAfterBlock",
	ErrDuplicateTx:           "ErrDuplicateTx",
	ErrTooManySigOps:         "ErrTooManySigOps",
	ErrBadMerkleRoot:         "ErrBadMerkleRoot",
	ErrBlockVersion:          "ErrBlockVersion",
	ErrVelocity:              "ErrVelocity",
	ErrPoWAfterEnd:           "ErrPoWAfterEnd",
	ErrPoSBeforeStart:        "ErrPoSBeforeStart",
	ErrCoinbaseTime:          "ErrCoinbaseTime",
	ErrCoinstakeTime:         "ErrCoinstakeTime",
	ErrUnexpectedDifficulty:  "ErrUnexpectedDifficulty",
	ErrUnfinalizedTx:         "ErrUnfinalizedTx",
	ErrBadCheckpoint:         "ErrBadCheckpoint",
	ErrBadStakeKernel:        "ErrBadStakeKernel",
	ErrSyncCheckpoint:        "ErrSyncCheckpoint",
	ErrBadCoinbaseHeight:     "ErrBadCoinbaseHeight",
	ErrNoTxInputs:            "ErrNoTxInputs",
	ErrNoTxOutputs:           "ErrNoTxOutputs",
	ErrTxTooBig:              "ErrTxTooBig",
	ErrEmptyUserOutput:       "ErrEmptyUserOutput",
	ErrBadTxOutValue:         "ErrBadTxOutValue",
	ErrDuplicateTxInputs:     "ErrDuplicateTxInputs",
	ErrBadCoinbaseScriptLen:  "ErrBadCoinbaseScriptLen",
	ErrBadTxInput:            "ErrBadTxInput",
	ErrMissingTxOut:          "ErrMissingTxOut",
	ErrBadTxInputIndex:       "ErrBadTxInputIndex",
	ErrImmatureSpend:         "ErrImmatureSpend",
	ErrTxTimeBeforeInput:     "ErrTxTimeBeforeInput",
	ErrSpendMarker:           "ErrSpendMarker",
	ErrBadTxInValue:          "ErrBadTxInValue",
	ErrDoubleSpend:           "ErrDoubleSpend",
	ErrScriptValidation:      "ErrScriptValidation",
	ErrNonMandatoryScript:    "ErrNonMandatoryScript",
	ErrSpendTooHigh:          "ErrSpendTooHigh",
	ErrBadFees:               "ErrBadFees",
	ErrBadCoinbaseValue:      "ErrBadCoinbaseValue",
	ErrBadStakeReward:        "ErrBadStakeReward",
	ErrMissingTxIndex:        "ErrMissingTxIndex",
	ErrOverwriteTx:           "ErrOverwriteTx",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// errorCodeDoS is the misbehavior score a peer earns for relaying an object
// that fails with the code.  Codes not listed score zero.
var errorCodeDoS = map[ErrorCode]int{
	ErrNoTransactions:        100,
	ErrBlockTooBig:           100,
	ErrHighHash:              50,
	ErrCheckpointTimeTooOld:  1,
	ErrFirstTxNotCoinbase:    100,
	ErrMultipleCoinbases:     100,
	ErrStakeCoinbaseNotEmpty: 100,
	ErrSecondTxNotCoinstake:  100,
	ErrMultipleCoinstakes:    100,
	ErrBadBlockSignature:     100,
	ErrNonCanonicalSignature: 10,
	ErrBadPayments:           100,
	ErrMasternodePayee:       100,
	ErrTxTimeAfterBlock:      50,
	ErrDuplicateTx:           100,
	ErrTooManySigOps:         100,
	ErrBadMerkleRoot:         100,
	ErrBlockVersion:          100,
	ErrVelocity:              100,
	ErrPoWAfterEnd:           100,
	ErrPoSBeforeStart:        100,
	ErrCoinbaseTime:          50,
	ErrCoinstakeTime:         50,
	ErrUnexpectedDifficulty:  100,
	ErrUnfinalizedTx:         10,
	ErrBadCheckpoint:         100,
	ErrBadCoinbaseHeight:     100,
	ErrMissingParent:         10,
	ErrNoTxInputs:            10,
	ErrNoTxOutputs:           10,
	ErrTxTooBig:              100,
	ErrEmptyUserOutput:       100,
	ErrBadTxOutValue:         100,
	ErrDuplicateTxInputs:     100,
	ErrBadCoinbaseScriptLen:  100,
	ErrBadTxInput:            10,
	ErrBadTxInputIndex:       100,
	ErrTxTimeBeforeInput:     100,
	ErrSpendMarker:           1,
	ErrBadTxInValue:          100,
	ErrScriptValidation:      100,
	ErrSpendTooHigh:          100,
	ErrBadFees:               100,
	ErrBadCoinbaseValue:      50,
	ErrBadStakeReward:        100,
}

// errorCodeKinds maps the codes that are not consensus faults.
var errorCodeKinds = map[ErrorCode]FaultKind{
	ErrDuplicateBlock:        RaceCondition,
	ErrDuplicateStake:        RaceCondition,
	ErrDoubleSpend:           RaceCondition,
	ErrTxLockConflict:        RaceCondition,
	ErrMissingParent:         MissingDependency,
	ErrMissingTxOut:          MissingDependency,
	ErrNoTransactions:        StructuralFault,
	ErrBlockTooBig:           StructuralFault,
	ErrHighHash:              StructuralFault,
	ErrFirstTxNotCoinbase:    StructuralFault,
	ErrMultipleCoinbases:     StructuralFault,
	ErrStakeCoinbaseNotEmpty: StructuralFault,
	ErrSecondTxNotCoinstake:  StructuralFault,
	ErrMultipleCoinstakes:    StructuralFault,
	ErrBadBlockSignature:     StructuralFault,
	ErrNonCanonicalSignature: StructuralFault,
	ErrTxTimeAfterBlock:      StructuralFault,
	ErrDuplicateTx:           StructuralFault,
	ErrTooManySigOps:         StructuralFault,
	ErrBadMerkleRoot:         StructuralFault,
	ErrNoTxInputs:            StructuralFault,
	ErrNoTxOutputs:           StructuralFault,
	ErrTxTooBig:              StructuralFault,
	ErrEmptyUserOutput:       StructuralFault,
	ErrBadTxOutValue:         StructuralFault,
	ErrDuplicateTxInputs:     StructuralFault,
	ErrBadCoinbaseScriptLen:  StructuralFault,
	ErrBadTxInput:            StructuralFault,
	ErrBadTxInputIndex:       StructuralFault,
}

// Kind maps the code into the fault taxonomy.
func (e ErrorCode) Kind() FaultKind {
	if k, ok := errorCodeKinds[e]; ok {
		return k
	}
	return ConsensusFault
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a block or transaction failed due to one of the many validation
// rules.  The caller can use type assertions to determine if a failure was
// specifically due to a rule violation and access the ErrorCode field to
// ascertain the specific reason for the rule violation.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	DoS         int       // Misbehavior score for the relaying peer
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Kind returns the fault class of the violation.
func (e RuleError) Kind() FaultKind {
	return e.ErrorCode.Kind()
}

// ruleError creates an RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc, DoS: errorCodeDoS[c]}
}

// storageError wraps a database failure so callers can tell it apart from
// rule violations.
type storageError struct {
	cause error
}

func (e storageError) Error() string {
	return "storage: " + e.cause.Error()
}

func (e storageError) Cause() error {
	return e.cause
}

func dbError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.Cause(err).(RuleError); ok {
		return err
	}
	return storageError{cause: errors.Wrap(err, msg)}
}

// IsStorageFault reports whether err came from the durable store.
func IsStorageFault(err error) bool {
	_, ok := err.(storageError)
	return ok
}

// ErrorKind classifies any error returned by the chain.  Errors that are
// neither rule violations nor storage faults are treated as consensus
// faults.
func ErrorKind(err error) FaultKind {
	switch e := err.(type) {
	case RuleError:
		return e.Kind()
	case storageError:
		return StorageFault
	}
	return ConsensusFault
}

// DoSScore returns the misbehavior score carried by err, zero for anything
// that is not a rule violation.
func DoSScore(err error) int {
	if rerr, ok := err.(RuleError); ok {
		return rerr.DoS
	}
	return 0
}

// IsErrorCode returns whether or not the provided error is a rule error with
// the provided error code.
func IsErrorCode(err error, c ErrorCode) bool {
	rerr, ok := err.(RuleError)
	return ok && rerr.ErrorCode == c
}
