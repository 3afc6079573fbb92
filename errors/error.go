// Package errors provides the typed error used across the consensus core.
//
// It is modeled on bsv-blockchain-teranode/errors: a single concrete error
// type carrying a stable Code plus a human message and an optional wrapped
// cause, with Is/As/Unwrap so callers can match on Code the way the rest of
// the codebase matches on sentinel errors.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies the kind of failure. Values are grouped by the
// component that raises them; see the constants below for the full set.
type Code int

const (
	ErrUnknown Code = iota

	// Block validity predicate (InvalidBlockError reasons).
	ErrBlockOutOfSequence
	ErrNotTallestChain
	ErrInvalidBlockNonce
	ErrInvalidBlockReward
	ErrInvalidNextBlockReward
	ErrInvalidClaimPointers
	ErrInvalidLastHash
	ErrInvalidBlockHeight
	ErrInvalidStateHash
	ErrInvalidClaim
	ErrInvalidBlockSignature
	ErrInvalidTxns

	// Mempool.
	ErrMempoolWriteExhausted
	ErrMempoolTxnNotFound

	// Election / quorum.
	ErrInvalidSeed

	// DKG.
	ErrDkgMissingPart
	ErrDkgMissingAck
	ErrDkgMalformedMessage
	ErrDkgThresholdMisconfigured
	ErrDkgKeyGenFailed

	// Miner election.
	ErrNoEligibleMiner
)

var codeNames = map[Code]string{
	ErrUnknown:                   "unknown",
	ErrBlockOutOfSequence:        "block_out_of_sequence",
	ErrNotTallestChain:           "not_tallest_chain",
	ErrInvalidBlockNonce:         "invalid_block_nonce",
	ErrInvalidBlockReward:        "invalid_block_reward",
	ErrInvalidNextBlockReward:    "invalid_next_block_reward",
	ErrInvalidClaimPointers:      "invalid_claim_pointers",
	ErrInvalidLastHash:           "invalid_last_hash",
	ErrInvalidBlockHeight:        "invalid_block_height",
	ErrInvalidStateHash:          "invalid_state_hash",
	ErrInvalidClaim:              "invalid_claim",
	ErrInvalidBlockSignature:     "invalid_block_signature",
	ErrInvalidTxns:               "invalid_txns",
	ErrMempoolWriteExhausted:     "mempool_write_exhausted",
	ErrMempoolTxnNotFound:        "mempool_txn_not_found",
	ErrInvalidSeed:               "invalid_seed",
	ErrDkgMissingPart:            "dkg_missing_part",
	ErrDkgMissingAck:             "dkg_missing_ack",
	ErrDkgMalformedMessage:       "dkg_malformed_message",
	ErrDkgThresholdMisconfigured: "dkg_threshold_misconfigured",
	ErrDkgKeyGenFailed:           "dkg_key_gen_failed",
	ErrNoEligibleMiner:           "no_eligible_miner",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// Error is the concrete error type raised by every package in this module.
type Error struct {
	Code       Code
	Message    string
	WrappedErr error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.WrappedErr == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.WrappedErr)
}

// Is reports whether target carries the same Code.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.WrappedErr
}

// New builds an Error. The last element of params may be an error, in
// which case it becomes WrappedErr and the message is formatted against
// the remaining params with fmt.Sprintf.
func New(code Code, message string, params ...interface{}) *Error {
	var wrapped error

	if len(params) > 0 {
		if err, ok := params[len(params)-1].(error); ok {
			wrapped = err
			params = params[:len(params)-1]
		}
	}

	if len(params) > 0 {
		message = fmt.Sprintf(message, params...)
	}

	return &Error{Code: code, Message: message, WrappedErr: wrapped}
}

// Is delegates to the standard library, kept here so callers only ever
// need to import this package.
func Is(err, target error) bool { return errors.Is(err, target) }

// As delegates to the standard library.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// CodeOf extracts the Code of err if it is (or wraps) an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}
