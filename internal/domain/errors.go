package domain

import "errors"

var (
	// ErrChainUnavailable is returned when the chain boundary cannot be reached
	// after the reader's retry budget is exhausted, or on a permanent RPC failure
	ErrChainUnavailable = errors.New("chain unavailable")

	// ErrTokenNotOnChain is returned when the contract reports the token as
	// never minted (ownerOf revert), as opposed to an RPC failure
	ErrTokenNotOnChain = errors.New("token not found on chain")

	// ErrMirrorConflict is returned by a conditional write when the stored
	// sync version does not match the expected one
	ErrMirrorConflict = errors.New("mirror record version conflict")

	// ErrMirrorUnavailable is returned when the mirror store is unreachable
	ErrMirrorUnavailable = errors.New("mirror store unavailable")

	// ErrRecordNotFound is returned when a mirror record does not exist
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvariantViolation is returned when stored data breaks a schema
	// invariant, e.g. two active listings on one record
	ErrInvariantViolation = errors.New("invariant violation")
)
