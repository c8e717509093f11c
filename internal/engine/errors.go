package engine

import "errors"

// Typed failure taxonomy for the trading engine. Callers branch on these with
// errors.Is; nothing in the engine retries on its own.
var (
	// ErrValidation marks a malformed request (bad id shape, non-positive
	// amount, unknown side/action). Never worth retrying.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown contract, wallet or position.
	ErrNotFound = errors.New("not found")

	// ErrStateConflict marks a trade against a contract that is not active:
	// expired, resolving, or resolved.
	ErrStateConflict = errors.New("state conflict")

	// ErrAlreadyResolved marks a resolve call on a finished contract.
	ErrAlreadyResolved = errors.New("contract already resolved")

	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrTradeTooSmall marks a trade whose net effect would be zero shares
	// (buy) or a non-positive credit (sell) once the fee is applied.
	ErrTradeTooSmall = errors.New("trade too small")

	// ErrUnauthorized marks a resolution attempt by a non-admin actor.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPersistence wraps a backing-store failure during commit. The
	// surrounding transaction has been rolled back; no ledger was touched.
	ErrPersistence = errors.New("persistence failure")
)
