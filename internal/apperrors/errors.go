package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// Ledger errors. The not-found and validation flavours wrap the generic
// sentinels above so callers can match at either level with errors.Is.
var (
	ErrAccountNotFound   = fmt.Errorf("account not found: %w", ErrNotFound)
	ErrOwnerNotFound     = fmt.Errorf("owner not found: %w", ErrNotFound)
	ErrInvalidAmount     = fmt.Errorf("amount must be strictly positive: %w", ErrValidation)
	ErrSameAccount       = fmt.Errorf("source and destination account must differ: %w", ErrValidation)
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrVersionConflict is returned by the store when a conditional commit
	// loses a race. The ledger service absorbs it and never returns it.
	ErrVersionConflict = errors.New("account version conflict")

	// ErrConcurrencyExhausted means the retry budget ran out under contention.
	// Nothing was committed; the caller may retry.
	ErrConcurrencyExhausted = errors.New("concurrency retries exhausted")

	// ErrTransferIncomplete marks a transfer whose debit committed but whose
	// credit did not. See TransferIncompleteError for the reconciliation details.
	ErrTransferIncomplete = errors.New("transfer incomplete")
)

// AppError carries an HTTP status alongside an infrastructure failure.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError wrapping err.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Compensation states reported on a TransferIncompleteError.
const (
	CompensationSucceeded = "COMPENSATED"
	CompensationFailed    = "COMPENSATION_FAILED"
)

// TransferIncompleteError reports a transfer whose credit leg failed after the
// debit was committed. State tells whether the source was credited back.
type TransferIncompleteError struct {
	TransferID    string
	SourceID      string
	DestinationID string
	State         string
	CreditErr     error
	CompensateErr error
}

func (e *TransferIncompleteError) Error() string {
	msg := fmt.Sprintf("transfer %s from %s to %s incomplete (%s): credit failed: %v",
		e.TransferID, e.SourceID, e.DestinationID, e.State, e.CreditErr)
	if e.CompensateErr != nil {
		msg += fmt.Sprintf("; compensation failed: %v", e.CompensateErr)
	}
	return msg
}

// Is lets errors.Is(err, ErrTransferIncomplete) match.
func (e *TransferIncompleteError) Is(target error) bool {
	return target == ErrTransferIncomplete
}
