package repositories

import (
	"context"
	"iter"
	"time"

	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AccountReader defines read operations for account data.
type AccountReader interface {
	// GetAccount returns the authoritative account row, or apperrors.ErrAccountNotFound.
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)

	// ListAccounts returns accounts ordered by ID, for audits.
	ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error)
}

// AccountWriter defines write operations for account data.
type AccountWriter interface {
	// CreateAccount stores a new account for ownerID with balance 0 and version 0.
	// Returns apperrors.ErrOwnerNotFound when the owner is unknown.
	CreateAccount(ctx context.Context, ownerID string) (*domain.Account, error)

	// CommitAccountUpdate sets balance to newBalance and version to expectedVersion+1
	// only if the stored version still equals expectedVersion. The check and the set
	// are indivisible. Returns apperrors.ErrVersionConflict without mutating otherwise.
	CommitAccountUpdate(ctx context.Context, accountID string, expectedVersion int64, newBalance decimal.Decimal) (*domain.Account, error)

	// CommitLoggedUpdate is CommitAccountUpdate for record.AccountID that also
	// appends record in the same indivisible step. record.Amount must equal
	// newBalance minus the stored balance. The record is stamped with the
	// commit time, so an account's log is ordered exactly as its commits.
	CommitLoggedUpdate(ctx context.Context, expectedVersion int64, newBalance decimal.Decimal, record domain.TransactionRecord) (*domain.Account, *domain.TransactionRecord, error)
}

// TransactionCursor marks a position in an account's log for paging.
type TransactionCursor struct {
	Timestamp time.Time
	Sequence  int64
}

// TransactionLogWriter appends immutable records.
type TransactionLogWriter interface {
	// AppendTransaction stores record and returns it with Timestamp and Sequence assigned.
	// Timestamps are clamped so an account's log never goes backwards.
	AppendTransaction(ctx context.Context, record domain.TransactionRecord) (*domain.TransactionRecord, error)
}

// TransactionLogReader reads an account's log.
type TransactionLogReader interface {
	// ListTransactions yields records with Timestamp < before in ascending order.
	// The sequence is lazy and can be ranged over more than once.
	ListTransactions(ctx context.Context, accountID string, before time.Time) iter.Seq2[domain.TransactionRecord, error]

	// ListTransactionsPage returns up to limit records newest first, strictly
	// older than cursor when one is given.
	ListTransactionsPage(ctx context.Context, accountID string, limit int, cursor *TransactionCursor) ([]domain.TransactionRecord, error)
}

// LedgerStore combines all ledger storage interfaces.
type LedgerStore interface {
	AccountReader
	AccountWriter
	TransactionLogWriter
	TransactionLogReader
}
