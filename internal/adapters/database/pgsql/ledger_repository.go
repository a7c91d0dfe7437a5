package pgsql

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/SscSPs/wallet_ledger/internal/apperrors"
	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/wallet_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/wallet_ledger/internal/models"
	"github.com/SscSPs/wallet_ledger/internal/utils/mapping"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// replayPageSize is how many rows ListTransactions pulls per round trip.
const replayPageSize = 500

const accountColumns = `account_id, owner_id, balance, version, created_at, updated_at`

const transactionColumns = `seq, transaction_id, account_id, kind, amount, transfer_id, created_at`

type PgxLedgerRepository struct {
	BaseRepository
}

func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerStore {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxLedgerRepository implements portsrepo.LedgerStore
var _ portsrepo.LedgerStore = (*PgxLedgerRepository)(nil)

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var m models.Account
	if err := row.Scan(&m.AccountID, &m.OwnerID, &m.Balance, &m.Version, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	acc := mapping.ToDomainAccount(m)
	return &acc, nil
}

func scanTransaction(row pgx.Row) (domain.TransactionRecord, error) {
	var m models.Transaction
	if err := row.Scan(&m.Seq, &m.TransactionID, &m.AccountID, &m.Kind, &m.Amount, &m.TransferID, &m.CreatedAt); err != nil {
		return domain.TransactionRecord{}, err
	}
	return mapping.ToDomainTransaction(m), nil
}

// --- accounts ---

func (r *PgxLedgerRepository) CreateAccount(ctx context.Context, ownerID string) (*domain.Account, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO accounts (account_id, owner_id, balance, version, created_at, updated_at)
		VALUES ($1, $2, 0, 0, $3, $3)
		RETURNING ` + accountColumns + `;`

	acc, err := scanAccount(r.Pool.QueryRow(ctx, query, uuid.NewString(), ownerID, now))
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrOwnerNotFound, ownerID)
		}
		return nil, fmt.Errorf("failed to create account for owner %s: %w", ownerID, err)
	}
	return acc, nil
}

func (r *PgxLedgerRepository) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`

	acc, err := scanAccount(r.Pool.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
		}
		return nil, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}
	return acc, nil
}

func (r *PgxLedgerRepository) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY account_id LIMIT $1 OFFSET $2;`

	rows, err := r.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

// CommitAccountUpdate is a single conditional UPDATE; the version predicate is
// the compare and the SET is the swap.
func (r *PgxLedgerRepository) CommitAccountUpdate(ctx context.Context, accountID string, expectedVersion int64, newBalance decimal.Decimal) (*domain.Account, error) {
	query := `
		UPDATE accounts
		SET balance = $3, version = version + 1, updated_at = GREATEST(updated_at, $4)
		WHERE account_id = $1 AND version = $2
		RETURNING ` + accountColumns + `;`

	acc, err := scanAccount(r.Pool.QueryRow(ctx, query, accountID, expectedVersion, newBalance, time.Now().UTC()))
	if err == nil {
		return acc, nil
	}
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Either the account is gone or someone committed first.
		if _, getErr := r.GetAccount(ctx, accountID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: account %s moved past version %d", apperrors.ErrVersionConflict, accountID, expectedVersion)
	default:
		return nil, commitError(accountID, err)
	}
}

// CommitLoggedUpdate locks the account row, checks the version, then writes
// the balance and the record in one transaction. The record's created_at is
// the commit's updated_at.
func (r *PgxLedgerRepository) CommitLoggedUpdate(ctx context.Context, expectedVersion int64, newBalance decimal.Decimal, record domain.TransactionRecord) (*domain.Account, *domain.TransactionRecord, error) {
	if err := record.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	m := mapping.ToModelTransaction(record)

	var acc *domain.Account
	var saved domain.TransactionRecord
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		current, err := lockAccount(ctx, tx, m.AccountID)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return fmt.Errorf("%w: account %s at version %d, expected %d",
				apperrors.ErrVersionConflict, m.AccountID, current.Version, expectedVersion)
		}
		if delta := newBalance.Sub(current.Balance); !delta.Equal(m.Amount) {
			return fmt.Errorf("%w: record amount %s does not match balance change %s",
				apperrors.ErrValidation, m.Amount, delta)
		}

		update := `
			UPDATE accounts
			SET balance = $2, version = version + 1,
			    updated_at = GREATEST(updated_at, $3, (SELECT MAX(created_at) FROM transactions WHERE account_id = $1))
			WHERE account_id = $1
			RETURNING ` + accountColumns + `;`
		acc, err = scanAccount(tx.QueryRow(ctx, update, m.AccountID, newBalance, time.Now().UTC()))
		if err != nil {
			return commitError(m.AccountID, err)
		}

		insert := `
			INSERT INTO transactions (transaction_id, account_id, kind, amount, transfer_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING ` + transactionColumns + `;`
		saved, err = scanTransaction(tx.QueryRow(ctx, insert,
			m.TransactionID, m.AccountID, m.Kind, m.Amount, m.TransferID, acc.UpdatedAt))
		if err != nil {
			return appendError(m, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return acc, &saved, nil
}

// lockAccount reads the account row FOR UPDATE. Commits and appends for one
// account queue on this lock.
func lockAccount(ctx context.Context, tx pgx.Tx, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1 FOR UPDATE;`
	acc, err := scanAccount(tx.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
		}
		return nil, fmt.Errorf("failed to lock account %s: %w", accountID, err)
	}
	return acc, nil
}

func commitError(accountID string, err error) error {
	if pgErrorCode(err) == pgCheckViolation {
		return fmt.Errorf("%w: account %s would go negative", apperrors.ErrInsufficientFunds, accountID)
	}
	return fmt.Errorf("failed to commit account %s: %w", accountID, err)
}

func appendError(m models.Transaction, err error) error {
	switch pgErrorCode(err) {
	case pgUniqueViolation:
		return fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, m.TransactionID)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, m.AccountID)
	}
	return fmt.Errorf("failed to append transaction %s: %w", m.TransactionID, err)
}

// --- transaction log ---

// AppendTransaction holds the account row lock so the timestamp clamp sees the
// latest row and no logged commit interleaves.
func (r *PgxLedgerRepository) AppendTransaction(ctx context.Context, record domain.TransactionRecord) (*domain.TransactionRecord, error) {
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	m := mapping.ToModelTransaction(record)

	var saved domain.TransactionRecord
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockAccount(ctx, tx, m.AccountID); err != nil {
			return err
		}

		query := `
			INSERT INTO transactions (transaction_id, account_id, kind, amount, transfer_id, created_at)
			SELECT $1::varchar, $2::varchar, $3::varchar, $4::numeric, $5::varchar, GREATEST($6::timestamptz, COALESCE(MAX(created_at), $6::timestamptz))
			FROM transactions WHERE account_id = $2
			RETURNING ` + transactionColumns + `;`

		var err error
		saved, err = scanTransaction(tx.QueryRow(ctx, query,
			m.TransactionID, m.AccountID, m.Kind, m.Amount, m.TransferID, time.Now().UTC()))
		if err != nil {
			return appendError(m, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// ListTransactions walks the log in keyset pages. Each range over the
// returned sequence issues fresh queries.
func (r *PgxLedgerRepository) ListTransactions(ctx context.Context, accountID string, before time.Time) iter.Seq2[domain.TransactionRecord, error] {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1 AND created_at < $2 AND (created_at, seq) > ($3, $4)
		ORDER BY created_at, seq
		LIMIT $5;`

	return func(yield func(domain.TransactionRecord, error) bool) {
		if _, err := r.GetAccount(ctx, accountID); err != nil {
			yield(domain.TransactionRecord{}, err)
			return
		}

		afterTS, afterSeq := time.Time{}, int64(0)
		for {
			page, err := r.queryTransactions(ctx, query, accountID, before, afterTS, afterSeq, replayPageSize)
			if err != nil {
				yield(domain.TransactionRecord{}, err)
				return
			}
			for _, rec := range page {
				if !yield(rec, nil) {
					return
				}
			}
			if len(page) < replayPageSize {
				return
			}
			last := page[len(page)-1]
			afterTS, afterSeq = last.Timestamp, last.Sequence
		}
	}
}

func (r *PgxLedgerRepository) ListTransactionsPage(ctx context.Context, accountID string, limit int, cursor *portsrepo.TransactionCursor) ([]domain.TransactionRecord, error) {
	if _, err := r.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	if cursor == nil {
		query := `
			SELECT ` + transactionColumns + `
			FROM transactions
			WHERE account_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2;`
		return r.queryTransactions(ctx, query, accountID, limit)
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1 AND (created_at, seq) < ($2, $3)
		ORDER BY created_at DESC, seq DESC
		LIMIT $4;`
	return r.queryTransactions(ctx, query, accountID, cursor.Timestamp, cursor.Sequence, limit)
}

func (r *PgxLedgerRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.TransactionRecord, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	records := []domain.TransactionRecord{}
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return records, nil
}
