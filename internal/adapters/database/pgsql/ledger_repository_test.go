package pgsql_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/SscSPs/wallet_ledger/internal/adapters/database/pgsql"
	"github.com/SscSPs/wallet_ledger/internal/apperrors"
	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/wallet_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/wallet_ledger/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Set LEDGER_TEST_PGSQL_URL to a disposable database to run these tests.
const testDBEnv = "LEDGER_TEST_PGSQL_URL"

type PgxLedgerRepositoryTestSuite struct {
	suite.Suite
	ctx   context.Context
	pool  *pgxpool.Pool
	repos portsrepo.RepositoryProvider
	owner domain.User
}

func (suite *PgxLedgerRepositoryTestSuite) SetupSuite() {
	url := os.Getenv(testDBEnv)
	if url == "" {
		suite.T().Skipf("%s not set", testDBEnv)
	}
	suite.ctx = context.Background()
	suite.Require().NoError(pgsql.RunMigrations(url, slog.Default()))

	pool, err := database.NewPgxPool(suite.ctx, url, true)
	suite.Require().NoError(err)
	suite.pool = pool
	suite.repos = pgsql.NewRepositoryProvider(pool)
}

func (suite *PgxLedgerRepositoryTestSuite) TearDownSuite() {
	database.ClosePgxPool(suite.pool)
}

func (suite *PgxLedgerRepositoryTestSuite) SetupTest() {
	suite.owner = domain.User{
		UserID:    uuid.NewString(),
		Name:      "Integration",
		Email:     uuid.NewString() + "@example.com",
		CreatedAt: time.Now().UTC(),
	}
	suite.Require().NoError(suite.repos.UserRepo.SaveUser(suite.ctx, suite.owner))
}

func (suite *PgxLedgerRepositoryTestSuite) TestUsers() {
	found, err := suite.repos.UserRepo.FindUserByID(suite.ctx, suite.owner.UserID)
	suite.Require().NoError(err)
	suite.Equal(suite.owner.Email, found.Email)

	dup := suite.owner
	dup.UserID = uuid.NewString()
	suite.ErrorIs(suite.repos.UserRepo.SaveUser(suite.ctx, dup), apperrors.ErrDuplicate)

	_, err = suite.repos.UserRepo.FindUserByID(suite.ctx, uuid.NewString())
	suite.ErrorIs(err, apperrors.ErrNotFound)

	exists, err := suite.repos.UserRepo.OwnerExists(suite.ctx, suite.owner.UserID)
	suite.Require().NoError(err)
	suite.True(exists)
}

func (suite *PgxLedgerRepositoryTestSuite) TestCreateAccount_UnknownOwner() {
	_, err := suite.repos.LedgerStore.CreateAccount(suite.ctx, uuid.NewString())
	suite.ErrorIs(err, apperrors.ErrOwnerNotFound)
}

func (suite *PgxLedgerRepositoryTestSuite) TestCommitAccountUpdate() {
	store := suite.repos.LedgerStore
	acc, err := store.CreateAccount(suite.ctx, suite.owner.UserID)
	suite.Require().NoError(err)
	suite.Equal(int64(0), acc.Version)
	suite.True(acc.Balance.IsZero())

	updated, err := store.CommitAccountUpdate(suite.ctx, acc.AccountID, 0, decimal.RequireFromString("12.5"))
	suite.Require().NoError(err)
	suite.Equal(int64(1), updated.Version)
	suite.True(decimal.RequireFromString("12.5").Equal(updated.Balance))

	_, err = store.CommitAccountUpdate(suite.ctx, acc.AccountID, 0, decimal.NewFromInt(99))
	suite.ErrorIs(err, apperrors.ErrVersionConflict)

	_, err = store.CommitAccountUpdate(suite.ctx, uuid.NewString(), 0, decimal.NewFromInt(1))
	suite.ErrorIs(err, apperrors.ErrAccountNotFound)

	current, err := store.GetAccount(suite.ctx, acc.AccountID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), current.Version)
	suite.True(decimal.RequireFromString("12.5").Equal(current.Balance))
}

func (suite *PgxLedgerRepositoryTestSuite) TestCommitLoggedUpdate() {
	store := suite.repos.LedgerStore
	acc, err := store.CreateAccount(suite.ctx, suite.owner.UserID)
	suite.Require().NoError(err)

	updated, rec, err := store.CommitLoggedUpdate(suite.ctx, 0, decimal.NewFromInt(70),
		domain.NewTransactionRecord(uuid.NewString(), acc.AccountID, domain.Deposit, decimal.NewFromInt(70), ""))
	suite.Require().NoError(err)
	suite.Equal(int64(1), updated.Version)
	suite.True(updated.UpdatedAt.Equal(rec.Timestamp))

	_, _, err = store.CommitLoggedUpdate(suite.ctx, 0, decimal.NewFromInt(80),
		domain.NewTransactionRecord(uuid.NewString(), acc.AccountID, domain.Deposit, decimal.NewFromInt(10), ""))
	suite.ErrorIs(err, apperrors.ErrVersionConflict)

	_, _, err = store.CommitLoggedUpdate(suite.ctx, 1, decimal.NewFromInt(80),
		domain.NewTransactionRecord(uuid.NewString(), acc.AccountID, domain.Deposit, decimal.NewFromInt(3), ""))
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, _, err = store.CommitLoggedUpdate(suite.ctx, 1, decimal.NewFromInt(-5),
		domain.NewTransactionRecord(uuid.NewString(), acc.AccountID, domain.Withdrawal, decimal.NewFromInt(75), ""))
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)

	page, err := store.ListTransactionsPage(suite.ctx, acc.AccountID, 10, nil)
	suite.Require().NoError(err)
	suite.Require().Len(page, 1)
	suite.Equal(rec.TransactionID, page[0].TransactionID)
}

func (suite *PgxLedgerRepositoryTestSuite) TestTransactionLog() {
	store := suite.repos.LedgerStore
	acc, err := store.CreateAccount(suite.ctx, suite.owner.UserID)
	suite.Require().NoError(err)

	transferID := uuid.NewString()
	inputs := []domain.TransactionRecord{
		domain.NewTransactionRecord(uuid.NewString(), acc.AccountID, domain.Deposit, decimal.NewFromInt(100), ""),
		domain.NewTransactionRecord(uuid.NewString(), acc.AccountID, domain.Withdrawal, decimal.NewFromInt(30), ""),
		domain.NewTransactionRecord(uuid.NewString(), acc.AccountID, domain.TransferDebit, decimal.NewFromInt(20), transferID),
	}
	var saved []domain.TransactionRecord
	for _, in := range inputs {
		rec, err := store.AppendTransaction(suite.ctx, in)
		suite.Require().NoError(err)
		saved = append(saved, *rec)
	}
	for i := 1; i < len(saved); i++ {
		suite.False(saved[i].Timestamp.Before(saved[i-1].Timestamp))
		suite.Greater(saved[i].Sequence, saved[i-1].Sequence)
	}
	suite.Equal(transferID, saved[2].TransferID)

	_, err = store.AppendTransaction(suite.ctx, inputs[0])
	suite.ErrorIs(err, apperrors.ErrDuplicate)

	sum := decimal.Zero
	count := 0
	for rec, err := range store.ListTransactions(suite.ctx, acc.AccountID, time.Now().Add(time.Hour)) {
		suite.Require().NoError(err)
		sum = sum.Add(rec.Amount)
		count++
	}
	suite.Equal(3, count)
	suite.True(decimal.NewFromInt(50).Equal(sum))

	page, err := store.ListTransactionsPage(suite.ctx, acc.AccountID, 2, nil)
	suite.Require().NoError(err)
	suite.Require().Len(page, 2)
	suite.Equal(saved[2].TransactionID, page[0].TransactionID)
	suite.Equal(saved[1].TransactionID, page[1].TransactionID)

	rest, err := store.ListTransactionsPage(suite.ctx, acc.AccountID, 2, &portsrepo.TransactionCursor{
		Timestamp: page[1].Timestamp,
		Sequence:  page[1].Sequence,
	})
	suite.Require().NoError(err)
	suite.Require().Len(rest, 1)
	suite.Equal(saved[0].TransactionID, rest[0].TransactionID)
}

func TestPgxLedgerRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(PgxLedgerRepositoryTestSuite))
}
