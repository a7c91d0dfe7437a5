package services

import (
	"context"
	"time"

	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	"github.com/SscSPs/wallet_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// WalletReaderSvc defines read operations on wallets.
type WalletReaderSvc interface {
	// GetBalance returns the current balance, served from cache when possible.
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)

	// GetHistoricalBalance sums the account's records strictly before asOf.
	GetHistoricalBalance(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error)

	// ListTransactions returns a page of the account's records, newest first.
	ListTransactions(ctx context.Context, accountID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error)
}

// WalletWriterSvc defines balance-changing operations on wallets.
type WalletWriterSvc interface {
	// CreateWallet opens an empty wallet for ownerID.
	CreateWallet(ctx context.Context, ownerID string) (*domain.Account, error)

	Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.TransactionSummary, error)

	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.TransactionSummary, error)

	// Transfer moves amount from sourceID to destinationID. A failure after the
	// debit committed is reported as *apperrors.TransferIncompleteError.
	Transfer(ctx context.Context, sourceID string, destinationID string, amount decimal.Decimal) (*domain.TransactionSummary, error)
}

// WalletSvcFacade combines all wallet-related service interfaces
// This is a facade for clients that need access to all operations
type WalletSvcFacade interface {
	WalletReaderSvc
	WalletWriterSvc
}
