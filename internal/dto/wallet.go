package dto

import (
	"time"

	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateWalletRequest defines the data needed to open a wallet.
type CreateWalletRequest struct {
	UserID string `json:"userID" binding:"required,uuid"`
}

// WalletTransactionRequest is the body of a deposit or withdrawal.
// Amount is validated by the ledger, which reports non-positive values as invalid.
type WalletTransactionRequest struct {
	WalletID string          `json:"walletID" binding:"required,uuid"`
	Amount   decimal.Decimal `json:"amount"`
}

// WalletTransferRequest is the body of a transfer between two wallets.
type WalletTransferRequest struct {
	FromWalletID string          `json:"fromWalletID" binding:"required,uuid"`
	ToWalletID   string          `json:"toWalletID" binding:"required,uuid"`
	Amount       decimal.Decimal `json:"amount"`
}

// HistoricalBalanceParams defines query parameters for a point-in-time balance.
type HistoricalBalanceParams struct {
	Timestamp time.Time `form:"timestamp" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
}

// WalletResponse defines the data returned for a wallet.
type WalletResponse struct {
	WalletID    string          `json:"walletID"`
	UserID      string          `json:"userID"`
	Balance     decimal.Decimal `json:"balance"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// BalanceResponse defines the data returned for a balance query.
type BalanceResponse struct {
	WalletID string          `json:"walletID"`
	Balance  decimal.Decimal `json:"balance"`
	AsOf     *time.Time      `json:"asOf,omitempty"`
}

// WalletTransactionResponse is returned by every balance-changing call.
type WalletTransactionResponse struct {
	WalletResponse
	TransferID   string                `json:"transferID,omitempty"`
	Counterpart  *WalletResponse       `json:"counterpart,omitempty"`
	Transactions []TransactionResponse `json:"transactions"`
}

// TransferIncompleteResponse tells operators which transfer needs reconciling.
type TransferIncompleteResponse struct {
	Error        string `json:"error"`
	TransferID   string `json:"transferID"`
	FromWalletID string `json:"fromWalletID"`
	ToWalletID   string `json:"toWalletID"`
	State        string `json:"state"`
}

// ToWalletResponse converts a domain.Account to WalletResponse DTO
func ToWalletResponse(acc *domain.Account) WalletResponse {
	return WalletResponse{
		WalletID:    acc.AccountID,
		UserID:      acc.OwnerID,
		Balance:     acc.Balance,
		Version:     acc.Version,
		CreatedAt:   acc.CreatedAt,
		LastUpdated: acc.UpdatedAt,
	}
}

// ToWalletTransactionResponse converts a domain.TransactionSummary to its response DTO
func ToWalletTransactionResponse(summary *domain.TransactionSummary) WalletTransactionResponse {
	resp := WalletTransactionResponse{
		WalletResponse: ToWalletResponse(&summary.Account),
		TransferID:     summary.TransferID,
		Transactions:   ToTransactionResponses(summary.Records),
	}
	if summary.Counterpart != nil {
		counterpart := ToWalletResponse(summary.Counterpart)
		resp.Counterpart = &counterpart
	}
	return resp
}
