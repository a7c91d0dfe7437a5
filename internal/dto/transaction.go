package dto

import (
	"time"

	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransactionResponse defines the data returned for a transaction record.
type TransactionResponse struct {
	TransactionID string                 `json:"transactionID"`
	WalletID      string                 `json:"walletID"`
	Kind          domain.TransactionKind `json:"kind"`
	Amount        decimal.Decimal        `json:"amount"`
	TransferID    string                 `json:"transferID,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// ListTransactionsParams defines query parameters for listing a wallet's transactions.
type ListTransactionsParams struct {
	Limit     int    `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken string `form:"nextToken"`
}

// ListTransactionsResponse wraps a page of transactions, newest first.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// ToTransactionResponse converts a domain.TransactionRecord to its response DTO
func ToTransactionResponse(rec domain.TransactionRecord) TransactionResponse {
	return TransactionResponse{
		TransactionID: rec.TransactionID,
		WalletID:      rec.AccountID,
		Kind:          rec.Kind,
		Amount:        rec.Amount,
		TransferID:    rec.TransferID,
		Timestamp:     rec.Timestamp,
	}
}

// ToTransactionResponses converts a slice of records, preserving order.
func ToTransactionResponses(recs []domain.TransactionRecord) []TransactionResponse {
	res := make([]TransactionResponse, len(recs))
	for i, rec := range recs {
		res[i] = ToTransactionResponse(rec)
	}
	return res
}
