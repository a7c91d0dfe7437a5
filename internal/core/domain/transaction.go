package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a balance change.
type TransactionKind string

const (
	Deposit        TransactionKind = "DEPOSIT"
	Withdrawal     TransactionKind = "WITHDRAWAL"
	TransferDebit  TransactionKind = "TRANSFER_DEBIT"
	TransferCredit TransactionKind = "TRANSFER_CREDIT"
)

// Sign returns +1 for kinds that add to a balance and -1 for kinds that subtract.
func (k TransactionKind) Sign() int {
	switch k {
	case Withdrawal, TransferDebit:
		return -1
	default:
		return 1
	}
}

// IsValid reports whether k is one of the known kinds.
func (k TransactionKind) IsValid() bool {
	switch k {
	case Deposit, Withdrawal, TransferDebit, TransferCredit:
		return true
	}
	return false
}

// TransactionRecord is an immutable signed delta against one account.
type TransactionRecord struct {
	TransactionID string          `json:"transactionID"` // Primary Key (UUID)
	AccountID     string          `json:"accountID"`     // FK -> accounts.account_id
	Kind          TransactionKind `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`               // Signed, never zero
	TransferID    string          `json:"transferID,omitempty"` // Shared by both legs of a transfer and any compensation
	Timestamp     time.Time       `json:"timestamp"`
	Sequence      int64           `json:"sequence"` // Store-assigned, breaks timestamp ties
}

// NewTransactionRecord builds a record for kind with the sign applied to the
// unsigned magnitude. The store assigns Timestamp and Sequence on append.
func NewTransactionRecord(id, accountID string, kind TransactionKind, magnitude decimal.Decimal, transferID string) TransactionRecord {
	amount := magnitude.Abs()
	if kind.Sign() < 0 {
		amount = amount.Neg()
	}
	return TransactionRecord{
		TransactionID: id,
		AccountID:     accountID,
		Kind:          kind,
		Amount:        amount,
		TransferID:    transferID,
	}
}

// Validate checks the record is well formed before it is appended.
func (t TransactionRecord) Validate() error {
	if t.TransactionID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	if t.AccountID == "" {
		return fmt.Errorf("account ID is required")
	}
	if !t.Kind.IsValid() {
		return fmt.Errorf("unknown transaction kind %q", t.Kind)
	}
	if t.Amount.IsZero() {
		return fmt.Errorf("amount must be non-zero")
	}
	if t.Amount.Sign() != t.Kind.Sign() {
		return fmt.Errorf("amount %s has the wrong sign for %s", t.Amount, t.Kind)
	}
	return nil
}
