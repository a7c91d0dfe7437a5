package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEventType names what happened to the ledger.
type LedgerEventType string

const (
	EventDeposited          LedgerEventType = "wallet.deposited"
	EventWithdrawn          LedgerEventType = "wallet.withdrawn"
	EventTransferred        LedgerEventType = "wallet.transferred"
	EventTransferIncomplete LedgerEventType = "wallet.transfer_incomplete"
)

// LedgerEvent is published after a ledger operation has been committed.
type LedgerEvent struct {
	EventID       string              `json:"eventID"`
	Type          LedgerEventType     `json:"type"`
	AccountID     string              `json:"accountID"`
	CounterpartID string              `json:"counterpartID,omitempty"`
	TransferID    string              `json:"transferID,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	State         string              `json:"state,omitempty"`
	Records       []TransactionRecord `json:"records"`
	OccurredAt    time.Time           `json:"occurredAt"`
}
