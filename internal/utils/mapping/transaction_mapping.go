package mapping

import (
	"database/sql"

	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	"github.com/SscSPs/wallet_ledger/internal/models"
)

// ToModelTransaction converts a domain TransactionRecord to a model Transaction
func ToModelTransaction(d domain.TransactionRecord) models.Transaction {
	return models.Transaction{
		Seq:           d.Sequence,
		TransactionID: d.TransactionID,
		AccountID:     d.AccountID,
		Kind:          string(d.Kind),
		Amount:        d.Amount,
		TransferID:    sql.NullString{String: d.TransferID, Valid: d.TransferID != ""},
		CreatedAt:     d.Timestamp,
	}
}

// ToDomainTransaction converts a model Transaction to a domain TransactionRecord
func ToDomainTransaction(m models.Transaction) domain.TransactionRecord {
	return domain.TransactionRecord{
		TransactionID: m.TransactionID,
		AccountID:     m.AccountID,
		Kind:          domain.TransactionKind(m.Kind),
		Amount:        m.Amount,
		TransferID:    m.TransferID.String,
		Timestamp:     m.CreatedAt,
		Sequence:      m.Seq,
	}
}
