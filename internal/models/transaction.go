package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the transactions table row. Rows are never updated.
type Transaction struct {
	Seq           int64           `db:"seq"`
	TransactionID string          `db:"transaction_id"`
	AccountID     string          `db:"account_id"`
	Kind          string          `db:"kind"`
	Amount        decimal.Decimal `db:"amount"`
	TransferID    sql.NullString  `db:"transfer_id"`
	CreatedAt     time.Time       `db:"created_at"`
}
