package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the accounts table row.
type Account struct {
	AccountID string          `db:"account_id"`
	OwnerID   string          `db:"owner_id"`
	Balance   decimal.Decimal `db:"balance"`
	Version   int64           `db:"version"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}
