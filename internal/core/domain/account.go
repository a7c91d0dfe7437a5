package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a wallet's balance-bearing record.
// Balance and Version only change through a conditional commit in the store.
type Account struct {
	AccountID string          `json:"accountID"` // Primary Key (UUID)
	OwnerID   string          `json:"ownerID"`   // FK -> users.user_id, immutable
	Balance   decimal.Decimal `json:"balance"`   // Never negative
	Version   int64           `json:"version"`   // +1 on every committed mutation
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CanCover reports whether the account holds at least amount.
func (a Account) CanCover(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
