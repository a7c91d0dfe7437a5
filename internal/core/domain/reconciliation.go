package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceMismatch is an account whose stored balance disagrees with its log.
type BalanceMismatch struct {
	AccountID     string          `json:"accountID"`
	Version       int64           `json:"version"`
	StoredBalance decimal.Decimal `json:"storedBalance"`
	LedgerBalance decimal.Decimal `json:"ledgerBalance"`
}

// ReconciliationReport summarises one audit run over all accounts.
type ReconciliationReport struct {
	StartedAt       time.Time         `json:"startedAt"`
	FinishedAt      time.Time         `json:"finishedAt"`
	AccountsChecked int               `json:"accountsChecked"`
	Mismatches      []BalanceMismatch `json:"mismatches"`
}

// Consistent reports whether the run found no mismatches.
func (r ReconciliationReport) Consistent() bool {
	return len(r.Mismatches) == 0
}
