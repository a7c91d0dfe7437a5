package services

import (
	"context"

	"github.com/SscSPs/wallet_ledger/internal/core/domain"
)

// ReconciliationSvc audits stored balances against the transaction log.
type ReconciliationSvc interface {
	Reconcile(ctx context.Context) (*domain.ReconciliationReport, error)
}
