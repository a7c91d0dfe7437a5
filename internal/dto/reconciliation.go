package dto

import "github.com/SscSPs/wallet_ledger/internal/core/domain"

// ReconciliationResponse is returned by the on-demand audit endpoint.
type ReconciliationResponse struct {
	Consistent bool `json:"consistent"`
	domain.ReconciliationReport
}
