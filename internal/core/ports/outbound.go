package ports

import (
	"context"

	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BalanceCache is a best-effort read accelerator keyed by account ID.
// It never takes part in fund checks.
type BalanceCache interface {
	Get(accountID string) (decimal.Decimal, bool)

	// Put stores balance as seen at versionSeen. Puts older than the last
	// invalidation for the account are dropped.
	Put(accountID string, balance decimal.Decimal, versionSeen int64)

	// Invalidate removes the entry and remembers committedVersion so a slower
	// reader cannot repopulate a superseded balance.
	Invalidate(accountID string, committedVersion int64)
}

// EventPublisher ships committed ledger events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
	Close() error
}
