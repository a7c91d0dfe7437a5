package events

import (
	"context"
	"log/slog"

	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	"github.com/SscSPs/wallet_ledger/internal/core/ports"
)

// LogPublisher writes ledger events to the logger. It is used when no broker
// is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// Ensure LogPublisher implements ports.EventPublisher
var _ ports.EventPublisher = (*LogPublisher)(nil)

// NewLogPublisher creates a LogPublisher. A nil logger means slog.Default().
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	p.logger.DebugContext(ctx, "Ledger event",
		slog.String("event_id", event.EventID),
		slog.String("type", string(event.Type)),
		slog.String("account_id", event.AccountID),
		slog.String("amount", event.Amount.String()),
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
