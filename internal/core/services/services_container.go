package services

import (
	"github.com/SscSPs/wallet_ledger/internal/core/ports"
	portsrepo "github.com/SscSPs/wallet_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/wallet_ledger/internal/core/ports/services"
	"github.com/SscSPs/wallet_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, cache ports.BalanceCache, events ports.EventPublisher) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.User = NewUserService(repos.UserRepo)
	container.Wallet = NewLedgerService(
		repos.LedgerStore,
		WithOwnerDirectory(repos.UserRepo),
		WithBalanceCache(cache),
		WithEventPublisher(events),
		WithRetryPolicy(RetryPolicy{
			MaxAttempts:     cfg.LedgerMaxAttempts,
			InitialInterval: cfg.LedgerRetryInitialInterval,
			MaxInterval:     cfg.LedgerRetryMaxInterval,
		}),
	)
	container.Reconciliation = NewReconciliationService(
		repos.LedgerStore,
		WithReconcileConcurrency(cfg.ReconcileConcurrency),
		WithRecheckDelay(cfg.ReconcileRecheck),
	)

	return container
}
