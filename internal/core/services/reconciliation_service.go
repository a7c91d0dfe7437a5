package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/wallet_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/wallet_ledger/internal/core/ports/services"
	"github.com/SscSPs/wallet_ledger/internal/utils/accounting"
	"golang.org/x/sync/errgroup"
)

// endOfTime bounds a replay of the whole log.
var endOfTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

const reconcilePageSize = 200

type reconciliationService struct {
	BaseService
	store       portsrepo.LedgerStore
	concurrency int
	recheck     time.Duration
}

// ReconciliationOption is a functional option for configuring the reconciler
type ReconciliationOption func(*reconciliationService)

// WithReconcileConcurrency caps how many accounts are audited at once.
func WithReconcileConcurrency(n int) ReconciliationOption {
	return func(s *reconciliationService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRecheckDelay sets how long to wait before confirming a mismatch.
// A writer using the bare CommitAccountUpdate and AppendTransaction
// primitives is briefly unbalanced between the two, so a mismatch is only
// reported if it survives the second look.
func WithRecheckDelay(d time.Duration) ReconciliationOption {
	return func(s *reconciliationService) {
		s.recheck = d
	}
}

// NewReconciliationService creates the balance-versus-log auditor.
func NewReconciliationService(store portsrepo.LedgerStore, options ...ReconciliationOption) portssvc.ReconciliationSvc {
	svc := &reconciliationService{
		store:       store,
		concurrency: 8,
		recheck:     250 * time.Millisecond,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure reconciliationService implements the ReconciliationSvc interface
var _ portssvc.ReconciliationSvc = (*reconciliationService)(nil)

func (s *reconciliationService) Reconcile(ctx context.Context) (*domain.ReconciliationReport, error) {
	report := &domain.ReconciliationReport{StartedAt: time.Now().UTC(), Mismatches: []domain.BalanceMismatch{}}
	var mu sync.Mutex

	for offset := 0; ; offset += reconcilePageSize {
		accounts, err := s.store.ListAccounts(ctx, reconcilePageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts for reconciliation: %w", err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for _, acc := range accounts {
			g.Go(func() error {
				mismatch, err := s.audit(gctx, acc)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				report.AccountsChecked++
				if mismatch != nil {
					report.Mismatches = append(report.Mismatches, *mismatch)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if len(accounts) < reconcilePageSize {
			break
		}
	}

	report.FinishedAt = time.Now().UTC()
	for _, m := range report.Mismatches {
		s.LogError(ctx, fmt.Errorf("stored balance %s, ledger sum %s", m.StoredBalance, m.LedgerBalance),
			"Ledger mismatch", slog.String("account_id", m.AccountID), slog.Int64("version", m.Version))
	}
	s.LogInfo(ctx, "Reconciliation finished",
		slog.Int("accounts_checked", report.AccountsChecked),
		slog.Int("mismatches", len(report.Mismatches)),
		slog.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

// audit compares one account with its log. A disagreement is re-read after
// the recheck delay and only reported if the version did not move meanwhile.
func (s *reconciliationService) audit(ctx context.Context, acc domain.Account) (*domain.BalanceMismatch, error) {
	sum, _, err := accounting.SumRecords(s.store.ListTransactions(ctx, acc.AccountID, endOfTime))
	if err != nil {
		return nil, fmt.Errorf("failed to replay account %s: %w", acc.AccountID, err)
	}
	if sum.Equal(acc.Balance) {
		return nil, nil
	}

	if err := sleep(ctx, s.recheck); err != nil {
		return nil, err
	}
	fresh, err := s.store.GetAccount(ctx, acc.AccountID)
	if err != nil {
		return nil, err
	}
	sum, _, err = accounting.SumRecords(s.store.ListTransactions(ctx, acc.AccountID, endOfTime))
	if err != nil {
		return nil, fmt.Errorf("failed to replay account %s: %w", acc.AccountID, err)
	}
	if sum.Equal(fresh.Balance) {
		return nil, nil
	}
	if fresh.Version != acc.Version {
		s.LogDebug(ctx, "Account moved during audit, deferring to next run", slog.String("account_id", acc.AccountID))
		return nil, nil
	}
	return &domain.BalanceMismatch{
		AccountID:     fresh.AccountID,
		Version:       fresh.Version,
		StoredBalance: fresh.Balance,
		LedgerBalance: sum,
	}, nil
}
