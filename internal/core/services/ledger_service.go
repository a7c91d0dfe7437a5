package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/wallet_ledger/internal/apperrors"
	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	"github.com/SscSPs/wallet_ledger/internal/core/ports"
	portsrepo "github.com/SscSPs/wallet_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/wallet_ledger/internal/core/ports/services"
	"github.com/SscSPs/wallet_ledger/internal/dto"
	"github.com/SscSPs/wallet_ledger/internal/utils/accounting"
	"github.com/SscSPs/wallet_ledger/internal/utils/pagination"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RetryPolicy bounds the optimistic commit loop.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used unless WithRetryPolicy overrides it.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     10,
	InitialInterval: 5 * time.Millisecond,
	MaxInterval:     200 * time.Millisecond,
}

func (p RetryPolicy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Reset()
	return b
}

// ledgerService implements WalletSvcFacade. Every balance change goes through
// commitDelta: read, validate against the fresh read, conditional commit, and
// retry on a version conflict.
type ledgerService struct {
	BaseService
	store  portsrepo.LedgerStore
	owners portsrepo.OwnerReader
	cache  ports.BalanceCache
	events ports.EventPublisher
	retry  RetryPolicy
}

// LedgerOption is a functional option for configuring the ledger service
type LedgerOption func(*ledgerService)

// WithOwnerDirectory sets the collaborator consulted when a wallet is created.
func WithOwnerDirectory(owners portsrepo.OwnerReader) LedgerOption {
	return func(s *ledgerService) {
		s.owners = owners
	}
}

// WithBalanceCache adds a read cache for GetBalance.
func WithBalanceCache(cache ports.BalanceCache) LedgerOption {
	return func(s *ledgerService) {
		s.cache = cache
	}
}

// WithEventPublisher sets where committed ledger events are sent.
func WithEventPublisher(events ports.EventPublisher) LedgerOption {
	return func(s *ledgerService) {
		s.events = events
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy. Zero fields keep their default.
func WithRetryPolicy(p RetryPolicy) LedgerOption {
	return func(s *ledgerService) {
		if p.MaxAttempts > 0 {
			s.retry.MaxAttempts = p.MaxAttempts
		}
		if p.InitialInterval > 0 {
			s.retry.InitialInterval = p.InitialInterval
		}
		if p.MaxInterval > 0 {
			s.retry.MaxInterval = p.MaxInterval
		}
	}
}

// NewLedgerService creates the wallet ledger engine over store.
func NewLedgerService(store portsrepo.LedgerStore, options ...LedgerOption) portssvc.WalletSvcFacade {
	svc := &ledgerService{
		store:  store,
		cache:  noopCache{},
		events: noopPublisher{},
		retry:  DefaultRetryPolicy,
	}

	// Apply all options
	for _, option := range options {
		option(svc)
	}

	return svc
}

// Ensure ledgerService implements the WalletSvcFacade interface
var _ portssvc.WalletSvcFacade = (*ledgerService)(nil)

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", apperrors.ErrInvalidAmount, amount)
	}
	return nil
}

func (s *ledgerService) CreateWallet(ctx context.Context, ownerID string) (*domain.Account, error) {
	if s.owners != nil {
		exists, err := s.owners.OwnerExists(ctx, ownerID)
		if err != nil {
			s.LogError(ctx, err, "Failed to look up owner", slog.String("owner_id", ownerID))
			return nil, fmt.Errorf("failed to look up owner %s: %w", ownerID, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrOwnerNotFound, ownerID)
		}
	}

	acc, err := s.store.CreateAccount(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	s.LogInfo(ctx, "Wallet created", slog.String("account_id", acc.AccountID), slog.String("owner_id", ownerID))
	return acc, nil
}

func (s *ledgerService) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if balance, ok := s.cache.Get(accountID); ok {
		return balance, nil
	}

	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	s.cache.Put(accountID, acc.Balance, acc.Version)
	return acc.Balance, nil
}

func (s *ledgerService) GetHistoricalBalance(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return decimal.Zero, err
	}

	balance, _, err := accounting.SumRecords(s.store.ListTransactions(ctx, accountID, asOf))
	if err != nil {
		s.LogError(ctx, err, "Failed to replay transaction log", slog.String("account_id", accountID))
		return decimal.Zero, fmt.Errorf("failed to replay transactions for %s: %w", accountID, err)
	}
	return balance, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, accountID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	var cursor *portsrepo.TransactionCursor
	if params.NextToken != "" {
		ts, seq, err := pagination.DecodeToken(params.NextToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		cursor = &portsrepo.TransactionCursor{Timestamp: ts, Sequence: seq}
	}

	// Fetch one extra row to learn whether another page exists.
	records, err := s.store.ListTransactionsPage(ctx, accountID, limit+1, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for %s: %w", accountID, err)
	}

	resp := &dto.ListTransactionsResponse{}
	if len(records) > limit {
		records = records[:limit]
		last := records[len(records)-1]
		token := pagination.EncodeToken(last.Timestamp, last.Sequence)
		resp.NextToken = &token
	}
	resp.Transactions = dto.ToTransactionResponses(records)
	return resp, nil
}

func (s *ledgerService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.TransactionSummary, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	acc, rec, err := s.commitDelta(ctx, domain.NewTransactionRecord(uuid.NewString(), accountID, domain.Deposit, amount, ""))
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Deposit committed", slog.String("account_id", accountID), slog.String("amount", amount.String()), slog.Int64("version", acc.Version))
	s.publish(ctx, domain.LedgerEvent{Type: domain.EventDeposited, AccountID: accountID, Amount: amount, Records: []domain.TransactionRecord{*rec}})
	return &domain.TransactionSummary{Account: *acc, Records: []domain.TransactionRecord{*rec}}, nil
}

func (s *ledgerService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.TransactionSummary, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	acc, rec, err := s.commitDelta(ctx, domain.NewTransactionRecord(uuid.NewString(), accountID, domain.Withdrawal, amount, ""))
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Withdrawal committed", slog.String("account_id", accountID), slog.String("amount", amount.String()), slog.Int64("version", acc.Version))
	s.publish(ctx, domain.LedgerEvent{Type: domain.EventWithdrawn, AccountID: accountID, Amount: amount, Records: []domain.TransactionRecord{*rec}})
	return &domain.TransactionSummary{Account: *acc, Records: []domain.TransactionRecord{*rec}}, nil
}

// Transfer debits sourceID then credits destinationID. The store only offers
// single-account commits, so a credit that cannot be committed is undone by
// crediting the source back and reported as a TransferIncompleteError.
func (s *ledgerService) Transfer(ctx context.Context, sourceID string, destinationID string, amount decimal.Decimal) (*domain.TransactionSummary, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if sourceID == destinationID {
		return nil, apperrors.ErrSameAccount
	}

	// Both wallets must exist before anything is committed. This is a plain
	// read in ascending ID order; no lock is taken or held, and the commits
	// below always go debit first.
	first, second := sourceID, destinationID
	if second < first {
		first, second = second, first
	}
	for _, id := range []string{first, second} {
		if _, err := s.store.GetAccount(ctx, id); err != nil {
			return nil, err
		}
	}

	transferID := uuid.NewString()
	logger := s.GetLogger(ctx).With(
		slog.String("transfer_id", transferID),
		slog.String("source_id", sourceID),
		slog.String("destination_id", destinationID),
		slog.String("amount", amount.String()),
	)

	// DEBIT_PENDING
	src, debit, err := s.commitDelta(ctx, domain.NewTransactionRecord(uuid.NewString(), sourceID, domain.TransferDebit, amount, transferID))
	if err != nil {
		return nil, err
	}

	// DEBIT_COMMITTED: the debit and its record are durable. From here the
	// transfer runs to success or compensation regardless of the caller going
	// away, and every failure is a TransferIncompleteError.
	ctx = context.WithoutCancel(ctx)

	// CREDIT_PENDING
	dst, credit, creditErr := s.commitDelta(ctx, domain.NewTransactionRecord(uuid.NewString(), destinationID, domain.TransferCredit, amount, transferID))
	if creditErr != nil {
		logger.Error("Transfer credit failed, compensating source", slog.String("error", creditErr.Error()))
		return nil, s.compensate(ctx, logger, src.AccountID, destinationID, transferID, amount, creditErr)
	}

	records := []domain.TransactionRecord{*debit, *credit}
	logger.Info("Transfer committed")
	s.publish(ctx, domain.LedgerEvent{
		Type:          domain.EventTransferred,
		AccountID:     sourceID,
		CounterpartID: destinationID,
		TransferID:    transferID,
		Amount:        amount,
		Records:       records,
	})
	return &domain.TransactionSummary{Account: *src, Counterpart: dst, TransferID: transferID, Records: records}, nil
}

// compensate credits amount back to the source after a failed credit leg.
// It always returns a *TransferIncompleteError.
func (s *ledgerService) compensate(ctx context.Context, logger *slog.Logger, sourceID, destinationID, transferID string, amount decimal.Decimal, creditErr error) error {
	incomplete := &apperrors.TransferIncompleteError{
		TransferID:    transferID,
		SourceID:      sourceID,
		DestinationID: destinationID,
		CreditErr:     creditErr,
	}
	event := domain.LedgerEvent{
		Type:          domain.EventTransferIncomplete,
		AccountID:     sourceID,
		CounterpartID: destinationID,
		TransferID:    transferID,
		Amount:        amount,
	}

	// COMPENSATING
	refunded, rec, err := s.commitDelta(ctx, domain.NewTransactionRecord(uuid.NewString(), sourceID, domain.Deposit, amount, transferID))
	if err != nil {
		incomplete.State = apperrors.CompensationFailed
		incomplete.CompensateErr = err
		logger.Error("Transfer compensation failed, source left debited", slog.String("error", err.Error()))
	} else {
		// COMPENSATED
		incomplete.State = apperrors.CompensationSucceeded
		event.Records = []domain.TransactionRecord{*rec}
		logger.Warn("Transfer compensated", slog.Int64("source_version", refunded.Version))
	}

	event.State = incomplete.State
	s.publish(ctx, event)
	return incomplete
}

// commitDelta applies rec's signed amount to its account with the optimistic
// read-validate-commit loop, writing rec in the same commit. The balance is
// re-read on every attempt and the resulting balance must not be negative.
// Version conflicts are retried up to MaxAttempts and then reported as
// ErrConcurrencyExhausted.
func (s *ledgerService) commitDelta(ctx context.Context, rec domain.TransactionRecord) (*domain.Account, *domain.TransactionRecord, error) {
	accountID, delta := rec.AccountID, rec.Amount
	b := s.retry.newBackOff()
	for attempt := 1; ; attempt++ {
		// READ
		acc, err := s.store.GetAccount(ctx, accountID)
		if err != nil {
			return nil, nil, err
		}

		// VALIDATE
		newBalance, ok := accounting.ApplyDelta(acc.Balance, delta)
		if !ok {
			return nil, nil, fmt.Errorf("%w: account %s holds %s, needs %s",
				apperrors.ErrInsufficientFunds, accountID, acc.Balance, delta.Neg())
		}

		// COMMIT_ATTEMPT
		updated, saved, err := s.store.CommitLoggedUpdate(ctx, acc.Version, newBalance, rec)
		if err == nil {
			s.cache.Invalidate(accountID, updated.Version)
			return updated, saved, nil
		}
		if !errors.Is(err, apperrors.ErrVersionConflict) {
			return nil, nil, err
		}

		// CONFLICT: someone else committed; whatever we cached is superseded.
		s.cache.Invalidate(accountID, acc.Version+1)
		if attempt >= s.retry.MaxAttempts {
			s.LogWarn(ctx, err, "Retry budget exhausted", slog.String("account_id", accountID), slog.Int("attempts", attempt))
			return nil, nil, fmt.Errorf("%w: account %s after %d attempts", apperrors.ErrConcurrencyExhausted, accountID, attempt)
		}
		wait := b.NextBackOff()
		s.LogDebug(ctx, "Version conflict, retrying",
			slog.String("account_id", accountID),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait))
		if err := sleep(ctx, wait); err != nil {
			return nil, nil, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish sends event downstream. The ledger is the source of truth, so a
// failed publish is logged and never changes the operation's result.
func (s *ledgerService) publish(ctx context.Context, event domain.LedgerEvent) {
	event.EventID = uuid.NewString()
	event.OccurredAt = time.Now().UTC()
	if err := s.events.Publish(ctx, event); err != nil {
		s.LogWarn(ctx, err, "Failed to publish ledger event",
			slog.String("event_id", event.EventID),
			slog.String("type", string(event.Type)),
			slog.String("account_id", event.AccountID))
	}
}

type noopCache struct{}

func (noopCache) Get(string) (decimal.Decimal, bool) { return decimal.Decimal{}, false }
func (noopCache) Put(string, decimal.Decimal, int64) {}
func (noopCache) Invalidate(string, int64)           {}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.LedgerEvent) error { return nil }
func (noopPublisher) Close() error                                     { return nil }
