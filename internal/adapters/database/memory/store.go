package memory

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SscSPs/wallet_ledger/internal/apperrors"
	"github.com/SscSPs/wallet_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/wallet_ledger/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// accountSlot owns one account row and its log. mu makes the version check,
// the balance write and a logged commit's append one step.
type accountSlot struct {
	mu      sync.Mutex
	account domain.Account
	records []domain.TransactionRecord
}

// Store is an in-process LedgerStore and user directory. Accounts are held
// by ID in an index; nothing holds a pointer back to its owner.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*accountSlot
	users    map[string]domain.User
	emails   map[string]string

	seq atomic.Int64
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests that need fixed timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		accounts: make(map[string]*accountSlot),
		users:    make(map[string]domain.User),
		emails:   make(map[string]string),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ensure Store implements the repository interfaces
var (
	_ portsrepo.LedgerStore          = (*Store)(nil)
	_ portsrepo.UserRepositoryFacade = (*Store)(nil)
)

// NewRepositoryProvider wires a single in-memory store behind every repository.
func NewRepositoryProvider(opts ...Option) portsrepo.RepositoryProvider {
	s := NewStore(opts...)
	return portsrepo.RepositoryProvider{
		LedgerStore: s,
		UserRepo:    s,
	}
}

func (s *Store) slot(accountID string) (*accountSlot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.accounts[accountID]
	return sl, ok
}

// --- users ---

func (s *Store) SaveUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.UserID]; exists {
		return fmt.Errorf("%w: user with ID %s already exists", apperrors.ErrDuplicate, user.UserID)
	}
	if _, taken := s.emails[user.Email]; taken {
		return fmt.Errorf("%w: email %s already registered", apperrors.ErrDuplicate, user.Email)
	}
	s.users[user.UserID] = user
	s.emails[user.Email] = user.UserID
	return nil
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &u, nil
}

func (s *Store) OwnerExists(ctx context.Context, ownerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[ownerID]
	return ok, nil
}

// --- accounts ---

func (s *Store) CreateAccount(ctx context.Context, ownerID string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[ownerID]; !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrOwnerNotFound, ownerID)
	}

	now := s.now().UTC()
	acc := domain.Account{
		AccountID: uuid.NewString(),
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.accounts[acc.AccountID] = &accountSlot{account: acc}
	return &acc, nil
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	sl, ok := s.slot(accountID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	acc := sl.account
	return &acc, nil
}

func (s *Store) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	if offset >= len(ids) {
		return []domain.Account{}, nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	out := make([]domain.Account, 0, len(ids))
	for _, id := range ids {
		acc, err := s.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *acc)
	}
	return out, nil
}

func (s *Store) CommitAccountUpdate(ctx context.Context, accountID string, expectedVersion int64, newBalance decimal.Decimal) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sl, ok := s.slot(accountID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if err := sl.checkVersion(expectedVersion); err != nil {
		return nil, err
	}
	acc := sl.commit(expectedVersion, newBalance, s.now().UTC())
	return &acc, nil
}

func (s *Store) CommitLoggedUpdate(ctx context.Context, expectedVersion int64, newBalance decimal.Decimal, record domain.TransactionRecord) (*domain.Account, *domain.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := record.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	sl, ok := s.slot(record.AccountID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, record.AccountID)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if err := sl.checkVersion(expectedVersion); err != nil {
		return nil, nil, err
	}
	if delta := newBalance.Sub(sl.account.Balance); !delta.Equal(record.Amount) {
		return nil, nil, fmt.Errorf("%w: record amount %s does not match balance change %s",
			apperrors.ErrValidation, record.Amount, delta)
	}
	acc := sl.commit(expectedVersion, newBalance, s.now().UTC())
	record.Timestamp = acc.UpdatedAt
	record.Sequence = s.seq.Add(1)
	sl.records = append(sl.records, record)
	return &acc, &record, nil
}

// checkVersion must be called with sl.mu held.
func (sl *accountSlot) checkVersion(expectedVersion int64) error {
	if sl.account.Version != expectedVersion {
		return fmt.Errorf("%w: account %s at version %d, expected %d",
			apperrors.ErrVersionConflict, sl.account.AccountID, sl.account.Version, expectedVersion)
	}
	return nil
}

// commit must be called with sl.mu held. The commit time never goes behind
// the previous commit or the newest record.
func (sl *accountSlot) commit(expectedVersion int64, newBalance decimal.Decimal, now time.Time) domain.Account {
	if now.Before(sl.account.UpdatedAt) {
		now = sl.account.UpdatedAt
	}
	if n := len(sl.records); n > 0 && now.Before(sl.records[n-1].Timestamp) {
		now = sl.records[n-1].Timestamp
	}
	sl.account.Balance = newBalance
	sl.account.Version = expectedVersion + 1
	sl.account.UpdatedAt = now
	return sl.account
}

// --- transaction log ---

func (s *Store) AppendTransaction(ctx context.Context, record domain.TransactionRecord) (*domain.TransactionRecord, error) {
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	sl, ok := s.slot(record.AccountID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, record.AccountID)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	ts := s.now().UTC()
	if n := len(sl.records); n > 0 && ts.Before(sl.records[n-1].Timestamp) {
		ts = sl.records[n-1].Timestamp
	}
	record.Timestamp = ts
	record.Sequence = s.seq.Add(1)
	sl.records = append(sl.records, record)
	return &record, nil
}

// snapshot copies the records matching keep while holding the slot lock.
func (sl *accountSlot) snapshot(keep func(domain.TransactionRecord) bool) []domain.TransactionRecord {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	out := make([]domain.TransactionRecord, 0, len(sl.records))
	for _, r := range sl.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) ListTransactions(ctx context.Context, accountID string, before time.Time) iter.Seq2[domain.TransactionRecord, error] {
	return func(yield func(domain.TransactionRecord, error) bool) {
		sl, ok := s.slot(accountID)
		if !ok {
			yield(domain.TransactionRecord{}, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID))
			return
		}
		// The log is kept in append order, which is ascending by timestamp.
		recs := sl.snapshot(func(r domain.TransactionRecord) bool { return r.Timestamp.Before(before) })
		for _, r := range recs {
			if err := ctx.Err(); err != nil {
				yield(domain.TransactionRecord{}, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (s *Store) ListTransactionsPage(ctx context.Context, accountID string, limit int, cursor *portsrepo.TransactionCursor) ([]domain.TransactionRecord, error) {
	sl, ok := s.slot(accountID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
	}
	recs := sl.snapshot(func(r domain.TransactionRecord) bool {
		if cursor == nil {
			return true
		}
		return r.Timestamp.Before(cursor.Timestamp) ||
			(r.Timestamp.Equal(cursor.Timestamp) && r.Sequence < cursor.Sequence)
	})

	out := make([]domain.TransactionRecord, 0, min(limit, len(recs)))
	for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}
