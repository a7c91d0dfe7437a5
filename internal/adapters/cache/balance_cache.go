package cache

import (
	"fmt"
	"sync"

	"github.com/SscSPs/wallet_ledger/internal/core/ports"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
)

// DefaultSize is used when a non-positive size is configured.
const DefaultSize = 10_000

type entry struct {
	balance   decimal.Decimal
	version   int64
	tombstone bool
}

// BalanceCache is an LRU of last-known balances. An invalidation leaves a
// tombstone carrying the committed version; a later Put is only accepted when
// it was read at that version or newer.
type BalanceCache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, entry]
}

// Ensure BalanceCache implements ports.BalanceCache
var _ ports.BalanceCache = (*BalanceCache)(nil)

// NewBalanceCache creates a cache holding at most size accounts.
func NewBalanceCache(size int) (*BalanceCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create balance cache: %w", err)
	}
	return &BalanceCache{entries: entries}, nil
}

func (c *BalanceCache) Get(accountID string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Get(accountID)
	if !ok || e.tombstone {
		return decimal.Decimal{}, false
	}
	return e.balance, true
}

func (c *BalanceCache) Put(accountID string, balance decimal.Decimal, versionSeen int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries.Peek(accountID); ok {
		if versionSeen < e.version || (!e.tombstone && versionSeen == e.version) {
			return
		}
	}
	c.entries.Add(accountID, entry{balance: balance, version: versionSeen})
}

func (c *BalanceCache) Invalidate(accountID string, committedVersion int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries.Peek(accountID); ok && e.version > committedVersion {
		committedVersion = e.version
	}
	c.entries.Add(accountID, entry{version: committedVersion, tombstone: true})
}

// Len reports the number of entries, tombstones included.
func (c *BalanceCache) Len() int {
	return c.entries.Len()
}
