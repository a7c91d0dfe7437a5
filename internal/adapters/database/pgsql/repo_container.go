package pgsql

import (
	portsrepo "github.com/SscSPs/wallet_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		LedgerStore: newPgxLedgerRepository(dbPool),
		UserRepo:    newPgxUserRepository(dbPool),
	}
}
