package pgsql

import (
	"context"

	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerStore is the PostgreSQL LedgerStore.
type LedgerStore struct {
	*PgxAccountRepository
	*PgxJournalRepository
	*PgxTransactionRepository
	pool *pgxpool.Pool
}

var _ portsrepo.LedgerStore = (*LedgerStore)(nil)

// NewLedgerStore builds the store over an open pool. The store owns the pool.
func NewLedgerStore(dbPool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{
		PgxAccountRepository:     newPgxAccountRepository(dbPool),
		PgxJournalRepository:     newPgxJournalRepository(dbPool),
		PgxTransactionRepository: newPgxTransactionRepository(dbPool),
		pool:                     dbPool,
	}
}

func (s *LedgerStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *LedgerStore) Close() {
	s.pool.Close()
}
