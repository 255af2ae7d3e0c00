package repositories

import "context"

// LedgerStore is the durable record store the ledger core depends on. Every writer
// is atomic; readers exclude tombstoned rows unless asked otherwise.
type LedgerStore interface {
	AccountRepositoryFacade
	JournalRepositoryFacade
	TransactionRepositoryFacade

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
	// Close releases the store's resources.
	Close()
}
