package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransactionReader defines read operations for transaction lines. Results are
// ordered by journal date, creation time, journal ID and line number.
type TransactionReader interface {
	// FindTransactionsByJournalID retrieves the active lines of a journal in line order.
	FindTransactionsByJournalID(ctx context.Context, journalID string) ([]domain.Transaction, error)

	// ListTransactions retrieves lines matching filter.
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)

	// FindLatestRunningBalance returns the running balance stored on the last active
	// line of the account whose journal date is on or before asOf, or zero.
	FindLatestRunningBalance(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error)
}

// TransactionWriter defines low-level line maintenance.
type TransactionWriter interface {
	// SoftDeleteTransaction tombstones a single line without touching its journal.
	SoftDeleteTransaction(ctx context.Context, transactionID string, at time.Time) error
}

// BalanceWriter persists rebuilt balance caches.
type BalanceWriter interface {
	// UpdateRunningBalances writes the given running balances (transaction ID to
	// value) and, when snapshot is non-nil, the account snapshot, in one atomic write.
	UpdateRunningBalances(ctx context.Context, accountID string, updates map[string]decimal.Decimal, snapshot *decimal.Decimal) error
}

// TransactionRepositoryFacade combines all transaction-related repository interfaces
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionWriter
	BalanceWriter
}
