package services

import (
	"context"
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BalanceRebuilderSvc recomputes the running-balance cache of an account.
type BalanceRebuilderSvc interface {
	// RebuildRunningBalances rewrites every running balance that drifted. Running it
	// again without new data writes nothing.
	RebuildRunningBalances(ctx context.Context, accountID string) (*domain.RebuildResult, error)
}

// RebuildQueueSvc schedules rebuilds in the background with at most one in flight
// per account.
type RebuildQueueSvc interface {
	// Enqueue requests a rebuild of accountID no earlier than fromDate.
	Enqueue(ctx context.Context, accountID string, fromDate time.Time)

	// EnqueueMany is the batched form of Enqueue.
	EnqueueMany(ctx context.Context, accountIDs []string, fromDate time.Time)

	// Flush blocks until every pending and in-flight rebuild has completed.
	Flush(ctx context.Context) error

	// RebuildNow runs a rebuild synchronously, serialized with queued work.
	RebuildNow(ctx context.Context, accountID string) (*domain.RebuildResult, error)

	// Pending returns a snapshot of accounts waiting for a rebuild and their from-dates.
	Pending() map[string]time.Time

	// InFlight returns the accounts currently being rebuilt.
	InFlight() []string

	// Shutdown stops accepting work and waits for queued rebuilds to drain.
	Shutdown(ctx context.Context) error
}

// IntegritySvc verifies cached balances against an authoritative recomputation.
type IntegritySvc interface {
	// ComputeBalanceFromTransactions recomputes the balance without trusting any cache.
	ComputeBalanceFromTransactions(ctx context.Context, accountID string) (decimal.Decimal, error)

	// VerifyAccountBalance compares the cached balances of one account with the computed one.
	VerifyAccountBalance(ctx context.Context, accountID string) (*domain.BalanceCheck, error)

	// VerifyAllAccountBalances checks every active account. Accounts that could not be
	// checked are returned in failed rather than aborting the scan.
	VerifyAllAccountBalances(ctx context.Context) (checks []domain.BalanceCheck, failed []string, err error)

	// VerifyJournalBalances returns the IDs of active journals whose debits and credits differ.
	VerifyJournalBalances(ctx context.Context) ([]string, error)

	// RunStartupCheck verifies all accounts and repairs every mismatch. It never fails.
	RunStartupCheck(ctx context.Context) domain.IntegritySummary
}
