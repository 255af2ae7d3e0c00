package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// JournalReader defines read operations for journal data
type JournalReader interface {
	// FindJournalByID retrieves an active journal by its unique identifier.
	FindJournalByID(ctx context.Context, journalID string) (*domain.Journal, error)

	// ListJournals retrieves journals ordered by journal date.
	ListJournals(ctx context.Context, filter JournalFilter) ([]domain.Journal, error)
}

// JournalWriter defines the atomic journal writes. Each call either commits the
// journal, every one of its lines and the account snapshot deltas, or nothing.
// balanceChanges maps account ID to the signed delta applied to Account.Balance.
type JournalWriter interface {
	// SaveJournal persists a new journal and its transactions.
	SaveJournal(ctx context.Context, journal domain.Journal, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal) error

	// ReplaceJournalTransactions tombstones the journal's active lines, inserts the
	// replacement lines and updates the journal summary fields.
	ReplaceJournalTransactions(ctx context.Context, journal domain.Journal, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal, at time.Time) error

	// SoftDeleteJournal tombstones the journal and every active line it owns.
	SoftDeleteJournal(ctx context.Context, journalID string, userID string, at time.Time, balanceChanges map[string]decimal.Decimal) error

	// SaveReversal persists the reversal journal and its lines, and marks the original
	// REVERSED with a link to the reversal.
	SaveReversal(ctx context.Context, originalJournalID string, reversal domain.Journal, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal) error
}

// JournalRepositoryFacade combines all journal-related repository interfaces
type JournalRepositoryFacade interface {
	JournalReader
	JournalWriter
}

// CheckJournalMutable returns a conflict error unless the journal may still be
// edited or deleted. Stores call it inside their atomic write so a concurrent
// reversal cannot slip in between the check and the write.
func CheckJournalMutable(j domain.Journal) error {
	if j.IsMutable() {
		return nil
	}
	if j.IsReversal() {
		return apperrors.NewConflictError(fmt.Sprintf("journal %s reverses journal %s and cannot be changed", j.JournalID, *j.OriginalJournalID))
	}
	return apperrors.NewConflictError(fmt.Sprintf("journal %s is reversed and can no longer be changed", j.JournalID))
}
