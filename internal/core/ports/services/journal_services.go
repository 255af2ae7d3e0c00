package services

import (
	"context"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/dto"
)

// JournalReaderSvc defines read operations for journal data
type JournalReaderSvc interface {
	// GetJournal retrieves a journal together with its active lines.
	GetJournal(ctx context.Context, journalID string) (*domain.Journal, error)

	// ListTransactions retrieves lines by account, journal, date range, status and tombstone state.
	ListTransactions(ctx context.Context, filter repositories.TransactionFilter) ([]domain.Transaction, error)
}

// JournalWriterSvc defines the atomic journal mutations.
type JournalWriterSvc interface {
	// CreateJournalWithTransactions validates and persists a journal with its lines.
	CreateJournalWithTransactions(ctx context.Context, req dto.CreateJournalRequest) (*domain.Journal, error)

	// UpdateJournalWithTransactions applies a patch, replacing the lines when given.
	UpdateJournalWithTransactions(ctx context.Context, journalID string, patch dto.JournalPatch) (*domain.Journal, error)

	// DeleteJournal soft-deletes a journal and its lines.
	DeleteJournal(ctx context.Context, journalID string, userID string) error

	// CreateReversalJournal records a mirror journal and marks the original REVERSED.
	CreateReversalJournal(ctx context.Context, journalID string, req dto.ReverseJournalRequest) (*domain.Journal, error)
}

// JournalSvcFacade combines all journal-related service interfaces
type JournalSvcFacade interface {
	JournalReaderSvc
	JournalWriterSvc
}
