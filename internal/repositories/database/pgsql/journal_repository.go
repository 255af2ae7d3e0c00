package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/models"
	"github.com/SscSPs/mma_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const journalColumns = `journal_id, journal_date, description, currency_code, status,
	original_journal_id, reversing_journal_id, amount, transaction_count,
	deleted_at, created_at, created_by, last_updated_at, last_updated_by`

type PgxJournalRepository struct {
	BaseRepository
}

// newPgxJournalRepository creates a new repository for journal data.
func newPgxJournalRepository(pool *pgxpool.Pool) *PgxJournalRepository {
	return &PgxJournalRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.JournalRepositoryFacade = (*PgxJournalRepository)(nil)

func scanJournal(row pgx.Row) (models.Journal, error) {
	var m models.Journal
	err := row.Scan(
		&m.JournalID,
		&m.JournalDate,
		&m.Description,
		&m.CurrencyCode,
		&m.Status,
		&m.OriginalJournalID,
		&m.ReversingJournalID,
		&m.Amount,
		&m.TransactionCount,
		&m.DeletedAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

func insertJournal(ctx context.Context, tx pgx.Tx, journal domain.Journal) error {
	m := mapping.ToModelJournal(journal)
	query := `
		INSERT INTO journals (` + journalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := tx.Exec(ctx, query,
		m.JournalID, m.JournalDate, m.Description, m.CurrencyCode, m.Status,
		m.OriginalJournalID, m.ReversingJournalID, m.Amount, m.TransactionCount,
		m.DeletedAt, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if pgErrorCode(err) == pgUniqueViolation {
		return apperrors.NewConflictError(fmt.Sprintf("journal %s already exists", journal.JournalID))
	}
	if err != nil {
		return fmt.Errorf("failed to insert journal %s: %w", journal.JournalID, err)
	}
	return nil
}

// insertTransactions queues every line in one batch.
func insertTransactions(ctx context.Context, tx pgx.Tx, journalID string, transactions []domain.Transaction) error {
	batch := &pgx.Batch{}
	query := `
		INSERT INTO transactions (
			transaction_id, journal_id, account_id, line_no, amount, transaction_type, currency_code,
			transaction_date, exchange_rate, running_balance, notes, deleted_at,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`
	for _, txn := range transactions {
		m := mapping.ToModelTransaction(txn)
		batch.Queue(query,
			m.TransactionID, journalID, m.AccountID, m.LineNo, m.Amount, m.TransactionType, m.CurrencyCode,
			m.TransactionDate, m.ExchangeRate, m.RunningBalance, m.Notes, m.DeletedAt,
			m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to execute transaction batch for journal %s: %w", journalID, err)
	}
	return nil
}

// lockJournal locks an active journal row and returns it.
func lockJournal(ctx context.Context, tx pgx.Tx, journalID string) (models.Journal, error) {
	query := `SELECT ` + journalColumns + ` FROM journals WHERE journal_id = $1 AND deleted_at IS NULL FOR UPDATE;`
	m, err := scanJournal(tx.QueryRow(ctx, query, journalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return m, apperrors.NewNotFoundError(fmt.Sprintf("journal %s not found", journalID))
	}
	if err != nil {
		return m, fmt.Errorf("failed to lock journal %s: %w", journalID, err)
	}
	return m, nil
}

func tombstoneJournalLines(ctx context.Context, tx pgx.Tx, journalID string, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE transactions SET deleted_at = $2
		WHERE journal_id = $1 AND deleted_at IS NULL;
	`, journalID, at)
	if err != nil {
		return fmt.Errorf("failed to tombstone lines of journal %s: %w", journalID, err)
	}
	return nil
}

// SaveJournal saves a journal, its transactions and the snapshot deltas within one DB transaction.
func (r *PgxJournalRepository) SaveJournal(ctx context.Context, journal domain.Journal, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal) error {
	return r.withTx(ctx, "failed to save journal "+journal.JournalID, func(tx pgx.Tx) error {
		if err := lockAccounts(ctx, tx, balanceAccountIDs(transactions, balanceChanges)); err != nil {
			return err
		}
		if err := insertJournal(ctx, tx, journal); err != nil {
			return err
		}
		if err := insertTransactions(ctx, tx, journal.JournalID, transactions); err != nil {
			return err
		}
		return applyBalanceChanges(ctx, tx, balanceChanges, journal.CreatedBy, journal.CreatedAt)
	})
}

func (r *PgxJournalRepository) ReplaceJournalTransactions(ctx context.Context, journal domain.Journal, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal, at time.Time) error {
	return r.withTx(ctx, "failed to update journal "+journal.JournalID, func(tx pgx.Tx) error {
		locked, err := lockJournal(ctx, tx, journal.JournalID)
		if err != nil {
			return err
		}
		if err := portsrepo.CheckJournalMutable(mapping.ToDomainJournal(locked)); err != nil {
			return err
		}
		if err := lockAccounts(ctx, tx, balanceAccountIDs(transactions, balanceChanges)); err != nil {
			return err
		}
		if err := tombstoneJournalLines(ctx, tx, journal.JournalID, at); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE journals
			SET journal_date = $2, description = $3, amount = $4, transaction_count = $5,
			    last_updated_at = $6, last_updated_by = $7
			WHERE journal_id = $1;
		`, journal.JournalID, journal.JournalDate, journal.Description, journal.TotalAmount, journal.TransactionCount,
			journal.LastUpdatedAt, journal.LastUpdatedBy)
		if err != nil {
			return fmt.Errorf("failed to update journal %s: %w", journal.JournalID, err)
		}
		if err := insertTransactions(ctx, tx, journal.JournalID, transactions); err != nil {
			return err
		}
		return applyBalanceChanges(ctx, tx, balanceChanges, journal.LastUpdatedBy, at)
	})
}

func (r *PgxJournalRepository) SoftDeleteJournal(ctx context.Context, journalID string, userID string, at time.Time, balanceChanges map[string]decimal.Decimal) error {
	return r.withTx(ctx, "failed to delete journal "+journalID, func(tx pgx.Tx) error {
		locked, err := lockJournal(ctx, tx, journalID)
		if err != nil {
			return err
		}
		if err := portsrepo.CheckJournalMutable(mapping.ToDomainJournal(locked)); err != nil {
			return err
		}
		if err := lockAccounts(ctx, tx, balanceAccountIDs(nil, balanceChanges)); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE journals
			SET deleted_at = $2, last_updated_at = $2, last_updated_by = $3
			WHERE journal_id = $1;
		`, journalID, at, userID)
		if err != nil {
			return fmt.Errorf("failed to tombstone journal %s: %w", journalID, err)
		}
		if err := tombstoneJournalLines(ctx, tx, journalID, at); err != nil {
			return err
		}
		return applyBalanceChanges(ctx, tx, balanceChanges, userID, at)
	})
}

// SaveReversal inserts the reversal and flips the original to REVERSED in the same
// transaction. The original's row lock serialises concurrent reversals.
func (r *PgxJournalRepository) SaveReversal(ctx context.Context, originalJournalID string, reversal domain.Journal, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal) error {
	return r.withTx(ctx, "failed to save reversal of journal "+originalJournalID, func(tx pgx.Tx) error {
		original, err := lockJournal(ctx, tx, originalJournalID)
		if err != nil {
			return err
		}
		if original.Status != models.Posted {
			return apperrors.NewConflictError(fmt.Sprintf("journal %s is already %s", originalJournalID, original.Status))
		}
		if err := lockAccounts(ctx, tx, balanceAccountIDs(transactions, balanceChanges)); err != nil {
			return err
		}
		if err := insertJournal(ctx, tx, reversal); err != nil {
			return err
		}
		if err := insertTransactions(ctx, tx, reversal.JournalID, transactions); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE journals
			SET status = $2, reversing_journal_id = $3, last_updated_at = $4, last_updated_by = $5
			WHERE journal_id = $1;
		`, originalJournalID, models.Reversed, reversal.JournalID, reversal.CreatedAt, reversal.CreatedBy)
		if err != nil {
			return fmt.Errorf("failed to mark journal %s reversed: %w", originalJournalID, err)
		}
		return applyBalanceChanges(ctx, tx, balanceChanges, reversal.CreatedBy, reversal.CreatedAt)
	})
}

// FindJournalByID retrieves an active journal by its ID.
func (r *PgxJournalRepository) FindJournalByID(ctx context.Context, journalID string) (*domain.Journal, error) {
	query := `SELECT ` + journalColumns + ` FROM journals WHERE journal_id = $1 AND deleted_at IS NULL;`
	m, err := scanJournal(r.Pool.QueryRow(ctx, query, journalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("journal %s not found", journalID))
		}
		return nil, apperrors.NewAppError(500, "failed to find journal by ID "+journalID, err)
	}
	j := mapping.ToDomainJournal(m)
	return &j, nil
}

func (r *PgxJournalRepository) ListJournals(ctx context.Context, filter portsrepo.JournalFilter) ([]domain.Journal, error) {
	var where whereBuilder
	if !filter.IncludeDeleted {
		where.addRaw("deleted_at IS NULL")
	}
	if filter.From != nil {
		where.add("journal_date >= ?", *filter.From)
	}
	if filter.To != nil {
		where.add("journal_date <= ?", *filter.To)
	}
	if len(filter.Statuses) > 0 {
		where.add("status = ANY(?)", statusStrings(filter.Statuses))
	}
	query := `SELECT ` + journalColumns + ` FROM journals` + where.String() + ` ORDER BY journal_date, created_at;`

	rows, err := r.Pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query journals", err)
	}
	defer rows.Close()

	var journals []domain.Journal
	for rows.Next() {
		m, err := scanJournal(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan journal row", err)
		}
		journals = append(journals, mapping.ToDomainJournal(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating journal rows", err)
	}
	return journals, nil
}
