package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/models"
	"github.com/SscSPs/mma_ledger/internal/utils/mapping"
	"github.com/shopspring/decimal"
)

const journalColumns = `journal_id, journal_date, description, currency_code, status,
	original_journal_id, reversing_journal_id, amount, transaction_count,
	deleted_at, created_at, created_by, last_updated_at, last_updated_by`

func scanJournal(row rowScanner) (models.Journal, error) {
	var m models.Journal
	err := row.Scan(
		&m.JournalID,
		timeColumn{&m.JournalDate},
		&m.Description,
		&m.CurrencyCode,
		&m.Status,
		&m.OriginalJournalID,
		&m.ReversingJournalID,
		&m.Amount,
		&m.TransactionCount,
		nullTimeColumn{&m.DeletedAt},
		timeColumn{&m.CreatedAt},
		&m.CreatedBy,
		timeColumn{&m.LastUpdatedAt},
		&m.LastUpdatedBy,
	)
	return m, err
}

func insertJournal(ctx context.Context, tx *sql.Tx, journal domain.Journal) error {
	m := mapping.ToModelJournal(journal)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO journals (`+journalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.JournalID, ts(m.JournalDate), m.Description, m.CurrencyCode, string(m.Status),
		m.OriginalJournalID, m.ReversingJournalID, m.Amount, m.TransactionCount,
		nullTS(m.DeletedAt), ts(m.CreatedAt), m.CreatedBy, ts(m.LastUpdatedAt), m.LastUpdatedBy,
	)
	if isUniqueViolation(err) {
		return apperrors.NewConflictError(fmt.Sprintf("journal %s already exists", journal.JournalID))
	}
	if err != nil {
		return fmt.Errorf("failed to insert journal %s: %w", journal.JournalID, err)
	}
	return nil
}

func insertTransactions(ctx context.Context, tx *sql.Tx, journalID string, transactions []domain.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			transaction_id, journal_id, account_id, line_no, amount, transaction_type, currency_code,
			transaction_date, exchange_rate, running_balance, notes, deleted_at,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer stmt.Close()

	for _, txn := range transactions {
		m := mapping.ToModelTransaction(txn)
		_, err := stmt.ExecContext(ctx,
			m.TransactionID, journalID, m.AccountID, m.LineNo, m.Amount, string(m.TransactionType), m.CurrencyCode,
			ts(m.TransactionDate), m.ExchangeRate, m.RunningBalance, m.Notes, nullTS(m.DeletedAt),
			ts(m.CreatedAt), m.CreatedBy, ts(m.LastUpdatedAt), m.LastUpdatedBy,
		)
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("transaction %s already exists", txn.TransactionID))
		}
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s of journal %s: %w", txn.TransactionID, journalID, err)
		}
	}
	return nil
}

func activeJournal(ctx context.Context, q queryer, journalID string) (models.Journal, error) {
	row := q.QueryRowContext(ctx, `SELECT `+journalColumns+` FROM journals WHERE journal_id = ? AND deleted_at IS NULL`, journalID)
	m, err := scanJournal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return m, apperrors.NewNotFoundError(fmt.Sprintf("journal %s not found", journalID))
	}
	if err != nil {
		return m, fmt.Errorf("failed to read journal %s: %w", journalID, err)
	}
	return m, nil
}

func tombstoneJournalLines(ctx context.Context, tx *sql.Tx, journalID string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE transactions SET deleted_at = ? WHERE journal_id = ? AND deleted_at IS NULL`, ts(at), journalID)
	if err != nil {
		return fmt.Errorf("failed to tombstone lines of journal %s: %w", journalID, err)
	}
	return nil
}

func (s *Store) SaveJournal(ctx context.Context, journal domain.Journal, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal) error {
	return s.withTx(ctx, "failed to save journal "+journal.JournalID, func(tx *sql.Tx) error {
		if err := checkAccounts(ctx, tx, transactions, balanceChanges); err != nil {
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

func (s *Store) ReplaceJournalTransactions(ctx context.Context, journal domain.Journal, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal, at time.Time) error {
	return s.withTx(ctx, "failed to update journal "+journal.JournalID, func(tx *sql.Tx) error {
		current, err := activeJournal(ctx, tx, journal.JournalID)
		if err != nil {
			return err
		}
		if err := portsrepo.CheckJournalMutable(mapping.ToDomainJournal(current)); err != nil {
			return err
		}
		if err := checkAccounts(ctx, tx, transactions, balanceChanges); err != nil {
			return err
		}
		if err := tombstoneJournalLines(ctx, tx, journal.JournalID, at); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE journals
			SET journal_date = ?, description = ?, amount = ?, transaction_count = ?,
			    last_updated_at = ?, last_updated_by = ?
			WHERE journal_id = ?`,
			ts(journal.JournalDate), journal.Description, journal.TotalAmount, journal.TransactionCount,
			ts(journal.LastUpdatedAt), journal.LastUpdatedBy, journal.JournalID)
		if err != nil {
			return fmt.Errorf("failed to update journal %s: %w", journal.JournalID, err)
		}
		if err := insertTransactions(ctx, tx, journal.JournalID, transactions); err != nil {
			return err
		}
		return applyBalanceChanges(ctx, tx, balanceChanges, journal.LastUpdatedBy, at)
	})
}

func (s *Store) SoftDeleteJournal(ctx context.Context, journalID string, userID string, at time.Time, balanceChanges map[string]decimal.Decimal) error {
	return s.withTx(ctx, "failed to delete journal "+journalID, func(tx *sql.Tx) error {
		current, err := activeJournal(ctx, tx, journalID)
		if err != nil {
			return err
		}
		if err := portsrepo.CheckJournalMutable(mapping.ToDomainJournal(current)); err != nil {
			return err
		}
		if err := checkAccounts(ctx, tx, nil, balanceChanges); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE journals SET deleted_at = ?, last_updated_at = ?, last_updated_by = ?
			WHERE journal_id = ?`,
			ts(at), ts(at), userID, journalID)
		if err != nil {
			return fmt.Errorf("failed to tombstone journal %s: %w", journalID, err)
		}
		if err := tombstoneJournalLines(ctx, tx, journalID, at); err != nil {
			return err
		}
		return applyBalanceChanges(ctx, tx, balanceChanges, userID, at)
	})
}

func (s *Store) SaveReversal(ctx context.Context, originalJournalID string, reversal domain.Journal, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal) error {
	return s.withTx(ctx, "failed to save reversal of journal "+originalJournalID, func(tx *sql.Tx) error {
		original, err := activeJournal(ctx, tx, originalJournalID)
		if err != nil {
			return err
		}
		if original.Status != models.Posted {
			return apperrors.NewConflictError(fmt.Sprintf("journal %s is already %s", originalJournalID, original.Status))
		}
		if err := checkAccounts(ctx, tx, transactions, balanceChanges); err != nil {
			return err
		}
		if err := insertJournal(ctx, tx, reversal); err != nil {
			return err
		}
		if err := insertTransactions(ctx, tx, reversal.JournalID, transactions); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE journals
			SET status = ?, reversing_journal_id = ?, last_updated_at = ?, last_updated_by = ?
			WHERE journal_id = ?`,
			string(models.Reversed), reversal.JournalID, ts(reversal.CreatedAt), reversal.CreatedBy, originalJournalID)
		if err != nil {
			return fmt.Errorf("failed to mark journal %s reversed: %w", originalJournalID, err)
		}
		return applyBalanceChanges(ctx, tx, balanceChanges, reversal.CreatedBy, reversal.CreatedAt)
	})
}

func (s *Store) FindJournalByID(ctx context.Context, journalID string) (*domain.Journal, error) {
	m, err := activeJournal(ctx, s.db, journalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, apperrors.NewAppError(500, "failed to find journal by ID "+journalID, err)
	}
	j := mapping.ToDomainJournal(m)
	return &j, nil
}

func (s *Store) ListJournals(ctx context.Context, filter portsrepo.JournalFilter) ([]domain.Journal, error) {
	var where whereBuilder
	if !filter.IncludeDeleted {
		where.add("deleted_at IS NULL")
	}
	if filter.From != nil {
		where.add("journal_date >= ?", ts(*filter.From))
	}
	if filter.To != nil {
		where.add("journal_date <= ?", ts(*filter.To))
	}
	if len(filter.Statuses) > 0 {
		clause, args := statusClause("status", filter.Statuses)
		where.add(clause, args...)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+journalColumns+` FROM journals`+where.String()+` ORDER BY journal_date, created_at`, where.args...)
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
