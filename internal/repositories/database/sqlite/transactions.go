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

const transactionSelect = `
	SELECT t.transaction_id, t.journal_id, t.account_id, t.line_no, t.amount, t.transaction_type,
	       t.currency_code, t.transaction_date, t.exchange_rate, t.running_balance, t.notes,
	       t.deleted_at, t.created_at, t.created_by, t.last_updated_at, t.last_updated_by,
	       j.journal_date, j.status
	FROM transactions t
	JOIN journals j ON j.journal_id = t.journal_id`

const balanceOrder = ` ORDER BY j.journal_date, t.created_at, t.journal_id, t.line_no`

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID,
		&m.JournalID,
		&m.AccountID,
		&m.LineNo,
		&m.Amount,
		&m.TransactionType,
		&m.CurrencyCode,
		timeColumn{&m.TransactionDate},
		&m.ExchangeRate,
		&m.RunningBalance,
		&m.Notes,
		nullTimeColumn{&m.DeletedAt},
		timeColumn{&m.CreatedAt},
		&m.CreatedBy,
		timeColumn{&m.LastUpdatedAt},
		&m.LastUpdatedBy,
		timeColumn{&m.JournalDate},
		&m.JournalStatus,
	)
	return m, err
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query transactions", err)
	}
	defer rows.Close()

	var ms []models.Transaction
	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan transaction row", err)
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating transaction rows", err)
	}
	return mapping.ToDomainTransactionSlice(ms), nil
}

func (s *Store) FindTransactionsByJournalID(ctx context.Context, journalID string) ([]domain.Transaction, error) {
	return s.queryTransactions(ctx, transactionSelect+` WHERE t.journal_id = ? AND t.deleted_at IS NULL ORDER BY t.line_no`, journalID)
}

func transactionWhere(filter portsrepo.TransactionFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter.AccountID != "" {
		where.add("t.account_id = ?", filter.AccountID)
	}
	if filter.JournalID != "" {
		where.add("t.journal_id = ?", filter.JournalID)
	}
	if !filter.IncludeDeleted {
		where.add("t.deleted_at IS NULL")
		where.add("j.deleted_at IS NULL")
	}
	if filter.From != nil {
		where.add("j.journal_date >= ?", ts(*filter.From))
	}
	if filter.To != nil {
		where.add("j.journal_date <= ?", ts(*filter.To))
	}
	if len(filter.Statuses) > 0 {
		clause, args := statusClause("j.status", filter.Statuses)
		where.add(clause, args...)
	}
	return where
}

func (s *Store) ListTransactions(ctx context.Context, filter portsrepo.TransactionFilter) ([]domain.Transaction, error) {
	where := transactionWhere(filter)
	query := transactionSelect + where.String() + balanceOrder
	args := where.args
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	return s.queryTransactions(ctx, query, args...)
}

func (s *Store) FindLatestRunningBalance(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error) {
	filter := portsrepo.BalanceFilter(accountID)
	filter.To = &asOf
	where := transactionWhere(filter)
	query := `
		SELECT t.running_balance
		FROM transactions t
		JOIN journals j ON j.journal_id = t.journal_id` + where.String() + `
		ORDER BY j.journal_date DESC, t.created_at DESC, t.journal_id DESC, t.line_no DESC
		LIMIT 1`

	var balance decimal.Decimal
	err := s.db.QueryRowContext(ctx, query, where.args...).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to read latest running balance of account "+accountID, err)
	}
	return balance, nil
}

func (s *Store) SoftDeleteTransaction(ctx context.Context, transactionID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE transactions SET deleted_at = ? WHERE transaction_id = ? AND deleted_at IS NULL`, ts(at), transactionID)
	if err != nil {
		return apperrors.NewStoreWriteError("failed to delete transaction "+transactionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found", transactionID))
	}
	return nil
}

func (s *Store) UpdateRunningBalances(ctx context.Context, accountID string, updates map[string]decimal.Decimal, snapshot *decimal.Decimal) error {
	return s.withTx(ctx, "failed to update running balances of account "+accountID, func(tx *sql.Tx) error {
		if err := accountExists(ctx, tx, accountID, true); err != nil {
			return err
		}
		for id, value := range updates {
			res, err := tx.ExecContext(ctx, `UPDATE transactions SET running_balance = ? WHERE transaction_id = ? AND account_id = ?`, value, id, accountID)
			if err != nil {
				return fmt.Errorf("failed to update running balance of transaction %s: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found for account %s", id, accountID))
			}
		}
		if snapshot != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE account_id = ?`, *snapshot, accountID); err != nil {
				return fmt.Errorf("failed to update balance snapshot: %w", err)
			}
		}
		return nil
	})
}
