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

// transactionSelect joins each line with the journal columns balance ordering needs.
const transactionSelect = `
	SELECT t.transaction_id, t.journal_id, t.account_id, t.line_no, t.amount, t.transaction_type,
	       t.currency_code, t.transaction_date, t.exchange_rate, t.running_balance, t.notes,
	       t.deleted_at, t.created_at, t.created_by, t.last_updated_at, t.last_updated_by,
	       j.journal_date, j.status
	FROM transactions t
	JOIN journals j ON j.journal_id = t.journal_id`

// balanceOrder is the order running balances accumulate in.
const balanceOrder = ` ORDER BY j.journal_date, t.created_at, t.journal_id, t.line_no`

type PgxTransactionRepository struct {
	BaseRepository
}

func newPgxTransactionRepository(pool *pgxpool.Pool) *PgxTransactionRepository {
	return &PgxTransactionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID,
		&m.JournalID,
		&m.AccountID,
		&m.LineNo,
		&m.Amount,
		&m.TransactionType,
		&m.CurrencyCode,
		&m.TransactionDate,
		&m.ExchangeRate,
		&m.RunningBalance,
		&m.Notes,
		&m.DeletedAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.JournalDate,
		&m.JournalStatus,
	)
	return m, err
}

func (r *PgxTransactionRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
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

// FindTransactionsByJournalID retrieves the active lines of a journal.
func (r *PgxTransactionRepository) FindTransactionsByJournalID(ctx context.Context, journalID string) ([]domain.Transaction, error) {
	query := transactionSelect + ` WHERE t.journal_id = $1 AND t.deleted_at IS NULL ORDER BY t.line_no;`
	return r.queryTransactions(ctx, query, journalID)
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
		where.addRaw("t.deleted_at IS NULL")
		where.addRaw("j.deleted_at IS NULL")
	}
	if filter.From != nil {
		where.add("j.journal_date >= ?", *filter.From)
	}
	if filter.To != nil {
		where.add("j.journal_date <= ?", *filter.To)
	}
	if len(filter.Statuses) > 0 {
		where.add("j.status = ANY(?)", statusStrings(filter.Statuses))
	}
	return where
}

func (r *PgxTransactionRepository) ListTransactions(ctx context.Context, filter portsrepo.TransactionFilter) ([]domain.Transaction, error) {
	where := transactionWhere(filter)
	query := transactionSelect + where.String() + balanceOrder
	if filter.Limit > 0 {
		query += " LIMIT " + where.next(filter.Limit)
	}
	return r.queryTransactions(ctx, query+";", where.args...)
}

func (r *PgxTransactionRepository) FindLatestRunningBalance(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error) {
	filter := portsrepo.BalanceFilter(accountID)
	filter.To = &asOf
	where := transactionWhere(filter)
	query := `
		SELECT t.running_balance
		FROM transactions t
		JOIN journals j ON j.journal_id = t.journal_id` + where.String() + `
		ORDER BY j.journal_date DESC, t.created_at DESC, t.journal_id DESC, t.line_no DESC
		LIMIT 1;`

	var balance decimal.Decimal
	err := r.Pool.QueryRow(ctx, query, where.args...).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to read latest running balance of account "+accountID, err)
	}
	return balance, nil
}

func (r *PgxTransactionRepository) SoftDeleteTransaction(ctx context.Context, transactionID string, at time.Time) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE transactions SET deleted_at = $2
		WHERE transaction_id = $1 AND deleted_at IS NULL;
	`, transactionID, at)
	if err != nil {
		return apperrors.NewStoreWriteError("failed to delete transaction "+transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found", transactionID))
	}
	return nil
}

// UpdateRunningBalances rewrites the given caches under the account's row lock.
func (r *PgxTransactionRepository) UpdateRunningBalances(ctx context.Context, accountID string, updates map[string]decimal.Decimal, snapshot *decimal.Decimal) error {
	return r.withTx(ctx, "failed to update running balances of account "+accountID, func(tx pgx.Tx) error {
		if err := lockAccounts(ctx, tx, []string{accountID}); err != nil {
			return err
		}

		ids := make([]string, 0, len(updates))
		batch := &pgx.Batch{}
		for id, value := range updates {
			ids = append(ids, id)
			batch.Queue(`UPDATE transactions SET running_balance = $2 WHERE transaction_id = $1 AND account_id = $3;`, id, value, accountID)
		}
		if snapshot != nil {
			batch.Queue(`UPDATE accounts SET balance = $2 WHERE account_id = $1;`, accountID, *snapshot)
		}

		results := tx.SendBatch(ctx, batch)
		for _, id := range ids {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return fmt.Errorf("failed to update running balance of transaction %s: %w", id, err)
			}
			if tag.RowsAffected() == 0 {
				results.Close()
				return apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found for account %s", id, accountID))
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to update balance snapshot: %w", err)
		}
		return nil
	})
}
