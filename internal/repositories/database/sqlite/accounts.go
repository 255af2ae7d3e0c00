package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/models"
	"github.com/SscSPs/mma_ledger/internal/utils/mapping"
	"github.com/shopspring/decimal"
)

const accountColumns = `account_id, name, account_type, currency_code, parent_account_id, description,
	balance, deleted_at, created_at, created_by, last_updated_at, last_updated_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (models.Account, error) {
	var m models.Account
	err := row.Scan(
		&m.AccountID,
		&m.Name,
		&m.AccountType,
		&m.CurrencyCode,
		&m.ParentAccountID,
		&m.Description,
		&m.Balance,
		nullTimeColumn{&m.DeletedAt},
		timeColumn{&m.CreatedAt},
		&m.CreatedBy,
		timeColumn{&m.LastUpdatedAt},
		&m.LastUpdatedBy,
	)
	return m, err
}

func (s *Store) SaveAccount(ctx context.Context, account domain.Account) error {
	m := mapping.ToModelAccount(account)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.AccountID, m.Name, string(m.AccountType), m.CurrencyCode, m.ParentAccountID, m.Description,
		m.Balance, nullTS(m.DeletedAt), ts(m.CreatedAt), m.CreatedBy, ts(m.LastUpdatedAt), m.LastUpdatedBy,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return apperrors.NewConflictError(fmt.Sprintf("account %s already exists", account.AccountID))
	case isForeignKeyViolation(err):
		return apperrors.NewNotFoundError("parent account not found")
	}
	return apperrors.NewStoreWriteError("failed to insert account "+account.AccountID, err)
}

func (s *Store) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_id = ? AND deleted_at IS NULL`, accountID)
	m, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", accountID))
	}
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to find account by ID "+accountID, err)
	}
	acc := mapping.ToDomainAccount(m)
	return &acc, nil
}

func (s *Store) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	result := make(map[string]domain.Account, len(accountIDs))
	if len(accountIDs) == 0 {
		return result, nil
	}
	list, args := inList(accountIDs)
	accounts, err := s.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_id IN `+list+` AND deleted_at IS NULL`, args...)
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		result[acc.AccountID] = acc
	}
	return result, nil
}

func (s *Store) ListAccounts(ctx context.Context, includeDeleted bool) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	return s.queryAccounts(ctx, query+` ORDER BY created_at, account_id`)
}

func (s *Store) queryAccounts(ctx context.Context, query string, args ...any) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query accounts", err)
	}
	defer rows.Close()

	var ms []models.Account
	for rows.Next() {
		m, err := scanAccount(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account row", err)
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating account rows", err)
	}
	return mapping.ToDomainAccountSlice(ms), nil
}

func (s *Store) SoftDeleteAccount(ctx context.Context, accountID string, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET deleted_at = ?, last_updated_at = ?, last_updated_by = ?
		WHERE account_id = ? AND deleted_at IS NULL`,
		ts(at), ts(at), userID, accountID)
	if err != nil {
		return apperrors.NewStoreWriteError("failed to delete account "+accountID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", accountID))
	}
	return nil
}

// checkAccounts verifies that every line posts to an active account and that every
// balance delta targets an existing one.
func checkAccounts(ctx context.Context, q queryer, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal) error {
	for _, txn := range transactions {
		if err := accountExists(ctx, q, txn.AccountID, true); err != nil {
			return err
		}
	}
	for id := range balanceChanges {
		if err := accountExists(ctx, q, id, false); err != nil {
			return err
		}
	}
	return nil
}

func accountExists(ctx context.Context, q queryer, accountID string, activeOnly bool) error {
	query := `SELECT 1 FROM accounts WHERE account_id = ?`
	if activeOnly {
		query += ` AND deleted_at IS NULL`
	}
	var one int
	err := q.QueryRowContext(ctx, query, accountID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", accountID))
	}
	if err != nil {
		return fmt.Errorf("failed to check account %s: %w", accountID, err)
	}
	return nil
}

// applyBalanceChanges adds the signed deltas to the account snapshots. The sum is
// done in Go since balances are stored as text.
func applyBalanceChanges(ctx context.Context, q queryer, balanceChanges map[string]decimal.Decimal, userID string, at time.Time) error {
	for accountID, delta := range balanceChanges {
		var balance decimal.Decimal
		if err := q.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE account_id = ?`, accountID).Scan(&balance); err != nil {
			return fmt.Errorf("failed to read balance of account %s: %w", accountID, err)
		}
		_, err := q.ExecContext(ctx, `
			UPDATE accounts SET balance = ?, last_updated_at = ?, last_updated_by = ?
			WHERE account_id = ?`,
			balance.Add(delta), ts(at), userID, accountID)
		if err != nil {
			return fmt.Errorf("failed to update balance of account %s: %w", accountID, err)
		}
	}
	return nil
}
