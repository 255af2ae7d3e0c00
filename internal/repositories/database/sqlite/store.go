// Package sqlite is the embedded LedgerStore, for single-node deployments and the
// CLI. It shares the row models and mappings of the PostgreSQL store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timeLayout is fixed width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the SQLite LedgerStore.
type Store struct {
	db *sql.DB
}

var _ portsrepo.LedgerStore = (*Store)(nil)

// New applies the schema to db and returns a store that owns it.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	for _, stmt := range Migrations() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to apply sqlite migration: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	_ = s.db.Close()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction. Errors that already carry a kind are returned
// as is; anything else becomes a store write error.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreWriteError("failed to begin transaction", err)
	}
	defer tx.Rollback() // no-op once committed

	if err := fn(tx); err != nil {
		var appErr *apperrors.AppError
		var vErr *apperrors.ValidationError
		if errors.As(err, &appErr) || errors.As(err, &vErr) {
			return err
		}
		return apperrors.NewStoreWriteError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreWriteError("failed to commit transaction", err)
	}
	return nil
}

func errorCode(err error) int {
	var sErr *sqlite.Error
	if errors.As(err, &sErr) {
		return sErr.Code()
	}
	return 0
}

func isUniqueViolation(err error) bool {
	code := errorCode(err)
	return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func isForeignKeyViolation(err error) bool {
	return errorCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func ts(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTS(t sql.NullTime) any {
	if !t.Valid {
		return nil
	}
	return ts(t.Time)
}

// timeColumn scans a stored time.
type timeColumn struct{ dst *time.Time }

func (c timeColumn) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	case time.Time:
		*c.dst = v.UTC()
		return nil
	}
	return fmt.Errorf("cannot scan %T into a time", src)
}

func (c timeColumn) parse(s string) error {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	*c.dst = t.UTC()
	return nil
}

// nullTimeColumn scans a nullable stored time.
type nullTimeColumn struct{ dst *sql.NullTime }

func (c nullTimeColumn) Scan(src any) error {
	if src == nil {
		*c.dst = sql.NullTime{}
		return nil
	}
	var t time.Time
	if err := (timeColumn{dst: &t}).Scan(src); err != nil {
		return err
	}
	*c.dst = sql.NullTime{Time: t, Valid: true}
	return nil
}

// whereBuilder assembles a WHERE clause with `?` placeholders.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// inList returns "(?, ?, ...)" and its arguments.
func inList[T ~string](values []T) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = string(v)
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ") + ")", args
}

func statusClause(column string, statuses []domain.JournalStatus) (string, []any) {
	list, args := inList(statuses)
	return column + " IN " + list, args
}
