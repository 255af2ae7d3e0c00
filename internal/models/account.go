package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Income    AccountType = "INCOME"
	Expense   AccountType = "EXPENSE"
)

// Account is a row of the accounts table.
type Account struct {
	AccountID       string          `db:"account_id"`
	Name            string          `db:"name"`
	AccountType     AccountType     `db:"account_type"`
	CurrencyCode    string          `db:"currency_code"`
	ParentAccountID sql.NullString  `db:"parent_account_id"`
	Description     string          `db:"description"`
	Balance         decimal.Decimal `db:"balance"` // snapshot, rebuildable
	Tombstone
	AuditFields
}
