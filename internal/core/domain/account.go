package domain

import (
	"fmt"

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

// IsValid reports whether t is one of the five account types.
func (t AccountType) IsValid() bool {
	switch t {
	case Asset, Liability, Equity, Income, Expense:
		return true
	}
	return false
}

// IncreaseSide returns the transaction type that increases an account of this type.
// ASSET/EXPENSE increase on DEBIT; LIABILITY/EQUITY/INCOME increase on CREDIT.
func (t AccountType) IncreaseSide() (TransactionType, error) {
	switch t {
	case Asset, Expense:
		return Debit, nil
	case Liability, Equity, Income:
		return Credit, nil
	default:
		return "", fmt.Errorf("unknown account type '%s'", t)
	}
}

// Account represents a financial account within the core domain.
type Account struct {
	AccountID       string          `json:"accountID"`
	Name            string          `json:"name"`
	AccountType     AccountType     `json:"accountType"` // fixed once created
	CurrencyCode    string          `json:"currencyCode"`
	ParentAccountID *string         `json:"parentAccountID,omitempty"`
	Description     string          `json:"description"`
	Balance         decimal.Decimal `json:"balance"` // cached snapshot, rebuildable
	Tombstone
	AuditFields
}
