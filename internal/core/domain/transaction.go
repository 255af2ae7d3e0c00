package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType indicates whether a transaction line is a Debit or a Credit.
type TransactionType string

const (
	Debit  TransactionType = "DEBIT"
	Credit TransactionType = "CREDIT"
)

// IsValid reports whether t is DEBIT or CREDIT.
func (t TransactionType) IsValid() bool {
	return t == Debit || t == Credit
}

// Opposite swaps DEBIT and CREDIT.
func (t TransactionType) Opposite() TransactionType {
	if t == Debit {
		return Credit
	}
	return Debit
}

// Transaction represents a single line item within a Journal, affecting one account.
// Amount is always a positive magnitude in the account currency; the sign is derived.
type Transaction struct {
	TransactionID   string           `json:"transactionID"`
	JournalID       string           `json:"journalID"`
	AccountID       string           `json:"accountID"`
	LineNo          int              `json:"lineNo"` // position within the journal
	Amount          decimal.Decimal  `json:"amount"`
	TransactionType TransactionType  `json:"transactionType"`
	CurrencyCode    string           `json:"currencyCode"`
	TransactionDate time.Time        `json:"transactionDate"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate,omitempty"` // account currency × rate = journal currency
	RunningBalance  decimal.Decimal  `json:"runningBalance"`         // cache, rebuildable
	Notes           string           `json:"notes"`
	Tombstone
	AuditFields

	// Read-only fields joined from the owning journal.
	JournalDate   time.Time     `json:"journalDate"`
	JournalStatus JournalStatus `json:"journalStatus,omitempty"`
}

// CompareTransactions orders lines for balance computation: journal date, then
// creation time, then journal ID, then line number.
func CompareTransactions(a, b Transaction) int {
	if c := a.JournalDate.Compare(b.JournalDate); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	if a.JournalID != b.JournalID {
		if a.JournalID < b.JournalID {
			return -1
		}
		return 1
	}
	return a.LineNo - b.LineNo
}
