package models

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

// Transaction is a row of the transactions table, plus the journal columns every
// transaction query joins in.
type Transaction struct {
	TransactionID   string              `db:"transaction_id"`
	JournalID       string              `db:"journal_id"`
	AccountID       string              `db:"account_id"`
	LineNo          int                 `db:"line_no"`
	Amount          decimal.Decimal     `db:"amount"`
	TransactionType TransactionType     `db:"transaction_type"`
	CurrencyCode    string              `db:"currency_code"`
	TransactionDate time.Time           `db:"transaction_date"`
	ExchangeRate    decimal.NullDecimal `db:"exchange_rate"`
	RunningBalance  decimal.Decimal     `db:"running_balance"`
	Notes           string              `db:"notes"`
	Tombstone
	AuditFields

	JournalDate   time.Time     `db:"journal_date"`
	JournalStatus JournalStatus `db:"status"`
}
