package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// JournalStatus indicates the state of a journal entry.
type JournalStatus string

const (
	Posted   JournalStatus = "POSTED"
	Reversed JournalStatus = "REVERSED"
)

// Journal is a row of the journals table.
type Journal struct {
	JournalID          string          `db:"journal_id"`
	JournalDate        time.Time       `db:"journal_date"`
	Description        string          `db:"description"`
	CurrencyCode       string          `db:"currency_code"`
	Status             JournalStatus   `db:"status"`
	OriginalJournalID  sql.NullString  `db:"original_journal_id"`
	ReversingJournalID sql.NullString  `db:"reversing_journal_id"`
	Amount             decimal.Decimal `db:"amount"`
	TransactionCount   int             `db:"transaction_count"`
	Tombstone
	AuditFields
}
