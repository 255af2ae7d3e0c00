package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalStatus indicates the state of a journal entry.
type JournalStatus string

const (
	Posted   JournalStatus = "POSTED"
	Reversed JournalStatus = "REVERSED" // terminal
)

// AffectsBalances reports whether lines of a journal in this status count towards
// account balances. A reversed journal keeps counting: its reversal nets it to zero.
func (s JournalStatus) AffectsBalances() bool {
	return s == Posted || s == Reversed
}

// JournalStatuses lists every journal status.
var JournalStatuses = []JournalStatus{Posted, Reversed}

// BalanceStatuses are the journal statuses whose lines are included in running balances.
var BalanceStatuses = balanceStatuses()

func balanceStatuses() []JournalStatus {
	statuses := make([]JournalStatus, 0, len(JournalStatuses))
	for _, s := range JournalStatuses {
		if s.AffectsBalances() {
			statuses = append(statuses, s)
		}
	}
	return statuses
}

// Journal represents a single, balanced financial event composed of multiple transactions.
type Journal struct {
	JournalID          string          `json:"journalID"`
	JournalDate        time.Time       `json:"journalDate"` // logical ordering key
	Description        string          `json:"description"`
	CurrencyCode       string          `json:"currencyCode"`
	Status             JournalStatus   `json:"status"`
	OriginalJournalID  *string         `json:"originalJournalID,omitempty"`  // set on a reversal
	ReversingJournalID *string         `json:"reversingJournalID,omitempty"` // set on a reversed original
	TotalAmount        decimal.Decimal `json:"totalAmount"`                  // Σ debits in journal currency
	TransactionCount   int             `json:"transactionCount"`
	Tombstone
	AuditFields

	Transactions []Transaction `json:"transactions,omitempty"` // populated on demand
}

// IsReversal reports whether this journal was created to reverse another one.
func (j Journal) IsReversal() bool {
	return j.OriginalJournalID != nil
}

// IsMutable reports whether the journal may still be edited, deleted or reversed.
func (j Journal) IsMutable() bool {
	return j.Status == Posted && !j.IsReversal() && !j.IsDeleted()
}
