package repositories

import (
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
)

// TransactionFilter selects transaction lines. The zero value matches every active
// line of every active journal, whatever its status.
type TransactionFilter struct {
	AccountID      string
	JournalID      string
	From           *time.Time // inclusive, on journal date
	To             *time.Time // inclusive, on journal date
	Statuses       []domain.JournalStatus
	IncludeDeleted bool
	Limit          int // 0 means no limit
}

// BalanceFilter returns the filter used for balance computation: the active lines of
// an account whose journals count towards balances.
func BalanceFilter(accountID string) TransactionFilter {
	return TransactionFilter{AccountID: accountID, Statuses: domain.BalanceStatuses}
}

// MatchesStatus reports whether status passes the filter.
func (f TransactionFilter) MatchesStatus(status domain.JournalStatus) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// MatchesDate reports whether a journal date lies within the filter's range.
func (f TransactionFilter) MatchesDate(date time.Time) bool {
	if f.From != nil && date.Before(*f.From) {
		return false
	}
	if f.To != nil && date.After(*f.To) {
		return false
	}
	return true
}

// JournalFilter selects journals.
type JournalFilter struct {
	From           *time.Time
	To             *time.Time
	Statuses       []domain.JournalStatus
	IncludeDeleted bool
}
