package domain

import "github.com/shopspring/decimal"

// BalanceCheck is the result of comparing an account's cached balances with the
// balance recomputed from its active transactions.
type BalanceCheck struct {
	AccountID       string          `json:"accountID"`
	CachedBalance   decimal.Decimal `json:"cachedBalance"`   // running balance of the latest active line
	SnapshotBalance decimal.Decimal `json:"snapshotBalance"` // account-level cache
	ComputedBalance decimal.Decimal `json:"computedBalance"`
	Discrepancy     decimal.Decimal `json:"discrepancy"`
	Matches         bool            `json:"matches"`
}

// IntegritySummary accumulates the outcome of a full verification and repair pass.
type IntegritySummary struct {
	AccountsChecked    int      `json:"accountsChecked"`
	DiscrepanciesFound int      `json:"discrepanciesFound"`
	RepairsAttempted   int      `json:"repairsAttempted"`
	RepairsSuccessful  int      `json:"repairsSuccessful"`
	FailedAccounts     []string `json:"failedAccounts,omitempty"` // could not be checked
	StaleAccounts      []string `json:"staleAccounts,omitempty"`  // repair failed, cache left unchanged
}

// RebuildResult reports what a running-balance rebuild did.
type RebuildResult struct {
	AccountID    string          `json:"accountID"`
	Examined     int             `json:"examined"`
	Written      int             `json:"written"`
	FinalBalance decimal.Decimal `json:"finalBalance"`
}
