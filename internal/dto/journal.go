package dto

import (
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LineInput is one requested journal line. Amount is a positive magnitude in the
// account currency.
type LineInput struct {
	AccountID    string                 `json:"accountID" binding:"required"`
	Amount       decimal.Decimal        `json:"amount"`
	Type         domain.TransactionType `json:"type" binding:"required,oneof=DEBIT CREDIT"`
	ExchangeRate *decimal.Decimal       `json:"exchangeRate,omitempty" binding:"omitempty,decimal_gt0"`
	Notes        string                 `json:"notes"`
}

// CreateJournalRequest defines the data needed to record a journal with its lines.
type CreateJournalRequest struct {
	Date         time.Time   `json:"date" binding:"required"`
	Description  string      `json:"description"`
	CurrencyCode string      `json:"currencyCode" binding:"required,currency"`
	Lines        []LineInput `json:"lines" binding:"required,dive"`
	UserID       string      `json:"-"`
}

// JournalPatch lists exactly the mutable fields of a journal. Nil fields are left
// unchanged; a non-nil Lines replaces every line of the journal.
type JournalPatch struct {
	Date        *time.Time   `json:"date"`
	Description *string      `json:"description"`
	Lines       *[]LineInput `json:"lines" binding:"omitempty,dive"`
	UserID      string       `json:"-"`
}

// IsEmpty reports whether the patch changes nothing.
func (p JournalPatch) IsEmpty() bool {
	return p.Date == nil && p.Description == nil && p.Lines == nil
}

// ReverseJournalRequest optionally overrides the reversal's description and date.
type ReverseJournalRequest struct {
	Description string     `json:"description"`
	Date        *time.Time `json:"date"`
	UserID      string     `json:"-"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	TransactionID   string           `json:"transactionID"`
	JournalID       string           `json:"journalID"`
	AccountID       string           `json:"accountID"`
	LineNo          int              `json:"lineNo"`
	Amount          decimal.Decimal  `json:"amount"`
	Type            string           `json:"type"` // DEBIT or CREDIT
	CurrencyCode    string           `json:"currencyCode"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate,omitempty"`
	RunningBalance  decimal.Decimal  `json:"runningBalance"`
	TransactionDate time.Time        `json:"transactionDate"`
	Notes           string           `json:"notes,omitempty"`
	DeletedAt       *time.Time       `json:"deletedAt,omitempty"`
}

// JournalResponse defines the data returned for a journal entry.
type JournalResponse struct {
	JournalID          string                `json:"journalID"`
	Date               time.Time             `json:"date"`
	Description        string                `json:"description"`
	CurrencyCode       string                `json:"currencyCode"`
	Status             domain.JournalStatus  `json:"status"`
	OriginalJournalID  *string               `json:"originalJournalID,omitempty"`
	ReversingJournalID *string               `json:"reversingJournalID,omitempty"`
	TotalAmount        decimal.Decimal       `json:"totalAmount"`
	TransactionCount   int                   `json:"transactionCount"`
	CreatedAt          time.Time             `json:"createdAt"`
	CreatedBy          string                `json:"createdBy"`
	Transactions       []TransactionResponse `json:"transactions,omitempty"`
}

// ListTransactionsParams defines query parameters for listing an account's transactions.
type ListTransactionsParams struct {
	From           *time.Time `form:"from" time_format:"2006-01-02"`
	To             *time.Time `form:"to" time_format:"2006-01-02"`
	IncludeDeleted bool       `form:"includeDeleted"`
	Limit          int        `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:   txn.TransactionID,
		JournalID:       txn.JournalID,
		AccountID:       txn.AccountID,
		LineNo:          txn.LineNo,
		Amount:          txn.Amount,
		Type:            string(txn.TransactionType),
		CurrencyCode:    txn.CurrencyCode,
		ExchangeRate:    txn.ExchangeRate,
		RunningBalance:  txn.RunningBalance,
		TransactionDate: txn.TransactionDate,
		Notes:           txn.Notes,
		DeletedAt:       txn.DeletedAt,
	}
}

// ToTransactionResponses converts a slice of domain.Transaction to []TransactionResponse.
func ToTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txns))
	for i := range txns {
		responses[i] = ToTransactionResponse(&txns[i])
	}
	return responses
}

// ToJournalResponse converts a domain.Journal (with any loaded lines) to JournalResponse DTO.
func ToJournalResponse(j *domain.Journal) JournalResponse {
	resp := JournalResponse{
		JournalID:          j.JournalID,
		Date:               j.JournalDate,
		Description:        j.Description,
		CurrencyCode:       j.CurrencyCode,
		Status:             j.Status,
		OriginalJournalID:  j.OriginalJournalID,
		ReversingJournalID: j.ReversingJournalID,
		TotalAmount:        j.TotalAmount,
		TransactionCount:   j.TransactionCount,
		CreatedAt:          j.CreatedAt,
		CreatedBy:          j.CreatedBy,
	}
	if len(j.Transactions) > 0 {
		resp.Transactions = ToTransactionResponses(j.Transactions)
	}
	return resp
}

// ListTransactionsResponse wraps a list of transaction lines.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}
