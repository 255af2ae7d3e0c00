package mapping

import (
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/models"
	"github.com/shopspring/decimal"
)

// ToModelJournal converts a domain Journal to a model Journal
func ToModelJournal(d domain.Journal) models.Journal {
	return models.Journal{
		JournalID:          d.JournalID,
		JournalDate:        d.JournalDate,
		Description:        d.Description,
		CurrencyCode:       d.CurrencyCode,
		Status:             models.JournalStatus(d.Status),
		OriginalJournalID:  NullString(d.OriginalJournalID),
		ReversingJournalID: NullString(d.ReversingJournalID),
		Amount:             d.TotalAmount,
		TransactionCount:   d.TransactionCount,
		Tombstone:          ToModelTombstone(d.Tombstone),
		AuditFields:        ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainJournal converts a model Journal to a domain Journal
func ToDomainJournal(m models.Journal) domain.Journal {
	return domain.Journal{
		JournalID:          m.JournalID,
		JournalDate:        m.JournalDate.UTC(),
		Description:        m.Description,
		CurrencyCode:       m.CurrencyCode,
		Status:             domain.JournalStatus(m.Status),
		OriginalJournalID:  StringPtr(m.OriginalJournalID),
		ReversingJournalID: StringPtr(m.ReversingJournalID),
		TotalAmount:        m.Amount,
		TransactionCount:   m.TransactionCount,
		Tombstone:          ToDomainTombstone(m.Tombstone),
		AuditFields:        ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelTransaction converts a domain Transaction to a model Transaction
func ToModelTransaction(d domain.Transaction) models.Transaction {
	m := models.Transaction{
		TransactionID:   d.TransactionID,
		JournalID:       d.JournalID,
		AccountID:       d.AccountID,
		LineNo:          d.LineNo,
		Amount:          d.Amount,
		TransactionType: models.TransactionType(d.TransactionType),
		CurrencyCode:    d.CurrencyCode,
		TransactionDate: d.TransactionDate,
		RunningBalance:  d.RunningBalance,
		Notes:           d.Notes,
		Tombstone:       ToModelTombstone(d.Tombstone),
		AuditFields:     ToModelAuditFields(d.AuditFields),
		JournalDate:     d.JournalDate,
		JournalStatus:   models.JournalStatus(d.JournalStatus),
	}
	if d.ExchangeRate != nil {
		m.ExchangeRate = decimal.NullDecimal{Decimal: *d.ExchangeRate, Valid: true}
	}
	return m
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	d := domain.Transaction{
		TransactionID:   m.TransactionID,
		JournalID:       m.JournalID,
		AccountID:       m.AccountID,
		LineNo:          m.LineNo,
		Amount:          m.Amount,
		TransactionType: domain.TransactionType(m.TransactionType),
		CurrencyCode:    m.CurrencyCode,
		TransactionDate: m.TransactionDate.UTC(),
		RunningBalance:  m.RunningBalance,
		Notes:           m.Notes,
		Tombstone:       ToDomainTombstone(m.Tombstone),
		AuditFields:     ToDomainAuditFields(m.AuditFields),
		JournalDate:     m.JournalDate.UTC(),
		JournalStatus:   domain.JournalStatus(m.JournalStatus),
	}
	if m.ExchangeRate.Valid {
		rate := m.ExchangeRate.Decimal
		d.ExchangeRate = &rate
	}
	return d
}

// ToDomainTransactionSlice converts a slice of model Transactions to a slice of domain Transactions
func ToDomainTransactionSlice(ms []models.Transaction) []domain.Transaction {
	ds := make([]domain.Transaction, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTransaction(m)
	}
	return ds
}
