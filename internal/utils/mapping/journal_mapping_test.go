package mapping

import (
	"testing"
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionMapping_NullableColumns(t *testing.T) {
	rate := decimal.RequireFromString("1.10")
	deleted := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	d := domain.Transaction{
		TransactionID: "t1",
		Amount:        decimal.NewFromInt(100),
		ExchangeRate:  &rate,
		Tombstone:     domain.Tombstone{DeletedAt: &deleted},
	}

	m := ToModelTransaction(d)
	assert.True(t, m.ExchangeRate.Valid)
	assert.True(t, m.DeletedAt.Valid)

	back := ToDomainTransaction(m)
	require.NotNil(t, back.ExchangeRate)
	assert.True(t, rate.Equal(*back.ExchangeRate))
	assert.True(t, back.IsDeleted())

	plain := ToDomainTransaction(ToModelTransaction(domain.Transaction{TransactionID: "t2"}))
	assert.Nil(t, plain.ExchangeRate)
	assert.False(t, plain.IsDeleted())
}

func TestJournalMapping_ReversalLinks(t *testing.T) {
	original := "j1"
	m := ToModelJournal(domain.Journal{JournalID: "j2", OriginalJournalID: &original, TotalAmount: decimal.NewFromInt(5)})
	assert.True(t, m.OriginalJournalID.Valid)
	assert.False(t, m.ReversingJournalID.Valid)

	d := ToDomainJournal(m)
	require.NotNil(t, d.OriginalJournalID)
	assert.Equal(t, "j1", *d.OriginalJournalID)
	assert.Nil(t, d.ReversingJournalID)
	assert.True(t, d.IsReversal())
}
