package services

import (
	"context"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
)

// CurrencySvc resolves currency precision and exchange rates.
type CurrencySvc interface {
	// GetCurrency returns the currency with its precision, ErrNotFound when unknown.
	GetCurrency(ctx context.Context, currencyCode string) (*domain.Currency, error)

	// Precision returns the number of fraction digits of a currency.
	Precision(ctx context.Context, currencyCode string) (int32, error)

	// GetExchangeRate returns the rate converting from into to.
	GetExchangeRate(ctx context.Context, fromCode, toCode string) (*domain.ExchangeRate, error)
}

// AuditSvc receives entity-changed events. It is write-only.
type AuditSvc interface {
	Record(ctx context.Context, event domain.AuditEvent)
}

// ChangeNotifier is told which accounts and journals changed so an observation layer
// can push updates.
type ChangeNotifier interface {
	Notify(ctx context.Context, changes domain.ChangeSet)
}
