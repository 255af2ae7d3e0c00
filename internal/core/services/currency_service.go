package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// rateScale is the number of fraction digits kept when inverting a configured rate.
const rateScale = 12

// currencyService resolves precision from ISO 4217 data with configured overrides,
// and exchange rates from a static table keyed "FROM/TO".
type currencyService struct {
	BaseService
	precisionOverrides map[string]int32
	rates              map[string]decimal.Decimal
}

// NewCurrencyService creates a CurrencySvc. Rates are looked up directly, then as
// the inverse of the opposite pair.
func NewCurrencyService(precisionOverrides map[string]int32, rates map[string]decimal.Decimal) portssvc.CurrencySvc {
	svc := &currencyService{
		precisionOverrides: make(map[string]int32, len(precisionOverrides)),
		rates:              make(map[string]decimal.Decimal, len(rates)),
	}
	for code, p := range precisionOverrides {
		svc.precisionOverrides[strings.ToUpper(code)] = p
	}
	for pair, rate := range rates {
		svc.rates[strings.ToUpper(pair)] = rate
	}
	return svc
}

var _ portssvc.CurrencySvc = (*currencyService)(nil)

func (s *currencyService) GetCurrency(_ context.Context, currencyCode string) (*domain.Currency, error) {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if p, ok := s.precisionOverrides[code]; ok {
		return &domain.Currency{CurrencyCode: code, Precision: p}, nil
	}
	cur := money.GetCurrency(code)
	if cur == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("currency %q is not supported", currencyCode))
	}
	return &domain.Currency{CurrencyCode: cur.Code, Precision: int32(cur.Fraction)}, nil
}

func (s *currencyService) Precision(ctx context.Context, currencyCode string) (int32, error) {
	cur, err := s.GetCurrency(ctx, currencyCode)
	if err != nil {
		return 0, err
	}
	return cur.Precision, nil
}

func (s *currencyService) GetExchangeRate(_ context.Context, fromCode, toCode string) (*domain.ExchangeRate, error) {
	from, to := strings.ToUpper(fromCode), strings.ToUpper(toCode)
	if from == to {
		return &domain.ExchangeRate{FromCurrencyCode: from, ToCurrencyCode: to, Rate: decimal.NewFromInt(1)}, nil
	}
	if rate, ok := s.rates[from+"/"+to]; ok {
		return &domain.ExchangeRate{FromCurrencyCode: from, ToCurrencyCode: to, Rate: rate}, nil
	}
	if inverse, ok := s.rates[to+"/"+from]; ok && !inverse.IsZero() {
		return &domain.ExchangeRate{
			FromCurrencyCode: from,
			ToCurrencyCode:   to,
			Rate:             decimal.NewFromInt(1).DivRound(inverse, rateScale),
		}, nil
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("no exchange rate from %s to %s", from, to))
}
