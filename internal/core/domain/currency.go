package domain

import "github.com/shopspring/decimal"

// Currency describes a currency and its decimal precision.
type Currency struct {
	CurrencyCode string `json:"currencyCode"` // e.g. "USD"
	Precision    int32  `json:"precision"`    // number of fraction digits
}

// ExchangeRate converts an amount in FromCurrency into ToCurrency.
type ExchangeRate struct {
	FromCurrencyCode string          `json:"fromCurrencyCode"`
	ToCurrencyCode   string          `json:"toCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"`
}
