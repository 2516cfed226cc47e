package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyExchangeRate is a cache row for a fetched exchange rate, keyed by
// (from_currency, to_currency, date). UpdatedAt decides freshness: a row
// refreshed today is authoritative, older rows are last-resort fallbacks.
type CurrencyExchangeRate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FromCurrency string          `gorm:"not null;size:3;uniqueIndex:idx_currency_rates_pair_date" json:"from_currency"`
	ToCurrency   string          `gorm:"not null;size:3;uniqueIndex:idx_currency_rates_pair_date" json:"to_currency"`
	Date         time.Time       `gorm:"not null;uniqueIndex:idx_currency_rates_pair_date" json:"date"`
	Rate         decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"rate"`
}
