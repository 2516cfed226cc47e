package models

import (
	"github.com/shopspring/decimal"
)

// Account represents a financial account in the system. Balance is kept as a
// running total: initial_balance plus every applied transaction delta.
type Account struct {
	Base
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	Name           string          `gorm:"not null" json:"name"`
	Currency       string          `gorm:"not null;size:3" json:"currency"`
	Balance        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance"`
	InitialBalance decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"initial_balance"`

	// Relationships
	Transactions      []Transaction      `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
	RecurringPayments []RecurringPayment `gorm:"foreignKey:AccountID" json:"recurring_payments,omitempty"`
	Payments          []Payment          `gorm:"foreignKey:AccountID" json:"payments,omitempty"`
}
