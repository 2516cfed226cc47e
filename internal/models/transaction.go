package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// Transaction represents a ledger entry that has already affected an account
// balance. Transfers exist as exactly two rows, one per account, each
// pointing at the other through LinkedTransactionID.
type Transaction struct {
	Base
	UserID             uint             `gorm:"not null;index" json:"user_id"`
	AccountID          uint             `gorm:"not null;index" json:"account_id"`
	CategoryID         *uint            `json:"category_id,omitempty"`
	RecurringPaymentID *uint            `json:"recurring_payment_id,omitempty"`
	Type               TransactionType  `gorm:"not null" json:"type"`
	Amount             decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency           string           `gorm:"not null;size:3" json:"currency"`
	Description        string           `json:"description"`
	Date               time.Time        `gorm:"not null;index" json:"date"`
	ExchangeRate       *decimal.Decimal `gorm:"type:decimal(20,6)" json:"exchange_rate,omitempty"`

	// For transfers
	FromAccountID       *uint `json:"from_account_id,omitempty"`
	ToAccountID         *uint `json:"to_account_id,omitempty"`
	LinkedTransactionID *uint `json:"linked_transaction_id,omitempty"`

	// Relationships
	Account           Account      `gorm:"foreignKey:AccountID" json:"account,omitzero"`
	Category          *Category    `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	FromAccount       *Account     `gorm:"foreignKey:FromAccountID" json:"from_account,omitempty"`
	ToAccount         *Account     `gorm:"foreignKey:ToAccountID" json:"to_account,omitempty"`
	LinkedTransaction *Transaction `gorm:"foreignKey:LinkedTransactionID" json:"linked_transaction,omitempty"`
}

// IsTransfer reports whether the transaction is one leg of a transfer pair.
func (t *Transaction) IsTransfer() bool {
	return t.Type == TransactionTypeTransfer
}
