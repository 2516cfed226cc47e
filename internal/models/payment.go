package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType represents the direction of a payment.
type PaymentType string

const (
	PaymentTypeIncome  PaymentType = "income"
	PaymentTypeExpense PaymentType = "expense"
)

// PaymentTypeFromCategory derives the payment type from the category type at
// generation time. The derived type is fixed on the payment afterwards.
func PaymentTypeFromCategory(categoryType CategoryType) PaymentType {
	switch categoryType {
	case CategoryTypeIncome:
		return PaymentTypeIncome
	case CategoryTypeExpense:
		return PaymentTypeExpense
	}
	return PaymentTypeExpense
}

// Payment is a single materialized, due-dated obligation, optionally
// generated from a recurring payment. At most one payment may exist per
// (recurring_payment_id, due_date) pair; the composite unique index is the
// projector's de-duplication backstop.
//
// Payments are hard-deleted: a tombstoned row would collide with the unique
// index when the same due date is regenerated later.
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID             uint            `gorm:"not null;index" json:"user_id"`
	AccountID          uint            `gorm:"not null;index" json:"account_id"`
	CategoryID         uint            `gorm:"not null;index" json:"category_id"`
	RecurringPaymentID *uint           `gorm:"uniqueIndex:idx_payments_recurring_due" json:"recurring_payment_id,omitempty"`
	TransactionID      *uint           `json:"transaction_id,omitempty"`
	Type               PaymentType     `gorm:"not null" json:"type"`
	Amount             decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency           string          `gorm:"not null;size:3" json:"currency"`
	Description        string          `json:"description"`
	DueDate            time.Time       `gorm:"not null;uniqueIndex:idx_payments_recurring_due" json:"due_date"`
	IsPaid             bool            `gorm:"not null;default:false" json:"is_paid"`
	PaidAt             *time.Time      `json:"paid_at,omitempty"`

	// Relationships
	Account          Account           `gorm:"foreignKey:AccountID" json:"account,omitzero"`
	Category         Category          `gorm:"foreignKey:CategoryID" json:"category,omitzero"`
	RecurringPayment *RecurringPayment `gorm:"foreignKey:RecurringPaymentID" json:"recurring_payment,omitempty"`
	Transaction      *Transaction      `gorm:"foreignKey:TransactionID" json:"transaction,omitempty"`
}

// IsOverdue reports whether the payment is unpaid and due before today.
func (p *Payment) IsOverdue(today time.Time) bool {
	return !p.IsPaid && p.DueDate.Before(StartOfDay(today))
}
