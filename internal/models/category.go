package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category represents a transaction category
type Category struct {
	Base
	UserID uint         `gorm:"not null;index" json:"user_id"`
	Name   string       `gorm:"not null" json:"name"`
	Type   CategoryType `gorm:"not null" json:"type"`
	Icon   string       `json:"icon"`
	Color  string       `json:"color"`

	// Relationships
	Transactions      []Transaction      `gorm:"foreignKey:CategoryID" json:"transactions,omitempty"`
	RecurringPayments []RecurringPayment `gorm:"foreignKey:CategoryID" json:"recurring_payments,omitempty"`
	Payments          []Payment          `gorm:"foreignKey:CategoryID" json:"payments,omitempty"`
}
