package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IntervalType represents the unit of a recurring payment's interval.
type IntervalType string

const (
	IntervalTypeDays   IntervalType = "days"
	IntervalTypeWeeks  IntervalType = "weeks"
	IntervalTypeMonths IntervalType = "months"
	IntervalTypeYears  IntervalType = "years"
)

// RecurringPayment is a schedule definition that generates Payment rows over
// time. It is a generator, not a ledger entry.
type RecurringPayment struct {
	Base
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	AccountID     uint            `gorm:"not null;index" json:"account_id"`
	CategoryID    uint            `gorm:"not null;index" json:"category_id"`
	Name          string          `gorm:"not null" json:"name"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency      string          `gorm:"not null;size:3" json:"currency"`
	IntervalType  IntervalType    `gorm:"not null" json:"interval_type"`
	IntervalValue int             `gorm:"not null;default:1" json:"interval_value"`
	StartDate     time.Time       `gorm:"not null" json:"start_date"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	Installments  *int            `json:"installments,omitempty"`
	IsActive      bool            `gorm:"default:true" json:"is_active"`

	// Relationships
	Account  Account   `gorm:"foreignKey:AccountID" json:"account,omitzero"`
	Category Category  `gorm:"foreignKey:CategoryID" json:"category,omitzero"`
	Payments []Payment `gorm:"foreignKey:RecurringPaymentID" json:"payments,omitempty"`
}

// NextDate returns the due date one interval after fromDate. Month and year
// steps keep the day-of-month, clamping at month-end overflow (Jan 31 plus
// one month is Feb 28/29, not Mar 2).
func (rp *RecurringPayment) NextDate(fromDate time.Time) time.Time {
	value := rp.IntervalValue
	if value < 1 {
		value = 1
	}

	switch rp.IntervalType {
	case IntervalTypeDays:
		return fromDate.AddDate(0, 0, value)
	case IntervalTypeWeeks:
		return fromDate.AddDate(0, 0, 7*value)
	case IntervalTypeMonths:
		return addMonthsClamped(fromDate, value)
	case IntervalTypeYears:
		return addMonthsClamped(fromDate, 12*value)
	}
	return fromDate
}

// HasEnded reports whether the schedule can no longer produce payments:
// either the end date lies strictly before today, or the installment cap has
// been reached by the given number of existing payments.
func (rp *RecurringPayment) HasEnded(today time.Time, paymentCount int64) bool {
	if rp.EndDate != nil && rp.EndDate.Before(StartOfDay(today)) {
		return true
	}
	if rp.Installments != nil && paymentCount >= int64(*rp.Installments) {
		return true
	}
	return false
}

// addMonthsClamped adds months keeping the day-of-month where possible.
// time.AddDate normalizes overflow into the next month, which is the wrong
// behavior for billing schedules.
func addMonthsClamped(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := firstOfTarget.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// StartOfDay truncates a time to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
