package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/clock"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// recurringPaymentService manages the lifecycle of schedule definitions and
// keeps their generated payments in sync.
type recurringPaymentService struct {
	db             *gorm.DB
	paymentService PaymentServicer
	clock          clock.Clock
}

// NewRecurringPaymentService creates a new RecurringPaymentServicer.
func NewRecurringPaymentService(db *gorm.DB, paymentService PaymentServicer, clk clock.Clock) RecurringPaymentServicer {
	return &recurringPaymentService{
		db:             db,
		paymentService: paymentService,
		clock:          clk,
	}
}

// CreateRecurringPayment creates a schedule and, when active, immediately
// projects it up to the default horizon in the same transaction.
func (s *recurringPaymentService) CreateRecurringPayment(userID uint, input RecurringPaymentInput) (*models.RecurringPayment, error) {
	if input.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "recurring payment name is required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !validIntervalType(input.IntervalType) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid interval type")
	}
	if err := s.verifyReferences(userID, input.AccountID, input.CategoryID); err != nil {
		return nil, err
	}

	intervalValue := input.IntervalValue
	if intervalValue < 1 {
		intervalValue = 1
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	rp := &models.RecurringPayment{
		UserID:        userID,
		AccountID:     input.AccountID,
		CategoryID:    input.CategoryID,
		Name:          input.Name,
		Amount:        input.Amount,
		Currency:      strings.ToUpper(input.Currency),
		IntervalType:  input.IntervalType,
		IntervalValue: intervalValue,
		StartDate:     models.StartOfDay(input.StartDate),
		Installments:  input.Installments,
		IsActive:      isActive,
	}
	if input.EndDate != nil {
		endDate := models.StartOfDay(*input.EndDate)
		rp.EndDate = &endDate
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rp).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if rp.IsActive {
			if _, err := s.paymentService.GeneratePaymentsWithDB(tx, rp, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rp, nil
}

// GetUserRecurringPayments lists the user's schedules, active first.
func (s *recurringPaymentService) GetUserRecurringPayments(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringPayment], error) {
	page.Defaults()

	base := s.db.Model(&models.RecurringPayment{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var recurring []models.RecurringPayment
	if err := base.Scopes(pagination.Paginate(page)).
		Order("is_active DESC").
		Order("name").
		Find(&recurring).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(recurring, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetRecurringPaymentByID retrieves a schedule by ID for a specific user.
func (s *recurringPaymentService) GetRecurringPaymentByID(userID, recurringPaymentID uint) (*models.RecurringPayment, error) {
	var rp models.RecurringPayment
	if err := s.db.Where("id = ? AND user_id = ?", recurringPaymentID, userID).First(&rp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecurringPaymentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &rp, nil
}

// UpdateRecurringPayment applies field changes and re-synchronizes the
// generated payments: an active schedule's unpaid payments take on the new
// values and the projection is topped up; deactivation deletes unpaid
// payments while paid ones remain as history.
func (s *recurringPaymentService) UpdateRecurringPayment(userID, recurringPaymentID uint, fields RecurringPaymentUpdateFields) (*models.RecurringPayment, error) {
	rp, err := s.GetRecurringPaymentByID(userID, recurringPaymentID)
	if err != nil {
		return nil, err
	}

	wasActive := rp.IsActive

	updates := make(map[string]interface{})
	if fields.AccountID != nil {
		if err := s.verifyReferences(userID, *fields.AccountID, rp.CategoryID); err != nil {
			return nil, err
		}
		updates["account_id"] = *fields.AccountID
	}
	if fields.CategoryID != nil {
		if err := s.verifyReferences(userID, rp.AccountID, *fields.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *fields.CategoryID
	}
	if fields.Name != nil && *fields.Name != "" {
		updates["name"] = *fields.Name
	}
	if fields.Amount != nil {
		if fields.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		updates["amount"] = *fields.Amount
	}
	if fields.Currency != nil && *fields.Currency != "" {
		updates["currency"] = strings.ToUpper(*fields.Currency)
	}
	if fields.IntervalType != nil {
		if !validIntervalType(*fields.IntervalType) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid interval type")
		}
		updates["interval_type"] = *fields.IntervalType
	}
	if fields.IntervalValue != nil && *fields.IntervalValue >= 1 {
		updates["interval_value"] = *fields.IntervalValue
	}
	if fields.StartDate != nil {
		updates["start_date"] = models.StartOfDay(*fields.StartDate)
	}
	if fields.EndDate != nil {
		if *fields.EndDate == nil {
			updates["end_date"] = nil
		} else {
			updates["end_date"] = models.StartOfDay(**fields.EndDate)
		}
	}
	if fields.Installments != nil {
		if *fields.Installments == nil {
			updates["installments"] = nil
		} else {
			updates["installments"] = **fields.Installments
		}
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(rp).Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Where("id = ?", rp.ID).First(rp).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if rp.IsActive {
			if err := s.syncUnpaidPayments(tx, rp); err != nil {
				return err
			}
			if _, err := s.paymentService.GeneratePaymentsWithDB(tx, rp, nil); err != nil {
				return err
			}
		} else if wasActive {
			if err := s.deleteUnpaidPayments(tx, rp.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rp, nil
}

// ActivateRecurringPayment re-enables a schedule and regenerates payments.
func (s *recurringPaymentService) ActivateRecurringPayment(userID, recurringPaymentID uint) (*models.RecurringPayment, error) {
	active := true
	return s.UpdateRecurringPayment(userID, recurringPaymentID, RecurringPaymentUpdateFields{IsActive: &active})
}

// DeactivateRecurringPayment disables a schedule, deleting its unpaid
// generated payments. Paid payments are history and stay untouched.
func (s *recurringPaymentService) DeactivateRecurringPayment(userID, recurringPaymentID uint) (*models.RecurringPayment, error) {
	active := false
	return s.UpdateRecurringPayment(userID, recurringPaymentID, RecurringPaymentUpdateFields{IsActive: &active})
}

// DeleteRecurringPayment deletes the schedule after removing its unpaid
// payments, in one atomic unit.
func (s *recurringPaymentService) DeleteRecurringPayment(userID, recurringPaymentID uint) error {
	rp, err := s.GetRecurringPaymentByID(userID, recurringPaymentID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.deleteUnpaidPayments(tx, rp.ID); err != nil {
			return err
		}
		if err := tx.Delete(rp).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// RegeneratePayments tops up the projection for one schedule on demand.
func (s *recurringPaymentService) RegeneratePayments(userID, recurringPaymentID uint) ([]models.Payment, error) {
	rp, err := s.GetRecurringPaymentByID(userID, recurringPaymentID)
	if err != nil {
		return nil, err
	}
	if !rp.IsActive {
		return nil, nil
	}
	return s.paymentService.GeneratePayments(rp, nil)
}

// Statistics aggregates the schedule's generated payments.
func (s *recurringPaymentService) Statistics(userID, recurringPaymentID uint) (*RecurringPaymentStats, error) {
	rp, err := s.GetRecurringPaymentByID(userID, recurringPaymentID)
	if err != nil {
		return nil, err
	}

	var payments []models.Payment
	if err := s.db.Where("recurring_payment_id = ?", rp.ID).Find(&payments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	stats := &RecurringPaymentStats{
		TotalPayments:      len(payments),
		TotalPaidAmount:    decimal.Zero,
		TotalPendingAmount: decimal.Zero,
	}

	var latestDue *time.Time
	for i := range payments {
		p := &payments[i]
		if p.IsPaid {
			stats.PaidPayments++
			stats.TotalPaidAmount = stats.TotalPaidAmount.Add(p.Amount)
		} else {
			stats.UnpaidPayments++
			stats.TotalPendingAmount = stats.TotalPendingAmount.Add(p.Amount)
		}
		if latestDue == nil || p.DueDate.After(*latestDue) {
			due := p.DueDate
			latestDue = &due
		}
	}

	if latestDue != nil {
		next := rp.NextDate(models.StartOfDay(*latestDue))
		stats.NextDueDate = &next
	} else {
		start := models.StartOfDay(rp.StartDate)
		stats.NextDueDate = &start
	}

	return stats, nil
}

// syncUnpaidPayments pushes the schedule's current values onto its unpaid
// payments so future obligations track edits. Paid payments are immutable
// history.
func (s *recurringPaymentService) syncUnpaidPayments(tx *gorm.DB, rp *models.RecurringPayment) error {
	err := tx.Model(&models.Payment{}).
		Where("recurring_payment_id = ? AND is_paid = ?", rp.ID, false).
		Updates(map[string]interface{}{
			"account_id":  rp.AccountID,
			"category_id": rp.CategoryID,
			"amount":      rp.Amount,
			"currency":    rp.Currency,
			"description": rp.Name,
		}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *recurringPaymentService) deleteUnpaidPayments(tx *gorm.DB, recurringPaymentID uint) error {
	err := tx.Where("recurring_payment_id = ? AND is_paid = ?", recurringPaymentID, false).
		Delete(&models.Payment{}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *recurringPaymentService) verifyReferences(userID, accountID, categoryID uint) error {
	var count int64
	if err := s.db.Model(&models.Account{}).Where("id = ? AND user_id = ?", accountID, userID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrAccountNotFound
	}
	if err := s.db.Model(&models.Category{}).Where("id = ? AND user_id = ?", categoryID, userID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrCategoryNotFound
	}
	return nil
}

func validIntervalType(t models.IntervalType) bool {
	switch t {
	case models.IntervalTypeDays, models.IntervalTypeWeeks, models.IntervalTypeMonths, models.IntervalTypeYears:
		return true
	}
	return false
}
