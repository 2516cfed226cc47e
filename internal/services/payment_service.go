package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/clock"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// defaultHorizonMonths is how far ahead schedules are projected when the
// caller does not narrow the horizon.
const defaultHorizonMonths = 12

// paymentService implements the recurring schedule projector and the
// payment settlement engine.
type paymentService struct {
	db             *gorm.DB
	accountService AccountServicer
	clock          clock.Clock
}

// NewPaymentService creates a new PaymentServicer.
func NewPaymentService(db *gorm.DB, accountService AccountServicer, clk clock.Clock) PaymentServicer {
	return &paymentService{
		db:             db,
		accountService: accountService,
		clock:          clk,
	}
}

// GeneratePayments projects a recurring payment into concrete Payment rows
// up to the horizon, inside its own database transaction. Idempotent: due
// dates that already have a row are skipped.
func (s *paymentService) GeneratePayments(rp *models.RecurringPayment, until *time.Time) ([]models.Payment, error) {
	var created []models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		created, txErr = s.GeneratePaymentsWithDB(tx, rp, until)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GeneratePaymentsWithDB runs the projection loop inside the caller's
// database transaction so settlement can regenerate the next occurrence
// atomically with marking the current one paid.
func (s *paymentService) GeneratePaymentsWithDB(tx *gorm.DB, rp *models.RecurringPayment, until *time.Time) ([]models.Payment, error) {
	if !rp.IsActive {
		return nil, nil
	}

	var existingCount int64
	if err := tx.Model(&models.Payment{}).
		Where("recurring_payment_id = ?", rp.ID).
		Count(&existingCount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if rp.HasEnded(s.clock.Now(), existingCount) {
		return nil, nil
	}

	horizon := models.StartOfDay(s.clock.Now()).AddDate(0, defaultHorizonMonths, 0)
	if until != nil {
		horizon = models.StartOfDay(*until)
	}

	var category models.Category
	if err := tx.First(&category, rp.CategoryID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	paymentType := models.PaymentTypeFromCategory(category.Type)

	// A schedule with prior payments resumes one interval after the latest
	// due date; a fresh schedule starts at start_date itself, so a
	// single-day start=end schedule yields exactly one payment.
	next := models.StartOfDay(rp.StartDate)
	var latest models.Payment
	err := tx.Where("recurring_payment_id = ?", rp.ID).
		Order("due_date DESC").
		First(&latest).Error
	switch {
	case err == nil:
		next = rp.NextDate(models.StartOfDay(latest.DueDate))
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first generation
	default:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var created []models.Payment
	for !next.After(horizon) {
		if rp.EndDate != nil && next.After(models.StartOfDay(*rp.EndDate)) {
			break
		}
		if rp.Installments != nil && existingCount >= int64(*rp.Installments) {
			break
		}

		var dup int64
		if err := tx.Model(&models.Payment{}).
			Where("recurring_payment_id = ? AND due_date = ?", rp.ID, next).
			Count(&dup).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if dup == 0 {
			payment := models.Payment{
				UserID:             rp.UserID,
				AccountID:          rp.AccountID,
				CategoryID:         rp.CategoryID,
				RecurringPaymentID: &rp.ID,
				Type:               paymentType,
				Amount:             rp.Amount,
				Currency:           rp.Currency,
				Description:        rp.Name,
				DueDate:            next,
				IsPaid:             false,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			created = append(created, payment)
			existingCount++
		}

		next = rp.NextDate(next)
	}

	return created, nil
}

// GenerateAllForUser tops up projections for every active, not-yet-ended
// recurring payment of the user. Safe to call before every read.
func (s *paymentService) GenerateAllForUser(userID uint, until *time.Time) ([]models.Payment, error) {
	today := models.StartOfDay(s.clock.Now())

	var recurring []models.RecurringPayment
	if err := s.db.
		Where("user_id = ? AND is_active = ?", userID, true).
		Where("end_date IS NULL OR end_date >= ?", today).
		Find(&recurring).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var all []models.Payment
	for i := range recurring {
		created, err := s.GeneratePayments(&recurring[i], until)
		if err != nil {
			return nil, err
		}
		all = append(all, created...)
	}
	return all, nil
}

// CreateManualPayment creates a one-off payment not backed by a schedule.
// The type is derived from the category at creation time.
func (s *paymentService) CreateManualPayment(userID uint, input ManualPaymentInput) (*models.Payment, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	account, err := s.accountService.GetAccountByID(userID, input.AccountID)
	if err != nil {
		return nil, err
	}

	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", input.CategoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	currency := input.Currency
	if currency == "" {
		currency = account.Currency
	}

	payment := &models.Payment{
		UserID:      userID,
		AccountID:   account.ID,
		CategoryID:  category.ID,
		Type:        models.PaymentTypeFromCategory(category.Type),
		Amount:      input.Amount,
		Currency:    currency,
		Description: input.Description,
		DueDate:     models.StartOfDay(input.DueDate),
		IsPaid:      false,
	}

	if err := s.db.Create(payment).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return payment, nil
}

// GetUserPayments lists the user's payments, topping up projections first so
// the read always reflects the current horizon.
func (s *paymentService) GetUserPayments(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Payment], error) {
	if _, err := s.GenerateAllForUser(userID, nil); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.Payment{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var payments []models.Payment
	if err := base.Scopes(pagination.Paginate(page)).
		Order("due_date").
		Order("is_paid").
		Find(&payments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(payments, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetPaymentByID retrieves a payment by ID for a specific user.
func (s *paymentService) GetPaymentByID(userID, paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.Where("id = ? AND user_id = ?", paymentID, userID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &payment, nil
}

// UpcomingPayments lists unpaid payments due between today and the horizon.
func (s *paymentService) UpcomingPayments(userID uint, until *time.Time) ([]models.Payment, error) {
	today := models.StartOfDay(s.clock.Now())
	horizon := today.AddDate(0, defaultHorizonMonths, 0)
	if until != nil {
		horizon = models.StartOfDay(*until)
	}

	var payments []models.Payment
	if err := s.db.
		Where("user_id = ? AND is_paid = ?", userID, false).
		Where("due_date >= ? AND due_date <= ?", today, horizon).
		Order("due_date").
		Find(&payments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return payments, nil
}

// OverduePayments lists unpaid payments whose due date has passed.
func (s *paymentService) OverduePayments(userID uint) ([]models.Payment, error) {
	today := models.StartOfDay(s.clock.Now())

	var payments []models.Payment
	if err := s.db.
		Where("user_id = ? AND is_paid = ? AND due_date < ?", userID, false, today).
		Order("due_date").
		Find(&payments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return payments, nil
}

// PaymentsForPeriod lists payments due inside the inclusive date range.
func (s *paymentService) PaymentsForPeriod(userID uint, start, end time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	if err := s.db.
		Where("user_id = ?", userID).
		Where("due_date >= ? AND due_date <= ?", models.StartOfDay(start), models.StartOfDay(end)).
		Order("due_date").
		Find(&payments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return payments, nil
}

// MarkPaid settles a payment: creates the ledger transaction, applies the
// balance delta, and regenerates the next occurrence of an active schedule.
// One atomic unit; a payment that is already paid is rejected up front.
func (s *paymentService) MarkPaid(userID, paymentID uint, paidDate *time.Time) (*models.Transaction, error) {
	payment, err := s.GetPaymentByID(userID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.IsPaid {
		return nil, apperrors.ErrPaymentAlreadyPaid
	}

	date := models.StartOfDay(payment.DueDate)
	if paidDate != nil {
		date = models.StartOfDay(*paidDate)
	}

	var transaction *models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		transaction, err = s.markPaidWithDB(tx, userID, payment, date)
		return err
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

func (s *paymentService) markPaidWithDB(tx *gorm.DB, userID uint, payment *models.Payment, date time.Time) (*models.Transaction, error) {
	transaction := &models.Transaction{
		UserID:             userID,
		AccountID:          payment.AccountID,
		CategoryID:         &payment.CategoryID,
		RecurringPaymentID: payment.RecurringPaymentID,
		Type:               transactionTypeForPayment(payment.Type),
		Amount:             payment.Amount,
		Currency:           payment.Currency,
		Description:        payment.Description,
		Date:               date,
	}
	if err := tx.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Guarded flip: a concurrent settlement that won the race leaves zero
	// rows to update, and the whole unit rolls back.
	now := s.clock.Now()
	result := tx.Model(payment).Where("is_paid = ?", false).Updates(map[string]interface{}{
		"is_paid":        true,
		"paid_at":        now,
		"transaction_id": transaction.ID,
	})
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrPaymentAlreadyPaid
	}

	if err := s.accountService.ApplyBalanceDelta(tx, userID, payment.AccountID, settlementDelta(payment.Type, payment.Amount)); err != nil {
		return nil, err
	}

	// Paying the current installment reveals the next one.
	if payment.RecurringPaymentID != nil {
		var rp models.RecurringPayment
		err := tx.First(&rp, *payment.RecurringPaymentID).Error
		switch {
		case err == nil:
			if rp.IsActive {
				if _, genErr := s.GeneratePaymentsWithDB(tx, &rp, nil); genErr != nil {
					return nil, genErr
				}
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// schedule was deleted; the payment stands alone
		default:
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return transaction, nil
}

// MarkUnpaid re-opens a paid payment, reverting the balance delta and
// deleting the settlement transaction when requested.
func (s *paymentService) MarkUnpaid(userID, paymentID uint, deleteTransaction bool) error {
	payment, err := s.GetPaymentByID(userID, paymentID)
	if err != nil {
		return err
	}
	if !payment.IsPaid {
		return apperrors.ErrPaymentAlreadyUnpaid
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.markUnpaidWithDB(tx, userID, payment, deleteTransaction)
	})
}

func (s *paymentService) markUnpaidWithDB(tx *gorm.DB, userID uint, payment *models.Payment, deleteTransaction bool) error {
	settlementTxID := payment.TransactionID

	// Guarded flip first: a concurrent re-open that already won leaves zero
	// rows to update, so the balance can never be reverted twice.
	result := tx.Model(payment).Where("is_paid = ?", true).Updates(map[string]interface{}{
		"is_paid":        false,
		"paid_at":        nil,
		"transaction_id": nil,
	})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrPaymentAlreadyUnpaid
	}

	if settlementTxID != nil && deleteTransaction {
		if err := s.accountService.ApplyBalanceDelta(tx, userID, payment.AccountID, settlementDelta(payment.Type, payment.Amount).Neg()); err != nil {
			return err
		}
		if err := tx.Delete(&models.Transaction{}, *settlementTxID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

// DeletePayment removes a payment. A paid payment is first re-opened so its
// transaction and balance effect are reverted in the same atomic unit.
func (s *paymentService) DeletePayment(userID, paymentID uint) error {
	payment, err := s.GetPaymentByID(userID, paymentID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if payment.IsPaid && payment.TransactionID != nil {
			if err := s.markUnpaidWithDB(tx, userID, payment, true); err != nil {
				return err
			}
		}
		if err := tx.Delete(payment).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// PaymentSummaryForPeriod aggregates the period's payments: unpaid expenses
// still due, unpaid income still expected, and everything already paid.
func (s *paymentService) PaymentSummaryForPeriod(userID uint, start, end time.Time) (*PaymentSummary, error) {
	payments, err := s.PaymentsForPeriod(userID, start, end)
	if err != nil {
		return nil, err
	}

	summary := &PaymentSummary{
		TotalDue:            decimal.Zero,
		TotalExpectedIncome: decimal.Zero,
		TotalPaid:           decimal.Zero,
	}
	for i := range payments {
		p := &payments[i]
		if p.IsPaid {
			summary.PaidCount++
			summary.TotalPaid = summary.TotalPaid.Add(p.Amount)
			continue
		}
		summary.UnpaidCount++
		switch p.Type {
		case models.PaymentTypeExpense:
			summary.TotalDue = summary.TotalDue.Add(p.Amount)
		case models.PaymentTypeIncome:
			summary.TotalExpectedIncome = summary.TotalExpectedIncome.Add(p.Amount)
		}
	}
	return summary, nil
}

// transactionTypeForPayment maps the payment's direction to the ledger
// transaction type it settles into.
func transactionTypeForPayment(t models.PaymentType) models.TransactionType {
	if t == models.PaymentTypeIncome {
		return models.TransactionTypeIncome
	}
	return models.TransactionTypeExpense
}

// settlementDelta is the signed balance effect of settling a payment.
func settlementDelta(t models.PaymentType, amount decimal.Decimal) decimal.Decimal {
	if t == models.PaymentTypeIncome {
		return amount
	}
	return amount.Neg()
}
