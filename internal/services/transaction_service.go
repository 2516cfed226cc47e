package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/clock"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// transactionService implements the ledger engine: every write keeps account
// balances consistent with the stored rows inside a single transaction.
type transactionService struct {
	db              *gorm.DB
	accountService  AccountServicer
	currencyService CurrencyServicer
	clock           clock.Clock
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, accountService AccountServicer, currencyService CurrencyServicer, clk clock.Clock) TransactionServicer {
	return &transactionService{
		db:              db,
		accountService:  accountService,
		currencyService: currencyService,
		clock:           clk,
	}
}

// CreateTransaction records an income or expense and applies its balance
// delta atomically. Transfers go through CreateTransfer.
func (s *transactionService) CreateTransaction(userID uint, input TransactionInput) (*models.Transaction, error) {
	if input.Type != models.TransactionTypeIncome && input.Type != models.TransactionTypeExpense {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	account, err := s.accountService.GetAccountByID(userID, input.AccountID)
	if err != nil {
		return nil, err
	}
	if input.CategoryID != nil {
		var count int64
		if err := s.db.Model(&models.Category{}).Where("id = ? AND user_id = ?", *input.CategoryID, userID).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrCategoryNotFound
		}
	}

	currency := strings.ToUpper(input.Currency)
	if currency == "" {
		currency = account.Currency
	}

	transaction := &models.Transaction{
		UserID:             userID,
		AccountID:          input.AccountID,
		CategoryID:         input.CategoryID,
		RecurringPaymentID: input.RecurringPaymentID,
		Type:               input.Type,
		Amount:             input.Amount,
		Currency:           currency,
		Description:        input.Description,
		Date:               input.Date,
	}
	if transaction.Date.IsZero() {
		transaction.Date = s.clock.Now()
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.accountService.ApplyBalanceDelta(tx, userID, transaction.AccountID, transactionDelta(transaction.Type, transaction.Amount))
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// GetUserTransactions lists the user's transactions newest first, with
// optional date, type, category, and account filters.
func (s *transactionService) GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	query := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if filter.FromDate != nil {
		query = query.Where("date >= ?", models.StartOfDay(*filter.FromDate))
	}
	if filter.ToDate != nil {
		query = query.Where("date < ?", models.StartOfDay(*filter.ToDate).AddDate(0, 0, 1))
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := query.Scopes(pagination.Paginate(page)).
		Preload("Category").
		Order("date DESC").
		Order("id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// TransactionsForPeriod returns all transactions dated inside [start, end],
// inclusive on both ends.
func (s *transactionService) TransactionsForPeriod(userID uint, start, end time.Time) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := s.db.Where("user_id = ? AND date >= ? AND date < ?",
		userID, models.StartOfDay(start), models.StartOfDay(end).AddDate(0, 0, 1)).
		Order("date").
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user.
func (s *transactionService) GetTransactionByID(userID, transactionID uint) (*models.Transaction, error) {
	var transaction models.Transaction
	err := s.db.Preload("Category").
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction edits an income or expense, reverting the old balance
// delta before applying the new one. Transfer legs are never editable: the
// pair must stay symmetric, so callers delete and recreate instead.
func (s *transactionService) UpdateTransaction(userID, transactionID uint, fields TransactionUpdateFields) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}
	if transaction.IsTransfer() {
		return nil, apperrors.ErrTransactionNotEditable
	}
	if fields.Type != nil && *fields.Type == models.TransactionTypeTransfer {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if fields.Amount != nil && fields.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if fields.AccountID != nil {
		if _, err := s.accountService.GetAccountByID(userID, *fields.AccountID); err != nil {
			return nil, err
		}
	}
	if fields.CategoryID != nil {
		var count int64
		if err := s.db.Model(&models.Category{}).Where("id = ? AND user_id = ?", *fields.CategoryID, userID).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrCategoryNotFound
		}
	}

	oldDelta := transactionDelta(transaction.Type, transaction.Amount)
	oldAccountID := transaction.AccountID

	updates := make(map[string]interface{})
	if fields.AccountID != nil {
		updates["account_id"] = *fields.AccountID
	}
	if fields.CategoryID != nil {
		updates["category_id"] = *fields.CategoryID
	}
	if fields.Type != nil {
		updates["type"] = *fields.Type
	}
	if fields.Amount != nil {
		updates["amount"] = *fields.Amount
	}
	if fields.Currency != nil && *fields.Currency != "" {
		updates["currency"] = strings.ToUpper(*fields.Currency)
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.Date != nil {
		updates["date"] = *fields.Date
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accountService.ApplyBalanceDelta(tx, userID, oldAccountID, oldDelta.Neg()); err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(transaction).Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Where("id = ?", transaction.ID).First(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		newDelta := transactionDelta(transaction.Type, transaction.Amount)
		return s.accountService.ApplyBalanceDelta(tx, userID, transaction.AccountID, newDelta)
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// DeleteTransaction removes a transaction and reverts its balance effect.
// Deleting either leg of a transfer removes both legs and reverts both
// accounts, so a half-deleted transfer can never exist.
func (s *transactionService) DeleteTransaction(userID, transactionID uint) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if transaction.IsTransfer() {
			if transaction.LinkedTransactionID != nil {
				var linked models.Transaction
				err := tx.Where("id = ? AND user_id = ?", *transaction.LinkedTransactionID, userID).First(&linked).Error
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				if err == nil {
					if err := s.revertTransferLeg(tx, userID, &linked); err != nil {
						return err
					}
					if err := tx.Unscoped().Delete(&linked).Error; err != nil {
						return apperrors.Wrap(apperrors.ErrInternalServer, err)
					}
				}
			}
			if err := s.revertTransferLeg(tx, userID, transaction); err != nil {
				return err
			}
		} else {
			delta := transactionDelta(transaction.Type, transaction.Amount)
			if err := s.accountService.ApplyBalanceDelta(tx, userID, transaction.AccountID, delta.Neg()); err != nil {
				return err
			}
			// A paid payment must never reference a deleted transaction.
			err := tx.Model(&models.Payment{}).
				Where("transaction_id = ?", transaction.ID).
				Updates(map[string]interface{}{"is_paid": false, "paid_at": nil, "transaction_id": nil}).Error
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		if err := tx.Unscoped().Delete(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// CreateTransfer moves money between two of the user's accounts as a linked
// pair of transfer rows. Cross-currency transfers convert through an
// exchange rate resolved before the balance-mutating transaction opens, so a
// slow or failing rate fetch never holds row locks.
func (s *transactionService) CreateTransfer(userID uint, input TransferInput) (*TransferResult, error) {
	if input.FromAccountID == input.ToAccountID {
		return nil, apperrors.ErrSameAccountTransfer
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	fromAccount, err := s.accountService.GetAccountByID(userID, input.FromAccountID)
	if err != nil {
		return nil, err
	}
	toAccount, err := s.accountService.GetAccountByID(userID, input.ToAccountID)
	if err != nil {
		return nil, err
	}

	date := s.clock.Now()
	if input.Date != nil {
		date = *input.Date
	}

	rate := decimal.NewFromInt(1)
	var storedRate *decimal.Decimal
	if fromAccount.Currency != toAccount.Currency {
		switch {
		case input.ExchangeRate != nil:
			if input.ExchangeRate.LessThanOrEqual(decimal.Zero) {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "exchange rate must be greater than zero")
			}
			rate = *input.ExchangeRate
		default:
			resolved, err := s.currencyService.GetRate(fromAccount.Currency, toAccount.Currency, &date)
			if err != nil {
				return nil, err
			}
			if resolved == nil {
				return nil, apperrors.ErrExchangeRateUnavailable
			}
			rate = *resolved
		}
		storedRate = &rate
	}

	destAmount := input.Amount.Mul(rate).Round(2)

	outDescription := input.Description
	if outDescription == "" {
		outDescription = fmt.Sprintf("Transfer to %s", toAccount.Name)
	}
	inDescription := input.Description
	if inDescription == "" {
		inDescription = fmt.Sprintf("Transfer from %s", fromAccount.Name)
	}

	outgoing := &models.Transaction{
		UserID:        userID,
		AccountID:     fromAccount.ID,
		Type:          models.TransactionTypeTransfer,
		Amount:        input.Amount,
		Currency:      fromAccount.Currency,
		Description:   outDescription,
		Date:          date,
		ExchangeRate:  storedRate,
		FromAccountID: &fromAccount.ID,
		ToAccountID:   &toAccount.ID,
	}
	incoming := &models.Transaction{
		UserID:        userID,
		AccountID:     toAccount.ID,
		Type:          models.TransactionTypeTransfer,
		Amount:        destAmount,
		Currency:      toAccount.Currency,
		Description:   inDescription,
		Date:          date,
		ExchangeRate:  storedRate,
		FromAccountID: &fromAccount.ID,
		ToAccountID:   &toAccount.ID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(outgoing).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Create(incoming).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(outgoing).Update("linked_transaction_id", incoming.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(incoming).Update("linked_transaction_id", outgoing.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.accountService.ApplyBalanceDelta(tx, userID, fromAccount.ID, input.Amount.Neg()); err != nil {
			return err
		}
		return s.accountService.ApplyBalanceDelta(tx, userID, toAccount.ID, destAmount)
	})
	if err != nil {
		return nil, err
	}

	outgoing.LinkedTransactionID = &incoming.ID
	incoming.LinkedTransactionID = &outgoing.ID
	return &TransferResult{Outgoing: outgoing, Incoming: incoming}, nil
}

// SummaryForPeriod totals income and expenses inside a period. Transfer legs
// move money between own accounts and are excluded.
func (s *transactionService) SummaryForPeriod(userID uint, start, end time.Time) (*TransactionSummary, error) {
	transactions, err := s.TransactionsForPeriod(userID, start, end)
	if err != nil {
		return nil, err
	}

	summary := &TransactionSummary{
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
	}
	for i := range transactions {
		t := &transactions[i]
		switch t.Type {
		case models.TransactionTypeIncome:
			summary.Income = summary.Income.Add(t.Amount)
		case models.TransactionTypeExpense:
			summary.Expenses = summary.Expenses.Add(t.Amount)
		default:
			continue
		}
		summary.TransactionCount++
	}
	summary.Net = summary.Income.Sub(summary.Expenses)
	return summary, nil
}

// CategorySpendingForPeriod returns expense totals grouped by category,
// largest first. A limit of zero means no limit.
func (s *transactionService) CategorySpendingForPeriod(userID uint, start, end time.Time, limit int) ([]CategorySpending, error) {
	var transactions []models.Transaction
	err := s.db.Preload("Category").
		Where("user_id = ? AND type = ? AND category_id IS NOT NULL AND date >= ? AND date < ?",
			userID, models.TransactionTypeExpense,
			models.StartOfDay(start), models.StartOfDay(end).AddDate(0, 0, 1)).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	byCategory := make(map[uint]*CategorySpending)
	for i := range transactions {
		t := &transactions[i]
		if t.Category == nil {
			continue
		}
		entry, ok := byCategory[*t.CategoryID]
		if !ok {
			entry = &CategorySpending{Category: *t.Category, Total: decimal.Zero}
			byCategory[*t.CategoryID] = entry
		}
		entry.Total = entry.Total.Add(t.Amount)
		entry.Count++
	}

	spending := make([]CategorySpending, 0, len(byCategory))
	for _, entry := range byCategory {
		spending = append(spending, *entry)
	}
	sort.Slice(spending, func(i, j int) bool {
		if !spending[i].Total.Equal(spending[j].Total) {
			return spending[i].Total.GreaterThan(spending[j].Total)
		}
		return spending[i].Category.Name < spending[j].Category.Name
	})
	if limit > 0 && len(spending) > limit {
		spending = spending[:limit]
	}
	return spending, nil
}

// revertTransferLeg undoes the balance effect of one leg: the outgoing leg
// (stored on the source account) debited its account, the incoming leg
// credited its account.
func (s *transactionService) revertTransferLeg(tx *gorm.DB, userID uint, leg *models.Transaction) error {
	delta := leg.Amount
	if leg.FromAccountID != nil && leg.AccountID == *leg.FromAccountID {
		delta = leg.Amount.Neg()
	}
	return s.accountService.ApplyBalanceDelta(tx, userID, leg.AccountID, delta.Neg())
}

// transactionDelta is the signed balance effect of an income or expense.
func transactionDelta(t models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == models.TransactionTypeExpense {
		return amount.Neg()
	}
	return amount
}
