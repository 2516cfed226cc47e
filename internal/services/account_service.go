package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// accountService handles account-related business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateAccount creates a new account for a user. The opening balance is
// recorded as initial_balance so the running balance can always be audited
// against the transaction log.
func (s *accountService) CreateAccount(userID uint, name, currency string, balance decimal.Decimal) (*models.Account, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if currency == "" {
		currency = "USD"
	}

	account := &models.Account{
		UserID:         userID,
		Name:           name,
		Currency:       strings.ToUpper(currency),
		Balance:        balance,
		InitialBalance: balance,
	}

	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return account, nil
}

// GetUserAccounts retrieves a paginated list of accounts for a user.
func (s *accountService) GetUserAccounts(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	base := s.db.Model(&models.Account{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).Order("name").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account by ID for a specific user.
func (s *accountService) GetAccountByID(userID, accountID uint) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount updates an existing account's name and/or currency.
func (s *accountService) UpdateAccount(userID, accountID uint, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Name != nil && *fields.Name != "" {
		updates["name"] = *fields.Name
	}
	if fields.Currency != nil && *fields.Currency != "" {
		updates["currency"] = strings.ToUpper(*fields.Currency)
	}

	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Where("id = ?", account.ID).First(account).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return account, nil
}

// DeleteAccount deletes an account together with its transactions, payments,
// and recurring payments. The cascade runs explicitly inside one database
// transaction rather than through foreign-key hooks.
func (s *accountService) DeleteAccount(userID, accountID uint) error {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", account.ID).Delete(&models.Transaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("account_id = ?", account.ID).Delete(&models.Payment{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("account_id = ?", account.ID).Delete(&models.RecurringPayment{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// ApplyBalanceDelta adds delta to the account balance inside the given
// database transaction. The account row is locked for update first so
// concurrent settlements against the same account serialize instead of
// losing increments.
func (s *accountService) ApplyBalanceDelta(tx *gorm.DB, userID, accountID uint, delta decimal.Decimal) error {
	var account models.Account
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", accountID, userID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAccountNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	newBalance := account.Balance.Add(delta)
	if err := tx.Model(&account).Update("balance", newBalance).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RecalculateBalance recomputes the balance from scratch:
// initial_balance plus the replayed effect of every stored transaction.
// Transfer legs stored on this account debit it when outgoing and credit
// it when incoming.
func (s *accountService) RecalculateBalance(userID, accountID uint) (*models.Account, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var transactions []models.Transaction
		if err := tx.Where("account_id = ?", account.ID).Find(&transactions).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// Summation happens in Go so decimal precision is preserved across
		// drivers.
		balance := account.InitialBalance
		for i := range transactions {
			t := &transactions[i]
			switch t.Type {
			case models.TransactionTypeIncome:
				balance = balance.Add(t.Amount)
			case models.TransactionTypeExpense:
				balance = balance.Sub(t.Amount)
			case models.TransactionTypeTransfer:
				if t.FromAccountID != nil && t.AccountID == *t.FromAccountID {
					balance = balance.Sub(t.Amount)
				} else {
					balance = balance.Add(t.Amount)
				}
			}
		}

		account.Balance = balance
		if updErr := tx.Model(account).Update("balance", account.Balance).Error; updErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, updErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// RecalculateAllBalances recomputes every account balance for the user.
func (s *accountService) RecalculateAllBalances(userID uint) error {
	var accounts []models.Account
	if err := s.db.Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for i := range accounts {
		if _, err := s.RecalculateBalance(userID, accounts[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// TotalBalance sums balances across the user's accounts, optionally
// restricted to one currency. Mixed-currency totals are a plain sum; the
// dashboard presents per-currency figures alongside.
func (s *accountService) TotalBalance(userID uint, currency *string) (decimal.Decimal, error) {
	q := s.db.Where("user_id = ?", userID)
	if currency != nil && *currency != "" {
		q = q.Where("currency = ?", strings.ToUpper(*currency))
	}

	var accounts []models.Account
	if err := q.Find(&accounts).Error; err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	total := decimal.Zero
	for i := range accounts {
		total = total.Add(accounts[i].Balance)
	}
	return total, nil
}

// AccountsByCurrency groups the user's accounts by their currency code.
func (s *accountService) AccountsByCurrency(userID uint) (map[string][]models.Account, error) {
	var accounts []models.Account
	if err := s.db.Where("user_id = ?", userID).Order("name").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	grouped := make(map[string][]models.Account)
	for i := range accounts {
		grouped[accounts[i].Currency] = append(grouped[accounts[i].Currency], accounts[i])
	}
	return grouped, nil
}
