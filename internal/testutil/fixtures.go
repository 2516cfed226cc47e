package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates a USD account with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID uint) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, userID, "USD", decimal.Zero)
}

// CreateTestAccountWithBalance creates an account in the given currency with
// the given starting balance.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, userID uint, currency string, balance decimal.Decimal) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:         userID,
		Name:           fmt.Sprintf("Test Account %d", nextID()),
		Currency:       currency,
		Balance:        balance,
		InitialBalance: balance,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID uint, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a transaction of the given type and amount.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, accountID uint, txType models.TransactionType, amount decimal.Decimal) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:    userID,
		AccountID: accountID,
		Type:      txType,
		Amount:    amount,
		Currency:  "USD",
		Date:      time.Now(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestRecurringPayment creates an active monthly schedule starting on
// the given date.
func CreateTestRecurringPayment(t *testing.T, db *gorm.DB, userID, accountID, categoryID uint, startDate time.Time) *models.RecurringPayment {
	t.Helper()

	rp := &models.RecurringPayment{
		UserID:        userID,
		AccountID:     accountID,
		CategoryID:    categoryID,
		Name:          fmt.Sprintf("Test Recurring %d", nextID()),
		Amount:        decimal.NewFromInt(50),
		Currency:      "USD",
		IntervalType:  models.IntervalTypeMonths,
		IntervalValue: 1,
		StartDate:     models.StartOfDay(startDate),
		IsActive:      true,
	}
	if err := db.Create(rp).Error; err != nil {
		t.Fatalf("failed to create test recurring payment: %v", err)
	}
	return rp
}

// CreateTestPayment creates an unpaid expense payment due on the given date.
func CreateTestPayment(t *testing.T, db *gorm.DB, userID, accountID, categoryID uint, dueDate time.Time) *models.Payment {
	t.Helper()

	payment := &models.Payment{
		UserID:      userID,
		AccountID:   accountID,
		CategoryID:  categoryID,
		Type:        models.PaymentTypeExpense,
		Amount:      decimal.NewFromInt(50),
		Currency:    "USD",
		Description: fmt.Sprintf("Test Payment %d", nextID()),
		DueDate:     models.StartOfDay(dueDate),
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("failed to create test payment: %v", err)
	}
	return payment
}
