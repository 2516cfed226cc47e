package testutil_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"users", "accounts", "categories", "transactions", "recurring_payments", "payments", "currency_exchange_rates"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == 0 {
		t.Fatal("user should have a non-zero ID")
	}

	account := testutil.CreateTestAccountWithBalance(t, db, user.ID, "EUR", decimal.NewFromInt(50))
	if !account.Balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected balance 50, got %s", account.Balance)
	}
	if account.Currency != "EUR" {
		t.Errorf("expected EUR account, got %s", account.Currency)
	}

	category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	if category.Type != models.CategoryTypeExpense {
		t.Errorf("expected expense category, got %s", category.Type)
	}

	tx := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeIncome, decimal.NewFromInt(10))
	if !tx.Amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected amount 10, got %s", tx.Amount)
	}

	rp := testutil.CreateTestRecurringPayment(t, db, user.ID, account.ID, category.ID, time.Now())
	if !rp.IsActive {
		t.Error("expected recurring payment to be active")
	}

	payment := testutil.CreateTestPayment(t, db, user.ID, account.ID, category.ID, time.Now())
	if payment.IsPaid {
		t.Error("expected payment to start unpaid")
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrAccountNotFound, "custom message")
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
