package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
	UpdateFinancialResetDay(userID uint, resetDay *int) (*models.User, error)
}

// AccountUpdateFields holds optional account fields for partial updates.
type AccountUpdateFields struct {
	Name     *string
	Currency *string
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(userID uint, name, currency string, balance decimal.Decimal) (*models.Account, error)
	GetUserAccounts(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID uint) (*models.Account, error)
	UpdateAccount(userID, accountID uint, fields AccountUpdateFields) (*models.Account, error)
	DeleteAccount(userID, accountID uint) error
	ApplyBalanceDelta(tx *gorm.DB, userID, accountID uint, delta decimal.Decimal) error
	RecalculateBalance(userID, accountID uint) (*models.Account, error)
	RecalculateAllBalances(userID uint) error
	TotalBalance(userID uint, currency *string) (decimal.Decimal, error)
	AccountsByCurrency(userID uint) (map[string][]models.Account, error)
}

// CategoryUpdateFields holds optional category fields for partial updates.
type CategoryUpdateFields struct {
	Name  *string
	Type  *models.CategoryType
	Icon  *string
	Color *string
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID uint, name string, categoryType models.CategoryType, icon, color string) (*models.Category, error)
	GetUserCategories(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetUserCategoriesByType(userID uint, categoryType models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID uint) (*models.Category, error)
	UpdateCategory(userID, categoryID uint, fields CategoryUpdateFields) (*models.Category, error)
	DeleteCategory(userID, categoryID uint) error
}

// Period is a financial period window. Start and End are inclusive dates.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PeriodServicer computes the user's budgeting window from an optional
// monthly reset day. A nil reset day means calendar months.
type PeriodServicer interface {
	CurrentPeriod(resetDay *int) Period
	NextPeriod(resetDay *int) Period
	IsInCurrentPeriod(date time.Time, resetDay *int) bool
}

// CurrencyServicer defines the contract for exchange-rate lookups. A nil
// rate with a nil error means the rate is unavailable; fetch failures never
// surface as errors on read paths.
type CurrencyServicer interface {
	GetRate(fromCurrency, toCurrency string, date *time.Time) (*decimal.Decimal, error)
	Convert(amount decimal.Decimal, fromCurrency, toCurrency string, date *time.Time) (*decimal.Decimal, error)
}

// ManualPaymentInput holds the fields for creating a one-off payment.
type ManualPaymentInput struct {
	AccountID   uint
	CategoryID  uint
	Amount      decimal.Decimal
	Currency    string
	Description string
	DueDate     time.Time
}

// PaymentSummary aggregates payments inside a period.
type PaymentSummary struct {
	TotalDue            decimal.Decimal `json:"total_due"`
	TotalExpectedIncome decimal.Decimal `json:"total_expected_income"`
	TotalPaid           decimal.Decimal `json:"total_paid"`
	UnpaidCount         int             `json:"unpaid_count"`
	PaidCount           int             `json:"paid_count"`
}

// PaymentServicer defines the contract for the schedule projector and the
// payment settlement engine.
type PaymentServicer interface {
	GeneratePayments(rp *models.RecurringPayment, until *time.Time) ([]models.Payment, error)
	GeneratePaymentsWithDB(tx *gorm.DB, rp *models.RecurringPayment, until *time.Time) ([]models.Payment, error)
	GenerateAllForUser(userID uint, until *time.Time) ([]models.Payment, error)
	CreateManualPayment(userID uint, input ManualPaymentInput) (*models.Payment, error)
	GetUserPayments(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Payment], error)
	GetPaymentByID(userID, paymentID uint) (*models.Payment, error)
	UpcomingPayments(userID uint, until *time.Time) ([]models.Payment, error)
	OverduePayments(userID uint) ([]models.Payment, error)
	PaymentsForPeriod(userID uint, start, end time.Time) ([]models.Payment, error)
	MarkPaid(userID, paymentID uint, paidDate *time.Time) (*models.Transaction, error)
	MarkUnpaid(userID, paymentID uint, deleteTransaction bool) error
	DeletePayment(userID, paymentID uint) error
	PaymentSummaryForPeriod(userID uint, start, end time.Time) (*PaymentSummary, error)
}

// RecurringPaymentInput holds the fields for creating a recurring payment.
type RecurringPaymentInput struct {
	AccountID     uint
	CategoryID    uint
	Name          string
	Amount        decimal.Decimal
	Currency      string
	IntervalType  models.IntervalType
	IntervalValue int
	StartDate     time.Time
	EndDate       *time.Time
	Installments  *int
	IsActive      *bool
}

// RecurringPaymentUpdateFields holds optional fields for partial updates.
// EndDate and Installments use double pointers so callers can distinguish
// "leave unchanged" (nil) from "clear" (pointer to nil).
type RecurringPaymentUpdateFields struct {
	AccountID     *uint
	CategoryID    *uint
	Name          *string
	Amount        *decimal.Decimal
	Currency      *string
	IntervalType  *models.IntervalType
	IntervalValue *int
	StartDate     *time.Time
	EndDate       **time.Time
	Installments  **int
	IsActive      *bool
}

// RecurringPaymentStats aggregates a recurring payment's generated payments.
type RecurringPaymentStats struct {
	TotalPayments      int             `json:"total_payments"`
	PaidPayments       int             `json:"paid_payments"`
	UnpaidPayments     int             `json:"unpaid_payments"`
	TotalPaidAmount    decimal.Decimal `json:"total_paid_amount"`
	TotalPendingAmount decimal.Decimal `json:"total_pending_amount"`
	NextDueDate        *time.Time      `json:"next_due_date,omitempty"`
}

// RecurringPaymentServicer defines the contract for recurring payment
// lifecycle management.
type RecurringPaymentServicer interface {
	CreateRecurringPayment(userID uint, input RecurringPaymentInput) (*models.RecurringPayment, error)
	GetUserRecurringPayments(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringPayment], error)
	GetRecurringPaymentByID(userID, recurringPaymentID uint) (*models.RecurringPayment, error)
	UpdateRecurringPayment(userID, recurringPaymentID uint, fields RecurringPaymentUpdateFields) (*models.RecurringPayment, error)
	ActivateRecurringPayment(userID, recurringPaymentID uint) (*models.RecurringPayment, error)
	DeactivateRecurringPayment(userID, recurringPaymentID uint) (*models.RecurringPayment, error)
	DeleteRecurringPayment(userID, recurringPaymentID uint) error
	RegeneratePayments(userID, recurringPaymentID uint) ([]models.Payment, error)
	Statistics(userID, recurringPaymentID uint) (*RecurringPaymentStats, error)
}

// TransactionInput holds the fields for creating an income or expense
// transaction.
type TransactionInput struct {
	AccountID          uint
	CategoryID         *uint
	RecurringPaymentID *uint
	Type               models.TransactionType
	Amount             decimal.Decimal
	Currency           string
	Description        string
	Date               time.Time
}

// TransactionUpdateFields holds optional transaction fields for partial updates.
type TransactionUpdateFields struct {
	AccountID   *uint
	CategoryID  *uint
	Type        *models.TransactionType
	Amount      *decimal.Decimal
	Currency    *string
	Description *string
	Date        *time.Time
}

// TransferInput holds the fields for creating a transfer between accounts.
type TransferInput struct {
	FromAccountID uint
	ToAccountID   uint
	Amount        decimal.Decimal
	ExchangeRate  *decimal.Decimal
	Date          *time.Time
	Description   string
}

// TransferResult holds both legs of a created transfer.
type TransferResult struct {
	Outgoing *models.Transaction `json:"outgoing"`
	Incoming *models.Transaction `json:"incoming"`
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *uint
	AccountID  *uint
}

// TransactionSummary aggregates transactions inside a period.
type TransactionSummary struct {
	Income           decimal.Decimal `json:"income"`
	Expenses         decimal.Decimal `json:"expenses"`
	Net              decimal.Decimal `json:"net"`
	TransactionCount int             `json:"transaction_count"`
}

// CategorySpending is one category's expense total inside a period.
type CategorySpending struct {
	Category models.Category `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// TransactionServicer defines the contract for the ledger engine.
type TransactionServicer interface {
	CreateTransaction(userID uint, input TransactionInput) (*models.Transaction, error)
	GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	TransactionsForPeriod(userID uint, start, end time.Time) ([]models.Transaction, error)
	GetTransactionByID(userID, transactionID uint) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID uint, fields TransactionUpdateFields) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID uint) error
	CreateTransfer(userID uint, input TransferInput) (*TransferResult, error)
	SummaryForPeriod(userID uint, start, end time.Time) (*TransactionSummary, error)
	CategorySpendingForPeriod(userID uint, start, end time.Time, limit int) ([]CategorySpending, error)
}

// DashboardData is the composed read model behind the main dashboard view.
type DashboardData struct {
	Accounts         []models.Account   `json:"accounts"`
	Period           Period             `json:"period"`
	Summary          TransactionSummary `json:"summary"`
	UpcomingPayments []models.Payment   `json:"upcoming_payments"`
	OverduePayments  []models.Payment   `json:"overdue_payments"`
	CategorySpending []CategorySpending `json:"category_spending"`
	PaymentSummary   PaymentSummary     `json:"payment_summary"`
	// BalanceAfterPlanned is the total balance minus unpaid expenses due in
	// the period.
	BalanceAfterPlanned decimal.Decimal `json:"balance_after_planned"`
}

// CurrencyBalance is the balance aggregate for one currency.
type CurrencyBalance struct {
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
	Accounts int             `json:"accounts"`
}

// FinancialOverview is the condensed health view: realized and projected
// figures for the current period plus per-currency balances.
type FinancialOverview struct {
	Period    Period             `json:"period"`
	Current   TransactionSummary `json:"current"`
	Projected struct {
		Income   decimal.Decimal `json:"income"`
		Expenses decimal.Decimal `json:"expenses"`
		Net      decimal.Decimal `json:"net"`
	} `json:"projected"`
	TotalBalance decimal.Decimal   `json:"total_balance"`
	ByCurrency   []CurrencyBalance `json:"by_currency"`
	Alerts       struct {
		OverdueCount  int             `json:"overdue_count"`
		OverdueAmount decimal.Decimal `json:"overdue_amount"`
	} `json:"alerts"`
}

// MonthlyTrendPoint is one month's income/expense totals.
type MonthlyTrendPoint struct {
	Month     string          `json:"month"`
	MonthName string          `json:"month_name"`
	Income    decimal.Decimal `json:"income"`
	Expenses  decimal.Decimal `json:"expenses"`
	Net       decimal.Decimal `json:"net"`
}

// DashboardServicer composes the read-side views over accounts,
// transactions, and payments.
type DashboardServicer interface {
	DashboardData(userID uint) (*DashboardData, error)
	FinancialOverview(userID uint) (*FinancialOverview, error)
	MonthlyTrend(userID uint, months int) ([]MonthlyTrendPoint, error)
	UpcomingPaymentsCalendar(userID uint, daysAhead int) (map[string][]models.Payment, error)
}
