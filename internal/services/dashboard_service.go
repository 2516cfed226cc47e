package services

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/clock"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

const categorySpendingLimit = 5

// dashboardService composes the read-side views. It owns no state of its
// own; everything is derived from the other services for the user's current
// financial period.
type dashboardService struct {
	db                 *gorm.DB
	accountService     AccountServicer
	transactionService TransactionServicer
	paymentService     PaymentServicer
	periodService      PeriodServicer
	clock              clock.Clock
}

// NewDashboardService creates a new DashboardServicer.
func NewDashboardService(
	db *gorm.DB,
	accountService AccountServicer,
	transactionService TransactionServicer,
	paymentService PaymentServicer,
	periodService PeriodServicer,
	clk clock.Clock,
) DashboardServicer {
	return &dashboardService{
		db:                 db,
		accountService:     accountService,
		transactionService: transactionService,
		paymentService:     paymentService,
		periodService:      periodService,
		clock:              clk,
	}
}

// DashboardData builds the main dashboard view. Payment projections are
// topped up first so the upcoming list never shows a stale horizon.
func (s *dashboardService) DashboardData(userID uint) (*DashboardData, error) {
	if _, err := s.paymentService.GenerateAllForUser(userID, nil); err != nil {
		logger.Get().Warnw("payment generation failed, dashboard may be stale", "user_id", userID, "error", err)
	}

	period, err := s.userPeriod(userID)
	if err != nil {
		return nil, err
	}

	accounts, err := s.accountService.GetUserAccounts(userID, allItemsPage())
	if err != nil {
		return nil, err
	}

	summary, err := s.transactionService.SummaryForPeriod(userID, period.Start, period.End)
	if err != nil {
		return nil, err
	}

	upcoming, err := s.paymentService.UpcomingPayments(userID, &period.End)
	if err != nil {
		return nil, err
	}

	overdue, err := s.paymentService.OverduePayments(userID)
	if err != nil {
		return nil, err
	}

	spending, err := s.transactionService.CategorySpendingForPeriod(userID, period.Start, period.End, categorySpendingLimit)
	if err != nil {
		return nil, err
	}

	paymentSummary, err := s.paymentService.PaymentSummaryForPeriod(userID, period.Start, period.End)
	if err != nil {
		return nil, err
	}

	totalBalance, err := s.accountService.TotalBalance(userID, nil)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		Accounts:            accounts.Data,
		Period:              period,
		Summary:             *summary,
		UpcomingPayments:    upcoming,
		OverduePayments:     overdue,
		CategorySpending:    spending,
		PaymentSummary:      *paymentSummary,
		BalanceAfterPlanned: totalBalance.Sub(paymentSummary.TotalDue),
	}, nil
}

// FinancialOverview builds the condensed health view: realized totals for
// the current period, projected totals once unpaid payments land, balances
// per currency, and overdue alerts.
func (s *dashboardService) FinancialOverview(userID uint) (*FinancialOverview, error) {
	period, err := s.userPeriod(userID)
	if err != nil {
		return nil, err
	}

	summary, err := s.transactionService.SummaryForPeriod(userID, period.Start, period.End)
	if err != nil {
		return nil, err
	}

	paymentSummary, err := s.paymentService.PaymentSummaryForPeriod(userID, period.Start, period.End)
	if err != nil {
		return nil, err
	}

	totalBalance, err := s.accountService.TotalBalance(userID, nil)
	if err != nil {
		return nil, err
	}

	byCurrency, err := s.accountService.AccountsByCurrency(userID)
	if err != nil {
		return nil, err
	}

	overdue, err := s.paymentService.OverduePayments(userID)
	if err != nil {
		return nil, err
	}

	overview := &FinancialOverview{
		Period:       period,
		Current:      *summary,
		TotalBalance: totalBalance,
	}
	overview.Projected.Income = summary.Income.Add(paymentSummary.TotalExpectedIncome)
	overview.Projected.Expenses = summary.Expenses.Add(paymentSummary.TotalDue)
	overview.Projected.Net = overview.Projected.Income.Sub(overview.Projected.Expenses)

	currencies := make([]string, 0, len(byCurrency))
	for currency := range byCurrency {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)
	for _, currency := range currencies {
		total := decimal.Zero
		for _, account := range byCurrency[currency] {
			total = total.Add(account.Balance)
		}
		overview.ByCurrency = append(overview.ByCurrency, CurrencyBalance{
			Currency: currency,
			Total:    total,
			Accounts: len(byCurrency[currency]),
		})
	}

	overview.Alerts.OverdueCount = len(overdue)
	overview.Alerts.OverdueAmount = decimal.Zero
	for i := range overdue {
		overview.Alerts.OverdueAmount = overview.Alerts.OverdueAmount.Add(overdue[i].Amount)
	}

	return overview, nil
}

// MonthlyTrend returns per-calendar-month income and expense totals for the
// trailing N months, oldest first. The current month is the final point.
func (s *dashboardService) MonthlyTrend(userID uint, months int) ([]MonthlyTrendPoint, error) {
	if months < 1 {
		months = 6
	}

	now := s.clock.Now()
	trend := make([]MonthlyTrendPoint, 0, months)
	for i := months - 1; i >= 0; i-- {
		monthStart := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		monthEnd := monthStart.AddDate(0, 1, -1)

		summary, err := s.transactionService.SummaryForPeriod(userID, monthStart, monthEnd)
		if err != nil {
			return nil, err
		}
		trend = append(trend, MonthlyTrendPoint{
			Month:     monthStart.Format("2006-01"),
			MonthName: monthStart.Format("January 2006"),
			Income:    summary.Income,
			Expenses:  summary.Expenses,
			Net:       summary.Net,
		})
	}
	return trend, nil
}

// UpcomingPaymentsCalendar groups unpaid payments due in the next N days by
// due date (YYYY-MM-DD keys).
func (s *dashboardService) UpcomingPaymentsCalendar(userID uint, daysAhead int) (map[string][]models.Payment, error) {
	if daysAhead < 1 {
		daysAhead = 30
	}

	until := models.StartOfDay(s.clock.Now()).AddDate(0, 0, daysAhead)
	payments, err := s.paymentService.UpcomingPayments(userID, &until)
	if err != nil {
		return nil, err
	}

	calendar := make(map[string][]models.Payment)
	for i := range payments {
		key := payments[i].DueDate.Format("2006-01-02")
		calendar[key] = append(calendar[key], payments[i])
	}
	return calendar, nil
}

// allItemsPage is a page request large enough for the dashboard's account
// list; users realistically stay far below the cap.
func allItemsPage() pagination.PageRequest {
	return pagination.PageRequest{Page: 1, PageSize: 100}
}

// userPeriod resolves the user's current financial period from their reset
// day preference.
func (s *dashboardService) userPeriod(userID uint) (Period, error) {
	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Period{}, apperrors.ErrUserNotFound
		}
		return Period{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.periodService.CurrentPeriod(user.FinancialResetDay), nil
}
