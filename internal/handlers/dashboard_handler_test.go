package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fintrack/internal/models"
	"fintrack/internal/services"
)

// --- mock dashboard service ---

type mockDashboardService struct {
	dashboardFn func(userID uint) (*services.DashboardData, error)
	overviewFn  func(userID uint) (*services.FinancialOverview, error)
	trendFn     func(userID uint, months int) ([]services.MonthlyTrendPoint, error)
	calendarFn  func(userID uint, daysAhead int) (map[string][]models.Payment, error)
}

func (m *mockDashboardService) DashboardData(userID uint) (*services.DashboardData, error) {
	if m.dashboardFn != nil {
		return m.dashboardFn(userID)
	}
	return &services.DashboardData{}, nil
}

func (m *mockDashboardService) FinancialOverview(userID uint) (*services.FinancialOverview, error) {
	if m.overviewFn != nil {
		return m.overviewFn(userID)
	}
	return &services.FinancialOverview{}, nil
}

func (m *mockDashboardService) MonthlyTrend(userID uint, months int) ([]services.MonthlyTrendPoint, error) {
	if m.trendFn != nil {
		return m.trendFn(userID, months)
	}
	return nil, nil
}

func (m *mockDashboardService) UpcomingPaymentsCalendar(userID uint, daysAhead int) (map[string][]models.Payment, error) {
	if m.calendarFn != nil {
		return m.calendarFn(userID, daysAhead)
	}
	return map[string][]models.Payment{}, nil
}

var _ services.DashboardServicer = (*mockDashboardService)(nil)

func setupDashboardRouter(handler *DashboardHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(1))
	auth.GET("/dashboard", handler.GetDashboard)
	auth.GET("/dashboard/overview", handler.GetOverview)
	auth.GET("/dashboard/trend", handler.GetMonthlyTrend)
	auth.GET("/dashboard/calendar", handler.GetPaymentsCalendar)
	return r
}

func TestDashboardHandler_GetDashboard(t *testing.T) {
	t.Run("returns the composed view", func(t *testing.T) {
		dashSvc := &mockDashboardService{
			dashboardFn: func(userID uint) (*services.DashboardData, error) {
				return &services.DashboardData{
					Accounts: []models.Account{{Base: models.Base{ID: 1}, Name: "Checking"}},
					Period: services.Period{
						Start: time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC),
						End:   time.Date(2025, 7, 24, 0, 0, 0, 0, time.UTC),
					},
					BalanceAfterPlanned: decimal.NewFromInt(1500),
				}, nil
			},
		}
		handler := NewDashboardHandler(dashSvc)
		r := setupDashboardRouter(handler)

		rec := doRequest(r, "GET", "/dashboard", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		accounts := result["accounts"].([]interface{})
		if len(accounts) != 1 {
			t.Fatalf("expected 1 account, got %d", len(accounts))
		}
		if result["balance_after_planned"] != "1500" {
			t.Errorf("expected balance_after_planned 1500, got %v", result["balance_after_planned"])
		}
	})
}

func TestDashboardHandler_GetOverview(t *testing.T) {
	t.Run("returns the overview", func(t *testing.T) {
		dashSvc := &mockDashboardService{
			overviewFn: func(userID uint) (*services.FinancialOverview, error) {
				overview := &services.FinancialOverview{
					TotalBalance: decimal.RequireFromString("2450.50"),
				}
				overview.Alerts.OverdueCount = 2
				return overview, nil
			},
		}
		handler := NewDashboardHandler(dashSvc)
		r := setupDashboardRouter(handler)

		rec := doRequest(r, "GET", "/dashboard/overview", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["total_balance"] != "2450.5" {
			t.Errorf("expected total_balance 2450.5, got %v", result["total_balance"])
		}
		alerts := result["alerts"].(map[string]interface{})
		if alerts["overdue_count"].(float64) != 2 {
			t.Errorf("expected 2 overdue, got %v", alerts["overdue_count"])
		}
	})
}

func TestDashboardHandler_GetMonthlyTrend(t *testing.T) {
	t.Run("passes months through", func(t *testing.T) {
		var gotMonths int
		dashSvc := &mockDashboardService{
			trendFn: func(_ uint, months int) ([]services.MonthlyTrendPoint, error) {
				gotMonths = months
				return []services.MonthlyTrendPoint{{Month: "2025-06", MonthName: "June 2025"}}, nil
			},
		}
		handler := NewDashboardHandler(dashSvc)
		r := setupDashboardRouter(handler)

		rec := doRequest(r, "GET", "/dashboard/trend?months=12", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotMonths != 12 {
			t.Errorf("expected 12 months, got %d", gotMonths)
		}
	})

	t.Run("defaults months to service default when absent", func(t *testing.T) {
		var gotMonths int
		dashSvc := &mockDashboardService{
			trendFn: func(_ uint, months int) ([]services.MonthlyTrendPoint, error) {
				gotMonths = months
				return nil, nil
			},
		}
		handler := NewDashboardHandler(dashSvc)
		r := setupDashboardRouter(handler)

		rec := doRequest(r, "GET", "/dashboard/trend", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotMonths != 0 {
			t.Errorf("expected zero passthrough, got %d", gotMonths)
		}
	})

	t.Run("returns 400 when months is out of range", func(t *testing.T) {
		handler := NewDashboardHandler(&mockDashboardService{})
		r := setupDashboardRouter(handler)

		rec := doRequest(r, "GET", "/dashboard/trend?months=25", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestDashboardHandler_GetPaymentsCalendar(t *testing.T) {
	t.Run("groups payments by date", func(t *testing.T) {
		dashSvc := &mockDashboardService{
			calendarFn: func(_ uint, daysAhead int) (map[string][]models.Payment, error) {
				return map[string][]models.Payment{
					"2025-07-01": {{ID: 1}},
				}, nil
			},
		}
		handler := NewDashboardHandler(dashSvc)
		r := setupDashboardRouter(handler)

		rec := doRequest(r, "GET", "/dashboard/calendar?days=14", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		calendar := result["calendar"].(map[string]interface{})
		if _, ok := calendar["2025-07-01"]; !ok {
			t.Error("expected an entry for 2025-07-01")
		}
	})

	t.Run("returns 400 when days is out of range", func(t *testing.T) {
		handler := NewDashboardHandler(&mockDashboardService{})
		r := setupDashboardRouter(handler)

		rec := doRequest(r, "GET", "/dashboard/calendar?days=400", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
