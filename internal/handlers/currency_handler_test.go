package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fintrack/internal/services"
)

// --- mock currency service ---

type mockCurrencyService struct {
	getRateFn func(fromCurrency, toCurrency string, date *time.Time) (*decimal.Decimal, error)
	convertFn func(amount decimal.Decimal, fromCurrency, toCurrency string, date *time.Time) (*decimal.Decimal, error)
}

func (m *mockCurrencyService) GetRate(fromCurrency, toCurrency string, date *time.Time) (*decimal.Decimal, error) {
	if m.getRateFn != nil {
		return m.getRateFn(fromCurrency, toCurrency, date)
	}
	rate := decimal.NewFromInt(1)
	return &rate, nil
}

func (m *mockCurrencyService) Convert(amount decimal.Decimal, fromCurrency, toCurrency string, date *time.Time) (*decimal.Decimal, error) {
	if m.convertFn != nil {
		return m.convertFn(amount, fromCurrency, toCurrency, date)
	}
	return &amount, nil
}

var _ services.CurrencyServicer = (*mockCurrencyService)(nil)

func setupCurrencyRouter(handler *CurrencyHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(1))
	auth.GET("/currency/rate", handler.GetRate)
	auth.GET("/currency/convert", handler.Convert)
	return r
}

func TestCurrencyHandler_GetRate(t *testing.T) {
	t.Run("returns the rate with uppercased codes", func(t *testing.T) {
		curSvc := &mockCurrencyService{
			getRateFn: func(from, to string, _ *time.Time) (*decimal.Decimal, error) {
				rate := decimal.RequireFromString("0.9234")
				return &rate, nil
			},
		}
		handler := NewCurrencyHandler(curSvc)
		r := setupCurrencyRouter(handler)

		rec := doRequest(r, "GET", "/currency/rate?from=usd&to=eur", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["from"] != "USD" || result["to"] != "EUR" {
			t.Errorf("expected uppercased codes, got %v -> %v", result["from"], result["to"])
		}
		if result["rate"] != "0.9234" {
			t.Errorf("expected rate 0.9234, got %v", result["rate"])
		}
	})

	t.Run("returns 400 when a currency is missing", func(t *testing.T) {
		handler := NewCurrencyHandler(&mockCurrencyService{})
		r := setupCurrencyRouter(handler)

		rec := doRequest(r, "GET", "/currency/rate?from=USD", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 503 when no rate is available", func(t *testing.T) {
		curSvc := &mockCurrencyService{
			getRateFn: func(_, _ string, _ *time.Time) (*decimal.Decimal, error) {
				return nil, nil
			},
		}
		handler := NewCurrencyHandler(curSvc)
		r := setupCurrencyRouter(handler)

		rec := doRequest(r, "GET", "/currency/rate?from=USD&to=EUR", "")

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "EXCHANGE_RATE_UNAVAILABLE")
	})

	t.Run("passes an explicit date through", func(t *testing.T) {
		var gotDate *time.Time
		curSvc := &mockCurrencyService{
			getRateFn: func(_, _ string, date *time.Time) (*decimal.Decimal, error) {
				gotDate = date
				rate := decimal.NewFromInt(1)
				return &rate, nil
			},
		}
		handler := NewCurrencyHandler(curSvc)
		r := setupCurrencyRouter(handler)

		rec := doRequest(r, "GET", "/currency/rate?from=USD&to=EUR&date=2025-06-01", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotDate == nil || gotDate.Day() != 1 || gotDate.Month() != time.June {
			t.Errorf("expected June 1st passthrough, got %v", gotDate)
		}
	})
}

func TestCurrencyHandler_Convert(t *testing.T) {
	t.Run("converts the amount", func(t *testing.T) {
		curSvc := &mockCurrencyService{
			convertFn: func(amount decimal.Decimal, _, _ string, _ *time.Time) (*decimal.Decimal, error) {
				converted := amount.Mul(decimal.RequireFromString("0.5"))
				return &converted, nil
			},
			getRateFn: func(_, _ string, _ *time.Time) (*decimal.Decimal, error) {
				rate := decimal.RequireFromString("0.5")
				return &rate, nil
			},
		}
		handler := NewCurrencyHandler(curSvc)
		r := setupCurrencyRouter(handler)

		rec := doRequest(r, "GET", "/currency/convert?from=USD&to=EUR&amount=100", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["converted"] != "50" {
			t.Errorf("expected converted 50, got %v", result["converted"])
		}
		if result["rate"] != "0.5" {
			t.Errorf("expected rate 0.5, got %v", result["rate"])
		}
	})

	t.Run("returns 400 on a non-positive amount", func(t *testing.T) {
		handler := NewCurrencyHandler(&mockCurrencyService{})
		r := setupCurrencyRouter(handler)

		rec := doRequest(r, "GET", "/currency/convert?from=USD&to=EUR&amount=-5", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on a malformed amount", func(t *testing.T) {
		handler := NewCurrencyHandler(&mockCurrencyService{})
		r := setupCurrencyRouter(handler)

		rec := doRequest(r, "GET", "/currency/convert?from=USD&to=EUR&amount=lots", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
