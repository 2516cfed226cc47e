package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/services"
)

// CurrencyHandler handles exchange-rate lookups and conversions.
type CurrencyHandler struct {
	currencyService services.CurrencyServicer
}

// NewCurrencyHandler creates a new CurrencyHandler.
func NewCurrencyHandler(currencyService services.CurrencyServicer) *CurrencyHandler {
	return &CurrencyHandler{currencyService: currencyService}
}

// RateResponse represents an exchange rate in the response
type RateResponse struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}

// ConvertResponse represents a conversion result in the response
type ConvertResponse struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Converted decimal.Decimal `json:"converted"`
	Rate      decimal.Decimal `json:"rate"`
}

func currencyPair(c *gin.Context) (string, string, *time.Time, error) {
	from := strings.TrimSpace(c.Query("from"))
	to := strings.TrimSpace(c.Query("to"))
	if from == "" || to == "" {
		return "", "", nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "from and to currencies are required")
	}

	var date *time.Time
	if v := c.Query("date"); v != "" {
		parsed, err := parseFlexibleTime(v)
		if err != nil {
			return "", "", nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid date format, use RFC3339 or YYYY-MM-DD")
		}
		date = &parsed
	}

	return from, to, date, nil
}

// GetRate handles an exchange rate lookup
// @Summary     Get exchange rate
// @Description Get the exchange rate between two currencies, served from the daily cache when fresh
// @Tags        currency
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       from query string true  "Source currency code"
// @Param       to   query string true  "Target currency code"
// @Param       date query string false "Rate date (RFC3339 or YYYY-MM-DD, default today)"
// @Success     200 {object} RateResponse "Exchange rate"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     503 {object} ErrorResponse "Exchange rate unavailable"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /currency/rate [get]
func (h *CurrencyHandler) GetRate(c *gin.Context) {
	from, to, date, err := currencyPair(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rate, err := h.currencyService.GetRate(from, to, date)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if rate == nil {
		respondWithError(c, apperrors.ErrExchangeRateUnavailable)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from": strings.ToUpper(from),
		"to":   strings.ToUpper(to),
		"rate": rate,
	})
}

// Convert handles a currency conversion
// @Summary     Convert an amount
// @Description Convert an amount between two currencies using the cached rate
// @Tags        currency
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       from   query string true  "Source currency code"
// @Param       to     query string true  "Target currency code"
// @Param       amount query string true  "Amount to convert"
// @Param       date   query string false "Rate date (RFC3339 or YYYY-MM-DD, default today)"
// @Success     200 {object} ConvertResponse "Conversion result"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     503 {object} ErrorResponse "Exchange rate unavailable"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /currency/convert [get]
func (h *CurrencyHandler) Convert(c *gin.Context) {
	from, to, date, err := currencyPair(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil || !amount.IsPositive() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be a positive number"))
		return
	}

	converted, err := h.currencyService.Convert(amount, from, to, date)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if converted == nil {
		respondWithError(c, apperrors.ErrExchangeRateUnavailable)
		return
	}

	rate, err := h.currencyService.GetRate(from, to, date)
	if err != nil || rate == nil {
		respondWithError(c, apperrors.ErrExchangeRateUnavailable)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":      strings.ToUpper(from),
		"to":        strings.ToUpper(to),
		"amount":    amount,
		"converted": converted,
		"rate":      rate,
	})
}
