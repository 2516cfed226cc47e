package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/clock"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
)

// RateFetcher retrieves the per-base-currency rate table from an external
// source. Implementations must handle their own failover; a returned error
// means every source failed.
type RateFetcher interface {
	Fetch(baseCurrency string) (map[string]decimal.Decimal, error)
}

const (
	// Primary rate API via the jsDelivr CDN.
	primaryRateEndpoint = "https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@latest/v1/currencies/%s.min.json"
	// Fallback mirror on Cloudflare Pages.
	fallbackRateEndpoint = "https://latest.currency-api.pages.dev/v1/currencies/%s.min.json"

	rateFetchTimeout = 5 * time.Second
)

// HTTPRateFetcher fetches rate tables over HTTP, trying each endpoint in
// order until one responds.
type HTTPRateFetcher struct {
	Endpoints []string
	Client    *http.Client
}

// NewHTTPRateFetcher creates a fetcher with the default endpoints and a
// short per-attempt timeout.
func NewHTTPRateFetcher() *HTTPRateFetcher {
	return &HTTPRateFetcher{
		Endpoints: []string{primaryRateEndpoint, fallbackRateEndpoint},
		Client:    &http.Client{Timeout: rateFetchTimeout},
	}
}

// Fetch retrieves the rate table for one base currency.
// Response shape: {"date":"2025-12-05","eur":{"usd":1.1,...}}.
func (f *HTTPRateFetcher) Fetch(baseCurrency string) (map[string]decimal.Decimal, error) {
	var lastErr error

	for _, endpoint := range f.Endpoints {
		url := fmt.Sprintf(endpoint, baseCurrency)
		table, err := f.fetchFromEndpoint(url, baseCurrency)
		if err != nil {
			logger.Get().Warnw("currency rate fetch failed",
				"url", url,
				"error", err.Error(),
			)
			lastErr = err
			continue
		}
		return table, nil
	}

	return nil, lastErr
}

func (f *HTTPRateFetcher) fetchFromEndpoint(url, baseCurrency string) (map[string]decimal.Decimal, error) {
	resp, err := f.Client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	raw, ok := payload[baseCurrency]
	if !ok {
		return nil, fmt.Errorf("base currency %q missing from response", baseCurrency)
	}

	var table map[string]decimal.Decimal
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, err
	}
	return table, nil
}

// currencyService caches exchange rates per (from, to, date). A cache row
// refreshed today is authoritative; older rows are used only when a live
// fetch fails.
type currencyService struct {
	db      *gorm.DB
	clock   clock.Clock
	fetcher RateFetcher
}

// NewCurrencyService creates a new CurrencyServicer.
func NewCurrencyService(db *gorm.DB, clk clock.Clock, fetcher RateFetcher) CurrencyServicer {
	return &currencyService{db: db, clock: clk, fetcher: fetcher}
}

// GetRate returns the exchange rate from one currency to another on the
// given date (today when nil). A nil rate with a nil error means the rate is
// unavailable; fetch failures never propagate to the caller.
func (s *currencyService) GetRate(fromCurrency, toCurrency string, date *time.Time) (*decimal.Decimal, error) {
	from := strings.ToLower(fromCurrency)
	to := strings.ToLower(toCurrency)

	if from == to {
		one := decimal.NewFromInt(1)
		return &one, nil
	}

	day := models.StartOfDay(s.clock.Now())
	if date != nil {
		day = models.StartOfDay(*date)
	}

	cached, err := s.cachedRate(from, to, day)
	if err != nil {
		return nil, err
	}
	if cached != nil && models.StartOfDay(cached.UpdatedAt).Equal(models.StartOfDay(s.clock.Now())) {
		rate := cached.Rate
		return &rate, nil
	}

	rate := s.fetchRate(from, to)
	if rate == nil {
		if cached != nil {
			logger.Get().Warnw("using stale cached exchange rate",
				"from", from,
				"to", to,
				"date", day.Format("2006-01-02"),
				"cached_at", cached.UpdatedAt,
			)
			stale := cached.Rate
			return &stale, nil
		}
		return nil, nil
	}

	if err := s.upsertRate(cached, from, to, day, *rate); err != nil {
		return nil, err
	}
	return rate, nil
}

// Convert converts an amount between currencies using GetRate. Returns nil
// when the rate is unavailable.
func (s *currencyService) Convert(amount decimal.Decimal, fromCurrency, toCurrency string, date *time.Time) (*decimal.Decimal, error) {
	rate, err := s.GetRate(fromCurrency, toCurrency, date)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, nil
	}
	converted := amount.Mul(*rate).Round(2)
	return &converted, nil
}

func (s *currencyService) cachedRate(from, to string, day time.Time) (*models.CurrencyExchangeRate, error) {
	var row models.CurrencyExchangeRate
	err := s.db.Where("from_currency = ? AND to_currency = ? AND date = ?", from, to, day).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &row, nil
}

// fetchRate queries the external source and extracts the requested quote.
// Returns nil on any failure.
func (s *currencyService) fetchRate(from, to string) *decimal.Decimal {
	table, err := s.fetcher.Fetch(from)
	if err != nil {
		logger.Get().Warnw("failed to fetch currency rates",
			"from", from,
			"to", to,
			"error", err.Error(),
		)
		return nil
	}

	rate, ok := table[to]
	if !ok {
		logger.Get().Warnw("currency rate not found in source response",
			"from", from,
			"to", to,
		)
		return nil
	}
	rate = rate.Round(6)
	return &rate
}

func (s *currencyService) upsertRate(existing *models.CurrencyExchangeRate, from, to string, day time.Time, rate decimal.Decimal) error {
	if existing != nil {
		if err := s.db.Model(existing).Update("rate", rate).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	}

	row := &models.CurrencyExchangeRate{
		FromCurrency: from,
		ToCurrency:   to,
		Date:         day,
		Rate:         rate,
	}
	if err := s.db.Create(row).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
