package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
)

// --- mock transaction service ---

type mockTransactionService struct {
	createTransactionFn     func(userID uint, input services.TransactionInput) (*models.Transaction, error)
	getUserTransactionsFn   func(userID uint, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	transactionsForPeriodFn func(userID uint, start, end time.Time) ([]models.Transaction, error)
	getTransactionByIDFn    func(userID, transactionID uint) (*models.Transaction, error)
	updateTransactionFn     func(userID, transactionID uint, fields services.TransactionUpdateFields) (*models.Transaction, error)
	deleteTransactionFn     func(userID, transactionID uint) error
	createTransferFn        func(userID uint, input services.TransferInput) (*services.TransferResult, error)
	summaryForPeriodFn      func(userID uint, start, end time.Time) (*services.TransactionSummary, error)
	categorySpendingFn      func(userID uint, start, end time.Time, limit int) ([]services.CategorySpending, error)
}

func (m *mockTransactionService) CreateTransaction(userID uint, input services.TransactionInput) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(userID, input)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetUserTransactions(userID uint, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getUserTransactionsFn != nil {
		return m.getUserTransactionsFn(userID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) TransactionsForPeriod(userID uint, start, end time.Time) ([]models.Transaction, error) {
	if m.transactionsForPeriodFn != nil {
		return m.transactionsForPeriodFn(userID, start, end)
	}
	return nil, nil
}

func (m *mockTransactionService) GetTransactionByID(userID, transactionID uint) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(userID, transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) UpdateTransaction(userID, transactionID uint, fields services.TransactionUpdateFields) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(userID, transactionID, fields)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(userID, transactionID uint) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(userID, transactionID)
	}
	return nil
}

func (m *mockTransactionService) CreateTransfer(userID uint, input services.TransferInput) (*services.TransferResult, error) {
	if m.createTransferFn != nil {
		return m.createTransferFn(userID, input)
	}
	return &services.TransferResult{}, nil
}

func (m *mockTransactionService) SummaryForPeriod(userID uint, start, end time.Time) (*services.TransactionSummary, error) {
	if m.summaryForPeriodFn != nil {
		return m.summaryForPeriodFn(userID, start, end)
	}
	return &services.TransactionSummary{}, nil
}

func (m *mockTransactionService) CategorySpendingForPeriod(userID uint, start, end time.Time, limit int) ([]services.CategorySpending, error) {
	if m.categorySpendingFn != nil {
		return m.categorySpendingFn(userID, start, end, limit)
	}
	return nil, nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(1))
	auth.POST("/transactions", handler.CreateTransaction)
	auth.POST("/transactions/transfer", handler.CreateTransfer)
	auth.GET("/transactions", handler.GetUserTransactions)
	auth.GET("/transactions/:id", handler.GetTransactionByID)
	auth.PUT("/transactions/:id", handler.UpdateTransaction)
	auth.DELETE("/transactions/:id", handler.DeleteTransaction)
	return r
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		txSvc := &mockTransactionService{
			createTransactionFn: func(userID uint, input services.TransactionInput) (*models.Transaction, error) {
				return &models.Transaction{
					Base:      models.Base{ID: 1},
					UserID:    userID,
					AccountID: input.AccountID,
					Type:      input.Type,
					Amount:    input.Amount,
				}, nil
			},
		}
		handler := NewTransactionHandler(txSvc)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions",
			`{"account_id":1,"type":"income","amount":"5000.00","description":"Salary"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		tx := result["transaction"].(map[string]interface{})
		if tx["amount"] != "5000" {
			t.Errorf("expected amount 5000, got %v", tx["amount"])
		}
	})

	t.Run("returns 400 on missing account_id", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions",
			`{"type":"income","amount":"5000"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on zero amount", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions",
			`{"account_id":1,"type":"expense","amount":"0"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on invalid type", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions",
			`{"account_id":1,"type":"invalid","amount":"10"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when account not found", func(t *testing.T) {
		txSvc := &mockTransactionService{
			createTransactionFn: func(_ uint, _ services.TransactionInput) (*models.Transaction, error) {
				return nil, apperrors.ErrAccountNotFound
			},
		}
		handler := NewTransactionHandler(txSvc)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions",
			`{"account_id":999,"type":"income","amount":"10"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_NOT_FOUND")
	})

	t.Run("parses a bare date", func(t *testing.T) {
		var gotDate time.Time
		txSvc := &mockTransactionService{
			createTransactionFn: func(_ uint, input services.TransactionInput) (*models.Transaction, error) {
				gotDate = input.Date
				return &models.Transaction{}, nil
			},
		}
		handler := NewTransactionHandler(txSvc)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions",
			`{"account_id":1,"type":"expense","amount":"25.50","date":"2025-06-15"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotDate.Year() != 2025 || gotDate.Month() != time.June || gotDate.Day() != 15 {
			t.Errorf("expected date 2025-06-15, got %v", gotDate)
		}
	})
}

func TestTransactionHandler_CreateTransfer(t *testing.T) {
	t.Run("returns 201 with both legs", func(t *testing.T) {
		txSvc := &mockTransactionService{
			createTransferFn: func(userID uint, input services.TransferInput) (*services.TransferResult, error) {
				return &services.TransferResult{
					Outgoing: &models.Transaction{Base: models.Base{ID: 1}, AccountID: input.FromAccountID},
					Incoming: &models.Transaction{Base: models.Base{ID: 2}, AccountID: input.ToAccountID},
				}, nil
			},
		}
		handler := NewTransactionHandler(txSvc)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/transfer",
			`{"from_account_id":1,"to_account_id":2,"amount":"100.00"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		transfer := result["transfer"].(map[string]interface{})
		if transfer["outgoing"] == nil || transfer["incoming"] == nil {
			t.Error("expected outgoing and incoming legs in response")
		}
	})

	t.Run("passes an explicit exchange rate through", func(t *testing.T) {
		var gotRate *decimal.Decimal
		txSvc := &mockTransactionService{
			createTransferFn: func(_ uint, input services.TransferInput) (*services.TransferResult, error) {
				gotRate = input.ExchangeRate
				return &services.TransferResult{}, nil
			},
		}
		handler := NewTransactionHandler(txSvc)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/transfer",
			`{"from_account_id":1,"to_account_id":2,"amount":"100","exchange_rate":"1.25"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotRate == nil || !gotRate.Equal(decimal.RequireFromString("1.25")) {
			t.Errorf("expected exchange rate 1.25, got %v", gotRate)
		}
	})

	t.Run("returns 400 on missing amount", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/transfer",
			`{"from_account_id":1,"to_account_id":2}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 503 when exchange rate unavailable", func(t *testing.T) {
		txSvc := &mockTransactionService{
			createTransferFn: func(_ uint, _ services.TransferInput) (*services.TransferResult, error) {
				return nil, apperrors.ErrExchangeRateUnavailable
			},
		}
		handler := NewTransactionHandler(txSvc)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/transfer",
			`{"from_account_id":1,"to_account_id":2,"amount":"100"}`)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "EXCHANGE_RATE_UNAVAILABLE")
	})
}

func TestTransactionHandler_GetUserTransactions(t *testing.T) {
	t.Run("passes filters to the service", func(t *testing.T) {
		var gotFilter services.TransactionFilter
		txSvc := &mockTransactionService{
			getUserTransactionsFn: func(_ uint, _ pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				gotFilter = filter
				resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
				return &resp, nil
			},
		}
		handler := NewTransactionHandler(txSvc)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions?type=expense&category_id=3&from_date=2025-01-01", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotFilter.Type == nil || *gotFilter.Type != models.TransactionTypeExpense {
			t.Error("expected expense type filter")
		}
		if gotFilter.CategoryID == nil || *gotFilter.CategoryID != 3 {
			t.Error("expected category filter 3")
		}
		if gotFilter.FromDate == nil {
			t.Error("expected from_date filter")
		}
	})

	t.Run("returns 400 on bad type filter", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions?type=savings", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		txSvc := &mockTransactionService{
			updateTransactionFn: func(_, txID uint, fields services.TransactionUpdateFields) (*models.Transaction, error) {
				return &models.Transaction{Base: models.Base{ID: txID}, Amount: *fields.Amount}, nil
			},
		}
		handler := NewTransactionHandler(txSvc)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "PUT", "/transactions/4", `{"amount":"250.00"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 400 when editing a transfer leg", func(t *testing.T) {
		txSvc := &mockTransactionService{
			updateTransactionFn: func(_, _ uint, _ services.TransactionUpdateFields) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotEditable
			},
		}
		handler := NewTransactionHandler(txSvc)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "PUT", "/transactions/4", `{"amount":"250.00"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_EDITABLE")
	})

	t.Run("returns 400 on bad path id", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "PUT", "/transactions/abc", `{"amount":"10"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		deleted := uint(0)
		txSvc := &mockTransactionService{
			deleteTransactionFn: func(_, txID uint) error {
				deleted = txID
				return nil
			},
		}
		handler := NewTransactionHandler(txSvc)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "DELETE", "/transactions/9", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if deleted != 9 {
			t.Errorf("expected transaction 9 deleted, got %d", deleted)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		txSvc := &mockTransactionService{
			deleteTransactionFn: func(_, _ uint) error {
				return apperrors.ErrTransactionNotFound
			},
		}
		handler := NewTransactionHandler(txSvc)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "DELETE", "/transactions/9", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
