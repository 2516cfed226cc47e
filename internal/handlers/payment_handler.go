package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
)

// PaymentHandler handles scheduled payment requests.
type PaymentHandler struct {
	paymentService services.PaymentServicer
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService services.PaymentServicer) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateManualPaymentRequest represents the request payload for a one-off payment
type CreateManualPaymentRequest struct {
	AccountID   uint            `json:"account_id" binding:"required"`
	CategoryID  uint            `json:"category_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" binding:"omitempty,iso4217"`
	Description string          `json:"description" binding:"max=500"`
	DueDate     string          `json:"due_date" binding:"required"`
}

// MarkPaidRequest represents the optional settlement date payload
type MarkPaidRequest struct {
	PaidDate *string `json:"paid_date"`
}

// MarkUnpaidRequest represents the payload for reverting a settlement
type MarkUnpaidRequest struct {
	DeleteTransaction *bool `json:"delete_transaction"`
}

// CreateManualPayment handles the creation of a one-off scheduled payment
// @Summary     Create a manual payment
// @Description Create a one-off scheduled payment not tied to a recurring schedule
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateManualPaymentRequest true "Payment details"
// @Success     201 {object} models.Payment "Payment created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /payments [post]
func (h *PaymentHandler) CreateManualPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateManualPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	dueDate, err := parseFlexibleTime(req.DueDate)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid due_date format, use RFC3339 or YYYY-MM-DD"))
		return
	}

	payment, err := h.paymentService.CreateManualPayment(userID, services.ManualPaymentInput{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		DueDate:     dueDate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// GetUserPayments handles the retrieval of payments for a user
// @Summary     Get user payments
// @Description Get a paginated list of scheduled payments for the authenticated user
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Payment] "Paginated payments"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /payments [get]
func (h *PaymentHandler) GetUserPayments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.paymentService.GetUserPayments(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetUpcomingPayments handles the retrieval of unpaid payments due soon
// @Summary     Get upcoming payments
// @Description Get unpaid payments due between now and the given date
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       until query string false "Upper bound date (RFC3339 or YYYY-MM-DD)"
// @Success     200 {array} models.Payment "Upcoming payments"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /payments/upcoming [get]
func (h *PaymentHandler) GetUpcomingPayments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if input := c.Query("until"); input != "" {
		parsed, parseErr := parseFlexibleTime(input)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid until format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		payments, err := h.paymentService.UpcomingPayments(userID, &parsed)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payments": payments})
		return
	}

	payments, err := h.paymentService.UpcomingPayments(userID, nil)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// GetOverduePayments handles the retrieval of unpaid payments past their due date
// @Summary     Get overdue payments
// @Description Get unpaid payments whose due date has already passed
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Payment "Overdue payments"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /payments/overdue [get]
func (h *PaymentHandler) GetOverduePayments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	payments, err := h.paymentService.OverduePayments(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// GetPaymentByID handles the retrieval of a specific payment
// @Summary     Get payment by ID
// @Description Get a specific scheduled payment by ID
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Payment ID"
// @Success     200 {object} models.Payment "Payment details"
// @Failure     400 {object} ErrorResponse "Invalid payment ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Payment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /payments/{id} [get]
func (h *PaymentHandler) GetPaymentByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	paymentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	payment, err := h.paymentService.GetPaymentByID(userID, paymentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// MarkPaid handles settling a payment
// @Summary     Mark payment as paid
// @Description Settle a payment: records a ledger transaction, adjusts the account balance, and schedules the next occurrence for recurring payments
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int             true  "Payment ID"
// @Param       request body MarkPaidRequest false "Optional settlement date"
// @Success     200 {object} TransactionResponse "Settlement transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Payment already paid"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Payment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /payments/{id}/pay [post]
func (h *PaymentHandler) MarkPaid(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	paymentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req MarkPaidRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	if req.PaidDate != nil && *req.PaidDate != "" {
		parsed, parseErr := parseFlexibleTime(*req.PaidDate)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid paid_date format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		transaction, err := h.paymentService.MarkPaid(userID, paymentID, &parsed)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction": transaction})
		return
	}

	transaction, err := h.paymentService.MarkPaid(userID, paymentID, nil)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// MarkUnpaid handles reverting a settled payment
// @Summary     Mark payment as unpaid
// @Description Revert a settled payment, deleting its transaction and restoring the account balance
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int               true  "Payment ID"
// @Param       request body MarkUnpaidRequest false "Revert options"
// @Success     200 {object} MessageResponse "Payment reverted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Payment already unpaid"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Payment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /payments/{id}/unpay [post]
func (h *PaymentHandler) MarkUnpaid(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	paymentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	deleteTransaction := true
	var req MarkUnpaidRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
		if req.DeleteTransaction != nil {
			deleteTransaction = *req.DeleteTransaction
		}
	}

	if err := h.paymentService.MarkUnpaid(userID, paymentID, deleteTransaction); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment marked as unpaid"})
}

// DeletePayment handles the deletion of a payment
// @Summary     Delete payment
// @Description Delete a scheduled payment. Paid payments are reverted first.
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Payment ID"
// @Success     200 {object} MessageResponse "Payment deleted"
// @Failure     400 {object} ErrorResponse "Invalid payment ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Payment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /payments/{id} [delete]
func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	paymentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.paymentService.DeletePayment(userID, paymentID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment deleted successfully"})
}

// GeneratePayments handles refreshing the projected payment schedule
// @Summary     Generate due payments
// @Description Project payments for all active recurring schedules up to the given date
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       until query string false "Upper bound date (RFC3339 or YYYY-MM-DD)"
// @Success     200 {array} models.Payment "Newly generated payments"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /payments/generate [post]
func (h *PaymentHandler) GeneratePayments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if v := c.Query("until"); v != "" {
		parsed, parseErr := parseFlexibleTime(v)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid until format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		payments, err := h.paymentService.GenerateAllForUser(userID, &parsed)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payments": payments})
		return
	}

	payments, err := h.paymentService.GenerateAllForUser(userID, nil)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
