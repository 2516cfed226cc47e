package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
)

// RecurringPaymentHandler handles recurring payment schedule requests.
type RecurringPaymentHandler struct {
	recurringPaymentService services.RecurringPaymentServicer
}

// NewRecurringPaymentHandler creates a new RecurringPaymentHandler.
func NewRecurringPaymentHandler(recurringPaymentService services.RecurringPaymentServicer) *RecurringPaymentHandler {
	return &RecurringPaymentHandler{recurringPaymentService: recurringPaymentService}
}

// CreateRecurringPaymentRequest represents the request payload for creating a recurring payment
type CreateRecurringPaymentRequest struct {
	AccountID     uint                `json:"account_id" binding:"required"`
	CategoryID    uint                `json:"category_id" binding:"required"`
	Name          string              `json:"name" binding:"required,min=1,max=100"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency" binding:"omitempty,iso4217"`
	IntervalType  models.IntervalType `json:"interval_type" binding:"required,interval_type"`
	IntervalValue int                 `json:"interval_value" binding:"omitempty,min=1"`
	StartDate     string              `json:"start_date" binding:"required"`
	EndDate       *string             `json:"end_date"`
	Installments  *int                `json:"installments" binding:"omitempty,min=1"`
	IsActive      *bool               `json:"is_active"`
}

// UpdateRecurringPaymentRequest represents the request payload for updating a
// recurring payment. end_date and installments accept an explicit null via the
// clear flags below.
type UpdateRecurringPaymentRequest struct {
	AccountID         *uint                `json:"account_id"`
	CategoryID        *uint                `json:"category_id"`
	Name              *string              `json:"name" binding:"omitempty,min=1,max=100"`
	Amount            *decimal.Decimal     `json:"amount"`
	Currency          *string              `json:"currency" binding:"omitempty,iso4217"`
	IntervalType      *models.IntervalType `json:"interval_type" binding:"omitempty,interval_type"`
	IntervalValue     *int                 `json:"interval_value" binding:"omitempty,min=1"`
	StartDate         *string              `json:"start_date"`
	EndDate           *string              `json:"end_date"`
	ClearEndDate      bool                 `json:"clear_end_date"`
	Installments      *int                 `json:"installments" binding:"omitempty,min=1"`
	ClearInstallments bool                 `json:"clear_installments"`
	IsActive          *bool                `json:"is_active"`
}

// CreateRecurringPayment handles the creation of a new recurring payment
// @Summary     Create a recurring payment
// @Description Create a recurring payment schedule; active schedules immediately project their due payments
// @Tags        recurring-payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateRecurringPaymentRequest true "Recurring payment details"
// @Success     201 {object} models.RecurringPayment "Recurring payment created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-payments [post]
func (h *RecurringPaymentHandler) CreateRecurringPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRecurringPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	startDate, err := parseFlexibleTime(req.StartDate)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid start_date format, use RFC3339 or YYYY-MM-DD"))
		return
	}

	input := services.RecurringPaymentInput{
		AccountID:     req.AccountID,
		CategoryID:    req.CategoryID,
		Name:          req.Name,
		Amount:        req.Amount,
		Currency:      req.Currency,
		IntervalType:  req.IntervalType,
		IntervalValue: req.IntervalValue,
		StartDate:     startDate,
		Installments:  req.Installments,
		IsActive:      req.IsActive,
	}

	if req.EndDate != nil && *req.EndDate != "" {
		endDate, parseErr := parseFlexibleTime(*req.EndDate)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid end_date format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		input.EndDate = &endDate
	}

	rp, err := h.recurringPaymentService.CreateRecurringPayment(userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"recurring_payment": rp})
}

// GetUserRecurringPayments handles the retrieval of recurring payments for a user
// @Summary     Get user recurring payments
// @Description Get a paginated list of recurring payment schedules, active first
// @Tags        recurring-payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.RecurringPayment] "Paginated recurring payments"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-payments [get]
func (h *RecurringPaymentHandler) GetUserRecurringPayments(c *gin.Context) {
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

	result, err := h.recurringPaymentService.GetUserRecurringPayments(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecurringPaymentByID handles the retrieval of a specific recurring payment
// @Summary     Get recurring payment by ID
// @Description Get a specific recurring payment schedule by ID
// @Tags        recurring-payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Recurring payment ID"
// @Success     200 {object} models.RecurringPayment "Recurring payment details"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring payment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-payments/{id} [get]
func (h *RecurringPaymentHandler) GetRecurringPaymentByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rpID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rp, err := h.recurringPaymentService.GetRecurringPaymentByID(userID, rpID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurring_payment": rp})
}

// UpdateRecurringPayment handles updating a recurring payment
// @Summary     Update recurring payment
// @Description Update a recurring payment schedule. Changes propagate to unpaid projected payments; paid payments keep their settled values.
// @Tags        recurring-payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                           true "Recurring payment ID"
// @Param       request body UpdateRecurringPaymentRequest true "Fields to update"
// @Success     200 {object} models.RecurringPayment "Updated recurring payment"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring payment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-payments/{id} [put]
func (h *RecurringPaymentHandler) UpdateRecurringPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rpID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRecurringPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive"))
		return
	}

	fields := services.RecurringPaymentUpdateFields{
		AccountID:     req.AccountID,
		CategoryID:    req.CategoryID,
		Name:          req.Name,
		Amount:        req.Amount,
		Currency:      req.Currency,
		IntervalType:  req.IntervalType,
		IntervalValue: req.IntervalValue,
		IsActive:      req.IsActive,
	}

	if req.StartDate != nil && *req.StartDate != "" {
		parsed, parseErr := parseFlexibleTime(*req.StartDate)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid start_date format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		fields.StartDate = &parsed
	}

	switch {
	case req.ClearEndDate:
		var cleared *time.Time
		fields.EndDate = &cleared
	case req.EndDate != nil && *req.EndDate != "":
		parsed, parseErr := parseFlexibleTime(*req.EndDate)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid end_date format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		endDate := &parsed
		fields.EndDate = &endDate
	}

	switch {
	case req.ClearInstallments:
		var cleared *int
		fields.Installments = &cleared
	case req.Installments != nil:
		fields.Installments = &req.Installments
	}

	rp, err := h.recurringPaymentService.UpdateRecurringPayment(userID, rpID, fields)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurring_payment": rp})
}

// ActivateRecurringPayment handles resuming a paused schedule
// @Summary     Activate recurring payment
// @Description Activate a recurring payment and regenerate its projected payments
// @Tags        recurring-payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Recurring payment ID"
// @Success     200 {object} models.RecurringPayment "Activated recurring payment"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring payment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-payments/{id}/activate [post]
func (h *RecurringPaymentHandler) ActivateRecurringPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rpID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rp, err := h.recurringPaymentService.ActivateRecurringPayment(userID, rpID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurring_payment": rp})
}

// DeactivateRecurringPayment handles pausing a schedule
// @Summary     Deactivate recurring payment
// @Description Deactivate a recurring payment and remove its unpaid projected payments
// @Tags        recurring-payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Recurring payment ID"
// @Success     200 {object} models.RecurringPayment "Deactivated recurring payment"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring payment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-payments/{id}/deactivate [post]
func (h *RecurringPaymentHandler) DeactivateRecurringPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rpID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rp, err := h.recurringPaymentService.DeactivateRecurringPayment(userID, rpID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurring_payment": rp})
}

// DeleteRecurringPayment handles the deletion of a recurring payment
// @Summary     Delete recurring payment
// @Description Delete a recurring payment schedule and its unpaid projected payments. Paid payments are kept as history.
// @Tags        recurring-payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Recurring payment ID"
// @Success     200 {object} MessageResponse "Recurring payment deleted"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring payment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-payments/{id} [delete]
func (h *RecurringPaymentHandler) DeleteRecurringPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rpID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.recurringPaymentService.DeleteRecurringPayment(userID, rpID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recurring payment deleted successfully"})
}

// RegeneratePayments handles re-projecting a schedule's payments
// @Summary     Regenerate payments
// @Description Re-project due payments for an active recurring payment
// @Tags        recurring-payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Recurring payment ID"
// @Success     200 {array} models.Payment "Newly generated payments"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring payment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-payments/{id}/regenerate [post]
func (h *RecurringPaymentHandler) RegeneratePayments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rpID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	payments, err := h.recurringPaymentService.RegeneratePayments(userID, rpID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// GetStatistics handles the retrieval of a schedule's payment statistics
// @Summary     Get recurring payment statistics
// @Description Get paid/unpaid counts, settled and pending totals, and the next due date for a recurring payment
// @Tags        recurring-payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Recurring payment ID"
// @Success     200 {object} services.RecurringPaymentStats "Statistics"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recurring payment not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-payments/{id}/statistics [get]
func (h *RecurringPaymentHandler) GetStatistics(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rpID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	stats, err := h.recurringPaymentService.Statistics(userID, rpID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"statistics": stats})
}
