package handler

import (
	"errors"
	"net/http"

	"github.com/campusmess/mealmarket/internal/api/middleware"
	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler serves UPI payment confirmation and history endpoints.
type PaymentHandler struct {
	paymentSvc *service.PaymentService
}

// NewPaymentHandler creates a PaymentHandler.
func NewPaymentHandler(paymentSvc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// Confirm godoc
// POST /api/payments/:id/confirm [JWT]
// Body: {"upi_transaction_id":"TXN123..."}
func (h *PaymentHandler) Confirm(c *gin.Context) {
	userID := middleware.GetUserID(c)

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid payment id")
		return
	}

	var body struct {
		UPITransactionID string `json:"upi_transaction_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	p, err := h.paymentSvc.Confirm(c.Request.Context(), paymentID, userID, body.UPITransactionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case errors.Is(err, domain.ErrPaymentNotPending):
			respondError(c, http.StatusConflict, "ERR_NOT_PENDING", err.Error())
		case errors.Is(err, domain.ErrForbidden):
			respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", "only the buyer may confirm")
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not confirm payment")
		}
		return
	}
	respondSuccess(c, http.StatusOK, p)
}

// ByListing godoc
// GET /api/listings/:id/payment [JWT]
func (h *PaymentHandler) ByListing(c *gin.Context) {
	userID := middleware.GetUserID(c)

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid listing id")
		return
	}

	p, err := h.paymentSvc.GetByListing(c.Request.Context(), listingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case errors.Is(err, domain.ErrForbidden):
			respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", "not a counterparty of this sale")
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch payment")
		}
		return
	}
	respondSuccess(c, http.StatusOK, p)
}

// My godoc
// GET /api/payments [JWT]
func (h *PaymentHandler) My(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := parsePagination(c)

	payments, err := h.paymentSvc.ListByUser(c.Request.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch payments")
		return
	}
	respondList(c, payments, len(payments), page, limit)
}
