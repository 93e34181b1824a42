package handler

import (
	"errors"
	"net/http"

	"github.com/campusmess/mealmarket/internal/api/middleware"
	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidHandler serves bid placement and withdrawal endpoints.
type BidHandler struct {
	bidSvc *service.BidService
}

// NewBidHandler creates a BidHandler.
func NewBidHandler(bidSvc *service.BidService) *BidHandler {
	return &BidHandler{bidSvc: bidSvc}
}

// PlaceBid godoc
// POST /api/listings/:id/bids [JWT]
// Body: {"amount":"85.00"}
func (h *BidHandler) PlaceBid(c *gin.Context) {
	bidderID := middleware.GetUserID(c)

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid listing id")
		return
	}

	var body struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a decimal string")
		return
	}

	bid, err := h.bidSvc.PlaceBid(c.Request.Context(), listingID, bidderID, amount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrListingNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case errors.Is(err, domain.ErrListingNotActive):
			respondError(c, http.StatusConflict, "ERR_NOT_ACTIVE", err.Error())
		case errors.Is(err, domain.ErrOwnListingBid):
			respondError(c, http.StatusForbidden, "ERR_OWN_LISTING", err.Error())
		case errors.Is(err, domain.ErrBidTooLow):
			respondError(c, http.StatusBadRequest, "ERR_BID_TOO_LOW", err.Error())
		case errors.Is(err, domain.ErrInvalidBidAmount):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not place bid")
		}
		return
	}
	respondSuccess(c, http.StatusCreated, bid)
}

// WithdrawBids godoc
// DELETE /api/listings/:id/bids [JWT]
// Removes all of the caller's bids on the listing. Idempotent.
func (h *BidHandler) WithdrawBids(c *gin.Context) {
	bidderID := middleware.GetUserID(c)

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid listing id")
		return
	}

	removed, err := h.bidSvc.WithdrawBids(c.Request.Context(), listingID, bidderID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrListingNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case errors.Is(err, domain.ErrListingNotActive):
			respondError(c, http.StatusConflict, "ERR_NOT_ACTIVE", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not withdraw bids")
		}
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"removed": removed})
}

// ListBids godoc
// GET /api/listings/:id/bids
func (h *BidHandler) ListBids(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid listing id")
		return
	}

	bids, err := h.bidSvc.BidsForListing(c.Request.Context(), listingID)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch bids")
		return
	}
	respondSuccess(c, http.StatusOK, bids)
}
