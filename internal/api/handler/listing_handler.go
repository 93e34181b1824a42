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

// ListingHandler serves listing creation, browsing, and lifecycle endpoints.
type ListingHandler struct {
	listingSvc *service.ListingService
}

// NewListingHandler creates a ListingHandler.
func NewListingHandler(listingSvc *service.ListingService) *ListingHandler {
	return &ListingHandler{listingSvc: listingSvc}
}

// Create godoc
// POST /api/listings [JWT]
// Body: {"mess":"North Mess","meal_time":"dinner","date":"2026-09-01",
//
//	"pricing_mode":"fixed_decay","target_price":"100.00",
//	"price_drop_amount":"10.00","drop_interval_sec":600}
func (h *ListingHandler) Create(c *gin.Context) {
	sellerID := middleware.GetUserID(c)

	var body struct {
		Mess            string `json:"mess"               binding:"required"`
		MealTime        string `json:"meal_time"          binding:"required"`
		Date            string `json:"date"               binding:"required"`
		PricingMode     string `json:"pricing_mode"       binding:"required"`
		TargetPrice     string `json:"target_price"       binding:"required"`
		PriceDropAmount string `json:"price_drop_amount"`
		DropIntervalSec int64  `json:"drop_interval_sec"`
		AuctionDuration int64  `json:"auction_duration_sec"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	target, err := decimal.NewFromString(body.TargetPrice)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_PRICE", "target_price must be a decimal string")
		return
	}
	var drop decimal.Decimal
	if body.PriceDropAmount != "" {
		drop, err = decimal.NewFromString(body.PriceDropAmount)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_PRICE", "price_drop_amount must be a decimal string")
			return
		}
	}

	l, err := h.listingSvc.Create(c.Request.Context(), domain.CreateListingParams{
		SellerID:        sellerID,
		Mess:            body.Mess,
		MealTime:        body.MealTime,
		Date:            body.Date,
		Mode:            domain.PricingMode(body.PricingMode),
		TargetPrice:     target,
		PriceDropAmount: drop,
		DropInterval:    body.DropIntervalSec,
		AuctionDuration: body.AuctionDuration,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidListingParams) {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_PARAMS", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not create listing")
		return
	}
	respondSuccess(c, http.StatusCreated, l)
}

// ListActive godoc
// GET /api/listings?mess=&date_from=&date_to=&page=&limit=
func (h *ListingHandler) ListActive(c *gin.Context) {
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	listings, err := h.listingSvc.ListActive(c.Request.Context(),
		c.Query("mess"), c.Query("date_from"), c.Query("date_to"), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch listings")
		return
	}
	respondList(c, listings, len(listings), page, limit)
}

// GetByID godoc
// GET /api/listings/:id
func (h *ListingHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid listing id")
		return
	}

	l, err := h.listingSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch listing")
		return
	}
	respondSuccess(c, http.StatusOK, l)
}

// Unlist godoc
// DELETE /api/listings/:id [JWT]
func (h *ListingHandler) Unlist(c *gin.Context) {
	userID := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid listing id")
		return
	}

	if err := h.listingSvc.Unlist(c.Request.Context(), id, userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotOwner):
			respondError(c, http.StatusForbidden, "ERR_NOT_OWNER", err.Error())
		case errors.Is(err, domain.ErrListingHasBids):
			respondError(c, http.StatusConflict, "ERR_HAS_BIDS", err.Error())
		case errors.Is(err, domain.ErrListingNotActive):
			respondError(c, http.StatusConflict, "ERR_NOT_ACTIVE", err.Error())
		case errors.Is(err, domain.ErrListingNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not unlist")
		}
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"unlisted": true})
}

// AttachQR godoc
// POST /api/listings/:id/qr [JWT]
// Body: {"qr_code_url":"https://..."}
func (h *ListingHandler) AttachQR(c *gin.Context) {
	userID := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid listing id")
		return
	}

	var body struct {
		QRCodeURL string `json:"qr_code_url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err := h.listingSvc.AttachQRCode(c.Request.Context(), id, userID, body.QRCodeURL); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotOwner):
			respondError(c, http.StatusForbidden, "ERR_NOT_OWNER", err.Error())
		case errors.Is(err, domain.ErrListingNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "listing not found or not sold")
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not attach qr code")
		}
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"attached": true})
}

// MyListings godoc
// GET /api/listings/my [JWT]
func (h *ListingHandler) MyListings(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := parsePagination(c)

	listings, err := h.listingSvc.ListBySeller(c.Request.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch listings")
		return
	}
	respondList(c, listings, len(listings), page, limit)
}

// MyPurchases godoc
// GET /api/listings/purchases [JWT]
func (h *ListingHandler) MyPurchases(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := parsePagination(c)

	listings, err := h.listingSvc.ListPurchases(c.Request.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch purchases")
		return
	}
	respondList(c, listings, len(listings), page, limit)
}

// MyBids godoc
// GET /api/listings/bidding [JWT]
// Active listings the caller currently has bids on.
func (h *ListingHandler) MyBids(c *gin.Context) {
	userID := middleware.GetUserID(c)

	listings, err := h.listingSvc.ActiveBidListings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch bid listings")
		return
	}
	respondSuccess(c, http.StatusOK, listings)
}
