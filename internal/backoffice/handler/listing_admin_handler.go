package handler

import (
	"net/http"

	"github.com/campusmess/mealmarket/internal/config"
	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/repository"
	"github.com/campusmess/mealmarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListingAdminHandler serves /admin/listings endpoints.
type ListingAdminHandler struct {
	listingRepo   *repository.ListingRepository
	bidRepo       *repository.BidRepository
	settlementSvc *service.SettlementService
	paymentSvc    *service.PaymentService
	cfg           *config.Config
}

// NewListingAdminHandler creates a ListingAdminHandler.
func NewListingAdminHandler(
	listingRepo *repository.ListingRepository,
	bidRepo *repository.BidRepository,
	settlementSvc *service.SettlementService,
	paymentSvc *service.PaymentService,
	cfg *config.Config,
) *ListingAdminHandler {
	return &ListingAdminHandler{
		listingRepo:   listingRepo,
		bidRepo:       bidRepo,
		settlementSvc: settlementSvc,
		paymentSvc:    paymentSvc,
		cfg:           cfg,
	}
}

// List godoc
// GET /admin/listings?status=active&page=1&limit=50
func (h *ListingAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit
	status := c.Query("status")

	listings, total, err := h.listingRepo.List(c.Request.Context(), limit, offset, status)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, listings, total, page, limit)
}

// Detail godoc
// GET /admin/listings/:id
func (h *ListingAdminHandler) Detail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid listing id")
		return
	}

	ctx := c.Request.Context()
	listing, err := h.listingRepo.GetByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	bids, _ := h.bidRepo.GetByListing(ctx, id)
	payment, _ := h.paymentSvc.GetByListing(ctx, id, listing.SellerID)

	respondSuccess(c, http.StatusOK, gin.H{
		"listing": listing,
		"bids":    bids,
		"payment": payment,
	})
}

// Settle godoc
// POST /admin/listings/:id/settle
//
// Forces an immediate settlement pass on one listing, regardless of whether
// its timer is due. Used when a seller disputes a stuck listing.
func (h *ListingAdminHandler) Settle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid listing id")
		return
	}

	decision, err := h.settlementSvc.SettleListing(c.Request.Context(), id)
	if err != nil {
		switch {
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case domain.IsConflict(err):
			respondError(c, http.StatusConflict, "ERR_CONFLICT", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		}
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"listing_id": id,
		"decision":   decision,
	})
}

// Unlist godoc
// POST /admin/listings/:id/unlist
//
// Moderation takedown: pulls an active listing regardless of owner or
// pending bids.
func (h *ListingAdminHandler) Unlist(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid listing id")
		return
	}

	if err = h.listingRepo.Unlist(c.Request.Context(), id); err != nil {
		switch {
		case domain.IsConflict(err):
			respondError(c, http.StatusConflict, "ERR_LISTING_NOT_ACTIVE", err.Error())
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		}
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"listing_id": id, "status": domain.StatusUnlisted})
}

// FailPayment godoc
// POST /admin/payments/:id/fail
//
// Marks a pending payment as failed after an offline dispute (e.g. the buyer
// never sent the UPI transfer). The sold listing reopens for the remaining
// bidders; the defaulting buyer's bids are dropped.
func (h *ListingAdminHandler) FailPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid payment id")
		return
	}

	if err = h.paymentSvc.MarkFailed(c.Request.Context(), id); err != nil {
		switch {
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case domain.IsConflict(err):
			respondError(c, http.StatusConflict, "ERR_PAYMENT_NOT_PENDING", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		}
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"payment_id": id, "status": domain.PaymentFailed})
}

// Counts godoc
// GET /admin/listings/counts
func (h *ListingAdminHandler) Counts(c *gin.Context) {
	counts, err := h.listingRepo.CountByStatus(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, counts)
}
